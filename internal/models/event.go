package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the closed taxonomy tag classifying an ingested event.
// Numeric codes are stable and stored as-is; new types get new codes.
type EventType int

const (
	EventAPIRequest  EventType = 100000
	EventAPIResponse EventType = 100001
	EventAPIError    EventType = 100002

	EventErrorThrown EventType = 200000
	EventSystemAlert EventType = 210000

	EventPageView   EventType = 300000
	EventScreenView EventType = 300001
	EventAction     EventType = 300002

	EventSessionStart EventType = 400000
	EventSessionEnd   EventType = 400001

	EventUserRegister EventType = 600000
	EventUserLogin    EventType = 600001
)

var eventTypeNames = map[EventType]string{
	EventAPIRequest:   "API_REQUEST",
	EventAPIResponse:  "API_RESPONSE",
	EventAPIError:     "API_ERROR",
	EventErrorThrown:  "ERROR_THROWN",
	EventSystemAlert:  "SYSTEM_ALERT",
	EventPageView:     "PAGE_VIEW",
	EventScreenView:   "SCREEN_VIEW",
	EventAction:       "ACTION",
	EventSessionStart: "SESSION_START",
	EventSessionEnd:   "SESSION_END",
	EventUserRegister: "USER_REGISTER",
	EventUserLogin:    "USER_LOGIN",
}

var eventTypesByName = func() map[string]EventType {
	m := make(map[string]EventType, len(eventTypeNames))
	for t, name := range eventTypeNames {
		m[name] = t
	}
	return m
}()

// ParseEventType resolves an event type name (e.g. "PAGE_VIEW") to its
// EventType. Returns an error for names outside the taxonomy.
func ParseEventType(name string) (EventType, error) {
	if t, ok := eventTypesByName[name]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown event type %q", name)
}

// String returns the canonical name of the event type, or the numeric
// code for values outside the taxonomy.
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Valid reports whether t is a member of the closed taxonomy.
func (t EventType) Valid() bool {
	_, ok := eventTypeNames[t]
	return ok
}

// MarshalJSON encodes the event type as its canonical name.
func (t EventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts either the canonical name or the numeric code.
func (t *EventType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, perr := ParseEventType(name)
		if perr != nil {
			return perr
		}
		*t = parsed
		return nil
	}
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("event type must be a string or integer")
	}
	et := EventType(code)
	if !et.Valid() {
		return fmt.Errorf("unknown event type code %d", code)
	}
	*t = et
	return nil
}

// EventGroup is the higher-level category an event type belongs to.
type EventGroup int

const (
	GroupAPI     EventGroup = 1
	GroupError   EventGroup = 2
	GroupSession EventGroup = 3
	GroupView    EventGroup = 4
	GroupUser    EventGroup = 5
	GroupSystem  EventGroup = 6
)

// Group maps an event type to its group. The mapping is exhaustive over
// the taxonomy; anything unknown lands in GroupSystem.
func (t EventType) Group() EventGroup {
	switch t {
	case EventAPIRequest, EventAPIResponse, EventAPIError:
		return GroupAPI
	case EventErrorThrown, EventSystemAlert:
		return GroupError
	case EventSessionStart, EventSessionEnd:
		return GroupSession
	case EventPageView, EventScreenView, EventAction:
		return GroupView
	case EventUserRegister, EventUserLogin:
		return GroupUser
	default:
		return GroupSystem
	}
}

// String returns the group name.
func (g EventGroup) String() string {
	switch g {
	case GroupAPI:
		return "Api"
	case GroupError:
		return "Error"
	case GroupSession:
		return "Session"
	case GroupView:
		return "View"
	case GroupUser:
		return "User"
	default:
		return "System"
	}
}

// ClientType tags the kind of client that emitted an event.
type ClientType int

const (
	ClientUnknown ClientType = 0
	ClientWeb     ClientType = 1
	ClientMobile  ClientType = 2
	ClientServer  ClientType = 3
)

// ParseClientType resolves a client type tag; unrecognized values map to
// ClientUnknown rather than failing, the tag is advisory.
func ParseClientType(s string) ClientType {
	switch s {
	case "web":
		return ClientWeb
	case "mobile":
		return ClientMobile
	case "server":
		return ClientServer
	default:
		return ClientUnknown
	}
}

// String returns the client type tag.
func (c ClientType) String() string {
	switch c {
	case ClientWeb:
		return "web"
	case ClientMobile:
		return "mobile"
	case ClientServer:
		return "server"
	default:
		return "unknown"
	}
}

// Event is a single ingested tracking event. Immutable once constructed
// by the ingestion gateway: ownership moves to the queue, then to the
// batch processor, then to the storage sink.
type Event struct {
	ID          string     `json:"id"`
	PartnerID   string     `json:"partner_id"`
	SubSystemID string     `json:"sub_system_id"`
	EventType   EventType  `json:"event_type"`
	EventTime   time.Time  `json:"event_time"`
	Metadata    string     `json:"metadata"`
	IP          string     `json:"ip"`
	UserAgent   string     `json:"user_agent"`
	UserID      string     `json:"user_id,omitempty"`
	SessionID   string     `json:"session_id,omitempty"`
	TraceID     string     `json:"trace_id,omitempty"`
	ClientType  ClientType `json:"client_type"`
}
