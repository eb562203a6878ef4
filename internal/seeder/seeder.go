// Package seeder generates synthetic tracking traffic for development
// and load testing.
package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
)

// Profile controls what the generated traffic looks like.
type Profile struct {
	SubSystemCodes []string `yaml:"sub_system_codes"`
	EventTypes     []string `yaml:"event_types"`
	ClientTypes    []string `yaml:"client_types"`
	Users          int      `yaml:"users"`
}

// DefaultProfile covers the common taxonomy groups against a single
// "web" sub-system.
func DefaultProfile() Profile {
	return Profile{
		SubSystemCodes: []string{"web"},
		EventTypes: []string{
			"PAGE_VIEW", "ACTION", "API_REQUEST", "API_RESPONSE",
			"SESSION_START", "SESSION_END", "USER_LOGIN", "ERROR_THROWN",
		},
		ClientTypes: []string{"web", "mobile", "server"},
		Users:       50,
	}
}

// LoadProfile reads a YAML profile. Absent fields fall back to the
// default profile.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, err
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("parse profile: %w", err)
	}
	if len(profile.SubSystemCodes) == 0 || len(profile.EventTypes) == 0 || profile.Users <= 0 {
		return profile, fmt.Errorf("profile must set sub_system_codes, event_types, and users")
	}
	return profile, nil
}

// Generator produces randomized event submissions from a profile.
type Generator struct {
	profile Profile
	rand    *rand.Rand
	userIDs []string
}

func NewGenerator(profile Profile, seed int64) *Generator {
	r := rand.New(rand.NewSource(seed))
	gofakeit.Seed(seed)

	userIDs := make([]string, profile.Users)
	for i := range userIDs {
		userIDs[i] = gofakeit.UUID()
	}
	return &Generator{profile: profile, rand: r, userIDs: userIDs}
}

// Generate builds one submission. Metadata fields track the event
// type's group so seeded data exercises the report queries.
func (g *Generator) Generate() models.TrackEventRequest {
	eventType := g.pick(g.profile.EventTypes)

	req := models.TrackEventRequest{
		SubSystemCode: g.pick(g.profile.SubSystemCodes),
		EventType:     eventType,
		UserID:        g.userIDs[g.rand.Intn(len(g.userIDs))],
		SessionID:     fmt.Sprintf("sess-%s", gofakeit.UUID()[:8]),
		TraceID:       gofakeit.UUID(),
		Metadata:      g.metadataFor(eventType),
	}
	if len(g.profile.ClientTypes) > 0 {
		req.ClientType = g.pick(g.profile.ClientTypes)
	}
	return req
}

func (g *Generator) metadataFor(eventType string) map[string]any {
	parsed, err := models.ParseEventType(eventType)
	if err != nil {
		return map[string]any{}
	}

	switch parsed.Group() {
	case models.GroupAPI:
		return map[string]any{
			"method":      g.pick([]string{"GET", "POST", "PUT", "DELETE"}),
			"path":        "/api/" + gofakeit.Word(),
			"status_code": g.pick([]string{"200", "201", "400", "500"}),
			"duration_ms": g.rand.Intn(800),
		}
	case models.GroupError:
		return map[string]any{
			"message": gofakeit.Sentence(6),
			"source":  gofakeit.AppName(),
		}
	case models.GroupView:
		return map[string]any{
			"path":     "/" + gofakeit.Word(),
			"referrer": gofakeit.URL(),
		}
	case models.GroupUser:
		return map[string]any{
			"email": gofakeit.Email(),
		}
	default:
		return map[string]any{
			"host": gofakeit.DomainName(),
		}
	}
}

func (g *Generator) pick(options []string) string {
	return options[g.rand.Intn(len(options))]
}

// Client submits generated events to a running tracking service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SendBulk posts one bulk submission and returns how many events the
// service queued.
func (c *Client) SendBulk(ctx context.Context, events []models.TrackEventRequest) (int, error) {
	body, err := json.Marshal(models.BulkTrackEventRequest{Events: events})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/tracking/bulk", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data []models.TrackEventResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	queued := 0
	for _, r := range envelope.Data {
		if r.Status == "Queued" {
			queued++
		}
	}
	return queued, nil
}

// Run generates count events and sends them in bulk batches.
func Run(ctx context.Context, client *Client, gen *Generator, count, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	queued := 0
	for sent := 0; sent < count; {
		n := batchSize
		if remaining := count - sent; remaining < n {
			n = remaining
		}

		batch := make([]models.TrackEventRequest, 0, n)
		for i := 0; i < n; i++ {
			batch = append(batch, gen.Generate())
		}

		ok, err := client.SendBulk(ctx, batch)
		queued += ok
		if err != nil {
			return queued, err
		}
		sent += n
	}
	return queued, nil
}
