package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
)

// MemoryRepository is an in-memory Repository for development and
// tests. Not durable, single process only.
type MemoryRepository struct {
	mu         sync.RWMutex
	partners   map[string]*models.Partner
	subSystems map[string]*models.SubSystem
	apiKeys    map[string]*models.PartnerAPIKey
	events     []*models.Event
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		partners:   make(map[string]*models.Partner),
		subSystems: make(map[string]*models.SubSystem),
		apiKeys:    make(map[string]*models.PartnerAPIKey),
	}
}

func (r *MemoryRepository) Close() {}

func (r *MemoryRepository) CreatePartner(ctx context.Context, partner *models.Partner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.partners {
		if p.Code == partner.Code {
			return ErrPartnerExists
		}
	}
	clone := *partner
	r.partners[partner.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetPartner(ctx context.Context, id string) (*models.Partner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.partners[id]
	if !ok {
		return nil, ErrPartnerNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *MemoryRepository) ListPartners(ctx context.Context) ([]*models.Partner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	partners := make([]*models.Partner, 0, len(r.partners))
	for _, p := range r.partners {
		clone := *p
		partners = append(partners, &clone)
	}
	sort.Slice(partners, func(i, j int) bool {
		return partners[i].CreatedAt.Before(partners[j].CreatedAt)
	})
	return partners, nil
}

func (r *MemoryRepository) UpdatePartner(ctx context.Context, partner *models.Partner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.partners[partner.ID]
	if !ok {
		return ErrPartnerNotFound
	}
	existing.Name = partner.Name
	existing.Status = partner.Status
	return nil
}

func (r *MemoryRepository) CreateSubSystem(ctx context.Context, subSystem *models.SubSystem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.subSystems {
		if s.PartnerID == subSystem.PartnerID && s.Code == subSystem.Code {
			return ErrSubSystemExists
		}
	}
	clone := *subSystem
	r.subSystems[subSystem.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetSubSystemByCode(ctx context.Context, partnerID, code string) (*models.SubSystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.subSystems {
		if s.PartnerID == partnerID && s.Code == code && s.IsActive() {
			clone := *s
			return &clone, nil
		}
	}
	return nil, ErrSubSystemNotFound
}

func (r *MemoryRepository) GetSubSystem(ctx context.Context, id string) (*models.SubSystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subSystems[id]
	if !ok {
		return nil, ErrSubSystemNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *MemoryRepository) ListSubSystems(ctx context.Context, partnerID string) ([]*models.SubSystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subSystems []*models.SubSystem
	for _, s := range r.subSystems {
		if s.PartnerID == partnerID {
			clone := *s
			subSystems = append(subSystems, &clone)
		}
	}
	sort.Slice(subSystems, func(i, j int) bool {
		return subSystems[i].CreatedAt.Before(subSystems[j].CreatedAt)
	})
	return subSystems, nil
}

func (r *MemoryRepository) CreateAPIKey(ctx context.Context, key *models.PartnerAPIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *key
	r.apiKeys[key.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetAPIKey(ctx context.Context, id string) (*models.PartnerAPIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.apiKeys[id]
	if !ok {
		return nil, ErrAPIKeyNotFound
	}
	clone := *k
	return &clone, nil
}

func (r *MemoryRepository) ListActiveAPIKeys(ctx context.Context) ([]*models.PartnerAPIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []*models.PartnerAPIKey
	for _, k := range r.apiKeys {
		if k.IsActive() {
			clone := *k
			keys = append(keys, &clone)
		}
	}
	return keys, nil
}

func (r *MemoryRepository) RevokeAPIKey(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.apiKeys[id]
	if !ok {
		return ErrAPIKeyNotFound
	}
	k.Status = models.StatusRevoked
	return nil
}

func (r *MemoryRepository) BulkInsertEvents(ctx context.Context, events []*models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range events {
		clone := *e
		r.events = append(r.events, &clone)
	}
	return nil
}

// Events returns a copy of everything inserted so far, in insertion
// order. Test helper, not part of the Repository interface.
func (r *MemoryRepository) Events() []*models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*models.Event, len(r.events))
	copy(events, r.events)
	return events
}

func (r *MemoryRepository) eventsIn(filter func(*models.Event) bool, start, end time.Time) []*models.Event {
	var out []*models.Event
	for _, e := range r.events {
		if !filter(e) {
			continue
		}
		if e.EventTime.Before(start) || !e.EventTime.Before(end) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (r *MemoryRepository) CountEventsBySubSystem(ctx context.Context, subSystemID string, start, end time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.eventsIn(func(e *models.Event) bool { return e.SubSystemID == subSystemID }, start, end)
	return int64(len(matched)), nil
}

func (r *MemoryRepository) CountEventsByPartner(ctx context.Context, partnerID string, start, end time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.eventsIn(func(e *models.Event) bool { return e.PartnerID == partnerID }, start, end)
	return int64(len(matched)), nil
}

func (r *MemoryRepository) EventTypeCounts(ctx context.Context, subSystemID string, start, end time.Time) ([]TypeCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byType := make(map[models.EventType]int64)
	for _, e := range r.eventsIn(func(e *models.Event) bool { return e.SubSystemID == subSystemID }, start, end) {
		byType[e.EventType]++
	}

	counts := make([]TypeCount, 0, len(byType))
	for t, c := range byType {
		counts = append(counts, TypeCount{EventType: t, Count: c})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].EventType < counts[j].EventType })
	return counts, nil
}

func (r *MemoryRepository) EventTimeSeriesBySubSystem(ctx context.Context, subSystemID string, start, end time.Time) ([]TimeBucket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return bucketHourly(r.eventsIn(func(e *models.Event) bool { return e.SubSystemID == subSystemID }, start, end)), nil
}

func (r *MemoryRepository) EventTimeSeriesByPartner(ctx context.Context, partnerID string, start, end time.Time) ([]TimeBucket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return bucketHourly(r.eventsIn(func(e *models.Event) bool { return e.PartnerID == partnerID }, start, end)), nil
}

func bucketHourly(events []*models.Event) []TimeBucket {
	byHour := make(map[time.Time]int64)
	for _, e := range events {
		byHour[e.EventTime.Truncate(time.Hour)]++
	}

	buckets := make([]TimeBucket, 0, len(byHour))
	for ts, c := range byHour {
		buckets = append(buckets, TimeBucket{Timestamp: ts, Count: c})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Timestamp.Before(buckets[j].Timestamp) })
	return buckets
}

func (r *MemoryRepository) TopSubSystems(ctx context.Context, partnerID string, start, end time.Time, limit int) ([]SubSystemCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var counts []SubSystemCount
	for _, s := range r.subSystems {
		if s.PartnerID != partnerID {
			continue
		}
		matched := r.eventsIn(func(e *models.Event) bool { return e.SubSystemID == s.ID }, start, end)
		counts = append(counts, SubSystemCount{
			SubSystemID:   s.ID,
			SubSystemName: s.Name,
			Count:         int64(len(matched)),
		})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}
