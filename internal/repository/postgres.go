package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/volcanion-systems/volcanion-tracking/internal/models"
)

const queryTimeout = 5 * time.Second

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// =============================================================================
// PARTNERS
// =============================================================================

func (r *PostgresRepository) CreatePartner(ctx context.Context, partner *models.Partner) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO partners (id, code, name, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		partner.ID, partner.Code, partner.Name, partner.Status, partner.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPartnerExists
		}
		return fmt.Errorf("failed to create partner: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetPartner(ctx context.Context, id string) (*models.Partner, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, code, name, status, created_at
		FROM partners
		WHERE id = $1
	`

	var p models.Partner
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Code, &p.Name, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPartnerNotFound
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}

	return &p, nil
}

func (r *PostgresRepository) ListPartners(ctx context.Context) ([]*models.Partner, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, code, name, status, created_at
		FROM partners
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}
	defer rows.Close()

	var partners []*models.Partner
	for rows.Next() {
		var p models.Partner
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, &p)
	}

	return partners, rows.Err()
}

func (r *PostgresRepository) UpdatePartner(ctx context.Context, partner *models.Partner) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE partners
		SET name = $2, status = $3
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, partner.ID, partner.Name, partner.Status)
	if err != nil {
		return fmt.Errorf("failed to update partner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPartnerNotFound
	}

	return nil
}

// =============================================================================
// SUB-SYSTEMS
// =============================================================================

func (r *PostgresRepository) CreateSubSystem(ctx context.Context, subSystem *models.SubSystem) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO sub_systems (id, partner_id, code, name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		subSystem.ID, subSystem.PartnerID, subSystem.Code, subSystem.Name,
		subSystem.Status, subSystem.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSubSystemExists
		}
		return fmt.Errorf("failed to create sub-system: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetSubSystemByCode(ctx context.Context, partnerID, code string) (*models.SubSystem, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, partner_id, code, name, status, created_at
		FROM sub_systems
		WHERE partner_id = $1 AND code = $2 AND status = 'Active'
	`

	var s models.SubSystem
	err := r.pool.QueryRow(ctx, query, partnerID, code).Scan(
		&s.ID, &s.PartnerID, &s.Code, &s.Name, &s.Status, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubSystemNotFound
		}
		return nil, fmt.Errorf("failed to get sub-system by code: %w", err)
	}

	return &s, nil
}

func (r *PostgresRepository) GetSubSystem(ctx context.Context, id string) (*models.SubSystem, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, partner_id, code, name, status, created_at
		FROM sub_systems
		WHERE id = $1
	`

	var s models.SubSystem
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.PartnerID, &s.Code, &s.Name, &s.Status, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubSystemNotFound
		}
		return nil, fmt.Errorf("failed to get sub-system: %w", err)
	}

	return &s, nil
}

func (r *PostgresRepository) ListSubSystems(ctx context.Context, partnerID string) ([]*models.SubSystem, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, partner_id, code, name, status, created_at
		FROM sub_systems
		WHERE partner_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub-systems: %w", err)
	}
	defer rows.Close()

	var subSystems []*models.SubSystem
	for rows.Next() {
		var s models.SubSystem
		if err := rows.Scan(&s.ID, &s.PartnerID, &s.Code, &s.Name, &s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sub-system: %w", err)
		}
		subSystems = append(subSystems, &s)
	}

	return subSystems, rows.Err()
}

// =============================================================================
// API KEYS
// =============================================================================

func (r *PostgresRepository) CreateAPIKey(ctx context.Context, key *models.PartnerAPIKey) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO partner_api_keys (id, partner_id, key_hash, name, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		key.ID, key.PartnerID, key.KeyHash, key.Name, key.Status, key.ExpiresAt, key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetAPIKey(ctx context.Context, id string) (*models.PartnerAPIKey, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, partner_id, key_hash, name, status, expires_at, created_at
		FROM partner_api_keys
		WHERE id = $1
	`

	var k models.PartnerAPIKey
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&k.ID, &k.PartnerID, &k.KeyHash, &k.Name, &k.Status, &k.ExpiresAt, &k.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}

	return &k, nil
}

// ListActiveAPIKeys returns every non-revoked, non-expired key. The
// auth middleware scans this list on a credential-cache miss, so it is
// the O(active keys) cost the cache exists to amortize.
func (r *PostgresRepository) ListActiveAPIKeys(ctx context.Context) ([]*models.PartnerAPIKey, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, partner_id, key_hash, name, status, expires_at, created_at
		FROM partner_api_keys
		WHERE status = 'Active'
		  AND (expires_at IS NULL OR expires_at > now())
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.PartnerAPIKey
	for rows.Next() {
		var k models.PartnerAPIKey
		if err := rows.Scan(&k.ID, &k.PartnerID, &k.KeyHash, &k.Name, &k.Status, &k.ExpiresAt, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, &k)
	}

	return keys, rows.Err()
}

func (r *PostgresRepository) RevokeAPIKey(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE partner_api_keys
		SET status = 'Revoked'
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}

// =============================================================================
// EVENTS
// =============================================================================

var eventColumns = []string{
	"id", "partner_id", "sub_system_id", "event_type", "event_time",
	"metadata", "ip", "user_agent", "user_id", "session_id", "trace_id",
	"client_type",
}

// BulkInsertEvents writes a whole batch with one COPY. This is the only
// write path for events; the batch processor calls it once per batch.
func (r *PostgresRepository) BulkInsertEvents(ctx context.Context, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows := make([][]any, len(events))
	for i, e := range events {
		rows[i] = []any{
			e.ID, e.PartnerID, e.SubSystemID, int(e.EventType), e.EventTime,
			e.Metadata, e.IP, e.UserAgent, e.UserID, e.SessionID, e.TraceID,
			int(e.ClientType),
		}
	}

	copied, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"tracking_events"},
		eventColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert events: %w", err)
	}
	if copied != int64(len(events)) {
		return fmt.Errorf("bulk insert wrote %d of %d events", copied, len(events))
	}

	return nil
}

func (r *PostgresRepository) CountEventsBySubSystem(ctx context.Context, subSystemID string, start, end time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT count(*)
		FROM tracking_events
		WHERE sub_system_id = $1 AND event_time >= $2 AND event_time < $3
	`

	var count int64
	if err := r.pool.QueryRow(ctx, query, subSystemID, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events by sub-system: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) CountEventsByPartner(ctx context.Context, partnerID string, start, end time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT count(*)
		FROM tracking_events
		WHERE partner_id = $1 AND event_time >= $2 AND event_time < $3
	`

	var count int64
	if err := r.pool.QueryRow(ctx, query, partnerID, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events by partner: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) EventTypeCounts(ctx context.Context, subSystemID string, start, end time.Time) ([]TypeCount, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT event_type, count(*)
		FROM tracking_events
		WHERE sub_system_id = $1 AND event_time >= $2 AND event_time < $3
		GROUP BY event_type
		ORDER BY event_type
	`

	rows, err := r.pool.Query(ctx, query, subSystemID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by type: %w", err)
	}
	defer rows.Close()

	var counts []TypeCount
	for rows.Next() {
		var typeCode int
		var count int64
		if err := rows.Scan(&typeCode, &count); err != nil {
			return nil, fmt.Errorf("failed to scan type count: %w", err)
		}
		counts = append(counts, TypeCount{EventType: models.EventType(typeCode), Count: count})
	}

	return counts, rows.Err()
}

func (r *PostgresRepository) EventTimeSeriesBySubSystem(ctx context.Context, subSystemID string, start, end time.Time) ([]TimeBucket, error) {
	return r.timeSeries(ctx, "sub_system_id", subSystemID, start, end)
}

func (r *PostgresRepository) EventTimeSeriesByPartner(ctx context.Context, partnerID string, start, end time.Time) ([]TimeBucket, error) {
	return r.timeSeries(ctx, "partner_id", partnerID, start, end)
}

func (r *PostgresRepository) timeSeries(ctx context.Context, column, id string, start, end time.Time) ([]TimeBucket, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// column is one of two compile-time constants, never user input.
	query := fmt.Sprintf(`
		SELECT date_trunc('hour', event_time) AS bucket, count(*)
		FROM tracking_events
		WHERE %s = $1 AND event_time >= $2 AND event_time < $3
		GROUP BY bucket
		ORDER BY bucket
	`, column)

	rows, err := r.pool.Query(ctx, query, id, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query time series: %w", err)
	}
	defer rows.Close()

	var buckets []TimeBucket
	for rows.Next() {
		var b TimeBucket
		if err := rows.Scan(&b.Timestamp, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan time bucket: %w", err)
		}
		buckets = append(buckets, b)
	}

	return buckets, rows.Err()
}

func (r *PostgresRepository) TopSubSystems(ctx context.Context, partnerID string, start, end time.Time, limit int) ([]SubSystemCount, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT s.id, s.name, count(e.id) AS event_count
		FROM sub_systems s
		LEFT JOIN tracking_events e
		  ON e.sub_system_id = s.id AND e.event_time >= $2 AND e.event_time < $3
		WHERE s.partner_id = $1
		GROUP BY s.id, s.name
		ORDER BY event_count DESC
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, partnerID, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top sub-systems: %w", err)
	}
	defer rows.Close()

	var counts []SubSystemCount
	for rows.Next() {
		var c SubSystemCount
		if err := rows.Scan(&c.SubSystemID, &c.SubSystemName, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan sub-system count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}
