package store

import (
	"context"
	"fmt"

	"github.com/Ducksans/gg-real-sub001/internal/audit"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS audit_events (
		id          UUID PRIMARY KEY,
		type        TEXT NOT NULL,
		subject     TEXT NOT NULL,
		client_ip   TEXT,
		user_agent  TEXT,
		attributes  JSONB NOT NULL DEFAULT '{}'::jsonb,
		occurred_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS audit_events_type_occurred_at
		ON audit_events (type, occurred_at DESC);
`

// Postgres persists audit events to the audit_events table.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ audit.Store = (*Postgres)(nil)

// NewPostgres creates a new PostgreSQL-backed audit store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the audit_events table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("audit: migrate: %w", err)
	}

	return nil
}

// Save inserts event. Redelivered events are ignored by id.
func (p *Postgres) Save(ctx context.Context, event *audit.Event) error {
	query := `
		INSERT INTO audit_events (id, type, subject, client_ip, user_agent, attributes, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	attrs := event.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}

	_, err := p.pool.Exec(ctx, query,
		event.ID,
		event.Type,
		event.Subject,
		nullable(event.ClientIP),
		nullable(event.UserAgent),
		attrs,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("audit: save %s: %w", event.ID, err)
	}

	return nil
}

// Recent returns the newest events of one type, newest first.
func (p *Postgres) Recent(ctx context.Context, eventType string, limit int) ([]audit.Event, error) {
	query := `
		SELECT id::text, type, subject, client_ip, user_agent, attributes, occurred_at
		FROM audit_events
		WHERE type = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := p.pool.Query(ctx, query, eventType, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Event, error) {
		var (
			event         audit.Event
			ip, userAgent *string
		)

		err := row.Scan(&event.ID, &event.Type, &event.Subject, &ip, &userAgent, &event.Attributes, &event.OccurredAt)
		if ip != nil {
			event.ClientIP = *ip
		}

		if userAgent != nil {
			event.UserAgent = *userAgent
		}

		return event, err
	})
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}

	return events, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
