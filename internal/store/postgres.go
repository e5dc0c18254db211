package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry is one recorded admin action.
type AuditEntry struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actorId"`
	Action     string    `json:"action"`
	TargetType string    `json:"targetType"`
	TargetID   string    `json:"targetId"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AuditStore records admin actions in PostgreSQL.
type AuditStore struct {
	pool *pgxpool.Pool
}

func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Migrate creates the audit_log table if it doesn't exist.
func (s *AuditStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_log (
			id          UUID PRIMARY KEY,
			actor_id    VARCHAR(24)  NOT NULL,
			action      VARCHAR(50)  NOT NULL,
			target_type VARCHAR(20)  NOT NULL,
			target_id   VARCHAR(24)  NOT NULL,
			detail      TEXT         NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ  DEFAULT NOW()
		)
	`)
	return err
}

// Record inserts one audit row.
func (s *AuditStore) Record(ctx context.Context, actorID, action, targetType, targetID, detail string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, actor_id, action, target_type, target_id, detail)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), actorID, action, targetType, targetID, detail,
	)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// List returns one page of audit entries, newest first, plus the total count.
func (s *AuditStore) List(ctx context.Context, limit, offset int) ([]AuditEntry, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, actor_id, action, target_type, target_id, detail, created_at
		 FROM audit_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetType, &e.TargetID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
