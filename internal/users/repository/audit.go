package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dentora/dentora-backend/pkg/database"
)

// AuditEntry records an administrative action against a staff account.
// Tenant-scoped like every other clinical table.
type AuditEntry struct {
	ID         string          `db:"id" json:"id"`
	TenantID   string          `db:"tenant_id" json:"tenant_id"`
	ActorID    string          `db:"actor_id" json:"actor_id"`
	ActorEmail string          `db:"actor_email" json:"actor_email"`
	Action     string          `db:"action" json:"action"`
	TargetID   string          `db:"target_id" json:"target_id"`
	Detail     json.RawMessage `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// AuditRepository persists the user administration audit trail
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends an audit entry inside the ambient unit of work so the
// entry commits or rolls back together with the action it describes.
func (r *AuditRepository) Record(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Detail == nil {
		e.Detail = json.RawMessage(`{}`)
	}

	return r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO user_audit_log (id, tenant_id, actor_id, actor_email, action, target_id, detail)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`

		return r.db.QueryRowxContext(ctx, query,
			e.ID, e.TenantID, e.ActorID, e.ActorEmail, e.Action, e.TargetID, e.Detail,
		).Scan(&e.CreatedAt)
	})
}

// ListForTarget returns audit entries for one user, newest first
func (r *AuditRepository) ListForTarget(ctx context.Context, targetID string, limit int) ([]*AuditEntry, error) {
	var entries []*AuditEntry

	err := r.db.WithTenantFromContext(ctx, func(ctx context.Context) error {
		query := `
			SELECT id, tenant_id, actor_id, actor_email, action, target_id, detail, created_at
			FROM user_audit_log
			WHERE target_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`
		return r.db.SelectContext(ctx, &entries, query, targetID, limit)
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}
