package audit

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PostgresRepo appends events to the audit_events table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	roles, err := json.Marshal(e.ActorRoles)
	if err != nil {
		return err
	}
	var metadata any
	if e.Metadata != "" {
		metadata = e.Metadata
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, type, action, actor_user_id, actor_roles, entity_type, entity_ref, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, string(e.Type), e.Action, e.ActorUserID, string(roles), e.EntityType, e.EntityRef, e.Message, metadata, e.CreatedAt,
	)
	return err
}
