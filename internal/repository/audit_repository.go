package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
)

// AuditRepository хранит журнал переходов заказов. Только INSERT.
type AuditRepository struct {
	db sqlx.ExtContext
}

func NewAuditRepository(db sqlx.ExtContext) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, e *models.AuditLogEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, order_id, action, old_status, new_status, detail, actor_id, actor_role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.OrderID, e.Action, e.OldStatus, e.NewStatus, e.Detail, e.ActorID, e.ActorRole, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit repository: append %w", err)
	}
	return nil
}

// ListByOrder возвращает записи в порядке применения. ULID id разрешает равные created_at.
func (r *AuditRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.AuditLogEntry, error) {
	entries := []models.AuditLogEntry{}
	err := sqlx.SelectContext(ctx, r.db, &entries, `
		SELECT id, order_id, action, old_status, new_status, detail, actor_id, actor_role, created_at
		FROM audit_log WHERE order_id = $1 ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("audit repository: list %w", err)
	}
	return entries, nil
}
