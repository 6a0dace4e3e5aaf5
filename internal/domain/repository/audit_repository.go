package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
)

// AuditRepository — только добавление. Записи одного заказа упорядочены по времени.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.AuditLogEntry, error)
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event *models.OutboxEvent) error
	// FetchPending возвращает события pending, у которых наступило next_attempt_at.
	FetchPending(ctx context.Context, now time.Time, limit int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	// MarkFailed увеличивает attempts. final=true переводит событие в failed навсегда.
	MarkFailed(ctx context.Context, id string, lastErr string, nextAttemptAt time.Time, final bool) error
}
