package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
)

type OutboxRepository struct {
	db sqlx.ExtContext
}

func NewOutboxRepository(db sqlx.ExtContext) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, e *models.OutboxEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox_events (id, order_id, event_type, payload, status, attempts, created_at, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`, e.ID, e.OrderID, e.EventType, []byte(e.Payload), models.OutboxStatusPending, e.CreatedAt, e.NextAttemptAt)
	if err != nil {
		return fmt.Errorf("outbox repository: enqueue %w", err)
	}
	return nil
}

func (r *OutboxRepository) FetchPending(ctx context.Context, now time.Time, limit int) ([]models.OutboxEvent, error) {
	events := []models.OutboxEvent{}
	err := sqlx.SelectContext(ctx, r.db, &events, `
		SELECT id, order_id, event_type, payload, status, attempts, last_error, created_at, next_attempt_at, published_at
		FROM outbox_events
		WHERE status = $1 AND next_attempt_at <= $2
		ORDER BY created_at, id
		LIMIT $3
	`, models.OutboxStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox repository: fetch pending %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events SET status = $1, published_at = $2, attempts = attempts + 1 WHERE id = $3
	`, models.OutboxStatusPublished, at, id)
	if err != nil {
		return fmt.Errorf("outbox repository: mark published %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, lastErr string, nextAttemptAt time.Time, final bool) error {
	status := models.OutboxStatusPending
	if final {
		status = models.OutboxStatusFailed
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET status = $1, attempts = attempts + 1, last_error = $2, next_attempt_at = $3
		WHERE id = $4
	`, status, lastErr, nextAttemptAt, id)
	if err != nil {
		return fmt.Errorf("outbox repository: mark failed %w", err)
	}
	return nil
}
