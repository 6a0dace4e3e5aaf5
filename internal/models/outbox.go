package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	OutboxStatusPending   = "pending"
	OutboxStatusPublished = "published"
	OutboxStatusFailed    = "failed"
)

const EventTypeOrderTransition = "order.transition"

// OutboxEvent пишется в той же транзакции, что и переход, и публикуется релеем.
type OutboxEvent struct {
	ID            string          `db:"id" json:"id"`
	OrderID       uuid.UUID       `db:"order_id" json:"order_id"`
	EventType     string          `db:"event_type" json:"event_type"`
	Payload       json.RawMessage `db:"payload" json:"payload"`
	Status        string          `db:"status" json:"status"`
	Attempts      int             `db:"attempts" json:"attempts"`
	LastError     *string         `db:"last_error" json:"last_error,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	NextAttemptAt time.Time       `db:"next_attempt_at" json:"next_attempt_at"`
	PublishedAt   *time.Time      `db:"published_at" json:"published_at,omitempty"`
}
