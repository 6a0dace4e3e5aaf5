package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
)

// Notifier доставляет события участникам. Вызывается после коммита, ошибки доставки
// не влияют на результат операции.
type Notifier interface {
	NotifyTransition(ctx context.Context, ev models.TransitionEvent)
	NotifyDisputeMessage(ctx context.Context, recipients []uuid.UUID, msg models.DisputeMessage)
}

// AuditPublisher раздаёт закоммиченные записи журнала живым подписчикам.
type AuditPublisher interface {
	Publish(entry models.AuditLogEntry)
}

type NoopNotifier struct{}

func (NoopNotifier) NotifyTransition(context.Context, models.TransitionEvent) {}

func (NoopNotifier) NotifyDisputeMessage(context.Context, []uuid.UUID, models.DisputeMessage) {}

type noopPublisher struct{}

func (noopPublisher) Publish(models.AuditLogEntry) {}
