package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
)

// ServiceSnapshot — название и цена услуги каталога на момент бронирования.
// После создания заказа каталог больше не читается.
type ServiceSnapshot struct {
	ServiceID uuid.UUID `json:"service_id"`
	Title     string    `json:"title"`
	Price     int64     `json:"price"`
}

// Order — заказ услуги. Меняется только через OrderEngine.
type Order struct {
	ID           uuid.UUID               `db:"id" json:"id"`
	ClientID     uuid.UUID               `db:"client_id" json:"client_id"`
	ProviderID   uuid.UUID               `db:"provider_id" json:"provider_id"`
	ServiceID    uuid.UUID               `db:"service_id" json:"service_id"`
	ServiceTitle string                  `db:"service_title" json:"service_title"`
	ServicePrice int64                   `db:"service_price" json:"service_price"`
	Status       valueobject.OrderStatus `db:"status" json:"status"`
	ScheduledAt  *time.Time              `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Location     string                  `db:"location" json:"location"`
	Amount       int64                   `db:"amount" json:"amount"`
	Currency     string                  `db:"currency" json:"currency"`
	PricingMode  valueobject.PricingMode `db:"pricing_mode" json:"pricing_mode"`
	Version      int64                   `db:"version" json:"version"`
	CreatedAt    time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time               `db:"updated_at" json:"updated_at"`
}

func (o *Order) Snapshot() ServiceSnapshot {
	return ServiceSnapshot{ServiceID: o.ServiceID, Title: o.ServiceTitle, Price: o.ServicePrice}
}

// IsParty сообщает, является ли пользователь клиентом или исполнителем заказа.
func (o *Order) IsParty(userID uuid.UUID) bool {
	return o.ClientID == userID || o.ProviderID == userID
}

// Actor — аутентифицированный участник операции.
type Actor struct {
	UserID uuid.UUID
	Role   valueobject.Role
}

// TransitionEvent уходит в уведомления и outbox после коммита перехода.
type TransitionEvent struct {
	OrderID    uuid.UUID               `json:"order_id"`
	Operation  valueobject.Operation   `json:"operation"`
	OldStatus  valueobject.OrderStatus `json:"old_status"`
	NewStatus  valueobject.OrderStatus `json:"new_status"`
	ActorID    uuid.UUID               `json:"actor_id"`
	ClientID   uuid.UUID               `json:"client_id"`
	ProviderID uuid.UUID               `json:"provider_id"`
	OccurredAt time.Time               `json:"occurred_at"`
}
