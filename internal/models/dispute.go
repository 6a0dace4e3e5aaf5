package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
)

type Dispute struct {
	ID             uuid.UUID                 `db:"id" json:"id"`
	OrderID        uuid.UUID                 `db:"order_id" json:"order_id"`
	OpenedByRole   valueobject.Role          `db:"opened_by_role" json:"opened_by_role"`
	OpenedByUserID uuid.UUID                 `db:"opened_by_user_id" json:"opened_by_user_id"`
	ReasonCode     valueobject.DisputeReason `db:"reason_code" json:"reason_code"`
	Description    string                    `db:"description" json:"description"`
	Status         valueobject.DisputeStatus `db:"status" json:"status"`
	// PriorStatus — статус заказа до открытия спора.
	PriorStatus valueobject.OrderStatus `db:"prior_status" json:"prior_status"`
	CreatedAt   time.Time               `db:"created_at" json:"created_at"`
	ResolvedAt  *time.Time              `db:"resolved_at" json:"resolved_at,omitempty"`
}

func (d *Dispute) IsOpen() bool {
	return d.Status == valueobject.DisputeStatusOpen
}

// DisputeMessage — запись переписки по спору, не изменяется.
type DisputeMessage struct {
	ID         uuid.UUID        `db:"id" json:"id"`
	DisputeID  uuid.UUID        `db:"dispute_id" json:"dispute_id"`
	SenderRole valueobject.Role `db:"sender_role" json:"sender_role"`
	SenderID   uuid.UUID        `db:"sender_id" json:"sender_id"`
	Text       string           `db:"text" json:"text"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

// DisputeResolution — решение оператора. Ровно одно на спор.
type DisputeResolution struct {
	ID               uuid.UUID                `db:"id" json:"id"`
	DisputeID        uuid.UUID                `db:"dispute_id" json:"dispute_id"`
	OperatorID       uuid.UUID                `db:"operator_id" json:"operator_id"`
	DecisionCode     valueobject.DecisionCode `db:"decision_code" json:"decision_code"`
	DecisionNotes    string                   `db:"decision_notes" json:"decision_notes"`
	FinalOrderStatus valueobject.OrderStatus  `db:"final_order_status" json:"final_order_status"`
	CreatedAt        time.Time                `db:"created_at" json:"created_at"`
}
