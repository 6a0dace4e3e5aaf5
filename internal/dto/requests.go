package dto

import (
	"time"

	"github.com/google/uuid"
)

// CreateOrderRequest — бронирование услуги клиентом.
type CreateOrderRequest struct {
	ProviderID   uuid.UUID  `json:"provider_id" binding:"required"`
	ServiceID    uuid.UUID  `json:"service_id"`
	ServiceTitle string     `json:"service_title" binding:"required"`
	ServicePrice int64      `json:"service_price" binding:"gte=0"`
	Amount       int64      `json:"amount" binding:"gte=0"`
	Currency     string     `json:"currency" binding:"omitempty,len=3"`
	PricingMode  string     `json:"pricing_mode" binding:"omitempty,oneof=fixed hourly"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
	Location     string     `json:"location" binding:"max=500"`
}

// ReasonRequest — необязательная причина отказа или отмены.
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

type OpenDisputeRequest struct {
	ReasonCode  string `json:"reason_code" binding:"required"`
	Description string `json:"description" binding:"max=4000"`
}

type DisputeMessageRequest struct {
	Text string `json:"text" binding:"required,max=4000"`
}

type ResolveDisputeRequest struct {
	DecisionCode     string `json:"decision_code" binding:"required,oneof=favor_client favor_provider split"`
	DecisionNotes    string `json:"decision_notes" binding:"max=4000"`
	FinalOrderStatus string `json:"final_order_status" binding:"required,oneof=completed cancelled"`
}
