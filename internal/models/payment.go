package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
)

// Payment — эскроу по заказу, один к одному. Суммы в минорных единицах.
type Payment struct {
	ID             uuid.UUID                `db:"id" json:"id"`
	OrderID        uuid.UUID                `db:"order_id" json:"order_id"`
	AmountTotal    int64                    `db:"amount_total" json:"amount_total"`
	OperatorFee    int64                    `db:"operator_fee" json:"operator_fee"`
	ProviderAmount int64                    `db:"provider_amount" json:"provider_amount"`
	FeeRateBps     int64                    `db:"fee_rate_bps" json:"fee_rate_bps"`
	Currency       string                   `db:"currency" json:"currency"`
	EscrowStatus   valueobject.EscrowStatus `db:"escrow_status" json:"escrow_status"`
	GatewayRef     string                   `db:"gateway_ref" json:"gateway_ref"`
	CreatedAt      time.Time                `db:"created_at" json:"created_at"`
	SettledAt      *time.Time               `db:"settled_at" json:"settled_at,omitempty"`
}

// Reconciles проверяет provider_amount + operator_fee == amount_total.
func (p *Payment) Reconciles() bool {
	return p.ProviderAmount+p.OperatorFee == p.AmountTotal
}
