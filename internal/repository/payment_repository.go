package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/repository/common"
)

const paymentColumns = `id, order_id, amount_total, operator_fee, provider_amount, fee_rate_bps, currency,
	escrow_status, gateway_ref, created_at, settled_at`

type PaymentRepository struct {
	db sqlx.ExtContext
}

func NewPaymentRepository(db sqlx.ExtContext) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create фиксирует удержание. Второй платёж по заказу отклоняется уникальным индексом.
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (:id, :order_id, :amount_total, :operator_fee, :provider_amount, :fee_rate_bps, :currency,
		        :escrow_status, :gateway_ref, :created_at, :settled_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, p); err != nil {
		if common.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("payment repository: create %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	p, err := common.GetOne[models.Payment](ctx, r.db, common.ErrNotFound,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID)
	if err != nil && err != common.ErrNotFound {
		return nil, fmt.Errorf("payment repository: get by order %w", err)
	}
	return p, err
}

// UpdateEscrowStatus переводит эскроу только вперёд: WHERE escrow_status = from.
func (r *PaymentRepository) UpdateEscrowStatus(ctx context.Context, orderID uuid.UUID, from, to valueobject.EscrowStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET escrow_status = $1, settled_at = $2
		WHERE order_id = $3 AND escrow_status = $4
	`, to, at, orderID, from)
	if err != nil {
		return fmt.Errorf("payment repository: update escrow %w", err)
	}
	return common.ExpectOneRow(res, common.ErrInvalidLedgerState)
}
