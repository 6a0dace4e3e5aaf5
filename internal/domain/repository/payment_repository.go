package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
)

type PaymentRepository interface {
	// Create возвращает common.ErrAlreadyExists, если по заказу уже есть платёж.
	Create(ctx context.Context, payment *models.Payment) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	// UpdateEscrowStatus переводит эскроу from -> to. Если текущее состояние не from,
	// возвращает common.ErrInvalidLedgerState.
	UpdateEscrowStatus(ctx context.Context, orderID uuid.UUID, from, to valueobject.EscrowStatus, at time.Time) error
}
