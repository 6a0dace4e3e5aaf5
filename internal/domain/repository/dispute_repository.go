package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
)

type DisputeRepository interface {
	// Create возвращает common.ErrAlreadyExists, если по заказу уже открыт спор.
	Create(ctx context.Context, dispute *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetOpenByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Dispute, error)
	// MarkResolved возвращает common.ErrVersionConflict, если спор уже не open.
	MarkResolved(ctx context.Context, id uuid.UUID, at time.Time) error

	AddMessage(ctx context.Context, msg *models.DisputeMessage) error
	ListMessages(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeMessage, error)

	CreateResolution(ctx context.Context, res *models.DisputeResolution) error
	GetResolution(ctx context.Context, disputeID uuid.UUID) (*models.DisputeResolution, error)
}
