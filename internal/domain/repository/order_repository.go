package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// UpdateStatus меняет статус, только если версия совпадает с expectedVersion.
	// Иначе возвращает common.ErrVersionConflict.
	UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int64, status valueobject.OrderStatus, at time.Time) error
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
}

type OrderFilter struct {
	ParticipantID *uuid.UUID
	Status        *valueobject.OrderStatus
	Limit         int
	Offset        int
}
