package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domainrepo "github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/repository/common"
)

const orderColumns = `id, client_id, provider_id, service_id, service_title, service_price, status,
	scheduled_at, location, amount, currency, pricing_mode, version, created_at, updated_at`

// OrderRepository работает с заказами. db — *sqlx.DB или *sqlx.Tx.
type OrderRepository struct {
	db sqlx.ExtContext
}

func NewOrderRepository(db sqlx.ExtContext) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create сохраняет новый заказ с версией 1.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (:id, :client_id, :provider_id, :service_id, :service_title, :service_price, :status,
		        :scheduled_at, :location, :amount, :currency, :pricing_mode, :version, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, o); err != nil {
		if common.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("order repository: create %w", err)
	}
	return nil
}

// GetByID возвращает заказ по идентификатору.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := common.GetOne[models.Order](ctx, r.db, common.ErrNotFound,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil && err != common.ErrNotFound {
		return nil, fmt.Errorf("order repository: get by id %w", err)
	}
	return order, err
}

// UpdateStatus — compare-and-swap по версии.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int64, status valueobject.OrderStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`, status, at, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("order repository: update status %w", err)
	}
	return common.ExpectOneRow(res, common.ErrVersionConflict)
}

// List возвращает заказы, где пользователь клиент или исполнитель, новые первыми.
func (r *OrderRepository) List(ctx context.Context, filter domainrepo.OrderFilter) ([]models.Order, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.ParticipantID != nil {
		args = append(args, *filter.ParticipantID)
		conds = append(conds, fmt.Sprintf("(client_id = $%d OR provider_id = $%d)", len(args), len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	orders := []models.Order{}
	if err := sqlx.SelectContext(ctx, r.db, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("order repository: list %w", err)
	}
	return orders, nil
}
