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

const disputeColumns = `id, order_id, opened_by_role, opened_by_user_id, reason_code, description, status,
	prior_status, created_at, resolved_at`

type DisputeRepository struct {
	db sqlx.ExtContext
}

func NewDisputeRepository(db sqlx.ExtContext) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create открывает спор. Частичный уникальный индекс не даёт открыть второй.
func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (` + disputeColumns + `)
		VALUES (:id, :order_id, :opened_by_role, :opened_by_user_id, :reason_code, :description, :status,
		        :prior_status, :created_at, :resolved_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, d); err != nil {
		if common.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	d, err := common.GetOne[models.Dispute](ctx, r.db, common.ErrNotFound,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
	if err != nil && err != common.ErrNotFound {
		return nil, fmt.Errorf("dispute repository: get by id %w", err)
	}
	return d, err
}

func (r *DisputeRepository) GetOpenByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	d, err := common.GetOne[models.Dispute](ctx, r.db, common.ErrNotFound,
		`SELECT `+disputeColumns+` FROM disputes WHERE order_id = $1 AND status = $2`,
		orderID, valueobject.DisputeStatusOpen)
	if err != nil && err != common.ErrNotFound {
		return nil, fmt.Errorf("dispute repository: get open by order %w", err)
	}
	return d, err
}

func (r *DisputeRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Dispute, error) {
	disputes := []models.Dispute{}
	err := sqlx.SelectContext(ctx, r.db, &disputes,
		`SELECT `+disputeColumns+` FROM disputes WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list by order %w", err)
	}
	return disputes, nil
}

func (r *DisputeRepository) MarkResolved(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET status = $1, resolved_at = $2 WHERE id = $3 AND status = $4
	`, valueobject.DisputeStatusResolved, at, id, valueobject.DisputeStatusOpen)
	if err != nil {
		return fmt.Errorf("dispute repository: mark resolved %w", err)
	}
	return common.ExpectOneRow(res, common.ErrVersionConflict)
}

func (r *DisputeRepository) AddMessage(ctx context.Context, m *models.DisputeMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dispute_messages (id, dispute_id, sender_role, sender_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.DisputeID, m.SenderRole, m.SenderID, m.Text, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("dispute repository: add message %w", err)
	}
	return nil
}

func (r *DisputeRepository) ListMessages(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeMessage, error) {
	messages := []models.DisputeMessage{}
	err := sqlx.SelectContext(ctx, r.db, &messages, `
		SELECT id, dispute_id, sender_role, sender_id, text, created_at
		FROM dispute_messages WHERE dispute_id = $1 ORDER BY created_at, id
	`, disputeID)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list messages %w", err)
	}
	return messages, nil
}

func (r *DisputeRepository) CreateResolution(ctx context.Context, res *models.DisputeResolution) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dispute_resolutions (id, dispute_id, operator_id, decision_code, decision_notes, final_order_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, res.ID, res.DisputeID, res.OperatorID, res.DecisionCode, res.DecisionNotes, res.FinalOrderStatus, res.CreatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("dispute repository: create resolution %w", err)
	}
	return nil
}

func (r *DisputeRepository) GetResolution(ctx context.Context, disputeID uuid.UUID) (*models.DisputeResolution, error) {
	res, err := common.GetOne[models.DisputeResolution](ctx, r.db, common.ErrNotFound, `
		SELECT id, dispute_id, operator_id, decision_code, decision_notes, final_order_status, created_at
		FROM dispute_resolutions WHERE dispute_id = $1
	`, disputeID)
	if err != nil && err != common.ErrNotFound {
		return nil, fmt.Errorf("dispute repository: get resolution %w", err)
	}
	return res, err
}
