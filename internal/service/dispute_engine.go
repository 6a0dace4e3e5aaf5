package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainrepo "github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/logger"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/repository/common"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/validation"
)

// DisputeEngine ведёт споры. Статус заказа меняет только OrderEngine,
// спор закрывается в той же транзакции, что и переход заказа.
type DisputeEngine struct {
	orders *OrderEngine
	store  domainrepo.Store
}

func NewDisputeEngine(orders *OrderEngine) *DisputeEngine {
	return &DisputeEngine{orders: orders, store: orders.store}
}

// OpenDispute переводит заказ в disputed и создаёт спор. Эскроу замораживается до решения оператора.
func (d *DisputeEngine) OpenDispute(ctx context.Context, actor models.Actor, orderID uuid.UUID, reasonCode, description string) (*models.Dispute, error) {
	reason, err := valueobject.NewDisputeReason(reasonCode)
	if err != nil {
		return nil, err
	}
	description, err = validation.Text("описание", description, 0, validation.MaxDisputeTextLength)
	if err != nil {
		return nil, err
	}

	var (
		prior   valueobject.OrderStatus
		dispute *models.Dispute
	)
	_, err = d.orders.apply(ctx, transition{
		op:      valueobject.OpOpenDispute,
		orderID: orderID,
		actor:   actor,
		detail:  string(reason),
		prepare: func(_ context.Context, _ domainrepo.Repositories, order *models.Order) error {
			prior = order.Status
			return nil
		},
		within: func(ctx context.Context, tx domainrepo.Repositories, order *models.Order, at time.Time) error {
			dispute = &models.Dispute{
				ID:             d.orders.ids.NewUUID(),
				OrderID:        order.ID,
				OpenedByRole:   actor.Role,
				OpenedByUserID: actor.UserID,
				ReasonCode:     reason,
				Description:    description,
				Status:         valueobject.DisputeStatusOpen,
				PriorStatus:    prior,
				CreatedAt:      at,
			}
			err := tx.Disputes().Create(ctx, dispute)
			if errors.Is(err, common.ErrAlreadyExists) {
				return apperror.New(apperror.ErrCodeDisputeAlreadyOpen, "по заказу уже открыт спор")
			}
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

// SendMessage добавляет сообщение в открытый спор. Писать могут стороны заказа и операторы.
func (d *DisputeEngine) SendMessage(ctx context.Context, actor models.Actor, disputeID uuid.UUID, text string) (*models.DisputeMessage, error) {
	text, err := validation.Text("сообщение", text, 1, validation.MaxDisputeTextLength)
	if err != nil {
		return nil, err
	}

	dispute, order, err := d.load(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(actor, order); err != nil {
		return nil, err
	}

	// Под блокировкой заказа сообщение не проскочит после закрытия спора.
	store, unlock, err := d.orders.lock(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	dispute, err = d.getDispute(ctx, store, dispute.ID)
	if err != nil {
		return nil, err
	}
	if !dispute.IsOpen() {
		return nil, apperror.New(apperror.ErrCodeInvalidTransition, "спор закрыт, сообщения не принимаются")
	}

	msg := &models.DisputeMessage{
		ID:         d.orders.ids.NewUUID(),
		DisputeID:  dispute.ID,
		SenderRole: actor.Role,
		SenderID:   actor.UserID,
		Text:       text,
		CreatedAt:  d.orders.clock.Now(),
	}
	if err := store.Disputes().AddMessage(ctx, msg); err != nil {
		return nil, persistenceError(err)
	}

	recipients := make([]uuid.UUID, 0, 2)
	for _, id := range []uuid.UUID{order.ClientID, order.ProviderID} {
		if id != actor.UserID {
			recipients = append(recipients, id)
		}
	}
	notifyCtx := context.WithoutCancel(ctx)
	sent := *msg
	d.orders.async.SafeGo(func() {
		d.orders.notifier.NotifyDisputeMessage(notifyCtx, recipients, sent)
	})

	return msg, nil
}

// ResolveInput — вердикт оператора.
type ResolveInput struct {
	Decision    valueobject.DecisionCode
	Notes       string
	FinalStatus valueobject.OrderStatus
}

// ResolveDispute закрывает спор и завершает или отменяет заказ с выплатой либо возвратом эскроу.
// Если переход заказа не удался, спор остаётся открытым и решение не сохраняется.
func (d *DisputeEngine) ResolveDispute(ctx context.Context, actor models.Actor, disputeID uuid.UUID, in ResolveInput) (*models.DisputeResolution, error) {
	if actor.Role != valueobject.RoleOperator {
		return nil, apperror.New(apperror.ErrCodeForbidden, "решение по спору принимает только оператор")
	}
	notes, err := validation.Text("комментарий", in.Notes, 0, validation.MaxDisputeTextLength)
	if err != nil {
		return nil, err
	}
	in.Notes = notes
	if err := valueobject.ValidateDecision(in.Decision, in.FinalStatus, in.Notes); err != nil {
		return nil, err
	}

	dispute, err := d.getDispute(ctx, d.store, disputeID)
	if err != nil {
		return nil, err
	}
	if !dispute.IsOpen() {
		return nil, apperror.New(apperror.ErrCodeAlreadyApplied, "спор уже разрешён")
	}

	var resolution *models.DisputeResolution
	_, err = d.orders.apply(ctx, transition{
		op:      valueobject.OpResolveDispute,
		orderID: dispute.OrderID,
		actor:   actor,
		target:  in.FinalStatus,
		detail:  string(in.Decision),
		prepare: func(ctx context.Context, repos domainrepo.Repositories, _ *models.Order) error {
			fresh, err := d.getDispute(ctx, repos, disputeID)
			if err != nil {
				return err
			}
			if !fresh.IsOpen() {
				return apperror.New(apperror.ErrCodeAlreadyApplied, "спор уже разрешён")
			}
			return nil
		},
		within: func(ctx context.Context, tx domainrepo.Repositories, _ *models.Order, at time.Time) error {
			resolution = &models.DisputeResolution{
				ID:               d.orders.ids.NewUUID(),
				DisputeID:        disputeID,
				OperatorID:       actor.UserID,
				DecisionCode:     in.Decision,
				DecisionNotes:    in.Notes,
				FinalOrderStatus: in.FinalStatus,
				CreatedAt:        at,
			}
			if err := tx.Disputes().CreateResolution(ctx, resolution); err != nil {
				if errors.Is(err, common.ErrAlreadyExists) {
					return apperror.New(apperror.ErrCodeAlreadyApplied, "спор уже разрешён")
				}
				return err
			}
			if err := tx.Disputes().MarkResolved(ctx, disputeID, at); err != nil {
				if errors.Is(err, common.ErrVersionConflict) {
					return apperror.New(apperror.ErrCodeAlreadyApplied, "спор уже разрешён")
				}
				return err
			}
			return nil
		},
	})
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"dispute_id": disputeID,
			"order_id":   dispute.OrderID,
			"decision":   in.Decision,
			"error":      err,
		}).Warn("dispute engine: решение не применено, спор остаётся открытым")
		return nil, err
	}
	return resolution, nil
}

func (d *DisputeEngine) GetDispute(ctx context.Context, actor models.Actor, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, order, err := d.load(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(actor, order); err != nil {
		return nil, err
	}
	return dispute, nil
}

// ListOrderDisputes — история споров заказа, включая закрытые.
func (d *DisputeEngine) ListOrderDisputes(ctx context.Context, actor models.Actor, orderID uuid.UUID) ([]models.Dispute, error) {
	if _, err := d.orders.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	list, err := d.store.Disputes().ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, persistenceError(err)
	}
	return list, nil
}

func (d *DisputeEngine) ListMessages(ctx context.Context, actor models.Actor, disputeID uuid.UUID) ([]models.DisputeMessage, error) {
	if _, err := d.GetDispute(ctx, actor, disputeID); err != nil {
		return nil, err
	}
	msgs, err := d.store.Disputes().ListMessages(ctx, disputeID)
	if err != nil {
		return nil, persistenceError(err)
	}
	return msgs, nil
}

// GetResolution возвращает решение оператора по закрытому спору.
func (d *DisputeEngine) GetResolution(ctx context.Context, actor models.Actor, disputeID uuid.UUID) (*models.DisputeResolution, error) {
	if _, err := d.GetDispute(ctx, actor, disputeID); err != nil {
		return nil, err
	}
	res, err := d.store.Disputes().GetResolution(ctx, disputeID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, apperror.New(apperror.ErrCodeNotFound, "решение по спору ещё не принято")
	}
	if err != nil {
		return nil, persistenceError(err)
	}
	return res, nil
}

func (d *DisputeEngine) load(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, *models.Order, error) {
	dispute, err := d.getDispute(ctx, d.store, disputeID)
	if err != nil {
		return nil, nil, err
	}
	order, err := d.orders.loadOrder(ctx, d.store, dispute.OrderID)
	if err != nil {
		return nil, nil, err
	}
	return dispute, order, nil
}

func (d *DisputeEngine) getDispute(ctx context.Context, repos domainrepo.Repositories, id uuid.UUID) (*models.Dispute, error) {
	dispute, err := repos.Disputes().GetByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, apperror.ErrDisputeNotFound
	}
	if err != nil {
		return nil, persistenceError(err)
	}
	return dispute, nil
}
