package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	domainrepo "github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/gateway"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/goroutine"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/ids"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/logger"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/metrics"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/platform/clock"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/repository/common"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/validation"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/telemetry"
)

// EngineDeps — зависимости движка заказов. Пустые поля, кроме Store и Ledger, заменяются значениями по умолчанию.
type EngineDeps struct {
	Store    domainrepo.Store
	Ledger   *Ledger
	Clock    clock.Clock
	IDs      ids.Generator
	Notifier Notifier
	Audit    AuditPublisher
	Metrics  *metrics.Metrics
	// Async запускает уведомления после коммита.
	Async *goroutine.RecoveryHandler
}

// OrderEngine — единственный источник изменений статуса заказа.
// Каждый переход атомарно меняет статус, эскроу, журнал и outbox.
type OrderEngine struct {
	store    domainrepo.Store
	ledger   *Ledger
	clock    clock.Clock
	ids      ids.Generator
	notifier Notifier
	audit    AuditPublisher
	metrics  *metrics.Metrics
	async    *goroutine.RecoveryHandler
	locks    *OrderLocks
}

func NewOrderEngine(deps EngineDeps) *OrderEngine {
	e := &OrderEngine{
		store:    deps.Store,
		ledger:   deps.Ledger,
		clock:    deps.Clock,
		ids:      deps.IDs,
		notifier: deps.Notifier,
		audit:    deps.Audit,
		metrics:  deps.Metrics,
		async:    deps.Async,
		locks:    NewOrderLocks(),
	}
	if e.clock == nil {
		e.clock = clock.Real()
	}
	if e.ids == nil {
		e.ids = ids.New()
	}
	if e.notifier == nil {
		e.notifier = NoopNotifier{}
	}
	if e.audit == nil {
		e.audit = noopPublisher{}
	}
	if e.async == nil {
		e.async = goroutine.DefaultRecoveryHandler
	}
	return e
}

// CreateOrderInput — данные бронирования от клиента.
type CreateOrderInput struct {
	ProviderID  uuid.UUID
	Service     models.ServiceSnapshot
	ScheduledAt *time.Time
	Location    string
	// Amount в минорных единицах. 0 означает цену услуги из снимка.
	Amount      int64
	Currency    string
	PricingMode valueobject.PricingMode
}

// CreateOrder создаёт заказ в статусе sent и первую запись журнала.
func (e *OrderEngine) CreateOrder(ctx context.Context, actor models.Actor, in CreateOrderInput) (*models.Order, error) {
	started := time.Now()
	op := valueobject.OpCreateOrder

	if actor.Role != valueobject.RoleClient {
		return nil, apperror.New(apperror.ErrCodeForbidden, "заказ может создать только клиент")
	}
	if in.ProviderID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указан исполнитель")
	}
	if in.ProviderID == actor.UserID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя заказать услугу у самого себя")
	}
	title, err := validation.Text("название услуги", in.Service.Title, 1, validation.MaxServiceTitleLength)
	if err != nil {
		return nil, err
	}
	location, err := validation.Text("адрес", in.Location, 0, validation.MaxLocationLength)
	if err != nil {
		return nil, err
	}

	amount := in.Amount
	if amount == 0 {
		amount = in.Service.Price
	}
	money, err := valueobject.NewMoney(amount, in.Currency)
	if err != nil {
		return nil, err
	}
	if !money.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма заказа должна быть положительной")
	}
	if in.PricingMode == "" {
		in.PricingMode = valueobject.PricingFixed
	}
	if !in.PricingMode.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный режим оплаты")
	}

	now := e.clock.Now()
	order := &models.Order{
		ID:           e.ids.NewUUID(),
		ClientID:     actor.UserID,
		ProviderID:   in.ProviderID,
		ServiceID:    in.Service.ServiceID,
		ServiceTitle: title,
		ServicePrice: in.Service.Price,
		Status:       valueobject.OrderStatusSent,
		ScheduledAt:  in.ScheduledAt,
		Location:     location,
		Amount:       money.Amount,
		Currency:     money.Currency,
		PricingMode:  in.PricingMode,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	entry := e.newEntry(order.ID, op, "", order.Status, actor, money.String(), now)
	event := e.newEvent(order, op, "", actor, now)

	err = e.store.WithinTx(ctx, func(ctx context.Context, tx domainrepo.Repositories) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		if err := tx.Audit().Append(ctx, entry); err != nil {
			return err
		}
		return e.enqueue(ctx, tx, event, now)
	})
	if err != nil {
		err = persistenceError(err)
		e.metrics.ObserveTransition(string(op), string(apperror.CodeOf(err)), time.Since(started))
		return nil, err
	}

	e.afterCommit(ctx, entry, event)
	e.metrics.ObserveTransition(string(op), "committed", time.Since(started))
	return order, nil
}

func (e *OrderEngine) AcceptOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.Order, error) {
	return e.apply(ctx, transition{op: valueobject.OpAcceptOrder, orderID: orderID, actor: actor})
}

func (e *OrderEngine) RejectOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	detail, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}
	return e.apply(ctx, transition{op: valueobject.OpRejectOrder, orderID: orderID, actor: actor, detail: detail})
}

// FundEscrow удерживает сумму заказа с разделением комиссии.
func (e *OrderEngine) FundEscrow(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.Order, error) {
	return e.apply(ctx, transition{op: valueobject.OpFundEscrow, orderID: orderID, actor: actor})
}

// BeginExecution — исполнитель сообщает, что приступил к работе.
func (e *OrderEngine) BeginExecution(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.Order, error) {
	return e.apply(ctx, transition{op: valueobject.OpBeginExecution, orderID: orderID, actor: actor})
}

func (e *OrderEngine) ConfirmStart(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.Order, error) {
	return e.apply(ctx, transition{op: valueobject.OpConfirmStart, orderID: orderID, actor: actor})
}

// RequestFinish — исполнитель отмечает работу выполненной, клиент подтверждает отдельно.
func (e *OrderEngine) RequestFinish(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.Order, error) {
	return e.apply(ctx, transition{op: valueobject.OpRequestFinish, orderID: orderID, actor: actor})
}

// ConfirmExecutionFinish завершает заказ и выплачивает исполнителю.
func (e *OrderEngine) ConfirmExecutionFinish(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.Order, error) {
	return e.apply(ctx, transition{op: valueobject.OpConfirmFinish, orderID: orderID, actor: actor})
}

// CancelOrder отменяет заказ. Если эскроу удержано, деньги возвращаются клиенту.
func (e *OrderEngine) CancelOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	detail, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}
	return e.apply(ctx, transition{op: valueobject.OpCancelOrder, orderID: orderID, actor: actor, detail: detail})
}

// GetOrder доступен участникам заказа и операторам.
func (e *OrderEngine) GetOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := e.loadOrder(ctx, e.store, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders: участник видит свои заказы, оператор — все.
func (e *OrderEngine) ListOrders(ctx context.Context, actor models.Actor, filter domainrepo.OrderFilter) ([]models.Order, error) {
	if actor.Role != valueobject.RoleOperator {
		uid := actor.UserID
		filter.ParticipantID = &uid
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	orders, err := e.store.Orders().List(ctx, filter)
	if err != nil {
		return nil, persistenceError(err)
	}
	return orders, nil
}

func (e *OrderEngine) GetPayment(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.Payment, error) {
	if _, err := e.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	p, err := e.store.Payments().GetByOrderID(ctx, orderID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, apperror.ErrPaymentNotFound
	}
	if err != nil {
		return nil, persistenceError(err)
	}
	return p, nil
}

// GetAuditTrail возвращает журнал заказа по возрастанию времени.
func (e *OrderEngine) GetAuditTrail(ctx context.Context, actor models.Actor, orderID uuid.UUID) ([]models.AuditLogEntry, error) {
	if _, err := e.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	entries, err := e.store.Audit().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, persistenceError(err)
	}
	return entries, nil
}

// AuditReplay — результат сверки журнала с текущим статусом заказа.
type AuditReplay struct {
	OrderID       uuid.UUID               `json:"order_id"`
	Entries       int                     `json:"entries"`
	ReplayedState valueobject.OrderStatus `json:"replayed_status"`
	CurrentState  valueobject.OrderStatus `json:"current_status"`
	Consistent    bool                    `json:"consistent"`
	// BrokenAt — номер первой записи, чей old_status не совпал с предыдущим new_status.
	BrokenAt *int `json:"broken_at,omitempty"`
}

// ReplayStatus восстанавливает статус заказа по журналу и сравнивает с сохранённым.
func (e *OrderEngine) ReplayStatus(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*AuditReplay, error) {
	order, err := e.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	entries, err := e.store.Audit().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, persistenceError(err)
	}

	res := &AuditReplay{OrderID: orderID, Entries: len(entries), CurrentState: order.Status}
	var state valueobject.OrderStatus
	for i, entry := range entries {
		if entry.OldStatus != state && res.BrokenAt == nil {
			idx := i
			res.BrokenAt = &idx
		}
		state = entry.NewStatus
	}
	res.ReplayedState = state
	res.Consistent = res.BrokenAt == nil && state == order.Status
	return res, nil
}

// transition описывает один вызов apply.
type transition struct {
	op      valueobject.Operation
	orderID uuid.UUID
	actor   models.Actor
	// target — итоговый статус для resolve_dispute.
	target valueobject.OrderStatus
	detail string
	// prepare выполняется под блокировкой заказа до обращения к шлюзу.
	prepare func(ctx context.Context, repos domainrepo.Repositories, order *models.Order) error
	// within выполняется в транзакции перехода после смены статуса.
	within func(ctx context.Context, tx domainrepo.Repositories, order *models.Order, at time.Time) error
}

// ledgerStep — движение денег, которое нужно зафиксировать в транзакции.
type ledgerStep struct {
	hold   *models.Payment
	settle valueobject.EscrowStatus
	detail string
}

// gatewayOp — операция шлюза, уже выполненная для этого шага.
func (s ledgerStep) gatewayOp() (gateway.Operation, bool) {
	switch {
	case s.hold != nil:
		return gateway.OpHold, true
	case s.settle == valueobject.EscrowReleased:
		return gateway.OpRelease, true
	case s.settle == valueobject.EscrowRefunded:
		return gateway.OpRefund, true
	}
	return "", false
}

const (
	// ledgerCommitAttempts — сколько раз записывается переход после того, как шлюз уже двинул деньги.
	ledgerCommitAttempts = 3
	ledgerRetryDelay     = 50 * time.Millisecond
)

// commitAfterGateway фиксирует переход, когда шлюз уже двинул деньги.
// Отмена запроса запись не прерывает, временные сбои хранилища повторяются под той же
// блокировкой заказа. Если запись так и не удалась, расхождение попадает в лог и метрику
// с ключом идемпотентности шлюза: повтор той же операции доводит журнал до шлюза без
// второго движения денег.
func (e *OrderEngine) commitAfterGateway(ctx context.Context, orderID uuid.UUID, op gateway.Operation, commit func(context.Context) error) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= ledgerCommitAttempts; attempt++ {
		if err = commit(ctx); err == nil || !retryableCommit(err) {
			return err
		}
		if attempt < ledgerCommitAttempts {
			time.Sleep(time.Duration(attempt) * ledgerRetryDelay)
		}
	}

	e.metrics.LedgerUnrecorded(string(op))
	logger.Log.WithFields(logrus.Fields{
		"order_id":        orderID,
		"gateway_op":      op,
		"idempotency_key": gateway.IdempotencyKey(orderID, op),
		"attempts":        ledgerCommitAttempts,
		"error":           err,
	}).Error("order engine: шлюз выполнил операцию, журнал не записан")
	return err
}

// retryableCommit отличает сбой хранилища от доменного отказа. Доменные отказы не повторяются.
func retryableCommit(err error) bool {
	var appErr *apperror.AppError
	return !errors.As(err, &appErr) &&
		!errors.Is(err, common.ErrVersionConflict) &&
		!errors.Is(err, common.ErrInvalidLedgerState) &&
		!errors.Is(err, common.ErrNotFound) &&
		!errors.Is(err, common.ErrAlreadyExists)
}

func (e *OrderEngine) apply(ctx context.Context, t transition) (order *models.Order, err error) {
	started := time.Now()
	outcome := "committed"
	ctx, span := telemetry.Tracer().Start(ctx, "order."+string(t.op))
	span.SetAttributes(
		attribute.String("order_id", t.orderID.String()),
		attribute.String("actor_role", string(t.actor.Role)),
	)
	defer func() {
		if err != nil {
			outcome = string(apperror.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		span.End()
		e.metrics.ObserveTransition(string(t.op), outcome, time.Since(started))
	}()

	rule, ok := valueobject.RuleFor(t.op)
	if !ok {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "неизвестная операция %q", t.op)
	}
	if !rule.Permits(t.actor.Role) {
		return nil, apperror.Newf(apperror.ErrCodeForbidden, "роль %s не может выполнить %s", t.actor.Role, t.op)
	}

	store, unlock, err := e.lock(ctx, t.orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := e.loadOrder(ctx, store, t.orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeParty(t.actor, current); err != nil {
		return nil, err
	}

	next, replay, err := valueobject.Resolve(t.op, current.Status, t.target)
	if err != nil {
		return nil, e.alreadyHeld(ctx, store, rule, current, err)
	}
	if replay {
		outcome = "replay"
		return current, nil
	}

	if t.prepare != nil {
		if err := t.prepare(ctx, store, current); err != nil {
			return nil, err
		}
	}

	now := e.clock.Now()
	step, err := e.moveMoney(ctx, store, rule.Effect, current, next, now)
	if err != nil {
		return nil, err
	}

	detail := joinDetail(t.detail, step.detail)
	entry := e.newEntry(current.ID, t.op, current.Status, next, t.actor, detail, now)
	updated := *current
	updated.Status = next
	updated.Version = current.Version + 1
	updated.UpdatedAt = now
	event := e.newEvent(&updated, t.op, current.Status, t.actor, now)

	commit := func(ctx context.Context) error {
		return store.WithinTx(ctx, func(ctx context.Context, tx domainrepo.Repositories) error {
			if err := tx.Orders().UpdateStatus(ctx, current.ID, current.Version, next, now); err != nil {
				return err
			}
			if step.hold != nil {
				if err := e.ledger.RecordHold(ctx, tx, step.hold); err != nil {
					return err
				}
			}
			if step.settle != "" {
				if err := e.ledger.RecordSettlement(ctx, tx, current.ID, step.settle, now); err != nil {
					return err
				}
			}
			if t.within != nil {
				if err := t.within(ctx, tx, &updated, now); err != nil {
					return err
				}
			}
			if err := tx.Audit().Append(ctx, entry); err != nil {
				return err
			}
			return e.enqueue(ctx, tx, event, now)
		})
	}

	if op, moved := step.gatewayOp(); moved {
		err = e.commitAfterGateway(ctx, current.ID, op, commit)
	} else {
		err = commit(ctx)
	}
	if err != nil {
		err = persistenceError(err)
		logger.Log.WithFields(logrus.Fields{
			"order_id":  current.ID,
			"operation": t.op,
			"status":    current.Status,
			"error":     err,
		}).Warn("order engine: переход не зафиксирован")
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"order_id":   current.ID,
		"operation":  t.op,
		"old_status": current.Status,
		"new_status": next,
		"actor_id":   t.actor.UserID,
		"actor_role": t.actor.Role,
	}).Info("order engine: переход выполнен")

	e.afterCommit(ctx, entry, event)
	return &updated, nil
}

// moveMoney вызывает шлюз до открытия транзакции. Ключ идемпотентности
// привязан к заказу и операции, поэтому повтор после сбоя записи не двигает деньги дважды.
func (e *OrderEngine) moveMoney(ctx context.Context, repos domainrepo.Repositories, effect valueobject.EscrowEffect, order *models.Order, next valueobject.OrderStatus, now time.Time) (ledgerStep, error) {
	switch effect {
	case valueobject.EffectHold:
		p, err := e.ledger.Hold(ctx, order.ID, order.Amount, order.Currency, now)
		if err != nil {
			return ledgerStep{}, err
		}
		return ledgerStep{hold: p, detail: fmt.Sprintf("hold %s, fee %s",
			valueobject.Money{Amount: p.AmountTotal, Currency: p.Currency},
			valueobject.Money{Amount: p.OperatorFee, Currency: p.Currency})}, nil

	case valueobject.EffectRelease:
		p, err := e.paymentFor(ctx, repos, order.ID)
		if err != nil {
			return ledgerStep{}, err
		}
		if p == nil {
			return ledgerStep{}, apperror.New(apperror.ErrCodeInvalidLedgerState, "по заказу нет удержанного платежа")
		}
		return e.release(ctx, p)

	case valueobject.EffectRefundIfHeld:
		p, err := e.paymentFor(ctx, repos, order.ID)
		if err != nil || p == nil {
			return ledgerStep{}, err
		}
		return e.refund(ctx, p)

	case valueobject.EffectSettle:
		p, err := e.paymentFor(ctx, repos, order.ID)
		if err != nil {
			return ledgerStep{}, err
		}
		// Без эскроу исполнителю нечего выплачивать: спор закрывается только отменой.
		if p == nil && next == valueobject.OrderStatusCompleted {
			return ledgerStep{}, apperror.New(apperror.ErrCodeInvalidLedgerState,
				"эскроу не внесён, спор можно закрыть только отменой заказа")
		}
		if p == nil {
			return ledgerStep{}, nil
		}
		if next == valueobject.OrderStatusCompleted {
			return e.release(ctx, p)
		}
		return e.refund(ctx, p)
	}
	return ledgerStep{}, nil
}

func (e *OrderEngine) release(ctx context.Context, p *models.Payment) (ledgerStep, error) {
	if err := e.ledger.Release(ctx, p); err != nil {
		return ledgerStep{}, err
	}
	return ledgerStep{settle: valueobject.EscrowReleased, detail: fmt.Sprintf("release %s",
		valueobject.Money{Amount: p.ProviderAmount, Currency: p.Currency})}, nil
}

func (e *OrderEngine) refund(ctx context.Context, p *models.Payment) (ledgerStep, error) {
	if err := e.ledger.Refund(ctx, p); err != nil {
		return ledgerStep{}, err
	}
	return ledgerStep{settle: valueobject.EscrowRefunded, detail: fmt.Sprintf("refund %s",
		valueobject.Money{Amount: p.AmountTotal, Currency: p.Currency})}, nil
}

// paymentFor возвращает nil без ошибки, если платежа нет.
func (e *OrderEngine) paymentFor(ctx context.Context, repos domainrepo.Repositories, orderID uuid.UUID) (*models.Payment, error) {
	p, err := repos.Payments().GetByOrderID(ctx, orderID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError(err)
	}
	return p, nil
}

// lock — блокировка процесса, затем, если хранилище умеет, межпроцессная.
// Пока блокировка держится, к хранилищу обращаются только через возвращённый Store.
func (e *OrderEngine) lock(ctx context.Context, orderID uuid.UUID) (domainrepo.Store, func(), error) {
	unlock, err := e.locks.Lock(ctx, orderID)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeConflict, "заказ занят другой операцией")
	}
	locker, ok := e.store.(domainrepo.Locker)
	if !ok {
		return e.store, unlock, nil
	}
	locked, release, err := locker.LockOrder(ctx, orderID)
	if err != nil {
		unlock()
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeConflict, "заказ занят другой операцией")
	}
	return locked, func() {
		release()
		unlock()
	}, nil
}

// alreadyHeld превращает отказ повторного внесения эскроу в ALREADY_APPLIED,
// если заказ ушёл дальше paid_escrow_held, а платёж уже существует.
func (e *OrderEngine) alreadyHeld(ctx context.Context, repos domainrepo.Repositories, rule valueobject.Rule, order *models.Order, err error) error {
	if rule.Effect != valueobject.EffectHold || !apperror.Is(err, apperror.ErrCodeInvalidTransition) {
		return err
	}
	p, perr := e.paymentFor(ctx, repos, order.ID)
	if perr != nil || p == nil {
		return err
	}
	return apperror.Newf(apperror.ErrCodeAlreadyApplied, "эскроу по заказу уже внесён (%s)", p.EscrowStatus)
}

func (e *OrderEngine) loadOrder(ctx context.Context, repos domainrepo.Repositories, id uuid.UUID) (*models.Order, error) {
	order, err := repos.Orders().GetByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, apperror.ErrOrderNotFound
	}
	if err != nil {
		return nil, persistenceError(err)
	}
	return order, nil
}

func (e *OrderEngine) newEntry(orderID uuid.UUID, op valueobject.Operation, from, to valueobject.OrderStatus, actor models.Actor, detail string, at time.Time) *models.AuditLogEntry {
	return &models.AuditLogEntry{
		ID:        e.ids.NewSortable(),
		OrderID:   orderID,
		Action:    op,
		OldStatus: from,
		NewStatus: to,
		Detail:    detail,
		ActorID:   actor.UserID,
		ActorRole: actor.Role,
		CreatedAt: at,
	}
}

func (e *OrderEngine) newEvent(order *models.Order, op valueobject.Operation, from valueobject.OrderStatus, actor models.Actor, at time.Time) models.TransitionEvent {
	return models.TransitionEvent{
		OrderID:    order.ID,
		Operation:  op,
		OldStatus:  from,
		NewStatus:  order.Status,
		ActorID:    actor.UserID,
		ClientID:   order.ClientID,
		ProviderID: order.ProviderID,
		OccurredAt: at,
	}
}

func (e *OrderEngine) enqueue(ctx context.Context, tx domainrepo.Repositories, ev models.TransitionEvent, now time.Time) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal transition event: %w", err)
	}
	return tx.Outbox().Enqueue(ctx, &models.OutboxEvent{
		ID:            e.ids.NewSortable(),
		OrderID:       ev.OrderID,
		EventType:     models.EventTypeOrderTransition,
		Payload:       payload,
		Status:        models.OutboxStatusPending,
		CreatedAt:     now,
		NextAttemptAt: now,
	})
}

// afterCommit раздаёт запись журнала и уведомляет участников. Ошибки здесь не влияют на переход.
func (e *OrderEngine) afterCommit(ctx context.Context, entry *models.AuditLogEntry, ev models.TransitionEvent) {
	e.audit.Publish(*entry)
	notifyCtx := context.WithoutCancel(ctx)
	e.async.SafeGo(func() {
		e.notifier.NotifyTransition(notifyCtx, ev)
	})
}

// authorizeParty: клиент и исполнитель действуют только в своих заказах, оператор — в любых.
func authorizeParty(actor models.Actor, order *models.Order) error {
	switch actor.Role {
	case valueobject.RoleClient:
		if order.ClientID == actor.UserID {
			return nil
		}
	case valueobject.RoleProvider:
		if order.ProviderID == actor.UserID {
			return nil
		}
	case valueobject.RoleOperator:
		return nil
	}
	return apperror.ErrForbidden
}

func authorizeRead(actor models.Actor, order *models.Order) error {
	if actor.Role == valueobject.RoleOperator || order.IsParty(actor.UserID) {
		return nil
	}
	return apperror.ErrForbidden
}

func normalizeReason(reason string) (string, error) {
	return validation.Text("причина", reason, 0, validation.MaxReasonLength)
}

func joinDetail(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "; ")
}

// persistenceError переводит ошибки хранилища в коды. AppError пропускается как есть.
func persistenceError(err error) error {
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, common.ErrVersionConflict):
		return apperror.Wrap(err, apperror.ErrCodeConflict, "заказ изменён параллельной операцией, повторите запрос")
	case errors.Is(err, common.ErrInvalidLedgerState):
		return apperror.Wrap(err, apperror.ErrCodeInvalidLedgerState, "эскроу в неожиданном состоянии")
	case errors.Is(err, common.ErrNotFound):
		return apperror.Wrap(err, apperror.ErrCodeNotFound, "запись не найдена")
	default:
		return apperror.Wrap(err, apperror.ErrCodePersistence, "не удалось сохранить изменения")
	}
}
