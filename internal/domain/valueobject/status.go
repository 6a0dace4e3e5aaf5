package valueobject

import "github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"

type OrderStatus string

const (
	OrderStatusSent                       OrderStatus = "sent"
	OrderStatusAccepted                   OrderStatus = "accepted"
	OrderStatusRejected                   OrderStatus = "rejected"
	OrderStatusPaidEscrowHeld             OrderStatus = "paid_escrow_held"
	OrderStatusAwaitingStartConfirmation  OrderStatus = "awaiting_start_confirmation"
	OrderStatusInExecution                OrderStatus = "in_execution"
	OrderStatusAwaitingFinishConfirmation OrderStatus = "awaiting_finish_confirmation"
	OrderStatusCompleted                  OrderStatus = "completed"
	OrderStatusCancelled                  OrderStatus = "cancelled"
	OrderStatusDisputed                   OrderStatus = "disputed"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusSent, OrderStatusAccepted, OrderStatusRejected, OrderStatusPaidEscrowHeld,
		OrderStatusAwaitingStartConfirmation, OrderStatusInExecution, OrderStatusAwaitingFinishConfirmation,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusDisputed:
		return true
	}
	return false
}

// IsTerminal — из терминального статуса переходов нет. disputed терминальным не является.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusRejected, OrderStatusCancelled, OrderStatusCompleted:
		return true
	}
	return false
}

// IsDisputable сообщает, можно ли открыть спор по заказу в этом статусе.
func (s OrderStatus) IsDisputable() bool {
	return transitionTable[OpOpenDispute].allows(s)
}

func NewOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}

// Operation — намерение участника, меняющее статус заказа.
type Operation string

const (
	OpCreateOrder    Operation = "create_order"
	OpAcceptOrder    Operation = "accept_order"
	OpRejectOrder    Operation = "reject_order"
	OpFundEscrow     Operation = "fund_escrow"
	OpBeginExecution Operation = "begin_execution"
	OpConfirmStart   Operation = "confirm_start"
	OpRequestFinish  Operation = "request_finish"
	OpConfirmFinish  Operation = "confirm_execution_finish"
	OpCancelOrder    Operation = "cancel_order"
	OpOpenDispute    Operation = "open_dispute"
	OpResolveDispute Operation = "resolve_dispute"
)

// EscrowEffect — что операция делает с эскроу.
type EscrowEffect int

const (
	EffectNone EscrowEffect = iota
	EffectHold
	EffectRelease
	// EffectRefundIfHeld — возврат, если платёж уже внесён.
	EffectRefundIfHeld
	// EffectSettle — release или refund в зависимости от итогового статуса.
	EffectSettle
)

// Rule — строка таблицы переходов.
type Rule struct {
	Sources     []OrderStatus
	Destination OrderStatus
	Effect      EscrowEffect
	// Monetary: повтор операции отклоняется ALREADY_APPLIED, а не возвращает текущее состояние.
	Monetary bool
	// Replayable: повтор уже применённого перехода возвращает текущий заказ без изменений.
	Replayable bool
	Roles      []Role
}

func (r Rule) allows(s OrderStatus) bool {
	for _, src := range r.Sources {
		if src == s {
			return true
		}
	}
	return false
}

// Permits проверяет роль участника. Принадлежность к заказу проверяет движок.
func (r Rule) Permits(role Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

var transitionTable = map[Operation]Rule{
	OpAcceptOrder: {
		Sources:     []OrderStatus{OrderStatusSent},
		Destination: OrderStatusAccepted,
		Replayable:  true,
		Roles:       []Role{RoleProvider},
	},
	OpRejectOrder: {
		Sources:     []OrderStatus{OrderStatusSent},
		Destination: OrderStatusRejected,
		Replayable:  true,
		Roles:       []Role{RoleProvider},
	},
	OpFundEscrow: {
		Sources:     []OrderStatus{OrderStatusAccepted},
		Destination: OrderStatusPaidEscrowHeld,
		Effect:      EffectHold,
		Monetary:    true,
		Roles:       []Role{RoleClient},
	},
	OpBeginExecution: {
		Sources:     []OrderStatus{OrderStatusPaidEscrowHeld},
		Destination: OrderStatusAwaitingStartConfirmation,
		Replayable:  true,
		Roles:       []Role{RoleProvider},
	},
	OpConfirmStart: {
		Sources:     []OrderStatus{OrderStatusPaidEscrowHeld, OrderStatusAwaitingStartConfirmation},
		Destination: OrderStatusInExecution,
		Replayable:  true,
		Roles:       []Role{RoleClient},
	},
	OpRequestFinish: {
		Sources:     []OrderStatus{OrderStatusInExecution},
		Destination: OrderStatusAwaitingFinishConfirmation,
		Replayable:  true,
		Roles:       []Role{RoleProvider},
	},
	OpConfirmFinish: {
		Sources:     []OrderStatus{OrderStatusInExecution, OrderStatusAwaitingFinishConfirmation},
		Destination: OrderStatusCompleted,
		Effect:      EffectRelease,
		Replayable:  true,
		Roles:       []Role{RoleClient},
	},
	OpCancelOrder: {
		Sources:     []OrderStatus{OrderStatusAccepted, OrderStatusPaidEscrowHeld, OrderStatusAwaitingStartConfirmation},
		Destination: OrderStatusCancelled,
		Effect:      EffectRefundIfHeld,
		Replayable:  true,
		Roles:       []Role{RoleClient, RoleProvider},
	},
	OpOpenDispute: {
		Sources: []OrderStatus{
			OrderStatusAccepted, OrderStatusPaidEscrowHeld, OrderStatusAwaitingStartConfirmation,
			OrderStatusInExecution, OrderStatusAwaitingFinishConfirmation,
		},
		Destination: OrderStatusDisputed,
		Roles:       []Role{RoleClient, RoleProvider},
	},
	OpResolveDispute: {
		Sources:  []OrderStatus{OrderStatusDisputed},
		Effect:   EffectSettle,
		Monetary: true,
		Roles:    []Role{RoleOperator},
	},
}

// RuleFor возвращает строку таблицы для операции.
func RuleFor(op Operation) (Rule, bool) {
	r, ok := transitionTable[op]
	return r, ok
}

// Resolve — единственная точка проверки допустимости перехода.
// target учитывается только для resolve_dispute (completed или cancelled).
// replay=true означает, что переход уже применён и заказ нужно вернуть без изменений.
func Resolve(op Operation, current, target OrderStatus) (next OrderStatus, replay bool, err error) {
	rule, ok := transitionTable[op]
	if !ok {
		return "", false, apperror.Newf(apperror.ErrCodeValidation, "неизвестная операция %q", op)
	}

	dest := rule.Destination
	if op == OpResolveDispute {
		if target != OrderStatusCompleted && target != OrderStatusCancelled {
			return "", false, apperror.New(apperror.ErrCodeValidation, "итоговый статус спора должен быть completed или cancelled")
		}
		dest = target
	}

	if rule.allows(current) {
		return dest, false, nil
	}

	if current == dest && dest != "" {
		switch {
		case rule.Replayable:
			return current, true, nil
		case rule.Monetary:
			return "", false, apperror.Newf(apperror.ErrCodeAlreadyApplied, "операция %s уже применена", op)
		case op == OpOpenDispute:
			return "", false, apperror.New(apperror.ErrCodeDisputeAlreadyOpen, "по заказу уже открыт спор")
		}
	}

	return "", false, apperror.Newf(apperror.ErrCodeInvalidTransition,
		"операция %s недопустима в статусе %s", op, current)
}

// CanTransitionTo сохраняет старый контракт: есть ли операция, ведущая из s в newStatus.
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	for op, rule := range transitionTable {
		if !rule.allows(s) {
			continue
		}
		if rule.Destination == newStatus {
			return true
		}
		if op == OpResolveDispute && (newStatus == OrderStatusCompleted || newStatus == OrderStatusCancelled) {
			return true
		}
	}
	return false
}

type PricingMode string

const (
	PricingFixed  PricingMode = "fixed"
	PricingHourly PricingMode = "hourly"
)

func (m PricingMode) IsValid() bool {
	return m == PricingFixed || m == PricingHourly
}
