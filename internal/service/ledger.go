package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	domainrepo "github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/gateway"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/ids"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/logger"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/metrics"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/repository/common"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/telemetry"
)

// Ledger ведёт эскроу: удержание с разделением комиссии, выплату и возврат.
// Деньги двигает шлюз, ledger только фиксирует итоговое состояние платежа.
// Ledger не меняет статус заказа: его вызывает OrderEngine внутри перехода.
type Ledger struct {
	gw       gateway.Gateway
	feeRate  valueobject.FeeRate
	currency string
	timeout  time.Duration
	ids      ids.Generator
	metrics  *metrics.Metrics
}

type LedgerConfig struct {
	FeeRate  valueobject.FeeRate
	Currency string
	// GatewayTimeout ограничивает каждый вызов шлюза.
	GatewayTimeout time.Duration
}

func NewLedger(gw gateway.Gateway, cfg LedgerConfig, gen ids.Generator, m *metrics.Metrics) *Ledger {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "RUB"
	}
	return &Ledger{
		gw:       gw,
		feeRate:  cfg.FeeRate,
		currency: cfg.Currency,
		timeout:  cfg.GatewayTimeout,
		ids:      gen,
		metrics:  m,
	}
}

// Hold считает комиссию, удерживает валовую сумму через шлюз и возвращает платёж в состоянии held.
// Платёж ещё не сохранён: это делает RecordHold в транзакции перехода.
func (l *Ledger) Hold(ctx context.Context, orderID uuid.UUID, gross int64, currency string, at time.Time) (*models.Payment, error) {
	fee, net, err := valueobject.SplitFee(gross, l.feeRate)
	if err != nil {
		return nil, err
	}
	if currency == "" {
		currency = l.currency
	}

	res, err := l.call(ctx, gateway.OpHold, gateway.Request{
		OrderID:        orderID,
		Amount:         gross,
		Fee:            fee,
		Currency:       currency,
		IdempotencyKey: gateway.IdempotencyKey(orderID, gateway.OpHold),
	})
	if err != nil {
		return nil, err
	}

	return &models.Payment{
		ID:             l.ids.NewUUID(),
		OrderID:        orderID,
		AmountTotal:    gross,
		OperatorFee:    fee,
		ProviderAmount: net,
		FeeRateBps:     int64(l.feeRate),
		Currency:       currency,
		EscrowStatus:   valueobject.EscrowHeld,
		GatewayRef:     res.Reference,
		CreatedAt:      at,
	}, nil
}

// Release выплачивает исполнителю net. Платёж должен быть в состоянии held.
func (l *Ledger) Release(ctx context.Context, p *models.Payment) error {
	if err := requireHeld(p); err != nil {
		return err
	}
	_, err := l.call(ctx, gateway.OpRelease, gateway.Request{
		OrderID:        p.OrderID,
		Amount:         p.ProviderAmount,
		Fee:            p.OperatorFee,
		Currency:       p.Currency,
		IdempotencyKey: gateway.IdempotencyKey(p.OrderID, gateway.OpRelease),
	})
	return err
}

// Refund возвращает клиенту валовую сумму. Платёж должен быть в состоянии held.
func (l *Ledger) Refund(ctx context.Context, p *models.Payment) error {
	if err := requireHeld(p); err != nil {
		return err
	}
	_, err := l.call(ctx, gateway.OpRefund, gateway.Request{
		OrderID:        p.OrderID,
		Amount:         p.AmountTotal,
		Currency:       p.Currency,
		IdempotencyKey: gateway.IdempotencyKey(p.OrderID, gateway.OpRefund),
	})
	return err
}

// RecordHold сохраняет удержание в транзакции перехода.
func (l *Ledger) RecordHold(ctx context.Context, tx domainrepo.Repositories, p *models.Payment) error {
	if !p.Reconciles() {
		return apperror.New(apperror.ErrCodeInvalidLedgerState, "комиссия и выплата не сходятся с суммой платежа")
	}
	if err := tx.Payments().Create(ctx, p); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return apperror.New(apperror.ErrCodeAlreadyApplied, "эскроу по заказу уже внесено")
		}
		return err
	}
	return nil
}

// RecordSettlement переводит held в released или refunded в транзакции перехода.
func (l *Ledger) RecordSettlement(ctx context.Context, tx domainrepo.Repositories, orderID uuid.UUID, to valueobject.EscrowStatus, at time.Time) error {
	err := tx.Payments().UpdateEscrowStatus(ctx, orderID, valueobject.EscrowHeld, to, at)
	if errors.Is(err, common.ErrInvalidLedgerState) {
		return apperror.Wrap(err, apperror.ErrCodeInvalidLedgerState, "эскроу уже закрыто")
	}
	return err
}

func requireHeld(p *models.Payment) error {
	if p == nil {
		return apperror.New(apperror.ErrCodeInvalidLedgerState, "по заказу нет платежа")
	}
	if p.EscrowStatus != valueobject.EscrowHeld {
		return apperror.Newf(apperror.ErrCodeInvalidLedgerState, "эскроу в состоянии %s, ожидалось held", p.EscrowStatus)
	}
	return nil
}

func (l *Ledger) call(ctx context.Context, op gateway.Operation, req gateway.Request) (gateway.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ctx, span := telemetry.Tracer().Start(ctx, "gateway."+string(op))
	defer span.End()
	span.SetAttributes(
		attribute.String("order_id", req.OrderID.String()),
		attribute.Int64("amount", req.Amount),
	)

	var (
		res gateway.Result
		err error
	)
	switch op {
	case gateway.OpHold:
		res, err = l.gw.Hold(ctx, req)
	case gateway.OpRelease:
		res, err = l.gw.Release(ctx, req)
	case gateway.OpRefund:
		res, err = l.gw.Refund(ctx, req)
	}

	if err == nil {
		l.metrics.ObserveGateway(string(op), "ok")
		return res, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Log.WithFields(logrus.Fields{
		"order_id":  req.OrderID,
		"operation": op,
		"error":     err,
	}).Error("ledger: вызов платёжного шлюза не удался")

	if gateway.IsTimeout(err) {
		l.metrics.ObserveGateway(string(op), "timeout")
		return gateway.Result{}, apperror.Wrap(err, apperror.ErrCodeGatewayTimeout, "платёжный шлюз не ответил вовремя, повторите операцию")
	}
	l.metrics.ObserveGateway(string(op), "error")
	return gateway.Result{}, apperror.Wrap(err, apperror.ErrCodeGateway, "платёжный шлюз отклонил операцию")
}
