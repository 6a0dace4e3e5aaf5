// Package gateway — граница с платёжным провайдером. Каждый запрос идемпотентен
// по ключу "<order_id>:<операция>", повтор возвращает тот же результат.
package gateway

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

type Operation string

const (
	OpHold    Operation = "hold"
	OpRelease Operation = "release"
	OpRefund  Operation = "refund"
)

var (
	ErrTimeout  = errors.New("gateway: timeout")
	ErrDeclined = errors.New("gateway: declined")
)

type Request struct {
	OrderID        uuid.UUID `json:"order_id"`
	Amount         int64     `json:"amount"`
	Fee            int64     `json:"fee"`
	Currency       string    `json:"currency"`
	IdempotencyKey string    `json:"-"`
}

type Result struct {
	Reference string `json:"reference"`
}

type Gateway interface {
	Hold(ctx context.Context, req Request) (Result, error)
	Release(ctx context.Context, req Request) (Result, error)
	Refund(ctx context.Context, req Request) (Result, error)
}

// IdempotencyKey строит ключ повтора для операции по заказу.
func IdempotencyKey(orderID uuid.UUID, op Operation) string {
	return orderID.String() + ":" + string(op)
}

// IsTimeout объединяет собственный таймаут шлюза и истёкший контекст.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
