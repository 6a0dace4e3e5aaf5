package repository

import (
	"context"

	"github.com/google/uuid"
)

// Repositories — набор репозиториев в рамках одной транзакции или вне её.
type Repositories interface {
	Orders() OrderRepository
	Payments() PaymentRepository
	Disputes() DisputeRepository
	Audit() AuditRepository
	Outbox() OutboxRepository
}

// Store выдаёт репозитории для чтения и выполняет fn атомарно.
// Если fn вернула ошибку, ни одна запись из fn не видна снаружи.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
	Ping(ctx context.Context) error
}

// Locker — блокировка заказа, общая для всех инстансов сервиса.
// Возвращённый Store привязан к блокировке: все чтения и транзакция перехода
// до вызова unlock идут через него. Хранилище в памяти Locker не реализует.
type Locker interface {
	LockOrder(ctx context.Context, orderID uuid.UUID) (locked Store, unlock func(), err error)
}
