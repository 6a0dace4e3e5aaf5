package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// OrderLocks — взаимное исключение по заказу внутри процесса. Операции над разными
// заказами не блокируют друг друга. Записи удаляются, когда их никто не держит.
type OrderLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func NewOrderLocks() *OrderLocks {
	return &OrderLocks{entries: make(map[uuid.UUID]*lockEntry)}
}

// Lock ждёт блокировку заказа или отмены ctx. Возвращённую функцию нужно вызвать ровно один раз.
func (l *OrderLocks) Lock(ctx context.Context, orderID uuid.UUID) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[orderID]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.entries[orderID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			l.release(orderID, e)
		}, nil
	case <-ctx.Done():
		l.release(orderID, e)
		return nil, ctx.Err()
	}
}

func (l *OrderLocks) release(orderID uuid.UUID, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, orderID)
	}
}

// Len возвращает число заказов, по которым есть держатели или ожидающие.
func (l *OrderLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
