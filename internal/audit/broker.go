// Package audit раздаёт закоммиченные записи журнала подписчикам (SSE, операторские инструменты).
// Полная история читается из хранилища, брокер отдаёт только живой хвост.
package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
)

const subscriberBuffer = 32

type subscriber struct {
	ch      chan models.AuditLogEntry
	orderID uuid.UUID
	all     bool
}

// Broker — fan-out записей журнала.
type Broker struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	dropped func()
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]subscriber)}
}

// OnDrop задаёт счётчик потерянных записей для медленных подписчиков.
func (b *Broker) OnDrop(fn func()) {
	b.mu.Lock()
	b.dropped = fn
	b.mu.Unlock()
}

// Subscribe подписывает на записи одного заказа. uuid.Nil — на все заказы.
// Канал закрывается, когда завершается ctx.
func (b *Broker) Subscribe(ctx context.Context, orderID uuid.UUID) <-chan models.AuditLogEntry {
	ch := make(chan models.AuditLogEntry, subscriberBuffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = subscriber{ch: ch, orderID: orderID, all: orderID == uuid.Nil}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish не блокирует: медленный подписчик теряет запись.
func (b *Broker) Publish(entry models.AuditLogEntry) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.all && sub.orderID != entry.OrderID {
			continue
		}
		select {
		case sub.ch <- entry:
		default:
			if b.dropped != nil {
				b.dropped()
			}
		}
	}
}

// Subscribers возвращает число активных подписок.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
