// Package memory — транзакционное хранилище в памяти для локального запуска и тестов.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	domainrepo "github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
)

type state struct {
	orders      map[uuid.UUID]models.Order
	payments    map[uuid.UUID]models.Payment
	disputes    map[uuid.UUID]models.Dispute
	messages    map[uuid.UUID][]models.DisputeMessage
	resolutions map[uuid.UUID]models.DisputeResolution
	audit       map[uuid.UUID][]models.AuditLogEntry
	outbox      []models.OutboxEvent
}

func newState() *state {
	return &state{
		orders:      map[uuid.UUID]models.Order{},
		payments:    map[uuid.UUID]models.Payment{},
		disputes:    map[uuid.UUID]models.Dispute{},
		messages:    map[uuid.UUID][]models.DisputeMessage{},
		resolutions: map[uuid.UUID]models.DisputeResolution{},
		audit:       map[uuid.UUID][]models.AuditLogEntry{},
	}
}

func (s *state) clone() *state {
	c := &state{
		orders:      maps.Clone(s.orders),
		payments:    maps.Clone(s.payments),
		disputes:    maps.Clone(s.disputes),
		resolutions: maps.Clone(s.resolutions),
		messages:    make(map[uuid.UUID][]models.DisputeMessage, len(s.messages)),
		audit:       make(map[uuid.UUID][]models.AuditLogEntry, len(s.audit)),
		outbox:      slices.Clone(s.outbox),
	}
	for k, v := range s.messages {
		c.messages[k] = slices.Clone(v)
	}
	for k, v := range s.audit {
		c.audit[k] = slices.Clone(v)
	}
	return c
}

// Store хранит всё состояние под одним мьютексом. WithinTx работает на копии
// и подменяет состояние только при успешном завершении fn.
type Store struct {
	mu     sync.RWMutex
	state  *state
	faults map[string]fault
}

type fault struct {
	err  error
	left int
}

func NewStore() *Store {
	return &Store{state: newState(), faults: map[string]fault{}}
}

// FailNext заставляет следующую операцию op вернуть err. Используется в тестах.
// Имена операций: "orders.update_status", "payments.create", "payments.update_escrow",
// "disputes.create", "disputes.mark_resolved", "audit.append", "outbox.enqueue".
func (s *Store) FailNext(op string, err error) {
	s.FailTimes(op, err, 1)
}

// FailTimes заставляет n следующих вызовов op вернуть err.
func (s *Store) FailTimes(op string, err error, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = fault{err: err, left: n}
}

// fault вызывается под s.mu.
func (s *Store) fault(op string) error {
	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	f.left--
	if f.left <= 0 {
		delete(s.faults, op)
	} else {
		s.faults[op] = f
	}
	return f.err
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domainrepo.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := s.state.clone()
	if err := fn(ctx, &repos{s: s, tx: staged}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Orders() domainrepo.OrderRepository     { return &orderRepo{base{s: s}} }
func (s *Store) Payments() domainrepo.PaymentRepository { return &paymentRepo{base{s: s}} }
func (s *Store) Disputes() domainrepo.DisputeRepository { return &disputeRepo{base{s: s}} }
func (s *Store) Audit() domainrepo.AuditRepository      { return &auditRepo{base{s: s}} }
func (s *Store) Outbox() domainrepo.OutboxRepository    { return &outboxRepo{base{s: s}} }

type repos struct {
	s  *Store
	tx *state
}

func (r *repos) Orders() domainrepo.OrderRepository     { return &orderRepo{base{s: r.s, tx: r.tx}} }
func (r *repos) Payments() domainrepo.PaymentRepository { return &paymentRepo{base{s: r.s, tx: r.tx}} }
func (r *repos) Disputes() domainrepo.DisputeRepository { return &disputeRepo{base{s: r.s, tx: r.tx}} }
func (r *repos) Audit() domainrepo.AuditRepository      { return &auditRepo{base{s: r.s, tx: r.tx}} }
func (r *repos) Outbox() domainrepo.OutboxRepository    { return &outboxRepo{base{s: r.s, tx: r.tx}} }

// base выбирает состояние: внутри транзакции блокировка уже взята WithinTx.
type base struct {
	s  *Store
	tx *state
}

func (b base) read(fn func(st *state) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	return fn(b.s.state)
}

func (b base) write(op string, fn func(st *state) error) error {
	if b.tx != nil {
		if err := b.s.fault(op); err != nil {
			return err
		}
		return fn(b.tx)
	}
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if err := b.s.fault(op); err != nil {
		return err
	}
	return fn(b.s.state)
}

var _ domainrepo.Store = (*Store)(nil)
