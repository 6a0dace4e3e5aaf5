package gateway

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Sandbox — шлюз внутри процесса. Запоминает ответы по ключу идемпотентности
// и умеет имитировать сбои.
type Sandbox struct {
	mu      sync.Mutex
	results map[string]Result
	calls   map[Operation]int
	failOn  map[Operation]error
	// Delay имитирует сетевую задержку, учитывая отмену контекста.
	Delay time.Duration
}

func NewSandbox() *Sandbox {
	return &Sandbox{
		results: map[string]Result{},
		calls:   map[Operation]int{},
		failOn:  map[Operation]error{},
	}
}

// FailNext заставляет следующий вызов op вернуть err.
func (s *Sandbox) FailNext(op Operation, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[op] = err
}

// Calls возвращает число вызовов op, включая повторы.
func (s *Sandbox) Calls(op Operation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Effects возвращает число уникальных движений денег по op.
func (s *Sandbox) Effects(op Operation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.results {
		if strings.HasSuffix(key, ":"+string(op)) {
			n++
		}
	}
	return n
}

func (s *Sandbox) Hold(ctx context.Context, req Request) (Result, error) {
	return s.apply(ctx, OpHold, req)
}

func (s *Sandbox) Release(ctx context.Context, req Request) (Result, error) {
	return s.apply(ctx, OpRelease, req)
}

func (s *Sandbox) Refund(ctx context.Context, req Request) (Result, error) {
	return s.apply(ctx, OpRefund, req)
}

func (s *Sandbox) apply(ctx context.Context, op Operation, req Request) (Result, error) {
	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(s.Delay):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[op]++
	if err, ok := s.failOn[op]; ok {
		delete(s.failOn, op)
		return Result{}, err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = IdempotencyKey(req.OrderID, op)
	}
	if res, ok := s.results[key]; ok {
		return res, nil
	}
	res := Result{Reference: "sbx_" + string(op) + "_" + req.OrderID.String()[:8]}
	s.results[key] = res
	return res, nil
}

var _ Gateway = (*Sandbox)(nil)
