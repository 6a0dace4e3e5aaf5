package goroutine

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/logger"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	logger Logger
	wg     sync.WaitGroup
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	rh.wg.Add(1)
	go func() {
		defer rh.wg.Done()
		defer rh.recover()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	rh.wg.Add(1)
	go func() {
		defer rh.wg.Done()
		defer rh.recover()
		fn(ctx)
	}()
}

// Wait дожидается всех запущенных горутин. Используется при остановке сервера.
func (rh *RecoveryHandler) Wait() {
	rh.wg.Wait()
}

func (rh *RecoveryHandler) recover() {
	if r := recover(); r != nil {
		rh.logger.Errorf("Panic in goroutine: %v\nStack trace:\n%s", r, debug.Stack())
	}
}

// DefaultRecoveryHandler пишет паники в общий логгер процесса.
var DefaultRecoveryHandler = NewRecoveryHandler(logger.Adapter{})

// SafeGo - упрощенная функция для запуска безопасной горутины
func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

// SafeGoWithContext - упрощенная функция для запуска безопасной горутины с контекстом
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, fn)
}
