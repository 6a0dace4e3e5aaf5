// Package outbox доставляет события переходов из таблицы outbox во внешний брокер.
package outbox

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	domainrepo "github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/logger"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/metrics"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/platform/clock"
)

// Publisher — получатель событий (Kafka).
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	// RetryDelay удваивается с каждой неудачной попыткой.
	RetryDelay time.Duration
}

// Relay опрашивает outbox и публикует события. Ошибка доставки не трогает сам переход:
// событие остаётся pending до следующей попытки или уходит в failed после MaxAttempts.
type Relay struct {
	repo    domainrepo.OutboxRepository
	pub     Publisher
	cfg     Config
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewRelay(repo domainrepo.OutboxRepository, pub Publisher, cfg Config, clk clock.Clock, m *metrics.Metrics) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Relay{repo: repo, pub: pub, cfg: cfg, clock: clk, metrics: m}
}

// Start блокируется до отмены ctx.
func (r *Relay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	logger.Log.WithField("interval", r.cfg.PollInterval).Info("outbox relay: запущен")
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("outbox relay: остановлен")
			return
		case <-ticker.C:
			if _, err := r.ProcessOnce(ctx); err != nil {
				logger.Log.WithError(err).Error("outbox relay: не удалось прочитать очередь")
			}
		}
	}
}

// ProcessOnce публикует одну пачку и возвращает число опубликованных событий.
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	events, err := r.repo.FetchPending(ctx, r.clock.Now(), r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	published := 0
	for i := range events {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		if r.deliver(ctx, &events[i]) {
			published++
		}
	}
	return published, nil
}

func (r *Relay) deliver(ctx context.Context, ev *models.OutboxEvent) bool {
	fields := logrus.Fields{"event_id": ev.ID, "order_id": ev.OrderID, "attempt": ev.Attempts + 1}

	if err := r.pub.Publish(ctx, ev.OrderID.String(), ev.Payload); err != nil {
		attempt := ev.Attempts + 1
		final := attempt >= r.cfg.MaxAttempts
		next := r.clock.Now().Add(r.backoff(attempt))
		if markErr := r.repo.MarkFailed(ctx, ev.ID, err.Error(), next, final); markErr != nil {
			logger.Log.WithFields(fields).WithError(markErr).Error("outbox relay: не удалось отметить неудачу")
		}
		if final {
			r.metrics.OutboxResult("dead")
			logger.Log.WithFields(fields).WithError(err).Error("outbox relay: попытки исчерпаны, событие отложено в failed")
		} else {
			r.metrics.OutboxResult("retry")
			logger.Log.WithFields(fields).WithError(err).Warn("outbox relay: публикация не удалась")
		}
		return false
	}

	if err := r.repo.MarkPublished(ctx, ev.ID, r.clock.Now()); err != nil {
		// Событие останется pending и будет опубликовано повторно.
		logger.Log.WithFields(fields).WithError(err).Error("outbox relay: не удалось отметить публикацию")
		return false
	}
	r.metrics.OutboxResult("published")
	return true
}

func (r *Relay) backoff(attempt int) time.Duration {
	d := r.cfg.RetryDelay
	for i := 1; i < attempt && d < time.Hour; i++ {
		d *= 2
	}
	return d
}
