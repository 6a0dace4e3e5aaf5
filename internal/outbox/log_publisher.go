package outbox

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/logger"
)

// LogPublisher пишет события в лог. Используется, когда KAFKA_BROKERS не задан.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Log.WithFields(logrus.Fields{
		"key":     key,
		"payload": string(value),
	}).Info("outbox: событие опубликовано в лог")
	return nil
}
