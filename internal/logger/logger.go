package logger

import (
	"github.com/sirupsen/logrus"
)

// Log — общий логгер процесса. До Init пишет в stderr текстом на уровне info.
var Log = logrus.New()

// Init инициализирует структурированный логгер.
func Init(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Adapter реализует goroutine.Logger поверх общего логгера.
type Adapter struct{}

func (Adapter) Errorf(format string, args ...interface{}) {
	Log.Errorf(format, args...)
}
