package goroutine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	log := &recordingLogger{}
	rh := NewRecoveryHandler(log)

	rh.SafeGo(func() { panic("notifier exploded") })
	rh.Wait()

	require.Len(t, log.lines, 1)
	assert.Contains(t, log.lines[0], "notifier exploded")
}

func TestSafeGoWithContext_PassesContext(t *testing.T) {
	rh := NewRecoveryHandler(&recordingLogger{})
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	var got interface{}
	rh.SafeGoWithContext(ctx, func(ctx context.Context) { got = ctx.Value(key{}) })
	rh.Wait()

	assert.Equal(t, "v", got)
}
