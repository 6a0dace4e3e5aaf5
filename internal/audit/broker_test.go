package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
)

func TestBroker_FiltersByOrder(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orderA, orderB := uuid.New(), uuid.New()
	subA := b.Subscribe(ctx, orderA)
	subAll := b.Subscribe(ctx, uuid.Nil)

	b.Publish(models.AuditLogEntry{ID: "1", OrderID: orderB})
	b.Publish(models.AuditLogEntry{ID: "2", OrderID: orderA})

	select {
	case e := <-subA:
		assert.Equal(t, "2", e.ID)
	case <-time.After(time.Second):
		t.Fatal("no entry for order A")
	}

	assert.Equal(t, "1", (<-subAll).ID)
	assert.Equal(t, "2", (<-subAll).ID)
}

func TestBroker_ClosesOnCancel(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx, uuid.Nil)
	require.Equal(t, 1, b.Subscribers())

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBroker_DropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	dropped := 0
	b.OnDrop(func() { dropped++ })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = b.Subscribe(ctx, uuid.Nil)

	for i := 0; i < subscriberBuffer+5; i++ {
		b.Publish(models.AuditLogEntry{OrderID: uuid.New()})
	}
	assert.Equal(t, 5, dropped)
}
