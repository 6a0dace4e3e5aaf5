package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainrepo "github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/repository/common"
)

func seedOrder(t *testing.T, s *Store) models.Order {
	t.Helper()
	o := models.Order{
		ID:        uuid.New(),
		ClientID:  uuid.New(),
		Status:    valueobject.OrderStatusSent,
		Amount:    20000,
		Version:   1,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.Orders().Create(context.Background(), &o))
	return o
}

func TestStore_WithinTx_RollbackDiscardsAllWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	o := seedOrder(t, s)
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx domainrepo.Repositories) error {
		require.NoError(t, tx.Orders().UpdateStatus(ctx, o.ID, 1, valueobject.OrderStatusAccepted, time.Now()))
		require.NoError(t, tx.Audit().Append(ctx, &models.AuditLogEntry{ID: "a", OrderID: o.ID}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusSent, got.Status)
	assert.Equal(t, int64(1), got.Version)

	entries, _ := s.Audit().ListByOrder(ctx, o.ID)
	assert.Empty(t, entries)
}

func TestStore_WithinTx_CommitMakesWritesVisible(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	o := seedOrder(t, s)

	err := s.WithinTx(ctx, func(ctx context.Context, tx domainrepo.Repositories) error {
		return tx.Orders().UpdateStatus(ctx, o.ID, 1, valueobject.OrderStatusAccepted, time.Now())
	})
	require.NoError(t, err)

	got, _ := s.Orders().GetByID(ctx, o.ID)
	assert.Equal(t, valueobject.OrderStatusAccepted, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestStore_FailNext(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	o := seedOrder(t, s)
	injected := errors.New("disk full")
	s.FailNext("audit.append", injected)

	err := s.WithinTx(ctx, func(ctx context.Context, tx domainrepo.Repositories) error {
		if err := tx.Orders().UpdateStatus(ctx, o.ID, 1, valueobject.OrderStatusAccepted, time.Now()); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, &models.AuditLogEntry{ID: "a", OrderID: o.ID})
	})
	assert.ErrorIs(t, err, injected)

	got, _ := s.Orders().GetByID(ctx, o.ID)
	assert.Equal(t, valueobject.OrderStatusSent, got.Status)

	// неисправность срабатывает один раз
	assert.NoError(t, s.Audit().Append(ctx, &models.AuditLogEntry{ID: "b", OrderID: o.ID}))
}

func TestStore_FailTimes(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	o := seedOrder(t, s)
	injected := errors.New("disk full")
	s.FailTimes("audit.append", injected, 2)

	assert.ErrorIs(t, s.Audit().Append(ctx, &models.AuditLogEntry{ID: "a", OrderID: o.ID}), injected)
	assert.ErrorIs(t, s.Audit().Append(ctx, &models.AuditLogEntry{ID: "b", OrderID: o.ID}), injected)
	assert.NoError(t, s.Audit().Append(ctx, &models.AuditLogEntry{ID: "c", OrderID: o.ID}))
}

func TestOrderRepo_UpdateStatus_StaleVersion(t *testing.T) {
	s := NewStore()
	o := seedOrder(t, s)

	err := s.Orders().UpdateStatus(context.Background(), o.ID, 7, valueobject.OrderStatusAccepted, time.Now())
	assert.ErrorIs(t, err, common.ErrVersionConflict)
}

func TestPaymentRepo_EscrowMovesOnlyForward(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	orderID := uuid.New()
	require.NoError(t, s.Payments().Create(ctx, &models.Payment{OrderID: orderID, EscrowStatus: valueobject.EscrowHeld}))

	require.NoError(t, s.Payments().UpdateEscrowStatus(ctx, orderID, valueobject.EscrowHeld, valueobject.EscrowReleased, time.Now()))
	err := s.Payments().UpdateEscrowStatus(ctx, orderID, valueobject.EscrowHeld, valueobject.EscrowRefunded, time.Now())
	assert.ErrorIs(t, err, common.ErrInvalidLedgerState)

	assert.ErrorIs(t, s.Payments().Create(ctx, &models.Payment{OrderID: orderID}), common.ErrAlreadyExists)
}

func TestDisputeRepo_OneOpenPerOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	orderID := uuid.New()
	first := models.Dispute{ID: uuid.New(), OrderID: orderID, Status: valueobject.DisputeStatusOpen}
	require.NoError(t, s.Disputes().Create(ctx, &first))

	second := models.Dispute{ID: uuid.New(), OrderID: orderID, Status: valueobject.DisputeStatusOpen}
	assert.ErrorIs(t, s.Disputes().Create(ctx, &second), common.ErrAlreadyExists)

	require.NoError(t, s.Disputes().MarkResolved(ctx, first.ID, time.Now()))
	assert.ErrorIs(t, s.Disputes().MarkResolved(ctx, first.ID, time.Now()), common.ErrVersionConflict)
	assert.NoError(t, s.Disputes().Create(ctx, &second))
}

func TestOutboxRepo_PendingLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.Outbox().Enqueue(ctx, &models.OutboxEvent{ID: "e1", NextAttemptAt: now}))
	require.NoError(t, s.Outbox().Enqueue(ctx, &models.OutboxEvent{ID: "e2", NextAttemptAt: now.Add(time.Hour)}))

	pending, err := s.Outbox().FetchPending(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "e1", pending[0].ID)

	require.NoError(t, s.Outbox().MarkFailed(ctx, "e1", "broker down", now.Add(time.Minute), false))
	pending, _ = s.Outbox().FetchPending(ctx, now, 10)
	assert.Empty(t, pending)

	require.NoError(t, s.Outbox().MarkPublished(ctx, "e1", now))
	pending, _ = s.Outbox().FetchPending(ctx, now.Add(2*time.Hour), 10)
	require.Len(t, pending, 1)
	assert.Equal(t, "e2", pending[0].ID)
}
