package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainrepo "github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/repository/common"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func TestOrderRepository_UpdateStatus_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)
	id := uuid.New()
	now := time.Now()

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(valueobject.OrderStatusAccepted, now, id, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), id, 1, valueobject.OrderStatusAccepted, now)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus_VersionConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectExec("UPDATE orders SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), uuid.New(), 3, valueobject.OrderStatusCancelled, time.Now())
	assert.ErrorIs(t, err, common.ErrVersionConflict)
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectQuery("FROM orders WHERE id").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestOrderRepository_List_ByParticipant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)
	userID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "client_id", "provider_id", "service_id", "service_title", "service_price", "status",
		"scheduled_at", "location", "amount", "currency", "pricing_mode", "version", "created_at", "updated_at",
	}).AddRow(uuid.NewString(), userID.String(), uuid.NewString(), uuid.NewString(), "Уборка", int64(20000), "sent",
		nil, "Москва", int64(20000), "RUB", "fixed", int64(1), now, now)

	mock.ExpectQuery(`client_id = \$1 OR provider_id = \$1`).
		WithArgs(userID, 20, 0).
		WillReturnRows(rows)

	orders, err := repo.List(context.Background(), domainrepo.OrderFilter{ParticipantID: &userID})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, valueobject.OrderStatusSent, orders[0].Status)
	assert.Equal(t, int64(20000), orders[0].Amount)
}

func TestPaymentRepository_Create_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payments").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Payment{ID: uuid.New(), OrderID: uuid.New()})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestPaymentRepository_UpdateEscrowStatus_NotHeld(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	orderID := uuid.New()

	mock.ExpectExec("UPDATE payments SET escrow_status").
		WithArgs(valueobject.EscrowReleased, sqlmock.AnyArg(), orderID, valueobject.EscrowHeld).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateEscrowStatus(context.Background(), orderID, valueobject.EscrowHeld, valueobject.EscrowReleased, time.Now())
	assert.ErrorIs(t, err, common.ErrInvalidLedgerState)
}

func TestDisputeRepository_Create_SecondOpen(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDisputeRepository(db)

	mock.ExpectExec("INSERT INTO disputes").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Dispute{ID: uuid.New(), OrderID: uuid.New()})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestDisputeRepository_MarkResolved_AlreadyClosed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDisputeRepository(db)

	mock.ExpectExec("UPDATE disputes SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkResolved(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, common.ErrVersionConflict)
}

func TestAuditRepository_ListByOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)
	orderID := uuid.New()
	actor := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "order_id", "action", "old_status", "new_status", "detail", "actor_id", "actor_role", "created_at"}).
		AddRow("01A", orderID.String(), "create_order", "", "sent", "", actor.String(), "client", now).
		AddRow("01B", orderID.String(), "accept_order", "sent", "accepted", "", actor.String(), "provider", now)

	mock.ExpectQuery("FROM audit_log WHERE order_id").WithArgs(orderID).WillReturnRows(rows)

	entries, err := repo.ListByOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, valueobject.OrderStatusAccepted, entries[1].NewStatus)
	assert.Equal(t, valueobject.OrderStatus(""), entries[0].OldStatus)
}

func TestPostgresStore_WithinTx_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresStore(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domainrepo.Repositories) error {
		if err := tx.Orders().UpdateStatus(ctx, uuid.New(), 1, valueobject.OrderStatusAccepted, time.Now()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithinTx_Commits(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_log").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outbox_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domainrepo.Repositories) error {
		if err := tx.Audit().Append(ctx, &models.AuditLogEntry{ID: "01C", OrderID: uuid.New()}); err != nil {
			return err
		}
		return tx.Outbox().Enqueue(ctx, &models.OutboxEvent{ID: "01D", OrderID: uuid.New(), Payload: []byte(`{}`)})
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func unlockRows(released bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"pg_advisory_unlock"}).AddRow(released)
}

func TestPostgresStore_LockOrder_TransitionUsesOneConnection(t *testing.T) {
	db, mock := newMockDB(t)
	// Одного соединения должно хватать на блокировку, чтение и транзакцию перехода.
	db.SetMaxOpenConns(1)
	store := NewPostgresStore(db)
	id := uuid.New()

	mock.ExpectExec("SELECT pg_advisory_lock").WithArgs(id.String()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM orders WHERE id").WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"id", "status", "version"}).
		AddRow(id.String(), "accepted", 2))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT pg_advisory_unlock").WithArgs(id.String()).WillReturnRows(unlockRows(true))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	locked, unlock, err := store.LockOrder(ctx, id)
	require.NoError(t, err)

	order, err := locked.Orders().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), order.Version)

	err = locked.WithinTx(ctx, func(ctx context.Context, tx domainrepo.Repositories) error {
		return tx.Orders().UpdateStatus(ctx, id, 2, valueobject.OrderStatusPaidEscrowHeld, time.Now())
	})
	require.NoError(t, err)
	unlock()

	assert.Equal(t, 0, db.Stats().InUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LockOrder_Error(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectExec("SELECT pg_advisory_lock").WillReturnError(errors.New("conn reset"))
	mock.ExpectClose()

	locked, unlock, err := store.LockOrder(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Nil(t, locked)
	assert.Nil(t, unlock)
	assert.Equal(t, 0, db.Stats().OpenConnections)
}

func TestPostgresStore_LockOrder_TimesOut(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresStore(db)
	store.SetLockTimeout(20 * time.Millisecond)

	mock.ExpectExec("SELECT pg_advisory_lock").WillDelayFor(time.Second).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	started := time.Now()
	_, _, err := store.LockOrder(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Less(t, time.Since(started), 500*time.Millisecond)
	assert.Equal(t, 0, db.Stats().OpenConnections)
}

func TestPostgresStore_LockOrder_FailedUnlockDropsConnection(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresStore(db)
	id := uuid.New()

	mock.ExpectExec("SELECT pg_advisory_lock").WithArgs(id.String()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT pg_advisory_unlock").WithArgs(id.String()).WillReturnError(errors.New("conn reset"))
	mock.ExpectClose()

	_, unlock, err := store.LockOrder(context.Background(), id)
	require.NoError(t, err)
	unlock()

	// Соединение с неснятой блокировкой не должно вернуться в пул.
	assert.Equal(t, 0, db.Stats().OpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LockOrder_NotHeldUnlockDropsConnection(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresStore(db)
	id := uuid.New()

	mock.ExpectExec("SELECT pg_advisory_lock").WithArgs(id.String()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT pg_advisory_unlock").WithArgs(id.String()).WillReturnRows(unlockRows(false))
	mock.ExpectClose()

	_, unlock, err := store.LockOrder(context.Background(), id)
	require.NoError(t, err)
	unlock()

	assert.Equal(t, 0, db.Stats().OpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}
