package repository

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domainrepo "github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/repository/common"
)

// DefaultLockTimeout — сколько переход ждёт соединение и блокировку заказа.
const DefaultLockTimeout = 15 * time.Second

// PostgresStore собирает репозитории поверх одного подключения или транзакции.
type PostgresStore struct {
	db          *sqlx.DB
	lockTimeout time.Duration
	repos
}

type repos struct {
	orders   *OrderRepository
	payments *PaymentRepository
	disputes *DisputeRepository
	audit    *AuditRepository
	outbox   *OutboxRepository
}

func newRepos(db sqlx.ExtContext) repos {
	return repos{
		orders:   NewOrderRepository(db),
		payments: NewPaymentRepository(db),
		disputes: NewDisputeRepository(db),
		audit:    NewAuditRepository(db),
		outbox:   NewOutboxRepository(db),
	}
}

func (r repos) Orders() domainrepo.OrderRepository     { return r.orders }
func (r repos) Payments() domainrepo.PaymentRepository { return r.payments }
func (r repos) Disputes() domainrepo.DisputeRepository { return r.disputes }
func (r repos) Audit() domainrepo.AuditRepository      { return r.audit }
func (r repos) Outbox() domainrepo.OutboxRepository    { return r.outbox }

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, lockTimeout: DefaultLockTimeout, repos: newRepos(db)}
}

// SetLockTimeout меняет ограничение ожидания блокировки заказа. Значение <= 0 игнорируется.
func (s *PostgresStore) SetLockTimeout(d time.Duration) {
	if d > 0 {
		s.lockTimeout = d
	}
}

// WithinTx выполняет fn в одной транзакции Postgres.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domainrepo.Repositories) error) error {
	return common.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(ctx, newRepos(tx))
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LockOrder берёт сессионную advisory-блокировку на отдельном соединении и возвращает
// хранилище, закреплённое за этим соединением. Чтение заказа и транзакция перехода идут
// через него, так что переход занимает ровно одно соединение пула.
// Ожидание соединения и блокировки ограничено lockTimeout.
func (s *PostgresStore) LockOrder(ctx context.Context, orderID uuid.UUID) (domainrepo.Store, func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	conn, err := s.db.Connx(lockCtx)
	if err != nil {
		return nil, nil, fmt.Errorf("order lock: acquire conn: %w", err)
	}
	key := orderID.String()
	if _, err := conn.ExecContext(lockCtx, `SELECT pg_advisory_lock(hashtext($1))`, key); err != nil {
		// Запрос мог успеть взять блокировку до отмены: сессию закрываем вместе с соединением.
		discardConn(conn)
		return nil, nil, fmt.Errorf("order lock: %w", err)
	}

	pinned := &pinnedStore{conn: conn, repos: newRepos(pinnedConn{conn})}
	unlock := func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
		defer cancel()
		var released bool
		err := conn.QueryRowxContext(unlockCtx, `SELECT pg_advisory_unlock(hashtext($1))`, key).Scan(&released)
		if err != nil || !released {
			discardConn(conn)
			return
		}
		_ = conn.Close()
	}
	return pinned, unlock, nil
}

// discardConn закрывает физическое соединение, не возвращая его в пул.
// Вместе с сессией Postgres снимает все её advisory-блокировки.
func discardConn(conn *sqlx.Conn) {
	_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	_ = conn.Close()
}

// pinnedStore — хранилище поверх одного соединения, держащего блокировку заказа.
type pinnedStore struct {
	conn *sqlx.Conn
	repos
}

func (s *pinnedStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domainrepo.Repositories) error) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	return common.RunInTx(tx, func(tx *sqlx.Tx) error {
		return fn(ctx, newRepos(tx))
	})
}

func (s *pinnedStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// pinnedConn дополняет sqlx.Conn до sqlx.ExtContext.
type pinnedConn struct {
	*sqlx.Conn
}

func (pinnedConn) DriverName() string { return "postgres" }

func (pinnedConn) BindNamed(query string, arg interface{}) (string, []interface{}, error) {
	return sqlx.BindNamed(sqlx.DOLLAR, query, arg)
}

var (
	_ domainrepo.Store  = (*PostgresStore)(nil)
	_ domainrepo.Store  = (*pinnedStore)(nil)
	_ domainrepo.Locker = (*PostgresStore)(nil)
	_ sqlx.ExtContext   = pinnedConn{}
)
