package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetOne выполняет запрос и сканирует одну строку. sql.ErrNoRows превращается в notFoundErr.
func GetOne[T any](ctx context.Context, q sqlx.QueryerContext, notFoundErr error, query string, args ...interface{}) (*T, error) {
	var entity T
	if err := sqlx.GetContext(ctx, q, &entity, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, err
	}
	return &entity, nil
}

// ExpectOneRow проверяет, что UPDATE затронул ровно одну строку. Иначе возвращает missErr.
func ExpectOneRow(res sql.Result, missErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return missErr
	}
	return nil
}

// WithTransaction выполняет функцию внутри транзакции с правильной обработкой ошибок
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	return RunInTx(tx, fn)
}

// RunInTx выполняет fn в уже открытой транзакции: commit при успехе, rollback при ошибке или панике.
func RunInTx(tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
