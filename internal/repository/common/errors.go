package common

import (
	"errors"

	"github.com/lib/pq"
)

// Общие ошибки для всех репозиториев
var (
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrVersionConflict    = errors.New("version conflict")
	ErrInvalidLedgerState = errors.New("invalid ledger state")
)

const uniqueViolation = "23505"

// IsUniqueViolation сообщает, что Postgres отклонил запись по уникальному индексу.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
