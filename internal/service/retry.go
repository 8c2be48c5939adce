package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	maxTxAttempts    = 3
	txBackoffBase    = 25 * time.Millisecond
	pgSerialization  = "40001"
	pgDeadlock       = "40P01"
	pgUniqueViolated = "23505"
)

// isRetryableConflict: сериализационный сбой или дедлок — транзакцию можно повторить целиком.
func isRetryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerialization || pgErr.Code == pgDeadlock
	}
	return false
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolated {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// backoff: линейная пауза между попытками, прерываемая контекстом.
func backoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(txBackoffBase * time.Duration(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
