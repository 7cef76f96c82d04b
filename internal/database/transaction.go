package database

import (
	"context"

	"gorm.io/gorm"
)

// WithTransaction runs fn inside a transaction on db. The transaction commits
// when fn returns nil and rolls back when it returns an error or panics.
func WithTransaction(ctx context.Context, db Database, fn func(tx *gorm.DB) error) error {
	return db.Session(ctx).Transaction(fn)
}

// WithTransactionResult is WithTransaction for functions that produce a value.
// The zero value is returned when the transaction rolls back.
func WithTransactionResult[T any](ctx context.Context, db Database, fn func(tx *gorm.DB) (T, error)) (T, error) {
	var result T
	err := WithTransaction(ctx, db, func(tx *gorm.DB) error {
		var err error
		result, err = fn(tx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
