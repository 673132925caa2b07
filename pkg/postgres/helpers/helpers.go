package helpers

import (
	"context"

	"gorm.io/gorm"
)

// WrapTxAndCommit runs fn inside tx when one is given, otherwise inside a new
// transaction that is committed on success and rolled back on error.
func WrapTxAndCommit[T any](ctx context.Context, db *gorm.DB, tx *gorm.DB, fn func(*gorm.DB) (T, error)) (T, error) {
	exists := tx != nil

	if !exists {
		tx = db.WithContext(ctx).Begin()
		if tx.Error != nil {
			var zero T
			return zero, tx.Error
		}
	}

	res, err := fn(tx)
	if exists {
		return res, err
	}

	if err != nil {
		tx.Rollback()
		return res, err
	}
	if cerr := tx.Commit().Error; cerr != nil {
		return res, cerr
	}
	return res, nil
}
