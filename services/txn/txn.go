// Package txn implements the ambient-transaction unit of work. Every
// entry point asks whether the session it was handed already has an open
// transaction: if so it joins it and leaves commit/rollback to the
// owner, otherwise it opens one and owns the outcome. This lets the
// stock operations run standalone or nested inside order creation
// without the store seeing a nested transaction.
package txn

import (
	"gorm.io/gorm"

	"github.com/mbilalsh/storefront-api/apperrors"
)

// InTransaction reports whether db already has an open transaction. A
// session inside gorm's Transaction exposes a connection that can commit
// and roll back; a plain session exposes the pool.
func InTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil {
		return false
	}
	committer, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok && committer != nil
}

// WithTransaction runs fn inside the caller's transaction when one is
// already open, otherwise opens its own and owns commit on success and
// rollback on error or panic.
func WithTransaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if InTransaction(db) {
		// joined: the opener commits or rolls back
		return fn(db)
	}
	err := db.Transaction(fn)
	if err != nil && apperrors.IsConcurrencyConflict(err) {
		// an inner scope already resolved the transaction; the work is
		// done, so absorb instead of re-raising
		return nil
	}
	return err
}
