package repository

import (
	"context"

	"gorm.io/gorm"
)

// activeTx keys the *gorm.DB of an open transaction in a context.
type activeTx struct{}

// TransactionManager groups rule writes and their audit entries so that both
// land or neither does.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

// RunInTx hands fn a context bound to the transaction. A call made inside
// another RunInTx becomes a savepoint of the outer one.
func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return GetDB(ctx, t.db).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, activeTx{}, tx))
	})
}

// GetDB is how every repository picks its handle: the open transaction when
// ctx has one, rootDB otherwise.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	tx, ok := ctx.Value(activeTx{}).(*gorm.DB)
	if !ok {
		tx = rootDB
	}
	return tx.WithContext(ctx)
}
