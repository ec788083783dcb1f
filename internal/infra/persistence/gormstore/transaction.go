package gormstore

import (
	"context"

	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/repository"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// gormTransactionManager implements the domain's TransactionManager interface using GORM.
type gormTransactionManager struct {
	db   *gorm.DB
	gate *WriteGate
}

// gormRepositoryFactory hands out repositories bound to one transaction.
// They carry no write gate: the manager holds it until commit or rollback.
type gormRepositoryFactory struct {
	tx *gorm.DB // In GORM, a transaction object *gorm.Tx is also a *gorm.DB
}

// NewSampleRepository creates a sample repository bound to the transaction.
func (f *gormRepositoryFactory) NewSampleRepository() repository.SampleRepository {
	return NewSampleRepository(f.tx, nil)
}

// NewOutboxRepository creates an outbox repository bound to the transaction.
func (f *gormRepositoryFactory) NewOutboxRepository() repository.OutboxRepository {
	return NewOutboxRepository(f.tx, nil)
}

// NewTransactionManager is the constructor for gormTransactionManager.
func NewTransactionManager(db *gorm.DB, gate *WriteGate) repository.TransactionManager {
	return &gormTransactionManager{db: db, gate: gate}
}

// Execute runs fn in one transaction while holding the write gate.
func (tm *gormTransactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	defer tm.gate.acquire()()

	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return domainerrors.NewStorageError("begin transaction", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			// Re-panic so Fx or the recover middleware can report it.
			panic(r)
		}
	}()

	if err := fn(&gormRepositoryFactory{tx: tx}); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return errors.Wrapf(err, "transaction rollback failed: %v", rbErr)
		}

		return err
	}

	if err := tx.Commit().Error; err != nil {
		return domainerrors.NewStorageError("commit transaction", err)
	}

	return nil
}
