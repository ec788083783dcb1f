package repository

import "context"

// TransactionManager runs fn atomically against the sample store. fn's error
// rolls the transaction back; a nil return commits it. Writers are serialized
// for the whole transaction, readers keep seeing the last committed state.
type TransactionManager interface {
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory hands out repositories bound to the running transaction.
type RepositoryFactory interface {
	NewSampleRepository() SampleRepository
	NewOutboxRepository() OutboxRepository
}
