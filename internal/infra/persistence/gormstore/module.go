package gormstore

import "go.uber.org/fx"

// Module provides the sample store and its repositories
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(
		NewWriteGate,
		New,
		NewSampleRepository,
		NewOutboxRepository,
		NewTransactionManager,
	),
)
