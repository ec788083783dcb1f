// Package delivery holds the entry points that drive the use cases: the HTTP API
// and the background outbox dispatcher.
package delivery

import "context"

// Delivery is a long running entry point started by the application.
// Serve blocks until the delivery is stopped through its lifecycle hook.
type Delivery interface {
	Serve(ctx context.Context) error
}
