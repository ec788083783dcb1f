package service

import (
	"context"
)

// NotificationService pushes operator alerts, currently only geofence
// violations, to a fixed set of devices.
type NotificationService interface {
	// SendBatchNotification pushes one message to every token. Tokens the
	// provider reports as unregistered come back in invalidTokens so callers
	// can drop them; a non-nil err means nothing was sent.
	SendBatchNotification(ctx context.Context, tokens []string, title, body string, data map[string]string) (successCount, failureCount int, invalidTokens []string, err error)
}
