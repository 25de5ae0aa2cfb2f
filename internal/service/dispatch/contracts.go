//go:generate mockgen -source=contracts.go -destination=mocks_test.go -package=dispatch_test

package dispatch

import (
	"context"

	"service-dispatch/internal/notify"
)

// Notifier receives dispatch events after the producing transaction committed.
// It must not block the caller for long and never reports failures.
type Notifier interface {
	Notify(ctx context.Context, e notify.Event)
}
