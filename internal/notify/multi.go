package notify

import (
	"context"

	"go.uber.org/multierr"

	"github.com/xenking/catering-quote/internal/domain/quote"
)

// Multi notifies every channel in turn and reports all failures together.
type Multi []quote.Notifier

// Notify calls each notifier, even after one fails.
func (m Multi) Notify(ctx context.Context, n quote.Notification) error {
	var err error
	for _, nt := range m {
		err = multierr.Append(err, nt.Notify(ctx, n))
	}
	return err
}

// Nop discards notifications.
var Nop = quote.NotifierFunc(func(context.Context, quote.Notification) error { return nil })
