// README: Dispatcher fans events out to notifiers asynchronously; failures are logged only.
package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hammamiayoub/vtc-new-sub000/internal/metrics"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	log       *zap.Logger
	metrics   *metrics.Metrics
	wg        sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, log *zap.Logger, m *metrics.Metrics, notifiers ...Notifier) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{notifiers: notifiers, timeout: timeout, log: log, metrics: m}
}

// Publish delivers ev in the background. The caller's cancellation does not
// reach delivery; each delivery gets its own timeout instead.
func (d *Dispatcher) Publish(ctx context.Context, ev Event) {
	if d == nil || len(d.notifiers) == 0 || len(ev.Recipients) == 0 {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	base := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("notification dispatch panicked", zap.Any("panic", r))
			}
		}()
		for _, n := range d.notifiers {
			for _, rcpt := range ev.Recipients {
				d.deliver(base, n, rcpt, ev)
			}
		}
	}()
}

func (d *Dispatcher) deliver(base context.Context, n Notifier, rcpt types.ID, ev Event) {
	ctx := base
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(base, d.timeout)
		defer cancel()
	}

	capab := n.Capability(ctx, rcpt)
	switch {
	case !capab.Supported:
		d.metrics.Notification(n.Channel(), "unsupported")
		return
	case !capab.Granted:
		d.metrics.Notification(n.Channel(), "denied")
		d.log.Debug("notification not granted",
			zap.String("channel", n.Channel()),
			zap.String("recipient", rcpt.String()))
		return
	}

	if err := n.Notify(ctx, rcpt, ev); err != nil {
		d.metrics.Notification(n.Channel(), "failed")
		d.log.Warn("notification failed",
			zap.String("channel", n.Channel()),
			zap.String("kind", string(ev.Kind)),
			zap.String("booking_id", ev.BookingID.String()),
			zap.String("recipient", rcpt.String()),
			zap.Error(err))
		return
	}
	d.metrics.Notification(n.Channel(), "sent")
}

// Wait blocks until every published event has been handled. Used on shutdown
// and in tests.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
