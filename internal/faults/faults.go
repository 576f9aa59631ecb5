// Package faults wires up optional Sentry reporting for the broker.
// Sentry is entirely inert when no DSN is configured, exactly like the
// rest of this broker's ambient stack: nothing here participates in the
// wire protocol, it only observes dispatcher-level failures.
package faults

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// Init configures Sentry when dsn is non-empty. It returns a flush func
// that should be deferred by the caller; the func is a no-op when Sentry
// was never initialized.
func Init(dsn, environment string) (flush func(), err error) {
	if dsn == "" {
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		TracesSampleRate: 0,
		BeforeSend:       scrubEvent,
	}); err != nil {
		return func() {}, err
	}

	return func() { sentry.Flush(2 * time.Second) }, nil
}

// Report sends a dispatcher-level error to Sentry when reporting is
// configured. It is safe to call unconditionally: with no DSN configured
// sentry.CurrentHub().Client() is nil and CaptureException is a no-op.
func Report(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// scrubEvent strips identity and peer-address fields from outgoing Sentry
// events. Identities are caller-chosen and may be personally identifying;
// peer addresses are advisory debugging data, not something to ship to a
// third party by default.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	for i := range event.Extra {
		switch i {
		case "identity", "peer_addr":
			delete(event.Extra, i)
		}
	}
	return event
}
