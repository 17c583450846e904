package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RenewFunc obtains a fresh token before the current one expires. It returns
// the expiry of the new token so the renewer can re-arm.
type RenewFunc func(ctx context.Context) (time.Time, error)

// Renewer is a cancellable background task that fires at a timestamp,
// invokes a renew function, and re-arms itself for the returned expiry. It
// is an operational concern kept apart from the resolver and resource
// operations: those never trigger renewal themselves.
type Renewer struct {
	renew  RenewFunc
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewRenewer creates a Renewer around the given renew function.
func NewRenewer(renew RenewFunc, logger *slog.Logger) *Renewer {
	return &Renewer{renew: renew, logger: logger}
}

// Start arms the renewer to fire at the given time. It returns immediately;
// the renewal loop runs until Stop is called, the context is cancelled, or a
// renewal fails. A failed renewal is logged and ends the loop — retrying is
// the caller's concern, consistent with the no-automatic-retry policy
// elsewhere in the client.
func (r *Renewer) Start(ctx context.Context, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.running = true

	go r.loop(ctx, at)
}

func (r *Renewer) loop(ctx context.Context, at time.Time) {
	defer close(r.done)
	timer := time.NewTimer(time.Until(at))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		next, err := r.renew(ctx)
		if err != nil {
			r.logger.Error("token renewal failed", "err", err)
			return
		}
		r.logger.Info("token renewed", "next_renewal", next)
		timer.Reset(time.Until(next))
	}
}

// Stop cancels the renewal loop and waits for it to exit. Safe to call
// multiple times and before Start.
func (r *Renewer) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.cancel()
	done := r.done
	r.running = false
	r.mu.Unlock()
	<-done
}
