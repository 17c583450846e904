package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenewerFiresAndRearms(t *testing.T) {
	fired := make(chan struct{}, 8)
	renew := func(ctx context.Context) (time.Time, error) {
		fired <- struct{}{}
		return time.Now().Add(5 * time.Millisecond), nil
	}

	r := NewRenewer(renew, testLogger())
	r.Start(context.Background(), time.Now())
	defer r.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("renewal %d never fired", i+1)
		}
	}
}

func TestRenewerStopsOnFailure(t *testing.T) {
	fired := make(chan struct{}, 8)
	renew := func(ctx context.Context) (time.Time, error) {
		fired <- struct{}{}
		return time.Time{}, errors.New("remote rejected login")
	}

	r := NewRenewer(renew, testLogger())
	r.Start(context.Background(), time.Now())

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("renewal never fired")
	}

	// The loop exits after the failure; Stop must return promptly and no
	// further renewals happen.
	r.Stop()
	select {
	case <-fired:
		t.Error("unexpected renewal after failure")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRenewerStopBeforeFire(t *testing.T) {
	renew := func(ctx context.Context) (time.Time, error) {
		t.Error("renew must not run")
		return time.Time{}, nil
	}

	r := NewRenewer(renew, testLogger())
	r.Start(context.Background(), time.Now().Add(time.Hour))
	r.Stop()
}

func TestRenewerStopWithoutStart(t *testing.T) {
	r := NewRenewer(func(ctx context.Context) (time.Time, error) {
		return time.Time{}, nil
	}, testLogger())
	r.Stop()
	r.Stop()
}
