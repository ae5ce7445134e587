// Where: internal/probe/probe.go
// What: HTTP readiness polling.
// Why: Both the Node server supervisor and `health` wait for a 200 before continuing.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotReady is returned when the deadline passes without a 200.
var ErrNotReady = errors.New("endpoint did not become healthy")

// Waiter polls a URL until it answers 200.
type Waiter struct {
	Client   *http.Client
	Timeout  time.Duration
	Interval time.Duration
	// OnAttempt, when set, observes every attempt (status 0 on transport errors).
	OnAttempt func(attempt int, status int, err error)
}

// NewWaiter returns a Waiter with per-request timeouts of one second.
func NewWaiter(timeout, interval time.Duration) Waiter {
	return Waiter{
		Client:   &http.Client{Timeout: 1 * time.Second},
		Timeout:  timeout,
		Interval: interval,
	}
}

// Wait blocks until url returns 200, the timeout elapses, or ctx ends.
func (w Waiter) Wait(ctx context.Context, url string) error {
	if w.Client == nil {
		return fmt.Errorf("waiter client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()

	lastStatus := 0
	var lastErr error
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := w.Client.Do(req)
		status := 0
		if err == nil {
			status = resp.StatusCode
			_ = resp.Body.Close()
		}
		if w.OnAttempt != nil {
			w.OnAttempt(attempt, status, err)
		}
		if status == http.StatusOK {
			return nil
		}
		lastStatus, lastErr = status, err

		timer := time.NewTimer(w.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			if lastErr != nil {
				return fmt.Errorf("%w: %s: %v", ErrNotReady, url, lastErr)
			}
			return fmt.Errorf("%w: %s: last status %d", ErrNotReady, url, lastStatus)
		case <-timer.C:
		}
	}
}
