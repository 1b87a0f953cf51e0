// Package replayer sends perturbed copies of a captured request through
// the host and turns the response into an Outcome, spec.md §4.1. It
// owns no retry policy — that belongs to the Solver.
package replayer

import (
	"context"
	"errors"
	"time"

	"github.com/cookiesolver/cookiesolver/pkg/cookie"
	"github.com/cookiesolver/cookiesolver/pkg/hostproxy"
)

// DefaultConnectTimeout bounds a single replay, per spec.md §4.1's
// "short connect timeout".
const DefaultConnectTimeout = 10 * time.Second

// Replayer is the thin adapter between the Solver's cookie.Set
// algebra and the host's Sender.
type Replayer struct {
	sender  hostproxy.Sender
	timeout time.Duration
}

func New(sender hostproxy.Sender) *Replayer {
	return &Replayer{sender: sender, timeout: DefaultConnectTimeout}
}

// WithTimeout returns a copy of r using the given per-replay timeout.
func (r *Replayer) WithTimeout(d time.Duration) *Replayer {
	cp := *r
	cp.timeout = d
	return &cp
}

// WithCookies builds the request carrying exactly s, pure per
// spec.md §4.1's with_cookies(R, S).
func WithCookies(req hostproxy.Request, s *cookie.Set) hostproxy.Request {
	return req.WithCookiesOnly(s)
}

// Replay sends req and converts the result to an Outcome. It never
// retries: a network error, empty body, or timeout all collapse to a
// Failed outcome that the Solver treats as non-equivalent.
func (r *Replayer) Replay(ctx context.Context, req hostproxy.Request) cookie.Outcome {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.sender.Send(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return cookie.FailedOutcome("timeout")
		}
		return cookie.FailedOutcome(err.Error())
	}
	if resp == nil {
		return cookie.FailedOutcome("empty response")
	}
	return cookie.NewOutcome(resp.StatusCode, resp.Body)
}

// ReplayWithCookies is the common case: strip req down to s, then replay.
func (r *Replayer) ReplayWithCookies(ctx context.Context, req hostproxy.Request, s *cookie.Set) cookie.Outcome {
	return r.Replay(ctx, WithCookies(req, s))
}
