package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookiesolver/cookiesolver/internal/logger"
	"github.com/cookiesolver/cookiesolver/internal/replayer"
	"github.com/cookiesolver/cookiesolver/pkg/cookie"
	"github.com/cookiesolver/cookiesolver/pkg/hostproxy"
)

var errUpstream = errors.New("upstream unreachable")

// fakeRequest is a minimal in-memory hostproxy.Request for tests.
type fakeRequest struct {
	cookies []cookie.Cookie
}

func (r *fakeRequest) WithCookiesOnly(s *cookie.Set) hostproxy.Request {
	return &fakeRequest{cookies: append([]cookie.Cookie{}, s.Items()...)}
}
func (r *fakeRequest) Cookies() []cookie.Cookie { return r.cookies }
func (r *fakeRequest) URL() string              { return "https://example.com/" }

// respondFunc decides the upstream's behavior given the cookies on
// the replayed request and the call count (1-indexed) made with that
// exact cookie set, letting tests model transient flakes.
type respondFunc func(cookies []cookie.Cookie, attempt int) (*hostproxy.Response, error)

type fakeSender struct {
	respond respondFunc
	calls   map[string]int
}

func newFakeSender(f respondFunc) *fakeSender {
	return &fakeSender{respond: f, calls: make(map[string]int)}
}

func key(cookies []cookie.Cookie) string {
	s := ""
	for _, c := range cookies {
		s += c.Name + ","
	}
	return s
}

func (fs *fakeSender) Send(_ context.Context, req hostproxy.Request) (*hostproxy.Response, error) {
	fr := req.(*fakeRequest)
	k := key(fr.cookies)
	fs.calls[k]++
	return fs.respond(fr.cookies, fs.calls[k])
}

func names(cookies []cookie.Cookie) map[string]bool {
	out := make(map[string]bool, len(cookies))
	for _, c := range cookies {
		out[c.Name] = true
	}
	return out
}

func hasCookie(cookies []cookie.Cookie, name string) bool {
	for _, c := range cookies {
		if c.Name == name {
			return true
		}
	}
	return false
}

func newTestSolver(sender hostproxy.Sender) *Solver {
	sv := New(replayer.New(sender), logger.NewNop())
	sv.sleep = func(_ time.Duration) {} // no-op: tests should not block on real time
	return sv
}

func TestZeroCookiesReturnsEmptyVerdictWithOneReplay(t *testing.T) {
	sender := newFakeSender(func(cookies []cookie.Cookie, attempt int) (*hostproxy.Response, error) {
		return &hostproxy.Response{StatusCode: 200, Body: []byte("ok")}, nil
	})
	sv := newTestSolver(sender)

	v := sv.Analyze(context.Background(), &fakeRequest{}, nil)
	assert.False(t, v.Failed)
	assert.Empty(t, v.Required)
	assert.Empty(t, v.Optional)
	// Baseline and the empty-set confirm are the same canonical cookie
	// set (no input cookies at all), so the confirm reuses the cached
	// baseline outcome instead of sending again.
	assert.Equal(t, 1, v.RequestsSent)
}

func TestBaselineFailureYieldsFailedAnalysis(t *testing.T) {
	sender := newFakeSender(func(cookies []cookie.Cookie, attempt int) (*hostproxy.Response, error) {
		return nil, errUpstream
	})
	sv := newTestSolver(sender)

	sid := cookie.NewCookie(1, "sid", "v")
	v := sv.Analyze(context.Background(), &fakeRequest{cookies: []cookie.Cookie{sid}}, []cookie.Cookie{sid})
	assert.True(t, v.Failed)
	assert.Contains(t, v.Details[sid.ID()], "Unknown")
}

// S1 — single required cookie.
func TestS1SingleRequiredCookie(t *testing.T) {
	sid := cookie.NewCookie(1, "sid", "v1")
	ga := cookie.NewCookie(2, "_ga", "v2")
	pref := cookie.NewCookie(3, "pref", "v3")
	all := []cookie.Cookie{sid, ga, pref}

	sender := newFakeSender(func(cookies []cookie.Cookie, attempt int) (*hostproxy.Response, error) {
		if hasCookie(cookies, "sid") {
			return &hostproxy.Response{StatusCode: 200, Body: []byte("welcome")}, nil
		}
		return &hostproxy.Response{StatusCode: 401, Body: []byte("denied")}, nil
	})
	sv := newTestSolver(sender)
	sv.DoubleCheckGuard = false

	v := sv.Analyze(context.Background(), &fakeRequest{cookies: all}, all)

	require.Len(t, v.Required, 1)
	assert.Equal(t, "sid", v.Required[0].Name)
	assert.Equal(t, names([]cookie.Cookie{ga, pref}), names(v.Optional))
	assert.Empty(t, v.Alternatives)
	assert.Contains(t, []int{4, 5}, v.RequestsSent)
}

// S2 — OR-alternatives.
func TestS2ORAlternatives(t *testing.T) {
	sidA := cookie.NewCookie(1, "sidA", "a")
	sidB := cookie.NewCookie(2, "sidB", "b")
	u := cookie.NewCookie(3, "u", "u")
	all := []cookie.Cookie{sidA, sidB, u}

	sender := newFakeSender(func(cookies []cookie.Cookie, attempt int) (*hostproxy.Response, error) {
		hasU := hasCookie(cookies, "u")
		hasSID := hasCookie(cookies, "sidA") || hasCookie(cookies, "sidB")
		if hasU && hasSID {
			return &hostproxy.Response{StatusCode: 200, Body: []byte("ok")}, nil
		}
		return &hostproxy.Response{StatusCode: 403, Body: []byte("forbidden")}, nil
	})
	sv := newTestSolver(sender)
	sv.DoubleCheckGuard = false

	v := sv.Analyze(context.Background(), &fakeRequest{cookies: all}, all)

	require.Len(t, v.Required, 2)
	assert.True(t, hasCookie(v.Required, "u"))
	assert.True(t, hasCookie(v.Required, "sidA") || hasCookie(v.Required, "sidB"))

	var chosenSID cookie.Cookie
	for _, c := range v.Required {
		if c.Name == "sidA" || c.Name == "sidB" {
			chosenSID = c
		}
	}
	require.NotZero(t, chosenSID.Name)
	alts := v.Alternatives[chosenSID.ID()]
	require.Len(t, alts, 1)
	other := "sidB"
	if chosenSID.Name == "sidB" {
		other = "sidA"
	}
	assert.Equal(t, other, alts[0].Name)
}

// S3 — flaky upstream: one individual-removal replay transiently
// fails once, reclassified by the double-check guard.
func TestS3FlakyUpstreamReclassifiedByGuard(t *testing.T) {
	a := cookie.NewCookie(1, "a", "va")
	b := cookie.NewCookie(2, "b", "vb")
	all := []cookie.Cookie{a, b}

	sender := newFakeSender(func(cookies []cookie.Cookie, attempt int) (*hostproxy.Response, error) {
		if !hasCookie(cookies, "a") {
			return &hostproxy.Response{StatusCode: 403, Body: []byte("denied")}, nil
		}
		// "a" present: request succeeds, UNLESS this is the very
		// first WITHOUT:b replay (a transient 500 for b's removal).
		if !hasCookie(cookies, "b") && attempt == 1 {
			return &hostproxy.Response{StatusCode: 500, Body: []byte("boom")}, nil
		}
		return &hostproxy.Response{StatusCode: 200, Body: []byte("ok")}, nil
	})
	sv := newTestSolver(sender)
	// Guard left on (default true) — this scenario exists to test it.

	v := sv.Analyze(context.Background(), &fakeRequest{cookies: all}, all)

	require.Len(t, v.Required, 1)
	assert.Equal(t, "a", v.Required[0].Name)
}

func TestRequiredAndOptionalPartitionInputExactly(t *testing.T) {
	sid := cookie.NewCookie(1, "sid", "v")
	other := cookie.NewCookie(2, "other", "v")
	all := []cookie.Cookie{sid, other}

	sender := newFakeSender(func(cookies []cookie.Cookie, attempt int) (*hostproxy.Response, error) {
		if hasCookie(cookies, "sid") {
			return &hostproxy.Response{StatusCode: 200, Body: []byte("ok")}, nil
		}
		return &hostproxy.Response{StatusCode: 401, Body: []byte("no")}, nil
	})
	sv := newTestSolver(sender)
	sv.DoubleCheckGuard = false

	v := sv.Analyze(context.Background(), &fakeRequest{cookies: all}, all)

	union := append(append([]cookie.Cookie{}, v.Required...), v.Optional...)
	assert.ElementsMatch(t, all, union)
}
