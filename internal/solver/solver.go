// Package solver implements the cookie-requirement analysis state
// machine of spec.md §4.2: Init → Baseline → Individual → Verify →
// (Search)? → Minimize → SmartVerify → Alternatives → Confirm → Done.
package solver

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cookiesolver/cookiesolver/internal/logger"
	"github.com/cookiesolver/cookiesolver/internal/replayer"
	"github.com/cookiesolver/cookiesolver/pkg/cookie"
	"github.com/cookiesolver/cookiesolver/pkg/hostproxy"
)

// Solver runs one analyze() call at a time against a single captured
// request. It holds no state between calls; callers construct one per
// analysis or reuse it serially.
type Solver struct {
	replayer *replayer.Replayer
	log      logger.Logger

	// DoubleCheckGuard enables the false-positive guard described in
	// spec.md §4.2: a suspicious cookie is re-tested once more after a
	// pause before being trusted. Optional for correctness, required
	// for stability on production targets per the spec, so it
	// defaults on.
	DoubleCheckGuard bool

	// clock indirection lets tests skip the guard's real-time pauses.
	sleep func(time.Duration)
}

func New(r *replayer.Replayer, log logger.Logger) *Solver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Solver{
		replayer:         r,
		log:              log,
		DoubleCheckGuard: true,
		sleep:            time.Sleep,
	}
}

// run carries the mutable state threaded through one analyze() call.
type run struct {
	req      hostproxy.Request
	all      []cookie.Cookie
	requests int
	replays  map[string]cookie.Replay
	details  map[cookie.ID]string

	// cache avoids re-sending a replay for a cookie set this run has
	// already tested byte-for-byte (e.g. the same set tested by both
	// Verify-suspicious-only and SmartVerify). Intentional re-sends —
	// the false-positive guard's recheck and SmartVerify's retry —
	// bypass it deliberately.
	cache map[string]cookie.Outcome
}

func (r *run) record(label string, cookies []cookie.Cookie, o cookie.Outcome) {
	r.requests++
	key := label
	if _, exists := r.replays[key]; exists {
		key = fmt.Sprintf("%s#%d", label, r.requests)
	}
	r.replays[key] = cookie.Replay{Label: label, Cookies: cookies, Outcome: o}
}

func (r *run) recordReused(label string, cookies []cookie.Cookie, o cookie.Outcome) {
	key := label
	if _, exists := r.replays[key]; exists {
		key = label + " (cached)"
	}
	r.replays[key] = cookie.Replay{Label: label, Cookies: cookies, Outcome: o}
}

// canonicalKey identifies a cookie set by membership alone, independent
// of order, so two requests carrying the same cookies in different
// orders still dedup.
func canonicalKey(s *cookie.Set) string {
	ids := make([]int, 0, s.Len())
	for _, c := range s.Items() {
		ids = append(ids, int(c.ID()))
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// replay sends a replay for set, unless this run already tested the
// exact same set, in which case the cached outcome is reused (still
// recorded under label for the replay log, but not counted twice
// toward requests_sent).
func (s *Solver) replay(ctx context.Context, rn *run, set *cookie.Set, label string) cookie.Outcome {
	key := canonicalKey(set)
	if o, ok := rn.cache[key]; ok {
		rn.recordReused(label, set.Items(), o)
		return o
	}
	o := s.replayer.ReplayWithCookies(ctx, rn.req, set)
	rn.record(label, set.Items(), o)
	rn.cache[key] = o
	return o
}

// Analyze is the Solver's sole public operation, spec.md §4.2's
// analyze(R, cookies) → V. It is synchronous; callers that want it
// off their own goroutine should wrap the call themselves (see
// AnalyzeAsync).
func (s *Solver) Analyze(ctx context.Context, req hostproxy.Request, cookies []cookie.Cookie) cookie.Verdict {
	rn := &run{
		req:     req,
		all:     cookies,
		replays: make(map[string]cookie.Replay),
		details: make(map[cookie.ID]string),
		cache:   make(map[string]cookie.Outcome),
	}

	full := cookie.NewSet(cookies...)

	// 1. Baseline.
	baselineOutcome := s.replay(ctx, rn, full, "BASELINE")
	if baselineOutcome.Failed || baselineOutcome.Status == 0 {
		s.log.Warn("baseline replay failed", "reason", baselineOutcome.Reason)
		return s.failedVerdict(rn)
	}
	baseline := baselineOutcome

	if len(cookies) == 0 {
		return s.confirmAndBuild(ctx, rn, baseline, nil, nil, nil)
	}

	// 2. Individual.
	var optional0, suspicious []cookie.Cookie
	for _, c := range cookies {
		without := full.Without(c)
		o := s.replay(ctx, rn, without, "WITHOUT:"+c.Name)

		if o.Equivalent(baseline) {
			optional0 = append(optional0, c)
			continue
		}
		if o.Failed {
			rn.details[c.ID()] = "replay failed: " + o.Reason
		}

		if s.DoubleCheckGuard {
			s.sleep(500 * time.Millisecond)
			o2 := s.replayer.ReplayWithCookies(ctx, req, without)
			rn.record("WITHOUT:"+c.Name+" (recheck)", without.Items(), o2)
			// The recheck supersedes the first attempt's outcome for
			// this exact cookie set: later phases that dedup against
			// this set (e.g. Verify testing the same set suspicious
			// happens to produce) must see the corrected result, not
			// the transient one that triggered the recheck.
			rn.cache[canonicalKey(without)] = o2
			if o2.Equivalent(baseline) {
				rn.details[c.ID()] = "reclassified optional after recheck (transient noise on first attempt)"
				optional0 = append(optional0, c)
				continue
			}
		}
		suspicious = append(suspicious, c)
	}

	if len(suspicious) == 0 {
		// Skip straight to Confirm with required = ∅, per spec.md §4.2.
		return s.confirmAndBuild(ctx, rn, baseline, nil, optional0, suspicious)
	}

	// 3. Verify suspicious-only.
	suspiciousSet := cookie.NewSet(suspicious...)
	verifyOutcome := s.replay(ctx, rn, suspiciousSet, "VERIFY:suspicious")

	var working *cookie.Set
	var searched bool
	if verifyOutcome.Equivalent(baseline) {
		working = suspiciousSet
	} else {
		// 4. Search.
		working = s.search(ctx, rn, baseline, suspiciousSet, optional0)
		searched = true
	}

	// 5. Minimize.
	required0 := s.minimize(ctx, rn, baseline, working)

	// 6. SmartVerify.
	unreliable := s.smartVerify(ctx, rn, baseline, required0)

	// 7. Alternatives.
	alternatives := s.alternatives(ctx, rn, baseline, required0, suspiciousSet, searched)

	// 8. Confirm.
	confirmOutcome := s.replay(ctx, rn, required0, "MINIMAL SET")
	if !confirmOutcome.Equivalent(baseline) {
		s.log.Warn("minimal-set confirmation mismatched baseline", "required", required0.Names())
	}

	return s.buildVerdict(rn, baseline, required0, optional0, alternatives, unreliable)
}

// search implements Phase 4: binary search over prefixes of optional0,
// spec.md §4.2 Phase 4.
func (s *Solver) search(ctx context.Context, rn *run, baseline cookie.Outcome, suspicious *cookie.Set, optional0 []cookie.Cookie) *cookie.Set {
	lo, hi := 0, len(optional0)
	for lo < hi {
		mid := (lo + hi) / 2
		candidate := suspicious.Clone()
		for _, c := range optional0[:mid] {
			candidate.Add(c)
		}
		o := s.replay(ctx, rn, candidate, fmt.Sprintf("SEARCH:prefix=%d", mid))
		if o.Equivalent(baseline) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	result := suspicious.Clone()
	for _, c := range optional0[:hi] {
		result.Add(c)
	}
	if hi == len(optional0) {
		// Binary search landed on "everything": no smaller prefix
		// worked, so fall back to the full input set, which needs no
		// further replay because baseline already used it.
		full := cookie.NewSet(rn.all...)
		return full
	}
	return result
}

// minimize implements Phase 5: a single greedy pass over w in input
// order, spec.md §4.2 Phase 5.
func (s *Solver) minimize(ctx context.Context, rn *run, baseline cookie.Outcome, w *cookie.Set) *cookie.Set {
	if w.Len() <= 1 {
		return w.Clone()
	}

	working := w.Clone()
	for _, c := range w.Items() {
		if !working.Contains(c) {
			continue // already removed earlier in this pass
		}
		if working.Len() == 1 {
			break // a singleton is assumed required without a replay
		}
		candidate := working.Without(c)
		o := s.replay(ctx, rn, candidate, "MINIMIZE:without="+c.Name)
		if o.Equivalent(baseline) {
			working = candidate
		}
	}
	return working
}

// smartVerify implements Phase 6, spec.md §4.2 Phase 6.
func (s *Solver) smartVerify(ctx context.Context, rn *run, baseline cookie.Outcome, required0 *cookie.Set) bool {
	o := s.replay(ctx, rn, required0, "SMARTVERIFY")
	if o.Equivalent(baseline) {
		return false
	}

	s.sleep(1 * time.Second)
	o2 := s.replayer.ReplayWithCookies(ctx, rn.req, required0)
	rn.record("SMARTVERIFY:retry", required0.Items(), o2)
	rn.cache[canonicalKey(required0)] = o2
	if o2.Equivalent(baseline) {
		return false
	}

	s.log.Warn("smart-verify failed twice, marking verdict unreliable", "required", required0.Names())
	return true
}

// alternatives implements Phase 7, spec.md §4.2 Phase 7. Candidates
// are normally drawn from suspicious only, matching spec.md §9's
// worst-case-cost formula (O(|required| x |suspicious|)) and the
// request budget spec.md §8 S1 expects. That pool is blind to an
// OR-substitutable cookie (spec.md §8 S2): removing either half of
// such a pair alone never breaks equivalence while its partner is
// still present, so neither half is ever flagged suspicious in Phase
// 2. searched is true exactly when Phase 4 had to widen past
// suspicious-only to reproduce baseline equivalence — the one
// concrete signal that optional cookies may be OR-coupled — and only
// then do we pay for the wider probe over every non-required input
// cookie.
func (s *Solver) alternatives(ctx context.Context, rn *run, baseline cookie.Outcome, required0 *cookie.Set, suspicious *cookie.Set, searched bool) map[cookie.ID][]cookie.Cookie {
	pool := suspicious.Items()
	if searched {
		pool = nil
		for _, c := range rn.all {
			if !required0.Contains(c) {
				pool = append(pool, c)
			}
		}
	}

	out := make(map[cookie.ID][]cookie.Cookie)
	for _, c := range required0.Items() {
		for _, a := range pool {
			if required0.Contains(a) {
				continue // a is already in required0, not a candidate substitute
			}
			candidate := required0.Without(c).With(a)
			o := s.replay(ctx, rn, candidate, fmt.Sprintf("ALT:%s->%s", c.Name, a.Name))
			if o.Equivalent(baseline) {
				out[c.ID()] = append(out[c.ID()], a)
			}
		}
	}
	return out
}

// confirmAndBuild handles the two early-exit paths (zero input
// cookies, and "suspicious = ∅ => required = ∅") that skip straight to
// Confirm per spec.md §4.2.
func (s *Solver) confirmAndBuild(ctx context.Context, rn *run, baseline cookie.Outcome, required0 *cookie.Set, optional0, suspicious []cookie.Cookie) cookie.Verdict {
	if required0 == nil {
		required0 = cookie.NewSet()
	}
	s.replay(ctx, rn, required0, "MINIMAL SET")
	return s.buildVerdict(rn, baseline, required0, optional0, nil, false)
}

func (s *Solver) buildVerdict(rn *run, baseline cookie.Outcome, required0 *cookie.Set, optional0 []cookie.Cookie, alternatives map[cookie.ID][]cookie.Cookie, unreliable bool) cookie.Verdict {
	v := cookie.Verdict{
		Alternatives: alternatives,
		Details:      rn.details,
		Replays:      rn.replays,
		RequestsSent: rn.requests,
		Baseline:     &baseline,
		Unreliable:   unreliable,
	}
	if v.Alternatives == nil {
		v.Alternatives = make(map[cookie.ID][]cookie.Cookie)
	}

	requiredIDs := make(map[cookie.ID]bool, required0.Len())
	for _, c := range required0.Items() {
		requiredIDs[c.ID()] = true
	}
	// Preserve input order for both required and optional, per
	// spec.md §8's ordering invariant.
	for _, c := range rn.all {
		if requiredIDs[c.ID()] {
			v.Required = append(v.Required, c)
		} else {
			v.Optional = append(v.Optional, c)
		}
	}
	return v
}

func (s *Solver) failedVerdict(rn *run) cookie.Verdict {
	v := cookie.NewFailedVerdict(rn.all, rn.requests)
	v.Replays = rn.replays
	return v
}

// AnalyzeAsync runs Analyze on its own goroutine and delivers the
// verdict on the returned channel, matching spec.md §4.2's "runs off
// the caller's thread".
func (s *Solver) AnalyzeAsync(ctx context.Context, req hostproxy.Request, cookies []cookie.Cookie) <-chan cookie.Verdict {
	out := make(chan cookie.Verdict, 1)
	go func() {
		defer close(out)
		out <- s.Analyze(ctx, req, cookies)
	}()
	return out
}
