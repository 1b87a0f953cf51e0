// Package autoprocessor is the classifier's passive listener, spec.md
// §4.3: it observes the host's request/response hooks, extracts
// cookie names, and submits them to the pipeline without ever
// blocking the host's hot path.
package autoprocessor

import (
	"strings"

	"github.com/cookiesolver/cookiesolver/internal/classifier/queue"
	"github.com/cookiesolver/cookiesolver/internal/config"
	"github.com/cookiesolver/cookiesolver/internal/logger"
	"github.com/cookiesolver/cookiesolver/pkg/hostproxy"
)

// Submitter is the subset of Pipeline the auto-processor needs.
type Submitter interface {
	Submit(t queue.Task) bool
}

// AutoProcessor wires hostproxy.Hooks to a Submitter, gated by a
// domain filter, spec.md §4.3.
type AutoProcessor struct {
	submitter Submitter
	scope     hostproxy.Scope
	log       logger.Logger

	mode    config.DomainFilterMode
	domains []string
}

func New(submitter Submitter, scope hostproxy.Scope, mode config.DomainFilterMode, domains []string, log logger.Logger) *AutoProcessor {
	if log == nil {
		log = logger.NewNop()
	}
	return &AutoProcessor{submitter: submitter, scope: scope, mode: mode, domains: domains, log: log}
}

// Attach registers the processor's callbacks on hooks. Both
// callbacks return immediately: the only work performed inline is
// parsing already-in-memory header data and a non-blocking queue
// submit, per spec.md §5's hard requirement on the passive hook.
func (a *AutoProcessor) Attach(hooks hostproxy.Hooks) {
	hooks.OnRequestSent(a.onRequestSent)
	hooks.OnResponseReceived(a.onResponseReceived)
}

func (a *AutoProcessor) onRequestSent(req hostproxy.Request, domain string) {
	if !a.allowed(req.URL(), domain) {
		return
	}
	for _, c := range req.Cookies() {
		a.submitter.Submit(queue.Task{Name: c.Name, Domain: domain, Priority: queue.PriorityAuto})
	}
}

func (a *AutoProcessor) onResponseReceived(req hostproxy.Request, setCookieHeaders []string, domain string) {
	if !a.allowed(req.URL(), domain) {
		return
	}
	for _, header := range setCookieHeaders {
		name, ok := parseSetCookieName(header)
		if !ok {
			continue
		}
		a.submitter.Submit(queue.Task{Name: name, Domain: domain, Priority: queue.PriorityAuto})
	}
}

// parseSetCookieName extracts the cookie name from one Set-Cookie
// header line. spec.md §4.3: "never include the name if it contains
// space or semicolon" — a malformed or attribute-only line is
// silently skipped rather than guessed at. Folded (multi-line)
// Set-Cookie values are not reassembled here, per the Open Question
// decision recorded in SPEC_FULL.md.
func parseSetCookieName(header string) (string, bool) {
	idx := strings.IndexByte(header, '=')
	if idx <= 0 {
		return "", false
	}
	name := header[:idx]
	if strings.ContainsAny(name, " \t;") {
		return "", false
	}
	return name, true
}

// allowed implements the three domain filter modes of spec.md §4.3.
func (a *AutoProcessor) allowed(url, domain string) bool {
	switch a.mode {
	case config.DomainFilterInScope:
		return a.scope != nil && a.scope.IsInScope(url)
	case config.DomainFilterCustomList:
		return matchesAny(domain, a.domains)
	default: // ALL, or unset
		return true
	}
}

// matchesAny implements "exact match or suffix match on either
// direction" from spec.md §4.3: domain matching a configured entry
// either because the entry is a suffix of domain (e.g. configured
// "example.com" matches "login.example.com") or because domain is a
// suffix of the entry (the reverse quirk preserved from the original
// implementation; see SPEC_FULL.md).
func matchesAny(domain string, configured []string) bool {
	for _, d := range configured {
		if d == "" {
			continue
		}
		if domain == d {
			return true
		}
		if strings.HasSuffix(domain, "."+d) || strings.HasSuffix(d, "."+domain) {
			return true
		}
	}
	return false
}

// ReplayHistory scans the host's persisted traffic and enqueues every
// cookie name with Manual priority, spec.md §4.3's replay_history.
// forceRefresh bypasses the worker's store check.
func ReplayHistory(history hostproxy.History, submitter Submitter, domainOf func(hostproxy.Request) string, forceRefresh bool) int {
	submitted := 0
	for _, entry := range history.History() {
		domain := domainOf(entry.Request)
		for _, c := range entry.Request.Cookies() {
			if submitter.Submit(queue.Task{Name: c.Name, Domain: domain, Priority: queue.PriorityManual, ForceRefresh: forceRefresh}) {
				submitted++
			}
		}
	}
	return submitted
}
