// Package lmclient adapts to a language-model HTTP API to classify
// cookie names, spec.md §4.3 and §6. Two wire-format profiles are
// supported behind one interface, selected by configuration rather
// than by subclassing, per spec.md §9's polymorphism note.
package lmclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/cookiesolver/cookiesolver/pkg/descriptor"
)

// ErrLMUnavailable is spec.md §7's LMUnavailable: HTTP error,
// timeout, or malformed JSON from the LM.
var ErrLMUnavailable = errors.New("lmclient: language model unavailable")

// CallTimeout bounds every LM HTTP call, spec.md §4.3.
const CallTimeout = 30 * time.Second

// Client is the adapter's public surface. Both wire profiles satisfy it.
type Client interface {
	// Classify asks the LM to describe a cookie name observed on
	// domain, returning the parsed descriptor and the raw response
	// text (for ai_query_cache audit).
	Classify(ctx context.Context, name, domain string) (descriptor.Descriptor, string, error)
	// ListModels returns available model ids, or a static fallback
	// for profiles with no listing endpoint.
	ListModels(ctx context.Context) ([]string, error)
	// TestConnection verifies the endpoint and credentials are
	// reachable by classifying a probe cookie name.
	TestConnection(ctx context.Context) error
}

// staticModelFallback is returned by ListModels when a profile has no
// `/models` endpoint, or when the listing request fails or lists no
// models, spec.md §4.3's "Model listing".
var staticModelFallback = []string{"gpt-4", "gpt-4o", "gpt-3.5-turbo"}

const systemPrompt = `You classify HTTP cookies. Given a cookie name and the domain it was observed on, respond with ONLY a JSON object with these fields: vendor (string, company or product that sets the cookie, "" if unknown), category (one of "Essential", "Analytics", "Advertising", "Functional", "Performance", "SocialMedia", "Security", "Personalization", "Unknown"), purpose (short string), sensitivity ("Low", "Medium", "High", or "Critical"), third_party (bool), typical_expiration (short string, e.g. "session" or "2 years"), common_domains (array of strings, other domains this cookie name is commonly seen on), notes (short string, any caveats), confidence (float 0-1). Do not include any text outside the JSON object.`

func userPrompt(name, domain string) string {
	return fmt.Sprintf("Cookie name: %s\nObserved on domain: %s", name, domain)
}

// stripFences removes ```json ... ``` or ``` ... ``` wrapping, per
// spec.md §4.3's "tolerates the response being wrapped in fenced code
// blocks".
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "" || !strings.ContainsAny(first, "{") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseDescriptor turns the LM's JSON document into a Descriptor,
// defaulting confidence to 0.7 when absent, spec.md §4.3.
func parseDescriptor(name, domain, raw string) (descriptor.Descriptor, error) {
	body := stripFences(raw)
	if !gjson.Valid(body) {
		return descriptor.Descriptor{}, fmt.Errorf("%w: invalid JSON in LM response", ErrLMUnavailable)
	}
	result := gjson.Parse(body)

	confidence := descriptor.DefaultConfidence
	if c := result.Get("confidence"); c.Exists() {
		confidence = c.Float()
	}

	var commonDomains []string
	for _, v := range result.Get("common_domains").Array() {
		if s := v.String(); s != "" {
			commonDomains = append(commonDomains, s)
		}
	}

	return descriptor.Descriptor{
		Name:              name,
		Domain:            domain,
		Vendor:            result.Get("vendor").String(),
		Category:          descriptor.Category(result.Get("category").String()),
		Purpose:           result.Get("purpose").String(),
		Sensitivity:       descriptor.Sensitivity(result.Get("sensitivity").String()),
		ThirdParty:        result.Get("third_party").Bool(),
		TypicalExpiration: result.Get("typical_expiration").String(),
		CommonDomains:     commonDomains,
		Notes:             result.Get("notes").String(),
		Confidence:        confidence,
		Source:            descriptor.SourceAI,
	}, nil
}

// newHTTPClient returns an http.Client with its own default
// transport, deliberately NOT the host's intercepting transport:
// spec.md §4.3, "MUST NOT route through the host proxy (it would
// recursively intercept itself)".
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: http.DefaultTransport,
		Timeout:   CallTimeout,
	}
}

func doRequest(ctx context.Context, client *http.Client, method, url string, body []byte, headers map[string]string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: building request: %v", ErrLMUnavailable, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrLMUnavailable, err)
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: reading response: %v", ErrLMUnavailable, err)
	}
	return resp.StatusCode, buf.Bytes(), nil
}
