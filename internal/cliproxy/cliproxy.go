// Package cliproxy is a minimal standalone host-proxy implementation
// for the CLI front end: it reads a raw captured HTTP request from a
// file and replays it with a plain net/http client, so the core can
// be exercised without a real interactive proxy host attached.
package cliproxy

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/cookiesolver/cookiesolver/pkg/cookie"
	"github.com/cookiesolver/cookiesolver/pkg/hostproxy"
)

// Request adapts a parsed *http.Request to hostproxy.Request.
type Request struct {
	raw  *http.Request
	body []byte
}

// LoadRequest reads a raw HTTP request (request-line, headers, blank
// line, optional body) from path, the on-disk equivalent of a
// captured request a real host would hand to the core.
func LoadRequest(path string) (*Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open captured request %q: %w", path, err)
	}
	defer f.Close()

	req, err := http.ReadRequest(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("parse captured request %q: %w", path, err)
	}
	var body []byte
	if req.Body != nil {
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read captured request body %q: %w", path, err)
		}
		req.Body.Close()
	}

	if req.URL.Scheme == "" {
		req.URL.Scheme = "https"
	}
	if req.URL.Host == "" {
		req.URL.Host = req.Host
	}

	return &Request{raw: req, body: body}, nil
}

func (r *Request) URL() string { return r.raw.URL.String() }

func (r *Request) Cookies() []cookie.Cookie {
	out := make([]cookie.Cookie, 0, len(r.raw.Cookies()))
	for i, c := range r.raw.Cookies() {
		out = append(out, cookie.NewCookie(cookie.ID(i), c.Name, c.Value))
	}
	return out
}

// WithCookiesOnly rebuilds the Cookie header to carry exactly s, in
// order, leaving every other header untouched. It never mutates the
// receiver, per hostproxy.Request's contract.
func (r *Request) WithCookiesOnly(s *cookie.Set) hostproxy.Request {
	clone := r.raw.Clone(r.raw.Context())
	clone.Header.Del("Cookie")
	if s.Len() > 0 {
		var buf bytes.Buffer
		for i, c := range s.Items() {
			if i > 0 {
				buf.WriteString("; ")
			}
			buf.WriteString(c.Name)
			buf.WriteByte('=')
			buf.WriteString(c.Value)
		}
		clone.Header.Set("Cookie", buf.String())
	}
	return &Request{raw: clone, body: r.body}
}

// Sender performs the actual network replay over a plain net/http
// client, deliberately separate from any proxying layer: this is the
// CLI's own traffic, not traffic the core needs to intercept.
type Sender struct {
	client *http.Client
}

func NewSender() *Sender {
	return &Sender{client: &http.Client{}}
}

func (s *Sender) Send(ctx context.Context, req hostproxy.Request) (*hostproxy.Response, error) {
	cr, ok := req.(*Request)
	if !ok {
		return nil, fmt.Errorf("cliproxy: unsupported request type %T", req)
	}

	outReq := cr.raw.Clone(ctx)
	outReq.RequestURI = ""
	if len(cr.body) > 0 {
		outReq.Body = io.NopCloser(bytes.NewReader(cr.body))
		outReq.ContentLength = int64(len(cr.body))
	}

	resp, err := s.client.Do(outReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &hostproxy.Response{StatusCode: resp.StatusCode, Body: body, Headers: resp.Header}, nil
}

// AllScope treats every URL as in-scope, a safe default for the CLI
// where there is no real target-scope configuration.
type AllScope struct{}

func (AllScope) IsInScope(string) bool { return true }
