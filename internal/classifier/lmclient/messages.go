package lmclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/cookiesolver/cookiesolver/pkg/descriptor"
)

// anthropicVersion is the fixed header value the messages profile
// requires, spec.md §6.
const anthropicVersion = "2023-06-01"

// MessagesClient targets the Claude-shaped `/messages` API,
// spec.md §6's "Messages profile".
type MessagesClient struct {
	BaseURL string
	APIKey  string
	Model   string
	http    *http.Client
}

func NewMessagesClient(baseURL, apiKey, model string) *MessagesClient {
	return &MessagesClient{BaseURL: baseURL, APIKey: apiKey, Model: model, http: newHTTPClient()}
}

func (c *MessagesClient) buildBody(name, domain string) ([]byte, error) {
	body := "{}"
	var err error
	body, err = sjson.Set(body, "model", c.Model)
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "system", systemPrompt)
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "messages.0.role", "user")
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "messages.0.content", userPrompt(name, domain))
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "temperature", 0.0)
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "max_tokens", 1024)
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (c *MessagesClient) headers() map[string]string {
	return map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         c.APIKey,
		"anthropic-version": anthropicVersion,
	}
}

func (c *MessagesClient) Classify(ctx context.Context, name, domain string) (descriptor.Descriptor, string, error) {
	body, err := c.buildBody(name, domain)
	if err != nil {
		return descriptor.Descriptor{}, "", fmt.Errorf("%w: building request body: %v", ErrLMUnavailable, err)
	}

	status, respBody, err := doRequest(ctx, c.http, http.MethodPost, c.BaseURL+"/messages", body, c.headers())
	if err != nil {
		return descriptor.Descriptor{}, "", err
	}
	if status < 200 || status >= 300 {
		return descriptor.Descriptor{}, string(respBody), fmt.Errorf("%w: status %d", ErrLMUnavailable, status)
	}

	content := gjson.GetBytes(respBody, "content.0.text").String()
	d, err := parseDescriptor(name, domain, content)
	return d, content, err
}

// ListModels: the messages profile exposes no listing endpoint,
// spec.md §4.3 — "profiles that don't support it fall back to a
// static list."
func (c *MessagesClient) ListModels(ctx context.Context) ([]string, error) {
	return staticModelFallback, nil
}

func (c *MessagesClient) TestConnection(ctx context.Context) error {
	_, _, err := c.Classify(ctx, "test", "example.com")
	return err
}
