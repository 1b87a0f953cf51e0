package lmclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/cookiesolver/cookiesolver/pkg/descriptor"
)

// ChatCompletionClient targets OpenAI-shaped `/chat/completions`
// APIs, spec.md §6's "chat-completion profile".
type ChatCompletionClient struct {
	BaseURL string
	APIKey  string
	Model   string
	http    *http.Client
}

func NewChatCompletionClient(baseURL, apiKey, model string) *ChatCompletionClient {
	return &ChatCompletionClient{BaseURL: baseURL, APIKey: apiKey, Model: model, http: newHTTPClient()}
}

func (c *ChatCompletionClient) buildBody(name, domain string) ([]byte, error) {
	body := "{}"
	var err error
	body, err = sjson.Set(body, "model", c.Model)
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "messages.0.role", "system")
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "messages.0.content", systemPrompt)
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "messages.1.role", "user")
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "messages.1.content", userPrompt(name, domain))
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "temperature", 0.0)
	if err != nil {
		return nil, err
	}
	body, err = sjson.Set(body, "max_tokens", 500)
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (c *ChatCompletionClient) headers() map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if c.APIKey != "" {
		h["Authorization"] = "Bearer " + c.APIKey
	}
	return h
}

func (c *ChatCompletionClient) Classify(ctx context.Context, name, domain string) (descriptor.Descriptor, string, error) {
	body, err := c.buildBody(name, domain)
	if err != nil {
		return descriptor.Descriptor{}, "", fmt.Errorf("%w: building request body: %v", ErrLMUnavailable, err)
	}

	status, respBody, err := doRequest(ctx, c.http, http.MethodPost, c.BaseURL+"/chat/completions", body, c.headers())
	if err != nil {
		return descriptor.Descriptor{}, "", err
	}
	if status < 200 || status >= 300 {
		return descriptor.Descriptor{}, string(respBody), fmt.Errorf("%w: status %d", ErrLMUnavailable, status)
	}

	content := gjson.GetBytes(respBody, "choices.0.message.content").String()
	d, err := parseDescriptor(name, domain, content)
	return d, content, err
}

func (c *ChatCompletionClient) ListModels(ctx context.Context) ([]string, error) {
	status, respBody, err := doRequest(ctx, c.http, http.MethodGet, c.BaseURL+"/models", nil, c.headers())
	if err != nil || status < 200 || status >= 300 {
		return staticModelFallback, nil
	}
	ids := gjson.GetBytes(respBody, "data.#.id").Array()
	if len(ids) == 0 {
		return staticModelFallback, nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out, nil
}

func (c *ChatCompletionClient) TestConnection(ctx context.Context) error {
	_, _, err := c.Classify(ctx, "test", "example.com")
	return err
}
