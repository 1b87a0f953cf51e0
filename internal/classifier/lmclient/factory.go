package lmclient

import "strings"

// New selects the wire profile by provider name, spec.md §9's
// "model as a small interface with two implementations selected by
// configuration, not by subclassing".
func New(provider, endpoint, apiKey, model string) Client {
	if strings.EqualFold(provider, "Anthropic") {
		return NewMessagesClient(endpoint, apiKey, model)
	}
	return NewChatCompletionClient(endpoint, apiKey, model)
}
