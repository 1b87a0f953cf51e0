package lmclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFencesRemovesJSONFence(t *testing.T) {
	in := "```json\n{\"category\":\"session\"}\n```"
	assert.Equal(t, `{"category":"session"}`, stripFences(in))
}

func TestStripFencesRemovesBareFence(t *testing.T) {
	in := "```\n{\"category\":\"session\"}\n```"
	assert.Equal(t, `{"category":"session"}`, stripFences(in))
}

func TestStripFencesLeavesUnfencedBodyUntouched(t *testing.T) {
	in := `{"category":"session"}`
	assert.Equal(t, in, stripFences(in))
}

func TestParseDescriptorDefaultsMissingConfidence(t *testing.T) {
	d, err := parseDescriptor("sid", "example.com", `{"category":"session","purpose":"auth","sensitivity":"High","third_party":false}`)
	require.NoError(t, err)
	assert.Equal(t, 0.7, d.Confidence)
	assert.Equal(t, "session", string(d.Category))
}

func TestParseDescriptorHonorsExplicitConfidence(t *testing.T) {
	d, err := parseDescriptor("sid", "example.com", `{"category":"session","confidence":0.42}`)
	require.NoError(t, err)
	assert.Equal(t, 0.42, d.Confidence)
}

func TestParseDescriptorInvalidJSONIsLMUnavailable(t *testing.T) {
	_, err := parseDescriptor("sid", "example.com", "not json at all")
	assert.True(t, errors.Is(err, ErrLMUnavailable))
}

func TestParseDescriptorStripsFencesBeforeParsing(t *testing.T) {
	d, err := parseDescriptor("sid", "example.com", "```json\n{\"category\":\"auth\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "auth", string(d.Category))
}
