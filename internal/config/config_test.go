package config

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.LLM.Models = nil
	cfg.LLM.MaxTokens = 0
	cfg.Paths.Reports = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.models")
	assert.Contains(t, err.Error(), "llm.max_tokens")
	assert.Contains(t, err.Error(), "paths.data")
}

func TestValidate_EmptyModelEntry(t *testing.T) {
	cfg := Default()
	cfg.LLM.Models = []string{"a", ""}
	assert.ErrorContains(t, cfg.Validate(), "llm.models[1]")
}

func TestSecret_NeverLeaks(t *testing.T) {
	s := Secret("sk-live-123")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "sk-live")

	data, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"[REDACTED]"}`, string(data))

	out, err := yaml.Marshal(Default())
	require.NoError(t, err)
	assert.NotContains(t, string(out), "sk-live")

	assert.Equal(t, "sk-live-123", s.Value())
	assert.Equal(t, "", Secret("").String())
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, "1m30s", d.Duration().String())

	assert.Error(t, d.UnmarshalText([]byte("soon")))
	assert.Error(t, d.UnmarshalText([]byte("-2s")))
}
