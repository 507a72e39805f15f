package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangchainCompleter_Complete(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: " grounded answer \n"}},
	}}
	c := NewLangchainCompleterWith(model)

	text, err := c.Complete(context.Background(), testTemplate.ForModel("meta-llama/llama-3-8b-instruct"))
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", text)

	require.Len(t, model.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.TextContent{Text: "user question"}, model.messages[1].Parts[0])

	assert.Equal(t, "meta-llama/llama-3-8b-instruct", model.opts.Model)
	assert.Equal(t, 100, model.opts.MaxTokens)
	assert.InDelta(t, 0.3, model.opts.Temperature, 1e-9)
}

func TestLangchainCompleter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		model   *fakeModel
		wantErr error
	}{
		{"transport", &fakeModel{err: errors.New("dial tcp: refused")}, nil},
		{"nil response", &fakeModel{}, ErrMalformedResponse},
		{"no choices", &fakeModel{resp: &llms.ContentResponse{}}, ErrMalformedResponse},
		{"blank content", &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "  "}}}}, ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLangchainCompleterWith(tt.model).Complete(context.Background(), testTemplate.ForModel("m"))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewLangchainCompleter_RequiresKey(t *testing.T) {
	_, err := NewLangchainCompleter(HTTPConfig{BaseURL: "https://openrouter.ai/api/v1"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestHeaderTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://example.com", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "adanalyst", r.Header.Get("X-Title"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := &http.Client{Transport: &headerTransport{
		base:    http.DefaultTransport,
		referer: "https://example.com",
		title:   "adanalyst",
	}}
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get("X-Title"), "original request must not be mutated")
}
