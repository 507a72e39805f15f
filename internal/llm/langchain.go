package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// LangchainCompleter implements Completer on top of a langchaingo model.
// The model name is chosen per call, so one client serves the whole cascade.
type LangchainCompleter struct {
	model llms.Model
}

// NewLangchainCompleter builds a langchaingo OpenAI client against cfg.BaseURL.
func NewLangchainCompleter(cfg HTTPConfig) (*LangchainCompleter, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			referer: cfg.Referer,
			title:   cfg.Title,
		},
	}

	model, err := openai.New(
		openai.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		openai.WithToken(cfg.APIKey),
		openai.WithHTTPClient(client),
	)
	if err != nil {
		return nil, fmt.Errorf("creating langchaingo client: %w", err)
	}
	return NewLangchainCompleterWith(model), nil
}

// NewLangchainCompleterWith wraps an existing langchaingo model.
func NewLangchainCompleterWith(model llms.Model) *LangchainCompleter {
	return &LangchainCompleter{model: model}
}

// Complete implements Completer.
func (c *LangchainCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	msgs := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := schema.ChatMessageTypeHuman
		if m.Role == RoleSystem {
			role = schema.ChatMessageTypeSystem
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}

	opts := []llms.CallOption{
		llms.WithModel(req.Model),
		llms.WithTemperature(req.Temperature),
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}
	return content, nil
}

// headerTransport adds the OpenRouter attribution headers.
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.referer == "" && t.title == "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	if t.referer != "" {
		r.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		r.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(r)
}
