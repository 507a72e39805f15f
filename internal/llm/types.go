package llm

import (
	"context"
	"errors"
)

// SentinelText is returned as a successful completion when every model in
// the cascade failed or was rejected. Downstream stages detect it as a
// contract violation rather than an exception.
const SentinelText = "Model failed to produce a valid response."

var (
	// ErrStatus marks a non-2xx response from the completion service.
	ErrStatus = errors.New("unexpected status")

	// ErrMalformedResponse marks a 2xx response without usable content.
	ErrMalformedResponse = errors.New("malformed completion response")

	// ErrMissingAPIKey is returned when a transport is built without credentials.
	ErrMissingAPIKey = errors.New("completion API key required")
)

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single call to one model.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// RequestTemplate is the model-independent part of a request. The cascade
// stamps a model onto it once per attempt.
type RequestTemplate struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// ForModel builds the request sent to model.
func (t RequestTemplate) ForModel(model string) CompletionRequest {
	return CompletionRequest{
		Model: model,
		Messages: []Message{
			{Role: RoleSystem, Content: t.SystemPrompt},
			{Role: RoleUser, Content: t.UserPrompt},
		},
		MaxTokens:   t.MaxTokens,
		Temperature: t.Temperature,
	}
}

// Completer sends one request to the completion service and returns the
// raw text of the first choice. Transport failures, non-2xx statuses and
// malformed envelopes are all errors.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Outcome is the result of one model attempt: Success with text or Failure
// with a reason.
type Outcome struct {
	ok     bool
	text   string
	reason string
}

// Success wraps accepted text.
func Success(text string) Outcome {
	return Outcome{ok: true, text: text}
}

// Failure wraps the reason an attempt produced nothing usable.
func Failure(reason string) Outcome {
	return Outcome{reason: reason}
}

// OK reports whether the outcome is a Success.
func (o Outcome) OK() bool { return o.ok }

// Text returns the text of a Success, or "".
func (o Outcome) Text() string { return o.text }

// Reason returns the reason of a Failure, or "".
func (o Outcome) Reason() string { return o.reason }

// IsSentinel reports whether o is the exhaustion sentinel.
func (o Outcome) IsSentinel() bool { return o.ok && o.text == SentinelText }
