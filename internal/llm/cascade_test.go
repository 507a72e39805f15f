package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/adanalyst/internal/extraction"
	"github.com/fyrsmithlabs/adanalyst/internal/logging"
	"github.com/fyrsmithlabs/adanalyst/internal/metrics"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func forModel(model string) interface{} {
	return mock.MatchedBy(func(r CompletionRequest) bool { return r.Model == model })
}

// acceptFunc adapts a predicate into a ResponseValidator.
type acceptFunc func(response string) bool

func (f acceptFunc) Validate(_ context.Context, response, _ string) Verdict {
	if f(response) {
		return Verdict{Accepted: true, Reason: "ok"}
	}
	return Verdict{Reason: "rejected by test"}
}

func acceptAll(string) bool { return true }

func newTestCascade(c Completer, v ResponseValidator, logger *logging.Logger, m *metrics.Metrics) *Cascade {
	return NewCascade(c, v, CascadeConfig{
		Models:      []string{"a", "b", "c"},
		Timeout:     time.Second,
		MaxTokens:   2000,
		Temperature: 0.3,
	}, logger, m)
}

var testTemplate = RequestTemplate{SystemPrompt: "sys", UserPrompt: "user question", MaxTokens: 100, Temperature: 0.3}

func TestCascade_ShortCircuitsOnFirstAccepted(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, forModel("a")).Return("first answer", nil).Once()

	c := newTestCascade(completer, acceptFunc(acceptAll), nil, nil)
	out := c.Complete(context.Background(), testTemplate, []string{"a", "b", "c"})

	require.True(t, out.OK())
	assert.Equal(t, "first answer", out.Text())
	assert.False(t, out.IsSentinel())
	completer.AssertNumberOfCalls(t, "Complete", 1)
	completer.AssertNotCalled(t, "Complete", mock.Anything, forModel("b"))
	completer.AssertNotCalled(t, "Complete", mock.Anything, forModel("c"))
}

func TestCascade_ContinuesPastFailuresAndRejections(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, forModel("a")).Return("", ErrStatus).Once()
	completer.On("Complete", mock.Anything, forModel("b")).Return("sorry", nil).Once()
	completer.On("Complete", mock.Anything, forModel("c")).Return("good answer", nil).Once()

	v := acceptFunc(func(s string) bool { return s == "good answer" })
	logger := logging.NewTestLogger()
	m := metrics.New()

	out := newTestCascade(completer, v, logger.Logger, m).Complete(context.Background(), testTemplate, []string{"a", "b", "c"})

	require.True(t, out.OK())
	assert.Equal(t, "good answer", out.Text())
	completer.AssertExpectations(t)

	logger.AssertLogged(t, zapcore.WarnLevel, "model attempt failed")
	logger.AssertLogged(t, zapcore.InfoLevel, "model response rejected")
	logger.AssertLogged(t, zapcore.InfoLevel, "model response accepted")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("a", metrics.ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("b", metrics.ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("c", metrics.ResultAccepted)))
	assert.Zero(t, testutil.ToFloat64(m.ExhaustedTotal))
}

func TestCascade_ExhaustionReturnsSentinel(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).Return("I cannot help", nil)

	m := metrics.New()
	c := newTestCascade(completer, acceptFunc(func(string) bool { return false }), nil, m)
	out := c.Complete(context.Background(), testTemplate, []string{"a", "b", "c"})

	require.True(t, out.OK(), "exhaustion must not surface as a failure")
	assert.Equal(t, SentinelText, out.Text())
	assert.True(t, out.IsSentinel())
	completer.AssertNumberOfCalls(t, "Complete", 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExhaustedTotal))
}

func TestCascade_EachModelTriedOnce(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))

	c := newTestCascade(completer, acceptFunc(acceptAll), nil, nil)
	out := c.Complete(context.Background(), testTemplate, []string{"a", "b"})

	assert.True(t, out.IsSentinel())
	completer.AssertNumberOfCalls(t, "Complete", 2)
	completer.AssertCalled(t, "Complete", mock.Anything, forModel("a"))
	completer.AssertCalled(t, "Complete", mock.Anything, forModel("b"))
}

func TestCascade_EmptyModelList(t *testing.T) {
	completer := &mockCompleter{}
	out := newTestCascade(completer, acceptFunc(acceptAll), nil, nil).Complete(context.Background(), testTemplate, nil)

	assert.True(t, out.IsSentinel())
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestCascade_OnlyModelVaries(t *testing.T) {
	var seen []CompletionRequest
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { seen = append(seen, args.Get(1).(CompletionRequest)) }).
		Return("", ErrMalformedResponse)

	newTestCascade(completer, acceptFunc(acceptAll), nil, nil).Complete(context.Background(), testTemplate, []string{"a", "b"})

	require.Len(t, seen, 2)
	assert.Equal(t, "a", seen[0].Model)
	assert.Equal(t, "b", seen[1].Model)
	seen[1].Model = "a"
	assert.Equal(t, seen[0], seen[1])
	assert.Equal(t, []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "user question"}}, seen[0].Messages)
}

func TestCascade_SanitizesBeforeValidation(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, forModel("a")).Return("**bold**\n\n# heading", nil)

	var validated string
	v := acceptFunc(func(s string) bool { validated = s; return true })
	out := newTestCascade(completer, v, nil, nil).Complete(context.Background(), testTemplate, []string{"a"})

	assert.Equal(t, "bold heading", validated)
	assert.Equal(t, "bold heading", out.Text())
}

func TestCascade_AppliesPerAttemptTimeout(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, forModel("a")).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			deadline, ok := ctx.Deadline()
			assert.True(t, ok, "attempt context must carry a deadline")
			assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
		}).
		Return("answer", nil)

	newTestCascade(completer, acceptFunc(acceptAll), nil, nil).Complete(context.Background(), testTemplate, []string{"a"})
	completer.AssertExpectations(t)
}

func TestCascade_CancelledContextStopsBeforeNextAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, forModel("a")).
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled)

	out := newTestCascade(completer, acceptFunc(acceptAll), nil, nil).Complete(ctx, testTemplate, []string{"a", "b", "c"})

	assert.True(t, out.IsSentinel())
	completer.AssertNumberOfCalls(t, "Complete", 1)
}

func TestCascade_AskStructured(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, forModel("a")).
		Return("Here you go: {\"tasks\": [\"load data\"]} hope it helps", nil)

	m := metrics.New()
	res := newTestCascade(completer, acceptFunc(acceptAll), nil, m).AskStructured(context.Background(), "sys", "plan it")

	require.True(t, res.IsStructured())
	assert.Equal(t, extraction.StrategyBraceScan, res.Strategy())
	assert.Equal(t, []any{"load data"}, res.Value()["tasks"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionsTotal.WithLabelValues(string(extraction.StrategyBraceScan))))
}

func TestCascade_AskUsesConfiguredParameters(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(r CompletionRequest) bool {
		return r.Model == "a" && r.MaxTokens == 2000 && r.Temperature == 0.3 &&
			strings.Contains(r.Messages[1].Content, "why")
	})).Return("because", nil)

	got := newTestCascade(completer, acceptFunc(acceptAll), nil, nil).Ask(context.Background(), "sys", "why")
	assert.Equal(t, "because", got)
}
