package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/adanalyst/internal/extraction"
	"github.com/fyrsmithlabs/adanalyst/internal/logging"
	"github.com/fyrsmithlabs/adanalyst/internal/metrics"
)

// CascadeConfig holds the model order and per-request parameters.
type CascadeConfig struct {
	// Models is tried in order; the first accepted response wins.
	Models []string
	// Timeout bounds each model attempt.
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// Cascade tries models in preference order until one produces a response the
// validator accepts. It never returns an error: exhausting every model yields
// Success(SentinelText).
type Cascade struct {
	completer Completer
	validator ResponseValidator
	cfg       CascadeConfig
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// NewCascade creates a Cascade. cfg.Models is copied.
func NewCascade(completer Completer, validator ResponseValidator, cfg CascadeConfig, logger *logging.Logger, m *metrics.Metrics) *Cascade {
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	cfg.Models = append([]string(nil), cfg.Models...)
	return &Cascade{
		completer: completer,
		validator: validator,
		cfg:       cfg,
		logger:    logger.Named("cascade"),
		metrics:   m,
	}
}

// Complete runs tmpl against models in order. Each model is attempted at
// most once. A cancelled ctx stops the cascade before the next attempt.
func (c *Cascade) Complete(ctx context.Context, tmpl RequestTemplate, models []string) Outcome {
	for _, model := range models {
		if err := ctx.Err(); err != nil {
			c.logger.Warn(ctx, "cascade cancelled", zap.Error(err))
			break
		}
		outcome := c.attempt(ctx, tmpl, model)
		if outcome.OK() {
			return outcome
		}
	}

	c.metrics.RecordExhausted()
	c.logger.Warn(ctx, "no model produced a valid response", zap.Int("models", len(models)))
	return Success(SentinelText)
}

func (c *Cascade) attempt(ctx context.Context, tmpl RequestTemplate, model string) Outcome {
	start := time.Now()

	raw, err := c.call(ctx, tmpl.ForModel(model))
	latency := time.Since(start)
	if err != nil {
		c.metrics.RecordAttempt(model, metrics.ResultFailed, latency)
		c.logger.Warn(ctx, "model attempt failed",
			zap.String("model", model),
			zap.Duration("latency", latency),
			zap.String("reason", err.Error()))
		return Failure(err.Error())
	}
	c.logger.Trace(ctx, "model raw response", zap.String("model", model), zap.String("body", raw))

	clean := extraction.Sanitize(raw)
	verdict := c.validator.Validate(ctx, clean, tmpl.UserPrompt)

	fields := []zap.Field{
		zap.String("model", model),
		zap.Duration("latency", latency),
		zap.String("reason", verdict.Reason),
	}
	if verdict.Similarity != nil {
		fields = append(fields, zap.Float64("similarity", *verdict.Similarity))
	}

	if !verdict.Accepted {
		c.metrics.RecordAttempt(model, metrics.ResultRejected, latency)
		c.logger.Info(ctx, "model response rejected", fields...)
		return Failure("rejected: " + verdict.Reason)
	}
	c.metrics.RecordAttempt(model, metrics.ResultAccepted, latency)
	c.logger.Info(ctx, "model response accepted", fields...)
	return Success(clean)
}

// call bounds one completion by the configured timeout.
func (c *Cascade) call(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return c.completer.Complete(ctx, req)
}

// Ask runs the configured model order and returns the accepted text or the
// sentinel.
func (c *Cascade) Ask(ctx context.Context, system, user string) string {
	return c.Complete(ctx, RequestTemplate{
		SystemPrompt: system,
		UserPrompt:   user,
		MaxTokens:    c.cfg.MaxTokens,
		Temperature:  c.cfg.Temperature,
	}, c.cfg.Models).Text()
}

// AskStructured is Ask followed by structured extraction.
func (c *Cascade) AskStructured(ctx context.Context, system, user string) extraction.Result {
	res := extraction.Extract(c.Ask(ctx, system, user))
	c.metrics.RecordExtraction(string(res.Strategy()))
	c.logger.Debug(ctx, "structured extraction", zap.String("strategy", string(res.Strategy())))
	return res
}
