package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/adanalyst/internal/dataset"
)

// DefaultConfidence is assumed when the model omits a hypothesis confidence.
const DefaultConfidence = 0.5

// InsightAgent asks the model for hypotheses explaining the summary.
type InsightAgent struct {
	asker StructuredAsker
	opts  options
}

// NewInsightAgent creates an InsightAgent.
func NewInsightAgent(asker StructuredAsker, opts ...Option) (*InsightAgent, error) {
	if asker == nil {
		return nil, fmt.Errorf("asker cannot be nil")
	}
	return &InsightAgent{asker: asker, opts: applyOptions("insight", opts)}, nil
}

// Generate returns the model's hypotheses. Contract violations are reported
// in Insights.Error with an empty hypothesis list.
func (a *InsightAgent) Generate(ctx context.Context, summary *dataset.Summary) (Insights, error) {
	if summary == nil {
		return Insights{}, fmt.Errorf("summary cannot be nil")
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return Insights{}, fmt.Errorf("encoding summary: %w", err)
	}

	res := a.asker.AskStructured(ctx, insightSystemPrompt, fmt.Sprintf(insightUserPrompt, data))
	c := checkList(res, "hypotheses")
	if c.err != "" {
		a.opts.logger.Warn(ctx, "insight response rejected", zap.String("error", c.err))
		return Insights{Hypotheses: []Hypothesis{}, Raw: c.raw, Error: c.err}, nil
	}

	out := Insights{Hypotheses: make([]Hypothesis, 0, len(c.items))}
	for _, item := range c.items {
		f, ok := objectAt(item)
		if !ok {
			continue
		}
		out.Hypotheses = append(out.Hypotheses, Hypothesis{
			Reason:     f.str("reason"),
			Evidence:   f.str("evidence"),
			Metric:     f.str("metric"),
			Confidence: f.float("confidence", DefaultConfidence),
		})
	}
	if len(out.Hypotheses) == 0 {
		out.Error = "LLM returned empty hypotheses list"
	}
	a.opts.logger.Debug(ctx, "hypotheses generated", zap.Int("count", len(out.Hypotheses)))
	return out, nil
}
