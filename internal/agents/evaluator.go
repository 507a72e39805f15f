package agents

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/adanalyst/internal/dataset"
)

// SupportBonus is added to the model's confidence when a rule found numeric
// support for a hypothesis.
const SupportBonus = 0.2

// Evaluator checks hypotheses against the summary numbers. It does not call
// the model.
type Evaluator struct {
	opts options
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	return &Evaluator{opts: applyOptions("evaluator", opts)}
}

// summaryFacts are the numbers the rules compare against.
type summaryFacts struct {
	ctrChange  float64
	roasChange float64
	videoCTR   *float64
	imageCTR   *float64
	// audienceCTR is the mean CTR across audiences, nil without audience rows.
	audienceCTR *float64
}

func factsFrom(s *dataset.Summary) summaryFacts {
	var f summaryFacts
	if n := len(s.DailySummary); n >= 2 {
		f.ctrChange = s.DailySummary[n-1].CTR - s.DailySummary[n-2].CTR
		f.roasChange = s.DailySummary[n-1].ROAS - s.DailySummary[n-2].ROAS
	}
	for _, row := range s.CreativeSummary {
		switch strings.ToLower(row.CreativeType) {
		case "video":
			if f.videoCTR == nil {
				f.videoCTR = ptr(row.CTR)
			}
		case "image":
			if f.imageCTR == nil {
				f.imageCTR = ptr(row.CTR)
			}
		}
	}
	if len(s.AudienceSummary) > 0 {
		var sum float64
		for _, row := range s.AudienceSummary {
			sum += row.CTR
		}
		mean := sum / float64(len(s.AudienceSummary))
		f.audienceCTR = &mean
	}
	return f
}

// Validate applies the rules to every hypothesis. Rules are checked in order
// and a later match overrides an earlier one:
//
//   - "ctr" and "drop": support is the latest day-over-day CTR change, validated when negative
//   - "roas" and "drop": the same for ROAS
//   - "video" and "image": support is video CTR minus image CTR, validated when positive
//   - "audience": support is the mean audience CTR, always validated
//
// in.Error is carried over to the result.
func (e *Evaluator) Validate(ctx context.Context, in Insights, summary *dataset.Summary) (Validated, error) {
	if summary == nil {
		return Validated{}, fmt.Errorf("summary cannot be nil")
	}
	facts := factsFrom(summary)

	out := Validated{
		ValidatedHypotheses: make([]ValidatedHypothesis, 0, len(in.Hypotheses)),
		Error:               in.Error,
	}
	supported := 0
	for _, h := range in.Hypotheses {
		vh := evaluate(h, facts)
		if vh.NumericSupport != nil {
			supported++
		}
		out.ValidatedHypotheses = append(out.ValidatedHypotheses, vh)
	}

	e.opts.logger.Debug(ctx, "hypotheses evaluated",
		zap.Int("count", len(out.ValidatedHypotheses)),
		zap.Int("supported", supported),
		zap.Float64("ctr_change", facts.ctrChange),
		zap.Float64("roas_change", facts.roasChange))
	return out, nil
}

func evaluate(h Hypothesis, f summaryFacts) ValidatedHypothesis {
	reason := strings.ToLower(h.Reason)
	mentions := func(words ...string) bool {
		for _, w := range words {
			if !strings.Contains(reason, w) {
				return false
			}
		}
		return true
	}

	var (
		validated bool
		support   *float64
	)
	if mentions("ctr", "drop") {
		support, validated = ptr(f.ctrChange), f.ctrChange < 0
	}
	if mentions("roas", "drop") {
		support, validated = ptr(f.roasChange), f.roasChange < 0
	}
	if mentions("video", "image") && f.videoCTR != nil && f.imageCTR != nil {
		support, validated = ptr(*f.videoCTR-*f.imageCTR), *f.videoCTR > *f.imageCTR
	}
	if mentions("audience") && f.audienceCTR != nil {
		support, validated = ptr(*f.audienceCTR), true
	}

	conf := h.Confidence
	if support != nil {
		conf = math.Min(1, conf+SupportBonus)
	}
	return ValidatedHypothesis{
		Reason:          h.Reason,
		Evidence:        h.Evidence,
		Metric:          h.Metric,
		Validated:       validated,
		NumericSupport:  support,
		FinalConfidence: round3(conf),
	}
}

func ptr(v float64) *float64 { return &v }

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
