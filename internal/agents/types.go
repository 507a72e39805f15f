package agents

import (
	"context"

	"github.com/fyrsmithlabs/adanalyst/internal/extraction"
)

// StructuredAsker asks the model cascade for a JSON object.
type StructuredAsker interface {
	AskStructured(ctx context.Context, system, user string) extraction.Result
}

// Plan is the planner's decomposition of the user query.
type Plan struct {
	Tasks []Task `json:"tasks"`
	// Raw holds the response when it had no tasks key.
	Raw any `json:"__raw,omitempty"`
}

// Task is one planned step.
type Task struct {
	Step int    `json:"step"`
	Task string `json:"task"`
}

// Insights is the insight stage output.
type Insights struct {
	Hypotheses []Hypothesis `json:"hypotheses"`
	Raw        any          `json:"__raw,omitempty"`
	Error      string       `json:"__error,omitempty"`
}

// Hypothesis is one candidate explanation proposed by the model.
type Hypothesis struct {
	Reason     string  `json:"reason"`
	Evidence   string  `json:"evidence"`
	Metric     string  `json:"metric"`
	Confidence float64 `json:"confidence"`
}

// Validated is the evaluator stage output.
type Validated struct {
	ValidatedHypotheses []ValidatedHypothesis `json:"validated_hypotheses"`
	Error               string                `json:"__error,omitempty"`
}

// ValidatedHypothesis is a hypothesis checked against the data.
type ValidatedHypothesis struct {
	Reason    string `json:"reason"`
	Evidence  string `json:"evidence"`
	Metric    string `json:"metric"`
	Validated bool   `json:"validated"`
	// NumericSupport is null when no rule matched the hypothesis.
	NumericSupport  *float64 `json:"numeric_support"`
	FinalConfidence float64  `json:"final_confidence"`
}

// Creatives is the creative stage output.
type Creatives struct {
	Improvements []Improvement `json:"improvements"`
	Note         string        `json:"note,omitempty"`
	Raw          any           `json:"__raw,omitempty"`
	Error        string        `json:"__error,omitempty"`
}

// Improvement is a rewrite of one low-CTR creative.
type Improvement struct {
	Campaign     string   `json:"campaign"`
	OldMessage   string   `json:"old_message"`
	NewHeadlines []string `json:"new_headlines"`
	NewCaptions  []string `json:"new_captions"`
	NewCTAs      []string `json:"new_ctas"`
}
