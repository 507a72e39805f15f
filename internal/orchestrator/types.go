package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/adanalyst/internal/agents"
	"github.com/fyrsmithlabs/adanalyst/internal/dataset"
)

// ErrFatalStage is returned by Run when a stage without a degraded
// substitute fails.
var ErrFatalStage = errors.New("fatal stage failure")

// RunIDLayout formats run identifiers from the run start time (UTC).
const RunIDLayout = "20060102T150405Z"

// Stage names one unit of pipeline work.
type Stage string

const (
	// StagePipeline brackets the whole run.
	StagePipeline Stage = "pipeline"

	StagePlanner   Stage = "planner"
	StageData      Stage = "data_agent"
	StageInsight   Stage = "insight_agent"
	StageEvaluator Stage = "evaluator_agent"
	StageCreative  Stage = "creative_agent"
)

// AllStages returns the stages in execution order.
func AllStages() []Stage {
	return []Stage{StagePlanner, StageData, StageInsight, StageEvaluator, StageCreative}
}

// Status is a stage transition.
type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StageEvent records one stage transition.
type StageEvent struct {
	Step      Stage     `json:"step"`
	Status    Status    `json:"status"`
	Detail    *string   `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// DetailText returns the detail or "".
func (e StageEvent) DetailText() string {
	if e.Detail == nil {
		return ""
	}
	return *e.Detail
}

// LogEntry is one line of the NDJSON pipeline log.
type LogEntry struct {
	RunID     string    `json:"run_id"`
	Step      string    `json:"step"`
	Status    Status    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Result    any       `json:"result,omitempty"`
	Count     *int      `json:"count,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Planner decomposes the query. Its output is informational only.
type Planner interface {
	Plan(ctx context.Context, query string) (agents.Plan, error)
}

// Summarizer produces the dataset summary every later stage depends on.
type Summarizer interface {
	BuildSummary(ctx context.Context) (*dataset.Summary, error)
}

// InsightGenerator proposes hypotheses from the summary.
type InsightGenerator interface {
	Generate(ctx context.Context, summary *dataset.Summary) (agents.Insights, error)
}

// HypothesisValidator checks hypotheses against the summary.
type HypothesisValidator interface {
	Validate(ctx context.Context, in agents.Insights, summary *dataset.Summary) (agents.Validated, error)
}

// CreativeGenerator proposes creative rewrites from the summary.
type CreativeGenerator interface {
	Generate(ctx context.Context, summary *dataset.Summary) (agents.Creatives, error)
}

// Stages holds one implementation per stage.
type Stages struct {
	Planner   Planner
	Data      Summarizer
	Insights  InsightGenerator
	Evaluator HypothesisValidator
	Creatives CreativeGenerator
}

// RunRecorder persists run history. Errors are logged and never affect
// the run.
type RunRecorder interface {
	StartRun(ctx context.Context, runID, query string, startedAt time.Time) error
	RecordEvent(ctx context.Context, runID string, seq int, ev StageEvent) error
	FinishRun(ctx context.Context, runID string, status Status, finishedAt time.Time) error
}

// EventCallback observes events as they are recorded.
type EventCallback func(ev StageEvent)

// Artifacts are the outputs of a completed run.
type Artifacts struct {
	Insights  agents.Validated
	Creatives agents.Creatives
	Report    string
}
