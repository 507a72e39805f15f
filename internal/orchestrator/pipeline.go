package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/adanalyst/internal/agents"
	"github.com/fyrsmithlabs/adanalyst/internal/dataset"
	"github.com/fyrsmithlabs/adanalyst/internal/logging"
	"github.com/fyrsmithlabs/adanalyst/internal/metrics"
)

// Config locates the pipeline's outputs.
type Config struct {
	ReportsDir string
	LogsDir    string
	// DatasetPath is shown in the report.
	DatasetPath string
	// MetricsFile, relative to LogsDir unless absolute, receives the
	// metrics registry at the end of each run. Empty disables it.
	MetricsFile string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock sets the clock used for run ids and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRecorder persists run history to r.
func WithRecorder(r RunRecorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithMetrics records stage outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// OnEvent registers a callback invoked for every recorded event.
func OnEvent(cb EventCallback) Option {
	return func(p *Pipeline) {
		p.onEvent = cb
	}
}

// Pipeline runs the five analysis stages.
type Pipeline struct {
	stages   Stages
	cfg      Config
	logger   *logging.Logger
	now      func() time.Time
	recorder RunRecorder
	metrics  *metrics.Metrics
	onEvent  EventCallback
}

// New creates a Pipeline. Every stage is required.
func New(stages Stages, cfg Config, opts ...Option) (*Pipeline, error) {
	switch {
	case stages.Planner == nil:
		return nil, fmt.Errorf("planner stage cannot be nil")
	case stages.Data == nil:
		return nil, fmt.Errorf("data stage cannot be nil")
	case stages.Insights == nil:
		return nil, fmt.Errorf("insight stage cannot be nil")
	case stages.Evaluator == nil:
		return nil, fmt.Errorf("evaluator stage cannot be nil")
	case stages.Creatives == nil:
		return nil, fmt.Errorf("creative stage cannot be nil")
	}
	if cfg.ReportsDir == "" || cfg.LogsDir == "" {
		return nil, fmt.Errorf("reports and logs directories are required")
	}

	p := &Pipeline{
		stages: stages,
		cfg:    cfg,
		logger: logging.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("pipeline")
	return p, nil
}

// run holds the state of one Run call.
type run struct {
	p      *Pipeline
	id     string
	events []StageEvent
}

func (r *run) record(ctx context.Context, stage Stage, status Status, detail string) {
	ev := StageEvent{Step: stage, Status: status, Timestamp: r.p.now()}
	if detail != "" {
		ev.Detail = &detail
	}
	r.events = append(r.events, ev)

	if r.p.recorder != nil {
		if err := r.p.recorder.RecordEvent(ctx, r.id, len(r.events), ev); err != nil {
			r.p.logger.Warn(ctx, "recording stage event failed", zap.Error(err))
		}
	}
	if r.p.onEvent != nil {
		r.p.onEvent(ev)
	}
}

func (r *run) log(ctx context.Context, entry LogEntry) {
	entry.RunID = r.id
	entry.Timestamp = r.p.now()
	if err := appendLog(filepath.Join(r.p.cfg.LogsDir, LogFile), entry); err != nil {
		r.p.logger.Warn(ctx, "writing pipeline log failed", zap.Error(err))
	}
}

// stage runs fn between a started and a completed or failed event. A panic
// in fn is returned as an error.
func (r *run) stage(ctx context.Context, stage Stage, fn func(ctx context.Context) (string, error)) error {
	ctx = logging.WithStage(ctx, string(stage))
	r.record(ctx, stage, StatusStarted, "")
	start := time.Now()

	detail, err := safely(stage, func() (string, error) { return fn(ctx) })
	elapsed := time.Since(start)
	if err != nil {
		r.p.logger.Error(ctx, "stage failed", zap.Error(err), zap.Duration("duration", elapsed))
		r.p.metrics.RecordStage(string(stage), string(StatusFailed), elapsed)
		r.record(ctx, stage, StatusFailed, err.Error())
		return err
	}
	r.p.logger.Info(ctx, "stage completed", zap.String("detail", detail), zap.Duration("duration", elapsed))
	r.p.metrics.RecordStage(string(stage), string(StatusCompleted), elapsed)
	r.record(ctx, stage, StatusCompleted, detail)
	return nil
}

func safely(stage Stage, fn func() (string, error)) (detail string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			detail, err = "", fmt.Errorf("panic in %s: %v", stage, rec)
		}
	}()
	return fn()
}

func count(n int) *int { return &n }

// Run executes the pipeline for query and returns the event trace. The only
// stage failure that produces an error is the data stage's, wrapped in
// ErrFatalStage; in that case no artifacts are written.
func (p *Pipeline) Run(ctx context.Context, query string) ([]StageEvent, error) {
	startedAt := p.now()
	r := &run{p: p, id: startedAt.UTC().Format(RunIDLayout)}
	ctx = logging.WithRunID(ctx, r.id)

	for _, dir := range []string{p.cfg.ReportsDir, p.cfg.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	p.logger.Info(ctx, "starting pipeline run", zap.String("query", query))
	if p.recorder != nil {
		if err := p.recorder.StartRun(ctx, r.id, query, startedAt); err != nil {
			p.logger.Warn(ctx, "recording run start failed", zap.Error(err))
		}
	}
	r.record(ctx, StagePipeline, StatusStarted, "Run "+r.id)

	// Planner: informational, degrade to an empty plan.
	var plan agents.Plan
	err := r.stage(ctx, StagePlanner, func(ctx context.Context) (string, error) {
		var err error
		plan, err = p.stages.Planner.Plan(ctx, query)
		return fmt.Sprintf("%d tasks", len(plan.Tasks)), err
	})
	if err != nil {
		plan = agents.Plan{Tasks: []agents.Task{}}
	}
	r.log(ctx, LogEntry{Step: "planner", Result: plan})

	// Data: fatal.
	var summary *dataset.Summary
	err = r.stage(ctx, StageData, func(ctx context.Context) (string, error) {
		var err error
		summary, err = p.stages.Data.BuildSummary(ctx)
		if err == nil && summary == nil {
			err = errors.New("data stage returned no summary")
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Rows %d", summary.DatasetInfo.Rows), nil
	})
	if err != nil {
		r.log(ctx, LogEntry{Step: "data_summary", Status: StatusFailed, Error: err.Error()})
		r.record(ctx, StagePipeline, StatusFailed, err.Error())
		p.finish(ctx, r, StatusFailed)
		return r.events, fmt.Errorf("%w: %s: %w", ErrFatalStage, StageData, err)
	}
	r.log(ctx, LogEntry{Step: "data_summary", Count: count(summary.DatasetInfo.Rows)})

	// Insight: degrade to an annotated empty result.
	var insights agents.Insights
	err = r.stage(ctx, StageInsight, func(ctx context.Context) (string, error) {
		var err error
		insights, err = p.stages.Insights.Generate(ctx, summary)
		return fmt.Sprintf("%d insights", len(insights.Hypotheses)), err
	})
	if err != nil {
		insights = agents.Insights{Hypotheses: []agents.Hypothesis{}, Error: err.Error()}
	}
	r.log(ctx, LogEntry{Step: "insight", Count: count(len(insights.Hypotheses)), Error: insights.Error})

	// Evaluator: degrade to an annotated empty result. An insight error
	// takes precedence on the artifact.
	var (
		validated    agents.Validated
		evaluatorErr string
	)
	err = r.stage(ctx, StageEvaluator, func(ctx context.Context) (string, error) {
		var err error
		validated, err = p.stages.Evaluator.Validate(ctx, insights, summary)
		return fmt.Sprintf("%d validated", len(validated.ValidatedHypotheses)), err
	})
	if err != nil {
		evaluatorErr = "evaluator failed: " + err.Error()
		validated = agents.Validated{
			ValidatedHypotheses: []agents.ValidatedHypothesis{},
			Error:               evaluatorErr,
		}
	}
	if insights.Error != "" {
		validated.Error = insights.Error
	}
	r.log(ctx, LogEntry{Step: "evaluation", Count: count(len(validated.ValidatedHypotheses)), Error: validated.Error})

	// Creative: degrade to an annotated empty result.
	var creatives agents.Creatives
	err = r.stage(ctx, StageCreative, func(ctx context.Context) (string, error) {
		var err error
		creatives, err = p.stages.Creatives.Generate(ctx, summary)
		return fmt.Sprintf("%d improvements", len(creatives.Improvements)), err
	})
	if err != nil {
		creatives = agents.Creatives{Improvements: []agents.Improvement{}, Error: err.Error()}
	}
	r.log(ctx, LogEntry{Step: "creative", Count: count(len(creatives.Improvements)), Error: creatives.Error})

	artifacts := Artifacts{
		Insights:  validated,
		Creatives: creatives,
		Report: renderReport(reportInput{
			runID:        r.id,
			query:        query,
			datasetPath:  p.cfg.DatasetPath,
			summary:      summary,
			events:       r.events,
			insights:     validated,
			creatives:    creatives,
			insightErr:   insights.Error,
			evaluatorErr: evaluatorErr,
		}),
	}
	if err := p.writeArtifacts(artifacts); err != nil {
		p.logger.Error(ctx, "writing artifacts failed", zap.Error(err))
		r.record(ctx, StagePipeline, StatusFailed, err.Error())
		p.finish(ctx, r, StatusFailed)
		return r.events, err
	}

	r.log(ctx, LogEntry{Step: "complete", Status: StatusCompleted})
	p.logger.Info(ctx, "pipeline run completed",
		zap.String("reports", p.cfg.ReportsDir),
		zap.String("logs", p.cfg.LogsDir))
	r.record(ctx, StagePipeline, StatusCompleted, "Run "+r.id)
	p.finish(ctx, r, StatusCompleted)
	return r.events, nil
}

func (p *Pipeline) writeArtifacts(a Artifacts) error {
	if err := writeJSONAtomic(filepath.Join(p.cfg.ReportsDir, InsightsFile), a.Insights); err != nil {
		return err
	}
	if err := writeJSONAtomic(filepath.Join(p.cfg.ReportsDir, CreativesFile), a.Creatives); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(p.cfg.ReportsDir, ReportFile), []byte(a.Report))
}

// finish closes the run in the recorder and flushes metrics.
func (p *Pipeline) finish(ctx context.Context, r *run, status Status) {
	if p.recorder != nil {
		if err := p.recorder.FinishRun(ctx, r.id, status, p.now()); err != nil {
			p.logger.Warn(ctx, "recording run finish failed", zap.Error(err))
		}
	}
	if p.metrics != nil && p.cfg.MetricsFile != "" {
		path := p.cfg.MetricsFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.cfg.LogsDir, path)
		}
		if err := p.metrics.WriteTextfile(path); err != nil {
			p.logger.Warn(ctx, "writing metrics failed", zap.Error(err))
		}
	}
}
