// Package orchestrator runs the analysis pipeline with per-stage fault
// containment.
//
// # Overview
//
// Stages execute strictly in sequence, each depending on the previous one's
// output:
//
//	planner → data_agent → insight_agent → evaluator_agent → creative_agent
//
// Every stage appends exactly one "started" and one "completed" or "failed"
// StageEvent. The returned event slice is the authoritative trace of a run.
//
// # Failure Policy
//
// Stages differ in how their failures are contained:
//   - planner: the plan is informational, a failure is replaced by an empty plan
//   - data_agent: fatal; the run stops with ErrFatalStage and no artifacts are written
//   - insight_agent, evaluator_agent, creative_agent: the output is replaced by an
//     empty result carrying an error annotation and the run continues
//
// A panic inside a stage is recovered and handled as that stage's failure.
//
// # Outputs
//
// A run that gets past the data stage always writes insights.json,
// creatives.json and report.md into the reports directory, each replaced
// atomically. Stage results are appended to logs/pipeline_log.json as
// newline-delimited JSON. The report has a Stage Status section so that
// "no insights found" can be told apart from "the insight stage failed".
//
// # Usage Example
//
//	p, err := orchestrator.New(orchestrator.Stages{
//	    Planner:   planner,
//	    Data:      dataset.NewBuilder(cfg.Paths.Data, cfg.Thresholds.LowCTR, logger),
//	    Insights:  insightAgent,
//	    Evaluator: agents.NewEvaluator(),
//	    Creatives: creativeAgent,
//	}, orchestrator.Config{ReportsDir: "reports", LogsDir: "logs"},
//	    orchestrator.WithLogger(logger),
//	    orchestrator.WithRecorder(store))
//	events, err := p.Run(ctx, "Analyze ROAS drop")
package orchestrator
