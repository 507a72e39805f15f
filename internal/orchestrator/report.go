package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/adanalyst/internal/agents"
	"github.com/fyrsmithlabs/adanalyst/internal/dataset"
)

const (
	reportTitle       = "# Ad Performance Analysis Report"
	maxReportHeadings = 3
)

type reportInput struct {
	runID       string
	query       string
	datasetPath string
	summary     *dataset.Summary
	events      []StageEvent
	insights    agents.Validated
	creatives   agents.Creatives
	// insightErr and evaluatorErr are the stage failures behind
	// insights.Error, which only carries the one that took precedence.
	insightErr   string
	evaluatorErr string
}

func renderReport(in reportInput) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line(reportTitle)
	line("Run ID: %s", in.runID)
	line("Query: %s", in.query)
	line("Dataset: %s", in.datasetPath)
	line("")

	line("## Summary")
	rows := 0
	if in.summary != nil {
		rows = in.summary.DatasetInfo.Rows
	}
	line("- Rows processed: %d", rows)
	if first, last, ok := in.summary.DateRange(); ok {
		line("- Dates: %s to %s", first, last)
	} else {
		line("- Dates: N/A to N/A")
	}
	line("")

	line("## Stage Status")
	for _, st := range stageOutcomes(in.events) {
		if st.detail != "" {
			line("- %s: %s (%s)", st.stage, st.status, st.detail)
		} else {
			line("- %s: %s", st.stage, st.status)
		}
	}
	if in.insightErr != "" {
		line("- insight error: %s", in.insightErr)
	}
	if in.evaluatorErr != "" {
		line("- evaluator error: %s", in.evaluatorErr)
	}
	if in.creatives.Error != "" {
		line("- creative error: %s", in.creatives.Error)
	}
	line("")

	line("## Validated Insights")
	switch {
	case in.insightErr != "":
		line("> Insight generation failed: %s", in.insightErr)
	case in.evaluatorErr != "":
		line("> Insight validation failed: %s", in.evaluatorErr)
	case in.insights.Error != "":
		line("> Insight validation failed: %s", in.insights.Error)
	case len(in.insights.ValidatedHypotheses) == 0:
		line("- No insights found.")
	}
	for _, vh := range in.insights.ValidatedHypotheses {
		line("- Reason: %s", vh.Reason)
		line("  - Validated: %t", vh.Validated)
		line("  - Numeric support: %s", formatSupport(vh.NumericSupport))
		line("  - Final confidence: %s", strconv.FormatFloat(vh.FinalConfidence, 'f', -1, 64))
	}
	line("")

	line("## Creative Recommendations")
	switch {
	case in.creatives.Error != "":
		line("> Creative generation failed: %s", in.creatives.Error)
	case len(in.creatives.Improvements) == 0 && in.creatives.Note != "":
		line("- %s", in.creatives.Note)
	case len(in.creatives.Improvements) == 0:
		line("- No creative improvements generated.")
	}
	for _, imp := range in.creatives.Improvements {
		campaign := imp.Campaign
		if campaign == "" {
			campaign = "N/A"
		}
		headlines := imp.NewHeadlines
		if len(headlines) > maxReportHeadings {
			headlines = headlines[:maxReportHeadings]
		}
		line("- Campaign: %s", campaign)
		line("  - Old: %s", imp.OldMessage)
		line("  - New Headlines: %s", strings.Join(headlines, ", "))
		if len(imp.NewCTAs) > 0 {
			line("  - CTAs: %s", strings.Join(imp.NewCTAs, ", "))
		}
	}
	return b.String()
}

func formatSupport(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'g', 6, 64)
}

type stageOutcome struct {
	stage  Stage
	status Status
	detail string
}

// stageOutcomes reduces events to the last status of each stage, in
// execution order. Stages that never started are omitted.
func stageOutcomes(events []StageEvent) []stageOutcome {
	last := make(map[Stage]StageEvent)
	for _, ev := range events {
		last[ev.Step] = ev
	}
	var out []stageOutcome
	for _, st := range AllStages() {
		ev, ok := last[st]
		if !ok {
			continue
		}
		out = append(out, stageOutcome{stage: st, status: ev.Status, detail: ev.DetailText()})
	}
	return out
}
