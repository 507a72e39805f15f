package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/adanalyst/internal/config"
	"github.com/fyrsmithlabs/adanalyst/internal/llm"
	"github.com/fyrsmithlabs/adanalyst/internal/orchestrator"
	"github.com/fyrsmithlabs/adanalyst/internal/store"
)

func detail(s string) *string { return &s }

func TestWriteConfig_RedactsSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "sk-or-v1-abcdef123456"

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, cfg))

	out := buf.String()
	assert.NotContains(t, out, "sk-or-v1-abcdef123456")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, "timeout: 40s")
	assert.Contains(t, out, "low_ctr: 0.01")
}

func TestProgressPrinter_SkipsInnerStarts(t *testing.T) {
	var buf bytes.Buffer
	p := progressPrinter(&buf)

	p(orchestrator.StageEvent{Step: orchestrator.StagePipeline, Status: orchestrator.StatusStarted, Detail: detail("Run r1")})
	p(orchestrator.StageEvent{Step: orchestrator.StagePlanner, Status: orchestrator.StatusStarted})
	p(orchestrator.StageEvent{Step: orchestrator.StagePlanner, Status: orchestrator.StatusCompleted, Detail: detail("3 tasks")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "pipeline")
	assert.Contains(t, lines[0], "Run r1")
	assert.Contains(t, lines[1], "planner")
	assert.Contains(t, lines[1], "3 tasks")
}

func TestRenderSummary_ListsStagesAndOutputs(t *testing.T) {
	out := renderSummary([]orchestrator.StageEvent{
		{Step: orchestrator.StagePipeline, Status: orchestrator.StatusStarted},
		{Step: orchestrator.StageData, Status: orchestrator.StatusStarted},
		{Step: orchestrator.StageData, Status: orchestrator.StatusCompleted},
		{Step: orchestrator.StageInsight, Status: orchestrator.StatusFailed},
	}, "reports", "logs")

	assert.Contains(t, out, "data_agent")
	assert.Contains(t, out, "insight_agent")
	assert.NotContains(t, out, "creative_agent")
	assert.Contains(t, out, "report.md")
	assert.Contains(t, out, "pipeline_log.json")
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	printRuns(&buf, nil)
	assert.Contains(t, buf.String(), "no runs recorded")

	buf.Reset()
	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	printRuns(&buf, []store.Run{
		{ID: "r2", Query: "running one", Status: orchestrator.StatusStarted, StartedAt: start},
		{ID: "r1", Query: "done one", Status: orchestrator.StatusCompleted, StartedAt: start, FinishedAt: &end},
	})
	out := buf.String()
	assert.Contains(t, out, "running one")
	assert.Contains(t, out, "1.5s")
}

func TestNewCompleter_SelectsTransport(t *testing.T) {
	cfg := config.Default().LLM
	cfg.APIKey = "key"

	c, err := newCompleter(cfg)
	require.NoError(t, err)
	assert.IsType(t, &llm.HTTPCompleter{}, c)

	cfg.APIKey = ""
	_, err = newCompleter(cfg)
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestCompleterError_NamesBothKeyVariables(t *testing.T) {
	err := completerError(llm.ErrMissingAPIKey)
	require.ErrorIs(t, err, llm.ErrMissingAPIKey)
	assert.Contains(t, err.Error(), "ADANALYST_LLM_API_KEY")
	assert.Contains(t, err.Error(), "OPENROUTER_API_KEY")

	other := errors.New("bad transport")
	assert.Same(t, other, completerError(other))
}

func TestIsFastEmbed(t *testing.T) {
	assert.True(t, isFastEmbed(""))
	assert.True(t, isFastEmbed("fastembed"))
	assert.False(t, isFastEmbed("tei"))
	assert.False(t, isFastEmbed("openai"))
}
