package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/adanalyst/internal/dataset"
)

func validateOne(t *testing.T, h Hypothesis, s *dataset.Summary) ValidatedHypothesis {
	t.Helper()
	out, err := NewEvaluator().Validate(context.Background(), Insights{Hypotheses: []Hypothesis{h}}, s)
	require.NoError(t, err)
	require.Len(t, out.ValidatedHypotheses, 1)
	return out.ValidatedHypotheses[0]
}

func TestEvaluator_CTRDrop(t *testing.T) {
	vh := validateOne(t, Hypothesis{
		Reason:     "CTR dropped due to creative fatigue",
		Evidence:   "Daily CTR decreased",
		Metric:     "ctr",
		Confidence: 0.6,
	}, twoDaySummary())

	assert.True(t, vh.Validated)
	require.NotNil(t, vh.NumericSupport)
	assert.InDelta(t, -0.01, *vh.NumericSupport, 1e-9)
	assert.Equal(t, 0.8, vh.FinalConfidence)
	assert.Equal(t, "Daily CTR decreased", vh.Evidence)
	assert.Equal(t, "ctr", vh.Metric)
}

func TestEvaluator_ROASDrop(t *testing.T) {
	vh := validateOne(t, Hypothesis{Reason: "ROAS drop after budget change", Confidence: 0.5}, twoDaySummary())
	assert.True(t, vh.Validated)
	require.NotNil(t, vh.NumericSupport)
	assert.InDelta(t, -1.0, *vh.NumericSupport, 1e-9)
	assert.Equal(t, 0.7, vh.FinalConfidence)
}

func TestEvaluator_VideoVersusImage(t *testing.T) {
	vh := validateOne(t, Hypothesis{Reason: "Video creatives beat image creatives", Confidence: 0.7}, twoDaySummary())
	assert.True(t, vh.Validated)
	require.NotNil(t, vh.NumericSupport)
	assert.InDelta(t, 0.02, *vh.NumericSupport, 1e-9)
	assert.Equal(t, 0.9, vh.FinalConfidence)
}

func TestEvaluator_Audience(t *testing.T) {
	vh := validateOne(t, Hypothesis{Reason: "Audience saturation", Confidence: 0.95}, twoDaySummary())
	assert.True(t, vh.Validated)
	require.NotNil(t, vh.NumericSupport)
	assert.InDelta(t, 0.025, *vh.NumericSupport, 1e-9)
	assert.Equal(t, 1.0, vh.FinalConfidence, "confidence is capped at 1")
}

func TestEvaluator_LaterRuleOverrides(t *testing.T) {
	// Both the ctr rule and the audience rule match; audience wins.
	vh := validateOne(t, Hypothesis{Reason: "ctr drop in one audience", Confidence: 0.5}, twoDaySummary())
	require.NotNil(t, vh.NumericSupport)
	assert.InDelta(t, 0.025, *vh.NumericSupport, 1e-9)
	assert.True(t, vh.Validated)
}

func TestEvaluator_NoRuleMatches(t *testing.T) {
	vh := validateOne(t, Hypothesis{Reason: "Weekend seasonality", Confidence: 0.4567}, twoDaySummary())
	assert.False(t, vh.Validated)
	assert.Nil(t, vh.NumericSupport)
	assert.Equal(t, 0.457, vh.FinalConfidence)

	b, err := json.Marshal(vh)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"numeric_support":null`)
}

func TestEvaluator_MissingData(t *testing.T) {
	s := &dataset.Summary{
		DailySummary:    []dataset.DailyRow{{Date: "2025-01-01", CTR: 0.02}},
		CreativeSummary: []dataset.CreativeRow{{CreativeType: "Video", CTR: 0.03}},
	}

	t.Run("single day gives zero change", func(t *testing.T) {
		vh := validateOne(t, Hypothesis{Reason: "ctr drop", Confidence: 0.5}, s)
		require.NotNil(t, vh.NumericSupport)
		assert.Zero(t, *vh.NumericSupport)
		assert.False(t, vh.Validated)
	})
	t.Run("missing image row skips the comparison", func(t *testing.T) {
		vh := validateOne(t, Hypothesis{Reason: "video vs image", Confidence: 0.5}, s)
		assert.Nil(t, vh.NumericSupport)
		assert.False(t, vh.Validated)
		assert.Equal(t, 0.5, vh.FinalConfidence)
	})
	t.Run("no audience rows skips the audience rule", func(t *testing.T) {
		vh := validateOne(t, Hypothesis{Reason: "audience fatigue", Confidence: 0.5}, s)
		assert.Nil(t, vh.NumericSupport)
	})
}

func TestEvaluator_CaseInsensitiveCreativeType(t *testing.T) {
	s := twoDaySummary()
	s.CreativeSummary = []dataset.CreativeRow{{CreativeType: "VIDEO", CTR: 0.01}, {CreativeType: "image", CTR: 0.04}}
	vh := validateOne(t, Hypothesis{Reason: "video underperforms image", Confidence: 0.5}, s)
	require.NotNil(t, vh.NumericSupport)
	assert.InDelta(t, -0.03, *vh.NumericSupport, 1e-9)
	assert.False(t, vh.Validated)
}

func TestEvaluator_PreservesError(t *testing.T) {
	in := Insights{Hypotheses: []Hypothesis{}, Error: "LLM returned empty hypotheses list"}
	out, err := NewEvaluator().Validate(context.Background(), in, twoDaySummary())
	require.NoError(t, err)

	want := Validated{ValidatedHypotheses: []ValidatedHypothesis{}, Error: "LLM returned empty hypotheses list"}
	if diff := cmp.Diff(want, out, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("validated mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluator_NilSummary(t *testing.T) {
	_, err := NewEvaluator().Validate(context.Background(), Insights{}, nil)
	assert.Error(t, err)
}
