package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/adanalyst/internal/extraction"
)

func TestFoldKey(t *testing.T) {
	assert.Equal(t, "newheadlines", foldKey("new_headlines"))
	assert.Equal(t, "newheadlines", foldKey("newheadlines"))
	assert.Equal(t, "newctas", foldKey("New-CTAs"))
}

func TestFields(t *testing.T) {
	f := newFields(map[string]any{
		"reason":       "ctr fell",
		"confidence":   "0.7",
		"score":        0.25,
		"flag":         true,
		"evidence":     []any{"a", "b"},
		"newheadlines": []any{"one", 2.0, ""},
		"single":       "only",
	})

	assert.True(t, f.has("Reason"))
	assert.Equal(t, "ctr fell", f.str("reason"))
	assert.Equal(t, "0.25", f.str("score"))
	assert.Equal(t, "true", f.str("flag"))
	assert.Equal(t, `["a","b"]`, f.str("evidence"))
	assert.Equal(t, "", f.str("missing"))

	assert.Equal(t, 0.7, f.float("confidence", 0.5))
	assert.Equal(t, 0.25, f.float("score", 0.5))
	assert.Equal(t, 0.5, f.float("reason", 0.5))
	assert.Equal(t, 0.5, f.float("missing", 0.5))

	assert.Equal(t, []string{"one", "2"}, f.stringList("new_headlines"))
	assert.Equal(t, []string{"only"}, f.stringList("single"))
	assert.Equal(t, []string{}, f.stringList("missing"))
}

func TestCheckList(t *testing.T) {
	t.Run("model failed sentinel", func(t *testing.T) {
		c := checkList(extraction.RawFallback("Model failed to produce a valid response."), "hypotheses")
		assert.Equal(t, "LLM failed to generate valid response: Model failed to produce a valid response.", c.err)
		assert.Nil(t, c.raw)
	})
	t.Run("short raw text", func(t *testing.T) {
		c := checkList(extraction.RawFallback("nope"), "hypotheses")
		assert.Equal(t, "LLM failed to generate valid response: nope", c.err)
	})
	t.Run("long raw text is kept", func(t *testing.T) {
		text := longText(60)
		c := checkList(extraction.RawFallback(text), "hypotheses")
		assert.Equal(t, "Response missing 'hypotheses' key", c.err)
		assert.Equal(t, text, c.raw)
	})
	t.Run("preview is capped", func(t *testing.T) {
		c := checkList(extraction.RawFallback("Model failed "+longText(300)), "x")
		assert.Len(t, c.err, len("LLM failed to generate valid response: ")+200)
	})
	t.Run("missing key", func(t *testing.T) {
		obj := map[string]any{"ideas": []any{}}
		c := checkList(extraction.Structured(obj, extraction.StrategyDirect), "hypotheses")
		assert.Equal(t, "Response missing 'hypotheses' key", c.err)
		assert.Equal(t, obj, c.raw)
	})
	t.Run("empty list", func(t *testing.T) {
		c := checkList(extraction.Structured(map[string]any{"hypotheses": []any{}}, extraction.StrategyDirect), "hypotheses")
		assert.Equal(t, "LLM returned empty hypotheses list", c.err)
	})
	t.Run("not a list", func(t *testing.T) {
		c := checkList(extraction.Structured(map[string]any{"hypotheses": "many"}, extraction.StrategyDirect), "hypotheses")
		assert.Equal(t, "LLM returned empty hypotheses list", c.err)
	})
	t.Run("ok", func(t *testing.T) {
		c := checkList(extraction.Structured(map[string]any{"hypotheses": []any{map[string]any{}}}, extraction.StrategyDirect), "hypotheses")
		assert.Empty(t, c.err)
		assert.Len(t, c.items, 1)
	})
}
