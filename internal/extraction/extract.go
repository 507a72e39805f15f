package extraction

import (
	"encoding/json"
	"regexp"
)

// Strategy names the step of the extraction ladder that produced a Result.
type Strategy string

const (
	StrategyDirect        Strategy = "direct"
	StrategyBraceScan     Strategy = "brace_scan"
	StrategyTrailingComma Strategy = "trailing_comma"
	StrategyRawFallback   Strategy = "raw_fallback"
)

var (
	// bracePattern matches a {...} block with at most one nested level.
	// RE2 keeps the scan linear in the input length.
	bracePattern = regexp.MustCompile(`\{(?:[^{}]|\{[^{}]*\})*\}`)

	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// Result is either a structured JSON object or the raw text it came from.
type Result struct {
	value    map[string]any
	raw      string
	strategy Strategy
}

// Structured wraps an already decoded object.
func Structured(v map[string]any, s Strategy) Result {
	if v == nil {
		v = map[string]any{}
	}
	return Result{value: v, strategy: s}
}

// RawFallback wraps text that could not be parsed.
func RawFallback(text string) Result {
	return Result{raw: text, strategy: StrategyRawFallback}
}

// IsStructured reports whether a JSON object was recovered.
func (r Result) IsStructured() bool {
	return r.strategy != StrategyRawFallback && r.strategy != ""
}

// Value returns the recovered object, or nil for a fallback.
func (r Result) Value() map[string]any {
	return r.value
}

// Raw returns the unparsed text of a fallback, or "" for a structured result.
func (r Result) Raw() string {
	return r.raw
}

// Strategy returns the strategy that produced r.
func (r Result) Strategy() Strategy {
	if r.strategy == "" {
		return StrategyRawFallback
	}
	return r.strategy
}

// Has reports whether a structured result carries key.
func (r Result) Has(key string) bool {
	if !r.IsStructured() {
		return false
	}
	_, ok := r.value[key]
	return ok
}

// Extract recovers a JSON object from text. Strategies run in order and the
// first success wins:
//
//  1. parse the whole text
//  2. parse each one-level-nested brace block, in order of appearance
//  3. drop commas directly before a closing brace or bracket, parse again
//  4. give up and return RawFallback(text)
//
// A parse only succeeds when it yields an object; arrays and scalars are
// treated as failures.
func Extract(text string) Result {
	if v, ok := parseObject(text); ok {
		return Structured(v, StrategyDirect)
	}

	for _, block := range bracePattern.FindAllString(text, -1) {
		if v, ok := parseObject(block); ok {
			return Structured(v, StrategyBraceScan)
		}
	}

	if repaired := trailingComma.ReplaceAllString(text, "$1"); repaired != text {
		if v, ok := parseObject(repaired); ok {
			return Structured(v, StrategyTrailingComma)
		}
	}

	return RawFallback(text)
}

func parseObject(text string) (map[string]any, bool) {
	var v map[string]any
	if err := json.Unmarshal([]byte(text), &v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}
