package agents

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/adanalyst/internal/extraction"
)

// Responses pass through the sanitizer before extraction, which removes
// underscores and hyphens, so "new_headlines" may arrive as "newheadlines".
// Keys are therefore compared in a folded form.
func foldKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(k))
}

// fields is a JSON object with folded keys.
type fields map[string]any

func newFields(m map[string]any) fields {
	f := make(fields, len(m))
	for k, v := range m {
		f[foldKey(k)] = v
	}
	return f
}

func (f fields) has(key string) bool {
	_, ok := f[foldKey(key)]
	return ok
}

func (f fields) get(key string) any {
	return f[foldKey(key)]
}

// str renders scalars as text and anything else as compact JSON.
func (f fields) str(key string) string {
	switch v := f.get(key).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func (f fields) float(key string, def float64) float64 {
	switch v := f.get(key).(type) {
	case float64:
		return v
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return n
		}
	}
	return def
}

func (f fields) list(key string) []any {
	if l, ok := f.get(key).([]any); ok {
		return l
	}
	return nil
}

// stringList accepts a list of scalars or a single string.
func (f fields) stringList(key string) []string {
	switch v := f.get(key).(type) {
	case string:
		if v == "" {
			return []string{}
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for i := range v {
			if s := (fields{"v": v[i]}).str("v"); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

const (
	modelFailedMarker = "Model failed"
	minRawLength      = 50
	rawPreviewLength  = 200
)

// listContract holds the items under key, or explains why there are none.
type listContract struct {
	items []any
	raw   any
	err   string
}

// checkList enforces that res is an object with a non-empty list under key.
func checkList(res extraction.Result, key string) listContract {
	if !res.IsStructured() {
		text := res.Raw()
		if strings.Contains(text, modelFailedMarker) || utf8.RuneCountInString(text) < minRawLength {
			return listContract{err: "LLM failed to generate valid response: " + preview(text, rawPreviewLength)}
		}
		return listContract{raw: text, err: fmt.Sprintf("Response missing '%s' key", key)}
	}

	obj := newFields(res.Value())
	if !obj.has(key) {
		return listContract{raw: res.Value(), err: fmt.Sprintf("Response missing '%s' key", key)}
	}
	items := obj.list(key)
	if len(items) == 0 {
		return listContract{err: fmt.Sprintf("LLM returned empty %s list", key)}
	}
	return listContract{items: items}
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func objectAt(v any) (fields, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return newFields(m), true
}
