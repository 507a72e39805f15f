package agents

import (
	"context"
	"strings"

	"github.com/fyrsmithlabs/adanalyst/internal/extraction"
)

// fakeAsker returns a fixed result and records the prompts it was given.
type fakeAsker struct {
	result extraction.Result
	calls  int
	system string
	user   string
}

func (f *fakeAsker) AskStructured(_ context.Context, system, user string) extraction.Result {
	f.calls++
	f.system, f.user = system, user
	return f.result
}

// askerFor runs text through the same sanitize and extract steps the cascade
// applies.
func askerFor(text string) *fakeAsker {
	return &fakeAsker{result: extraction.Extract(extraction.Sanitize(text))}
}

func longText(n int) string {
	return strings.Repeat("x", n)
}
