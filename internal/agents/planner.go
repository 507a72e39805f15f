package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Planner decomposes the user query into tasks. Its output is informational;
// later stages do not consume it.
type Planner struct {
	asker StructuredAsker
	opts  options
}

// NewPlanner creates a Planner.
func NewPlanner(asker StructuredAsker, opts ...Option) (*Planner, error) {
	if asker == nil {
		return nil, fmt.Errorf("asker cannot be nil")
	}
	return &Planner{asker: asker, opts: applyOptions("planner", opts)}, nil
}

// Plan asks the model for a task list. A response without a tasks key yields
// an empty plan that keeps the response in Raw.
func (p *Planner) Plan(ctx context.Context, query string) (Plan, error) {
	res := p.asker.AskStructured(ctx, plannerSystemPrompt, fmt.Sprintf(plannerUserPrompt, query))

	if !res.IsStructured() {
		p.opts.logger.Warn(ctx, "plan response was not JSON")
		return Plan{Tasks: []Task{}, Raw: res.Raw()}, nil
	}
	obj := newFields(res.Value())
	if !obj.has("tasks") {
		p.opts.logger.Warn(ctx, "plan response missing tasks")
		return Plan{Tasks: []Task{}, Raw: res.Value()}, nil
	}

	items := obj.list("tasks")
	plan := Plan{Tasks: make([]Task, 0, len(items))}
	for i, item := range items {
		switch v := item.(type) {
		case string:
			plan.Tasks = append(plan.Tasks, Task{Step: i + 1, Task: v})
		case map[string]any:
			f := newFields(v)
			step := int(f.float("step", float64(i+1)))
			task := f.str("task")
			if task == "" {
				task = f.str("description")
			}
			plan.Tasks = append(plan.Tasks, Task{Step: step, Task: task})
		}
	}
	p.opts.logger.Debug(ctx, "plan created", zap.Int("tasks", len(plan.Tasks)))
	return plan, nil
}
