package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/adanalyst/internal/dataset"
)

// NoLowCTRNote is the note on an empty result when nothing needs rewriting.
const NoLowCTRNote = "No low-CTR creatives found."

// CreativeAgent rewrites creatives whose CTR is below the threshold.
type CreativeAgent struct {
	asker        StructuredAsker
	lowCTR       float64
	maxCreatives int
	opts         options
}

// NewCreativeAgent creates a CreativeAgent. At most maxCreatives creatives are
// sent to the model.
func NewCreativeAgent(asker StructuredAsker, lowCTR float64, maxCreatives int, opts ...Option) (*CreativeAgent, error) {
	if asker == nil {
		return nil, fmt.Errorf("asker cannot be nil")
	}
	if maxCreatives <= 0 {
		return nil, fmt.Errorf("max creatives must be positive, got %d", maxCreatives)
	}
	return &CreativeAgent{
		asker:        asker,
		lowCTR:       lowCTR,
		maxCreatives: maxCreatives,
		opts:         applyOptions("creative", opts),
	}, nil
}

type lowCTRCreative struct {
	Campaign     string  `json:"campaign"`
	OldMessage   string  `json:"old_message"`
	CTR          float64 `json:"ctr"`
	CreativeType string  `json:"creative_type"`
}

func (a *CreativeAgent) candidates(summary *dataset.Summary) []lowCTRCreative {
	var out []lowCTRCreative
	for _, row := range summary.CreativeSummary {
		if row.CTR >= a.lowCTR || row.CreativeMessage == "" {
			continue
		}
		out = append(out, lowCTRCreative{
			Campaign:     row.CampaignName,
			OldMessage:   row.CreativeMessage,
			CTR:          row.CTR,
			CreativeType: row.CreativeType,
		})
		if len(out) == a.maxCreatives {
			break
		}
	}
	return out
}

// Generate asks the model for rewrites of the low-CTR creatives. When there
// are none the model is not called.
func (a *CreativeAgent) Generate(ctx context.Context, summary *dataset.Summary) (Creatives, error) {
	if summary == nil {
		return Creatives{}, fmt.Errorf("summary cannot be nil")
	}
	items := a.candidates(summary)
	if len(items) == 0 {
		a.opts.logger.Info(ctx, "no low-CTR creatives", zap.Float64("threshold", a.lowCTR))
		return Creatives{Improvements: []Improvement{}, Note: NoLowCTRNote}, nil
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return Creatives{}, fmt.Errorf("encoding creatives: %w", err)
	}

	res := a.asker.AskStructured(ctx, creativeSystemPrompt, fmt.Sprintf(creativeUserPrompt, data))
	c := checkList(res, "improvements")
	if c.err != "" {
		a.opts.logger.Warn(ctx, "creative response rejected", zap.String("error", c.err))
		return Creatives{Improvements: []Improvement{}, Raw: c.raw, Error: c.err}, nil
	}

	out := Creatives{Improvements: make([]Improvement, 0, len(c.items))}
	for _, item := range c.items {
		f, ok := objectAt(item)
		if !ok {
			continue
		}
		out.Improvements = append(out.Improvements, Improvement{
			Campaign:     f.str("campaign"),
			OldMessage:   f.str("old_message"),
			NewHeadlines: f.stringList("new_headlines"),
			NewCaptions:  f.stringList("new_captions"),
			NewCTAs:      f.stringList("new_ctas"),
		})
	}
	if len(out.Improvements) == 0 {
		out.Error = "LLM returned empty improvements list"
	}
	a.opts.logger.Debug(ctx, "creatives generated", zap.Int("count", len(out.Improvements)))
	return out, nil
}
