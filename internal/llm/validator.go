package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/adanalyst/internal/embeddings"
	"github.com/fyrsmithlabs/adanalyst/internal/logging"
	"github.com/fyrsmithlabs/adanalyst/internal/metrics"
)

// ValidatorConfig tunes the response validator.
type ValidatorConfig struct {
	// MinLength rejects anything shorter, in characters.
	MinLength int
	// FallbackMinLength applies when similarity cannot be computed:
	// responses strictly longer than this are accepted.
	FallbackMinLength int
	// SimilarityThreshold is the strict lower bound on prompt/response similarity.
	SimilarityThreshold float64
	// Denylist phrases reject a response regardless of similarity. Matching
	// is case-insensitive substring.
	Denylist []string
}

// Verdict is the validator's decision for one response.
type Verdict struct {
	Accepted bool
	// Similarity is nil when it was not computed.
	Similarity *float64
	Reason     string
}

// ResponseValidator decides whether a response is usable for a prompt.
type ResponseValidator interface {
	Validate(ctx context.Context, response, prompt string) Verdict
}

// Validator is the embedding-backed ResponseValidator.
type Validator struct {
	cfg      ValidatorConfig
	denylist []string
	embedder embeddings.Embedder
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewValidator creates a Validator. A nil embedder means every decision past
// the denylist uses the length fallback.
func NewValidator(cfg ValidatorConfig, embedder embeddings.Embedder, logger *logging.Logger, m *metrics.Metrics) *Validator {
	if logger == nil {
		logger = logging.Nop()
	}
	deny := make([]string, 0, len(cfg.Denylist))
	for _, p := range cfg.Denylist {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			deny = append(deny, p)
		}
	}
	return &Validator{
		cfg:      cfg,
		denylist: deny,
		embedder: embedder,
		logger:   logger,
		metrics:  m,
	}
}

// Validate applies, in order: the minimum length, the denylist, and the
// similarity threshold, falling back to the length rule when embedding fails.
// It never returns an error.
func (v *Validator) Validate(ctx context.Context, response, prompt string) Verdict {
	n := utf8.RuneCountInString(response)
	if n < v.cfg.MinLength {
		return Verdict{Reason: fmt.Sprintf("too short (%d < %d chars)", n, v.cfg.MinLength)}
	}

	lower := strings.ToLower(response)
	for _, phrase := range v.denylist {
		if strings.Contains(lower, phrase) {
			return Verdict{Reason: fmt.Sprintf("denylisted phrase %q", phrase)}
		}
	}

	sim, err := v.similarity(ctx, prompt, response)
	if err != nil {
		v.metrics.RecordValidationFallback()
		v.logger.Debug(ctx, "similarity unavailable, using length fallback", zap.Error(err))
		if n > v.cfg.FallbackMinLength {
			return Verdict{Accepted: true, Reason: fmt.Sprintf("length fallback (%d > %d chars)", n, v.cfg.FallbackMinLength)}
		}
		return Verdict{Reason: fmt.Sprintf("length fallback (%d <= %d chars)", n, v.cfg.FallbackMinLength)}
	}

	if sim > v.cfg.SimilarityThreshold {
		return Verdict{Accepted: true, Similarity: &sim, Reason: fmt.Sprintf("similarity %.3f", sim)}
	}
	return Verdict{Similarity: &sim, Reason: fmt.Sprintf("similarity %.3f <= %.3f", sim, v.cfg.SimilarityThreshold)}
}

func (v *Validator) similarity(ctx context.Context, prompt, response string) (sim float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			sim, err = 0, fmt.Errorf("%w: embedder panic: %v", embeddings.ErrEmbeddingFailed, r)
		}
	}()
	if v.embedder == nil {
		return 0, fmt.Errorf("%w: no embedder configured", embeddings.ErrEmbeddingFailed)
	}
	pv, err := v.embedder.EmbedQuery(ctx, prompt)
	if err != nil {
		return 0, err
	}
	rv, err := v.embedder.EmbedQuery(ctx, response)
	if err != nil {
		return 0, err
	}
	return embeddings.Cosine(pv, rv)
}
