//go:build !cgo

package embeddings

import (
	"context"

	"github.com/fyrsmithlabs/adanalyst/internal/logging"
)

// EnsureONNXRuntime always fails without cgo; fastembed cannot load a runtime.
func EnsureONNXRuntime(_ context.Context, _ *logging.Logger) (string, error) {
	return "", ErrFastEmbedNotAvailable
}
