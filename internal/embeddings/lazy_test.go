package embeddings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/adanalyst/internal/logging"
)

type stubProvider struct {
	vec    []float32
	err    error
	closed atomic.Bool
}

func (s *stubProvider) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return s.vec, s.err
}
func (s *stubProvider) Dimension() int { return len(s.vec) }
func (s *stubProvider) Close() error   { s.closed.Store(true); return nil }

func TestLazy_InitializesOnce(t *testing.T) {
	var calls atomic.Int32
	stub := &stubProvider{vec: []float32{1, 0}}
	lazy := NewLazy(func() (Provider, error) {
		calls.Add(1)
		return stub, nil
	}, nil)

	assert.Zero(t, calls.Load(), "factory must not run before first use")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vec, err := lazy.EmbedQuery(context.Background(), "text")
			assert.NoError(t, err)
			assert.Equal(t, []float32{1, 0}, vec)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	require.NoError(t, lazy.Close())
	assert.True(t, stub.closed.Load())
}

func TestLazy_InitErrorIsSticky(t *testing.T) {
	var calls atomic.Int32
	logger := logging.NewTestLogger()
	lazy := NewLazy(func() (Provider, error) {
		calls.Add(1)
		return nil, errors.New("onnx runtime missing")
	}, logger.Logger)

	for i := 0; i < 3; i++ {
		_, err := lazy.EmbedQuery(context.Background(), "text")
		require.ErrorIs(t, err, ErrEmbeddingFailed)
		assert.Contains(t, err.Error(), "onnx runtime missing")
	}
	assert.EqualValues(t, 1, calls.Load())
	assert.Len(t, logger.FilterMessage("embedding provider unavailable").All(), 1)
	assert.NoError(t, lazy.Close())
}

func TestLazy_CloseBeforeUse(t *testing.T) {
	lazy := NewLazy(func() (Provider, error) {
		t.Error("factory must not run after Close")
		return nil, nil
	}, nil)

	require.NoError(t, lazy.Close())
	_, err := lazy.EmbedQuery(context.Background(), "text")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

type fakeLCEmbedder struct {
	vec []float32
	err error
}

func (f fakeLCEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, f.err
}

func (f fakeLCEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return f.vec, f.err
}

func TestOpenAIProvider_EmbedQuery(t *testing.T) {
	p := newOpenAIProviderWith(fakeLCEmbedder{vec: []float32{0.5, 0.5}}, 2)
	vec, err := p.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)

	_, err = p.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	failing := newOpenAIProviderWith(fakeLCEmbedder{err: errors.New("401")}, 2)
	_, err = failing.EmbedQuery(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)

	empty := newOpenAIProviderWith(fakeLCEmbedder{}, 2)
	_, err = empty.EmbedQuery(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}
