package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTEIService_EmbedQuery(t *testing.T) {
	var gotBody teiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode([][]float32{{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	svc, err := NewTEIService(TEIConfig{BaseURL: srv.URL + "/", Model: "BAAI/bge-small-en-v1.5"})
	require.NoError(t, err)

	vec, err := svc.EmbedQuery(context.Background(), "ctr dropped")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "ctr dropped", gotBody.Inputs)
	assert.True(t, gotBody.Truncate)
}

func TestTEIService_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		text    string
		wantErr error
	}{
		{
			name:    "empty text",
			handler: func(w http.ResponseWriter, r *http.Request) { t.Error("server must not be called") },
			text:    "",
			wantErr: ErrEmptyInput,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model loading", http.StatusServiceUnavailable)
			},
			text:    "x",
			wantErr: ErrEmbeddingFailed,
		},
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("not json")) },
			text:    "x",
			wantErr: ErrEmbeddingFailed,
		},
		{
			name:    "empty vectors",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("[]")) },
			text:    "x",
			wantErr: ErrEmbeddingFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			svc, err := NewTEIService(TEIConfig{BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = svc.EmbedQuery(context.Background(), tt.text)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTEIService_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[[1]]"))
	}))
	defer srv.Close()

	svc, err := NewTEIService(TEIConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.EmbedQuery(ctx, "x")
	assert.Error(t, err)
}
