package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

func newTestProvider(t *testing.T, handler http.HandlerFunc, opts ...ai.ConfigOption) ai.AIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]ai.ConfigOption{
		ai.WithHost(srv.URL),
		ai.WithAPIKey("test-key"),
		ai.WithDimensions(3),
	}, opts...)
	provider, err := NewProvider(ai.NewConfig(opts...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func embeddingHandler(t *testing.T, dims int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/v1/embeddings"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, 0, len(req.Input))
		// Answer in reverse order to check that index is honored.
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dims)
			vec[0] = float32(len(req.Input[i]))
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": vec})
		}
		writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data, "model": req.Model})
	}
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	provider := newTestProvider(t, embeddingHandler(t, 3))

	vectors, err := provider.Embedder().EmbedTexts(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(3), vectors[1][0])
	assert.Equal(t, 3, provider.Embedder().Dimensions())
}

func TestEmbedder_EmbedText(t *testing.T) {
	provider := newTestProvider(t, embeddingHandler(t, 3))

	vector, err := provider.Embedder().EmbedText(context.Background(), "four")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 0, 0}, vector)
}

func TestEmbedder_WrongDimensions(t *testing.T) {
	provider := newTestProvider(t, embeddingHandler(t, 5))

	_, err := provider.Embedder().EmbedText(context.Background(), "x")
	assert.ErrorIs(t, err, ai.ErrProvider)
}

func TestEmbedder_EmptyInput(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	vectors, err := provider.Embedder().EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestProviderErrors(t *testing.T) {
	statuses := []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
	}

	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, status, map[string]any{
					"error": map[string]any{"message": "nope", "type": "test_error"},
				})
			})

			_, err := provider.Embedder().EmbedText(context.Background(), "x")
			var pe *ai.ProviderError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, status, pe.StatusCode)
			assert.Equal(t, "openai", pe.Provider)

			_, err = provider.Generator().Generate(context.Background(), "x")
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, status, pe.StatusCode)
		})
	}
}

func TestProviderErrors_Classified(t *testing.T) {
	tests := []struct {
		status int
		want   fault.Kind
	}{
		{http.StatusBadRequest, fault.BadRequest},
		{http.StatusUnauthorized, fault.AuthFailure},
		{http.StatusForbidden, fault.PermissionDenied},
		{http.StatusNotFound, fault.ServiceError},
		{http.StatusConflict, fault.ServiceError},
		{http.StatusRequestEntityTooLarge, fault.ServiceError},
		{http.StatusUnprocessableEntity, fault.ServiceError},
		{http.StatusTooManyRequests, fault.RateLimited},
		{http.StatusServiceUnavailable, fault.ServiceError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]any{
					"error": map[string]any{"message": "The model `gpt-nope` does not exist", "type": "invalid_request_error"},
				})
			})

			_, err := provider.Generator().Generate(context.Background(), "x")
			f := fault.Translate(err)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.Kind)
		})
	}
}

func TestProviderError_NonJSONBody(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := provider.Generator().Generate(context.Background(), "x")
	var pe *ai.ProviderError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, http.StatusBadGateway, pe.StatusCode)
}

func TestGenerator_Generate(t *testing.T) {
	var got map[string]any
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/v1/chat/completions"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "It was established in 1950."},
				"finish_reason": "stop",
			}},
		})
	}, ai.WithChatModel("gpt-test"))

	answer, err := provider.Generator().Generate(context.Background(), "When?")
	require.NoError(t, err)
	assert.Equal(t, "It was established in 1950.", answer)
	assert.Equal(t, "gpt-test", got["model"])

	messages := got["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
	assert.Equal(t, "When?", messages[0].(map[string]any)["content"])
}

func TestGenerator_NoChoices(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "cmpl-1", "choices": []any{}})
	})

	_, err := provider.Generator().Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ai.ErrProvider)
}

func TestConnectionErrorPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	provider, err := NewProvider(ai.NewConfig(ai.WithHost(url), ai.WithDimensions(3)))
	require.NoError(t, err)

	_, err = provider.Generator().Generate(context.Background(), "x")
	require.Error(t, err)
	var pe *ai.ProviderError
	assert.False(t, errors.As(err, &pe))
}
