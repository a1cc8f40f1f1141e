package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req["model"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"text-embedding-3-small"}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-3.5-turbo", req.Model)
		if !assert.Len(t, req.Messages, 2) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Fees are listed online."},"finish_reason":"stop"}]}`))
	})
	mux.HandleFunc("/empty/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c2","object":"chat.completion","choices":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	srv := newFakeOpenAI(t)
	client := NewOpenAIClient("sk-test", srv.URL+"/v1", 5*time.Second)

	emb := NewOpenAIEmbedder(client, "text-embedding-3-small")
	require.True(t, emb.Ready())
	assert.Equal(t, 1536, emb.Dimensions())
	assert.Equal(t, "text-embedding-3-small", emb.ModelID())

	vec, err := emb.Embed(context.Background(), "What are your fees?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)

	_, err = emb.Embed(context.Background(), "   ")
	assert.Error(t, err)
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	srv := newFakeOpenAI(t)
	client := NewOpenAIClient("sk-test", srv.URL+"/v1", 5*time.Second)

	gen := NewOpenAIGenerator(client, "gpt-3.5-turbo", 0.2, 0)
	out, err := gen.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "prompt"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Fees are listed online.", out)
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	srv := newFakeOpenAI(t)
	client := NewOpenAIClient("sk-test", srv.URL+"/empty/v1", 5*time.Second)

	_, err := NewOpenAIGenerator(client, "gpt-3.5-turbo", 0.2, 0).Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "prompt"},
	})
	assert.Error(t, err)
}

func TestNoopCollaborators(t *testing.T) {
	assert.Nil(t, NewOpenAIClient("  ", "", 0))

	emb := NewOpenAIEmbedder(nil, "")
	assert.False(t, emb.Ready())
	assert.Equal(t, "text-embedding-3-small", emb.ModelID())
	_, err := emb.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmbedderNotConfigured)

	gen := NewOpenAIGenerator(nil, "", 0, 0)
	assert.False(t, gen.Ready())
	_, err = gen.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrGeneratorNotConfigured)
}
