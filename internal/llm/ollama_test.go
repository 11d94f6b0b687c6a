package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(handler http.Handler) (*OllamaProvider, *httptest.Server) {
	srv := httptest.NewServer(handler)
	p := NewOllamaProvider(&Config{Endpoint: srv.URL, Model: "default-model"})
	return p, srv
}

func TestInvokeSendsGenerateRequest(t *testing.T) {
	var got ollamaGenerateRequest
	p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Model: got.Model, Response: "こんにちは", Done: true, EvalCount: 7,
		})
	}))
	defer srv.Close()

	resp, err := p.Invoke(context.Background(), &Request{Prompt: "挨拶して"})
	require.NoError(t, err)
	assert.Equal(t, "こんにちは", resp.Content)
	assert.Equal(t, 7, resp.TokensUsed)

	// Default model fills in when the request does not name one.
	assert.Equal(t, "default-model", got.Model)
	assert.False(t, got.Stream)
}

func TestInvokeSurfacesAPIErrors(t *testing.T) {
	p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := p.Invoke(context.Background(), &Request{Prompt: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestCreateModelPostsModelfile(t *testing.T) {
	var got map[string]interface{}
	p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/create", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	require.NoError(t, p.CreateModel(context.Background(), "specialist", "FROM base\n"))
	assert.Equal(t, "specialist", got["name"])
	assert.Equal(t, "FROM base\n", got["modelfile"])
}

func TestListModels(t *testing.T) {
	p, srv := newTestProvider(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models": [{"name": "a"}, {"name": "b"}]}`)
	}))
	defer srv.Close()

	names, err := p.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestFactorySelectsBackend(t *testing.T) {
	p, err := NewProvider(&Config{Name: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = NewProvider(&Config{Name: "no_such_backend"})
	assert.Error(t, err)
}
