package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyClient_Complete(t *testing.T) {
	var gotReq proxyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(proxyResponse{
			Content: []proxyContentBlock{
				{Type: "text", Text: "hello there"},
				{Type: "text", Text: "ignored second block"},
			},
			Model: "served-model",
		})
	}))
	defer server.Close()

	client := NewProxyClient(server.URL)
	comp, err := client.Complete(context.Background(), "a prompt", "requested-model")
	require.NoError(t, err)

	assert.Equal(t, "a prompt", gotReq.Prompt)
	assert.Equal(t, "requested-model", gotReq.Model)
	assert.Equal(t, "hello there", comp.Text)
	assert.Equal(t, "served-model", comp.Model)
	assert.NotEmpty(t, comp.Raw)
}

func TestProxyClient_FallsBackToRequestedModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(proxyResponse{
			Content: []proxyContentBlock{{Type: "text", Text: "ok"}},
		})
	}))
	defer server.Close()

	comp, err := NewProxyClient(server.URL).Complete(context.Background(), "p", "requested-model")
	require.NoError(t, err)
	assert.Equal(t, "requested-model", comp.Model)
}

func TestProxyClient_ModelNotFoundError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(proxyErrorResponse{
			Error:   "upstream rejected request",
			Details: "not_found_error: model no-such-model does not exist",
		})
	}))
	defer server.Close()

	_, err := NewProxyClient(server.URL).Complete(context.Background(), "p", "no-such-model")
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusNotFound, pe.StatusCode)
	assert.True(t, pe.ModelNotFound())
	assert.True(t, IsModelNotFound(err))
}

func TestProxyClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream timeout"))
	}))
	defer server.Close()

	_, err := NewProxyClient(server.URL).Complete(context.Background(), "p", "m")
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusBadGateway, pe.StatusCode)
	assert.Equal(t, "upstream timeout", pe.Details)
	assert.False(t, IsModelNotFound(err))
}

func TestProxyClient_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(proxyResponse{Model: "m"})
	}))
	defer server.Close()

	_, err := NewProxyClient(server.URL).Complete(context.Background(), "p", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content blocks")
}

func TestProxyClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	_, err := NewProxyClient(server.URL).Complete(context.Background(), "p", "m")
	require.Error(t, err)

	var pe *ProviderError
	assert.False(t, errors.As(err, &pe))
}
