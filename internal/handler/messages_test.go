package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackforge-ai/stack-agent/internal/agent"
	"github.com/stackforge-ai/stack-agent/internal/llm"
	"github.com/stackforge-ai/stack-agent/pkg/logger"
)

// stubLLM returns a fixed completion or error for every request.
type stubLLM struct {
	text string
	err  error
}

func (s *stubLLM) Complete(context.Context, string, string) (*llm.Completion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Completion{Text: s.text, Model: "m1"}, nil
}

func (s *stubLLM) Name() string { return "stub" }

func newTestRouter(client llm.Client) *chi.Mux {
	log := logger.NewNop()
	ag := agent.New(client, nil, []string{"m1"}, 10, log)
	h := NewMessageHandler(ag, log)

	r := chi.NewRouter()
	r.Post("/conversations/{id}/messages", h.Send)
	r.Get("/conversations/{id}/turns", h.ListTurns)
	return r
}

func TestMessageHandler_Send(t *testing.T) {
	router := newTestRouter(&stubLLM{text: "Sure, here is an idea."})

	body := `{"content":"build me a support bot"}`
	req := httptest.NewRequest(http.MethodPost, "/conversations/new/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sure, here is an idea.")
	assert.Contains(t, rec.Body.String(), "conversation_id")
}

func TestMessageHandler_SendInvalidConversationID(t *testing.T) {
	router := newTestRouter(&stubLLM{text: "ok"})

	req := httptest.NewRequest(http.MethodPost, "/conversations/not-a-uuid/messages", strings.NewReader(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageHandler_SendEmptyContent(t *testing.T) {
	router := newTestRouter(&stubLLM{text: "ok"})

	req := httptest.NewRequest(http.MethodPost, "/conversations/new/messages", strings.NewReader(`{"content":""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageHandler_SendMalformedBody(t *testing.T) {
	router := newTestRouter(&stubLLM{text: "ok"})

	req := httptest.NewRequest(http.MethodPost, "/conversations/new/messages", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageHandler_SendCompletionFailure(t *testing.T) {
	router := newTestRouter(&stubLLM{err: errors.New("provider down")})

	req := httptest.NewRequest(http.MethodPost, "/conversations/new/messages", strings.NewReader(`{"content":"hi there"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMessageHandler_ListTurns(t *testing.T) {
	log := logger.NewNop()
	ag := agent.New(&stubLLM{text: "a reply worth reading"}, nil, []string{"m1"}, 10, log)
	h := NewMessageHandler(ag, log)

	r := chi.NewRouter()
	r.Post("/conversations/{id}/messages", h.Send)
	r.Get("/conversations/{id}/turns", h.ListTurns)

	req := httptest.NewRequest(http.MethodPost, "/conversations/new/messages", strings.NewReader(`{"content":"hello agent"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var reply struct {
		ConversationID string `json:"conversation_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	require.NotEmpty(t, reply.ConversationID)

	req = httptest.NewRequest(http.MethodGet, "/conversations/"+reply.ConversationID+"/turns", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)
}
