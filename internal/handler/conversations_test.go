package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackforge-ai/stack-agent/internal/agent"
	"github.com/stackforge-ai/stack-agent/internal/model"
	"github.com/stackforge-ai/stack-agent/pkg/logger"
)

// fakeConvStore serves conversation index entries from a map.
type fakeConvStore struct {
	metas   map[string]*model.Conversation
	deleted []string
}

func (f *fakeConvStore) Meta(_ context.Context, id string) (*model.Conversation, error) {
	if conv, ok := f.metas[id]; ok && !conv.Deleted {
		out := *conv
		return &out, nil
	}
	return nil, errors.New("conversation not found")
}

func (f *fakeConvStore) ListConversations(context.Context, string, int, int) (*model.ListConversationsResponse, error) {
	return &model.ListConversationsResponse{}, nil
}

func (f *fakeConvStore) DeleteConversation(_ context.Context, id string) error {
	conv, ok := f.metas[id]
	if !ok {
		return errors.New("conversation not found")
	}
	conv.Deleted = true
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeAgentStore backs the agent with canned conversations.
type fakeAgentStore struct {
	conv *model.Conversation
}

func (f *fakeAgentStore) CreateConversation(context.Context, string, string, model.Turn) (*model.Conversation, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAgentStore) AppendTurn(context.Context, string, model.Turn, string) error {
	return nil
}

func (f *fakeAgentStore) GetConversation(_ context.Context, id string) (*model.Conversation, error) {
	if f.conv != nil && f.conv.ID == id {
		out := *f.conv
		return &out, nil
	}
	return nil, errors.New("conversation not found")
}

func (f *fakeAgentStore) DeleteConversation(context.Context, string) error {
	return nil
}

func newConvRouter(st ConversationStore, ag *agent.Agent) *chi.Mux {
	log := logger.NewNop()
	ch := NewConversationHandler(st, ag, log)
	mh := NewMessageHandler(ag, log)

	r := chi.NewRouter()
	r.Get("/conversations/{id}", ch.Get)
	r.Delete("/conversations/{id}", ch.Delete)
	r.Get("/conversations/{id}/turns", mh.ListTurns)
	r.Post("/conversations/{id}/messages", mh.Send)
	return r
}

func TestConversationHandler_GetForeignConversationNotLoaded(t *testing.T) {
	const convID = "0190cafe-1234-7abc-8def-0123456789ab"
	foreign := &model.Conversation{
		ID:     convID,
		UserID: "someone-else",
		Title:  "not yours",
		Turns:  []model.Turn{{ID: "t1", ConversationID: convID, UserID: "someone-else"}},
	}
	st := &fakeConvStore{metas: map[string]*model.Conversation{convID: foreign}}
	ag := agent.New(&stubLLM{text: "ok"}, &fakeAgentStore{conv: foreign}, []string{"m1"}, 10, logger.NewNop())
	router := newConvRouter(st, ag)

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+convID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	// The denied fetch never mirrors the foreign conversation into memory.
	assert.Equal(t, "", ag.Transcript().CurrentID())
	assert.Empty(t, ag.Transcript().Turns(convID))
}

func TestConversationHandler_DeleteForeignConversation(t *testing.T) {
	const convID = "0190cafe-1234-7abc-8def-0123456789ab"
	st := &fakeConvStore{metas: map[string]*model.Conversation{
		convID: {ID: convID, UserID: "someone-else"},
	}}
	ag := agent.New(&stubLLM{text: "ok"}, nil, []string{"m1"}, 10, logger.NewNop())
	router := newConvRouter(st, ag)

	req := httptest.NewRequest(http.MethodDelete, "/conversations/"+convID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, st.deleted)
}

func TestConversationHandler_DeleteRetiresMemory(t *testing.T) {
	ag := agent.New(&stubLLM{text: "a reply worth reading"}, nil, []string{"m1"}, 10, logger.NewNop())
	st := &fakeConvStore{metas: map[string]*model.Conversation{}}
	router := newConvRouter(st, ag)

	// Create a conversation through the agent so it lives in memory.
	reply, err := ag.Send(context.Background(), "", "", "hello agent", model.Preferences{})
	require.NoError(t, err)
	convID := reply.ConversationID
	st.metas[convID] = &model.Conversation{ID: convID, UserID: ""}

	req := httptest.NewRequest(http.MethodDelete, "/conversations/"+convID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{convID}, st.deleted)

	// The transcript mirror is gone too, so turns stop being served.
	req = httptest.NewRequest(http.MethodGet, "/conversations/"+convID+"/turns", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":0`)
}

func TestListTurns_ForeignConversation(t *testing.T) {
	ag := agent.New(&stubLLM{text: "a reply worth reading"}, nil, []string{"m1"}, 10, logger.NewNop())
	router := newConvRouter(&fakeConvStore{}, ag)

	reply, err := ag.Send(context.Background(), "owner", "", "hello agent", model.Preferences{})
	require.NoError(t, err)

	// The test router carries no identity, so the caller is anonymous.
	req := httptest.NewRequest(http.MethodGet, "/conversations/"+reply.ConversationID+"/turns", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSend_ForeignConversation(t *testing.T) {
	ag := agent.New(&stubLLM{text: "a reply worth reading"}, nil, []string{"m1"}, 10, logger.NewNop())
	router := newConvRouter(&fakeConvStore{}, ag)

	reply, err := ag.Send(context.Background(), "owner", "", "hello agent", model.Preferences{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/conversations/"+reply.ConversationID+"/messages",
		strings.NewReader(`{"content":"mine now"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	// No turn was appended to the owner's conversation.
	turns, err := ag.Turns(reply.ConversationID, "owner")
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}
