// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stackforge-ai/stack-agent/internal/agent"
	"github.com/stackforge-ai/stack-agent/internal/middleware"
	"github.com/stackforge-ai/stack-agent/internal/model"
	"github.com/stackforge-ai/stack-agent/pkg/logger"
)

// ConversationStore is what the conversation endpoints need from the
// persistence layer.
type ConversationStore interface {
	Meta(ctx context.Context, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit, offset int) (*model.ListConversationsResponse, error)
	DeleteConversation(ctx context.Context, id string) error
}

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	store  ConversationStore
	agent  *agent.Agent
	logger *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(st ConversationStore, ag *agent.Agent, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		store:  st,
		agent:  ag,
		logger: log,
	}
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	limit := 20
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	resp, err := h.store.ListConversations(ctx, userID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/conversations/:id
//
// A fetch also makes the conversation the agent's active one, mirroring
// the transcript into memory. Ownership is checked against the index
// entry first so a foreign conversation is never loaded at all.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta, err := h.store.Meta(ctx, conversationID)
	if err != nil || meta.UserID != userID {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	conv, err := h.agent.Load(ctx, conversationID)
	if err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/v1/conversations/:id
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta, err := h.store.Meta(ctx, conversationID)
	if err != nil || meta.UserID != userID {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	if err := h.store.DeleteConversation(ctx, conversationID); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	// Drop the in-memory mirror too, so nothing keeps serving the
	// deleted conversation.
	h.agent.Retire(conversationID)

	w.WriteHeader(http.StatusNoContent)
}
