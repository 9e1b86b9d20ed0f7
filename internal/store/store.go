package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stackforge-ai/stack-agent/internal/model"
	"github.com/stackforge-ai/stack-agent/pkg/logger"
)

// maxTurnsFetch caps how many turns one fetch pulls from the log.
const maxTurnsFetch = 500

// JetStreamStore implements the agent's persistence contract: durable
// turns on JetStream, conversation index in memory. A database would
// replace the index in production.
type JetStreamStore struct {
	log    *TurnLog
	logger *logger.Logger

	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	// byUser caches each user's conversation list, rebuilt on every
	// write (refetch-on-write; fine at this scale).
	byUser map[string][]string
}

// New creates a store over an established NATS client.
func New(client *Client, log *logger.Logger) *JetStreamStore {
	return &JetStreamStore{
		log:           NewTurnLog(client),
		logger:        log,
		conversations: make(map[string]*model.Conversation),
		byUser:        make(map[string][]string),
	}
}

// EnsureStream ensures the underlying JetStream stream exists.
func (s *JetStreamStore) EnsureStream(ctx context.Context) error {
	return s.log.EnsureStream(ctx)
}

// CreateConversation persists a new conversation and its first turn. The
// conversation id comes from the initial turn when set.
func (s *JetStreamStore) CreateConversation(ctx context.Context, userID, title string, initial model.Turn) (*model.Conversation, error) {
	id := initial.ConversationID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
		initial.ConversationID = id
	}

	now := time.Now()
	conv := &model.Conversation{
		ID:        id,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		TurnCount: 1,
	}

	if _, err := s.log.AppendTurn(ctx, initial); err != nil {
		return nil, fmt.Errorf("failed to persist initial turn: %w", err)
	}

	s.mu.Lock()
	s.conversations[id] = conv
	s.rebuildUserList(userID)
	s.mu.Unlock()

	s.logger.Info("conversation created",
		zap.String("conversation_id", id),
		zap.String("user_id", userID),
	)

	out := *conv
	return &out, nil
}

// AppendTurn appends a turn to an existing conversation and refreshes the
// owner's conversation list.
func (s *JetStreamStore) AppendTurn(ctx context.Context, conversationID string, turn model.Turn, userID string) error {
	turn.ConversationID = conversationID

	if _, err := s.log.AppendTurn(ctx, turn); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[conversationID]
	if !exists {
		return fmt.Errorf("conversation not found")
	}
	conv.TurnCount++
	conv.UpdatedAt = time.Now()
	s.rebuildUserList(userID)

	return nil
}

// Meta fetches a conversation's index entry without its turns. Cheap;
// used for ownership checks before anything touches the turn log.
func (s *JetStreamStore) Meta(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[id]
	if !exists || conv.Deleted {
		return nil, fmt.Errorf("conversation not found")
	}

	out := *conv
	return &out, nil
}

// GetConversation fetches a conversation with its ordered turns.
func (s *JetStreamStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.Meta(ctx, id)
	if err != nil {
		return nil, err
	}

	turns, err := s.log.Turns(ctx, conv.UserID, id, maxTurnsFetch)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch turns: %w", err)
	}

	conv.Turns = turns
	return conv, nil
}

// DeleteConversation soft deletes a conversation. The turn log keeps the
// history; only the index entry is hidden.
func (s *JetStreamStore) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[id]
	if !exists || conv.Deleted {
		return fmt.Errorf("conversation not found")
	}

	conv.Deleted = true
	conv.UpdatedAt = time.Now()
	s.rebuildUserList(conv.UserID)

	return nil
}

// ListConversations returns a user's conversations, most recent first.
func (s *JetStreamStore) ListConversations(ctx context.Context, userID string, limit, offset int) (*model.ListConversationsResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	convs := make([]model.Conversation, 0, len(ids))
	for _, id := range ids {
		if conv, ok := s.conversations[id]; ok {
			convs = append(convs, *conv)
		}
	}

	total := len(convs)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &model.ListConversationsResponse{
		Conversations: convs[start:end],
		Total:         total,
		HasMore:       end < total,
	}, nil
}

// rebuildUserList recomputes one user's conversation list. Callers hold
// the write lock.
func (s *JetStreamStore) rebuildUserList(userID string) {
	var ids []string
	for id, conv := range s.conversations {
		if conv.UserID == userID && !conv.Deleted {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.conversations[ids[i]].UpdatedAt.After(s.conversations[ids[j]].UpdatedAt)
	})
	s.byUser[userID] = ids
}
