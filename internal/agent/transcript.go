package agent

import (
	"sync"

	"github.com/stackforge-ai/stack-agent/internal/model"
)

// Transcript is the in-memory ordered turn log, keyed by conversation id.
// It mirrors whatever the persistence collaborator holds; appends are
// monotonic and nothing is ever reordered or deleted in place.
type Transcript struct {
	mu        sync.RWMutex
	currentID string
	turns     map[string][]model.Turn
}

// NewTranscript creates an empty transcript store.
func NewTranscript() *Transcript {
	return &Transcript{turns: make(map[string][]model.Turn)}
}

// Append adds a turn to the end of its conversation's log.
func (t *Transcript) Append(turn model.Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns[turn.ConversationID] = append(t.turns[turn.ConversationID], turn)
}

// Replace swaps in a whole transcript, used when switching to a different
// persisted conversation.
func (t *Transcript) Replace(conversationID string, turns []model.Turn) {
	copied := make([]model.Turn, len(turns))
	copy(copied, turns)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns[conversationID] = copied
}

// Delete drops a conversation's turn log. If it was the active
// conversation, there is no active conversation afterwards.
func (t *Transcript) Delete(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.turns, conversationID)
	if t.currentID == conversationID {
		t.currentID = ""
	}
}

// Turns returns a copy of a conversation's ordered turn log.
func (t *Transcript) Turns(conversationID string) []model.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	turns := t.turns[conversationID]
	out := make([]model.Turn, len(turns))
	copy(out, turns)
	return out
}

// Recent returns a copy of the last n turns of a conversation.
func (t *Transcript) Recent(conversationID string, n int) []model.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	turns := t.turns[conversationID]
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]model.Turn, len(turns))
	copy(out, turns)
	return out
}

// CurrentID returns the active conversation identifier.
func (t *Transcript) CurrentID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentID
}

// SetCurrentID sets the active conversation identifier.
func (t *Transcript) SetCurrentID(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentID = id
}
