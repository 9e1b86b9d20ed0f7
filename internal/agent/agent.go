package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stackforge-ai/stack-agent/internal/llm"
	"github.com/stackforge-ai/stack-agent/internal/model"
	"github.com/stackforge-ai/stack-agent/pkg/logger"
	"github.com/stackforge-ai/stack-agent/pkg/metrics"
)

// ErrConversationBusy is returned when a conversation already has a
// completion request in flight. Callers surface it instead of queueing;
// it is the server-side equivalent of the UI disabling input.
var ErrConversationBusy = errors.New("conversation already has a request in flight")

// ErrConversationNotOwned is returned when a caller addresses a
// conversation that belongs to a different user.
var ErrConversationNotOwned = errors.New("conversation belongs to another user")

// Store is the persistence collaborator. Writes are fire-and-forget
// relative to the in-memory transcript: failures are logged, never
// surfaced, and never roll back what the user already sees.
type Store interface {
	// CreateConversation persists a new conversation with its first
	// turn. The conversation id is taken from the initial turn.
	CreateConversation(ctx context.Context, userID, title string, initial model.Turn) (*model.Conversation, error)

	// AppendTurn appends a turn to an existing conversation.
	AppendTurn(ctx context.Context, conversationID string, turn model.Turn, userID string) error

	// GetConversation fetches a conversation with its ordered turns.
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)

	// DeleteConversation removes a conversation.
	DeleteConversation(ctx context.Context, id string) error
}

// persistOp is one queued persistence write.
type persistOp struct {
	create bool
	userID string
	title  string
	turn   model.Turn
}

// session holds per-conversation agent state: the clarification dialogue,
// the escalation chain position, buffered content hidden while questions
// pend, and the in-flight gate. Model state is conversation-scoped on
// purpose so concurrent conversations never interfere with each other's
// escalation. All fields except chain and prefs may be read outside the
// in-flight gate, so access goes through the locked accessors below.
type session struct {
	mu       sync.Mutex
	inFlight bool
	created  bool
	retired  bool
	dialogue Dialogue

	// proposals and postscripts extracted while clarification questions
	// were pending, withheld until the queue empties.
	proposals   []model.StackProposal
	postscripts []string

	chain     *ModelChain
	prefs     model.Preferences
	persistCh chan persistOp
}

func (s *session) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

func (s *session) release() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *session) state() DialogueState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogue.State()
}

func (s *session) loadQuestions(questions []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogue.LoadQuestions(questions)
}

// nextQuestion returns the front-most pending question and the pending
// count, without dequeueing.
func (s *session) nextQuestion() (string, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.dialogue.Next()
	return q, s.dialogue.PendingCount(), ok
}

func (s *session) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogue.PendingCount()
}

func (s *session) answerQuestion(answer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dialogue.Answer(answer)
	return ok
}

// drainResume synthesizes the resume summary and clears the answered
// buffer in one step.
func (s *session) drainResume() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := s.dialogue.Summary()
	s.dialogue.ClearAnswered()
	return summary
}

// bufferHidden stashes proposals and postscripts that arrived while
// clarification questions were pending.
func (s *session) bufferHidden(proposals []model.StackProposal, postscripts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals = append(s.proposals, proposals...)
	s.postscripts = append(s.postscripts, postscripts...)
}

// takeHidden pops everything buffered by bufferHidden.
func (s *session) takeHidden() ([]model.StackProposal, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposals, postscripts := s.proposals, s.postscripts
	s.proposals, s.postscripts = nil, nil
	return proposals, postscripts
}

func (s *session) markCreated() {
	s.mu.Lock()
	s.created = true
	s.mu.Unlock()
}

// enqueue hands a turn to the persistence loop. The first write of a
// session becomes the create. Returns false when the queue is full or
// the session has been retired.
func (s *session) enqueue(userID, title string, turn model.Turn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return false
	}
	op := persistOp{userID: userID, turn: turn}
	if !s.created {
		s.created = true
		op.create = true
		op.title = title
	}
	select {
	case s.persistCh <- op:
		return true
	default:
		return false
	}
}

// retire closes the persistence queue. The loop drains what is already
// buffered and exits. Idempotent.
func (s *session) retire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return
	}
	s.retired = true
	close(s.persistCh)
}

// Agent drives the conversational stack agent.
type Agent struct {
	llm        llm.Client
	store      Store
	transcript *Transcript
	prompts    *PromptBuilder
	chain      []string
	logger     *logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates an agent. chain is the model escalation chain, most
// preferred model first.
func New(llmClient llm.Client, store Store, chain []string, historyWindow int, log *logger.Logger) *Agent {
	return &Agent{
		llm:        llmClient,
		store:      store,
		transcript: NewTranscript(),
		prompts:    NewPromptBuilder(historyWindow),
		chain:      chain,
		logger:     log,
		sessions:   make(map[string]*session),
	}
}

// Transcript exposes the in-memory transcript store.
func (a *Agent) Transcript() *Transcript {
	return a.transcript
}

func (a *Agent) session(conversationID string) *session {
	a.mu.Lock()
	defer a.mu.Unlock()
	sess, ok := a.sessions[conversationID]
	if !ok {
		sess = &session{
			chain:     NewModelChain(a.chain),
			persistCh: make(chan persistOp, 64),
		}
		a.sessions[conversationID] = sess
		go a.persistLoop(conversationID, sess)
	}
	return sess
}

// peek returns an existing session without creating one.
func (a *Agent) peek(conversationID string) *session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions[conversationID]
}

// Send handles one user submission. While clarification questions are
// pending the text is treated as an answer to the front-most question;
// otherwise it is a fresh query sent straight through.
func (a *Agent) Send(ctx context.Context, userID, conversationID, text string, prefs model.Preferences) (*model.AgentReply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("message text is empty")
	}
	if conversationID == "" {
		conversationID = uuid.Must(uuid.NewV7()).String()
	}

	sess := a.session(conversationID)
	if !sess.tryAcquire() {
		return nil, ErrConversationBusy
	}
	defer sess.release()

	if owner, ok := a.owner(conversationID); ok && owner != userID {
		return nil, ErrConversationNotOwned
	}

	sess.prefs = prefs
	a.transcript.SetCurrentID(conversationID)

	if sess.state() == StateAwaitingAnswer {
		return a.answer(ctx, sess, userID, conversationID, text)
	}
	return a.exchange(ctx, sess, userID, conversationID, text, true)
}

// Turns returns a caller-facing view of a conversation's transcript.
// Proposals stay hidden while clarification questions are pending, the
// same gating the reply itself applies.
func (a *Agent) Turns(conversationID, userID string) ([]model.Turn, error) {
	if owner, ok := a.owner(conversationID); ok && owner != userID {
		return nil, ErrConversationNotOwned
	}
	turns := a.transcript.Turns(conversationID)
	if sess := a.peek(conversationID); sess != nil && sess.pendingCount() > 0 {
		for i := range turns {
			turns[i].Proposals = nil
		}
	}
	return turns, nil
}

// Retire drops a conversation's in-memory state: the session, its
// persistence loop, and the transcript mirror. Buffered persistence
// writes still drain.
func (a *Agent) Retire(conversationID string) {
	a.mu.Lock()
	sess := a.sessions[conversationID]
	delete(a.sessions, conversationID)
	a.mu.Unlock()

	if sess != nil {
		sess.retire()
	}
	a.transcript.Delete(conversationID)
}

// owner reports which user the in-memory transcript belongs to.
func (a *Agent) owner(conversationID string) (string, bool) {
	turns := a.transcript.Turns(conversationID)
	if len(turns) == 0 {
		return "", false
	}
	return turns[0].UserID, true
}

// answer folds a clarification answer into the dialogue. Draining the
// queue triggers the synthesized resume request automatically, with no
// further user action.
func (a *Agent) answer(ctx context.Context, sess *session, userID, conversationID, text string) (*model.AgentReply, error) {
	if !sess.answerQuestion(text) {
		return nil, errors.New("no pending clarification to answer")
	}
	metrics.ClarificationsTotal.WithLabelValues("answered").Inc()

	userTurn := a.newTurn(conversationID, userID, model.RoleUser, text)
	a.transcript.Append(userTurn)
	metrics.TurnsTotal.WithLabelValues(string(model.RoleUser)).Inc()
	a.persist(sess, userID, userTurn)

	if next, count, ok := sess.nextQuestion(); ok {
		return &model.AgentReply{
			ConversationID:  conversationID,
			UserTurn:        &userTurn,
			PendingQuestion: next,
			PendingCount:    count,
		}, nil
	}

	// Queue drained: the buffered answers become the next request on the
	// same conversation. The answers are already in the transcript, so
	// the summary itself is not appended as a user turn.
	summary := sess.drainResume()

	reply, err := a.exchange(ctx, sess, userID, conversationID, summary, false)
	if err != nil {
		return nil, err
	}
	reply.UserTurn = &userTurn

	if reply.PendingQuestion == "" {
		proposals, postscripts := sess.takeHidden()
		reply.Proposals = append(proposals, reply.Proposals...)
		if len(postscripts) > 0 {
			buffered := strings.Join(postscripts, "\n\n")
			if reply.Postscript != "" {
				reply.Postscript = buffered + "\n\n" + reply.Postscript
			} else {
				reply.Postscript = buffered
			}
		}
	}
	return reply, nil
}

// exchange runs one prompt/completion round trip: build the prompt from
// history, complete (escalating through the model chain on "model not
// found"), parse, and append the assistant turn.
func (a *Agent) exchange(ctx context.Context, sess *session, userID, conversationID, text string, appendUser bool) (*model.AgentReply, error) {
	log := a.logger.WithConversation(userID, conversationID)

	history := a.transcript.Turns(conversationID)
	prompt := a.prompts.Build(text, history, sess.prefs)

	var userTurn *model.Turn
	if appendUser {
		t := a.newTurn(conversationID, userID, model.RoleUser, text)
		a.transcript.Append(t)
		metrics.TurnsTotal.WithLabelValues(string(model.RoleUser)).Inc()
		a.persist(sess, userID, t)
		userTurn = &t
	}

	escalated := false
	var comp *llm.Completion
	for {
		modelID := sess.chain.Current()
		start := time.Now()

		var err error
		comp, err = a.llm.Complete(ctx, prompt, modelID)
		if err == nil {
			metrics.RecordCompletion(modelID, "success", time.Since(start).Seconds())
			break
		}

		metrics.RecordCompletion(modelID, "error", time.Since(start).Seconds())
		if !llm.IsModelNotFound(err) {
			return nil, fmt.Errorf("completion failed: %w", err)
		}

		next, ok := sess.chain.Advance()
		if !ok {
			// End of the chain: the rejection surfaces like any failure.
			return nil, fmt.Errorf("completion failed on last chain model %q: %w", modelID, err)
		}
		escalated = true
		metrics.RecordEscalation(modelID, next)
		log.Warn("model rejected by provider, escalating",
			zap.String("from_model", modelID),
			zap.String("to_model", next),
		)
		// Re-issue the identical request once on the new model. The
		// user's turn is never appended a second time.
	}

	parsed := ParseResponse(comp.Text)
	if parsed.Recovered {
		metrics.ParseRecoveriesTotal.WithLabelValues("recovered").Inc()
	}
	if n := len(parsed.Proposals); n > 0 {
		metrics.ProposalsExtractedTotal.Add(float64(n))
	}
	if sess.loadQuestions(parsed.Questions) {
		metrics.ClarificationsTotal.WithLabelValues("asked").Add(float64(len(parsed.Questions)))
	}

	assistantTurn := a.newTurn(conversationID, userID, model.RoleAssistant, parsed.DisplayText)
	assistantTurn.Proposals = parsed.Proposals
	assistantTurn.Raw = comp.Raw
	assistantTurn.Model = comp.Model
	a.transcript.Append(assistantTurn)
	metrics.TurnsTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
	a.persist(sess, userID, assistantTurn)

	reply := &model.AgentReply{
		ConversationID: conversationID,
		UserTurn:       userTurn,
		AssistantTurn:  &assistantTurn,
		Model:          comp.Model,
		ModelEscalated: escalated,
	}

	visible := make([]string, 0, len(parsed.Preambles)+1)
	visible = append(visible, parsed.Preambles...)
	if parsed.DisplayText != DisplayPlaceholder || len(visible) == 0 {
		visible = append(visible, parsed.DisplayText)
	}
	reply.Text = strings.Join(visible, "\n\n")

	if next, count, ok := sess.nextQuestion(); ok {
		// Nothing structured leaves the agent until every pending
		// question is answered: proposals and postscripts are buffered,
		// and the turn embedded in the reply is stripped too. The
		// transcript keeps the full turn for persistence.
		sess.bufferHidden(parsed.Proposals, parsed.Postscripts)
		replyTurn := assistantTurn
		replyTurn.Proposals = nil
		reply.AssistantTurn = &replyTurn
		reply.PendingQuestion = next
		reply.PendingCount = count
	} else {
		reply.Proposals = parsed.Proposals
		if len(parsed.Postscripts) > 0 {
			reply.Postscript = strings.Join(parsed.Postscripts, "\n\n")
		}
	}

	return reply, nil
}

// Load fetches a persisted conversation and makes it the active one.
func (a *Agent) Load(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if a.store == nil {
		return nil, errors.New("no persistence store configured")
	}
	conv, err := a.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	a.transcript.Replace(conversationID, conv.Turns)
	a.transcript.SetCurrentID(conversationID)
	a.session(conversationID).markCreated()
	return conv, nil
}

func (a *Agent) newTurn(conversationID, userID string, role model.Role, content string) model.Turn {
	return model.Turn{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}

// persist enqueues a fire-and-forget write. The per-session queue keeps
// persisted turn order identical to transcript order.
func (a *Agent) persist(sess *session, userID string, turn model.Turn) {
	if a.store == nil {
		return
	}
	if !sess.enqueue(userID, deriveTitle(turn.Content), turn) {
		metrics.PersistFailuresTotal.WithLabelValues("enqueue").Inc()
		a.logger.Warn("persistence queue unavailable, dropping write",
			zap.String("conversation_id", turn.ConversationID),
		)
	}
}

func (a *Agent) persistLoop(conversationID string, sess *session) {
	for op := range sess.persistCh {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

		var err error
		if op.create {
			_, err = a.store.CreateConversation(ctx, op.userID, op.title, op.turn)
			if err == nil {
				metrics.ConversationsTotal.Inc()
			}
		} else {
			err = a.store.AppendTurn(ctx, conversationID, op.turn, op.userID)
		}
		cancel()

		if err != nil {
			operation := "append"
			if op.create {
				operation = "create"
			}
			metrics.PersistFailuresTotal.WithLabelValues(operation).Inc()
			a.logger.Warn("failed to persist turn",
				zap.String("conversation_id", conversationID),
				zap.String("operation", operation),
				zap.Error(err),
			)
		}
	}
}

// deriveTitle trims the first message into a conversation title.
func deriveTitle(content string) string {
	title := strings.TrimSpace(content)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	if len(title) > 64 {
		title = strings.TrimSpace(title[:64])
	}
	return title
}
