package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/stackforge-ai/stack-agent/internal/model"
)

const (
	// StreamName is the name of the conversation turn stream.
	StreamName = "STACK_CONVERSATIONS"

	// SubjectPrefix is the prefix for all turn subjects.
	SubjectPrefix = "stacks"
)

// TurnLog appends and reads conversation turns on JetStream. Proposals
// ride along as part of the turn's JSON payload.
type TurnLog struct {
	client *Client
}

// NewTurnLog creates a turn log over an established client.
func NewTurnLog(client *Client) *TurnLog {
	return &TurnLog{client: client}
}

// EnsureStream ensures the turn stream exists with proper configuration.
func (l *TurnLog) EnsureStream(ctx context.Context) error {
	js := l.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "All conversation turns, proposals included",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject for one turn.
func TurnSubject(userID, conversationID string, role model.Role) string {
	return fmt.Sprintf("%s.%s.%s.turn.%s", SubjectPrefix, userID, conversationID, role)
}

// ConversationFilter returns the filter subject for all turns in a
// conversation.
func ConversationFilter(userID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s.turn.>", SubjectPrefix, userID, conversationID)
}

// AppendTurn publishes a turn to the stream.
func (l *TurnLog) AppendTurn(ctx context.Context, turn model.Turn) (uint64, error) {
	subject := TurnSubject(turn.UserID, turn.ConversationID, turn.Role)

	data, err := json.Marshal(turn)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal turn: %w", err)
	}

	ack, err := l.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish turn: %w", err)
	}

	return ack.Sequence, nil
}

// Turns retrieves every turn of a conversation, oldest first.
func (l *TurnLog) Turns(ctx context.Context, userID, conversationID string, limit int) ([]model.Turn, error) {
	js := l.client.JetStream()

	consumer, err := js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: ConversationFilter(userID, conversationID),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch turns: %w", err)
	}

	var turns []model.Turn
	for msg := range batch.Messages() {
		var turn model.Turn
		if err := json.Unmarshal(msg.Data(), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}

	if err := batch.Error(); err != nil && err != context.DeadlineExceeded {
		return nil, fmt.Errorf("batch error: %w", err)
	}

	return turns, nil
}
