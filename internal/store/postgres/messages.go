package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/capitalize-ai/localchat/internal/model"
)

const messageColumns = `id::text, seq, conversation_id::text, role, content, tokens, model, latency_ms, created_at`

func scanMessage(row pgx.CollectableRow) (model.Message, error) {
	var m model.Message
	var seq int64
	err := row.Scan(&m.ID, &seq, &m.ConversationID, &m.Role, &m.Content, &m.Tokens, &m.Model, &m.LatencyMs, &m.CreatedAt)
	m.Sequence = uint64(seq)
	return m, err
}

// CreateMessage inserts msg and sets its Sequence from the seq column.
func (s *Store) CreateMessage(ctx context.Context, msg *model.Message) error {
	id, err := parseID(msg.ID)
	if err != nil {
		return err
	}
	convID, err := parseID(msg.ConversationID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO messages (id, conversation_id, role, content, tokens, model, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq`

	var seq int64
	err = s.pool.QueryRow(ctx, query,
		id, convID, string(msg.Role), msg.Content, msg.Tokens, msg.Model, msg.LatencyMs, msg.CreatedAt,
	).Scan(&seq)
	if err != nil {
		return mapError(err)
	}

	msg.Sequence = uint64(seq)
	return nil
}

// ListMessages returns a conversation's messages in conversation order.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	cid, err := parseID(conversationID)
	if err != nil {
		return []model.Message{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = $1 ORDER BY created_at, seq`, cid)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	msgs, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}
	return msgs, nil
}
