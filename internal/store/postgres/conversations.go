package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/capitalize-ai/localchat/internal/model"
)

const conversationColumns = `id::text, user_id::text, model, title, created_at`

// CreateConversation inserts conv; an unknown owner returns store.ErrNotFound.
func (s *Store) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	id, err := parseID(conv.ID)
	if err != nil {
		return err
	}
	userID, err := parseID(conv.UserID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO conversations (id, user_id, model, title, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = s.pool.Exec(ctx, query, id, userID, conv.Model, conv.Title, conv.CreatedAt)
	return mapError(err)
}

// GetConversation returns the conversation with id, without messages.
func (s *Store) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	cid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	conv := &model.Conversation{}
	err = s.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, cid).Scan(
		&conv.ID, &conv.UserID, &conv.Model, &conv.Title, &conv.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return conv, nil
}

// ListConversations returns conversations with messages loaded in a second query.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if userID == "" {
		rows, err = s.pool.Query(ctx, `SELECT `+conversationColumns+` FROM conversations ORDER BY created_at, id`)
	} else {
		uid, perr := parseID(userID)
		if perr != nil {
			return []model.Conversation{}, nil
		}
		rows, err = s.pool.Query(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE user_id = $1 ORDER BY created_at, id`, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}

	convs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Conversation, error) {
		var c model.Conversation
		err := row.Scan(&c.ID, &c.UserID, &c.Model, &c.Title, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversations: %w", err)
	}
	if len(convs) == 0 {
		return convs, nil
	}

	ids := make([]string, len(convs))
	index := make(map[string]int, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
		index[c.ID] = i
	}

	msgRows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ANY($1::uuid[]) ORDER BY created_at, seq`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	msgs, err := pgx.CollectRows(msgRows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}

	for _, m := range msgs {
		i := index[m.ConversationID]
		convs[i].Messages = append(convs[i].Messages, m)
	}
	return convs, nil
}
