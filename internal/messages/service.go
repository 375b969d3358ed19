// Package messages persists channel messages and serves paginated history.
package messages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huddlehq/huddle/internal/db"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

var ErrChannelNotFound = errors.New("channel not found")

// Service provides message persistence and history queries.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a messages service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "messages")),
	}
}

// Create appends one message to a channel's history.
func (s *Service) Create(ctx context.Context, content, senderID, channelID string) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, fmt.Errorf("content is required")
	}
	pgSender, err := db.ParseUUID(senderID)
	if err != nil {
		return Message{}, err
	}
	pgChannel, err := db.ParseUUID(channelID)
	if err != nil {
		return Message{}, err
	}

	var senderName string
	err = s.pool.QueryRow(ctx,
		`SELECT username FROM users WHERE id = $1`, pgSender,
	).Scan(&senderName)
	if err != nil {
		return Message{}, fmt.Errorf("lookup sender: %w", err)
	}

	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	err = s.pool.QueryRow(ctx,
		`INSERT INTO messages (content, sender_id, channel_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		content, pgSender, pgChannel,
	).Scan(&id, &createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23503: foreign key violation, i.e. the channel does not exist.
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Message{}, ErrChannelNotFound
		}
		return Message{}, fmt.Errorf("create message: %w", err)
	}

	return Message{
		ID:                db.UUIDToString(id),
		Content:           content,
		SenderID:          senderID,
		SenderDisplayName: senderName,
		ChannelID:         channelID,
		CreatedAt:         db.TimeFromPg(createdAt),
	}, nil
}

// List returns one offset-paginated window of a channel's history.
//
// The window is the `limit` rows at offset (page-1)*limit when the channel is
// ordered newest-first; the returned slice is reversed to ascending order for
// display. Offset paging means concurrent inserts between page fetches can
// shift the window, duplicating or skipping rows across sequential requests.
func (s *Service) List(ctx context.Context, channelID string, page, limit int) (Page, error) {
	pgChannel, err := db.ParseUUID(channelID)
	if err != nil {
		return Page{}, err
	}
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	skip := (page - 1) * limit

	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.content, m.sender_id, u.username, m.created_at
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.channel_id = $1
		 ORDER BY m.created_at DESC, m.id DESC
		 OFFSET $2 LIMIT $3`,
		pgChannel, skip, limit,
	)
	if err != nil {
		return Page{}, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]Message, 0, limit)
	for rows.Next() {
		var (
			id         pgtype.UUID
			content    string
			senderID   pgtype.UUID
			senderName string
			createdAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &content, &senderID, &senderName, &createdAt); err != nil {
			return Page{}, err
		}
		items = append(items, Message{
			ID:                db.UUIDToString(id),
			Content:           content,
			SenderID:          db.UUIDToString(senderID),
			SenderDisplayName: senderName,
			ChannelID:         channelID,
			CreatedAt:         db.TimeFromPg(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}

	var total int
	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE channel_id = $1`,
		pgChannel,
	).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			total = 0
		} else {
			return Page{}, fmt.Errorf("count messages: %w", err)
		}
	}

	// Reverse to ascending order for display.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return Page{
		Messages: items,
		Page:     page,
		Limit:    limit,
		Total:    total,
		Pages:    (total + limit - 1) / limit,
		HasMore:  skip+len(items) < total,
	}, nil
}
