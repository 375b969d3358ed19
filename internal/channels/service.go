// Package channels manages durable channels, their membership, and privacy.
package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huddlehq/huddle/internal/db"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrNameTaken       = errors.New("channel name already exists")
	ErrNotOwner        = errors.New("only the channel owner may do this")
)

// Service provides channel operations backed by PostgreSQL.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a channels service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "channels")),
	}
}

// Create makes a channel owned by ownerID, who becomes its first member.
func (s *Service) Create(ctx context.Context, ownerID, name, description string, isPrivate bool) (Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Channel{}, fmt.Errorf("channel name is required")
	}
	pgOwner, err := db.ParseUUID(ownerID)
	if err != nil {
		return Channel{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Channel{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id pgtype.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO channels (name, description, owner_id, is_private)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		name, db.ToPgText(description), pgOwner, isPrivate,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Channel{}, ErrNameTaken
		}
		return Channel{}, fmt.Errorf("create channel: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2)`,
		id, pgOwner,
	); err != nil {
		return Channel{}, fmt.Errorf("add owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Channel{}, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("channel created",
		slog.String("channel_id", db.UUIDToString(id)),
		slog.String("name", name),
		slog.Bool("private", isPrivate),
	)
	return s.Get(ctx, db.UUIDToString(id))
}

// Get returns one channel with its member list.
func (s *Service) Get(ctx context.Context, channelID string) (Channel, error) {
	pgID, err := db.ParseUUID(channelID)
	if err != nil {
		return Channel{}, err
	}

	var (
		name        string
		description pgtype.Text
		ownerID     pgtype.UUID
		isPrivate   bool
		createdAt   pgtype.Timestamptz
	)
	err = s.pool.QueryRow(ctx,
		`SELECT name, description, owner_id, is_private, created_at
		 FROM channels WHERE id = $1`,
		pgID,
	).Scan(&name, &description, &ownerID, &isPrivate, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Channel{}, ErrChannelNotFound
		}
		return Channel{}, fmt.Errorf("get channel: %w", err)
	}

	members, err := s.listMembers(ctx, pgID)
	if err != nil {
		return Channel{}, err
	}

	return Channel{
		ID:          db.UUIDToString(pgID),
		Name:        name,
		Description: db.TextToString(description),
		OwnerID:     db.UUIDToString(ownerID),
		IsPrivate:   isPrivate,
		CreatedAt:   db.TimeFromPg(createdAt),
		Members:     members,
	}, nil
}

// ListVisible returns every channel the requester may see: public channels,
// plus private ones the requester owns or is a member of.
func (s *Service) ListVisible(ctx context.Context, userID string) ([]Channel, error) {
	pgUser, err := db.ParseUUID(userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id FROM channels c
		 WHERE NOT c.is_private
		    OR c.owner_id = $1
		    OR EXISTS (
		         SELECT 1 FROM channel_members m
		         WHERE m.channel_id = c.id AND m.user_id = $1
		       )
		 ORDER BY c.created_at, c.id`,
		pgUser,
	)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id pgtype.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, db.UUIDToString(id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	channels := make([]Channel, 0, len(ids))
	for _, id := range ids {
		channel, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, nil
}

// Join records userID as a member. Joining twice is a no-op.
func (s *Service) Join(ctx context.Context, channelID, userID string) (Channel, error) {
	pgID, pgUser, err := s.parsePair(channelID, userID)
	if err != nil {
		return Channel{}, err
	}
	if err := s.ensureExists(ctx, pgID); err != nil {
		return Channel{}, err
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO channel_members (channel_id, user_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		pgID, pgUser,
	); err != nil {
		return Channel{}, fmt.Errorf("join channel: %w", err)
	}
	return s.Get(ctx, channelID)
}

// Leave removes userID from the member set. Leaving a channel the user is not
// in is a no-op.
func (s *Service) Leave(ctx context.Context, channelID, userID string) (Channel, error) {
	pgID, pgUser, err := s.parsePair(channelID, userID)
	if err != nil {
		return Channel{}, err
	}
	if err := s.ensureExists(ctx, pgID); err != nil {
		return Channel{}, err
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM channel_members WHERE channel_id = $1 AND user_id = $2`,
		pgID, pgUser,
	); err != nil {
		return Channel{}, fmt.Errorf("leave channel: %w", err)
	}
	return s.Get(ctx, channelID)
}

// SetPrivacy flips the privacy flag. Owner only.
func (s *Service) SetPrivacy(ctx context.Context, channelID, requesterID string, isPrivate bool) (Channel, error) {
	pgID, err := db.ParseUUID(channelID)
	if err != nil {
		return Channel{}, err
	}
	if err := s.requireOwner(ctx, pgID, requesterID); err != nil {
		return Channel{}, err
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE channels SET is_private = $2 WHERE id = $1`,
		pgID, isPrivate,
	); err != nil {
		return Channel{}, fmt.Errorf("update privacy: %w", err)
	}
	return s.Get(ctx, channelID)
}

// RemoveMember drops a member from a channel. Owner only.
func (s *Service) RemoveMember(ctx context.Context, channelID, requesterID, userID string) error {
	pgID, pgUser, err := s.parsePair(channelID, userID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(ctx, pgID, requesterID); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM channel_members WHERE channel_id = $1 AND user_id = $2`,
		pgID, pgUser,
	); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// Delete removes a channel and, via cascade, its membership and messages.
// Owner only.
func (s *Service) Delete(ctx context.Context, channelID, requesterID string) error {
	pgID, err := db.ParseUUID(channelID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(ctx, pgID, requesterID); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, pgID); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	s.logger.Info("channel deleted", slog.String("channel_id", channelID))
	return nil
}

// IsMember reports whether userID is a recorded member of the channel.
func (s *Service) IsMember(ctx context.Context, channelID, userID string) (bool, error) {
	pgID, pgUser, err := s.parsePair(channelID, userID)
	if err != nil {
		return false, err
	}
	var exists bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM channel_members WHERE channel_id = $1 AND user_id = $2
		 )`,
		pgID, pgUser,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (s *Service) listMembers(ctx context.Context, channelID pgtype.UUID) ([]Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.username, u.email
		 FROM channel_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.channel_id = $1
		 ORDER BY m.joined_at, u.id`,
		channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]Member, 0)
	for rows.Next() {
		var (
			id       pgtype.UUID
			username string
			email    string
		)
		if err := rows.Scan(&id, &username, &email); err != nil {
			return nil, err
		}
		members = append(members, Member{
			ID:       db.UUIDToString(id),
			Username: username,
			Email:    email,
		})
	}
	return members, rows.Err()
}

func (s *Service) requireOwner(ctx context.Context, channelID pgtype.UUID, requesterID string) error {
	var ownerID pgtype.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT owner_id FROM channels WHERE id = $1`,
		channelID,
	).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrChannelNotFound
		}
		return fmt.Errorf("get channel owner: %w", err)
	}
	if db.UUIDToString(ownerID) != strings.TrimSpace(requesterID) {
		return ErrNotOwner
	}
	return nil
}

func (s *Service) ensureExists(ctx context.Context, channelID pgtype.UUID) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM channels WHERE id = $1)`,
		channelID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check channel: %w", err)
	}
	if !exists {
		return ErrChannelNotFound
	}
	return nil
}

func (s *Service) parsePair(channelID, userID string) (pgtype.UUID, pgtype.UUID, error) {
	pgID, err := db.ParseUUID(channelID)
	if err != nil {
		return pgtype.UUID{}, pgtype.UUID{}, err
	}
	pgUser, err := db.ParseUUID(userID)
	if err != nil {
		return pgtype.UUID{}, pgtype.UUID{}, err
	}
	return pgID, pgUser, nil
}
