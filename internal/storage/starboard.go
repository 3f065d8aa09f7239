package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *Store) GetStarboard(ctx context.Context, guildID string) (StarboardConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT channel_id, star_count, self_star
		FROM starboard_config WHERE guild_id = ?`, guildID)

	cfg := StarboardConfig{GuildID: guildID}
	var selfStar int
	err := row.Scan(&cfg.ChannelID, &cfg.StarCount, &selfStar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cfg, nil
		}
		return StarboardConfig{}, err
	}
	cfg.SelfStar = selfStar == 1
	return cfg, nil
}

func (s *Store) UpsertStarboard(ctx context.Context, cfg StarboardConfig) error {
	if cfg.StarCount < 1 {
		return fmt.Errorf("star count %d must be at least 1", cfg.StarCount)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO starboard_config (guild_id, channel_id, star_count, self_star)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			star_count = excluded.star_count,
			self_star = excluded.self_star
	`, cfg.GuildID, cfg.ChannelID, cfg.StarCount, boolToInt(cfg.SelfStar))
	return err
}

func (s *Store) DisableStarboard(ctx context.Context, guildID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM starboard_config WHERE guild_id = ?`, guildID)
	return err
}

func (s *Store) GetMirror(ctx context.Context, guildID, messageID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT mirror_id FROM starboard_messages
		WHERE guild_id = ? AND message_id = ?`, guildID, messageID)

	var mirrorID string
	if err := row.Scan(&mirrorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return mirrorID, nil
}

func (s *Store) SetMirror(ctx context.Context, guildID, messageID, mirrorID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO starboard_messages (guild_id, message_id, mirror_id) VALUES (?, ?, ?)
		ON CONFLICT(guild_id, message_id) DO UPDATE SET mirror_id = excluded.mirror_id
	`, guildID, messageID, mirrorID)
	return err
}

func (s *Store) DeleteMirror(ctx context.Context, guildID, messageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM starboard_messages WHERE guild_id = ? AND message_id = ?`, guildID, messageID)
	return err
}
