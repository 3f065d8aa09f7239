package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

type AntiAltConfig struct {
	GuildID        string
	Enabled        bool
	MinAgeDays     int
	RestrictedRole string
	Level          int
}

type StarboardConfig struct {
	GuildID   string
	ChannelID string
	StarCount int
	SelfStar  bool
}

type LogsConfig struct {
	GuildID   string
	ChannelID string
	Modules   []string
}

type WelcomeConfig struct {
	GuildID   string
	ChannelID string
	Message   string
}

type Tag struct {
	GuildID  string
	Name     string
	Content  string
	AuthorID string
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Serialized access keeps the renumbering transactions in warns.go
	// from tripping SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) AutoModEnabled(ctx context.Context, guildID string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT enabled FROM automod_config WHERE guild_id = ?`, guildID)
	var enabled int
	if err := row.Scan(&enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return enabled == 1, nil
}

func (s *Store) EnableAutoMod(ctx context.Context, guildID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO automod_config (guild_id, enabled) VALUES (?, 1)
		ON CONFLICT(guild_id) DO UPDATE SET enabled = 1
	`, guildID)
	return err
}

func (s *Store) DisableAutoMod(ctx context.Context, guildID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM automod_config WHERE guild_id = ?`, guildID)
	return err
}

func (s *Store) AddBannedWord(ctx context.Context, guildID, word string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO automod_words (guild_id, word) VALUES (?, ?)`, guildID, strings.ToLower(word))
	return err
}

func (s *Store) RemoveBannedWord(ctx context.Context, guildID, word string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM automod_words WHERE guild_id = ? AND word = ?`, guildID, strings.ToLower(word))
	return err
}

func (s *Store) ListBannedWords(ctx context.Context, guildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT word FROM automod_words WHERE guild_id = ? ORDER BY word`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, err
		}
		words = append(words, word)
	}
	return words, rows.Err()
}

func (s *Store) GetAntiAlt(ctx context.Context, guildID string) (AntiAltConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT enabled, min_age_days, restricted_role, level
		FROM antialt_config WHERE guild_id = ?`, guildID)

	cfg := AntiAltConfig{GuildID: guildID}
	var enabled int
	err := row.Scan(&enabled, &cfg.MinAgeDays, &cfg.RestrictedRole, &cfg.Level)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cfg, nil
		}
		return AntiAltConfig{}, err
	}
	cfg.Enabled = enabled == 1
	return cfg, nil
}

func (s *Store) UpsertAntiAlt(ctx context.Context, cfg AntiAltConfig) error {
	if cfg.Level < 1 || cfg.Level > 3 {
		return fmt.Errorf("antialt level %d out of range 1-3", cfg.Level)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO antialt_config (guild_id, enabled, min_age_days, restricted_role, level)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			enabled = excluded.enabled,
			min_age_days = excluded.min_age_days,
			restricted_role = excluded.restricted_role,
			level = excluded.level
	`, cfg.GuildID, boolToInt(cfg.Enabled), cfg.MinAgeDays, cfg.RestrictedRole, cfg.Level)
	return err
}

func (s *Store) DisableAntiAlt(ctx context.Context, guildID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE antialt_config SET enabled = 0 WHERE guild_id = ?`, guildID)
	return err
}

func (s *Store) GetGuildLogs(ctx context.Context, guildID string) (LogsConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT channel_id, modules FROM guildlogs_config WHERE guild_id = ?`, guildID)

	cfg := LogsConfig{GuildID: guildID}
	var modules string
	err := row.Scan(&cfg.ChannelID, &modules)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cfg, nil
		}
		return LogsConfig{}, err
	}
	for _, tag := range strings.Split(modules, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			cfg.Modules = append(cfg.Modules, tag)
		}
	}
	return cfg, nil
}

func (s *Store) UpsertGuildLogs(ctx context.Context, cfg LogsConfig) error {
	modules := strings.Join(cfg.Modules, ",")
	if modules == "" {
		modules = "all"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guildlogs_config (guild_id, channel_id, modules) VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			modules = excluded.modules
	`, cfg.GuildID, cfg.ChannelID, modules)
	return err
}

func (s *Store) DisableGuildLogs(ctx context.Context, guildID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM guildlogs_config WHERE guild_id = ?`, guildID)
	return err
}

func (s *Store) GetWelcome(ctx context.Context, guildID string) (WelcomeConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT channel_id, message FROM welcome_config WHERE guild_id = ?`, guildID)

	cfg := WelcomeConfig{GuildID: guildID}
	err := row.Scan(&cfg.ChannelID, &cfg.Message)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cfg, nil
		}
		return WelcomeConfig{}, err
	}
	return cfg, nil
}

func (s *Store) UpsertWelcome(ctx context.Context, cfg WelcomeConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO welcome_config (guild_id, channel_id, message) VALUES (?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			message = excluded.message
	`, cfg.GuildID, cfg.ChannelID, cfg.Message)
	return err
}

func (s *Store) DisableWelcome(ctx context.Context, guildID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM welcome_config WHERE guild_id = ?`, guildID)
	return err
}

func (s *Store) SetTag(ctx context.Context, tag Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (guild_id, name, content, author_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, name) DO UPDATE SET
			content = excluded.content,
			author_id = excluded.author_id
	`, tag.GuildID, strings.ToLower(tag.Name), tag.Content, tag.AuthorID)
	return err
}

func (s *Store) GetTag(ctx context.Context, guildID, name string) (Tag, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT content, author_id FROM tags WHERE guild_id = ? AND name = ?`, guildID, strings.ToLower(name))

	tag := Tag{GuildID: guildID, Name: strings.ToLower(name)}
	err := row.Scan(&tag.Content, &tag.AuthorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tag{}, false, nil
		}
		return Tag{}, false, err
	}
	return tag, true, nil
}

func (s *Store) DeleteTag(ctx context.Context, guildID, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE guild_id = ? AND name = ?`, guildID, strings.ToLower(name))
	return err
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
