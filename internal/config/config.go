package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string          `yaml:"discord_token"`
	DatabasePath  string          `yaml:"database_path"`
	LogLevel      string          `yaml:"log_level"`
	Health        HealthConfig    `yaml:"health"`
	AutoMod       AutoModConfig   `yaml:"automod"`
	AntiAlt       AntiAltConfig   `yaml:"antialt"`
	Starboard     StarboardConfig `yaml:"starboard"`
	Notifications NotifyConfig    `yaml:"notifications"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type AutoModConfig struct {
	CapsMinLength     int     `yaml:"caps_min_length"`
	CapsRatio         float64 `yaml:"caps_ratio"`
	SpamMessages      int     `yaml:"spam_messages"`
	SpamWindowSeconds int     `yaml:"spam_window_seconds"`
	MentionLimit      int     `yaml:"mention_limit"`
	EmojiLimit        int     `yaml:"emoji_limit"`
	WarningTTLSeconds int     `yaml:"warning_ttl_seconds"`
}

type AntiAltConfig struct {
	MinAgeDays int `yaml:"min_age_days"`
}

type StarboardConfig struct {
	StarCount int `yaml:"star_count"`
}

type NotifyConfig struct {
	CacheSize       int         `yaml:"cache_size"`
	CacheTTLSeconds int         `yaml:"cache_ttl_seconds"`
	EmbedColors     EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
	Star    int `yaml:"star"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "/data/pizzahat.db",
		LogLevel:     "info",
		Health:       HealthConfig{Enabled: false, Addr: ":8080"},
		AutoMod: AutoModConfig{
			CapsMinLength:     7,
			CapsRatio:         0.7,
			SpamMessages:      5,
			SpamWindowSeconds: 7,
			MentionLimit:      3,
			EmojiLimit:        10,
			WarningTTLSeconds: 5,
		},
		AntiAlt:   AntiAltConfig{MinAgeDays: 7},
		Starboard: StarboardConfig{StarCount: 3},
		Notifications: NotifyConfig{
			CacheSize:       2048,
			CacheTTLSeconds: 300,
			EmbedColors: EmbedColors{
				Action:  0xF59E0B,
				Warning: 0xEF4444,
				Error:   0xF97316,
				Star:    0xFFD700,
			},
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.AutoMod.SpamMessages = envInt("SPAM_MESSAGES", cfg.AutoMod.SpamMessages)
	cfg.AutoMod.SpamWindowSeconds = envInt("SPAM_WINDOW_SECONDS", cfg.AutoMod.SpamWindowSeconds)
	cfg.AutoMod.MentionLimit = envInt("MENTION_LIMIT", cfg.AutoMod.MentionLimit)
	cfg.AutoMod.EmojiLimit = envInt("EMOJI_LIMIT", cfg.AutoMod.EmojiLimit)
	cfg.AntiAlt.MinAgeDays = envInt("ANTIALT_MIN_AGE_DAYS", cfg.AntiAlt.MinAgeDays)
	cfg.Starboard.StarCount = envInt("STARBOARD_STAR_COUNT", cfg.Starboard.StarCount)
	cfg.Notifications.CacheSize = envInt("CONFIG_CACHE_SIZE", cfg.Notifications.CacheSize)
	cfg.Notifications.CacheTTLSeconds = envInt("CONFIG_CACHE_TTL_SECONDS", cfg.Notifications.CacheTTLSeconds)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
