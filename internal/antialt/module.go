package antialt

import (
	"context"
	"time"

	"pizzahat/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Action string

const (
	ActionNone     Action = ""
	ActionRestrict Action = "restrict"
	ActionKick     Action = "kick"
	ActionBan      Action = "ban"
)

const policyReason = "account younger than the configured minimum age"

// Rest is the slice of the Discord client needed to act on a join.
// *discordgo.Session satisfies it.
type Rest interface {
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
}

type Module struct {
	logger *zap.Logger
	clock  Clock
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func New(logger *zap.Logger) *Module {
	return &Module{logger: logger, clock: realClock{}}
}

func (m *Module) WithClock(clock Clock) {
	m.clock = clock
}

// HandleJoin applies at most one escalation action to a newly joined
// member whose account is younger than the configured minimum age.
// Bots are always exempt. Returns the action taken.
func (m *Module) HandleJoin(ctx context.Context, rest Rest, cfg storage.AntiAltConfig, event *discordgo.GuildMemberAdd) (Action, error) {
	_ = ctx
	if !cfg.Enabled || event.User == nil || event.User.Bot {
		return ActionNone, nil
	}

	created, err := discordgo.SnowflakeTimestamp(event.User.ID)
	if err != nil {
		return ActionNone, err
	}
	ageDays := m.clock.Now().Sub(created).Hours() / 24
	if ageDays >= float64(cfg.MinAgeDays) {
		return ActionNone, nil
	}

	guildID := event.GuildID
	userID := event.User.ID
	switch cfg.Level {
	case 1:
		if cfg.RestrictedRole == "" {
			m.logger.Warn("antialt restricted role not set", zap.String("guild_id", guildID))
			return ActionNone, nil
		}
		if err := rest.GuildMemberRoleAdd(guildID, userID, cfg.RestrictedRole); err != nil {
			return ActionNone, err
		}
		return ActionRestrict, nil
	case 2:
		if err := rest.GuildMemberDeleteWithReason(guildID, userID, policyReason); err != nil {
			return ActionNone, err
		}
		return ActionKick, nil
	case 3:
		if err := rest.GuildBanCreateWithReason(guildID, userID, policyReason, 0); err != nil {
			return ActionNone, err
		}
		return ActionBan, nil
	default:
		// Levels outside 1-3 are rejected at write time; a stored
		// value that still escapes that is a configuration bug, not a
		// reason to ban someone.
		m.logger.Error("antialt level out of range", zap.String("guild_id", guildID), zap.Int("level", cfg.Level))
		return ActionNone, nil
	}
}
