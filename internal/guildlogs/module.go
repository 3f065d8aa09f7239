package guildlogs

import (
	"fmt"
	"strings"
	"time"

	"pizzahat/internal/config"
	"pizzahat/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Tags name the event families a guild can subscribe to. "all" is a
// wildcard stored as-is in the config.
const (
	TagAll      = "all"
	TagMessages = "messages"
	TagMember   = "member"
	TagMod      = "mod"
	TagRoles    = "roles"
	TagGuild    = "guild"
	TagVoice    = "voice"
	TagInvites  = "invites"
	TagJoins    = "joins"
	TagAutoMod  = "automod"
)

var knownTags = []string{
	TagAll, TagMessages, TagMember, TagMod, TagRoles,
	TagGuild, TagVoice, TagInvites, TagJoins, TagAutoMod,
}

// KnownTag reports whether tag is one of the subscribable families.
func KnownTag(tag string) bool {
	for _, known := range knownTags {
		if known == tag {
			return true
		}
	}
	return false
}

// KnownTags returns the subscribable tag names for command help.
func KnownTags() []string {
	return knownTags
}

type Sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Module formats moderation and lifecycle events as embeds and posts
// them to the guild's configured log channel. Delivery is best effort.
type Module struct {
	colors config.EmbedColors
	logger *zap.Logger
}

func New(colors config.EmbedColors, logger *zap.Logger) *Module {
	return &Module{colors: colors, logger: logger}
}

// Enabled reports whether the guild subscribes to the given tag.
func Enabled(cfg storage.LogsConfig, tag string) bool {
	if cfg.ChannelID == "" {
		return false
	}
	for _, sub := range cfg.Modules {
		if sub == TagAll || sub == tag {
			return true
		}
	}
	return false
}

// Emit posts the embed when the guild subscribes to tag. Send failures
// are logged and swallowed so logging never disturbs the event path.
func (m *Module) Emit(rest Sender, cfg storage.LogsConfig, tag string, embed *discordgo.MessageEmbed) {
	if !Enabled(cfg, tag) || embed == nil {
		return
	}
	if embed.Timestamp == "" {
		embed.Timestamp = time.Now().Format(time.RFC3339)
	}
	if _, err := rest.ChannelMessageSendEmbed(cfg.ChannelID, embed); err != nil {
		m.logger.Debug("guild log delivery failed",
			zap.String("guild_id", cfg.GuildID),
			zap.String("tag", tag),
			zap.Error(err))
	}
}

func (m *Module) MessageEdited(author *discordgo.User, channelID, before, after string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Message edited",
		Color: m.colors.Action,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Author", Value: userLabel(author)},
			{Name: "Channel", Value: channelRef(channelID)},
			{Name: "Before", Value: clip(before)},
			{Name: "After", Value: clip(after)},
		},
	}
}

func (m *Module) MessageDeleted(author *discordgo.User, channelID, content string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Message deleted",
		Color: m.colors.Warning,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Author", Value: userLabel(author)},
			{Name: "Channel", Value: channelRef(channelID)},
			{Name: "Content", Value: clip(content)},
		},
	}
}

func (m *Module) MessagesBulkDeleted(channelID string, count int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Messages purged",
		Description: fmt.Sprintf("%d messages removed from %s", count, channelRef(channelID)),
		Color:       m.colors.Warning,
	}
}

func (m *Module) MemberJoined(user *discordgo.User) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Member joined",
		Description: userLabel(user),
		Color:       m.colors.Action,
	}
	if user != nil {
		created, err := discordgo.SnowflakeTimestamp(user.ID)
		if err == nil {
			embed.Fields = []*discordgo.MessageEmbedField{
				{Name: "Account created", Value: created.UTC().Format(time.RFC1123)},
			}
		}
	}
	return embed
}

func (m *Module) MemberLeft(user *discordgo.User) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Member left",
		Description: userLabel(user),
		Color:       m.colors.Warning,
	}
}

func (m *Module) MemberUpdated(user *discordgo.User, changes []string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Member updated",
		Description: userLabel(user),
		Color:       m.colors.Action,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Changes", Value: clip(strings.Join(changes, "\n"))},
		},
	}
}

func (m *Module) MemberBanned(user *discordgo.User) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Member banned",
		Description: userLabel(user),
		Color:       m.colors.Error,
	}
}

func (m *Module) MemberUnbanned(user *discordgo.User) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Member unbanned",
		Description: userLabel(user),
		Color:       m.colors.Action,
	}
}

func (m *Module) WarningIssued(moderator, target *discordgo.User, reason string, total int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Warning issued",
		Color: m.colors.Warning,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Member", Value: userLabel(target)},
			{Name: "Moderator", Value: userLabel(moderator)},
			{Name: "Reason", Value: clip(reason)},
			{Name: "Total warnings", Value: fmt.Sprintf("%d", total)},
		},
	}
}

func (m *Module) WarningRemoved(moderator, target *discordgo.User, reason string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Warning removed",
		Color: m.colors.Action,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Member", Value: userLabel(target)},
			{Name: "Moderator", Value: userLabel(moderator)},
			{Name: "Removed reason", Value: clip(reason)},
		},
	}
}

func (m *Module) RoleChanged(verb, roleName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Role %s", verb),
		Description: roleName,
		Color:       m.colors.Action,
	}
}

func (m *Module) ChannelChanged(verb, channelName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Channel %s", verb),
		Description: channelName,
		Color:       m.colors.Action,
	}
}

func (m *Module) GuildUpdated(changes []string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Server updated",
		Description: clip(strings.Join(changes, "\n")),
		Color:       m.colors.Action,
	}
}

func (m *Module) VoiceStateChanged(user *discordgo.User, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Voice update",
		Description: fmt.Sprintf("%s %s", userLabel(user), description),
		Color:       m.colors.Action,
	}
}

func (m *Module) InviteCreated(code, channelID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Invite created",
		Description: fmt.Sprintf("`%s` for %s", code, channelRef(channelID)),
		Color:       m.colors.Action,
	}
}

func (m *Module) InviteDeleted(code string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Invite deleted",
		Description: fmt.Sprintf("`%s`", code),
		Color:       m.colors.Warning,
	}
}

func (m *Module) AutoModTriggered(author *discordgo.User, channelID, rule, content string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Auto moderation action",
		Color: m.colors.Error,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Member", Value: userLabel(author)},
			{Name: "Channel", Value: channelRef(channelID)},
			{Name: "Rule", Value: rule},
			{Name: "Message", Value: clip(content)},
		},
	}
}

func (m *Module) AltActioned(user *discordgo.User, action string, age time.Duration) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Suspected alt account",
		Color: m.colors.Error,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Member", Value: userLabel(user)},
			{Name: "Action", Value: action},
			{Name: "Account age", Value: age.Round(time.Minute).String()},
		},
	}
}

func userLabel(user *discordgo.User) string {
	if user == nil {
		return "unknown user"
	}
	return fmt.Sprintf("%s (<@%s>)", user.Username, user.ID)
}

func channelRef(channelID string) string {
	return fmt.Sprintf("<#%s>", channelID)
}

// clip keeps embed field values inside Discord's 1024 char limit.
func clip(value string) string {
	if value == "" {
		return "(empty)"
	}
	if len(value) > 1000 {
		return value[:1000] + "…"
	}
	return value
}
