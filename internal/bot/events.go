package bot

import (
	"context"
	"fmt"
	"time"

	"pizzahat/internal/antialt"
	"pizzahat/internal/guildlogs"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	settings := b.automodSettings(ctx, msg.GuildID)
	if !settings.enabled {
		return
	}
	if b.isModerator(msg.GuildID, msg.Author.ID) {
		return
	}

	rule, acted := b.automod.Evaluate(ctx, session, session, msg, settings.words)
	if !acted {
		return
	}
	b.logs.Emit(session, b.logsConfig(ctx, msg.GuildID), guildlogs.TagAutoMod,
		b.logs.AutoModTriggered(msg.Author, msg.ChannelID, rule, msg.Content))
}

func (b *Bot) onMessageUpdate(session *discordgo.Session, event *discordgo.MessageUpdate) {
	if event.GuildID == "" || event.Author == nil || event.Author.Bot {
		return
	}
	before := event.BeforeUpdate
	if before == nil || before.Content == event.Content {
		return
	}
	cfg := b.logsConfig(context.Background(), event.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagMessages,
		b.logs.MessageEdited(event.Author, event.ChannelID, before.Content, event.Content))
}

func (b *Bot) onMessageDelete(session *discordgo.Session, event *discordgo.MessageDelete) {
	if event.GuildID == "" {
		return
	}
	ctx := context.Background()

	starCfg := b.starboardConfig(ctx, event.GuildID)
	if err := b.starboard.HandleMessageDelete(ctx, session, starCfg, event.GuildID, event.ID); err != nil {
		b.logger.Warn("starboard cleanup failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	}

	before := event.BeforeDelete
	if before == nil || before.Author == nil || before.Author.Bot {
		return
	}
	b.logs.Emit(session, b.logsConfig(ctx, event.GuildID), guildlogs.TagMessages,
		b.logs.MessageDeleted(before.Author, event.ChannelID, before.Content))
}

func (b *Bot) onMessageDeleteBulk(session *discordgo.Session, event *discordgo.MessageDeleteBulk) {
	if event.GuildID == "" {
		return
	}
	ctx := context.Background()

	starCfg := b.starboardConfig(ctx, event.GuildID)
	for _, messageID := range event.Messages {
		if err := b.starboard.HandleMessageDelete(ctx, session, starCfg, event.GuildID, messageID); err != nil {
			b.logger.Warn("starboard cleanup failed", zap.String("guild_id", event.GuildID), zap.Error(err))
		}
	}

	b.logs.Emit(session, b.logsConfig(ctx, event.GuildID), guildlogs.TagMessages,
		b.logs.MessagesBulkDeleted(event.ChannelID, len(event.Messages)))
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.GuildID == "" || event.User == nil {
		return
	}
	ctx := context.Background()

	gateCfg := b.antialtConfig(ctx, event.GuildID)
	action, err := b.antialt.HandleJoin(ctx, session, gateCfg, event)
	if err != nil {
		b.logger.Warn("antialt action failed",
			zap.String("guild_id", event.GuildID),
			zap.String("user_id", event.User.ID),
			zap.Error(err))
	}
	if action != antialt.ActionNone {
		age := time.Duration(0)
		if created, err := discordgo.SnowflakeTimestamp(event.User.ID); err == nil {
			age = time.Since(created)
		}
		b.logs.Emit(session, b.logsConfig(ctx, event.GuildID), guildlogs.TagJoins,
			b.logs.AltActioned(event.User, string(action), age))
		return
	}

	b.logs.Emit(session, b.logsConfig(ctx, event.GuildID), guildlogs.TagMember,
		b.logs.MemberJoined(event.User))
	b.sendWelcome(ctx, event.GuildID, event.User)
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if event.GuildID == "" || event.User == nil {
		return
	}
	cfg := b.logsConfig(context.Background(), event.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagMember, b.logs.MemberLeft(event.User))
}

func (b *Bot) onGuildMemberUpdate(session *discordgo.Session, event *discordgo.GuildMemberUpdate) {
	if event.GuildID == "" || event.User == nil || event.BeforeUpdate == nil {
		return
	}
	changes := memberChanges(event.BeforeUpdate, event.Member)
	if len(changes) == 0 {
		return
	}
	cfg := b.logsConfig(context.Background(), event.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagMember, b.logs.MemberUpdated(event.User, changes))
}

func memberChanges(before, after *discordgo.Member) []string {
	var changes []string
	if before.Nick != after.Nick {
		changes = append(changes, fmt.Sprintf("nickname: %q -> %q", before.Nick, after.Nick))
	}
	old := make(map[string]struct{}, len(before.Roles))
	for _, roleID := range before.Roles {
		old[roleID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(after.Roles))
	for _, roleID := range after.Roles {
		seen[roleID] = struct{}{}
		if _, ok := old[roleID]; !ok {
			changes = append(changes, fmt.Sprintf("role added: <@&%s>", roleID))
		}
	}
	for _, roleID := range before.Roles {
		if _, ok := seen[roleID]; !ok {
			changes = append(changes, fmt.Sprintf("role removed: <@&%s>", roleID))
		}
	}
	return changes
}

func (b *Bot) onGuildBanAdd(session *discordgo.Session, event *discordgo.GuildBanAdd) {
	if event.GuildID == "" || event.User == nil {
		return
	}
	cfg := b.logsConfig(context.Background(), event.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagMod, b.logs.MemberBanned(event.User))
}

func (b *Bot) onGuildBanRemove(session *discordgo.Session, event *discordgo.GuildBanRemove) {
	if event.GuildID == "" || event.User == nil {
		return
	}
	cfg := b.logsConfig(context.Background(), event.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagMod, b.logs.MemberUnbanned(event.User))
}

func (b *Bot) onRoleCreate(session *discordgo.Session, event *discordgo.GuildRoleCreate) {
	if event.GuildID == "" || event.Role == nil {
		return
	}
	cfg := b.logsConfig(context.Background(), event.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagRoles, b.logs.RoleChanged("created", event.Role.Name))
}

func (b *Bot) onRoleUpdate(session *discordgo.Session, event *discordgo.GuildRoleUpdate) {
	if event.GuildID == "" || event.Role == nil {
		return
	}
	cfg := b.logsConfig(context.Background(), event.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagRoles, b.logs.RoleChanged("updated", event.Role.Name))
}

func (b *Bot) onRoleDelete(session *discordgo.Session, event *discordgo.GuildRoleDelete) {
	if event.GuildID == "" || event.RoleID == "" {
		return
	}
	cfg := b.logsConfig(context.Background(), event.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagRoles, b.logs.RoleChanged("deleted", event.RoleID))
}

func (b *Bot) onChannelCreate(session *discordgo.Session, event *discordgo.ChannelCreate) {
	if event.Channel == nil || event.Channel.GuildID == "" {
		return
	}
	cfg := b.logsConfig(context.Background(), event.Channel.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagGuild, b.logs.ChannelChanged("created", event.Channel.Name))
}

func (b *Bot) onChannelDelete(session *discordgo.Session, event *discordgo.ChannelDelete) {
	if event.Channel == nil || event.Channel.GuildID == "" {
		return
	}
	cfg := b.logsConfig(context.Background(), event.Channel.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagGuild, b.logs.ChannelChanged("deleted", event.Channel.Name))
}

func (b *Bot) onGuildUpdate(session *discordgo.Session, event *discordgo.GuildUpdate) {
	if event.Guild == nil || event.Guild.ID == "" {
		return
	}
	cfg := b.logsConfig(context.Background(), event.Guild.ID)
	b.logs.Emit(session, cfg, guildlogs.TagGuild,
		b.logs.GuildUpdated([]string{"name: " + event.Guild.Name}))
}

func (b *Bot) onVoiceStateUpdate(session *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if event.GuildID == "" || event.UserID == "" {
		return
	}

	description := ""
	switch {
	case event.BeforeUpdate == nil && event.ChannelID != "":
		description = "joined <#" + event.ChannelID + ">"
	case event.BeforeUpdate != nil && event.ChannelID == "":
		description = "left <#" + event.BeforeUpdate.ChannelID + ">"
	case event.BeforeUpdate != nil && event.BeforeUpdate.ChannelID != event.ChannelID:
		description = "moved to <#" + event.ChannelID + ">"
	default:
		return
	}

	var user *discordgo.User
	if member, err := session.State.Member(event.GuildID, event.UserID); err == nil && member != nil {
		user = member.User
	}
	if user == nil {
		user = &discordgo.User{ID: event.UserID, Username: "member"}
	}
	cfg := b.logsConfig(context.Background(), event.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagVoice, b.logs.VoiceStateChanged(user, description))
}

func (b *Bot) onInviteCreate(session *discordgo.Session, event *discordgo.InviteCreate) {
	if event.GuildID == "" {
		return
	}
	cfg := b.logsConfig(context.Background(), event.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagInvites, b.logs.InviteCreated(event.Code, event.ChannelID))
}

func (b *Bot) onInviteDelete(session *discordgo.Session, event *discordgo.InviteDelete) {
	if event.GuildID == "" {
		return
	}
	cfg := b.logsConfig(context.Background(), event.GuildID)
	b.logs.Emit(session, cfg, guildlogs.TagInvites, b.logs.InviteDeleted(event.Code))
}

func (b *Bot) onReactionAdd(session *discordgo.Session, event *discordgo.MessageReactionAdd) {
	if event.GuildID == "" {
		return
	}
	ctx := context.Background()
	cfg := b.starboardConfig(ctx, event.GuildID)
	if err := b.starboard.HandleReactionAdd(ctx, session, cfg, event); err != nil {
		b.logger.Warn("starboard reaction failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	}
}

func (b *Bot) onReactionRemove(session *discordgo.Session, event *discordgo.MessageReactionRemove) {
	if event.GuildID == "" {
		return
	}
	ctx := context.Background()
	cfg := b.starboardConfig(ctx, event.GuildID)
	if err := b.starboard.HandleReactionRemove(ctx, session, cfg, event); err != nil {
		b.logger.Warn("starboard reaction failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	}
}
