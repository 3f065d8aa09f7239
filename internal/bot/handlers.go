package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pizzahat/internal/guildlogs"
	"pizzahat/internal/storage"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, b.errorEmbed("Commands only work inside a server."), true)
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	options := optionMap(data.Options)

	switch data.Name {
	case "automod":
		b.handleAutoModCommand(ctx, session, interaction, options)
	case "antialt":
		b.handleAntiAltCommand(ctx, session, interaction, options)
	case "starboard":
		b.handleStarboardCommand(ctx, session, interaction, options)
	case "logs":
		b.handleLogsCommand(ctx, session, interaction, options)
	case "warn":
		b.handleWarnCommand(ctx, session, interaction, options)
	case "welcome":
		b.handleWelcomeCommand(ctx, session, interaction, options)
	case "tag":
		b.handleTagCommand(ctx, session, interaction, options)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown command."), true)
	}
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	mapped := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		if opt != nil {
			mapped[opt.Name] = opt
		}
	}
	return mapped
}

func (b *Bot) hasPermission(interaction *discordgo.InteractionCreate, permission int64) bool {
	if interaction.Member == nil {
		return false
	}
	if guild, err := b.session.State.Guild(interaction.GuildID); err == nil && guild != nil {
		if interaction.Member.User != nil && guild.OwnerID == interaction.Member.User.ID {
			return true
		}
	}
	return interaction.Member.Permissions&(permission|discordgo.PermissionAdministrator) != 0
}

func (b *Bot) errorEmbed(message string) *discordgo.MessageEmbed {
	return b.commandEmbed("Error", message, b.cfg.Notifications.EmbedColors.Error, nil)
}

func (b *Bot) deniedEmbed() *discordgo.MessageEmbed {
	return b.errorEmbed("You do not have permission to use this command.")
}

func (b *Bot) handleAutoModCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	action := stringOption(options, "action")
	colors := b.cfg.Notifications.EmbedColors
	guildID := interaction.GuildID

	if action != "status" && !b.hasPermission(interaction, discordgo.PermissionManageServer) {
		b.respondEmbed(session, interaction, b.deniedEmbed(), true)
		return
	}

	switch action {
	case "enable":
		if err := b.store.EnableAutoMod(ctx, guildID); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not update auto moderation."), true)
			return
		}
		b.refreshAutoMod(ctx, guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Auto moderation", "Auto moderation is now enabled.", colors.Action, nil), true)
	case "disable":
		if err := b.store.DisableAutoMod(ctx, guildID); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not update auto moderation."), true)
			return
		}
		b.refreshAutoMod(ctx, guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Auto moderation", "Auto moderation is now disabled.", colors.Warning, nil), true)
	case "addword":
		word := strings.ToLower(strings.TrimSpace(stringOption(options, "word")))
		if word == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("A word is required."), true)
			return
		}
		if err := b.store.AddBannedWord(ctx, guildID, word); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not add the word."), true)
			return
		}
		b.refreshAutoMod(ctx, guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Auto moderation", fmt.Sprintf("Added `%s` to the banned word list.", word), colors.Action, nil), true)
	case "removeword":
		word := strings.ToLower(strings.TrimSpace(stringOption(options, "word")))
		if word == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("A word is required."), true)
			return
		}
		if err := b.store.RemoveBannedWord(ctx, guildID, word); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not remove the word."), true)
			return
		}
		b.refreshAutoMod(ctx, guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Auto moderation", fmt.Sprintf("Removed `%s` from the banned word list.", word), colors.Action, nil), true)
	case "status":
		settings := b.automodSettings(ctx, guildID)
		state := "disabled"
		if settings.enabled {
			state = "enabled"
		}
		words := "none"
		if len(settings.words) > 0 {
			words = "`" + strings.Join(settings.words, "`, `") + "`"
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "State", Value: state, Inline: true},
			{Name: "Extra banned words", Value: words},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Auto moderation", "Current configuration.", colors.Action, fields), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown action."), true)
	}
}

func (b *Bot) handleAntiAltCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	action := stringOption(options, "action")
	colors := b.cfg.Notifications.EmbedColors
	guildID := interaction.GuildID

	if action != "status" && !b.hasPermission(interaction, discordgo.PermissionManageServer) {
		b.respondEmbed(session, interaction, b.deniedEmbed(), true)
		return
	}

	switch action {
	case "enable":
		cfg := storage.AntiAltConfig{
			GuildID:    guildID,
			Enabled:    true,
			Level:      int(intOption(options, "level", 1)),
			MinAgeDays: int(intOption(options, "min_age_days", b.cfg.AntiAlt.MinAgeDays)),
		}
		if opt, ok := options["role"]; ok {
			if role := opt.RoleValue(session, guildID); role != nil {
				cfg.RestrictedRole = role.ID
			}
		}
		if cfg.Level == 1 && cfg.RestrictedRole == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("Level 1 needs a restricted role."), true)
			return
		}
		if err := b.store.UpsertAntiAlt(ctx, cfg); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not save the anti-alt settings: "+err.Error()), true)
			return
		}
		b.antialtCache.Set(guildID, cfg)
		fields := []*discordgo.MessageEmbedField{
			{Name: "Level", Value: fmt.Sprintf("%d", cfg.Level), Inline: true},
			{Name: "Minimum age", Value: fmt.Sprintf("%d days", cfg.MinAgeDays), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Anti-alt", "Join gate enabled.", colors.Action, fields), true)
	case "disable":
		if err := b.store.DisableAntiAlt(ctx, guildID); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not update the anti-alt settings."), true)
			return
		}
		b.antialtCache.Remove(guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Anti-alt", "Join gate disabled.", colors.Warning, nil), true)
	case "status":
		cfg := b.antialtConfig(ctx, guildID)
		state := "disabled"
		if cfg.Enabled {
			state = "enabled"
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "State", Value: state, Inline: true},
			{Name: "Level", Value: fmt.Sprintf("%d", cfg.Level), Inline: true},
			{Name: "Minimum age", Value: fmt.Sprintf("%d days", cfg.MinAgeDays), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Anti-alt", "Current configuration.", colors.Action, fields), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown action."), true)
	}
}

func (b *Bot) handleStarboardCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	action := stringOption(options, "action")
	colors := b.cfg.Notifications.EmbedColors
	guildID := interaction.GuildID

	if action != "status" && !b.hasPermission(interaction, discordgo.PermissionManageServer) {
		b.respondEmbed(session, interaction, b.deniedEmbed(), true)
		return
	}

	switch action {
	case "set":
		cfg := b.starboardConfig(ctx, guildID)
		cfg.GuildID = guildID
		if cfg.StarCount == 0 {
			cfg.StarCount = b.cfg.Starboard.StarCount
		}
		if opt, ok := options["channel"]; ok {
			if channel := opt.ChannelValue(session); channel != nil {
				cfg.ChannelID = channel.ID
			}
		}
		if opt, ok := options["stars"]; ok {
			cfg.StarCount = int(opt.IntValue())
		}
		if opt, ok := options["selfstar"]; ok {
			cfg.SelfStar = opt.BoolValue()
		}
		if cfg.ChannelID == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("A starboard channel is required."), true)
			return
		}
		if err := b.store.UpsertStarboard(ctx, cfg); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not save the starboard settings: "+err.Error()), true)
			return
		}
		b.starboardCache.Set(guildID, cfg)
		fields := []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: "<#" + cfg.ChannelID + ">", Inline: true},
			{Name: "Stars", Value: fmt.Sprintf("%d", cfg.StarCount), Inline: true},
			{Name: "Self star", Value: fmt.Sprintf("%t", cfg.SelfStar), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Starboard", "Starboard configured.", colors.Star, fields), true)
	case "disable":
		if err := b.store.DisableStarboard(ctx, guildID); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not update the starboard settings."), true)
			return
		}
		b.starboardCache.Remove(guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Starboard", "Starboard disabled.", colors.Warning, nil), true)
	case "status":
		cfg := b.starboardConfig(ctx, guildID)
		channel := "not set"
		if cfg.ChannelID != "" {
			channel = "<#" + cfg.ChannelID + ">"
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: channel, Inline: true},
			{Name: "Stars", Value: fmt.Sprintf("%d", cfg.StarCount), Inline: true},
			{Name: "Self star", Value: fmt.Sprintf("%t", cfg.SelfStar), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Starboard", "Current configuration.", colors.Star, fields), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown action."), true)
	}
}

func (b *Bot) handleLogsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	action := stringOption(options, "action")
	colors := b.cfg.Notifications.EmbedColors
	guildID := interaction.GuildID

	if action != "status" && !b.hasPermission(interaction, discordgo.PermissionManageServer) {
		b.respondEmbed(session, interaction, b.deniedEmbed(), true)
		return
	}

	switch action {
	case "set":
		cfg := storage.LogsConfig{GuildID: guildID}
		if opt, ok := options["channel"]; ok {
			if channel := opt.ChannelValue(session); channel != nil {
				cfg.ChannelID = channel.ID
			}
		}
		if cfg.ChannelID == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("A log channel is required."), true)
			return
		}
		for _, tag := range strings.Split(stringOption(options, "modules"), ",") {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if !guildlogs.KnownTag(tag) {
				b.respondEmbed(session, interaction, b.errorEmbed(fmt.Sprintf("Unknown module `%s`. Available: %s.", tag, strings.Join(guildlogs.KnownTags(), ", "))), true)
				return
			}
			cfg.Modules = append(cfg.Modules, tag)
		}
		if err := b.store.UpsertGuildLogs(ctx, cfg); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not save the log settings."), true)
			return
		}
		b.logsCache.Remove(guildID)
		cfg = b.logsConfig(ctx, guildID)
		fields := []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: "<#" + cfg.ChannelID + ">", Inline: true},
			{Name: "Modules", Value: strings.Join(cfg.Modules, ", "), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Guild logs", "Logging configured.", colors.Action, fields), true)
	case "disable":
		if err := b.store.DisableGuildLogs(ctx, guildID); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not update the log settings."), true)
			return
		}
		b.logsCache.Remove(guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Guild logs", "Logging disabled.", colors.Warning, nil), true)
	case "status":
		cfg := b.logsConfig(ctx, guildID)
		channel := "not set"
		if cfg.ChannelID != "" {
			channel = "<#" + cfg.ChannelID + ">"
		}
		modules := "none"
		if len(cfg.Modules) > 0 {
			modules = strings.Join(cfg.Modules, ", ")
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: channel, Inline: true},
			{Name: "Modules", Value: modules, Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Guild logs", "Current configuration.", colors.Action, fields), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown action."), true)
	}
}

func (b *Bot) handleWarnCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	if !b.hasPermission(interaction, discordgo.PermissionKickMembers) {
		b.respondEmbed(session, interaction, b.deniedEmbed(), true)
		return
	}

	action := stringOption(options, "action")
	colors := b.cfg.Notifications.EmbedColors
	guildID := interaction.GuildID

	var target *discordgo.User
	if opt, ok := options["user"]; ok {
		target = opt.UserValue(session)
	}
	if target == nil {
		b.respondEmbed(session, interaction, b.errorEmbed("A member is required."), true)
		return
	}

	var moderator *discordgo.User
	if interaction.Member != nil {
		moderator = interaction.Member.User
	}

	switch action {
	case "add":
		reason := strings.TrimSpace(stringOption(options, "reason"))
		if reason == "" {
			reason = "No reason given."
		}
		total, err := b.store.AddWarning(ctx, guildID, target.ID, reason, time.Now().UTC())
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not record the warning."), true)
			return
		}
		b.logs.Emit(session, b.logsConfig(ctx, guildID), guildlogs.TagMod,
			b.logs.WarningIssued(moderator, target, reason, total))
		fields := []*discordgo.MessageEmbedField{
			{Name: "Member", Value: target.Mention(), Inline: true},
			{Name: "Reason", Value: reason, Inline: true},
			{Name: "Total warnings", Value: fmt.Sprintf("%d", total), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Warning", "Warning recorded.", colors.Warning, fields), false)
	case "remove":
		index := int(intOption(options, "index", 0))
		removed, found, err := b.store.RemoveWarning(ctx, guildID, target.ID, index)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not remove the warning."), true)
			return
		}
		if !found {
			b.respondEmbed(session, interaction, b.errorEmbed(fmt.Sprintf("%s has no warning at index %d.", target.Username, index)), true)
			return
		}
		b.logs.Emit(session, b.logsConfig(ctx, guildID), guildlogs.TagMod,
			b.logs.WarningRemoved(moderator, target, removed.Reason))
		fields := []*discordgo.MessageEmbedField{
			{Name: "Member", Value: target.Mention(), Inline: true},
			{Name: "Removed reason", Value: removed.Reason, Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Warning", "Warning removed.", colors.Action, fields), false)
	case "list":
		warnings, err := b.store.ListWarnings(ctx, guildID, target.ID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not read the warnings."), true)
			return
		}
		if len(warnings) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed("Warnings", fmt.Sprintf("%s has no warnings.", target.Username), colors.Action, nil), true)
			return
		}
		lines := make([]string, 0, len(warnings))
		for i, warning := range warnings {
			lines = append(lines, fmt.Sprintf("`%d` %s (%s)", i, warning.Reason, warning.WarnedAt.Format("2006-01-02 15:04")))
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Warnings",
			fmt.Sprintf("%s has %d warning(s):\n%s", target.Username, len(warnings), strings.Join(lines, "\n")),
			colors.Warning, nil), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown action."), true)
	}
}

func (b *Bot) handleWelcomeCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	action := stringOption(options, "action")
	colors := b.cfg.Notifications.EmbedColors
	guildID := interaction.GuildID

	if action != "status" && !b.hasPermission(interaction, discordgo.PermissionManageServer) {
		b.respondEmbed(session, interaction, b.deniedEmbed(), true)
		return
	}

	switch action {
	case "set":
		cfg := storage.WelcomeConfig{GuildID: guildID, Message: stringOption(options, "message")}
		if opt, ok := options["channel"]; ok {
			if channel := opt.ChannelValue(session); channel != nil {
				cfg.ChannelID = channel.ID
			}
		}
		if cfg.ChannelID == "" || cfg.Message == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("A channel and a message are required."), true)
			return
		}
		if err := b.store.UpsertWelcome(ctx, cfg); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not save the welcome settings."), true)
			return
		}
		b.welcomeCache.Set(guildID, cfg)
		fields := []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: "<#" + cfg.ChannelID + ">", Inline: true},
			{Name: "Message", Value: cfg.Message},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Welcome", "Welcome message configured. `{user}` and `{guild}` are substituted.", colors.Action, fields), true)
	case "disable":
		if err := b.store.DisableWelcome(ctx, guildID); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not update the welcome settings."), true)
			return
		}
		b.welcomeCache.Remove(guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Welcome", "Welcome message disabled.", colors.Warning, nil), true)
	case "status":
		cfg := b.welcomeConfig(ctx, guildID)
		channel := "not set"
		if cfg.ChannelID != "" {
			channel = "<#" + cfg.ChannelID + ">"
		}
		message := cfg.Message
		if message == "" {
			message = "not set"
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: channel, Inline: true},
			{Name: "Message", Value: message},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Welcome", "Current configuration.", colors.Action, fields), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown action."), true)
	}
}

func (b *Bot) handleTagCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	action := stringOption(options, "action")
	colors := b.cfg.Notifications.EmbedColors
	guildID := interaction.GuildID
	name := strings.ToLower(strings.TrimSpace(stringOption(options, "name")))

	if name == "" {
		b.respondEmbed(session, interaction, b.errorEmbed("A tag name is required."), true)
		return
	}
	if action != "get" && !b.hasPermission(interaction, discordgo.PermissionManageServer) {
		b.respondEmbed(session, interaction, b.deniedEmbed(), true)
		return
	}

	switch action {
	case "set":
		content := strings.TrimSpace(stringOption(options, "content"))
		if content == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("Tag content is required."), true)
			return
		}
		tag := storage.Tag{GuildID: guildID, Name: name, Content: content}
		if interaction.Member != nil && interaction.Member.User != nil {
			tag.AuthorID = interaction.Member.User.ID
		}
		if err := b.store.SetTag(ctx, tag); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not save the tag."), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Tags", fmt.Sprintf("Tag `%s` saved.", name), colors.Action, nil), true)
	case "get":
		tag, found, err := b.store.GetTag(ctx, guildID, name)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not read the tag."), true)
			return
		}
		if !found {
			b.respondEmbed(session, interaction, b.errorEmbed(fmt.Sprintf("No tag named `%s`.", name)), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed(name, tag.Content, colors.Action, nil), false)
	case "delete":
		if err := b.store.DeleteTag(ctx, guildID, name); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not delete the tag."), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Tags", fmt.Sprintf("Tag `%s` deleted.", name), colors.Warning, nil), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown action."), true)
	}
}

func stringOption(options map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := options[name]; ok && opt.Type == discordgo.ApplicationCommandOptionString {
		return opt.StringValue()
	}
	return ""
}

func intOption(options map[string]*discordgo.ApplicationCommandInteractionDataOption, name string, fallback int) int64 {
	if opt, ok := options[name]; ok && opt.Type == discordgo.ApplicationCommandOptionInteger {
		return opt.IntValue()
	}
	return int64(fallback)
}
