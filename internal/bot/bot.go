package bot

import (
	"context"
	"strings"
	"time"

	"pizzahat/internal/antialt"
	"pizzahat/internal/automod"
	"pizzahat/internal/cache"
	"pizzahat/internal/config"
	"pizzahat/internal/guildlogs"
	"pizzahat/internal/starboard"
	"pizzahat/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *storage.Store
	session *discordgo.Session

	automod   *automod.Module
	antialt   *antialt.Module
	starboard *starboard.Module
	logs      *guildlogs.Module

	automodCache   *cache.Cache[automodSettings]
	antialtCache   *cache.Cache[storage.AntiAltConfig]
	starboardCache *cache.Cache[storage.StarboardConfig]
	logsCache      *cache.Cache[storage.LogsConfig]
	welcomeCache   *cache.Cache[storage.WelcomeConfig]
}

type automodSettings struct {
	enabled bool
	words   []string
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsGuildInvites |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	// Retained messages back the before/after diffs in the log embeds.
	session.State.MaxMessageCount = 2000

	b := &Bot{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		session: session,
	}

	b.automod = automod.New(cfg.AutoMod, logger)
	b.antialt = antialt.New(logger)
	b.starboard = starboard.New(store, cfg.Notifications.EmbedColors.Star, logger)
	b.logs = guildlogs.New(cfg.Notifications.EmbedColors, logger)

	size := cfg.Notifications.CacheSize
	if size <= 0 {
		size = 2048
	}
	ttl := time.Duration(cfg.Notifications.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if b.automodCache, err = cache.New[automodSettings](size, ttl); err != nil {
		return nil, err
	}
	if b.antialtCache, err = cache.New[storage.AntiAltConfig](size, ttl); err != nil {
		return nil, err
	}
	if b.starboardCache, err = cache.New[storage.StarboardConfig](size, ttl); err != nil {
		return nil, err
	}
	if b.logsCache, err = cache.New[storage.LogsConfig](size, ttl); err != nil {
		return nil, err
	}
	if b.welcomeCache, err = cache.New[storage.WelcomeConfig](size, ttl); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onMessageDeleteBulk)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onGuildMemberUpdate)
	b.session.AddHandler(b.onGuildBanAdd)
	b.session.AddHandler(b.onGuildBanRemove)
	b.session.AddHandler(b.onRoleCreate)
	b.session.AddHandler(b.onRoleUpdate)
	b.session.AddHandler(b.onRoleDelete)
	b.session.AddHandler(b.onChannelCreate)
	b.session.AddHandler(b.onChannelDelete)
	b.session.AddHandler(b.onGuildUpdate)
	b.session.AddHandler(b.onVoiceStateUpdate)
	b.session.AddHandler(b.onInviteCreate)
	b.session.AddHandler(b.onInviteDelete)
	b.session.AddHandler(b.onReactionAdd)
	b.session.AddHandler(b.onReactionRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) automodSettings(ctx context.Context, guildID string) automodSettings {
	if cached, ok := b.automodCache.Get(guildID); ok {
		return cached
	}
	enabled, err := b.store.AutoModEnabled(ctx, guildID)
	if err != nil {
		b.logger.Warn("automod settings read failed", zap.String("guild_id", guildID), zap.Error(err))
		return automodSettings{}
	}
	var words []string
	if enabled {
		if words, err = b.store.ListBannedWords(ctx, guildID); err != nil {
			b.logger.Warn("banned words read failed", zap.String("guild_id", guildID), zap.Error(err))
			words = nil
		}
	}
	settings := automodSettings{enabled: enabled, words: words}
	b.automodCache.Set(guildID, settings)
	return settings
}

func (b *Bot) refreshAutoMod(ctx context.Context, guildID string) {
	b.automodCache.Remove(guildID)
	b.automodSettings(ctx, guildID)
}

func (b *Bot) antialtConfig(ctx context.Context, guildID string) storage.AntiAltConfig {
	if cached, ok := b.antialtCache.Get(guildID); ok {
		return cached
	}
	cfg, err := b.store.GetAntiAlt(ctx, guildID)
	if err != nil {
		b.logger.Warn("antialt config read failed", zap.String("guild_id", guildID), zap.Error(err))
		return storage.AntiAltConfig{GuildID: guildID}
	}
	b.antialtCache.Set(guildID, cfg)
	return cfg
}

func (b *Bot) starboardConfig(ctx context.Context, guildID string) storage.StarboardConfig {
	if cached, ok := b.starboardCache.Get(guildID); ok {
		return cached
	}
	cfg, err := b.store.GetStarboard(ctx, guildID)
	if err != nil {
		b.logger.Warn("starboard config read failed", zap.String("guild_id", guildID), zap.Error(err))
		return storage.StarboardConfig{GuildID: guildID}
	}
	b.starboardCache.Set(guildID, cfg)
	return cfg
}

func (b *Bot) logsConfig(ctx context.Context, guildID string) storage.LogsConfig {
	if cached, ok := b.logsCache.Get(guildID); ok {
		return cached
	}
	cfg, err := b.store.GetGuildLogs(ctx, guildID)
	if err != nil {
		b.logger.Warn("guild logs config read failed", zap.String("guild_id", guildID), zap.Error(err))
		return storage.LogsConfig{GuildID: guildID}
	}
	b.logsCache.Set(guildID, cfg)
	return cfg
}

func (b *Bot) welcomeConfig(ctx context.Context, guildID string) storage.WelcomeConfig {
	if cached, ok := b.welcomeCache.Get(guildID); ok {
		return cached
	}
	cfg, err := b.store.GetWelcome(ctx, guildID)
	if err != nil {
		b.logger.Warn("welcome config read failed", zap.String("guild_id", guildID), zap.Error(err))
		return storage.WelcomeConfig{GuildID: guildID}
	}
	b.welcomeCache.Set(guildID, cfg)
	return cfg
}

const moderatorPermissions = discordgo.PermissionAdministrator |
	discordgo.PermissionManageServer |
	discordgo.PermissionKickMembers |
	discordgo.PermissionBanMembers

// isModerator reports whether the author is exempt from auto
// moderation: guild owner or any moderation permission via roles.
func (b *Bot) isModerator(guildID, userID string) bool {
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, _ = b.session.Guild(guildID)
	}
	if guild == nil {
		return false
	}
	if guild.OwnerID == userID {
		return true
	}

	member, err := b.session.State.Member(guildID, userID)
	if err != nil || member == nil {
		member, _ = b.session.GuildMember(guildID, userID)
	}
	if member == nil {
		return false
	}

	perms := int64(0)
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms&moderatorPermissions != 0
}

func (b *Bot) sendWelcome(ctx context.Context, guildID string, user *discordgo.User) {
	cfg := b.welcomeConfig(ctx, guildID)
	if cfg.ChannelID == "" || cfg.Message == "" || user == nil {
		return
	}
	guildName := guildID
	if guild, err := b.session.State.Guild(guildID); err == nil && guild != nil {
		guildName = guild.Name
	}
	message := strings.NewReplacer(
		"{user}", user.Mention(),
		"{guild}", guildName,
	).Replace(cfg.Message)
	if _, err := b.session.ChannelMessageSend(cfg.ChannelID, message); err != nil {
		b.logger.Warn("welcome send failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}
