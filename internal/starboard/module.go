package starboard

import (
	"context"
	"fmt"
	"time"

	"pizzahat/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const starEmoji = "⭐"

// Rest is the slice of the Discord client the reconciler needs.
// *discordgo.Session satisfies it.
type Rest interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error
}

// Module keeps one mirror message in the configured starboard channel
// for every source message at or above the star threshold, and keeps
// the mirror's displayed count in step with the source's reactions.
type Module struct {
	store  *storage.Store
	color  int
	logger *zap.Logger
}

func New(store *storage.Store, color int, logger *zap.Logger) *Module {
	return &Module{store: store, color: color, logger: logger}
}

func (m *Module) HandleReactionAdd(ctx context.Context, rest Rest, cfg storage.StarboardConfig, ev *discordgo.MessageReactionAdd) error {
	if cfg.ChannelID == "" || ev.Emoji.Name != starEmoji {
		return nil
	}

	msg, err := rest.ChannelMessage(ev.ChannelID, ev.MessageID)
	if err != nil || msg == nil || msg.Author == nil {
		// Source already gone; the delete handler owns cleanup.
		return nil
	}
	if msg.Author.Bot {
		return nil
	}
	if !cfg.SelfStar && ev.UserID == msg.Author.ID {
		return rest.MessageReactionRemove(ev.ChannelID, ev.MessageID, starEmoji, ev.UserID)
	}

	count := starCount(msg)
	if count < cfg.StarCount {
		return nil
	}

	mirrorID, err := m.store.GetMirror(ctx, ev.GuildID, ev.MessageID)
	if err != nil {
		return err
	}
	if mirrorID == "" {
		return m.createMirror(ctx, rest, cfg, ev.GuildID, msg, count)
	}
	return m.editMirror(ctx, rest, cfg, ev.GuildID, msg, mirrorID, count)
}

func (m *Module) HandleReactionRemove(ctx context.Context, rest Rest, cfg storage.StarboardConfig, ev *discordgo.MessageReactionRemove) error {
	if cfg.ChannelID == "" || ev.Emoji.Name != starEmoji {
		return nil
	}

	mirrorID, err := m.store.GetMirror(ctx, ev.GuildID, ev.MessageID)
	if err != nil {
		return err
	}
	if mirrorID == "" {
		return nil
	}

	msg, err := rest.ChannelMessage(ev.ChannelID, ev.MessageID)
	if err != nil || msg == nil {
		return m.removeMirror(ctx, rest, cfg, ev.GuildID, ev.MessageID, mirrorID)
	}

	count := starCount(msg)
	if count == 0 {
		return m.removeMirror(ctx, rest, cfg, ev.GuildID, ev.MessageID, mirrorID)
	}
	if count >= cfg.StarCount {
		return m.editMirror(ctx, rest, cfg, ev.GuildID, msg, mirrorID, count)
	}
	return nil
}

func (m *Module) HandleMessageDelete(ctx context.Context, rest Rest, cfg storage.StarboardConfig, guildID, messageID string) error {
	if cfg.ChannelID == "" {
		return nil
	}
	mirrorID, err := m.store.GetMirror(ctx, guildID, messageID)
	if err != nil || mirrorID == "" {
		return err
	}
	return m.removeMirror(ctx, rest, cfg, guildID, messageID, mirrorID)
}

func (m *Module) createMirror(ctx context.Context, rest Rest, cfg storage.StarboardConfig, guildID string, msg *discordgo.Message, count int) error {
	mirror, err := rest.ChannelMessageSendComplex(cfg.ChannelID, &discordgo.MessageSend{
		Content: mirrorContent(count, msg.ChannelID),
		Embed:   m.buildMirrorEmbed(guildID, msg),
	})
	if err != nil || mirror == nil {
		m.logger.Warn("starboard mirror send failed", zap.String("guild_id", guildID), zap.Error(err))
		return nil
	}
	return m.store.SetMirror(ctx, guildID, msg.ID, mirror.ID)
}

func (m *Module) editMirror(ctx context.Context, rest Rest, cfg storage.StarboardConfig, guildID string, msg *discordgo.Message, mirrorID string, count int) error {
	edit := discordgo.NewMessageEdit(cfg.ChannelID, mirrorID)
	edit.SetContent(mirrorContent(count, msg.ChannelID))
	edit.SetEmbed(m.buildMirrorEmbed(guildID, msg))
	if _, err := rest.ChannelMessageEditComplex(edit); err != nil {
		// Mirror deleted out of band; drop the stale mapping so the
		// next threshold crossing starts clean.
		return m.store.DeleteMirror(ctx, guildID, msg.ID)
	}
	return nil
}

func (m *Module) removeMirror(ctx context.Context, rest Rest, cfg storage.StarboardConfig, guildID, messageID, mirrorID string) error {
	_ = rest.ChannelMessageDelete(cfg.ChannelID, mirrorID)
	return m.store.DeleteMirror(ctx, guildID, messageID)
}

func (m *Module) buildMirrorEmbed(guildID string, msg *discordgo.Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    msg.Author.Username,
			IconURL: msg.Author.AvatarURL(""),
		},
		Description: msg.Content,
		Color:       m.color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Source",
				Value: fmt.Sprintf("[Jump to message](https://discord.com/channels/%s/%s/%s)", guildID, msg.ChannelID, msg.ID),
			},
		},
	}
	if len(msg.Attachments) > 0 && msg.Attachments[0] != nil {
		embed.Image = &discordgo.MessageEmbedImage{URL: msg.Attachments[0].URL}
	}
	return embed
}

func mirrorContent(count int, channelID string) string {
	return fmt.Sprintf("%s %d | <#%s>", starEmoji, count, channelID)
}

func starCount(msg *discordgo.Message) int {
	for _, reaction := range msg.Reactions {
		if reaction != nil && reaction.Emoji != nil && reaction.Emoji.Name == starEmoji {
			return reaction.Count
		}
	}
	return 0
}
