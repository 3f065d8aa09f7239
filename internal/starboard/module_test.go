package starboard

import (
	"context"
	"fmt"
	"testing"

	"pizzahat/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type fakeRest struct {
	source *discordgo.Message

	nextID          int
	sent            []*discordgo.MessageSend
	edited          []*discordgo.MessageEdit
	deleted         []string
	removedReaction []string
}

func (f *fakeRest) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.source == nil || f.source.ID != messageID {
		return nil, fmt.Errorf("unknown message %s", messageID)
	}
	return f.source, nil
}

func (f *fakeRest) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.nextID++
	f.sent = append(f.sent, data)
	return &discordgo.Message{ID: fmt.Sprintf("mirror-%d", f.nextID), ChannelID: channelID}, nil
}

func (f *fakeRest) ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.edited = append(f.edited, m)
	return &discordgo.Message{ID: m.ID}, nil
}

func (f *fakeRest) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeRest) MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error {
	f.removedReaction = append(f.removedReaction, userID)
	return nil
}

func newTestModule(t *testing.T) (*Module, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(store, 0xFFD700, zap.NewNop()), store
}

func sourceMessage(stars int) *discordgo.Message {
	msg := &discordgo.Message{
		ID:        "m1",
		ChannelID: "chan",
		Content:   "great pizza",
		Author:    &discordgo.User{ID: "author", Username: "alice"},
	}
	if stars > 0 {
		msg.Reactions = []*discordgo.MessageReactions{
			{Count: stars, Emoji: &discordgo.Emoji{Name: starEmoji}},
		}
	}
	return msg
}

func reactionAdd(userID string) *discordgo.MessageReactionAdd {
	return &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		UserID:    userID,
		MessageID: "m1",
		ChannelID: "chan",
		GuildID:   "g1",
		Emoji:     discordgo.Emoji{Name: starEmoji},
	}}
}

func reactionRemove() *discordgo.MessageReactionRemove {
	return &discordgo.MessageReactionRemove{MessageReaction: &discordgo.MessageReaction{
		UserID:    "someone",
		MessageID: "m1",
		ChannelID: "chan",
		GuildID:   "g1",
		Emoji:     discordgo.Emoji{Name: starEmoji},
	}}
}

func TestMirrorCreatedOncePerCrossing(t *testing.T) {
	m, _ := newTestModule(t)
	ctx := context.Background()
	cfg := storage.StarboardConfig{ChannelID: "board", StarCount: 2}
	rest := &fakeRest{source: sourceMessage(1)}

	if err := m.HandleReactionAdd(ctx, rest, cfg, reactionAdd("u1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(rest.sent) != 0 {
		t.Fatalf("mirror created below threshold")
	}

	rest.source = sourceMessage(2)
	if err := m.HandleReactionAdd(ctx, rest, cfg, reactionAdd("u2")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(rest.sent) != 1 {
		t.Fatalf("expected one mirror, got %d", len(rest.sent))
	}

	rest.source = sourceMessage(3)
	if err := m.HandleReactionAdd(ctx, rest, cfg, reactionAdd("u3")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(rest.sent) != 1 {
		t.Fatalf("second mirror created for same message")
	}
	if len(rest.edited) != 1 {
		t.Fatalf("expected the existing mirror to be edited")
	}
	if want := mirrorContent(3, "chan"); rest.edited[0].Content == nil || *rest.edited[0].Content != want {
		t.Fatalf("edit content = %v, want %q", rest.edited[0].Content, want)
	}
}

func TestZeroStarsDeletesMirror(t *testing.T) {
	m, store := newTestModule(t)
	ctx := context.Background()
	cfg := storage.StarboardConfig{ChannelID: "board", StarCount: 1}
	rest := &fakeRest{source: sourceMessage(1)}

	if err := m.HandleReactionAdd(ctx, rest, cfg, reactionAdd("u1")); err != nil {
		t.Fatalf("add: %v", err)
	}

	rest.source = sourceMessage(0)
	if err := m.HandleReactionRemove(ctx, rest, cfg, reactionRemove()); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(rest.deleted) != 1 || rest.deleted[0] != "mirror-1" {
		t.Fatalf("mirror not deleted: %v", rest.deleted)
	}
	mirror, err := store.GetMirror(ctx, "g1", "m1")
	if err != nil {
		t.Fatalf("get mirror: %v", err)
	}
	if mirror != "" {
		t.Fatalf("mapping not cleared: %q", mirror)
	}

	// Crossing the threshold again starts a fresh mirror.
	rest.source = sourceMessage(1)
	if err := m.HandleReactionAdd(ctx, rest, cfg, reactionAdd("u1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(rest.sent) != 2 {
		t.Fatalf("expected a new mirror after re-crossing, got %d sends", len(rest.sent))
	}
}

func TestSelfStarRemoved(t *testing.T) {
	m, _ := newTestModule(t)
	cfg := storage.StarboardConfig{ChannelID: "board", StarCount: 1, SelfStar: false}
	rest := &fakeRest{source: sourceMessage(1)}

	if err := m.HandleReactionAdd(context.Background(), rest, cfg, reactionAdd("author")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(rest.removedReaction) != 1 || rest.removedReaction[0] != "author" {
		t.Fatalf("self star not removed: %v", rest.removedReaction)
	}
	if len(rest.sent) != 0 {
		t.Fatalf("mirror created from a self star")
	}
}

func TestSelfStarAllowedWhenConfigured(t *testing.T) {
	m, _ := newTestModule(t)
	cfg := storage.StarboardConfig{ChannelID: "board", StarCount: 1, SelfStar: true}
	rest := &fakeRest{source: sourceMessage(1)}

	if err := m.HandleReactionAdd(context.Background(), rest, cfg, reactionAdd("author")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(rest.removedReaction) != 0 {
		t.Fatalf("self star removed despite being allowed")
	}
	if len(rest.sent) != 1 {
		t.Fatalf("expected mirror, got %d sends", len(rest.sent))
	}
}

func TestBotAuthorsIneligible(t *testing.T) {
	m, _ := newTestModule(t)
	cfg := storage.StarboardConfig{ChannelID: "board", StarCount: 1}
	src := sourceMessage(5)
	src.Author.Bot = true
	rest := &fakeRest{source: src}

	if err := m.HandleReactionAdd(context.Background(), rest, cfg, reactionAdd("u1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(rest.sent) != 0 {
		t.Fatalf("bot message mirrored")
	}
}

func TestSourceDeleteRemovesMirror(t *testing.T) {
	m, store := newTestModule(t)
	ctx := context.Background()
	cfg := storage.StarboardConfig{ChannelID: "board", StarCount: 1}
	rest := &fakeRest{source: sourceMessage(1)}

	if err := m.HandleReactionAdd(ctx, rest, cfg, reactionAdd("u1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.HandleMessageDelete(ctx, rest, cfg, "g1", "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(rest.deleted) != 1 {
		t.Fatalf("mirror not deleted")
	}
	mirror, err := store.GetMirror(ctx, "g1", "m1")
	if err != nil {
		t.Fatalf("get mirror: %v", err)
	}
	if mirror != "" {
		t.Fatalf("mapping survived source delete")
	}
}

func TestUnconfiguredGuildIgnored(t *testing.T) {
	m, _ := newTestModule(t)
	rest := &fakeRest{source: sourceMessage(5)}

	if err := m.HandleReactionAdd(context.Background(), rest, storage.StarboardConfig{}, reactionAdd("u1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(rest.sent) != 0 {
		t.Fatalf("mirror created without configuration")
	}
}
