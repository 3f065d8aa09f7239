package automod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"pizzahat/internal/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type fakeRest struct {
	mu      sync.Mutex
	deleted []string
	bulk    [][]string
	sent    []string
}

func (f *fakeRest) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeRest) ChannelMessagesBulkDelete(channelID string, messages []string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulk = append(f.bulk, messages)
	return nil
}

func (f *fakeRest) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	return &discordgo.Message{ID: "warn1", ChannelID: channelID}, nil
}

type fakeResolver struct {
	guilds map[string]string
}

func (f *fakeResolver) InviteWithCounts(code string, options ...discordgo.RequestOption) (*discordgo.Invite, error) {
	guildID, ok := f.guilds[code]
	if !ok {
		return nil, errors.New("unknown invite")
	}
	return &discordgo.Invite{Guild: &discordgo.Guild{ID: guildID}}, nil
}

type panicResolver struct{}

func (panicResolver) InviteWithCounts(code string, options ...discordgo.RequestOption) (*discordgo.Invite, error) {
	panic("resolver exploded")
}

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

func testModule() *Module {
	return New(config.DefaultConfig().AutoMod, zap.NewNop())
}

func message(id, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        id,
		ChannelID: "c1",
		GuildID:   "g1",
		Author:    &discordgo.User{ID: "u1"},
		Content:   content,
	}}
}

func TestBannedWordFires(t *testing.T) {
	module := testModule()
	rest := &fakeRest{}

	rule, fired := module.Evaluate(context.Background(), rest, nil, message("1", "what a RETARD move"), nil)
	if !fired || rule != "banned_words" {
		t.Fatalf("expected banned_words, got %q fired=%t", rule, fired)
	}
	if len(rest.deleted) != 1 || rest.deleted[0] != "1" {
		t.Fatalf("expected message deleted, got %v", rest.deleted)
	}
	if len(rest.sent) != 1 || !strings.Contains(rest.sent[0], "<@u1>") {
		t.Fatalf("expected author warning, got %v", rest.sent)
	}
}

func TestGuildBannedWordFires(t *testing.T) {
	module := testModule()

	rule, fired := module.Evaluate(context.Background(), &fakeRest{}, nil, message("1", "buy some Contraband today"), []string{"contraband"})
	if !fired || rule != "banned_words" {
		t.Fatalf("expected banned_words, got %q fired=%t", rule, fired)
	}
	if _, fired = module.Evaluate(context.Background(), &fakeRest{}, nil, message("2", "buy some contraband today"), nil); fired {
		t.Fatalf("word should only be banned where configured")
	}
}

func TestAllCapsBoundaries(t *testing.T) {
	module := testModule()

	cases := []struct {
		content string
		fired   bool
	}{
		{"AAAAAAAA", true},                // length 8, all caps
		{"AAAAAAA", false},                // length 7 boundary
		{"AAAAAAAbbb", false},             // 7/10 letters upper, exactly 70%
		{"AAAAAAAAbb", true},              // 8/10 letters upper, above 70%
		{"12345678", false},               // no letters
		{"hello there everyone", false},   // lowercase
	}
	for _, tc := range cases {
		_, fired := module.Evaluate(context.Background(), &fakeRest{}, nil, message("1", tc.content), nil)
		if fired != tc.fired {
			t.Fatalf("content %q: expected fired=%t, got %t", tc.content, tc.fired, fired)
		}
	}
}

func TestMentionBoundary(t *testing.T) {
	module := testModule()

	msg := message("1", "hey")
	msg.Mentions = []*discordgo.User{{ID: "a"}, {ID: "b"}}
	if _, fired := module.Evaluate(context.Background(), &fakeRest{}, nil, msg, nil); fired {
		t.Fatalf("two mentions should not fire")
	}

	msg = message("2", "hey")
	msg.Mentions = []*discordgo.User{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	rule, fired := module.Evaluate(context.Background(), &fakeRest{}, nil, msg, nil)
	if !fired || rule != "mass_mentions" {
		t.Fatalf("expected mass_mentions, got %q fired=%t", rule, fired)
	}
}

func TestSpamWindowPurges(t *testing.T) {
	module := testModule()
	clock := fakeClock{now: time.Unix(100, 0)}
	module.WithClock(clock)
	rest := &fakeRest{}

	for i := 1; i <= 4; i++ {
		if _, fired := module.Evaluate(context.Background(), rest, nil, message(fmt.Sprintf("%d", i), "hi"), nil); fired {
			t.Fatalf("message %d should not fire", i)
		}
	}
	rule, fired := module.Evaluate(context.Background(), rest, nil, message("5", "hi"), nil)
	if !fired || rule != "message_spam" {
		t.Fatalf("expected message_spam, got %q fired=%t", rule, fired)
	}
	if len(rest.bulk) != 1 || len(rest.bulk[0]) != 5 {
		t.Fatalf("expected burst purged, got %v", rest.bulk)
	}

	// The window was drained by the purge; the next message starts over.
	if _, fired = module.Evaluate(context.Background(), rest, nil, message("6", "hi"), nil); fired {
		t.Fatalf("window should reset after purge")
	}
}

func TestSpamWindowExpires(t *testing.T) {
	module := testModule()
	module.WithClock(fakeClock{now: time.Unix(100, 0)})

	for i := 1; i <= 4; i++ {
		module.Evaluate(context.Background(), &fakeRest{}, nil, message(fmt.Sprintf("%d", i), "hi"), nil)
	}
	module.WithClock(fakeClock{now: time.Unix(100, 0).Add(10 * time.Second)})
	if _, fired := module.Evaluate(context.Background(), &fakeRest{}, nil, message("5", "hi"), nil); fired {
		t.Fatalf("stale window should not fire")
	}
}

func TestInviteRule(t *testing.T) {
	module := testModule()
	resolver := &fakeResolver{guilds: map[string]string{"foreign": "g2", "home": "g1"}}

	rule, fired := module.Evaluate(context.Background(), &fakeRest{}, resolver, message("1", "join https://discord.gg/foreign"), nil)
	if !fired || rule != "invite_links" {
		t.Fatalf("expected invite_links, got %q fired=%t", rule, fired)
	}

	if _, fired = module.Evaluate(context.Background(), &fakeRest{}, resolver, message("2", "join https://discord.gg/home"), nil); fired {
		t.Fatalf("own-guild invite should not fire")
	}
	if _, fired = module.Evaluate(context.Background(), &fakeRest{}, resolver, message("3", "join https://discord.gg/expired"), nil); fired {
		t.Fatalf("unresolvable invite should be ignored")
	}
}

func TestEmojiSpam(t *testing.T) {
	module := testModule()

	msg := message("1", strings.Repeat("\U0001F355", 11))
	rule, fired := module.Evaluate(context.Background(), &fakeRest{}, nil, msg, nil)
	if !fired || rule != "emoji_spam" {
		t.Fatalf("expected emoji_spam, got %q fired=%t", rule, fired)
	}

	msg = message("2", strings.Repeat("<:pizza:123456789>", 5)+strings.Repeat("\U0001F355", 5))
	if _, fired = module.Evaluate(context.Background(), &fakeRest{}, nil, msg, nil); fired {
		t.Fatalf("ten emojis should not fire")
	}
}

func TestZalgoText(t *testing.T) {
	module := testModule()

	rule, fired := module.Evaluate(context.Background(), &fakeRest{}, nil, message("1", "ḩ̵e̢llo friends"), nil)
	if !fired || rule != "zalgo_text" {
		t.Fatalf("expected zalgo_text, got %q fired=%t", rule, fired)
	}
	if _, fired = module.Evaluate(context.Background(), &fakeRest{}, nil, message("2", "plain text"), nil); fired {
		t.Fatalf("plain text should not fire")
	}
}

func TestFirstMatchWins(t *testing.T) {
	module := testModule()

	// Banned word and caps violation in one message; only the first
	// rule in the ordered list is reported.
	rule, fired := module.Evaluate(context.Background(), &fakeRest{}, nil, message("1", "YOU ABSOLUTE RETARD"), nil)
	if !fired || rule != "banned_words" {
		t.Fatalf("expected banned_words to win, got %q fired=%t", rule, fired)
	}
}

func TestPanickingRuleIsSkipped(t *testing.T) {
	module := testModule()

	// The resolver panics inside the invite rule; the zalgo rule after
	// it must still run.
	msg := message("1", "discord.gg/boom ḩ̵ello")
	rule, fired := module.Evaluate(context.Background(), &fakeRest{}, panicResolver{}, msg, nil)
	if !fired || rule != "zalgo_text" {
		t.Fatalf("expected zalgo_text after panicking rule, got %q fired=%t", rule, fired)
	}
}
