package automod

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pizzahat/internal/config"
	"pizzahat/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Rest is the slice of the Discord client the pipeline needs to act on
// a violation. *discordgo.Session satisfies it.
type Rest interface {
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessagesBulkDelete(channelID string, messages []string, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// InviteResolver resolves an invite code to its guild. Unresolvable
// codes are ignored by the invite rule.
type InviteResolver interface {
	InviteWithCounts(code string, options ...discordgo.RequestOption) (*discordgo.Invite, error)
}

type Module struct {
	mu      sync.Mutex
	windows map[string]*utils.MessageWindow
	cfg     config.AutoModConfig
	logger  *zap.Logger
	clock   Clock
	rules   []rule
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type checkEvent struct {
	msg      *discordgo.MessageCreate
	invites  InviteResolver
	words    []string
	now      time.Time
	spamHits []string
}

type rule struct {
	name  string
	check func(ev *checkEvent) bool
	act   func(rest Rest, ev *checkEvent)
}

func New(cfg config.AutoModConfig, logger *zap.Logger) *Module {
	m := &Module{
		windows: make(map[string]*utils.MessageWindow),
		cfg:     cfg,
		logger:  logger,
		clock:   realClock{},
	}
	// First match wins; order decides which rule is reported when a
	// message would trip more than one.
	m.rules = []rule{
		{name: "banned_words", check: m.checkBannedWords},
		{name: "all_caps", check: m.checkAllCaps},
		{name: "message_spam", check: m.checkSpam, act: m.purgeSpam},
		{name: "mass_mentions", check: m.checkMentions},
		{name: "invite_links", check: m.checkInvites},
		{name: "emoji_spam", check: m.checkEmojiSpam},
		{name: "zalgo_text", check: m.checkZalgo},
	}
	return m
}

func (m *Module) WithClock(clock Clock) {
	m.clock = clock
}

// Evaluate runs the ordered rule list against one message and performs
// the corrective action for the first rule that matches. Exemption and
// the per-guild enabled gate are the caller's job. Returns the name of
// the rule that fired.
func (m *Module) Evaluate(ctx context.Context, rest Rest, resolver InviteResolver, msg *discordgo.MessageCreate, extraWords []string) (string, bool) {
	_ = ctx
	ev := &checkEvent{msg: msg, invites: resolver, words: extraWords, now: m.clock.Now()}
	for _, r := range m.rules {
		if !m.safeCheck(r, ev) {
			continue
		}
		if r.act != nil {
			r.act(rest, ev)
		} else {
			_ = rest.ChannelMessageDelete(msg.ChannelID, msg.ID)
		}
		m.sendWarning(rest, msg, r.name)
		return r.name, true
	}
	return "", false
}

// A broken rule must not abort the rest of the pipeline for the
// message; it is logged and treated as "no violation".
func (m *Module) safeCheck(r rule, ev *checkEvent) (violated bool) {
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("automod rule panicked", zap.String("rule", r.name), zap.Any("panic", rec))
			violated = false
		}
	}()
	return r.check(ev)
}

func (m *Module) sendWarning(rest Rest, msg *discordgo.MessageCreate, ruleName string) {
	content := fmt.Sprintf("<@%s>, your message was removed (%s).", msg.Author.ID, ruleLabel(ruleName))
	sent, err := rest.ChannelMessageSend(msg.ChannelID, content)
	if err != nil || sent == nil {
		return
	}
	ttl := time.Duration(m.cfg.WarningTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	time.AfterFunc(ttl, func() {
		_ = rest.ChannelMessageDelete(sent.ChannelID, sent.ID)
	})
}

func (m *Module) purgeSpam(rest Rest, ev *checkEvent) {
	if len(ev.spamHits) == 0 {
		return
	}
	if err := rest.ChannelMessagesBulkDelete(ev.msg.ChannelID, ev.spamHits); err != nil {
		for _, id := range ev.spamHits {
			_ = rest.ChannelMessageDelete(ev.msg.ChannelID, id)
		}
	}
}

func (m *Module) getWindow(key string) *utils.MessageWindow {
	m.mu.Lock()
	defer m.mu.Unlock()
	window := m.windows[key]
	if window == nil {
		window = utils.NewMessageWindow(time.Duration(m.cfg.SpamWindowSeconds) * time.Second)
		m.windows[key] = window
	}
	return window
}

func ruleLabel(name string) string {
	switch name {
	case "banned_words":
		return "banned word"
	case "all_caps":
		return "too many capitals"
	case "message_spam":
		return "message spam"
	case "mass_mentions":
		return "mass mentions"
	case "invite_links":
		return "invite link"
	case "emoji_spam":
		return "emoji spam"
	case "zalgo_text":
		return "zalgo text"
	default:
		return name
	}
}
