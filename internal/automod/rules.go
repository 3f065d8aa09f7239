package automod

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"pizzahat/internal/utils"
)

var builtinBannedWords = []string{
	"nigga",
	"nigger",
	"faggot",
	"retard",
}

var customEmojiRegex = regexp.MustCompile(`<a?:\w+:\d+>`)

func (m *Module) checkBannedWords(ev *checkEvent) bool {
	content := strings.ToLower(ev.msg.Content)
	if content == "" {
		return false
	}
	for _, word := range builtinBannedWords {
		if strings.Contains(content, word) {
			return true
		}
	}
	for _, word := range ev.words {
		if word != "" && strings.Contains(content, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

func (m *Module) checkAllCaps(ev *checkEvent) bool {
	content := strings.TrimSpace(ev.msg.Content)
	runes := []rune(content)
	if len(runes) <= m.cfg.CapsMinLength {
		return false
	}

	letters := 0
	upper := 0
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return false
	}
	if upper == letters {
		return true
	}
	return float64(upper)/float64(letters) > m.cfg.CapsRatio
}

func (m *Module) checkSpam(ev *checkEvent) bool {
	key := ev.msg.GuildID + ":" + ev.msg.ChannelID + ":" + ev.msg.Author.ID
	window := m.getWindow(key)
	count := window.Add(ev.msg.ID, ev.now)
	if count < m.cfg.SpamMessages {
		return false
	}
	ev.spamHits = window.Drain(ev.now)
	return true
}

func (m *Module) checkMentions(ev *checkEvent) bool {
	return len(ev.msg.Mentions) >= m.cfg.MentionLimit
}

func (m *Module) checkInvites(ev *checkEvent) bool {
	codes := utils.ExtractInviteCodes(ev.msg.Content)
	if len(codes) == 0 || ev.invites == nil {
		return false
	}
	for _, code := range codes {
		invite, err := ev.invites.InviteWithCounts(code)
		if err != nil || invite == nil || invite.Guild == nil {
			continue
		}
		if invite.Guild.ID != ev.msg.GuildID {
			return true
		}
	}
	return false
}

func (m *Module) checkEmojiSpam(ev *checkEvent) bool {
	return countEmojis(ev.msg.Content) > m.cfg.EmojiLimit
}

func (m *Module) checkZalgo(ev *checkEvent) bool {
	escaped := url.QueryEscape(ev.msg.Content)
	return strings.Contains(escaped, "%CC") || strings.Contains(escaped, "%CD")
}

func countEmojis(content string) int {
	count := len(customEmojiRegex.FindAllString(content, -1))
	stripped := customEmojiRegex.ReplaceAllString(content, "")
	for _, r := range stripped {
		if isEmojiRune(r) {
			count++
		}
	}
	return count
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	default:
		return false
	}
}
