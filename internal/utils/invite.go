package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

var bareInviteRegex = regexp.MustCompile(`(?i)\bdiscord\.gg/([a-zA-Z0-9-]+)`)

var inviteHosts = map[string]struct{}{
	"discord.gg":     {},
	"discord.com":    {},
	"discordapp.com": {},
}

// ExtractInviteCodes returns the invite codes found in message content,
// covering both full URLs and bare discord.gg/<code> mentions.
func ExtractInviteCodes(content string) []string {
	seen := make(map[string]struct{})
	var codes []string

	for _, raw := range urlRegex.FindAllString(content, -1) {
		code, ok := inviteCodeFromURL(raw)
		if !ok {
			continue
		}
		if _, dup := seen[code]; !dup {
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}

	for _, match := range bareInviteRegex.FindAllStringSubmatch(content, -1) {
		code := match[1]
		if _, dup := seen[code]; !dup {
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	return codes
}

func inviteCodeFromURL(raw string) (string, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(parsed.Hostname())
	if asciiHost, err := idna.ToASCII(host); err == nil {
		host = asciiHost
	}
	if _, ok := inviteHosts[host]; !ok {
		return "", false
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", false
	}
	if host == "discord.gg" {
		return segments[0], true
	}
	if segments[0] == "invite" && len(segments) > 1 {
		return segments[1], true
	}
	return "", false
}
