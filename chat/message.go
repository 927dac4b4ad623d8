package chat

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/Voxel-Fox-Ltd/twitch-tts/speech"
)

// RoleMask selects which sender roles are allowed to trigger speech. Flags
// combine as a bitmask; zero means the filter is inactive and everyone passes.
type RoleMask int

const (
	RoleEveryone RoleMask = 1 << iota
	RoleSubscriber
	RoleVIP
	RoleModerator
)

// FilterConfig carries the parser's tunables, passed in explicitly so the
// core never reads presentation state.
type FilterConfig struct {
	Roles RoleMask
	Rules *speech.RuleTable

	// MaxTokenLength drops whitespace tokens at or above this many runes.
	// Zero means the default of 50.
	MaxTokenLength int
}

const defaultMaxTokenLength = 50

// ErrNotChat reports a line that is not a channel chat message. The line is
// skipped; the connection is unaffected.
var ErrNotChat = errors.New("not a chat message")

// Message is one parsed chat line. Immutable after Parse; the speakable form
// is derived lazily and cached.
type Message struct {
	Tags     map[string]string
	Username string
	Channel  string
	Body     string

	speakable *string
}

// Parse turns a raw tag-prefixed PRIVMSG line into a Message. Any other line
// shape returns ErrNotChat.
func Parse(raw string) (*Message, error) {
	parsed := twitch.ParseMessage(raw)
	pm, ok := parsed.(*twitch.PrivateMessage)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotChat, raw)
	}
	return &Message{
		Tags:     pm.Tags,
		Username: strings.ToLower(pm.User.Name),
		Channel:  pm.Channel,
		Body:     pm.Message,
	}, nil
}

// Speakable returns the filtered, substitution-applied form of the message
// body. An empty result means "do not speak". The result is computed once and
// cached; later calls return the first computation regardless of cfg.
func (m *Message) Speakable(cfg FilterConfig) string {
	if m.speakable != nil {
		return *m.speakable
	}
	s := m.computeSpeakable(cfg)
	m.speakable = &s
	return s
}

func (m *Message) computeSpeakable(cfg FilterConfig) string {
	if m.Tags["emote-only"] != "" {
		return ""
	}
	if strings.HasPrefix(m.Body, "!") {
		return ""
	}
	if !m.roleAllowed(cfg.Roles) {
		return ""
	}

	body := removeSpans(m.Body, emoteSpans(m.Tags["emotes"]))

	maxLen := cfg.MaxTokenLength
	if maxLen <= 0 {
		maxLen = defaultMaxTokenLength
	}
	var kept []string
	for _, tok := range strings.Fields(body) {
		if isURL(tok) {
			continue
		}
		if len([]rune(tok)) >= maxLen {
			continue
		}
		kept = append(kept, tok)
	}
	body = strings.Join(kept, " ")

	if cfg.Rules != nil {
		body = cfg.Rules.Apply(body)
	}
	return body
}

func (m *Message) roleAllowed(mask RoleMask) bool {
	if mask == 0 || mask&RoleEveryone != 0 {
		return true
	}
	if mask&RoleSubscriber != 0 && m.Tags["subscriber"] == "1" {
		return true
	}
	if mask&RoleVIP != 0 && m.Tags["vip"] == "1" {
		return true
	}
	if mask&RoleModerator != 0 && m.Tags["mod"] == "1" {
		return true
	}
	return false
}

// emoteSpans decodes the emotes tag ("id:0-2,4-6/id2:8-12") into inclusive
// rune-offset ranges.
func emoteSpans(tag string) [][2]int {
	if tag == "" {
		return nil
	}
	var spans [][2]int
	for _, emote := range strings.Split(tag, "/") {
		_, ranges, ok := strings.Cut(emote, ":")
		if !ok {
			continue
		}
		for _, r := range strings.Split(ranges, ",") {
			first, second, ok := strings.Cut(r, "-")
			if !ok {
				continue
			}
			start, err1 := strconv.Atoi(first)
			end, err2 := strconv.Atoi(second)
			if err1 != nil || err2 != nil || start < 0 || end < start {
				continue
			}
			spans = append(spans, [2]int{start, end})
		}
	}
	return spans
}

// removeSpans excises each inclusive [start,end] rune range from body.
// Removal runs in descending start order so earlier excisions never shift the
// offsets of later ones.
func removeSpans(body string, spans [][2]int) string {
	if len(spans) == 0 {
		return body
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] > spans[j][0] })
	runes := []rune(body)
	for _, span := range spans {
		start, end := span[0], span[1]
		if start >= len(runes) {
			continue
		}
		if end >= len(runes) {
			end = len(runes) - 1
		}
		runes = append(runes[:start], runes[end+1:]...)
	}
	return string(runes)
}

func isURL(token string) bool {
	u, err := url.Parse(token)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// ratePrefix splits a leading "<number>|" playback-rate override from the
// rest of the message.
var ratePrefix = regexp.MustCompile(`^(-?\d+(\.\d+)?)\|(.*)$`)

const (
	MinPlaybackRate = 0.07
	MaxPlaybackRate = 10.0
)

// SplitRate extracts a playback-rate prefix from text, clamping the rate to
// [MinPlaybackRate, MaxPlaybackRate]. Without a prefix the rate is 1.0 and
// the text is returned unchanged.
func SplitRate(text string) (float64, string) {
	m := ratePrefix.FindStringSubmatch(text)
	if m == nil {
		return 1.0, text
	}
	rate, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 1.0, text
	}
	if rate < MinPlaybackRate {
		rate = MinPlaybackRate
	}
	if rate > MaxPlaybackRate {
		rate = MaxPlaybackRate
	}
	return rate, m[3]
}
