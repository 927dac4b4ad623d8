package chat

import (
	"errors"
	"testing"

	"github.com/Voxel-Fox-Ltd/twitch-tts/speech"
)

func mustRules(t *testing.T, patterns, words [][2]string) *speech.RuleTable {
	t.Helper()
	rt, err := speech.NewRuleTable(patterns, words)
	if err != nil {
		t.Fatal(err)
	}
	return rt
}

func TestParsePrivmsg(t *testing.T) {
	raw := "@subscriber=1;mod=0 :alice!alice@alice.tmi.twitch.tv PRIVMSG #bob :hello world"
	m, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if m.Username != "alice" {
		t.Errorf("username = %q", m.Username)
	}
	if m.Channel != "bob" {
		t.Errorf("channel = %q", m.Channel)
	}
	if m.Body != "hello world" {
		t.Errorf("body = %q", m.Body)
	}
	if m.Tags["subscriber"] != "1" {
		t.Errorf("tags = %v", m.Tags)
	}
}

func TestParseNonChatLine(t *testing.T) {
	for _, raw := range []string{
		"PING :tmi.twitch.tv",
		":tmi.twitch.tv 001 alice :Welcome, GLHF!",
		"garbage",
	} {
		if _, err := Parse(raw); !errors.Is(err, ErrNotChat) {
			t.Errorf("Parse(%q) err = %v, want ErrNotChat", raw, err)
		}
	}
}

func TestSpeakableScenario(t *testing.T) {
	// Emote span excised first, then token filtering, then the word rule on
	// the remainder.
	m := &Message{
		Tags: map[string]string{"emotes": "25:4-8", "subscriber": "1"},
		Body: "lol Kappa check this out",
	}
	cfg := FilterConfig{Rules: mustRules(t, nil, [][2]string{{"lol", "teehee"}})}
	if got := m.Speakable(cfg); got != "teehee check this out" {
		t.Errorf("speakable = %q, want %q", got, "teehee check this out")
	}
}

func TestSpeakableFromRawLine(t *testing.T) {
	raw := "@emotes=25:0-4;subscriber=1 :alice!alice@alice.tmi.twitch.tv PRIVMSG #bob :Kappa hello chat"
	m, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Speakable(FilterConfig{}); got != "hello chat" {
		t.Errorf("speakable = %q, want %q", got, "hello chat")
	}
}

func TestSpeakableEmoteOnly(t *testing.T) {
	m := &Message{Tags: map[string]string{"emote-only": "1"}, Body: "Kappa Kappa"}
	if got := m.Speakable(FilterConfig{}); got != "" {
		t.Errorf("emote-only message spoke: %q", got)
	}
}

func TestSpeakableCommandPrefix(t *testing.T) {
	m := &Message{Tags: map[string]string{}, Body: "!so @someone"}
	if got := m.Speakable(FilterConfig{}); got != "" {
		t.Errorf("command spoke: %q", got)
	}
}

func TestSpeakableRoles(t *testing.T) {
	cases := []struct {
		name  string
		mask  RoleMask
		tags  map[string]string
		spoke bool
	}{
		{"zero mask passes everyone", 0, map[string]string{}, true},
		{"everyone bit passes", RoleEveryone | RoleModerator, map[string]string{}, true},
		{"subscriber required, present", RoleSubscriber, map[string]string{"subscriber": "1"}, true},
		{"subscriber required, absent", RoleSubscriber, map[string]string{}, false},
		{"vip passes vip mask", RoleVIP, map[string]string{"vip": "1"}, true},
		{"mod passes mod mask", RoleModerator, map[string]string{"mod": "1"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &Message{Tags: tc.tags, Body: "hello"}
			got := m.Speakable(FilterConfig{Roles: tc.mask})
			if (got != "") != tc.spoke {
				t.Errorf("speakable = %q, want spoken=%v", got, tc.spoke)
			}
		})
	}
}

func TestSpeakableDropsURLsAndLongTokens(t *testing.T) {
	long := make([]byte, 60)
	for i := range long {
		long[i] = 'a'
	}
	m := &Message{
		Tags: map[string]string{},
		Body: "see https://example.com/x " + string(long) + " ok",
	}
	if got := m.Speakable(FilterConfig{}); got != "see ok" {
		t.Errorf("speakable = %q", got)
	}
}

func TestSpeakableCached(t *testing.T) {
	m := &Message{Tags: map[string]string{}, Body: "hello"}
	first := m.Speakable(FilterConfig{})
	// A different config on a later call must not change the cached result.
	second := m.Speakable(FilterConfig{Roles: RoleSubscriber})
	if first != second {
		t.Errorf("cache miss: %q vs %q", first, second)
	}
}

func TestRemoveSpansOrderIndependent(t *testing.T) {
	body := "abcdefghij"
	asc := [][2]int{{0, 2}, {4, 6}}
	desc := [][2]int{{4, 6}, {0, 2}}
	a := removeSpans(body, asc)
	b := removeSpans(body, desc)
	if a != b {
		t.Errorf("order dependent: %q vs %q", a, b)
	}
	if a != "dhij" {
		t.Errorf("removeSpans = %q, want %q", a, "dhij")
	}
}

func TestRemoveSpansOutOfRange(t *testing.T) {
	// Spans past the end must neither panic nor corrupt the string.
	if got := removeSpans("abc", [][2]int{{10, 12}}); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := removeSpans("abcdef", [][2]int{{4, 99}}); got != "abcd" {
		t.Errorf("got %q", got)
	}
}

func TestEmoteSpansParsing(t *testing.T) {
	spans := emoteSpans("25:0-2,4-6/301:8-12")
	want := map[[2]int]bool{{0, 2}: true, {4, 6}: true, {8, 12}: true}
	if len(spans) != 3 {
		t.Fatalf("spans = %v", spans)
	}
	for _, s := range spans {
		if !want[s] {
			t.Errorf("unexpected span %v", s)
		}
	}
	if got := emoteSpans(""); got != nil {
		t.Errorf("empty tag gave %v", got)
	}
	// Malformed pieces are skipped, not fatal.
	if got := emoteSpans("25:x-2/:/9:3-1"); len(got) != 0 {
		t.Errorf("malformed tag gave %v", got)
	}
}

func TestSplitRate(t *testing.T) {
	cases := []struct {
		in       string
		wantRate float64
		wantText string
	}{
		{"1.5|hello there", 1.5, "hello there"},
		{"99|hi", 10.0, "hi"},
		{"-3|whoa", 0.07, "whoa"},
		{"0.01|slow", 0.07, "slow"},
		{"plain message", 1.0, "plain message"},
		{"2|", 2.0, ""},
	}
	for _, tc := range cases {
		rate, text := SplitRate(tc.in)
		if rate != tc.wantRate || text != tc.wantText {
			t.Errorf("SplitRate(%q) = %v, %q; want %v, %q", tc.in, rate, text, tc.wantRate, tc.wantText)
		}
	}
}
