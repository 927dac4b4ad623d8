// Package speech turns chat text into something a synthesiser can say:
// an ordered substitution pipeline for speakability, plus clients for the
// remote synthesis backends.
package speech

import (
	"fmt"
	"regexp"
	"strings"
)

// wordBoundary is the character class accepted on either side of a word rule.
// Start/end of string count as boundaries too.
const wordBoundaryClass = `[\s.!?,]`

type patternRule struct {
	re   *regexp.Regexp
	repl string
}

type wordRule struct {
	re   *regexp.Regexp
	repl string
}

// RuleTable holds the two ordered rule sets applied to chat text before
// synthesis: free-form pattern rules first, then whole-word rules. Rules run
// in table order, each at most once per Apply call. The output of an earlier
// rule can re-match a later rule; Apply is deliberately not run to fixpoint,
// so Apply(Apply(x)) may differ from Apply(x).
type RuleTable struct {
	patterns []patternRule
	words    []wordRule
}

// NewRuleTable compiles pattern and word rule pairs into a RuleTable.
// Pattern keys are regular expressions matched case-insensitively against the
// whole string; replacements may reference capture groups as ${1}.
// Word keys are wrapped in word boundaries (whitespace, ., !, ?, , or the
// string edges) before compiling. A word key that is empty or is itself a
// boundary character is rejected.
func NewRuleTable(patterns, words [][2]string) (*RuleTable, error) {
	t := &RuleTable{}
	for i, p := range patterns {
		re, err := regexp.Compile("(?i)" + p[0])
		if err != nil {
			return nil, fmt.Errorf("pattern rule %d (%q): %w", i, p[0], err)
		}
		t.patterns = append(t.patterns, patternRule{re: re, repl: p[1]})
	}
	for i, w := range words {
		if err := validateWordKey(w[0]); err != nil {
			return nil, fmt.Errorf("word rule %d: %w", i, err)
		}
		re, err := regexp.Compile(`(?i)(?P<lb>^|` + wordBoundaryClass + `)(?:` + w[0] + `)(?P<rb>$|` + wordBoundaryClass + `)`)
		if err != nil {
			return nil, fmt.Errorf("word rule %d (%q): %w", i, w[0], err)
		}
		t.words = append(t.words, wordRule{re: re, repl: w[1]})
	}
	return t, nil
}

func validateWordKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty word key")
	}
	if len(key) == 1 && strings.ContainsAny(key, " \t\n.!?,") {
		return fmt.Errorf("word key %q is a boundary character", key)
	}
	return nil
}

// Apply runs the substitution pipeline over text: every pattern rule in order,
// then every word rule in order. Each rule replaces only its first match in
// the current string state. Word rules keep the boundary characters captured
// around the match.
func (t *RuleTable) Apply(text string) string {
	for _, r := range t.patterns {
		text = replaceFirst(r.re, text, r.repl)
	}
	for _, r := range t.words {
		loc := r.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		out := []byte(text[:loc[0]])
		out = r.re.ExpandString(out, "${lb}", text, loc)
		out = append(out, r.repl...)
		out = r.re.ExpandString(out, "${rb}", text, loc)
		out = append(out, text[loc[1]:]...)
		text = string(out)
	}
	return text
}

// replaceFirst substitutes only the first match of re in s, expanding ${n}
// references in repl from the match's capture groups.
func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	out := []byte(s[:loc[0]])
	out = re.ExpandString(out, repl, s, loc)
	out = append(out, s[loc[1]:]...)
	return string(out)
}
