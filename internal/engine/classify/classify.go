// Package classify implements the stage-1 rule cascade that maps one
// message to a category. The cascade is an ordered list of named rules;
// the first match wins and later rules are never evaluated.
package classify

import (
	"strings"
	"unicode"

	"github.com/comm0ns/engage/internal/engine/types"
)

// DefaultOpsChannels are the channel labels whose traffic classifies as
// operational by default.
var DefaultOpsChannels = []string{"#ops", "#governance", "#announcements", "#sprint"}

const (
	// shortTextLimit is the visible-character count below which a message
	// counts as a short social ping.
	shortTextLimit = 5
	// longTextLimit is the raw length above which a message counts as a
	// long-form insight.
	longTextLimit = 200
)

// message is the normalized view a rule predicate sees.
type message struct {
	channel  string // lowercased label
	lowered  string // lowercased raw text
	stripped string // lowered text with control runes removed
}

// rule is one step of the cascade.
type rule struct {
	name   string
	match  func(msg message, c *Classifier) bool
	result types.Classification
}

// Classifier evaluates the rule cascade. It is stateless after
// construction and safe for concurrent use.
type Classifier struct {
	rules       []rule
	opsChannels map[string]struct{}
}

// New builds a classifier. opsChannels overrides the operational channel
// set; nil keeps the default.
func New(opsChannels []string) *Classifier {
	if len(opsChannels) == 0 {
		opsChannels = DefaultOpsChannels
	}

	ops := make(map[string]struct{}, len(opsChannels))
	for _, ch := range opsChannels {
		ops[strings.ToLower(ch)] = struct{}{}
	}

	c := &Classifier{opsChannels: ops}
	c.rules = []rule{
		{
			name: "url",
			match: func(msg message, _ *Classifier) bool {
				return strings.Contains(msg.lowered, "http://") || strings.Contains(msg.lowered, "https://")
			},
			result: types.Classification{Category: types.CategoryInfo, Confidence: 0.70, Stage: types.StageRule},
		},
		{
			name: "ops-channel",
			match: func(msg message, c *Classifier) bool {
				_, ok := c.opsChannels[msg.channel]
				return ok
			},
			result: types.Classification{Category: types.CategoryOps, Confidence: 0.60, Stage: types.StageRule},
		},
		{
			name: "short-text",
			match: func(msg message, _ *Classifier) bool {
				// Empty or whitespace-only text is not a social ping; it
				// falls through to the deferred stage instead.
				n := visibleCount(msg.stripped)
				return n > 0 && n < shortTextLimit
			},
			result: types.Classification{Category: types.CategoryVibe, Confidence: 0.80, Stage: types.StageRule},
		},
		{
			name: "long-text",
			match: func(msg message, _ *Classifier) bool {
				return len(msg.lowered) > longTextLimit
			},
			result: types.Classification{Category: types.CategoryInsight, Confidence: 0.40, Stage: types.StageRule},
		},
	}

	return c
}

// Classify maps one message to a classification result. It is pure and
// case-insensitive on both inputs; if no rule matches, the message falls
// through to Misc at stage 2 for deeper out-of-band review.
func (c *Classifier) Classify(channelLabel, text string) types.Classification {
	lowered := strings.ToLower(text)
	msg := message{
		channel:  strings.ToLower(channelLabel),
		lowered:  lowered,
		stripped: stripControl(lowered),
	}

	for _, r := range c.rules {
		if r.match(msg, c) {
			return r.result
		}
	}

	return types.Classification{Category: types.CategoryMisc, Confidence: 0, Stage: types.StageDeferred}
}

// RuleNames returns the cascade order. The ordering is a tested contract,
// not incidental: url > ops-channel > short-text > long-text > fallback.
func (c *Classifier) RuleNames() []string {
	names := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		names = append(names, r.name)
	}
	return append(names, "fallback")
}

// stripControl drops control runes so zero-width noise does not inflate
// the visible-character count.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// visibleCount counts non-whitespace runes.
func visibleCount(s string) int {
	count := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}
