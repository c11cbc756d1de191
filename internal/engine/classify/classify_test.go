package classify_test

import (
	"strings"
	"testing"

	"github.com/comm0ns/engage/internal/engine/classify"
	"github.com/comm0ns/engage/internal/engine/types"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	c := classify.New(nil)

	tests := []struct {
		name           string
		channel        string
		text           string
		wantCategory   types.Category
		wantConfidence float64
		wantStage      types.Stage
	}{
		{
			name:           "url wins regardless of channel",
			channel:        "#random",
			text:           "check this out http://x.y",
			wantCategory:   types.CategoryInfo,
			wantConfidence: 0.70,
			wantStage:      types.StageRule,
		},
		{
			name:           "url wins over ops channel",
			channel:        "#governance",
			text:           "proposal draft at https://example.org/doc",
			wantCategory:   types.CategoryInfo,
			wantConfidence: 0.70,
			wantStage:      types.StageRule,
		},
		{
			name:           "url wins over length",
			channel:        "#general",
			text:           "https://a.b " + strings.Repeat("x", 300),
			wantCategory:   types.CategoryInfo,
			wantConfidence: 0.70,
			wantStage:      types.StageRule,
		},
		{
			name:           "ops channel",
			channel:        "#ops",
			text:           "deployment window starts at noon today",
			wantCategory:   types.CategoryOps,
			wantConfidence: 0.60,
			wantStage:      types.StageRule,
		},
		{
			name:           "ops channel match is case-insensitive",
			channel:        "#Announcements",
			text:           "release notes are ready for review now",
			wantCategory:   types.CategoryOps,
			wantConfidence: 0.60,
			wantStage:      types.StageRule,
		},
		{
			name:           "short text fires before length rule",
			channel:        "#dev",
			text:           "lol",
			wantCategory:   types.CategoryVibe,
			wantConfidence: 0.80,
			wantStage:      types.StageRule,
		},
		{
			name:           "short text counts visible characters only",
			channel:        "#dev",
			text:           "  a b  ",
			wantCategory:   types.CategoryVibe,
			wantConfidence: 0.80,
			wantStage:      types.StageRule,
		},
		{
			name:           "long text",
			channel:        "#general",
			text:           strings.Repeat("thoughtful analysis ", 15),
			wantCategory:   types.CategoryInsight,
			wantConfidence: 0.40,
			wantStage:      types.StageRule,
		},
		{
			name:           "ordinary message defers",
			channel:        "#general",
			text:           "has anyone tried the new build yet?",
			wantCategory:   types.CategoryMisc,
			wantConfidence: 0,
			wantStage:      types.StageDeferred,
		},
		{
			name:           "empty text defers",
			channel:        "#general",
			text:           "",
			wantCategory:   types.CategoryMisc,
			wantConfidence: 0,
			wantStage:      types.StageDeferred,
		},
		{
			name:           "whitespace-only text defers",
			channel:        "#general",
			text:           "   \t  ",
			wantCategory:   types.CategoryMisc,
			wantConfidence: 0,
			wantStage:      types.StageDeferred,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := c.Classify(tt.channel, tt.text)

			assert.Equal(t, tt.wantCategory, got.Category)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantStage, got.Stage)
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	t.Parallel()

	c := classify.New(nil)

	// Every input yields exactly one result; deferred results always carry
	// zero confidence.
	inputs := []struct{ channel, text string }{
		{"", ""},
		{"#weird\x00channel", "control\x01chars\x02only"},
		{"#general", strings.Repeat(" ", 500)},
	}

	for _, in := range inputs {
		got := c.Classify(in.channel, in.text)
		if got.Stage == types.StageDeferred {
			assert.Zero(t, got.Confidence)
		}
		assert.GreaterOrEqual(t, got.Confidence, 0.0)
		assert.LessOrEqual(t, got.Confidence, 1.0)
	}
}

func TestClassifyCustomOpsChannels(t *testing.T) {
	t.Parallel()

	c := classify.New([]string{"#infra"})

	got := c.Classify("#infra", "rotating the staging credentials this evening")
	assert.Equal(t, types.CategoryOps, got.Category)

	// The default set no longer applies when overridden.
	got = c.Classify("#governance", "quorum reminder for the next assembly meeting")
	assert.Equal(t, types.CategoryMisc, got.Category)
}

func TestRuleNamesOrder(t *testing.T) {
	t.Parallel()

	c := classify.New(nil)
	assert.Equal(t, []string{"url", "ops-channel", "short-text", "long-text", "fallback"}, c.RuleNames())
}
