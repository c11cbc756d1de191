// Package score holds the pure contribution and voting-power formulas.
// Nothing here reads or writes shared state; callers apply the returned
// deltas to the aggregator.
package score

import (
	"math"
	"strings"

	"github.com/comm0ns/engage/internal/engine/types"
)

const (
	// MaxVotingPower is the hard ceiling on log-scaled voting power.
	MaxVotingPower = 6
	// MinVotingPower keeps even fully untrusted members a minimal voice.
	MinVotingPower = 1

	// ReactionBaseWeight is the impact weight of an ordinary reaction.
	ReactionBaseWeight = 2.0
	// ReactionSpecialWeight is the impact weight of the boosted emoji set.
	ReactionSpecialWeight = 5.0

	// MinQualityMultiplier and MaxQualityMultiplier bound the externally
	// supplied text-quality multiplier.
	MinQualityMultiplier = 0.1
	MaxQualityMultiplier = 1.5
)

// specialReactions are the emoji (and their shortcode aliases) that carry
// the boosted reaction weight.
var specialReactions = map[string]struct{}{
	"\U0001F525": {}, // fire
	"\U0001F680": {}, // rocket
	"\U0001F44D": {}, // thumbs up
	"fire":       {},
	"rocket":     {},
	"thumbsup":   {},
	"+1":         {},
}

// BaseContribution returns the fixed point value for a message category.
func BaseContribution(c types.Category) int {
	switch c {
	case types.CategoryInfo:
		return 5
	case types.CategoryInsight:
		return 4
	case types.CategoryOps:
		return 4
	case types.CategoryVibe:
		return 3
	case types.CategoryMisc:
		return 1
	default:
		return 1
	}
}

// EffectiveContribution scales the base points by the channel weight and
// the actor's current trust score.
func EffectiveContribution(c types.Category, channelWeight float64, trustScore int) float64 {
	return float64(BaseContribution(c)) * channelWeight * (float64(clampTrust(trustScore)) / 100.0)
}

// VotingPower derives log-scaled influence from cumulative CP. The +1
// inside the log keeps CP=0 defined; the result is clamped to [1, 6].
func VotingPower(cumulativeCP float64) int {
	if cumulativeCP < 0 {
		cumulativeCP = 0
	}
	vp := int(math.Floor(math.Log2(cumulativeCP+1))) + 1
	if vp < MinVotingPower {
		return MinVotingPower
	}
	if vp > MaxVotingPower {
		return MaxVotingPower
	}
	return vp
}

// EffectiveVotingPower scales voting power by the current trust score,
// floored at 1 so no member ever drops to zero voice.
func EffectiveVotingPower(cumulativeCP float64, trustScore int) int {
	vp := VotingPower(cumulativeCP)
	eff := int(math.Floor(float64(vp) * float64(clampTrust(trustScore)) / 100.0))
	if eff < 1 {
		return 1
	}
	return eff
}

// StreakBonus returns the one-off daily bonus for a consecutive-activity
// streak of the given length.
func StreakBonus(streakDays int) int {
	switch {
	case streakDays >= 30:
		return 15
	case streakDays >= 7:
		return 5
	case streakDays >= 3:
		return 2
	default:
		return 0
	}
}

// ReactionWeight returns the impact weight for a reaction emoji. The emoji
// may arrive as a Unicode literal or a shortcode name.
func ReactionWeight(emoji string) float64 {
	if _, ok := specialReactions[strings.ToLower(strings.Trim(emoji, ":"))]; ok {
		return ReactionSpecialWeight
	}
	if _, ok := specialReactions[emoji]; ok {
		return ReactionSpecialWeight
	}
	return ReactionBaseWeight
}

// ClampQuality bounds an externally computed quality multiplier to the
// accepted range. Unset or invalid values fall back to neutral 1.0.
func ClampQuality(m float64) float64 {
	if m == 0 || math.IsNaN(m) {
		return 1.0
	}
	if m < MinQualityMultiplier {
		return MinQualityMultiplier
	}
	if m > MaxQualityMultiplier {
		return MaxQualityMultiplier
	}
	return m
}

// WeightTable maps normalized lowercase channel labels to contribution
// multipliers. Unlisted channels weigh 1.0.
type WeightTable map[string]float64

// DefaultWeights returns the built-in channel weight table: project and
// knowledge channels 1.2, general-purpose 1.0, social 0.8.
func DefaultWeights() WeightTable {
	return WeightTable{
		"#dev":           1.2,
		"#agri":          1.2,
		"#book-commons":  1.2,
		"#learning":      1.2,
		"#article-share": 1.2,
		"#general":       1.0,
		"#intro":         1.0,
		"#game":          0.8,
		"#music":         0.8,
		"#random":        0.8,
	}
}

// Weight looks up the multiplier for a channel label, case-insensitively.
func (t WeightTable) Weight(label string) float64 {
	if w, ok := t[strings.ToLower(label)]; ok {
		return w
	}
	return 1.0
}

func clampTrust(ts int) int {
	if ts < 0 {
		return 0
	}
	if ts > 100 {
		return 100
	}
	return ts
}
