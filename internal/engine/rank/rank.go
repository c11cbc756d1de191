// Package rank produces ordered leaderboards and channel rankings from
// aggregator snapshots, and evaluates what a governance tally currently
// implies. Everything here is pure and safe for concurrent use.
package rank

import (
	"math"
	"sort"

	"github.com/comm0ns/engage/internal/engine/score"
	"github.com/comm0ns/engage/internal/engine/types"
)

// majorRatio is the yes-power share a major vote must reach.
const majorRatio = 2.0 / 3.0

// majorTurnoutPct is the rounded turnout percentage a major vote must reach.
const majorTurnoutPct = 50

// Leaderboard orders members descending by the selected key. Ties break
// descending by cumulative CP, then by the input order, which snapshots
// provide in member first-seen order; repeated calls on identical input
// are therefore deterministic. The input slice is not modified.
func Leaderboard(members []types.Member, key types.SortKey) []types.Member {
	out := make([]types.Member, len(members))
	copy(out, members)

	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := sortValue(&out[i], key), sortValue(&out[j], key)
		if ki != kj {
			return ki > kj
		}
		return out[i].CP > out[j].CP
	})

	return out
}

// ChannelRanking orders channels descending by message count in the
// selected range. Ties break descending by all-time total, then ascending
// by label. The input slice is not modified.
func ChannelRanking(channels []types.Channel, r types.ActivityRange) []types.Channel {
	out := make([]types.Channel, len(channels))
	copy(out, channels)

	sort.SliceStable(out, func(i, j int) bool {
		li, lj := rangeCount(&out[i], r), rangeCount(&out[j], r)
		if li != lj {
			return li > lj
		}
		if out[i].MessagesTotal != out[j].MessagesTotal {
			return out[i].MessagesTotal > out[j].MessagesTotal
		}
		return out[i].Label < out[j].Label
	})

	return out
}

// Outcome is the evaluation of one vote's current tally.
type Outcome struct {
	Status     types.VoteStatus
	YesRatio   float64
	TurnoutPct int
	Rule       string
}

// Evaluate reports what the current tally implies for a vote. Major votes
// pass at a yes ratio of at least 2/3 with turnout of at least 50%;
// normal votes pass on a simple majority with no turnout requirement.
// The vote itself is never mutated; open/closed is owned upstream.
func Evaluate(v types.Vote) Outcome {
	total := v.YesVP + v.NoVP
	if total < 1 {
		total = 1
	}
	ratio := float64(v.YesVP) / float64(total)

	eligible := v.TotalEligible
	if eligible < 1 {
		eligible = 1
	}
	turnout := int(math.Round(float64(v.Voters) / float64(eligible) * 100.0))

	out := Outcome{Status: types.VoteStatusPending, YesRatio: ratio, TurnoutPct: turnout}
	if v.Kind == types.VoteKindMajor {
		out.Rule = "need >=66% yes and turnout >=50%"
		if ratio >= majorRatio && turnout >= majorTurnoutPct {
			out.Status = types.VoteStatusPassed
		}
		return out
	}

	out.Rule = "need >50% yes"
	if ratio > 0.5 {
		out.Status = types.VoteStatusPassed
	}
	return out
}

// CapabilityOf derives the tri-state availability flag for an optional
// upstream table from whether it could be read and how many rows it held.
func CapabilityOf(available bool, rows int) types.Capability {
	switch {
	case !available:
		return types.CapabilityUnavailable
	case rows == 0:
		return types.CapabilityEmpty
	default:
		return types.CapabilityPopulated
	}
}

// IssueSummary counts tracked issues by workflow status.
type IssueSummary struct {
	Open       int
	InProgress int
	Review     int
	Total      int
}

// SummarizeIssues tallies issue records by status.
func SummarizeIssues(issues []types.Issue) IssueSummary {
	sum := IssueSummary{Total: len(issues)}
	for _, issue := range issues {
		switch issue.Status {
		case "open":
			sum.Open++
		case "in-progress":
			sum.InProgress++
		case "review":
			sum.Review++
		}
	}
	return sum
}

// sortValue extracts the O(1) ordering key for one member.
func sortValue(m *types.Member, key types.SortKey) float64 {
	switch key {
	case types.SortKeyCP:
		return m.CP
	case types.SortKeyTrust:
		return float64(m.TrustScore)
	case types.SortKeyVP:
		return float64(score.VotingPower(m.CP))
	case types.SortKeyEffectiveVP:
		return float64(score.EffectiveVotingPower(m.CP, m.TrustScore))
	case types.SortKeyStreak:
		return float64(m.StreakDays)
	case types.SortKeyWeekly:
		return m.WeeklyCP
	case types.SortKeyInfo:
		return float64(m.Info)
	case types.SortKeyInsight:
		return float64(m.Insight)
	case types.SortKeyVibe:
		return float64(m.Vibe)
	case types.SortKeyOps:
		return float64(m.Ops)
	case types.SortKeyMisc:
		return float64(m.Misc)
	case types.SortKeyReactions:
		return float64(m.ReactionsGiven)
	default:
		return m.CP
	}
}

// rangeCount extracts the message count for one activity range.
func rangeCount(ch *types.Channel, r types.ActivityRange) int {
	switch r {
	case types.RangeMonth:
		return ch.MessagesMonth
	case types.RangeWeek:
		return ch.MessagesWeek
	default:
		return ch.MessagesTotal
	}
}
