// Package types defines the core domain entities shared by the engagement
// engine: members, channels, votes, events and classification results.
package types

import "slices"

// Classification is the outcome of running one message through the rule
// cascade. Confidence is only meaningful for StageRule results; deferred
// results always carry confidence 0.
type Classification struct {
	Category   Category
	Confidence float64
	Stage      Stage
}

// Member is the per-actor aggregate ledger. Records are created on first
// observed activity and never deleted; cumulative CP only moves down during
// an administrative full recompute.
type Member struct {
	ID             int64
	Name           string
	CP             float64
	WeeklyCP       float64
	TrustScore     int
	StreakDays     int
	Info           int
	Insight        int
	Vibe           int
	Ops            int
	Misc           int
	OnlineToday    bool
	Titles         []string
	ReactionsGiven int
}

// CategoryCount returns the lifetime message count for one category.
func (m *Member) CategoryCount(c Category) int {
	switch c {
	case CategoryInfo:
		return m.Info
	case CategoryInsight:
		return m.Insight
	case CategoryVibe:
		return m.Vibe
	case CategoryOps:
		return m.Ops
	case CategoryMisc:
		return m.Misc
	default:
		return 0
	}
}

// HasTitle reports whether the member already earned the given title.
func (m *Member) HasTitle(title string) bool {
	return slices.Contains(m.Titles, title)
}

// Channel is the per-channel aggregate. Label always carries a leading
// topic marker; Weight is the fixed contribution multiplier for the label.
type Channel struct {
	ID            int64
	Label         string
	MessagesTotal int
	MessagesMonth int
	MessagesWeek  int
	ActiveMembers int
	Weight        float64
	Champion      string
}

// MessageEvent is one scored message, already normalized by the adapter.
// Day is a proleptic Gregorian day number.
type MessageEvent struct {
	MessageID int64
	ActorID   int64
	ChannelID int64
	Text      string
	Day       int
}

// ReactionEvent is one reaction fact. AuthorID may be zero when the
// reacted-to message is outside the fetched window.
type ReactionEvent struct {
	MessageID int64
	ReactorID int64
	AuthorID  int64
	Emoji     string
	Day       int
}

// Vote is a governance proposal with its current tally. The engine only
// evaluates what the tally implies; opening and closing belong upstream.
type Vote struct {
	ID            string
	Title         string
	Kind          VoteKind
	YesVP         int
	NoVP          int
	Voters        int
	TotalEligible int
	DaysLeft      int
}

// Issue is a tracked work item from the optional issues table.
type Issue struct {
	ID       int
	Title    string
	Label    string
	Priority string
	Status   string
	Assignee string
}
