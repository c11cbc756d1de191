package types

// Category is the class a message is assigned by the rule cascade.
type Category int

const (
	CategoryInfo Category = iota
	CategoryInsight
	CategoryVibe
	CategoryOps
	CategoryMisc
)

// String returns the uppercase wire name for the category.
func (c Category) String() string {
	switch c {
	case CategoryInfo:
		return "INFO"
	case CategoryInsight:
		return "INSIGHT"
	case CategoryVibe:
		return "VIBE"
	case CategoryOps:
		return "OPS"
	case CategoryMisc:
		return "MISC"
	default:
		return "MISC"
	}
}

// Stage identifies which phase of the classification pipeline produced a result.
type Stage int

const (
	// StageRule means a cascade rule resolved the message with a confidence value.
	StageRule Stage = 1
	// StageDeferred means no rule matched; the message is queued for deeper review.
	StageDeferred Stage = 2
)

// SortKey selects the primary ordering column for member leaderboards.
type SortKey int

const (
	SortKeyCP SortKey = iota
	SortKeyTrust
	SortKeyVP
	SortKeyEffectiveVP
	SortKeyStreak
	SortKeyWeekly
	SortKeyInfo
	SortKeyInsight
	SortKeyVibe
	SortKeyOps
	SortKeyMisc
	SortKeyReactions
)

// String returns the display name for the sort key.
func (k SortKey) String() string {
	switch k {
	case SortKeyCP:
		return "CP"
	case SortKeyTrust:
		return "TS"
	case SortKeyVP:
		return "VP"
	case SortKeyEffectiveVP:
		return "EFF-VP"
	case SortKeyStreak:
		return "STREAK"
	case SortKeyWeekly:
		return "WEEKLY"
	case SortKeyInfo:
		return "INFO"
	case SortKeyInsight:
		return "INSIGHT"
	case SortKeyVibe:
		return "VIBE"
	case SortKeyOps:
		return "OPS"
	case SortKeyMisc:
		return "MISC"
	case SortKeyReactions:
		return "REACTIONS"
	default:
		return "CP"
	}
}

// ActivityRange selects the rolling window used for channel rankings.
type ActivityRange int

const (
	RangeAll ActivityRange = iota
	RangeMonth
	RangeWeek
)

// String returns the display name for the activity range.
func (r ActivityRange) String() string {
	switch r {
	case RangeMonth:
		return "MONTH"
	case RangeWeek:
		return "WEEK"
	default:
		return "TOTAL"
	}
}

// VoteKind distinguishes ordinary proposals from major ones, which carry
// a stricter passing rule.
type VoteKind int

const (
	VoteKindNormal VoteKind = iota
	VoteKindMajor
)

// String returns the wire name for the vote kind.
func (k VoteKind) String() string {
	if k == VoteKindMajor {
		return "major"
	}
	return "normal"
}

// VoteStatus is what the current tally implies for a vote. The engine never
// closes votes itself; a Pending vote may still pass once more ballots land.
type VoteStatus int

const (
	VoteStatusPending VoteStatus = iota
	VoteStatusPassed
)

// String returns the display name for the vote status.
func (s VoteStatus) String() string {
	if s == VoteStatusPassed {
		return "PASSED"
	}
	return "PENDING"
}

// Capability reports whether an optional upstream table could be read at all,
// and if so whether it held any rows.
type Capability int

const (
	CapabilityUnavailable Capability = iota
	CapabilityEmpty
	CapabilityPopulated
)

// String returns the display name for the capability state.
func (c Capability) String() string {
	switch c {
	case CapabilityEmpty:
		return "EMPTY"
	case CapabilityPopulated:
		return "READY"
	default:
		return "UNAVAILABLE"
	}
}
