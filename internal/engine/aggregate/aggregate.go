// Package aggregate owns the only mutable state in the engine: per-member
// and per-channel running totals, activity-day sets, streaks and the
// recent-activity histograms. All mutation happens under a single writer
// lock; each event's effects apply atomically as a unit. Readers take
// consistent snapshots and never observe a half-applied event.
package aggregate

import (
	"fmt"
	"sort"
	"sync"

	"github.com/comm0ns/engage/internal/engine/score"
	"github.com/comm0ns/engage/internal/engine/types"
	"github.com/comm0ns/engage/pkg/daynum"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultHistoryDays is the width of the recent-activity histogram ring.
const DefaultHistoryDays = 26

// Earned titles. The title set on a member is append-only.
const (
	TitleStreak7  = "Streak-7"
	TitleStreak30 = "Streak-30"
	TitleTopCP    = "Top-CP"
)

// topCPThreshold is the cumulative CP at which the Top-CP title is granted.
const topCPThreshold = 1000

// Config holds aggregator tuning.
type Config struct {
	// HistoryDays is the histogram ring width; zero means DefaultHistoryDays.
	HistoryDays int
	// Weights is the channel weight table; nil means the built-in table.
	Weights score.WeightTable
	// LedgerReplay marks a full re-aggregation pass over events whose
	// points are already included in the seeded cumulative ledger. Replayed
	// events rebuild counters, streaks and windows but never move CP, and
	// streak bonuses are not credited a second time.
	LedgerReplay bool
}

// DayVolume is one day's message volume split by category. Misc messages
// count toward Total only.
type DayVolume struct {
	Day     int
	Total   int
	Info    int
	Insight int
	Vibe    int
	Ops     int
}

// Snapshot is a consistent read-only copy of the aggregate state, in
// member first-seen order so downstream tie-breaks stay deterministic.
type Snapshot struct {
	Members  []types.Member
	Channels []types.Channel
	History  []DayVolume
	Today    int
}

type memberState struct {
	types.Member
	activeDays map[int]struct{}
}

type channelState struct {
	types.Channel
	perMember map[int64]int
	active    map[int64]struct{}
	topCount  int
}

// Aggregator accumulates scored events into member and channel ledgers.
type Aggregator struct {
	mu          sync.RWMutex
	clock       clockwork.Clock
	logger      *zap.Logger
	historyDays int
	weights     score.WeightTable
	replay      bool

	members  map[int64]*memberState
	order    []int64
	channels map[int64]*channelState
	daily    map[int]*DayVolume
}

// New creates an empty aggregator.
func New(cfg Config, clock clockwork.Clock, logger *zap.Logger) *Aggregator {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = DefaultHistoryDays
	}
	if cfg.Weights == nil {
		cfg.Weights = score.DefaultWeights()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Aggregator{
		clock:       clock,
		logger:      logger.Named("aggregate"),
		historyDays: cfg.HistoryDays,
		weights:     cfg.Weights,
		replay:      cfg.LedgerReplay,
		members:     make(map[int64]*memberState),
		channels:    make(map[int64]*channelState),
		daily:       make(map[int]*DayVolume),
	}
}

// SeedMember registers or updates a member from an upstream actor record.
// CP and trust are clamped at the boundary; negative values never enter
// the ledger.
func (a *Aggregator) SeedMember(id int64, name string, cp, weeklyCP float64, trustScore int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.memberLocked(id)
	if name != "" {
		m.Name = name
	}
	m.CP = max(0, cp)
	m.WeeklyCP = max(0, weeklyCP)
	m.TrustScore = clampTrust(trustScore)
}

// SetTrust updates a member's trust score, clamped to [0, 100]. Unknown
// members are ignored; trust rows without a matching actor carry no state.
func (a *Aggregator) SetTrust(id int64, trustScore int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if m, ok := a.members[id]; ok {
		m.TrustScore = clampTrust(trustScore)
	}
}

// SeedChannel registers a channel under its normalized label.
func (a *Aggregator) SeedChannel(id int64, label string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ch := a.channelLocked(id)
	ch.Label = label
	ch.Weight = a.weights.Weight(label)
}

// RecordMessage applies one classified message to the ledgers: category
// counter, CP delta, channel windows, active-day set, streak and titles.
// Events referencing unknown members or channels create placeholders.
func (a *Aggregator) RecordMessage(ev types.MessageEvent, cls types.Classification, points float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	today := a.todayLocked()
	m := a.memberLocked(ev.ActorID)
	ch := a.channelLocked(ev.ChannelID)

	switch cls.Category {
	case types.CategoryInfo:
		m.Info++
	case types.CategoryInsight:
		m.Insight++
	case types.CategoryVibe:
		m.Vibe++
	case types.CategoryOps:
		m.Ops++
	case types.CategoryMisc:
		m.Misc++
	}

	if points > 0 && !a.replay {
		m.CP += points
		m.WeeklyCP += points
	}

	ch.MessagesTotal++
	if ev.Day >= today-29 {
		ch.MessagesMonth++
	}
	if ev.Day >= today-6 {
		ch.MessagesWeek++
	}

	ch.perMember[ev.ActorID]++
	if count := ch.perMember[ev.ActorID]; count > ch.topCount {
		ch.topCount = count
		ch.Champion = m.Name
	}
	ch.active[ev.ActorID] = struct{}{}
	ch.ActiveMembers = len(ch.active)

	a.markActiveLocked(m, ev.Day, today)

	dv := a.dayLocked(ev.Day)
	dv.Total++
	switch cls.Category {
	case types.CategoryInfo:
		dv.Info++
	case types.CategoryInsight:
		dv.Insight++
	case types.CategoryVibe:
		dv.Vibe++
	case types.CategoryOps:
		dv.Ops++
	case types.CategoryMisc:
	}
}

// RecordReaction applies one reaction fact: the reactor's participation
// counter and activity day. Author CP is not touched here; reaction
// scoring, when enabled upstream, arrives as an ordinary scored event.
func (a *Aggregator) RecordReaction(ev types.ReactionEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	today := a.todayLocked()
	m := a.memberLocked(ev.ReactorID)
	m.ReactionsGiven++
	a.markActiveLocked(m, ev.Day, today)
}

// ApplyWeeklyReset zeroes every member's weekly total. Idempotent: a
// second reset in the same period finds the values already zero, and an
// empty member set is a valid no-op.
func (a *Aggregator) ApplyWeeklyReset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, id := range a.order {
		a.members[id].WeeklyCP = 0
	}
}

// Snapshot returns a consistent copy of the aggregate state. Streaks and
// online flags are re-evaluated against the clock's current day so stale
// activity does not inflate them.
func (a *Aggregator) Snapshot() *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	today := a.todayLocked()

	members := make([]types.Member, 0, len(a.order))
	for _, id := range a.order {
		ms := a.members[id]
		m := ms.Member
		m.StreakDays = currentStreak(ms.activeDays, today)
		_, m.OnlineToday = ms.activeDays[today]
		m.Titles = append([]string(nil), ms.Titles...)
		members = append(members, m)
	}

	channels := make([]types.Channel, 0, len(a.channels))
	for _, ch := range a.channels {
		channels = append(channels, ch.Channel)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })

	history := make([]DayVolume, a.historyDays)
	for i := range history {
		day := today - (a.historyDays - 1 - i)
		history[i] = DayVolume{Day: day}
		if dv, ok := a.daily[day]; ok {
			history[i] = *dv
		}
	}

	return &Snapshot{Members: members, Channels: channels, History: history, Today: today}
}

// markActiveLocked records one active day for a member. The first event
// of a day recomputes the consecutive run ending at that day and credits
// the streak bonus exactly once for the transition.
func (a *Aggregator) markActiveLocked(m *memberState, day, today int) {
	if _, seen := m.activeDays[day]; !seen {
		m.activeDays[day] = struct{}{}
		if bonus := score.StreakBonus(runEndingAt(m.activeDays, day)); bonus > 0 && !a.replay {
			m.CP += float64(bonus)
			m.WeeklyCP += float64(bonus)
		}
	}

	m.StreakDays = currentStreak(m.activeDays, today)
	if day == today {
		m.OnlineToday = true
	}

	a.grantTitlesLocked(m)
}

func (a *Aggregator) grantTitlesLocked(m *memberState) {
	if m.StreakDays >= 30 && !m.HasTitle(TitleStreak30) {
		m.Titles = append(m.Titles, TitleStreak30)
	} else if m.StreakDays >= 7 && !m.HasTitle(TitleStreak7) {
		m.Titles = append(m.Titles, TitleStreak7)
	}
	if m.CP >= topCPThreshold && !m.HasTitle(TitleTopCP) {
		m.Titles = append(m.Titles, TitleTopCP)
	}
}

func (a *Aggregator) memberLocked(id int64) *memberState {
	if m, ok := a.members[id]; ok {
		return m
	}

	// Unknown actor: create a minimal placeholder rather than failing.
	a.logger.Debug("Creating placeholder member", zap.Int64("id", id))

	m := &memberState{
		Member: types.Member{
			ID:         id,
			Name:       fmt.Sprintf("user-%d", id),
			TrustScore: 100,
		},
		activeDays: make(map[int]struct{}),
	}
	a.members[id] = m
	a.order = append(a.order, id)
	return m
}

func (a *Aggregator) channelLocked(id int64) *channelState {
	if ch, ok := a.channels[id]; ok {
		return ch
	}

	label := fmt.Sprintf("#channel-%d", id)
	ch := &channelState{
		Channel: types.Channel{
			ID:       id,
			Label:    label,
			Weight:   a.weights.Weight(label),
			Champion: "-",
		},
		perMember: make(map[int64]int),
		active:    make(map[int64]struct{}),
	}
	a.channels[id] = ch
	return ch
}

func (a *Aggregator) dayLocked(day int) *DayVolume {
	if dv, ok := a.daily[day]; ok {
		return dv
	}

	dv := &DayVolume{Day: day}
	a.daily[day] = dv
	return dv
}

func (a *Aggregator) todayLocked() int {
	return daynum.FromTime(a.clock.Now())
}

// currentStreak returns the active streak as of today. A day only counts
// as missed once it has fully passed: activity ending yesterday still
// carries the streak, while a gap of a full day resets it to zero.
func currentStreak(days map[int]struct{}, today int) int {
	if run := runEndingAt(days, today); run > 0 {
		return run
	}
	return runEndingAt(days, today-1)
}

// runEndingAt returns the length of the maximal consecutive-day run in
// the set that ends at the given day. Recomputation from the same set is
// idempotent by construction.
func runEndingAt(days map[int]struct{}, end int) int {
	run := 0
	for cursor := end; ; cursor-- {
		if _, ok := days[cursor]; !ok {
			break
		}
		run++
	}
	return run
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
