// Package worker orchestrates full re-aggregation passes: it reads the
// datastore tables concurrently, normalizes the rows, rebuilds a fresh
// aggregator from scratch and swaps the result in atomically. Readers
// keep using the previous snapshot until the swap completes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comm0ns/engage/internal/adapter"
	"github.com/comm0ns/engage/internal/engine/aggregate"
	"github.com/comm0ns/engage/internal/engine/classify"
	"github.com/comm0ns/engage/internal/engine/rank"
	"github.com/comm0ns/engage/internal/engine/score"
	"github.com/comm0ns/engage/internal/engine/types"
	"github.com/comm0ns/engage/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Status is the freshness of the currently exposed state.
type Status int

const (
	// StatusError means no successful refresh has ever completed.
	StatusError Status = iota
	// StatusLive means the exposed state comes from the latest refresh.
	StatusLive
	// StatusStale means the last refresh failed and the exposed state is
	// the previous good snapshot.
	StatusStale
)

// String returns the display name for the freshness status.
func (s Status) String() string {
	switch s {
	case StatusLive:
		return "LIVE"
	case StatusStale:
		return "STALE"
	default:
		return "ERROR"
	}
}

// Source reads raw rows from the datastore. *store.Client satisfies it.
type Source interface {
	Query(ctx context.Context, table string, params ...string) ([]map[string]any, error)
}

// Mutator writes partial updates to the datastore. *store.Client
// satisfies it.
type Mutator interface {
	Update(ctx context.Context, table, body string, params ...string) error
}

// Config holds the refresher's fetch limits and engine tuning.
type Config struct {
	HistoryDays    int
	OpsChannels    []string
	ChannelWeights map[string]float64

	UserLimit     int
	MessageLimit  int
	ReactionLimit int
	VoteLimit     int
	IssueLimit    int
}

func (c *Config) applyDefaults() {
	if c.UserLimit <= 0 {
		c.UserLimit = 300
	}
	if c.MessageLimit <= 0 {
		c.MessageLimit = 6000
	}
	if c.ReactionLimit <= 0 {
		c.ReactionLimit = 6000
	}
	if c.VoteLimit <= 0 {
		c.VoteLimit = 30
	}
	if c.IssueLimit <= 0 {
		c.IssueLimit = 50
	}
}

// State is one immutable refresh result. Governance views carry their
// tri-state table availability so callers can distinguish "no votes" from
// "votes table missing".
type State struct {
	Snapshot *aggregate.Snapshot

	Votes    []types.Vote
	VotesCap types.Capability

	Issues    []types.Issue
	IssuesCap types.Capability

	TrustCap types.Capability

	Status      Status
	RefreshedAt time.Time
}

// Refresher rebuilds engine state from the datastore.
type Refresher struct {
	src        Source
	cfg        Config
	clock      clockwork.Clock
	logger     *zap.Logger
	classifier *classify.Classifier
	weights    score.WeightTable

	current atomic.Pointer[State]

	mu  sync.Mutex
	agg *aggregate.Aggregator
}

// New creates a refresher. A nil clock means wall time.
func New(src Source, cfg Config, clock clockwork.Clock, logger *zap.Logger) *Refresher {
	cfg.applyDefaults()

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	// Weight lookups are lowercased, so override keys must be too.
	weights := score.DefaultWeights()
	for label, w := range cfg.ChannelWeights {
		weights[strings.ToLower(label)] = w
	}

	r := &Refresher{
		src:        src,
		cfg:        cfg,
		clock:      clock,
		logger:     logger.Named("refresher"),
		classifier: classify.New(cfg.OpsChannels),
		weights:    weights,
	}
	r.current.Store(&State{Status: StatusError})
	return r
}

// State returns the currently exposed refresh result. Safe to call
// concurrently with Refresh.
func (r *Refresher) State() *State {
	return r.current.Load()
}

// tableResult is one fetched table plus its availability.
type tableResult struct {
	rows      []map[string]any
	available bool
}

// Refresh performs one full re-aggregation pass. The users table is
// required; every other table degrades to its documented default when
// unavailable. On failure the previous good state stays exposed, marked
// stale.
func (r *Refresher) Refresh(ctx context.Context) error {
	started := r.clock.Now()

	var (
		mu     sync.Mutex
		tables = make(map[string]tableResult, 7)
	)

	fetch := func(table string, required bool, params ...string) func(context.Context) error {
		return func(ctx context.Context) error {
			rows, err := r.src.Query(ctx, table, params...)
			if err != nil {
				if !required && errors.Is(err, store.ErrTableUnavailable) {
					mu.Lock()
					tables[table] = tableResult{available: false}
					mu.Unlock()
					return nil
				}
				return fmt.Errorf("fetching %s: %w", table, err)
			}

			mu.Lock()
			tables[table] = tableResult{rows: rows, available: true}
			mu.Unlock()
			return nil
		}
	}

	p := pool.New().WithContext(ctx)
	p.Go(fetch("users", true,
		"select=user_id,username,current_score,weekly_score",
		"order=current_score.desc",
		fmt.Sprintf("limit=%d", r.cfg.UserLimit)))
	p.Go(fetch("members", false, "select=*", "limit=1000"))
	p.Go(fetch("channels", false, "select=channel_id,name", "limit=3000"))
	p.Go(fetch("messages", false,
		"select=message_id,user_id,channel_id,content,timestamp",
		"order=timestamp.desc",
		fmt.Sprintf("limit=%d", r.cfg.MessageLimit)))
	p.Go(fetch("reactions", false,
		"select=message_id,user_id,created_at",
		"order=created_at.desc",
		fmt.Sprintf("limit=%d", r.cfg.ReactionLimit)))
	p.Go(fetch("votes", false, "select=*", fmt.Sprintf("limit=%d", r.cfg.VoteLimit)))
	p.Go(fetch("issues", false, "select=*", fmt.Sprintf("limit=%d", r.cfg.IssueLimit)))

	if err := p.Wait(); err != nil {
		r.markFailed()
		return err
	}

	state, agg := r.build(tables)
	state.RefreshedAt = started

	r.mu.Lock()
	r.agg = agg
	r.mu.Unlock()
	r.current.Store(state)

	r.logger.Info("Refresh complete",
		zap.Int("members", len(state.Snapshot.Members)),
		zap.Int("channels", len(state.Snapshot.Channels)),
		zap.Int("votes", len(state.Votes)),
		zap.Duration("took", r.clock.Now().Sub(started)))

	return nil
}

// Run refreshes immediately and then on every interval tick until the
// context is canceled. Refresh failures are logged and do not stop the
// loop; the exposed state simply goes stale.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) error {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("Initial refresh failed", zap.Error(err))
	}

	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("Refresh failed", zap.Error(err))
			}
		}
	}
}

// build rebuilds a fresh aggregator from the fetched tables. The users
// ledger is authoritative for cumulative CP, so replayed events rebuild
// classification counts, streaks, channel windows and histograms without
// moving CP; the LedgerReplay flag suppresses point deltas.
func (r *Refresher) build(tables map[string]tableResult) (*State, *aggregate.Aggregator) {
	agg := aggregate.New(aggregate.Config{
		HistoryDays:  r.cfg.HistoryDays,
		Weights:      r.weights,
		LedgerReplay: true,
	}, r.clock, r.logger)

	for _, actor := range adapter.Actors(tables["users"].rows, r.logger) {
		agg.SeedMember(actor.ID, actor.Name, actor.CP, actor.WeeklyCP, 100)
	}

	trustTable := tables["members"]
	if trustTable.available {
		for id, ts := range adapter.TrustScores(trustTable.rows, r.logger) {
			agg.SetTrust(id, ts)
		}
	}

	labels := adapter.Channels(tables["channels"].rows, r.logger)
	for id, label := range labels {
		agg.SeedChannel(id, label)
	}

	for _, ev := range adapter.Messages(tables["messages"].rows, r.logger) {
		label := labels[ev.ChannelID]
		if label == "" {
			label = adapter.NormalizeChannelLabel("", ev.ChannelID)
		}

		cls := r.classifier.Classify(label, ev.Text)
		// The seeded ledger already includes these events' points; replay
		// moves no CP, so none is computed.
		agg.RecordMessage(ev, cls, 0)
	}

	for _, ev := range adapter.Reactions(tables["reactions"].rows, r.logger) {
		agg.RecordReaction(ev)
	}

	votesTable := tables["votes"]
	votes := adapter.Votes(votesTable.rows, r.logger)

	issuesTable := tables["issues"]
	issues := adapter.Issues(issuesTable.rows, r.logger)

	return &State{
		Snapshot:  agg.Snapshot(),
		Votes:     votes,
		VotesCap:  rank.CapabilityOf(votesTable.available, len(votes)),
		Issues:    issues,
		IssuesCap: rank.CapabilityOf(issuesTable.available, len(issues)),
		TrustCap:  rank.CapabilityOf(trustTable.available, len(trustTable.rows)),
		Status:    StatusLive,
	}, agg
}

// ResetWeekly zeroes every member's weekly score in the datastore and
// mirrors the reset into the currently exposed state, so readers see it
// without waiting for the next refresh pass.
func (r *Refresher) ResetWeekly(ctx context.Context, m Mutator) error {
	if err := m.Update(ctx, "users", `{"weekly_score": 0}`, "weekly_score=gt.0"); err != nil {
		return fmt.Errorf("resetting weekly scores: %w", err)
	}

	r.mu.Lock()
	agg := r.agg
	r.mu.Unlock()
	if agg == nil {
		// Nothing built yet; the next refresh reads the zeroed scores.
		return nil
	}

	agg.ApplyWeeklyReset()

	next := *r.current.Load()
	next.Snapshot = agg.Snapshot()
	r.current.Store(&next)

	r.logger.Info("Weekly scores reset",
		zap.Int("members", len(next.Snapshot.Members)))
	return nil
}

// markFailed downgrades the exposed state after a failed refresh without
// discarding the previous good snapshot.
func (r *Refresher) markFailed() {
	prev := r.current.Load()
	if prev == nil || prev.Snapshot == nil {
		r.current.Store(&State{Status: StatusError})
		return
	}

	if prev.Status != StatusStale {
		stale := *prev
		stale.Status = StatusStale
		r.current.Store(&stale)
	}
}
