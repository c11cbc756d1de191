// Command engage runs engagement re-aggregation against the community
// datastore and prints the resulting leaderboards and governance state.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/comm0ns/engage/internal/engine/rank"
	"github.com/comm0ns/engage/internal/engine/score"
	"github.com/comm0ns/engage/internal/engine/types"
	"github.com/comm0ns/engage/internal/setup/config"
	"github.com/comm0ns/engage/internal/store"
	"github.com/comm0ns/engage/internal/worker"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "engage",
		Usage: "Community engagement scoring engine",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "top",
				Aliases: []string{"n"},
				Value:   10,
				Usage:   "Number of leaderboard rows to print",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "refresh",
				Usage: "Run one full re-aggregation pass and print the results",
				Action: func(ctx context.Context, c *cli.Command) error {
					return refreshOnce(ctx, int(c.Int("top")))
				},
			},
			{
				Name:  "watch",
				Usage: "Keep re-aggregating on the configured interval",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return watch(ctx)
				},
			},
			{
				Name:  "reset-weekly",
				Usage: "Zero all weekly scores in the datastore and print the reset state",
				Action: func(ctx context.Context, c *cli.Command) error {
					return resetWeekly(ctx, int(c.Int("top")))
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// bootstrap loads config and wires the store client and refresher.
func bootstrap() (*worker.Refresher, *store.Client, *config.Config, *zap.Logger, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	client := store.NewClient(
		cfg.Store.URL,
		cfg.Store.Key,
		time.Duration(cfg.Store.TimeoutSeconds)*time.Second,
		logger,
	)

	refresher := worker.New(client, worker.Config{
		HistoryDays:    cfg.Engine.HistoryDays,
		OpsChannels:    cfg.Engine.OpsChannels,
		ChannelWeights: cfg.Engine.ChannelWeights,
		UserLimit:      cfg.Store.UserLimit,
		MessageLimit:   cfg.Store.MessageLimit,
		ReactionLimit:  cfg.Store.ReactionLimit,
		VoteLimit:      cfg.Store.VoteLimit,
		IssueLimit:     cfg.Store.IssueLimit,
	}, nil, logger)

	return refresher, client, cfg, logger, nil
}

func refreshOnce(ctx context.Context, top int) error {
	refresher, _, _, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := refresher.Refresh(ctx); err != nil {
		return err
	}

	printState(refresher.State(), top)
	return nil
}

func watch(ctx context.Context) error {
	refresher, _, cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	interval := time.Duration(cfg.Engine.RefreshIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	return refresher.Run(ctx, interval)
}

func resetWeekly(ctx context.Context, top int) error {
	refresher, client, _, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := refresher.Refresh(ctx); err != nil {
		return err
	}
	if err := refresher.ResetWeekly(ctx, client); err != nil {
		return err
	}

	printState(refresher.State(), top)
	return nil
}

func printState(state *worker.State, top int) {
	snap := state.Snapshot

	fmt.Printf("status=%s members=%d channels=%d\n\n",
		state.Status, len(snap.Members), len(snap.Channels))

	fmt.Println("Leaderboard (CP):")
	for i, m := range rank.Leaderboard(snap.Members, types.SortKeyCP) {
		if i >= top {
			break
		}
		fmt.Printf("%3d. %-20s CP=%.1f TS=%d VP=%d eff=%d streak=%dd\n",
			i+1, m.Name, m.CP, m.TrustScore,
			score.VotingPower(m.CP),
			score.EffectiveVotingPower(m.CP, m.TrustScore),
			m.StreakDays)
	}

	fmt.Println("\nChannels (all-time):")
	for _, ch := range rank.ChannelRanking(snap.Channels, types.RangeAll) {
		fmt.Printf("%-18s total=%-6d month=%-5d week=%-5d active=%-3d w=%.1f champ=%s\n",
			ch.Label, ch.MessagesTotal, ch.MessagesMonth, ch.MessagesWeek,
			ch.ActiveMembers, ch.Weight, ch.Champion)
	}

	fmt.Printf("\nGovernance [%s]:\n", state.VotesCap)
	for _, v := range state.Votes {
		out := rank.Evaluate(v)
		fmt.Printf("#%s %s (%s): yes=%d no=%d turnout=%d%% -> %s\n",
			v.ID, v.Title, v.Kind, v.YesVP, v.NoVP, out.TurnoutPct, out.Status)
	}

	sum := rank.SummarizeIssues(state.Issues)
	fmt.Printf("\nIssues [%s]: open=%d in-progress=%d review=%d total=%d\n",
		state.IssuesCap, sum.Open, sum.InProgress, sum.Review, sum.Total)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
