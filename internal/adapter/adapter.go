// Package adapter normalizes raw rows from the external datastore into
// the typed inputs the engine consumes. The upstream schema allows
// several field names for the same concept, so every concept resolves
// through an explicit ordered alias list here, never inside the engine.
// Per-row failures are logged and skipped; they never abort a batch.
package adapter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/comm0ns/engage/internal/engine/types"
	"github.com/comm0ns/engage/pkg/daynum"
	"go.uber.org/zap"
)

// Row is one decoded record from the datastore's query surface.
type Row = map[string]any

// Ordered field alias lists for the upstream schema. First present alias
// wins.
var (
	userIDAliases    = []string{"user_id", "member_id", "discord_user_id", "id"}
	trustAliases     = []string{"ts", "trust_score", "ts_score", "trust"}
	voteIDAliases    = []string{"id", "vote_id", "proposal_id"}
	titleAliases     = []string{"title", "name"}
	voteKindAliases  = []string{"type", "vote_type"}
	yesAliases       = []string{"yes_vp", "yes_votes", "yes"}
	noAliases        = []string{"no_vp", "no_votes", "no"}
	votersAliases    = []string{"voters", "voter_count"}
	eligibleAliases  = []string{"total_eligible", "eligible_voters", "eligible"}
	daysLeftAliases  = []string{"days_left", "remaining_days"}
	issueIDAliases   = []string{"id", "issue_id"}
	labelAliases     = []string{"label", "type"}
	assigneeAliases  = []string{"assignee", "owner"}
	timestampAliases = []string{"timestamp", "created_at"}
)

// Actor is a normalized row from the users table: the cumulative ledger
// baseline for one member.
type Actor struct {
	ID       int64
	Name     string
	CP       float64
	WeeklyCP float64
}

// NormalizeChannelLabel guarantees the leading topic marker. Empty labels
// get a synthetic one derived from the channel id.
func NormalizeChannelLabel(label string, channelID int64) string {
	if label == "" {
		label = fmt.Sprintf("channel-%d", channelID)
	}
	if !strings.HasPrefix(label, "#") {
		label = "#" + label
	}
	return label
}

// Actors normalizes user rows. Rows without a usable id are skipped.
func Actors(rows []Row, logger *zap.Logger) []Actor {
	out := make([]Actor, 0, len(rows))
	for _, row := range rows {
		id, ok := firstInt64(row, userIDAliases)
		if !ok || id == 0 {
			logger.Warn("Skipping user row without id")
			continue
		}

		name, _ := firstString(row, []string{"username", "name"})
		if name == "" {
			name = fmt.Sprintf("user-%d", id)
		}

		cp, _ := firstFloat(row, []string{"current_score", "cp"})
		weekly, _ := firstFloat(row, []string{"weekly_score", "weekly_cp"})

		out = append(out, Actor{ID: id, Name: name, CP: max(0, cp), WeeklyCP: max(0, weekly)})
	}
	return out
}

// TrustScores normalizes the optional members table into an id-to-trust
// map. Absent or malformed trust values default to 100.
func TrustScores(rows []Row, logger *zap.Logger) map[int64]int {
	out := make(map[int64]int, len(rows))
	for _, row := range rows {
		id, ok := firstInt64(row, userIDAliases)
		if !ok || id == 0 {
			logger.Warn("Skipping trust row without id")
			continue
		}

		trust, ok := firstFloat(row, trustAliases)
		if !ok {
			trust = 100
		}
		out[id] = clampTrust(int(trust + 0.5))
	}
	return out
}

// Channels normalizes channel rows into an id-to-label map with labels
// already carrying the topic marker.
func Channels(rows []Row, logger *zap.Logger) map[int64]string {
	out := make(map[int64]string, len(rows))
	for _, row := range rows {
		id, ok := firstInt64(row, []string{"channel_id", "id"})
		if !ok || id == 0 {
			logger.Warn("Skipping channel row without id")
			continue
		}

		label, _ := firstString(row, []string{"name", "label"})
		out[id] = NormalizeChannelLabel(label, id)
	}
	return out
}

// Messages normalizes message rows into events. Rows missing any id or
// carrying a malformed timestamp are skipped as malformed input.
func Messages(rows []Row, logger *zap.Logger) []types.MessageEvent {
	out := make([]types.MessageEvent, 0, len(rows))
	for _, row := range rows {
		messageID, _ := firstInt64(row, []string{"message_id", "id"})
		actorID, _ := firstInt64(row, []string{"user_id", "author_id"})
		channelID, _ := firstInt64(row, []string{"channel_id"})
		if messageID == 0 || actorID == 0 || channelID == 0 {
			logger.Warn("Skipping message row with missing ids",
				zap.Int64("messageID", messageID))
			continue
		}

		ts, _ := firstString(row, timestampAliases)
		day, err := daynum.Parse(ts)
		if err != nil {
			logger.Warn("Skipping message row with malformed timestamp",
				zap.Int64("messageID", messageID), zap.Error(err))
			continue
		}

		text, _ := firstString(row, []string{"content", "text"})
		out = append(out, types.MessageEvent{
			MessageID: messageID,
			ActorID:   actorID,
			ChannelID: channelID,
			Text:      text,
			Day:       day,
		})
	}
	return out
}

// Reactions normalizes reaction rows into events, skipping rows without a
// reactor or with a malformed timestamp.
func Reactions(rows []Row, logger *zap.Logger) []types.ReactionEvent {
	out := make([]types.ReactionEvent, 0, len(rows))
	for _, row := range rows {
		reactorID, _ := firstInt64(row, []string{"user_id", "reactor_id"})
		if reactorID == 0 {
			logger.Warn("Skipping reaction row without reactor id")
			continue
		}

		ts, _ := firstString(row, []string{"created_at", "timestamp"})
		day, err := daynum.Parse(ts)
		if err != nil {
			logger.Warn("Skipping reaction row with malformed timestamp",
				zap.Int64("reactorID", reactorID), zap.Error(err))
			continue
		}

		messageID, _ := firstInt64(row, []string{"message_id"})
		authorID, _ := firstInt64(row, []string{"author_id", "message_author_id"})
		emoji, _ := firstString(row, []string{"reaction_type", "emoji"})

		out = append(out, types.ReactionEvent{
			MessageID: messageID,
			ReactorID: reactorID,
			AuthorID:  authorID,
			Emoji:     emoji,
			Day:       day,
		})
	}
	return out
}

// Votes normalizes vote rows. Tallies are clamped at zero; unknown kinds
// fall back to normal.
func Votes(rows []Row, logger *zap.Logger) []types.Vote {
	out := make([]types.Vote, 0, len(rows))
	for _, row := range rows {
		id, ok := firstString(row, voteIDAliases)
		if !ok || id == "" || id == "0" {
			logger.Warn("Skipping vote row without id")
			continue
		}

		title, _ := firstString(row, titleAliases)
		if title == "" {
			title = "(untitled)"
		}

		kind := types.VoteKindNormal
		if k, _ := firstString(row, voteKindAliases); strings.EqualFold(k, "major") {
			kind = types.VoteKindMajor
		}

		out = append(out, types.Vote{
			ID:            id,
			Title:         title,
			Kind:          kind,
			YesVP:         clampCount(firstIntOr(row, yesAliases, 0)),
			NoVP:          clampCount(firstIntOr(row, noAliases, 0)),
			Voters:        clampCount(firstIntOr(row, votersAliases, 0)),
			TotalEligible: clampCount(firstIntOr(row, eligibleAliases, 0)),
			DaysLeft:      clampCount(firstIntOr(row, daysLeftAliases, 0)),
		})
	}
	return out
}

// Issues normalizes issue rows with documented defaults for the optional
// descriptive fields.
func Issues(rows []Row, logger *zap.Logger) []types.Issue {
	out := make([]types.Issue, 0, len(rows))
	for _, row := range rows {
		id, ok := firstInt64(row, issueIDAliases)
		if !ok || id == 0 {
			logger.Warn("Skipping issue row without id")
			continue
		}

		title, _ := firstString(row, titleAliases)
		if title == "" {
			title = "(untitled)"
		}
		label := firstStringOr(row, labelAliases, "-")
		priority := firstStringOr(row, []string{"priority"}, "medium")
		status := firstStringOr(row, []string{"status"}, "open")
		assignee := firstStringOr(row, assigneeAliases, "-")

		out = append(out, types.Issue{
			ID:       int(id),
			Title:    title,
			Label:    label,
			Priority: priority,
			Status:   status,
			Assignee: assignee,
		})
	}
	return out
}

// firstInt64 resolves the first present alias to an integer. JSON decoding
// may deliver numbers as float64, int64 or quoted strings.
func firstInt64(row Row, aliases []string) (int64, bool) {
	for _, key := range aliases {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}

		switch n := v.(type) {
		case float64:
			return int64(n), true
		case int64:
			return n, true
		case int:
			return int64(n), true
		case string:
			if parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

func firstFloat(row Row, aliases []string) (float64, bool) {
	for _, key := range aliases {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}

		switch n := v.(type) {
		case float64:
			return n, true
		case int64:
			return float64(n), true
		case int:
			return float64(n), true
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

func firstString(row Row, aliases []string) (string, bool) {
	for _, key := range aliases {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}

		switch s := v.(type) {
		case string:
			return s, true
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64), true
		case int64:
			return strconv.FormatInt(s, 10), true
		}
	}
	return "", false
}

func firstIntOr(row Row, aliases []string, fallback int) int {
	if v, ok := firstFloat(row, aliases); ok {
		return int(v)
	}
	return fallback
}

func firstStringOr(row Row, aliases []string, fallback string) string {
	if v, ok := firstString(row, aliases); ok && v != "" {
		return v
	}
	return fallback
}

func clampCount(v int) int {
	if v < 0 {
		return 0
	}
	return v
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
