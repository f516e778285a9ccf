package model

import (
	"fmt"
	"strconv"
	"strings"
)

// GameResult is one of the closed three-way set of game outcomes. The label
// strings match the wire vocabulary used by the simulation feed.
type GameResult string

// Game results.
const (
	HomeWin GameResult = "home win"
	AwayWin GameResult = "away win"
	Tie     GameResult = "tie"
)

// GameResults lists the complete, mutually exclusive game outcome set.
func GameResults() []GameResult {
	return []GameResult{HomeWin, AwayWin, Tie}
}

// RankSpace names an ordering of finishing positions.
type RankSpace string

// Rank spaces used by this domain. Playoff seeds rank 1 best within a
// conference; draft position 1 is the first overall pick.
const (
	PlayoffSeed   RankSpace = "playoff_seed"
	DraftPosition RankSpace = "draft_position"
)

// Category is a named season outcome classification. Categories overlap:
// one rank can satisfy several of them at once. The vocabulary is closed and
// versioned alongside the active rule set.
type Category string

// Season outcome categories.
const (
	DivisionWinner Category = "division winner"
	WildcardTeam   Category = "wildcard team"
	PlayoffTeam    Category = "playoff team"
	FirstPick      Category = "first pick"
	TopFivePick    Category = "top 5 pick"
	TopTenPick     Category = "top 10 pick"
)

// OutcomeKind tags the outcome key variant.
type OutcomeKind uint8

// Outcome key variants. Label keys exist for feeds that pre-classify team
// outcomes instead of reporting raw finishing ranks.
const (
	OutcomeGameResult OutcomeKind = iota + 1
	OutcomeRank
	OutcomeLabel
)

// OutcomeKey is the tagged variant identifying one possible trial outcome
// for a subject: a game result, a finishing rank within a rank-space, or a
// pre-classified category label.
type OutcomeKey struct {
	Kind   OutcomeKind
	Result GameResult
	Space  RankSpace
	Rank   int
	Label  Category
}

// GameOutcome builds a game-result outcome key.
func GameOutcome(r GameResult) OutcomeKey {
	return OutcomeKey{Kind: OutcomeGameResult, Result: r}
}

// RankOutcome builds a rank-in-space outcome key.
func RankOutcome(space RankSpace, rank int) OutcomeKey {
	return OutcomeKey{Kind: OutcomeRank, Space: space, Rank: rank}
}

// LabelOutcome builds a pre-classified label outcome key.
func LabelOutcome(c Category) OutcomeKey {
	return OutcomeKey{Kind: OutcomeLabel, Label: c}
}

// Validate checks the key's variant fields are populated consistently.
func (k OutcomeKey) Validate() error {
	switch k.Kind {
	case OutcomeGameResult:
		switch k.Result {
		case HomeWin, AwayWin, Tie:
			return nil
		default:
			return fmt.Errorf("invalid game result %q", string(k.Result))
		}
	case OutcomeRank:
		if k.Space == "" {
			return fmt.Errorf("rank outcome missing rank-space")
		}
		if k.Rank < 1 {
			return fmt.Errorf("invalid rank %d in space %q", k.Rank, string(k.Space))
		}
		return nil
	case OutcomeLabel:
		if k.Label == "" {
			return fmt.Errorf("label outcome missing category")
		}
		return nil
	default:
		return fmt.Errorf("unknown outcome kind %d", k.Kind)
	}
}

// String renders a stable textual key, usable as a map key and as the
// storage representation across schema revisions.
func (k OutcomeKey) String() string {
	switch k.Kind {
	case OutcomeGameResult:
		return "result:" + string(k.Result)
	case OutcomeRank:
		return "rank:" + string(k.Space) + ":" + strconv.Itoa(k.Rank)
	case OutcomeLabel:
		return "label:" + string(k.Label)
	default:
		return "unknown"
	}
}

// ParseOutcomeKey reverses String. Unknown shapes are rejected so stored
// rows written by newer schema revisions fail loudly instead of silently
// aggregating under a bogus key.
func ParseOutcomeKey(s string) (OutcomeKey, error) {
	switch {
	case strings.HasPrefix(s, "result:"):
		k := GameOutcome(GameResult(strings.TrimPrefix(s, "result:")))
		return k, k.Validate()
	case strings.HasPrefix(s, "rank:"):
		rest := strings.TrimPrefix(s, "rank:")
		idx := strings.LastIndex(rest, ":")
		if idx < 0 {
			return OutcomeKey{}, fmt.Errorf("malformed rank outcome key %q", s)
		}
		rank, err := strconv.Atoi(rest[idx+1:])
		if err != nil {
			return OutcomeKey{}, fmt.Errorf("malformed rank in outcome key %q: %w", s, err)
		}
		k := RankOutcome(RankSpace(rest[:idx]), rank)
		return k, k.Validate()
	case strings.HasPrefix(s, "label:"):
		k := LabelOutcome(Category(strings.TrimPrefix(s, "label:")))
		return k, k.Validate()
	default:
		return OutcomeKey{}, fmt.Errorf("unknown outcome key %q", s)
	}
}
