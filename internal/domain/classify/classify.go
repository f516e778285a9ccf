// Package classify maps finishing ranks to named season outcome categories.
//
// Rules are ordered, independent threshold predicates over rank-spaces, and
// they overlap: a single rank may satisfy several categories at once (a
// playoff seed of 2 is both a division winner and a playoff team). Every
// predicate is evaluated on every call; nothing is cached, so swapping the
// rule set reclassifies all runs retroactively at read time.
package classify

import (
	"fmt"

	"github.com/okian/simcast/internal/domain/model"
)

// Rule is one threshold predicate: ranks in [MinRank, MaxRank] within Space
// belong to Category.
type Rule struct {
	Space    model.RankSpace
	Category model.Category
	MinRank  int
	MaxRank  int
}

// Matches reports whether a rank in a space satisfies the predicate.
func (r Rule) Matches(space model.RankSpace, rank int) bool {
	return space == r.Space && rank >= r.MinRank && rank <= r.MaxRank
}

// RuleSet is an ordered, immutable collection of rules plus the version tag
// of the category vocabulary it implements. Build a new RuleSet and swap it
// in to change classification; existing sets are never mutated.
type RuleSet struct {
	version string
	rules   []Rule
}

// New builds a RuleSet from ordered rules.
func New(version string, rules []Rule) (*RuleSet, error) {
	if version == "" {
		return nil, fmt.Errorf("rule set version is required")
	}
	for i, r := range rules {
		if r.Space == "" || r.Category == "" {
			return nil, fmt.Errorf("rule %d: space and category are required", i)
		}
		if r.MinRank < 1 || r.MaxRank < r.MinRank {
			return nil, fmt.Errorf("rule %d: invalid rank bounds [%d,%d]", i, r.MinRank, r.MaxRank)
		}
	}
	rs := &RuleSet{version: version, rules: make([]Rule, len(rules))}
	copy(rs.rules, rules)
	return rs, nil
}

// Default returns the current NFL vocabulary: a 7-team conference playoff
// field whose top 4 seeds are division winners and bottom 3 are wildcards,
// plus first/top-5/top-10 draft position categories.
func Default() *RuleSet {
	rs, err := New("nfl-2023", []Rule{
		{Space: model.PlayoffSeed, Category: model.DivisionWinner, MinRank: 1, MaxRank: 4},
		{Space: model.PlayoffSeed, Category: model.WildcardTeam, MinRank: 5, MaxRank: 7},
		{Space: model.PlayoffSeed, Category: model.PlayoffTeam, MinRank: 1, MaxRank: 7},
		{Space: model.DraftPosition, Category: model.FirstPick, MinRank: 1, MaxRank: 1},
		{Space: model.DraftPosition, Category: model.TopFivePick, MinRank: 1, MaxRank: 5},
		{Space: model.DraftPosition, Category: model.TopTenPick, MinRank: 1, MaxRank: 10},
	})
	if err != nil {
		panic(err) // static rules, validated at build time by tests
	}
	return rs
}

// Version returns the vocabulary version tag.
func (s *RuleSet) Version() string {
	return s.version
}

// Rules returns a copy of the ordered rule list.
func (s *RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Categories maps an outcome key to the set of categories it satisfies.
// Rank keys are checked against every rule; label keys translate to their
// own category (this is the single translation point between the rank and
// pre-classified schema revisions); game results classify to nothing. Ranks
// outside every predicate yield an empty set, not an error.
func (s *RuleSet) Categories(key model.OutcomeKey) []model.Category {
	switch key.Kind {
	case model.OutcomeRank:
		var out []model.Category
		for _, r := range s.rules {
			if r.Matches(key.Space, key.Rank) {
				out = append(out, r.Category)
			}
		}
		return out
	case model.OutcomeLabel:
		return []model.Category{key.Label}
	default:
		return nil
	}
}

// Matches reports whether an outcome key belongs to a category.
func (s *RuleSet) Matches(key model.OutcomeKey, category model.Category) bool {
	for _, c := range s.Categories(key) {
		if c == category {
			return true
		}
	}
	return false
}

// RuleFor returns the first rule producing a category, in rule order. It
// anchors deterministic presentation ordering for category projections.
func (s *RuleSet) RuleFor(category model.Category) (Rule, bool) {
	for _, r := range s.rules {
		if r.Category == category {
			return r, true
		}
	}
	return Rule{}, false
}

// Categories in rule order, deduplicated; used to enumerate the closed
// vocabulary of the active set.
func (s *RuleSet) CategoryVocabulary() []model.Category {
	seen := make(map[model.Category]struct{}, len(s.rules))
	var out []model.Category
	for _, r := range s.rules {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	return out
}
