// Package projection computes read-time probability projections over
// recorded tallies.
//
// Nothing here is persisted or cached: every projection is recomputed from
// the tallies and the active rule set, so swapping the rule set is all it
// takes to reclassify historical runs.
package projection

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/okian/simcast/internal/domain/classify"
	"github.com/okian/simcast/internal/domain/model"
	"github.com/okian/simcast/pkg/metrics"
)

// TallyReader is the read surface the projector needs from the store.
type TallyReader interface {
	Run(ctx context.Context, id model.RunID) (model.Run, error)
	LatestRun(ctx context.Context) (model.Run, bool, error)
	TotalTrials(ctx context.Context, run model.RunID, kind model.SubjectKind) (uint64, error)
	TalliesFor(ctx context.Context, run model.RunID, subject model.Subject) ([]model.Tally, error)
	Subjects(ctx context.Context, run model.RunID, kind model.SubjectKind) ([]model.Subject, error)
}

// Projector derives probabilities and margin metrics from tallies. It also
// implements the current-state selector by restricting projections to the
// latest published run.
type Projector struct {
	reader TallyReader
	rules  atomic.Pointer[classify.RuleSet]
}

// New creates a Projector over a tally reader with the given rule set.
func New(reader TallyReader, rules *classify.RuleSet) *Projector {
	p := &Projector{reader: reader}
	p.rules.Store(rules)
	return p
}

// SetRuleSet swaps the active rule set. In-flight projections finish under
// the set they started with; new ones see the replacement immediately.
func (p *Projector) SetRuleSet(rules *classify.RuleSet) {
	if rules != nil {
		p.rules.Store(rules)
	}
}

// RuleSet returns the active rule set.
func (p *Projector) RuleSet() *classify.RuleSet {
	return p.rules.Load()
}

// Project computes the probability that a subject's season ends in a
// category: the sum of matching tally counts divided by the run's trial
// total for the subject kind. A subject whose tallies exist but match
// nothing projects to 0.0; a subject with no tallies at all is ErrNoTallies.
func (p *Projector) Project(ctx context.Context, run model.RunID, subject model.Subject, category model.Category) (float64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordProjectionLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	tallies, err := p.reader.TalliesFor(ctx, run, subject)
	if err != nil {
		return 0, err
	}
	total, err := p.reader.TotalTrials(ctx, run, subject.Kind)
	if err != nil {
		return 0, err
	}

	rules := p.rules.Load()
	var matching uint64
	for _, t := range tallies {
		if rules.Matches(t.Outcome, category) {
			matching += t.Count
		}
	}
	// total > 0 by construction: run creation rejects zero trial counts.
	return float64(matching) / float64(total), nil
}

// GameOdds computes the per-result probabilities of a game plus the margin
// metric |P(home win) - P(away win)| used to rank games by competitiveness.
func (p *Projector) GameOdds(ctx context.Context, run model.RunID, subject model.Subject) (model.GameOdds, error) {
	if subject.Kind != model.KindGame {
		return model.GameOdds{}, fmt.Errorf("margin metric requires a game subject, got %s", subject.Kind)
	}
	tallies, err := p.reader.TalliesFor(ctx, run, subject)
	if err != nil {
		return model.GameOdds{}, err
	}
	total, err := p.reader.TotalTrials(ctx, run, subject.Kind)
	if err != nil {
		return model.GameOdds{}, err
	}

	odds := model.GameOdds{Run: run, Subject: subject}
	for _, t := range tallies {
		prob := float64(t.Count) / float64(total)
		switch t.Outcome.Result {
		case model.HomeWin:
			odds.HomeWin = prob
		case model.AwayWin:
			odds.AwayWin = prob
		case model.Tie:
			odds.Tie = prob
		}
	}
	odds.Margin = math.Abs(odds.HomeWin - odds.AwayWin)
	return odds, nil
}

// Margins computes game odds for every game in a run, ordered most
// competitive first (smallest margin, then subject id for determinism).
func (p *Projector) Margins(ctx context.Context, run model.RunID) ([]model.GameOdds, error) {
	subjects, err := p.reader.Subjects(ctx, run, model.KindGame)
	if err != nil {
		return nil, err
	}
	out := make([]model.GameOdds, 0, len(subjects))
	for _, subject := range subjects {
		odds, err := p.GameOdds(ctx, run, subject)
		if err != nil {
			return nil, err
		}
		out = append(out, odds)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Margin != out[j].Margin {
			return out[i].Margin < out[j].Margin
		}
		return out[i].Subject.ID < out[j].Subject.ID
	})
	return out, nil
}

// RunProjections computes team category projections for one run. An empty
// filter means the full vocabulary of the active rule set. Rows are ordered
// by subject id, then rank-space, then category threshold rank ascending.
func (p *Projector) RunProjections(ctx context.Context, run model.RunID, filter []model.Category) ([]model.Projection, error) {
	rules := p.rules.Load()
	categories := filter
	if len(categories) == 0 {
		categories = rules.CategoryVocabulary()
	}

	subjects, err := p.reader.Subjects(ctx, run, model.KindTeam)
	if err != nil {
		return nil, err
	}

	var rows []model.Projection
	for _, subject := range subjects {
		for _, category := range categories {
			prob, err := p.Project(ctx, run, subject, category)
			if err != nil {
				return nil, err
			}
			rule, _ := rules.RuleFor(category)
			rows = append(rows, model.Projection{
				Run:         run,
				Subject:     subject,
				Category:    category,
				Space:       rule.Space,
				Probability: prob,
			})
		}
	}
	sortProjections(rows, rules)
	return rows, nil
}

// CurrentProjections is the current-state selector: projections restricted
// to the latest published run. No runs at all is an empty sequence, not an
// error.
func (p *Projector) CurrentProjections(ctx context.Context, filter []model.Category) ([]model.Projection, error) {
	run, ok, err := p.reader.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.Projection{}, nil
	}
	return p.RunProjections(ctx, run.ID, filter)
}

// sortProjections orders rows for stable presentation: subject id, then
// rank-space, then the category's threshold rank, then category name as the
// final tiebreak.
func sortProjections(rows []model.Projection, rules *classify.RuleSet) {
	threshold := func(c model.Category) int {
		if r, ok := rules.RuleFor(c); ok {
			return r.MaxRank
		}
		return math.MaxInt
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Subject.ID != rows[j].Subject.ID {
			return rows[i].Subject.ID < rows[j].Subject.ID
		}
		if rows[i].Space != rows[j].Space {
			return rows[i].Space < rows[j].Space
		}
		ti, tj := threshold(rows[i].Category), threshold(rows[j].Category)
		if ti != tj {
			return ti < tj
		}
		return rows[i].Category < rows[j].Category
	})
}
