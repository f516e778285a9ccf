package testfeed

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/okian/simcast/internal/domain/model"
)

// verifyResults checks the internal consistency of projections and margins.
func verifyResults(_ context.Context, config *Config, projections []model.Projection, odds []model.GameOdds) error {
	log.Println("🔍 Verifying results...")

	if len(projections) == 0 {
		return fmt.Errorf("no projections to verify")
	}

	byTeam := make(map[string]map[model.Category]float64)
	for _, p := range projections {
		if p.Probability < 0 || p.Probability > 1 {
			return fmt.Errorf("projection out of range: %s %s = %.4f",
				p.Subject.ID, p.Category, p.Probability)
		}
		if byTeam[p.Subject.ID] == nil {
			byTeam[p.Subject.ID] = make(map[model.Category]float64)
		}
		byTeam[p.Subject.ID][p.Category] = p.Probability
	}

	// The playoff-team band supersedes both of its sub-bands, so its
	// probability can never be smaller.
	for team, cats := range byTeam {
		playoff := cats[model.PlayoffTeam]
		if cats[model.DivisionWinner] > playoff || cats[model.WildcardTeam] > playoff {
			return fmt.Errorf("team %s: playoff probability %.4f below a sub-band", team, playoff)
		}
	}

	if err := verifyMargins(odds); err != nil {
		return err
	}

	displaySummary(byTeam, odds, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyMargins checks that game odds are normalized and sorted by
// competitiveness.
func verifyMargins(odds []model.GameOdds) error {
	for i, o := range odds {
		total := o.HomeWin + o.AwayWin + o.Tie
		if total < 0.999 || total > 1.001 {
			return fmt.Errorf("game %s: result probabilities sum to %.4f", o.Subject.ID, total)
		}
		if i > 0 && o.Margin < odds[i-1].Margin {
			return fmt.Errorf("margins not sorted: entry %d tighter than entry %d", i, i-1)
		}
	}
	if len(odds) > 0 {
		log.Println("✅ Margin ordering verified")
	}
	return nil
}

// displaySummary shows the most likely division winners and the closest games.
func displaySummary(byTeam map[string]map[model.Category]float64, odds []model.GameOdds, verbose bool) {
	type teamProb struct {
		team string
		prob float64
	}
	var winners []teamProb
	for team, cats := range byTeam {
		winners = append(winners, teamProb{team: team, prob: cats[model.DivisionWinner]})
	}
	sort.Slice(winners, func(i, j int) bool {
		if winners[i].prob != winners[j].prob {
			return winners[i].prob > winners[j].prob
		}
		return winners[i].team < winners[j].team
	})

	topN := 10
	if len(winners) < topN {
		topN = len(winners)
	}
	log.Printf("🏆 Top %d division winner probabilities:", topN)
	for i := 0; i < topN; i++ {
		log.Printf("   %d. %s - %.3f", i+1, winners[i].team, winners[i].prob)
	}

	if len(odds) > 0 {
		closest := 5
		if len(odds) < closest {
			closest = len(odds)
		}
		log.Printf("⚖️  %d closest games:", closest)
		for i := 0; i < closest; i++ {
			o := odds[i]
			log.Printf("   %d. %s - home %.3f away %.3f margin %.3f",
				i+1, o.Subject.ID, o.HomeWin, o.AwayWin, o.Margin)
		}
	}

	if verbose {
		var sum float64
		for _, w := range winners {
			sum += w.prob
		}
		log.Printf(`📊 Division winner statistics:
   Teams: %d
   Probability mass: %.3f
`, len(winners), sum)
	}
}
