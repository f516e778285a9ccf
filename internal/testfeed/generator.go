package testfeed

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/simcast/internal/domain/model"
	"github.com/okian/simcast/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
)

// Constants shaping the synthetic outcome distributions.
const (
	homeWinBase      = 0.30
	homeWinSpread    = 0.40
	tieShare         = 0.005
	playoffSeedCount = 7
	draftSlots       = 10
	playoffShareMax  = 0.9
	draftShareMax    = 0.5
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateBatches creates the configured number of simulation batches, each
// one a self-consistent season run over the roster's schedule.
func generateBatches(ctx context.Context, config *Config, roster *StaticRoster, stats *Stats) ([]model.TallyBatch, error) {
	logger.Get().Info(ctx, "generating simulation batches",
		logger.Int("batches", config.Batches),
		logger.Int("games", len(roster.Games())))

	batches := make([]model.TallyBatch, config.Batches)

	type batchResult struct {
		index int
		batch model.TallyBatch
		err   error
	}

	resultChan := make(chan batchResult, config.Batches)

	// Use worker pool for batch generation
	workerCount := minInt(config.Workers, config.Batches)
	batchesPerWorker := config.Batches / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * batchesPerWorker
		end := start + batchesPerWorker
		if worker == workerCount-1 {
			end = config.Batches // Last worker gets remaining batches
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- batchResult{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- batchResult{index: i, batch: generateSingleBatch(config, roster)}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.Batches; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during batch generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate batch %d: %w", result.index, result.err)
			}
			batches[result.index] = result.batch
			stats.TalliesGenerated += len(result.batch.Tallies)
		}
	}

	stats.BatchesGenerated = len(batches)
	logger.Get().Info(ctx, "generated batches successfully",
		logger.Int("count", len(batches)),
		logger.Int("tallies", stats.TalliesGenerated))

	return batches, nil
}

// generateSingleBatch fabricates one simulated season: a result split for
// every game and ranking distributions for every team.
func generateSingleBatch(config *Config, roster *StaticRoster) model.TallyBatch {
	batch := model.TallyBatch{
		BatchID:       uuid.New().String(),
		Season:        config.Season,
		TrialsPerGame: config.TrialsPerGame,
		TrialsPerTeam: config.TrialsPerTeam,
	}

	// Per-batch team strengths drive both game results and rankings.
	strengths := make(map[string]float64)
	for _, t := range roster.Teams() {
		strengths[t.Abbreviation] = getRandomFloat()
	}

	for _, g := range roster.Games() {
		home, away, tie := splitGameTrials(config.TrialsPerGame, strengths[g.HomeTeam], strengths[g.AwayTeam])
		subject := model.GameSubject(g.ID)
		batch.Tallies = append(batch.Tallies,
			model.BatchTally{Subject: subject, Outcome: model.GameOutcome(model.HomeWin), Count: home},
			model.BatchTally{Subject: subject, Outcome: model.GameOutcome(model.AwayWin), Count: away},
			model.BatchTally{Subject: subject, Outcome: model.GameOutcome(model.Tie), Count: tie},
		)
	}

	for _, t := range roster.Teams() {
		subject := model.TeamSubject(t.Abbreviation)
		strength := strengths[t.Abbreviation]

		seeds := splitRankTrials(config.TrialsPerTeam, strength*playoffShareMax, playoffSeedCount)
		var divisionRuns uint64
		for rank, count := range seeds {
			if count == 0 {
				continue
			}
			batch.Tallies = append(batch.Tallies, model.BatchTally{
				Subject: subject,
				Outcome: model.RankOutcome(model.PlayoffSeed, rank+1),
				Count:   count,
			})
			if rank < 4 {
				divisionRuns += count
			}
		}
		// Label tallies mirror the legacy categorical feed shape.
		if divisionRuns > 0 {
			batch.Tallies = append(batch.Tallies, model.BatchTally{
				Subject: subject,
				Outcome: model.LabelOutcome(model.DivisionWinner),
				Count:   divisionRuns,
			})
		}

		picks := splitRankTrials(config.TrialsPerTeam, (1-strength)*draftShareMax, draftSlots)
		for rank, count := range picks {
			if count == 0 {
				continue
			}
			batch.Tallies = append(batch.Tallies, model.BatchTally{
				Subject: subject,
				Outcome: model.RankOutcome(model.DraftPosition, rank+1),
				Count:   count,
			})
		}
	}

	return batch
}

// splitGameTrials divides trials between home win, away win and tie so the
// three counts sum exactly to trials.
func splitGameTrials(trials uint64, homeStrength, awayStrength float64) (home, away, tie uint64) {
	edge := 0.5
	if total := homeStrength + awayStrength; total > 0 {
		edge = homeStrength / total
	}
	pHome := homeWinBase + homeWinSpread*edge

	tie = uint64(float64(trials) * tieShare)
	home = uint64(float64(trials) * pHome)
	if home+tie > trials {
		home = trials - tie
	}
	away = trials - home - tie
	return home, away, tie
}

// splitRankTrials spreads share*trials across slots with geometrically
// decaying weight, so low ranks are the common outcome. The returned counts
// always sum to at most trials.
func splitRankTrials(trials uint64, share float64, slots int) []uint64 {
	if share < 0 {
		share = 0
	}
	if share > 1 {
		share = 1
	}
	budget := uint64(float64(trials) * share)

	counts := make([]uint64, slots)
	remaining := budget
	for i := 0; i < slots && remaining > 0; i++ {
		count := remaining / 2
		if i == slots-1 {
			count = remaining
		}
		counts[i] = count
		remaining -= count
	}
	return counts
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
