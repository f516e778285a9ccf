package testfeed

import (
	"context"

	"github.com/google/uuid"

	"github.com/okian/simcast/internal/domain/model"
)

// gamesPerWeek bounds how many matchups land in one synthetic week.
const gamesPerWeek = 16

// nflTeams is the static league used for synthetic feeds.
var nflTeams = []model.Team{
	{Abbreviation: "BUF", Name: "Buffalo Bills", Conference: "AFC", Division: "East"},
	{Abbreviation: "MIA", Name: "Miami Dolphins", Conference: "AFC", Division: "East"},
	{Abbreviation: "NE", Name: "New England Patriots", Conference: "AFC", Division: "East"},
	{Abbreviation: "NYJ", Name: "New York Jets", Conference: "AFC", Division: "East"},
	{Abbreviation: "BAL", Name: "Baltimore Ravens", Conference: "AFC", Division: "North"},
	{Abbreviation: "CIN", Name: "Cincinnati Bengals", Conference: "AFC", Division: "North"},
	{Abbreviation: "CLE", Name: "Cleveland Browns", Conference: "AFC", Division: "North"},
	{Abbreviation: "PIT", Name: "Pittsburgh Steelers", Conference: "AFC", Division: "North"},
	{Abbreviation: "HOU", Name: "Houston Texans", Conference: "AFC", Division: "South"},
	{Abbreviation: "IND", Name: "Indianapolis Colts", Conference: "AFC", Division: "South"},
	{Abbreviation: "JAX", Name: "Jacksonville Jaguars", Conference: "AFC", Division: "South"},
	{Abbreviation: "TEN", Name: "Tennessee Titans", Conference: "AFC", Division: "South"},
	{Abbreviation: "DEN", Name: "Denver Broncos", Conference: "AFC", Division: "West"},
	{Abbreviation: "KC", Name: "Kansas City Chiefs", Conference: "AFC", Division: "West"},
	{Abbreviation: "LV", Name: "Las Vegas Raiders", Conference: "AFC", Division: "West"},
	{Abbreviation: "LAC", Name: "Los Angeles Chargers", Conference: "AFC", Division: "West"},
	{Abbreviation: "DAL", Name: "Dallas Cowboys", Conference: "NFC", Division: "East"},
	{Abbreviation: "NYG", Name: "New York Giants", Conference: "NFC", Division: "East"},
	{Abbreviation: "PHI", Name: "Philadelphia Eagles", Conference: "NFC", Division: "East"},
	{Abbreviation: "WAS", Name: "Washington Commanders", Conference: "NFC", Division: "East"},
	{Abbreviation: "CHI", Name: "Chicago Bears", Conference: "NFC", Division: "North"},
	{Abbreviation: "DET", Name: "Detroit Lions", Conference: "NFC", Division: "North"},
	{Abbreviation: "GB", Name: "Green Bay Packers", Conference: "NFC", Division: "North"},
	{Abbreviation: "MIN", Name: "Minnesota Vikings", Conference: "NFC", Division: "North"},
	{Abbreviation: "ATL", Name: "Atlanta Falcons", Conference: "NFC", Division: "South"},
	{Abbreviation: "CAR", Name: "Carolina Panthers", Conference: "NFC", Division: "South"},
	{Abbreviation: "NO", Name: "New Orleans Saints", Conference: "NFC", Division: "South"},
	{Abbreviation: "TB", Name: "Tampa Bay Buccaneers", Conference: "NFC", Division: "South"},
	{Abbreviation: "ARI", Name: "Arizona Cardinals", Conference: "NFC", Division: "West"},
	{Abbreviation: "LAR", Name: "Los Angeles Rams", Conference: "NFC", Division: "West"},
	{Abbreviation: "SEA", Name: "Seattle Seahawks", Conference: "NFC", Division: "West"},
	{Abbreviation: "SF", Name: "San Francisco 49ers", Conference: "NFC", Division: "West"},
}

// StaticRoster is an in-memory roster with a synthetic schedule. Game IDs
// are fresh UUIDs so repeated exercises never collide.
type StaticRoster struct {
	teams map[string]model.Team
	games map[string]model.Game
	order []model.Game
}

// NewStaticRoster builds a roster of the full league plus numGames synthetic
// matchups for the given season.
func NewStaticRoster(season, numGames int) *StaticRoster {
	r := &StaticRoster{
		teams: make(map[string]model.Team, len(nflTeams)),
		games: make(map[string]model.Game, numGames),
		order: make([]model.Game, 0, numGames),
	}
	for _, t := range nflTeams {
		r.teams[t.Abbreviation] = t
	}

	for i := 0; i < numGames; i++ {
		home := nflTeams[(2*i)%len(nflTeams)]
		away := nflTeams[(2*i+1)%len(nflTeams)]
		g := model.Game{
			ID:       uuid.New().String(),
			Season:   season,
			Week:     i/gamesPerWeek + 1,
			HomeTeam: home.Abbreviation,
			AwayTeam: away.Abbreviation,
		}
		r.games[g.ID] = g
		r.order = append(r.order, g)
	}
	return r
}

// TeamByAbbreviation implements model.RosterProvider.
func (r *StaticRoster) TeamByAbbreviation(_ context.Context, abbr string) (model.Team, bool) {
	t, ok := r.teams[abbr]
	return t, ok
}

// GameByID implements model.RosterProvider.
func (r *StaticRoster) GameByID(_ context.Context, id string) (model.Game, bool) {
	g, ok := r.games[id]
	return g, ok
}

// Teams returns the full league in declaration order.
func (r *StaticRoster) Teams() []model.Team {
	return append([]model.Team(nil), nflTeams...)
}

// Games returns the synthetic schedule in creation order.
func (r *StaticRoster) Games() []model.Game {
	return append([]model.Game(nil), r.order...)
}
