package model

import "context"

// SubjectKind distinguishes the two tally subjects.
type SubjectKind uint8

// Subject kinds.
const (
	KindGame SubjectKind = iota + 1
	KindTeam
)

// String returns the wire name of the kind.
func (k SubjectKind) String() string {
	switch k {
	case KindGame:
		return "game"
	case KindTeam:
		return "team"
	default:
		return "unknown"
	}
}

// Subject identifies what a tally is about: a game or a team. The ID is an
// opaque foreign key owned by the roster/schedule provider; the engine never
// interprets or mutates it. Team subjects produced by conditional-scenario
// feeds may carry a scenario qualifier suffix; that too stays opaque here.
type Subject struct {
	Kind SubjectKind
	ID   string
}

// GameSubject builds a game subject from an external game identifier.
func GameSubject(id string) Subject {
	return Subject{Kind: KindGame, ID: id}
}

// TeamSubject builds a team subject from a team abbreviation.
func TeamSubject(abbr string) Subject {
	return Subject{Kind: KindTeam, ID: abbr}
}

// Team carries roster metadata for display purposes.
type Team struct {
	Abbreviation string
	Name         string
	Conference   string
	Division     string
}

// Game carries schedule metadata for display purposes.
type Game struct {
	ID       string
	Season   int
	Week     int
	HomeTeam string
	AwayTeam string
}

// RosterProvider resolves opaque subject identifiers to display metadata.
// Implementations live outside the engine; a static provider ships for tests
// and the synthetic feed generator.
type RosterProvider interface {
	TeamByAbbreviation(ctx context.Context, abbr string) (Team, bool)
	GameByID(ctx context.Context, id string) (Game, bool)
}
