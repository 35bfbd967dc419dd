package models

// GameOutcome is a single game result from one team's perspective.
type GameOutcome string

const (
	OutcomeWin  GameOutcome = "win"
	OutcomeLoss GameOutcome = "loss"
	OutcomeTie  GameOutcome = "tie"
)

// GameRef records one played game: who the opponent was and how it ended.
// A team meeting the same opponent three times carries three GameRefs.
type GameRef struct {
	Opponent string
	Outcome  GameOutcome
}

// TeamRecord is the aggregated win/loss/tie record for one team over a
// calculation window. Records are built fresh per calculation run and
// never mutated after aggregation.
type TeamRecord struct {
	TeamID string
	Wins   int
	Losses int
	Ties   int
	Games  []GameRef
}

// TotalGames returns the number of games the team has played.
func (r *TeamRecord) TotalGames() int {
	return r.Wins + r.Losses + r.Ties
}

// Opponents returns the opponent id for every game played, with repeated
// meetings appearing once per occurrence.
func (r *TeamRecord) Opponents() []string {
	opponents := make([]string, len(r.Games))
	for i, g := range r.Games {
		opponents[i] = g.Opponent
	}
	return opponents
}

// RecordVersus returns the team's wins/losses/ties against one opponent.
// Used for the head-to-head exclusion in the OWP calculation.
func (r *TeamRecord) RecordVersus(opponent string) (wins, losses, ties int) {
	for _, g := range r.Games {
		if g.Opponent != opponent {
			continue
		}
		switch g.Outcome {
		case OutcomeWin:
			wins++
		case OutcomeLoss:
			losses++
		case OutcomeTie:
			ties++
		}
	}
	return
}
