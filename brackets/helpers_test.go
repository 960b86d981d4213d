package brackets

import (
	"fmt"

	"github.com/Dosada05/swiss-tournament/models"
)

func newTestTournament(swiss, elimination int, ids ...string) *models.Tournament {
	return &models.Tournament{
		ID:                    "t1",
		Name:                  "Test Cup",
		ParticipantIDs:        ids,
		SwissRoundCount:       swiss,
		EliminationRoundCount: elimination,
		Status:                models.StatusDraft,
	}
}

// sequentialIDs returns a deterministic IDFunc: prefix-1, prefix-2, ...
func sequentialIDs(prefix string) IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func rosterOf(ids ...string) []models.Player {
	roster := make([]models.Player, 0, len(ids))
	for _, id := range ids {
		roster = append(roster, models.Player{ID: id, Name: id, Rating: models.DefaultRating})
	}
	return roster
}

func played(p1, p2 string, result models.MatchResult) models.Match {
	m := models.Match{
		ID:             p1 + "-" + p2,
		Participant1ID: p1,
		Participant2ID: &p2,
	}
	m.ApplyResult(result)
	return m
}

func bye(id string) models.Match {
	return models.NewByeMatch("bye-"+id, id)
}

// addRound appends a round numbered after the last one, assigning tables to non-bye matches.
func addRound(t *models.Tournament, matches ...models.Match) {
	table := 0
	for i := range matches {
		if matches[i].IsBye() {
			continue
		}
		table++
		tn := table
		matches[i].TableNumber = &tn
	}
	round := models.Round{
		ID:      fmt.Sprintf("r%d", len(t.Rounds)+1),
		Number:  len(t.Rounds) + 1,
		Matches: matches,
	}
	round.RefreshCompleted()
	t.Rounds = append(t.Rounds, round)
	t.CurrentRoundNumber = round.Number
	t.Status = models.StatusActive
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func seatsOf(matches []models.Match) [][2]string {
	seats := make([][2]string, 0, len(matches))
	for _, m := range matches {
		if m.IsBye() {
			seats = append(seats, [2]string{m.Participant1ID, ""})
			continue
		}
		seats = append(seats, [2]string{m.Participant1ID, *m.Participant2ID})
	}
	return seats
}
