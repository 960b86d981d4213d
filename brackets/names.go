package brackets

import (
	"fmt"

	"github.com/Dosada05/swiss-tournament/models"
)

// RoundName returns the display name of a round: "Round N" for swiss rounds,
// "Final", "Semifinal" or "Top-N" for the elimination stage.
func RoundName(t *models.Tournament, number int) string {
	if !t.IsEliminationRound(number) {
		return fmt.Sprintf("Round %d", number)
	}
	playersInRound, ok := eliminationRoundSize(t, number)
	switch {
	case !ok:
		return fmt.Sprintf("Round %d", number)
	case playersInRound <= 2:
		return "Final"
	case playersInRound <= 4:
		return "Semifinal"
	default:
		return fmt.Sprintf("Top-%d", playersInRound)
	}
}

// eliminationRoundSize считает участников тура плей-офф: по сыгранным турам,
// а дальше по обрезанной сетке, где каждый тур делит поле пополам (бай проходит дальше).
func eliminationRoundSize(t *models.Tournament, number int) (int, bool) {
	first := t.SwissRoundCount + 1

	players := 0
	if available := len(t.ActiveParticipantIDs()); available >= 2 {
		players = BracketSize(t.EliminationRoundCount, available)
	} else if remaining := t.TotalRounds() - first + 1; remaining < 30 {
		// Состава ещё нет: номинальная сетка.
		players = 1 << remaining
	} else {
		return 0, false
	}

	for n := first; n <= number; n++ {
		if actual := roundParticipants(t, n); actual > 0 {
			players = actual
			continue
		}
		if n == first {
			continue
		}
		if players <= 2 {
			break
		}
		players = (players + 1) / 2
	}
	return players, true
}

func roundParticipants(t *models.Tournament, number int) int {
	for i := range t.Rounds {
		if t.Rounds[i].Number != number {
			continue
		}
		count := 0
		for j := range t.Rounds[i].Matches {
			if t.Rounds[i].Matches[j].IsBye() {
				count++
			} else {
				count += 2
			}
		}
		return count
	}
	return 0
}
