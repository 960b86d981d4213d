package brackets

import (
	"context"
	"math/rand"
	"testing"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSwiss() *SwissGenerator {
	return NewSwissGenerator(SwissOptions{NewID: sequentialIDs("m")})
}

func TestSwissGenerator_FirstRoundOddCount(t *testing.T) {
	tour := newTestTournament(3, 0, "A", "B", "C", "D", "E")

	matches, err := newTestSwiss().GeneratePairing(context.Background(), GeneratePairingParams{
		Tournament:  tour,
		Roster:      rosterOf("A", "B", "C", "D", "E"),
		RoundNumber: 1,
	})
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, [][2]string{{"A", "B"}, {"C", "D"}, {"E", ""}}, seatsOf(matches))

	require.NotNil(t, matches[0].TableNumber)
	require.NotNil(t, matches[1].TableNumber)
	assert.Equal(t, 1, *matches[0].TableNumber)
	assert.Equal(t, 2, *matches[1].TableNumber)
	assert.Equal(t, models.ResultUnset, matches[0].Result)

	byeMatch := matches[2]
	assert.True(t, byeMatch.IsBye())
	assert.Nil(t, byeMatch.TableNumber)
	assert.Equal(t, models.ResultWin1, byeMatch.Result)
	assert.Equal(t, models.PointsWin, byeMatch.Points1)
}

func TestSwissGenerator_NotEnoughParticipants(t *testing.T) {
	tour := newTestTournament(3, 0, "A", "B")
	tour.DroppedParticipantIDs = []string{"B"}

	_, err := newTestSwiss().GeneratePairing(context.Background(), GeneratePairingParams{Tournament: tour, RoundNumber: 1})
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)
}

func TestSwissGenerator_RejectsEliminationRound(t *testing.T) {
	tour := newTestTournament(1, 1, "A", "B")
	addRound(tour, played("A", "B", models.ResultWin1))

	_, err := newTestSwiss().GeneratePairing(context.Background(), GeneratePairingParams{Tournament: tour, RoundNumber: 2})
	assert.ErrorIs(t, err, ErrNotSwissRound)
}

func TestSwissGenerator_PairsByPoints(t *testing.T) {
	tour := newTestTournament(3, 0, "A", "B", "C", "D")
	addRound(tour, played("A", "B", models.ResultWin1), played("C", "D", models.ResultWin1))

	matches, err := newTestSwiss().GeneratePairing(context.Background(), GeneratePairingParams{Tournament: tour, RoundNumber: 2})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"A", "C"}, {"B", "D"}}, seatsOf(matches))
}

func TestSwissGenerator_BacktracksToAvoidRepeat(t *testing.T) {
	tour := newTestTournament(3, 0, "A", "B", "C", "D", "E", "F")
	addRound(tour,
		played("A", "B", models.ResultWin1),
		played("C", "D", models.ResultWin1),
		played("E", "F", models.ResultWin1),
	)
	addRound(tour,
		played("A", "C", models.ResultWin1),
		played("E", "B", models.ResultWin1),
		played("D", "F", models.ResultWin1),
	)

	// Жадный проход упирается в повтор D-F.
	tallies := tallyRounds(tour, 2)
	ordered := newTestSwiss().seed(tour.ActiveParticipantIDs(), tallies, 3)
	assert.Equal(t, []string{"A", "E", "C", "D", "B", "F"}, ordered)
	assert.Equal(t, [][2]string{{"A", "E"}, {"C", "B"}, {"D", "F"}}, pairGreedy(ordered, tallies))

	matches, err := newTestSwiss().GeneratePairing(context.Background(), GeneratePairingParams{Tournament: tour, RoundNumber: 3})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"A", "E"}, {"C", "F"}, {"D", "B"}}, seatsOf(matches))
}

func TestSwissGenerator_ForcedRepeatFallsBack(t *testing.T) {
	tour := newTestTournament(2, 0, "A", "B")
	addRound(tour, played("A", "B", models.ResultWin1))

	matches, err := newTestSwiss().GeneratePairing(context.Background(), GeneratePairingParams{Tournament: tour, RoundNumber: 2})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"A", "B"}}, seatsOf(matches))
}

func TestSwissGenerator_SearchBudgetFallsBackToGreedy(t *testing.T) {
	tour := newTestTournament(3, 0, "A", "B", "C", "D", "E", "F")
	addRound(tour,
		played("A", "B", models.ResultWin1),
		played("C", "D", models.ResultWin1),
		played("E", "F", models.ResultWin1),
	)
	addRound(tour,
		played("A", "C", models.ResultWin1),
		played("E", "B", models.ResultWin1),
		played("D", "F", models.ResultWin1),
	)

	gen := NewSwissGenerator(SwissOptions{NewID: sequentialIDs("m"), SearchBudget: 2})
	matches, err := gen.GeneratePairing(context.Background(), GeneratePairingParams{Tournament: tour, RoundNumber: 3})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"A", "E"}, {"C", "B"}, {"D", "F"}}, seatsOf(matches))
}

func TestSwissGenerator_CancelledContext(t *testing.T) {
	tour := newTestTournament(3, 0, "A", "B", "C", "D")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := newTestSwiss().GeneratePairing(ctx, GeneratePairingParams{Tournament: tour, RoundNumber: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

// Полный швейцарский турнир на 5 участников: каждый получает ровно один бай,
// очки в каждом туре сохраняются.
func TestSwissGenerator_FullEventByeFairnessAndPointsConservation(t *testing.T) {
	ids := []string{"A", "B", "C", "D", "E"}
	tour := newTestTournament(5, 0, ids...)
	gen := newTestSwiss()
	byes := make(map[string]int)

	for round := 1; round <= 5; round++ {
		matches, err := gen.GeneratePairing(context.Background(), GeneratePairingParams{Tournament: tour, RoundNumber: round})
		require.NoError(t, err)
		require.Len(t, matches, 3)

		total := 0
		for i := range matches {
			if matches[i].IsBye() {
				recipient := matches[i].Participant1ID
				for _, id := range ids {
					if id != recipient && byes[id] == 0 {
						assert.Zero(t, byes[recipient], "round %d: %s got a second bye while %s had none", round, recipient, id)
					}
				}
				byes[recipient]++
			} else {
				matches[i].ApplyResult(models.ResultWin1)
			}
			total += matches[i].Points1 + matches[i].Points2
		}
		assert.Equal(t, 3*len(matches), total)
		addRound(tour, matches...)
	}

	for _, id := range ids {
		assert.Equal(t, 1, byes[id], "participant %s", id)
	}
}

func TestSwissGenerator_ByePrefersNeverHadBye(t *testing.T) {
	tour := newTestTournament(3, 0, "A", "B", "C")
	addRound(tour, played("A", "B", models.ResultWin1), bye("C"))

	matches, err := newTestSwiss().GeneratePairing(context.Background(), GeneratePairingParams{Tournament: tour, RoundNumber: 2})
	require.NoError(t, err)
	// C и A по 3 очка, B 0: бай получает B как единственный без бая.
	require.Len(t, matches, 2)
	assert.True(t, matches[1].IsBye())
	assert.Equal(t, "B", matches[1].Participant1ID)
	assert.Equal(t, [2]string{"A", "C"}, seatsOf(matches)[0])
}

func TestSwissGenerator_ShuffleIsReproducibleWithSeed(t *testing.T) {
	ids := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	tour := newTestTournament(3, 0, ids...)
	generate := func() []models.Match {
		gen := NewSwissGenerator(SwissOptions{
			ShuffleFirstRound: true,
			Rand:              rand.New(rand.NewSource(42)),
			NewID:             sequentialIDs("m"),
		})
		matches, err := gen.GeneratePairing(context.Background(), GeneratePairingParams{Tournament: tour, RoundNumber: 1})
		require.NoError(t, err)
		return matches
	}

	first, second := generate(), generate()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("seeded shuffle is not reproducible (-first +second):\n%s", diff)
	}

	seen := make(map[string]bool)
	for _, m := range first {
		seen[m.Participant1ID] = true
		seen[*m.Participant2ID] = true
	}
	assert.Len(t, seen, len(ids))
}

func TestSwissGenerator_NoRepeatsWhenAvoidable(t *testing.T) {
	ids := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	tour := newTestTournament(5, 0, ids...)
	gen := newTestSwiss()
	met := make(map[string]bool)

	for round := 1; round <= 5; round++ {
		matches, err := gen.GeneratePairing(context.Background(), GeneratePairingParams{Tournament: tour, RoundNumber: round})
		require.NoError(t, err)
		for i := range matches {
			key := pairKey(matches[i].Participant1ID, *matches[i].Participant2ID)
			assert.False(t, met[key], "round %d repeats %s", round, key)
			met[key] = true
			// Выше посеянный всегда выигрывает.
			matches[i].ApplyResult(models.ResultWin1)
		}
		addRound(tour, matches...)
	}
}
