package services

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	n := 0
	return NewEngine(EngineConfig{
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
		Now: func() time.Time { return testNow },
	})
}

func testRoster(ids ...string) []models.Player {
	roster := make([]models.Player, 0, len(ids))
	for _, id := range ids {
		roster = append(roster, models.Player{ID: id, Name: "Player " + id, Rating: models.DefaultRating})
	}
	return roster
}

func pair(id, p1, p2 string) models.Match {
	return models.Match{ID: id, Participant1ID: p1, Participant2ID: &p2}
}

func byeFor(id, p string) models.Match {
	return models.Match{ID: id, Participant1ID: p}
}

// recordAll fills every open match of the current round with result.
func recordAll(t *testing.T, e *Engine, tour models.Tournament, result models.MatchResult) models.Tournament {
	t.Helper()
	round := tour.LastRound()
	require.NotNil(t, round)
	for _, m := range round.Matches {
		if m.IsBye() {
			continue
		}
		var err error
		tour, err = e.RecordMatchResult(tour, round.ID, m.ID, result)
		require.NoError(t, err)
	}
	return tour
}

func TestEngine_NewTournament(t *testing.T) {
	e := newTestEngine()

	tour, err := e.NewTournament("  Spring Open ", []string{"A", "B"}, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, "Spring Open", tour.Name)
	assert.Equal(t, models.StatusDraft, tour.Status)
	assert.Equal(t, 0, tour.CurrentRoundNumber)
	assert.Equal(t, testNow, tour.CreatedAt)

	_, err = e.NewTournament("", []string{"A"}, 3, 0)
	assert.ErrorIs(t, err, ErrTournamentNameRequired)

	_, err = e.NewTournament("X", []string{"A"}, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidRoundCounts)

	_, err = e.NewTournament("X", []string{"A"}, -1, 2)
	assert.ErrorIs(t, err, ErrInvalidRoundCounts)

	_, err = e.NewTournament("X", []string{"A", "B", "A"}, 3, 0)
	assert.ErrorIs(t, err, ErrDuplicateParticipant)
}

// Пять участников, три тура швейцарки: 2 матча + бай, следующий тур только после
// завершения текущего.
func TestEngine_FivePlayerSwissFlow(t *testing.T) {
	e := newTestEngine()
	ids := []string{"A", "B", "C", "D", "E"}
	roster := testRoster(ids...)
	tour, err := e.NewTournament("Weekly", ids, 3, 0)
	require.NoError(t, err)

	tour, err = e.CreateNextRound(context.Background(), tour, roster)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, tour.Status)
	assert.Equal(t, 1, tour.CurrentRoundNumber)

	round := tour.LastRound()
	require.NotNil(t, round)
	require.Len(t, round.Matches, 3)
	byes := 0
	for _, m := range round.Matches {
		if m.IsBye() {
			byes++
			assert.Equal(t, models.ResultWin1, m.Result)
		}
	}
	assert.Equal(t, 1, byes)
	assert.False(t, round.IsCompleted)

	_, err = e.CreateNextRound(context.Background(), tour, roster)
	assert.ErrorIs(t, err, ErrRoundNotCompleted)

	tour, err = e.RecordMatchResult(tour, round.ID, round.Matches[0].ID, models.ResultWin1)
	require.NoError(t, err)
	assert.False(t, tour.LastRound().IsCompleted)
	tour, err = e.RecordMatchResult(tour, round.ID, round.Matches[1].ID, models.ResultDraw)
	require.NoError(t, err)
	assert.True(t, tour.LastRound().IsCompleted)

	standings := e.CalculateStandings(tour, roster, false)
	require.Len(t, standings, 5)
	points := make(map[string]int)
	total := 0
	for _, s := range standings {
		points[s.ParticipantID] = s.Points
		total += s.Points
	}
	// 3 (победа) + 2 (ничья) + 3 (бай)
	assert.Equal(t, 8, total)
	assert.Equal(t, 3, points["A"])
	assert.Equal(t, 0, points["B"])
	assert.Equal(t, 1, points["C"])
	assert.Equal(t, 1, points["D"])
	assert.Equal(t, 3, points["E"])

	tour, err = e.CreateNextRound(context.Background(), tour, roster)
	require.NoError(t, err)
	assert.Equal(t, 2, tour.CurrentRoundNumber)
	// E уже получил бай в первом туре.
	for _, m := range tour.LastRound().Matches {
		if m.IsBye() {
			assert.NotEqual(t, "E", m.Participant1ID)
		}
	}
}

func TestEngine_OperationsDoNotMutateInput(t *testing.T) {
	e := newTestEngine()
	tour, err := e.NewTournament("Cup", []string{"A", "B"}, 1, 0)
	require.NoError(t, err)
	tour, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "B")})
	require.NoError(t, err)

	updated, err := e.RecordMatchResult(tour, tour.Rounds[0].ID, "m1", models.ResultWin2)
	require.NoError(t, err)
	assert.Equal(t, models.ResultWin2, updated.Rounds[0].Matches[0].Result)
	assert.Equal(t, models.ResultUnset, tour.Rounds[0].Matches[0].Result)
	assert.False(t, tour.Rounds[0].IsCompleted)

	_, err = e.ToggleDrop(tour, "A")
	require.NoError(t, err)
	assert.Empty(t, tour.DroppedParticipantIDs)
}

func TestEngine_RecordMatchResultGuards(t *testing.T) {
	e := newTestEngine()
	tour, err := e.NewTournament("Cup", []string{"A", "B", "C"}, 2, 0)
	require.NoError(t, err)
	tour, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "B"), byeFor("m2", "C")})
	require.NoError(t, err)
	firstRound := tour.Rounds[0].ID

	_, err = e.RecordMatchResult(tour, firstRound, "m2", models.ResultWin2)
	assert.ErrorIs(t, err, ErrByeImmutable)

	_, err = e.RecordMatchResult(tour, firstRound, "m1", models.MatchResult("forfeit"))
	assert.ErrorIs(t, err, ErrInvalidResult)

	_, err = e.RecordMatchResult(tour, firstRound, "nope", models.ResultWin1)
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = e.RecordMatchResult(tour, "nope", "m1", models.ResultWin1)
	assert.ErrorIs(t, err, ErrRoundNotFound)

	tour, err = e.RecordMatchResult(tour, firstRound, "m1", models.ResultWin1)
	require.NoError(t, err)

	// Сброс результата снова открывает тур.
	reopened, err := e.RecordMatchResult(tour, firstRound, "m1", models.ResultUnset)
	require.NoError(t, err)
	assert.False(t, reopened.LastRound().IsCompleted)
	assert.Equal(t, 0, reopened.LastRound().Matches[0].Points1)

	tour, err = e.CreateRound(tour, []models.Match{pair("m3", "A", "C"), byeFor("m4", "B")})
	require.NoError(t, err)

	_, err = e.RecordMatchResult(tour, firstRound, "m1", models.ResultWin2)
	assert.ErrorIs(t, err, ErrRoundNotCurrent)
}

func TestEngine_DrawRejectedInElimination(t *testing.T) {
	e := newTestEngine()
	tour, err := e.NewTournament("Cup", []string{"A", "B"}, 1, 1)
	require.NoError(t, err)
	tour, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "B")})
	require.NoError(t, err)
	tour = recordAll(t, e, tour, models.ResultDraw)

	tour, err = e.CreateNextRound(context.Background(), tour, testRoster("A", "B"))
	require.NoError(t, err)
	round := tour.LastRound()
	require.Len(t, round.Matches, 1)

	_, err = e.RecordMatchResult(tour, round.ID, round.Matches[0].ID, models.ResultDraw)
	assert.ErrorIs(t, err, ErrDrawNotAllowed)
}

func TestEngine_CreateRoundGuards(t *testing.T) {
	e := newTestEngine()
	tour, err := e.NewTournament("Cup", []string{"A", "B", "C", "D"}, 1, 0)
	require.NoError(t, err)

	_, err = e.CreateRound(tour, nil)
	assert.ErrorIs(t, err, ErrEmptyPairings)

	_, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "B"), pair("m2", "C", "A")})
	assert.ErrorIs(t, err, ErrDuplicateParticipant)

	_, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "B")})
	assert.ErrorIs(t, err, ErrMissingParticipant)

	_, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "B"), pair("m2", "C", "")})
	assert.ErrorIs(t, err, ErrIncompleteSeat)

	_, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "B"), pair("m2", "C", "Z")})
	assert.ErrorIs(t, err, ErrUnknownParticipant)

	_, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "B"), byeFor("m2", "C"), byeFor("m3", "D")})
	assert.ErrorIs(t, err, ErrTooManyByes)

	tour, err = e.CreateRound(tour, []models.Match{pair("m1", "D", "C"), pair("m2", "B", "A")})
	require.NoError(t, err)
	require.Len(t, tour.Rounds, 1)
	assert.Equal(t, 1, *tour.Rounds[0].Matches[0].TableNumber)
	assert.Equal(t, 2, *tour.Rounds[0].Matches[1].TableNumber)

	tour = recordAll(t, e, tour, models.ResultWin1)
	_, err = e.CreateRound(tour, []models.Match{pair("m3", "A", "D"), pair("m4", "B", "C")})
	assert.ErrorIs(t, err, ErrRoundLimitReached)
}

func TestEngine_MatchIDsUniqueWithinTournament(t *testing.T) {
	e := newTestEngine()
	tour, err := e.NewTournament("Cup", []string{"A", "B", "C", "D"}, 2, 0)
	require.NoError(t, err)

	_, err = e.CreateRound(tour, []models.Match{pair("x", "A", "B"), pair("x", "C", "D")})
	assert.ErrorIs(t, err, ErrDuplicateMatchID)

	tour, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "B"), pair("m2", "C", "D")})
	require.NoError(t, err)
	tour = recordAll(t, e, tour, models.ResultWin1)

	_, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "C"), pair("m3", "B", "D")})
	assert.ErrorIs(t, err, ErrDuplicateMatchID)

	tour, err = e.CreateRound(tour, []models.Match{pair("m3", "A", "C"), pair("m4", "B", "D")})
	require.NoError(t, err)
	roundID := tour.LastRound().ID

	// Собственные id заменяемого тура можно переиспользовать.
	replaced, err := e.ReplacePairings(tour, roundID, []models.Match{pair("m4", "A", "D"), pair("m3", "B", "C")})
	require.NoError(t, err)
	assert.Equal(t, "m4", replaced.LastRound().Matches[0].ID)

	_, err = e.ReplacePairings(tour, roundID, []models.Match{pair("m2", "A", "D"), pair("m5", "B", "C")})
	assert.ErrorIs(t, err, ErrDuplicateMatchID)

	// Без id матчи получают сгенерированные и все результаты записываются.
	tour, err = e.ReplacePairings(tour, roundID, []models.Match{pair("", "A", "D"), pair("", "B", "C")})
	require.NoError(t, err)
	tour = recordAll(t, e, tour, models.ResultWin2)
	assert.True(t, tour.LastRound().IsCompleted)
}

func TestEngine_ReplacePairings(t *testing.T) {
	e := newTestEngine()
	tour, err := e.NewTournament("Cup", []string{"A", "B", "C", "D"}, 2, 0)
	require.NoError(t, err)
	tour, err = e.CreateNextRound(context.Background(), tour, testRoster("A", "B", "C", "D"))
	require.NoError(t, err)
	roundID := tour.LastRound().ID

	_, err = e.ReplacePairings(tour, roundID, []models.Match{pair("x1", "A", "C"), pair("x2", "A", "D")})
	assert.ErrorIs(t, err, ErrDuplicateParticipant)

	_, err = e.ReplacePairings(tour, roundID, []models.Match{pair("x1", "A", "C")})
	assert.ErrorIs(t, err, ErrMissingParticipant)

	replaced, err := e.ReplacePairings(tour, roundID, []models.Match{pair("x1", "A", "C"), pair("x2", "B", "D")})
	require.NoError(t, err)
	matches := replaced.LastRound().Matches
	require.Len(t, matches, 2)
	assert.Equal(t, "x1", matches[0].ID)
	assert.Equal(t, "C", *matches[0].Participant2ID)
	assert.Equal(t, roundID, replaced.LastRound().ID)

	done := recordAll(t, e, replaced, models.ResultWin1)
	_, err = e.ReplacePairings(done, roundID, []models.Match{pair("x1", "A", "B"), pair("x2", "C", "D")})
	assert.ErrorIs(t, err, ErrRoundAlreadyCompleted)
}

func TestEngine_DeleteLastRound(t *testing.T) {
	e := newTestEngine()
	tour, err := e.NewTournament("Cup", []string{"A", "B"}, 1, 0)
	require.NoError(t, err)

	_, err = e.DeleteLastRound(tour)
	assert.ErrorIs(t, err, ErrNoRounds)

	tour, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "B")})
	require.NoError(t, err)
	tour = recordAll(t, e, tour, models.ResultWin1)
	tour, err = e.FinishTournament(tour)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tour.Status)

	// Redo the last round: completed goes back to active, then to draft.
	redo, err := e.DeleteLastRound(tour)
	require.NoError(t, err)
	assert.Equal(t, 0, redo.CurrentRoundNumber)
	assert.Empty(t, redo.Rounds)
	assert.Equal(t, models.StatusDraft, redo.Status)

	confirmed, _, err := e.ConfirmTournament(tour, testRoster("A", "B"))
	require.NoError(t, err)
	_, err = e.DeleteLastRound(confirmed)
	assert.ErrorIs(t, err, ErrTournamentAlreadyConfirmed)
}

func TestEngine_FinishTournament(t *testing.T) {
	e := newTestEngine()
	tour, err := e.NewTournament("Cup", []string{"A", "B"}, 2, 0)
	require.NoError(t, err)
	tour, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "B")})
	require.NoError(t, err)

	_, err = e.FinishTournament(tour)
	assert.ErrorIs(t, err, ErrTournamentUnfinished)

	tour = recordAll(t, e, tour, models.ResultWin1)
	tour, err = e.CreateRound(tour, []models.Match{pair("m2", "B", "A")})
	require.NoError(t, err)

	_, err = e.FinishTournament(tour)
	assert.ErrorIs(t, err, ErrRoundNotCompleted)

	tour = recordAll(t, e, tour, models.ResultWin1)
	finished, err := e.FinishTournament(tour)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, finished.Status)

	again, err := e.FinishTournament(finished)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, again.Status)

	_, err = e.RecordMatchResult(finished, finished.LastRound().ID, "m2", models.ResultWin2)
	assert.ErrorIs(t, err, ErrTournamentNotActive)
}

func TestEngine_ConfirmTournamentOnlyOnce(t *testing.T) {
	e := newTestEngine()
	roster := testRoster("A", "B")
	tour, err := e.NewTournament("Cup", []string{"A", "B"}, 1, 0)
	require.NoError(t, err)
	tour, err = e.CreateRound(tour, []models.Match{pair("m1", "A", "B")})
	require.NoError(t, err)
	tour = recordAll(t, e, tour, models.ResultWin1)

	_, _, err = e.ConfirmTournament(tour, roster)
	assert.ErrorIs(t, err, ErrTournamentNotCompleted)

	tour, err = e.FinishTournament(tour)
	require.NoError(t, err)

	confirmed, adjustment, err := e.ConfirmTournament(tour, roster)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	require.Len(t, adjustment.Updates, 2)
	assert.Equal(t, 1216, adjustment.Updates[0].Rating)
	assert.Equal(t, 1184, adjustment.Updates[1].Rating)

	m := confirmed.Rounds[0].Matches[0]
	require.NotNil(t, m.RatingChange1)
	require.NotNil(t, m.RatingChange2)
	assert.Equal(t, 16, *m.RatingChange1)
	assert.Equal(t, -16, *m.RatingChange2)

	again, second, err := e.ConfirmTournament(confirmed, roster)
	assert.ErrorIs(t, err, ErrTournamentAlreadyConfirmed)
	assert.Empty(t, second.Updates)
	assert.Empty(t, again.ID)

	_, err = e.CreateNextRound(context.Background(), confirmed, roster)
	assert.ErrorIs(t, err, ErrTournamentAlreadyConfirmed)
}

func TestEngine_ToggleDropExcludesFromPairing(t *testing.T) {
	e := newTestEngine()
	ids := []string{"A", "B", "C", "D"}
	tour, err := e.NewTournament("Cup", ids, 3, 0)
	require.NoError(t, err)

	_, err = e.ToggleDrop(tour, "Z")
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	tour, err = e.ToggleDrop(tour, "D")
	require.NoError(t, err)
	assert.Equal(t, []string{"D"}, tour.DroppedParticipantIDs)

	matches, err := e.GeneratePairing(context.Background(), tour, testRoster(ids...))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.False(t, m.Involves("D"))
	}

	tour, err = e.ToggleDrop(tour, "D")
	require.NoError(t, err)
	assert.Empty(t, tour.DroppedParticipantIDs)
}

func TestEngine_NotEnoughParticipants(t *testing.T) {
	e := newTestEngine()
	tour, err := e.NewTournament("Cup", []string{"A"}, 1, 0)
	require.NoError(t, err)

	_, err = e.CreateNextRound(context.Background(), tour, testRoster("A"))
	assert.ErrorIs(t, err, brackets.ErrNotEnoughParticipants)
}

func TestEngine_ParticipantsEditableOnlyInDraft(t *testing.T) {
	e := newTestEngine()
	tour, err := e.NewTournament("Cup", []string{"A", "B"}, 1, 0)
	require.NoError(t, err)

	tour, err = e.AddParticipant(tour, "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, tour.ParticipantIDs)

	_, err = e.AddParticipant(tour, "C")
	assert.ErrorIs(t, err, ErrParticipantAlreadyRegistered)

	tour, err = e.RemoveParticipant(tour, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, tour.ParticipantIDs)

	_, err = e.RemoveParticipant(tour, "A")
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	tour, err = e.CreateRound(tour, []models.Match{pair("m1", "B", "C")})
	require.NoError(t, err)

	_, err = e.AddParticipant(tour, "D")
	assert.ErrorIs(t, err, ErrTournamentNotDraft)
}

// Швейцарка на 4 + топ-4: полный цикл до подтверждения.
func TestEngine_SwissIntoEliminationFlow(t *testing.T) {
	e := newTestEngine()
	ids := []string{"A", "B", "C", "D"}
	roster := testRoster(ids...)
	tour, err := e.NewTournament("Championship", ids, 2, 2)
	require.NoError(t, err)

	for i := 0; i < tour.TotalRounds(); i++ {
		tour, err = e.CreateNextRound(context.Background(), tour, roster)
		require.NoError(t, err)
		tour = recordAll(t, e, tour, models.ResultWin1)
	}
	assert.Equal(t, 4, tour.CurrentRoundNumber)

	_, err = e.CreateNextRound(context.Background(), tour, roster)
	assert.ErrorIs(t, err, ErrRoundLimitReached)

	assert.Len(t, tour.Rounds[2].Matches, 2)
	assert.Len(t, tour.Rounds[3].Matches, 1)
	assert.Equal(t, "Semifinal", brackets.RoundName(&tour, 3))
	assert.Equal(t, "Final", brackets.RoundName(&tour, 4))

	standings := e.CalculateStandings(tour, roster, false)
	final := tour.Rounds[3].Matches[0]
	assert.Equal(t, final.WinnerID(), standings[0].ParticipantID)
	assert.True(t, standings[0].StillInBracket)

	tour, err = e.FinishTournament(tour)
	require.NoError(t, err)
	tour, adjustment, err := e.ConfirmTournament(tour, roster)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, tour.Status)
	assert.Len(t, adjustment.MatchChanges, 7)

	sum := 0
	for _, u := range adjustment.Updates {
		assert.Equal(t, 1, u.TournamentsPlayed)
		assert.Equal(t, u.TournamentWins+u.TournamentLosses+u.TournamentDraws, u.Wins+u.Losses+u.Draws)
		sum += u.Delta
	}
	// Для равной стартовой силы изменения симметричны только до округления.
	assert.InDelta(t, 0, sum, float64(len(adjustment.MatchChanges)))
}

// Один Engine обслуживает все турниры процесса; общий источник случайности не должен гоняться.
func TestEngine_ConcurrentShuffledFirstRounds(t *testing.T) {
	e := NewEngine(EngineConfig{ShuffleFirstRound: true, Rand: rand.New(rand.NewSource(7))})
	ids := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	roster := testRoster(ids...)

	const workers = 8
	tours := make([]models.Tournament, workers)
	for i := range tours {
		var err error
		tours[i], err = e.NewTournament(fmt.Sprintf("Cup %d", i), ids, 3, 0)
		require.NoError(t, err)
	}

	results := make([][]models.Match, workers)
	var g errgroup.Group
	for i := range tours {
		g.Go(func() error {
			var err error
			results[i], err = e.GeneratePairing(context.Background(), tours[i], roster)
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, matches := range results {
		require.Len(t, matches, 4)
		seated := make([]string, 0, len(ids))
		for _, m := range matches {
			seated = append(seated, m.Participant1ID, *m.Participant2ID)
		}
		assert.ElementsMatch(t, ids, seated)
	}
}
