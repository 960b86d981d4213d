package services

import (
	"cmp"
	"math"
	"slices"

	"github.com/Dosada05/swiss-tournament/models"
)

// ExpectedScore is the Elo win expectancy of a player rated r1 against r2.
func ExpectedScore(r1, r2 int) float64 {
	return 1 / (1 + math.Pow(10, float64(r2-r1)/400))
}

// roundHalfUp rounds .5 toward positive infinity, so -7.5 becomes -7.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// eloDelta returns the rating change of the first player for actual score s (1, 0.5, 0).
func eloDelta(k, r1, r2 int, s float64) int {
	return roundHalfUp(float64(k) * (s - ExpectedScore(r1, r2)))
}

func scores(result models.MatchResult) (float64, float64) {
	switch result {
	case models.ResultWin1:
		return 1, 0
	case models.ResultWin2:
		return 0, 1
	default:
		return 0.5, 0.5
	}
}

type ratingRecord struct {
	before models.Player
	rating int
	wins   int
	losses int
	draws  int
}

// replayRatings walks the rounds in ascending order and applies an Elo update per match
// using each side's rating as of that match. Byes only count as a win. Ratings never go
// below zero.
func (e *Engine) replayRatings(t *models.Tournament, roster []models.Player) models.RatingAdjustment {
	known := make(map[string]models.Player, len(roster))
	for _, p := range roster {
		known[p.ID] = p
	}

	records := make(map[string]*ratingRecord, len(t.ParticipantIDs))
	record := func(id string) *ratingRecord {
		r, ok := records[id]
		if !ok {
			p, found := known[id]
			if !found {
				p = models.Player{ID: id, Name: id, Rating: e.cfg.DefaultRating}
			}
			r = &ratingRecord{before: p, rating: p.Rating}
			records[id] = r
		}
		return r
	}
	for _, id := range t.ParticipantIDs {
		record(id)
	}

	rounds := slices.SortedFunc(slices.Values(t.Rounds), func(a, b models.Round) int {
		return cmp.Compare(a.Number, b.Number)
	})

	var changes []models.MatchRatingChange
	for _, round := range rounds {
		for _, m := range round.Matches {
			p1 := record(m.Participant1ID)
			if m.IsBye() {
				p1.wins++
				continue
			}
			if !m.HasResult() {
				continue
			}
			p2 := record(*m.Participant2ID)

			s1, s2 := scores(m.Result)
			r1, r2 := p1.rating, p2.rating
			p1.rating = max(0, r1+eloDelta(e.cfg.KFactor, r1, r2, s1))
			p2.rating = max(0, r2+eloDelta(e.cfg.KFactor, r2, r1, s2))

			switch m.Result {
			case models.ResultWin1:
				p1.wins++
				p2.losses++
			case models.ResultWin2:
				p1.losses++
				p2.wins++
			case models.ResultDraw:
				p1.draws++
				p2.draws++
			}

			changes = append(changes, models.MatchRatingChange{
				RoundNumber: round.Number,
				MatchID:     m.ID,
				Change1:     p1.rating - r1,
				Change2:     p2.rating - r2,
			})
		}
	}

	updates := make([]models.PlayerRatingUpdate, 0, len(t.ParticipantIDs))
	for _, id := range t.ParticipantIDs {
		r := records[id]
		updates = append(updates, models.PlayerRatingUpdate{
			PlayerID:          id,
			Name:              r.before.Name,
			RatingBefore:      r.before.Rating,
			Rating:            r.rating,
			Delta:             r.rating - r.before.Rating,
			TournamentsPlayed: r.before.TournamentsPlayed + 1,
			Wins:              r.before.Wins + r.wins,
			Losses:            r.before.Losses + r.losses,
			Draws:             r.before.Draws + r.draws,
			TournamentWins:    r.wins,
			TournamentLosses:  r.losses,
			TournamentDraws:   r.draws,
		})
	}

	return models.RatingAdjustment{
		TournamentID: t.ID,
		Updates:      updates,
		MatchChanges: changes,
	}
}
