package brackets

import (
	"cmp"
	"slices"

	"github.com/Dosada05/swiss-tournament/models"
)

// StandingsOptions narrows what CalculateStandings looks at.
type StandingsOptions struct {
	// MaxRoundNumber limits the history to rounds 1..MaxRoundNumber. Zero means every round.
	MaxRoundNumber int
	// IncludeDropped keeps dropped participants in the result (flagged with IsDropped).
	IncludeDropped bool
}

type participantTally struct {
	points    int
	wins      int
	losses    int
	draws     int
	played    int
	byes      int
	opponents []string
}

func (p *participantTally) hasPlayed(opponentID string) bool {
	return slices.Contains(p.opponents, opponentID)
}

type eliminationProgress struct {
	made        bool
	furthest    int
	stillActive bool
}

// tallyRounds accumulates points, records and opponent lists in a single pass over
// the history. Participants that appear in matches but not in the roster are tallied too,
// so their points still feed their opponents' Buchholz.
func tallyRounds(t *models.Tournament, maxRound int) map[string]*participantTally {
	tallies := make(map[string]*participantTally, len(t.ParticipantIDs))
	get := func(id string) *participantTally {
		p, ok := tallies[id]
		if !ok {
			p = &participantTally{}
			tallies[id] = p
		}
		return p
	}
	for _, id := range t.ParticipantIDs {
		get(id)
	}

	for _, round := range t.Rounds {
		if maxRound > 0 && round.Number > maxRound {
			continue
		}
		for _, m := range round.Matches {
			p1 := get(m.Participant1ID)
			if m.IsBye() {
				p1.points += models.PointsWin
				p1.wins++
				p1.byes++
				continue
			}
			if !m.HasResult() {
				continue
			}
			p2ID := *m.Participant2ID
			p2 := get(p2ID)
			pts1, pts2 := m.Result.Points()
			p1.points += pts1
			p2.points += pts2
			p1.played++
			p2.played++
			p1.opponents = append(p1.opponents, p2ID)
			p2.opponents = append(p2.opponents, m.Participant1ID)

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
		}
	}
	return tallies
}

// eliminationProgressOf tracks how far every participant got in the bracket. The
// second return value reports whether any elimination round is part of the history.
func eliminationProgressOf(t *models.Tournament, maxRound int) (map[string]eliminationProgress, bool) {
	progress := make(map[string]eliminationProgress)
	started := false
	for _, round := range t.Rounds {
		if !t.IsEliminationRound(round.Number) || (maxRound > 0 && round.Number > maxRound) {
			continue
		}
		started = true
		for _, m := range round.Matches {
			ids := []string{m.Participant1ID}
			if !m.IsBye() {
				ids = append(ids, *m.Participant2ID)
			}
			winner := m.WinnerID()
			for _, id := range ids {
				active := true
				if m.IsResolved() {
					active = winner == id
				}
				progress[id] = eliminationProgress{made: true, furthest: round.Number, stillActive: active}
			}
		}
	}
	return progress, started
}

// CalculateStandings ranks participants by points, Buchholz, Buchholz-2 and Buchholz-Cut-1.
// Once elimination rounds are in the history, bracket progress dominates: participants who
// reached the bracket come first, then those who got further, then those still alive.
// Remaining ties fall back to display name and id, so the order never depends on the order
// of matches or roster entries.
func CalculateStandings(t *models.Tournament, roster []models.Player, opts StandingsOptions) []models.StandingsEntry {
	tallies := tallyRounds(t, opts.MaxRoundNumber)

	buchholz := make(map[string]int, len(tallies))
	for id, p := range tallies {
		sum := 0
		for _, opp := range p.opponents {
			sum += tallies[opp].points
		}
		buchholz[id] = sum
	}

	names := make(map[string]string, len(roster))
	for _, pl := range roster {
		names[pl.ID] = pl.Name
	}

	progress, eliminationStarted := eliminationProgressOf(t, opts.MaxRoundNumber)

	entries := make([]models.StandingsEntry, 0, len(t.ParticipantIDs))
	for _, id := range t.ParticipantIDs {
		dropped := t.IsDropped(id)
		if dropped && !opts.IncludeDropped {
			continue
		}
		p := tallies[id]

		buchholz2 := 0
		cut1 := buchholz[id]
		if len(p.opponents) > 0 {
			weakest := tallies[p.opponents[0]].points
			for _, opp := range p.opponents {
				buchholz2 += buchholz[opp]
				weakest = min(weakest, tallies[opp].points)
			}
			cut1 -= weakest
		}

		name := names[id]
		if name == "" {
			name = id
		}
		ep := progress[id]
		entries = append(entries, models.StandingsEntry{
			ParticipantID:    id,
			Name:             name,
			Points:           p.points,
			Buchholz:         buchholz[id],
			Buchholz2:        buchholz2,
			BuchholzCut1:     cut1,
			Wins:             p.wins,
			Losses:           p.losses,
			Draws:            p.draws,
			MatchesPlayed:    p.played,
			Byes:             p.byes,
			IsDropped:        dropped,
			MadeElimination:  ep.made,
			EliminationRound: ep.furthest,
			StillInBracket:   ep.made && ep.stillActive,
		})
	}

	slices.SortFunc(entries, func(a, b models.StandingsEntry) int {
		if eliminationStarted {
			if c := compareBool(a.MadeElimination, b.MadeElimination); c != 0 {
				return c
			}
			if a.MadeElimination && b.MadeElimination {
				if c := cmp.Compare(b.EliminationRound, a.EliminationRound); c != 0 {
					return c
				}
				if c := compareBool(a.StillInBracket, b.StillInBracket); c != 0 {
					return c
				}
			}
		}
		return compareSwiss(a, b)
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func compareSwiss(a, b models.StandingsEntry) int {
	if c := cmp.Compare(b.Points, a.Points); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Buchholz, a.Buchholz); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Buchholz2, a.Buchholz2); c != 0 {
		return c
	}
	if c := cmp.Compare(b.BuchholzCut1, a.BuchholzCut1); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ParticipantID, b.ParticipantID)
}

// compareBool orders true before false.
func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}
