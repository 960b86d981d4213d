package brackets

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/Dosada05/swiss-tournament/models"
)

// OlympicGenerator builds the single-elimination top that follows the swiss stage.
type OlympicGenerator struct {
	newID IDFunc
}

func NewOlympicGenerator(newID IDFunc) *OlympicGenerator {
	if newID == nil {
		newID = defaultID
	}
	return &OlympicGenerator{newID: newID}
}

func (g *OlympicGenerator) GetName() string {
	return "Olympic"
}

func (g *OlympicGenerator) GeneratePairing(ctx context.Context, params GeneratePairingParams) ([]models.Match, error) {
	t := params.Tournament
	if !t.IsEliminationRound(params.RoundNumber) {
		return nil, ErrNotEliminationRound
	}
	if params.RoundNumber == t.SwissRoundCount+1 {
		return g.firstRound(t, params.Roster)
	}
	return g.nextRound(t, params.RoundNumber)
}

// BracketSize is the number of seeds taken into the first elimination round:
// 2^eliminationRoundCount clipped to the participants available, made even.
func BracketSize(eliminationRoundCount, available int) int {
	size := available
	if eliminationRoundCount < 30 {
		size = min(1<<eliminationRoundCount, available)
	}
	if size%2 == 1 {
		size--
	}
	return size
}

// firstRound сеет топ по итоговой таблице швейцарки: 1-N, 2-(N-1), ...
func (g *OlympicGenerator) firstRound(t *models.Tournament, roster []models.Player) ([]models.Match, error) {
	standings := CalculateStandings(t, roster, StandingsOptions{MaxRoundNumber: t.SwissRoundCount})

	size := BracketSize(t.EliminationRoundCount, len(standings))
	if size < 2 {
		return nil, ErrNotEnoughParticipants
	}

	seeds := make([]string, size)
	for i := range seeds {
		seeds[i] = standings[i].ParticipantID
	}
	return g.seedPairs(seeds, 1), nil
}

func (g *OlympicGenerator) nextRound(t *models.Tournament, roundNumber int) ([]models.Match, error) {
	idx := slices.IndexFunc(t.Rounds, func(r models.Round) bool { return r.Number == roundNumber-1 })
	if idx == -1 {
		return nil, fmt.Errorf("%w: round %d", ErrPreviousRoundMissing, roundNumber-1)
	}

	prev := slices.Clone(t.Rounds[idx].Matches)
	// Бай без стола идёт первым: его получал сильнейший посев.
	slices.SortStableFunc(prev, func(a, b models.Match) int {
		return cmp.Compare(tableOrder(a), tableOrder(b))
	})

	winners := make([]string, 0, len(prev))
	for i := range prev {
		w := prev[i].WinnerID()
		if w == "" || t.IsDropped(w) {
			continue
		}
		winners = append(winners, w)
	}
	if len(winners) < 2 {
		return nil, ErrNotEnoughWinners
	}

	if len(winners)%2 == 1 {
		matches := g.seedPairs(winners[1:], 1)
		return append(matches, models.NewByeMatch(g.newID(), winners[0])), nil
	}
	return g.seedPairs(winners, 1), nil
}

// seedPairs pairs outer against inner: first vs last, second vs second-last.
func (g *OlympicGenerator) seedPairs(seeds []string, firstTable int) []models.Match {
	n := len(seeds)
	matches := make([]models.Match, 0, n/2)
	for i := 0; i < n/2; i++ {
		matches = append(matches, newPairMatch(g.newID(), seeds[i], seeds[n-1-i], firstTable+i))
	}
	return matches
}

func tableOrder(m models.Match) int {
	if m.TableNumber == nil {
		return 0
	}
	return *m.TableNumber
}
