package brackets

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"sync"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/samber/lo"
)

// DefaultSearchBudget caps the number of candidate pairs the repeat-free search may try.
const DefaultSearchBudget = 200_000

var errSearchBudgetExceeded = errors.New("swiss pairing search budget exceeded")

type SwissOptions struct {
	// ShuffleFirstRound рассаживает участников случайно в первом туре.
	ShuffleFirstRound bool
	// Rand is owned by the generator after construction; access is serialized internally.
	Rand              *rand.Rand
	NewID             IDFunc
	SearchBudget      int
}

type SwissGenerator struct {
	opts SwissOptions

	randMu sync.Mutex // *rand.Rand не потокобезопасен
}

func NewSwissGenerator(opts SwissOptions) *SwissGenerator {
	if opts.NewID == nil {
		opts.NewID = defaultID
	}
	if opts.SearchBudget <= 0 {
		opts.SearchBudget = DefaultSearchBudget
	}
	return &SwissGenerator{opts: opts}
}

func (g *SwissGenerator) GetName() string {
	return "Swiss"
}

// GeneratePairing pairs active participants by current points. The bye (odd count) goes to
// the lowest-ranked participant who has not had one yet, or to the lowest-ranked overall when
// everybody has. Pairing prefers a repeat-free assignment; when none exists the greedy rule
// pairs with the next free participant regardless of history.
func (g *SwissGenerator) GeneratePairing(ctx context.Context, params GeneratePairingParams) ([]models.Match, error) {
	t := params.Tournament
	if !t.IsSwissRound(params.RoundNumber) {
		return nil, ErrNotSwissRound
	}

	active := t.ActiveParticipantIDs()
	if len(active) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	tallies := tallyRounds(t, params.RoundNumber-1)
	ordered := g.seed(active, tallies, params.RoundNumber)

	byeID := ""
	if len(ordered)%2 == 1 {
		byeID = pickByeRecipient(ordered, tallies)
		ordered = lo.Without(ordered, byeID)
	}

	pairs, err := pairWithoutRepeats(ctx, ordered, tallies, g.opts.SearchBudget)
	switch {
	case errors.Is(err, errSearchBudgetExceeded):
		pairs = pairGreedy(ordered, tallies)
	case err != nil:
		return nil, err
	case pairs == nil:
		pairs = pairGreedy(ordered, tallies)
	}

	matches := make([]models.Match, 0, len(pairs)+1)
	for i, p := range pairs {
		matches = append(matches, newPairMatch(g.opts.NewID(), p[0], p[1], i+1))
	}
	if byeID != "" {
		matches = append(matches, models.NewByeMatch(g.opts.NewID(), byeID))
	}
	return matches, nil
}

// seed orders participants by points, keeping roster order within a score group.
func (g *SwissGenerator) seed(active []string, tallies map[string]*participantTally, roundNumber int) []string {
	ordered := slices.Clone(active)
	if roundNumber == 1 && g.opts.ShuffleFirstRound {
		g.shuffle(ordered)
	}
	slices.SortStableFunc(ordered, func(a, b string) int {
		return tallies[b].points - tallies[a].points
	})
	return ordered
}

// shuffle permutes ids with the configured source, or the global one when none is set.
func (g *SwissGenerator) shuffle(ids []string) {
	swap := func(i, j int) { ids[i], ids[j] = ids[j], ids[i] }
	if g.opts.Rand == nil {
		rand.Shuffle(len(ids), swap)
		return
	}
	g.randMu.Lock()
	defer g.randMu.Unlock()
	g.opts.Rand.Shuffle(len(ids), swap)
}

// pickByeRecipient scans from the bottom of the ranking, so among equal candidates the
// lower-ranked one wins.
func pickByeRecipient(ordered []string, tallies map[string]*participantTally) string {
	for i := len(ordered) - 1; i >= 0; i-- {
		if tallies[ordered[i]].byes == 0 {
			return ordered[i]
		}
	}
	return ordered[len(ordered)-1]
}

// pairWithoutRepeats is a depth-first search over pairings of ordered. Its first branch is
// exactly the greedy choice, so when greedy finds a repeat-free pairing the result is the same.
// Returns nil pairs when no repeat-free pairing exists.
func pairWithoutRepeats(ctx context.Context, ordered []string, tallies map[string]*participantTally, budget int) ([][2]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	used := make([]bool, len(ordered))
	pairs := make([][2]string, 0, len(ordered)/2)
	steps := 0

	var solve func() (bool, error)
	solve = func() (bool, error) {
		first := slices.Index(used, false)
		if first == -1 {
			return true, nil
		}
		used[first] = true
		for j := first + 1; j < len(ordered); j++ {
			if used[j] || tallies[ordered[first]].hasPlayed(ordered[j]) {
				continue
			}
			steps++
			if steps > budget {
				return false, errSearchBudgetExceeded
			}
			if steps%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return false, err
				}
			}
			used[j] = true
			pairs = append(pairs, [2]string{ordered[first], ordered[j]})
			ok, err := solve()
			if err != nil || ok {
				return ok, err
			}
			pairs = pairs[:len(pairs)-1]
			used[j] = false
		}
		used[first] = false
		return false, nil
	}

	ok, err := solve()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return pairs, nil
}

// pairGreedy: для каждого свободного участника берём первого свободного соперника, с которым
// он ещё не играл, иначе просто следующего свободного.
func pairGreedy(ordered []string, tallies map[string]*participantTally) [][2]string {
	paired := make([]bool, len(ordered))
	pairs := make([][2]string, 0, len(ordered)/2)
	for i := range ordered {
		if paired[i] {
			continue
		}
		partner := -1
		for j := i + 1; j < len(ordered); j++ {
			if paired[j] {
				continue
			}
			if partner == -1 {
				partner = j
			}
			if !tallies[ordered[i]].hasPlayed(ordered[j]) {
				partner = j
				break
			}
		}
		if partner == -1 {
			break
		}
		paired[i], paired[partner] = true, true
		pairs = append(pairs, [2]string{ordered[i], ordered[partner]})
	}
	return pairs
}
