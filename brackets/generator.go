package brackets

import (
	"context"
	"errors"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/google/uuid"
)

var (
	ErrNotEnoughParticipants = errors.New("not enough active participants to generate pairings (minimum 2)")
	ErrNotEnoughWinners      = errors.New("not enough winners in the previous round to continue the elimination bracket")
	ErrPreviousRoundMissing  = errors.New("previous elimination round not found")
	ErrNotEliminationRound   = errors.New("round number is outside the elimination stage")
	ErrNotSwissRound         = errors.New("round number is outside the swiss stage")
)

// GeneratePairingParams is the snapshot a generator reads. Generators never modify it.
type GeneratePairingParams struct {
	Tournament *models.Tournament
	// Roster supplies display names used as a deterministic tie-break.
	Roster      []models.Player
	RoundNumber int
}

// PairingGenerator produces the match list of the next round.
type PairingGenerator interface {
	GeneratePairing(ctx context.Context, params GeneratePairingParams) ([]models.Match, error)

	GetName() string
}

// IDFunc generates identifiers for new records.
type IDFunc func() string

func defaultID() string {
	return uuid.NewString()
}

func tableNumber(n int) *int {
	return &n
}

func strPtr(s string) *string {
	return &s
}

func newPairMatch(id, p1, p2 string, table int) models.Match {
	return models.Match{
		ID:             id,
		Participant1ID: p1,
		Participant2ID: strPtr(p2),
		TableNumber:    tableNumber(table),
		Result:         models.ResultUnset,
	}
}
