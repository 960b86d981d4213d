package models

import (
	"slices"
	"time"
)

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusDraft     TournamentStatus = "draft"
	StatusActive    TournamentStatus = "active"
	StatusCompleted TournamentStatus = "completed"
	StatusConfirmed TournamentStatus = "confirmed"
)

func (s TournamentStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusCompleted, StatusConfirmed:
		return true
	}
	return false
}

// Tournament представляет турнир: швейцарская часть плюс опциональный олимпийский топ.
// Rounds are append-only and gapless; the last element is always the current round.
type Tournament struct {
	ID                    string           `json:"id" db:"id"`
	Name                  string           `json:"name" db:"name"`
	ParticipantIDs        []string         `json:"participant_ids" db:"participant_ids"`
	SwissRoundCount       int              `json:"swiss_round_count" db:"swiss_round_count"`
	EliminationRoundCount int              `json:"elimination_round_count" db:"elimination_round_count"`
	CurrentRoundNumber    int              `json:"current_round_number" db:"current_round_number"`
	DroppedParticipantIDs []string         `json:"dropped_participant_ids" db:"dropped_participant_ids"`
	Status                TournamentStatus `json:"status" db:"status"`
	CreatedAt             time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at" db:"updated_at"`
	ConfirmedAt           *time.Time       `json:"confirmed_at,omitempty" db:"confirmed_at"`

	Rounds []Round `json:"rounds" db:"-"`
}

// TotalRounds is the number of rounds the tournament is scheduled to play.
func (t *Tournament) TotalRounds() int {
	return t.SwissRoundCount + t.EliminationRoundCount
}

func (t *Tournament) IsSwissRound(number int) bool {
	return number >= 1 && number <= t.SwissRoundCount
}

func (t *Tournament) IsEliminationRound(number int) bool {
	return number > t.SwissRoundCount && number <= t.TotalRounds()
}

// LastRound returns the current round or nil when no round has been created yet.
func (t *Tournament) LastRound() *Round {
	if len(t.Rounds) == 0 {
		return nil
	}
	return &t.Rounds[len(t.Rounds)-1]
}

func (t *Tournament) RoundByID(id string) (int, *Round) {
	for i := range t.Rounds {
		if t.Rounds[i].ID == id {
			return i, &t.Rounds[i]
		}
	}
	return -1, nil
}

func (t *Tournament) HasParticipant(id string) bool {
	return slices.Contains(t.ParticipantIDs, id)
}

func (t *Tournament) IsDropped(id string) bool {
	return slices.Contains(t.DroppedParticipantIDs, id)
}

// ActiveParticipantIDs returns participants eligible for pairing, in roster order.
func (t *Tournament) ActiveParticipantIDs() []string {
	active := make([]string, 0, len(t.ParticipantIDs))
	for _, id := range t.ParticipantIDs {
		if !t.IsDropped(id) {
			active = append(active, id)
		}
	}
	return active
}

// Clone returns a deep copy so engine operations never alias the caller's snapshot.
func (t Tournament) Clone() Tournament {
	c := t
	c.ParticipantIDs = slices.Clone(t.ParticipantIDs)
	c.DroppedParticipantIDs = slices.Clone(t.DroppedParticipantIDs)
	if t.ConfirmedAt != nil {
		at := *t.ConfirmedAt
		c.ConfirmedAt = &at
	}
	if t.Rounds != nil {
		c.Rounds = make([]Round, len(t.Rounds))
		for i, r := range t.Rounds {
			c.Rounds[i] = r.Clone()
		}
	}
	return c
}
