package models

import "time"

// DefaultRating is assigned to players without a rating record.
const DefaultRating = 1200

// Player is the external rating record of a participant. Only rating adjustment
// on tournament confirmation mutates Rating and the cumulative counters.
type Player struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Rating            int       `json:"rating" db:"rating"`
	TournamentsPlayed int       `json:"tournaments_played" db:"tournaments_played"`
	Wins              int       `json:"wins" db:"wins"`
	Losses            int       `json:"losses" db:"losses"`
	Draws             int       `json:"draws" db:"draws"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
