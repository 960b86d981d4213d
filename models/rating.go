package models

// PlayerRatingUpdate is the final state of one player's rating record after a
// tournament has been replayed. Counters are cumulative (record + tournament).
type PlayerRatingUpdate struct {
	PlayerID          string `json:"player_id"`
	Name              string `json:"name"`
	RatingBefore      int    `json:"rating_before"`
	Rating            int    `json:"rating"`
	Delta             int    `json:"delta"`
	TournamentsPlayed int    `json:"tournaments_played"`
	Wins              int    `json:"wins"`
	Losses            int    `json:"losses"`
	Draws             int    `json:"draws"`

	TournamentWins   int `json:"tournament_wins"`
	TournamentLosses int `json:"tournament_losses"`
	TournamentDraws  int `json:"tournament_draws"`
}

// MatchRatingChange records the Elo delta applied to each seat of one match.
type MatchRatingChange struct {
	RoundNumber int    `json:"round_number"`
	MatchID     string `json:"match_id"`
	Change1     int    `json:"change1"`
	Change2     int    `json:"change2"`
}

// RatingAdjustment is the batch produced by confirming a tournament. It is applied
// to the player records all at once or not at all.
type RatingAdjustment struct {
	TournamentID string               `json:"tournament_id"`
	Updates      []PlayerRatingUpdate `json:"updates"`
	MatchChanges []MatchRatingChange  `json:"match_changes"`
}
