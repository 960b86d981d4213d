package models

// StandingsEntry holds the derived statistics of one participant. Nothing here is stored;
// it is recomputed from the round history on every request.
// Buchholz2 is the sum of the opponents' Buchholz scores.
type StandingsEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Points        int    `json:"points"`
	Buchholz      int    `json:"buchholz"`
	Buchholz2     int    `json:"buchholz2"`
	BuchholzCut1  int    `json:"buchholz_cut1"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	Draws         int    `json:"draws"`
	MatchesPlayed int    `json:"matches_played"`
	Byes          int    `json:"byes"`
	IsDropped     bool   `json:"is_dropped"`

	MadeElimination  bool `json:"made_elimination"`
	EliminationRound int  `json:"elimination_round,omitempty"`
	StillInBracket   bool `json:"still_in_bracket"`
}
