package models

type Round struct {
	ID          string  `json:"id" db:"id"`
	Number      int     `json:"number" db:"number"`
	Matches     []Match `json:"matches" db:"-"`
	IsCompleted bool    `json:"is_completed" db:"is_completed"`
}

// RefreshCompleted recomputes IsCompleted from the match list and returns it.
func (r *Round) RefreshCompleted() bool {
	completed := true
	for i := range r.Matches {
		if !r.Matches[i].IsResolved() {
			completed = false
			break
		}
	}
	r.IsCompleted = completed
	return completed
}

func (r *Round) MatchByID(id string) *Match {
	for i := range r.Matches {
		if r.Matches[i].ID == id {
			return &r.Matches[i]
		}
	}
	return nil
}

// MatchFor returns the match the participant played in this round, if any.
func (r *Round) MatchFor(participantID string) *Match {
	for i := range r.Matches {
		if r.Matches[i].Involves(participantID) {
			return &r.Matches[i]
		}
	}
	return nil
}

func (r Round) Clone() Round {
	c := r
	if r.Matches != nil {
		c.Matches = make([]Match, len(r.Matches))
		for i, m := range r.Matches {
			c.Matches[i] = m.Clone()
		}
	}
	return c
}
