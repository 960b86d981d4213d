package services

import (
	"github.com/Dosada05/swiss-tournament/models"
)

// --- Общие хелперы ---

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusDraft:     {models.StatusActive},
		models.StatusActive:    {models.StatusCompleted, models.StatusDraft},
		models.StatusCompleted: {models.StatusConfirmed, models.StatusActive},
		models.StatusConfirmed: {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// rosterIDs returns the ids the roster must cover: participants plus anyone seated in a match.
func rosterIDs(t *models.Tournament) []string {
	ids := make([]string, 0, len(t.ParticipantIDs))
	seen := make(map[string]bool, len(t.ParticipantIDs))
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range t.ParticipantIDs {
		add(id)
	}
	for _, r := range t.Rounds {
		for _, m := range r.Matches {
			add(m.Participant1ID)
			if m.Participant2ID != nil {
				add(*m.Participant2ID)
			}
		}
	}
	return ids
}
