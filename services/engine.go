package services

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	DefaultKFactor = 32
)

type EngineConfig struct {
	KFactor       int
	DefaultRating int
	// ShuffleFirstRound рассаживает первый тур случайно, как при жеребьёвке.
	ShuffleFirstRound bool
	Rand              *rand.Rand
	NewID             brackets.IDFunc
	Now               func() time.Time
}

// Engine is the pure tournament state machine. Every method takes a tournament value,
// returns a new one and never mutates its input, so a failed call leaves nothing behind.
// Callers serialize operations on the same tournament.
type Engine struct {
	cfg     EngineConfig
	swiss   brackets.PairingGenerator
	olympic brackets.PairingGenerator
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.KFactor <= 0 {
		cfg.KFactor = DefaultKFactor
	}
	if cfg.DefaultRating <= 0 {
		cfg.DefaultRating = models.DefaultRating
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		cfg: cfg,
		swiss: brackets.NewSwissGenerator(brackets.SwissOptions{
			ShuffleFirstRound: cfg.ShuffleFirstRound,
			Rand:              cfg.Rand,
			NewID:             cfg.NewID,
		}),
		olympic: brackets.NewOlympicGenerator(cfg.NewID),
	}
}

// NewTournament builds a draft tournament.
func (e *Engine) NewTournament(name string, participantIDs []string, swissRounds, eliminationRounds int) (models.Tournament, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Tournament{}, ErrTournamentNameRequired
	}
	if swissRounds < 0 || eliminationRounds < 0 || swissRounds+eliminationRounds == 0 {
		return models.Tournament{}, ErrInvalidRoundCounts
	}
	if dups := lo.FindDuplicates(participantIDs); len(dups) > 0 {
		return models.Tournament{}, fmt.Errorf("%w: %s", ErrDuplicateParticipant, strings.Join(dups, ", "))
	}
	if slices.Contains(participantIDs, "") {
		return models.Tournament{}, fmt.Errorf("%w: empty participant id", ErrValidationFailed)
	}

	now := e.cfg.Now().UTC()
	return models.Tournament{
		ID:                    e.cfg.NewID(),
		Name:                  name,
		ParticipantIDs:        slices.Clone(participantIDs),
		SwissRoundCount:       swissRounds,
		EliminationRoundCount: eliminationRounds,
		DroppedParticipantIDs: []string{},
		Status:                models.StatusDraft,
		CreatedAt:             now,
		UpdatedAt:             now,
		Rounds:                []models.Round{},
	}, nil
}

func (e *Engine) CalculateStandings(t models.Tournament, roster []models.Player, includeDropped bool) []models.StandingsEntry {
	return brackets.CalculateStandings(&t, roster, brackets.StandingsOptions{IncludeDropped: includeDropped})
}

// GeneratePairing produces the matches of the next round without changing the tournament.
// Swiss rounds and elimination rounds are dispatched by the next round number.
func (e *Engine) GeneratePairing(ctx context.Context, t models.Tournament, roster []models.Player) ([]models.Match, error) {
	if err := e.checkCanCreateRound(&t); err != nil {
		return nil, err
	}
	next := t.CurrentRoundNumber + 1
	gen := e.swiss
	if t.IsEliminationRound(next) {
		gen = e.olympic
	}
	snapshot := t.Clone()
	matches, err := gen.GeneratePairing(ctx, brackets.GeneratePairingParams{
		Tournament:  &snapshot,
		Roster:      roster,
		RoundNumber: next,
	})
	if err != nil {
		return nil, fmt.Errorf("%s pairing for round %d: %w", gen.GetName(), next, err)
	}
	return matches, nil
}

// CreateNextRound generates the pairing and appends it as the next round.
func (e *Engine) CreateNextRound(ctx context.Context, t models.Tournament, roster []models.Player) (models.Tournament, error) {
	matches, err := e.GeneratePairing(ctx, t, roster)
	if err != nil {
		return models.Tournament{}, err
	}
	return e.CreateRound(t, matches)
}

// CreateRound appends a round with the given matches. Allowed only while rounds remain
// and the current round is completed.
func (e *Engine) CreateRound(t models.Tournament, matches []models.Match) (models.Tournament, error) {
	if err := e.checkCanCreateRound(&t); err != nil {
		return models.Tournament{}, err
	}
	number := t.CurrentRoundNumber + 1
	if err := validatePairings(&t, number, matches); err != nil {
		return models.Tournament{}, err
	}

	round := models.Round{
		ID:      e.cfg.NewID(),
		Number:  number,
		Matches: e.normalizeMatches(matches),
	}
	round.RefreshCompleted()

	next := t.Clone()
	next.Rounds = append(next.Rounds, round)
	next.CurrentRoundNumber = number
	next.Status = models.StatusActive
	next.UpdatedAt = e.cfg.Now().UTC()
	return next, nil
}

func (e *Engine) checkCanCreateRound(t *models.Tournament) error {
	if t.Status == models.StatusConfirmed {
		return ErrTournamentAlreadyConfirmed
	}
	if t.CurrentRoundNumber >= t.TotalRounds() {
		return ErrRoundLimitReached
	}
	if last := t.LastRound(); last != nil && !last.IsCompleted {
		return fmt.Errorf("%w: round %d", ErrRoundNotCompleted, last.Number)
	}
	return nil
}

// RecordMatchResult sets (or with ResultUnset clears) the result of a match in the
// current round. Earlier rounds are immutable.
func (e *Engine) RecordMatchResult(t models.Tournament, roundID, matchID string, result models.MatchResult) (models.Tournament, error) {
	if t.Status == models.StatusConfirmed {
		return models.Tournament{}, ErrTournamentAlreadyConfirmed
	}
	if t.Status != models.StatusActive {
		return models.Tournament{}, ErrTournamentNotActive
	}
	if !result.IsValid() {
		return models.Tournament{}, fmt.Errorf("%w: %q", ErrInvalidResult, result)
	}

	next := t.Clone()
	idx, round := next.RoundByID(roundID)
	if round == nil {
		return models.Tournament{}, ErrRoundNotFound
	}
	if idx != len(next.Rounds)-1 {
		return models.Tournament{}, fmt.Errorf("%w: round %d has been superseded", ErrRoundNotCurrent, round.Number)
	}
	match := round.MatchByID(matchID)
	if match == nil {
		return models.Tournament{}, ErrMatchNotFound
	}
	if match.IsBye() {
		return models.Tournament{}, ErrByeImmutable
	}
	if result == models.ResultDraw && next.IsEliminationRound(round.Number) {
		return models.Tournament{}, ErrDrawNotAllowed
	}

	match.ApplyResult(result)
	round.RefreshCompleted()
	next.UpdatedAt = e.cfg.Now().UTC()
	return next, nil
}

// ReplacePairings swaps the whole match list of an open round. Results already entered
// in that round are discarded.
func (e *Engine) ReplacePairings(t models.Tournament, roundID string, matches []models.Match) (models.Tournament, error) {
	if t.Status == models.StatusConfirmed {
		return models.Tournament{}, ErrTournamentAlreadyConfirmed
	}
	if t.Status != models.StatusActive {
		return models.Tournament{}, ErrTournamentNotActive
	}

	next := t.Clone()
	idx, round := next.RoundByID(roundID)
	if round == nil {
		return models.Tournament{}, ErrRoundNotFound
	}
	if round.IsCompleted {
		return models.Tournament{}, fmt.Errorf("%w: round %d", ErrRoundAlreadyCompleted, round.Number)
	}
	if idx != len(next.Rounds)-1 {
		return models.Tournament{}, ErrRoundNotCurrent
	}
	if err := validatePairings(&next, round.Number, matches); err != nil {
		return models.Tournament{}, err
	}

	round.Matches = e.normalizeMatches(matches)
	round.RefreshCompleted()
	next.UpdatedAt = e.cfg.Now().UTC()
	return next, nil
}

// DeleteLastRound removes the current round so it can be redone.
func (e *Engine) DeleteLastRound(t models.Tournament) (models.Tournament, error) {
	if t.Status == models.StatusConfirmed {
		return models.Tournament{}, ErrTournamentAlreadyConfirmed
	}
	if len(t.Rounds) == 0 {
		return models.Tournament{}, ErrNoRounds
	}

	next := t.Clone()
	next.Rounds = next.Rounds[:len(next.Rounds)-1]
	next.CurrentRoundNumber = len(next.Rounds)
	if next.CurrentRoundNumber == 0 {
		next.Status = models.StatusDraft
	} else {
		next.Status = models.StatusActive
	}
	next.UpdatedAt = e.cfg.Now().UTC()
	return next, nil
}

// FinishTournament marks the tournament completed once every scheduled round is played.
func (e *Engine) FinishTournament(t models.Tournament) (models.Tournament, error) {
	if t.Status == models.StatusConfirmed {
		return models.Tournament{}, ErrTournamentAlreadyConfirmed
	}
	if t.Status == models.StatusCompleted {
		return t.Clone(), nil
	}
	if !isValidStatusTransition(t.Status, models.StatusCompleted) {
		return models.Tournament{}, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, t.Status, models.StatusCompleted)
	}
	if t.CurrentRoundNumber != t.TotalRounds() {
		return models.Tournament{}, fmt.Errorf("%w: %d of %d", ErrTournamentUnfinished, t.CurrentRoundNumber, t.TotalRounds())
	}
	if last := t.LastRound(); last == nil || !last.IsCompleted {
		return models.Tournament{}, ErrRoundNotCompleted
	}

	next := t.Clone()
	next.Status = models.StatusCompleted
	next.UpdatedAt = e.cfg.Now().UTC()
	return next, nil
}

// ConfirmTournament replays the rating adjustment over the full history and freezes
// the tournament. A confirmed tournament is rejected, so ratings are applied once.
func (e *Engine) ConfirmTournament(t models.Tournament, roster []models.Player) (models.Tournament, models.RatingAdjustment, error) {
	if t.Status == models.StatusConfirmed {
		return models.Tournament{}, models.RatingAdjustment{}, ErrTournamentAlreadyConfirmed
	}
	if t.Status != models.StatusCompleted {
		return models.Tournament{}, models.RatingAdjustment{}, ErrTournamentNotCompleted
	}

	next := t.Clone()
	adjustment := e.replayRatings(&next, roster)

	changes := lo.KeyBy(adjustment.MatchChanges, func(c models.MatchRatingChange) string { return c.MatchID })
	for ri := range next.Rounds {
		for mi := range next.Rounds[ri].Matches {
			m := &next.Rounds[ri].Matches[mi]
			if c, ok := changes[m.ID]; ok {
				c1, c2 := c.Change1, c.Change2
				m.RatingChange1, m.RatingChange2 = &c1, &c2
			}
		}
	}

	now := e.cfg.Now().UTC()
	next.Status = models.StatusConfirmed
	next.ConfirmedAt = &now
	next.UpdatedAt = now
	return next, adjustment, nil
}

// ToggleDrop drops an active participant or returns a dropped one to pairing.
// History is never touched.
func (e *Engine) ToggleDrop(t models.Tournament, participantID string) (models.Tournament, error) {
	if !t.HasParticipant(participantID) {
		return models.Tournament{}, ErrParticipantNotFound
	}
	next := t.Clone()
	if next.IsDropped(participantID) {
		next.DroppedParticipantIDs = lo.Without(next.DroppedParticipantIDs, participantID)
	} else {
		next.DroppedParticipantIDs = append(next.DroppedParticipantIDs, participantID)
	}
	next.UpdatedAt = e.cfg.Now().UTC()
	return next, nil
}

func (e *Engine) AddParticipant(t models.Tournament, participantID string) (models.Tournament, error) {
	if t.Status != models.StatusDraft {
		return models.Tournament{}, ErrTournamentNotDraft
	}
	if participantID == "" {
		return models.Tournament{}, fmt.Errorf("%w: empty participant id", ErrValidationFailed)
	}
	if t.HasParticipant(participantID) {
		return models.Tournament{}, ErrParticipantAlreadyRegistered
	}
	next := t.Clone()
	next.ParticipantIDs = append(next.ParticipantIDs, participantID)
	next.UpdatedAt = e.cfg.Now().UTC()
	return next, nil
}

func (e *Engine) RemoveParticipant(t models.Tournament, participantID string) (models.Tournament, error) {
	if t.Status != models.StatusDraft {
		return models.Tournament{}, ErrTournamentNotDraft
	}
	if !t.HasParticipant(participantID) {
		return models.Tournament{}, ErrParticipantNotFound
	}
	next := t.Clone()
	next.ParticipantIDs = lo.Without(next.ParticipantIDs, participantID)
	next.DroppedParticipantIDs = lo.Without(next.DroppedParticipantIDs, participantID)
	next.UpdatedAt = e.cfg.Now().UTC()
	return next, nil
}

// normalizeMatches copies supplied matches into a fresh round: missing ids are generated,
// byes get their fixed result, other matches start without a result, and tables are
// numbered from 1 in the given order.
func (e *Engine) normalizeMatches(matches []models.Match) []models.Match {
	out := make([]models.Match, 0, len(matches))
	table := 0
	for _, m := range matches {
		id := m.ID
		if id == "" {
			id = e.cfg.NewID()
		}
		if m.IsBye() {
			out = append(out, models.NewByeMatch(id, m.Participant1ID))
			continue
		}
		table++
		tn := table
		p2 := *m.Participant2ID
		out = append(out, models.Match{
			ID:             id,
			Participant1ID: m.Participant1ID,
			Participant2ID: &p2,
			TableNumber:    &tn,
			Result:         models.ResultUnset,
		})
	}
	return out
}

// validatePairings checks a match list before it replaces anything. Every participant
// must be an active member and appear at most once; in swiss rounds every active
// participant must be seated. Supplied match ids must be unique within the tournament;
// ids of the round being replaced may be reused.
func validatePairings(t *models.Tournament, roundNumber int, matches []models.Match) error {
	if len(matches) == 0 {
		return ErrEmptyPairings
	}

	takenIDs := make(map[string]bool)
	for _, r := range t.Rounds {
		if r.Number == roundNumber {
			continue
		}
		for _, m := range r.Matches {
			takenIDs[m.ID] = true
		}
	}
	for i, m := range matches {
		if m.ID == "" {
			continue
		}
		if takenIDs[m.ID] {
			return fmt.Errorf("match %d: %w: %s", i+1, ErrDuplicateMatchID, m.ID)
		}
		takenIDs[m.ID] = true
	}

	seen := make(map[string]bool)
	byes := 0
	seat := func(id string) error {
		if id == "" {
			return ErrIncompleteSeat
		}
		if !t.HasParticipant(id) || t.IsDropped(id) {
			return fmt.Errorf("%w: %s", ErrUnknownParticipant, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, id)
		}
		seen[id] = true
		return nil
	}

	for i, m := range matches {
		if err := seat(m.Participant1ID); err != nil {
			return fmt.Errorf("match %d: %w", i+1, err)
		}
		if m.IsBye() {
			byes++
			continue
		}
		if err := seat(*m.Participant2ID); err != nil {
			return fmt.Errorf("match %d: %w", i+1, err)
		}
	}
	if byes > 1 {
		return ErrTooManyByes
	}

	if t.IsSwissRound(roundNumber) {
		for _, id := range t.ActiveParticipantIDs() {
			if !seen[id] {
				return fmt.Errorf("%w: %s", ErrMissingParticipant, id)
			}
		}
	}
	return nil
}
