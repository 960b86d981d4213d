package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/repositories"
	"github.com/Dosada05/swiss-tournament/storage"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// EventBroadcaster pushes tournament events to subscribed websocket clients.
type EventBroadcaster interface {
	BroadcastEvent(tournamentID, eventType string, payload any)
}

type CreateTournamentInput struct {
	Name                  string   `json:"name"`
	ParticipantIDs        []string `json:"participant_ids"`
	SwissRoundCount       int      `json:"swiss_round_count"`
	EliminationRoundCount int      `json:"elimination_round_count"`
}

type ConfirmationResult struct {
	Tournament *models.Tournament      `json:"tournament"`
	Adjustment models.RatingAdjustment `json:"adjustment"`
	Archive    *storage.UploadResult   `json:"archive,omitempty"`
}

type MatchResultPayload struct {
	RoundID string        `json:"round_id"`
	Match   *models.Match `json:"match"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	GetStandings(ctx context.Context, id string, includeDropped bool) ([]models.StandingsEntry, error)
	PreviewPairing(ctx context.Context, id string) ([]models.Match, error)

	// CreateRound appends the next round. Empty matches means the round is generated.
	CreateRound(ctx context.Context, id string, matches []models.Match) (*models.Tournament, error)
	DeleteLastRound(ctx context.Context, id string) (*models.Tournament, error)
	ReplacePairings(ctx context.Context, id, roundID string, matches []models.Match) (*models.Tournament, error)
	RecordMatchResult(ctx context.Context, id, roundID, matchID string, result models.MatchResult) (*models.Tournament, error)
	FinishTournament(ctx context.Context, id string) (*models.Tournament, error)
	ConfirmTournament(ctx context.Context, id string) (*ConfirmationResult, error)

	ToggleDrop(ctx context.Context, id, participantID string) (*models.Tournament, error)
	AddParticipant(ctx context.Context, id, participantID string) (*models.Tournament, error)
	RemoveParticipant(ctx context.Context, id, participantID string) (*models.Tournament, error)
}

type tournamentService struct {
	engine         *Engine
	runInTx        TxRunner
	tournamentRepo repositories.TournamentRepository
	roundRepo      repositories.RoundRepository
	playerRepo     repositories.PlayerRepository
	broadcaster    EventBroadcaster
	archiver       storage.ResultsArchiver
	logger         *slog.Logger
}

// NewTournamentService wires the engine to storage. broadcaster and archiver are optional.
func NewTournamentService(
	engine *Engine,
	runInTx TxRunner,
	tournamentRepo repositories.TournamentRepository,
	roundRepo repositories.RoundRepository,
	playerRepo repositories.PlayerRepository,
	broadcaster EventBroadcaster,
	archiver storage.ResultsArchiver,
	logger *slog.Logger,
) TournamentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &tournamentService{
		engine:         engine,
		runInTx:        runInTx,
		tournamentRepo: tournamentRepo,
		roundRepo:      roundRepo,
		playerRepo:     playerRepo,
		broadcaster:    broadcaster,
		archiver:       archiver,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	t, err := s.engine.NewTournament(input.Name, input.ParticipantIDs, input.SwissRoundCount, input.EliminationRoundCount)
	if err != nil {
		return nil, err
	}
	players, err := s.playerRepo.GetByIDs(ctx, nil, t.ParticipantIDs)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	known := lo.Map(players, func(p models.Player, _ int) string { return p.ID })
	if missing, _ := lo.Difference(t.ParticipantIDs, known); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, strings.Join(missing, ", "))
	}

	if err := s.tournamentRepo.Create(ctx, nil, &t); err != nil {
		return nil, mapRepositoryError(err)
	}
	s.logger.Info("tournament created",
		slog.String("tournament_id", t.ID),
		slog.Int("participants", len(t.ParticipantIDs)),
		slog.Int("rounds", t.TotalRounds()),
	)
	return &t, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return tournaments, nil
}

func (s *tournamentService) GetStandings(ctx context.Context, id string, includeDropped bool) ([]models.StandingsEntry, error) {
	t, roster, err := s.loadWithRoster(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.CalculateStandings(t, roster, includeDropped), nil
}

func (s *tournamentService) PreviewPairing(ctx context.Context, id string) ([]models.Match, error) {
	t, roster, err := s.loadWithRoster(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.GeneratePairing(ctx, t, roster)
}

func (s *tournamentService) CreateRound(ctx context.Context, id string, matches []models.Match) (*models.Tournament, error) {
	next, err := s.mutate(ctx, id, func(_ repositories.SQLExecutor, t models.Tournament, roster []models.Player) (models.Tournament, error) {
		if len(matches) == 0 {
			return s.engine.CreateNextRound(ctx, t, roster)
		}
		return s.engine.CreateRound(t, matches)
	})
	if err != nil {
		return nil, err
	}
	round := next.LastRound()
	s.logger.Info("round created",
		slog.String("tournament_id", id),
		slog.Int("round", round.Number),
		slog.String("name", brackets.RoundName(next, round.Number)),
		slog.Int("matches", len(round.Matches)),
	)
	s.broadcast(id, brackets.EventRoundCreated, round)
	return next, nil
}

func (s *tournamentService) DeleteLastRound(ctx context.Context, id string) (*models.Tournament, error) {
	next, err := s.mutate(ctx, id, func(_ repositories.SQLExecutor, t models.Tournament, _ []models.Player) (models.Tournament, error) {
		return s.engine.DeleteLastRound(t)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("last round deleted", slog.String("tournament_id", id), slog.Int("current_round", next.CurrentRoundNumber))
	s.broadcast(id, brackets.EventRoundDeleted, next)
	return next, nil
}

func (s *tournamentService) ReplacePairings(ctx context.Context, id, roundID string, matches []models.Match) (*models.Tournament, error) {
	next, err := s.mutate(ctx, id, func(_ repositories.SQLExecutor, t models.Tournament, _ []models.Player) (models.Tournament, error) {
		return s.engine.ReplacePairings(t, roundID, matches)
	})
	if err != nil {
		return nil, err
	}
	_, round := next.RoundByID(roundID)
	s.broadcast(id, brackets.EventPairingsReplaced, round)
	return next, nil
}

func (s *tournamentService) RecordMatchResult(ctx context.Context, id, roundID, matchID string, result models.MatchResult) (*models.Tournament, error) {
	next, err := s.mutate(ctx, id, func(_ repositories.SQLExecutor, t models.Tournament, _ []models.Player) (models.Tournament, error) {
		return s.engine.RecordMatchResult(t, roundID, matchID, result)
	})
	if err != nil {
		return nil, err
	}
	payload := MatchResultPayload{RoundID: roundID}
	if _, round := next.RoundByID(roundID); round != nil {
		payload.Match = round.MatchByID(matchID)
	}
	s.broadcast(id, brackets.EventMatchUpdated, payload)
	return next, nil
}

func (s *tournamentService) FinishTournament(ctx context.Context, id string) (*models.Tournament, error) {
	next, err := s.mutate(ctx, id, func(_ repositories.SQLExecutor, t models.Tournament, _ []models.Player) (models.Tournament, error) {
		return s.engine.FinishTournament(t)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("tournament finished", slog.String("tournament_id", id))
	s.broadcast(id, brackets.EventTournamentFinished, next)
	return next, nil
}

// ConfirmTournament applies the rating adjustment in the same transaction that freezes the
// tournament. The archive upload happens after commit and never fails the call.
func (s *tournamentService) ConfirmTournament(ctx context.Context, id string) (*ConfirmationResult, error) {
	var (
		adjustment models.RatingAdjustment
		roster     []models.Player
	)
	next, err := s.mutate(ctx, id, func(exec repositories.SQLExecutor, t models.Tournament, players []models.Player) (models.Tournament, error) {
		confirmed, adj, err := s.engine.ConfirmTournament(t, players)
		if err != nil {
			return models.Tournament{}, err
		}
		at := confirmed.UpdatedAt
		if confirmed.ConfirmedAt != nil {
			at = *confirmed.ConfirmedAt
		}
		if err := s.playerRepo.ApplyRatingUpdates(ctx, exec, adj.Updates, at); err != nil {
			return models.Tournament{}, err
		}
		adjustment, roster = adj, players
		return confirmed, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("tournament confirmed",
		slog.String("tournament_id", id),
		slog.Int("rated_players", len(adjustment.Updates)),
		slog.Int("rated_matches", len(adjustment.MatchChanges)),
	)

	result := &ConfirmationResult{Tournament: next, Adjustment: adjustment}
	if s.archiver != nil {
		archive := storage.TournamentArchive{
			Tournament: *next,
			Standings:  s.engine.CalculateStandings(*next, roster, true),
			Ratings:    adjustment,
			ArchivedAt: next.UpdatedAt,
		}
		uploaded, archiveErr := s.archiver.ArchiveTournament(ctx, archive)
		if archiveErr != nil {
			s.logger.Error("failed to archive confirmed tournament", slog.String("tournament_id", id), slog.Any("error", archiveErr))
		} else {
			result.Archive = uploaded
		}
	}

	s.broadcast(id, brackets.EventTournamentConfirmed, result)
	return result, nil
}

func (s *tournamentService) ToggleDrop(ctx context.Context, id, participantID string) (*models.Tournament, error) {
	next, err := s.mutate(ctx, id, func(_ repositories.SQLExecutor, t models.Tournament, _ []models.Player) (models.Tournament, error) {
		return s.engine.ToggleDrop(t, participantID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("participant drop toggled",
		slog.String("tournament_id", id),
		slog.String("participant_id", participantID),
		slog.Bool("dropped", next.IsDropped(participantID)),
	)
	s.broadcast(id, brackets.EventParticipantsUpdated, next)
	return next, nil
}

func (s *tournamentService) AddParticipant(ctx context.Context, id, participantID string) (*models.Tournament, error) {
	next, err := s.mutate(ctx, id, func(exec repositories.SQLExecutor, t models.Tournament, _ []models.Player) (models.Tournament, error) {
		if _, err := s.playerRepo.GetByID(ctx, exec, participantID); err != nil {
			return models.Tournament{}, err
		}
		return s.engine.AddParticipant(t, participantID)
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(id, brackets.EventParticipantsUpdated, next)
	return next, nil
}

func (s *tournamentService) RemoveParticipant(ctx context.Context, id, participantID string) (*models.Tournament, error) {
	next, err := s.mutate(ctx, id, func(_ repositories.SQLExecutor, t models.Tournament, _ []models.Player) (models.Tournament, error) {
		return s.engine.RemoveParticipant(t, participantID)
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(id, brackets.EventParticipantsUpdated, next)
	return next, nil
}

type tournamentMutation func(exec repositories.SQLExecutor, t models.Tournament, roster []models.Player) (models.Tournament, error)

// mutate is the single write path: lock the tournament row, rebuild the aggregate, run
// the engine operation and persist the result, all in one transaction.
func (s *tournamentService) mutate(ctx context.Context, id string, op tournamentMutation) (*models.Tournament, error) {
	var next models.Tournament
	err := s.runInTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return err
		}
		rounds, err := s.roundRepo.ListByTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		t.Rounds = rounds

		roster, err := s.playerRepo.GetByIDs(ctx, exec, rosterIDs(t))
		if err != nil {
			return err
		}

		next, err = op(exec, *t, roster)
		if err != nil {
			return err
		}
		if err := s.roundRepo.ReplaceForTournament(ctx, exec, id, next.Rounds); err != nil {
			return err
		}
		return s.tournamentRepo.Update(ctx, exec, &next)
	})
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return &next, nil
}

// load reads the tournament row and its rounds concurrently.
func (s *tournamentService) load(ctx context.Context, id string) (models.Tournament, error) {
	var (
		t      *models.Tournament
		rounds []models.Round
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = s.tournamentRepo.GetByID(gCtx, nil, id)
		return err
	})
	g.Go(func() error {
		var err error
		rounds, err = s.roundRepo.ListByTournament(gCtx, nil, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Tournament{}, mapRepositoryError(err)
	}
	t.Rounds = rounds
	return *t, nil
}

func (s *tournamentService) loadWithRoster(ctx context.Context, id string) (models.Tournament, []models.Player, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return models.Tournament{}, nil, err
	}
	roster, err := s.playerRepo.GetByIDs(ctx, nil, rosterIDs(&t))
	if err != nil {
		return models.Tournament{}, nil, fmt.Errorf("failed to load roster of tournament %s: %w", id, err)
	}
	return t, roster, nil
}

func (s *tournamentService) broadcast(tournamentID, eventType string, payload any) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastEvent(tournamentID, eventType, payload)
}

// mapRepositoryError переводит ошибки репозиториев в ошибки сервисного слоя.
func mapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrPlayerNotFound):
		return ErrPlayerNotFound
	case errors.Is(err, repositories.ErrPlayerConflict):
		return ErrPlayerAlreadyExists
	case errors.Is(err, repositories.ErrRoundConflict):
		// Идентификаторы туров генерируются, так что конфликт даёт id матча из запроса.
		return fmt.Errorf("%w: %v", ErrDuplicateMatchID, err)
	case errors.Is(err, repositories.ErrTournamentInvalid), errors.Is(err, repositories.ErrPlayerInvalid):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	default:
		return err
	}
}
