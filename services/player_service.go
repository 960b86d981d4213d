package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/Dosada05/swiss-tournament/repositories"
	"github.com/google/uuid"
)

const (
	defaultPlayersLimit = 50
	maxPlayersLimit     = 500
)

type CreatePlayerInput struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Rating *int   `json:"rating,omitempty"`
}

type PlayerService interface {
	CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error)
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	ListPlayers(ctx context.Context, limit, offset int) ([]models.Player, error)
}

type playerService struct {
	playerRepo    repositories.PlayerRepository
	defaultRating int
	logger        *slog.Logger
}

func NewPlayerService(playerRepo repositories.PlayerRepository, defaultRating int, logger *slog.Logger) PlayerService {
	if defaultRating <= 0 {
		defaultRating = models.DefaultRating
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &playerService{playerRepo: playerRepo, defaultRating: defaultRating, logger: logger}
}

func (s *playerService) CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrPlayerNameRequired
	}
	rating := s.defaultRating
	if input.Rating != nil {
		if *input.Rating < 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidPlayerRating, *input.Rating)
		}
		rating = *input.Rating
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}

	player := &models.Player{ID: id, Name: name, Rating: rating}
	if err := s.playerRepo.Create(ctx, nil, player); err != nil {
		return nil, mapRepositoryError(err)
	}
	s.logger.Info("player created", slog.String("player_id", player.ID), slog.Int("rating", player.Rating))
	return player, nil
}

func (s *playerService) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return player, nil
}

func (s *playerService) ListPlayers(ctx context.Context, limit, offset int) ([]models.Player, error) {
	if limit <= 0 {
		limit = defaultPlayersLimit
	}
	limit = min(limit, maxPlayersLimit)
	offset = max(offset, 0)

	players, err := s.playerRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return players, nil
}
