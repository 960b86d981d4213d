package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerConflict = errors.New("player with this id already exists")
	ErrPlayerInvalid  = errors.New("player violates a schema constraint")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Player, error)
	// GetByIDs returns the records that exist; unknown ids are silently skipped.
	GetByIDs(ctx context.Context, exec SQLExecutor, ids []string) ([]models.Player, error)
	List(ctx context.Context, limit, offset int) ([]models.Player, error)
	// ApplyRatingUpdates upserts every update in a single statement.
	ApplyRatingUpdates(ctx context.Context, exec SQLExecutor, updates []models.PlayerRatingUpdate, at time.Time) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const playerColumns = `id, name, rating, tournaments_played, wins, losses, draws, created_at, updated_at`

func scanPlayer(row rowScanner) (*models.Player, error) {
	var p models.Player
	err := row.Scan(&p.ID, &p.Name, &p.Rating, &p.TournamentsPlayed, &p.Wins, &p.Losses, &p.Draws, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO players (id, name, rating)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	err := executor.QueryRowContext(ctx, query, player.ID, player.Name, player.Rating).
		Scan(&player.CreatedAt, &player.UpdatedAt)
	return r.handlePlayerError(err)
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	p, err := scanPlayer(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %s: %w", id, err)
	}
	return p, nil
}

func (r *postgresPlayerRepository) GetByIDs(ctx context.Context, exec SQLExecutor, ids []string) ([]models.Player, error) {
	players := make([]models.Player, 0, len(ids))
	if len(ids) == 0 {
		return players, nil
	}
	executor := r.getExecutor(exec)
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ANY($1) ORDER BY id`

	rows, err := executor.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get players by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, scanErr := scanPlayer(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan player: %w", scanErr)
		}
		players = append(players, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *postgresPlayerRepository) List(ctx context.Context, limit, offset int) ([]models.Player, error) {
	executor := r.getExecutor(nil)
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY rating DESC, name, id`

	args := []interface{}{}
	argID := 1
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, limit)
		argID++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, offset)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		p, scanErr := scanPlayer(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan player: %w", scanErr)
		}
		players = append(players, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *postgresPlayerRepository) ApplyRatingUpdates(ctx context.Context, exec SQLExecutor, updates []models.PlayerRatingUpdate, at time.Time) error {
	if len(updates) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)

	var (
		ids     = make([]string, 0, len(updates))
		names   = make([]string, 0, len(updates))
		ratings = make([]int64, 0, len(updates))
		played  = make([]int64, 0, len(updates))
		wins    = make([]int64, 0, len(updates))
		losses  = make([]int64, 0, len(updates))
		draws   = make([]int64, 0, len(updates))
	)
	for _, u := range updates {
		ids = append(ids, u.PlayerID)
		names = append(names, u.Name)
		ratings = append(ratings, int64(u.Rating))
		played = append(played, int64(u.TournamentsPlayed))
		wins = append(wins, int64(u.Wins))
		losses = append(losses, int64(u.Losses))
		draws = append(draws, int64(u.Draws))
	}

	// Счётчики в обновлении уже накопительные, поэтому перезаписываем, а не прибавляем.
	query := `
		INSERT INTO players (id, name, rating, tournaments_played, wins, losses, draws, created_at, updated_at)
		SELECT u.id, u.name, u.rating, u.played, u.wins, u.losses, u.draws, $8, $8
		FROM unnest($1::text[], $2::text[], $3::int[], $4::int[], $5::int[], $6::int[], $7::int[])
			AS u(id, name, rating, played, wins, losses, draws)
		ON CONFLICT (id) DO UPDATE SET
			rating = EXCLUDED.rating,
			tournaments_played = EXCLUDED.tournaments_played,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			draws = EXCLUDED.draws,
			updated_at = EXCLUDED.updated_at`

	_, err := executor.ExecContext(ctx, query,
		pq.Array(ids), pq.Array(names), pq.Array(ratings), pq.Array(played),
		pq.Array(wins), pq.Array(losses), pq.Array(draws), at,
	)
	if err != nil {
		return fmt.Errorf("failed to apply rating updates: %w", r.handlePlayerError(err))
	}
	return nil
}

func (r *postgresPlayerRepository) handlePlayerError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrPlayerConflict
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", ErrPlayerInvalid, pqErr.Constraint)
		}
	}
	return err
}
