package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/swiss-tournament/models"
	"github.com/lib/pq"
)

var ErrRoundConflict = errors.New("round or match conflicts with an existing record")

// RoundRepository persists the round history of a tournament. The history is written as a
// whole: a mutation replaces every round and match row in one statement set.
type RoundRepository interface {
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.Round, error)
	ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID string, rounds []models.Round) error
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRoundRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.Round, error) {
	executor := r.getExecutor(exec)

	rows, err := executor.QueryContext(ctx,
		`SELECT id, number, is_completed FROM rounds WHERE tournament_id = $1 ORDER BY number`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds for tournament %s: %w", tournamentID, err)
	}
	rounds := make([]models.Round, 0)
	index := make(map[string]int)
	for rows.Next() {
		var rd models.Round
		if scanErr := rows.Scan(&rd.ID, &rd.Number, &rd.IsCompleted); scanErr != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan round: %w", scanErr)
		}
		rd.Matches = []models.Match{}
		index[rd.ID] = len(rounds)
		rounds = append(rounds, rd)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(rounds) == 0 {
		return rounds, nil
	}

	matchRows, err := executor.QueryContext(ctx, `
		SELECT m.round_id, m.id, m.participant1_id, m.participant2_id, m.table_number,
		       m.result, m.points1, m.points2, m.rating_change1, m.rating_change2
		FROM matches m
		JOIN rounds r ON r.id = m.round_id
		WHERE r.tournament_id = $1
		ORDER BY r.number, m.position`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %s: %w", tournamentID, err)
	}
	defer matchRows.Close()

	for matchRows.Next() {
		var roundID string
		var m models.Match
		if scanErr := matchRows.Scan(
			&roundID, &m.ID, &m.Participant1ID, &m.Participant2ID, &m.TableNumber,
			&m.Result, &m.Points1, &m.Points2, &m.RatingChange1, &m.RatingChange2,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match: %w", scanErr)
		}
		i, ok := index[roundID]
		if !ok {
			continue
		}
		rounds[i].Matches = append(rounds[i].Matches, m)
	}
	if err = matchRows.Err(); err != nil {
		return nil, err
	}
	return rounds, nil
}

// ReplaceForTournament deletes the stored history and writes rounds in its place. Matches
// are inserted in one batch per call through unnest over parallel arrays.
func (r *postgresRoundRepository) ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID string, rounds []models.Round) error {
	executor := r.getExecutor(exec)

	if _, err := executor.ExecContext(ctx, `DELETE FROM rounds WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete rounds of tournament %s: %w", tournamentID, err)
	}
	if len(rounds) == 0 {
		return nil
	}

	var (
		roundIDs  = make([]string, 0, len(rounds))
		numbers   = make([]int64, 0, len(rounds))
		completed = make([]bool, 0, len(rounds))

		matchIDs   []string
		matchRound []string
		positions  []int64
		p1         []string
		p2         []sql.NullString
		tables     []sql.NullInt64
		results    []string
		points1    []int64
		points2    []int64
		change1    []sql.NullInt64
		change2    []sql.NullInt64
	)
	for _, rd := range rounds {
		roundIDs = append(roundIDs, rd.ID)
		numbers = append(numbers, int64(rd.Number))
		completed = append(completed, rd.IsCompleted)
		for pos, m := range rd.Matches {
			matchIDs = append(matchIDs, m.ID)
			matchRound = append(matchRound, rd.ID)
			positions = append(positions, int64(pos+1))
			p1 = append(p1, m.Participant1ID)
			p2 = append(p2, nullString(m.Participant2ID))
			tables = append(tables, nullInt(m.TableNumber))
			results = append(results, string(m.Result))
			points1 = append(points1, int64(m.Points1))
			points2 = append(points2, int64(m.Points2))
			change1 = append(change1, nullInt(m.RatingChange1))
			change2 = append(change2, nullInt(m.RatingChange2))
		}
	}

	_, err := executor.ExecContext(ctx, `
		INSERT INTO rounds (id, tournament_id, number, is_completed)
		SELECT u.id, $1, u.number, u.is_completed
		FROM unnest($2::text[], $3::int[], $4::bool[]) AS u(id, number, is_completed)`,
		tournamentID, pq.Array(roundIDs), pq.Array(numbers), pq.Array(completed),
	)
	if err != nil {
		return r.handleRoundError(err)
	}

	if len(matchIDs) == 0 {
		return nil
	}
	_, err = executor.ExecContext(ctx, `
		INSERT INTO matches (
			id, round_id, position, participant1_id, participant2_id, table_number,
			result, points1, points2, rating_change1, rating_change2
		)
		SELECT * FROM unnest(
			$1::text[], $2::text[], $3::int[], $4::text[], $5::text[], $6::int[],
			$7::text[], $8::int[], $9::int[], $10::int[], $11::int[]
		)`,
		pq.Array(matchIDs), pq.Array(matchRound), pq.Array(positions), pq.Array(p1), pq.Array(p2), pq.Array(tables),
		pq.Array(results), pq.Array(points1), pq.Array(points2), pq.Array(change1), pq.Array(change2),
	)
	return r.handleRoundError(err)
}

func (r *postgresRoundRepository) handleRoundError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := asPQError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrRoundConflict, pqErr.Constraint)
		case pqForeignKeyViolation:
			return ErrTournamentNotFound
		}
	}
	return err
}
