package repositories

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/repositories/migrations"
	"github.com/cbodonnell/vibemod/pkg/repositories/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to the database and applies migrations.
// The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (Repository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	var username string
	var database string
	err = pool.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to query database: %v", err)
	}
	log.Info("Connected to %s as %s", database, username)

	files, err := readMigrations(migrations.Postgres, "postgres")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}
	for _, name := range files {
		migration, err := fs.ReadFile(migrations.Postgres, name)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to read migration %s: %v", name, err)
		}
		if _, err := pool.Exec(ctx, string(migration)); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to execute migration %s: %v", name, err)
		}
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) SaveRoundResult(ctx context.Context, result *models.RoundResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	q := `
	INSERT INTO round_results (id, room, round, mode, reason, ended_at)
	VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err = tx.Exec(ctx, q, result.ID, result.Room, int64(result.Round), result.Mode, result.Reason, result.EndedAt)
	if err != nil {
		return fmt.Errorf("failed to insert round result: %v", err)
	}

	batch := &pgx.Batch{}
	for _, score := range result.Scores {
		batch.Queue(`
		INSERT INTO round_scores (result_id, participant, score)
		VALUES ($1, $2, $3);
		`, result.ID, score.ParticipantID, score.Score)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert scores: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (r *PostgresRepository) GetRoundResult(ctx context.Context, id string) (*models.RoundResult, error) {
	q := `
	SELECT id::text, room, round, mode, reason, ended_at FROM round_results WHERE id = $1;
	`
	result, err := scanPostgresResult(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan round result: %v", err)
	}

	if err := r.loadScores(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ListRoundResults(ctx context.Context, room string, limit int) ([]*models.RoundResult, error) {
	q := `
	SELECT id::text, room, round, mode, reason, ended_at FROM round_results
	WHERE $1 = '' OR room = $1
	ORDER BY ended_at DESC, round DESC
	LIMIT $2;
	`
	rows, err := r.pool.Query(ctx, q, room, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query round results: %v", err)
	}
	defer rows.Close()

	var results []*models.RoundResult
	for rows.Next() {
		result, err := scanPostgresResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round result: %v", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate round results: %v", err)
	}

	for _, result := range results {
		if err := r.loadScores(ctx, result); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (r *PostgresRepository) loadScores(ctx context.Context, result *models.RoundResult) error {
	q := `
	SELECT participant, score FROM round_scores WHERE result_id = $1 ORDER BY participant;
	`
	rows, err := r.pool.Query(ctx, q, result.ID)
	if err != nil {
		return fmt.Errorf("failed to query scores: %v", err)
	}
	scores, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ParticipantScore, error) {
		var score models.ParticipantScore
		err := row.Scan(&score.ParticipantID, &score.Score)
		return score, err
	})
	if err != nil {
		return fmt.Errorf("failed to scan scores: %v", err)
	}
	result.Scores = scores
	return nil
}

func scanPostgresResult(row pgx.Row) (*models.RoundResult, error) {
	result := &models.RoundResult{}
	var round int64
	if err := row.Scan(&result.ID, &result.Room, &round, &result.Mode, &result.Reason, &result.EndedAt); err != nil {
		return nil, err
	}
	result.Round = uint32(round)
	result.EndedAt = result.EndedAt.UTC()
	return result, nil
}
