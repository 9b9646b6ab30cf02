package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	"github.com/cbodonnell/vibemod/pkg/repositories/migrations"
	"github.com/cbodonnell/vibemod/pkg/repositories/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, path string) (Repository, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	// serialize writers, sqlite allows only one
	db.SetMaxOpenConns(1)

	files, err := readMigrations(migrations.SQLite, "sqlite")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}

	for _, name := range files {
		migration, err := fs.ReadFile(migrations.SQLite, name)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to read migration %s: %v", name, err)
		}

		if _, err := db.ExecContext(ctx, string(migration)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute migration %s: %v", name, err)
		}
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) SaveRoundResult(ctx context.Context, result *models.RoundResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	q := `
	INSERT INTO round_results (id, room, round, mode, reason, ended_at)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	_, err = tx.ExecContext(ctx, q, result.ID, result.Room, result.Round, result.Mode, result.Reason, result.EndedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert round result: %v", err)
	}

	for _, score := range result.Scores {
		q := `
		INSERT INTO round_scores (result_id, participant, score)
		VALUES (?, ?, ?);
		`
		if _, err := tx.ExecContext(ctx, q, result.ID, score.ParticipantID, score.Score); err != nil {
			return fmt.Errorf("failed to insert score for %s: %v", score.ParticipantID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) GetRoundResult(ctx context.Context, id string) (*models.RoundResult, error) {
	q := `
	SELECT id, room, round, mode, reason, ended_at FROM round_results WHERE id = ?;
	`
	result, err := scanSQLiteResult(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan round result: %v", err)
	}

	if err := r.loadScores(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *SQLiteRepository) ListRoundResults(ctx context.Context, room string, limit int) ([]*models.RoundResult, error) {
	q := `
	SELECT id, room, round, mode, reason, ended_at FROM round_results
	WHERE ? = '' OR room = ?
	ORDER BY ended_at DESC, round DESC
	LIMIT ?;
	`
	rows, err := r.db.QueryContext(ctx, q, room, room, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query round results: %v", err)
	}
	defer rows.Close()

	var results []*models.RoundResult
	for rows.Next() {
		result, err := scanSQLiteResult(rows)
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

func (r *SQLiteRepository) loadScores(ctx context.Context, result *models.RoundResult) error {
	q := `
	SELECT participant, score FROM round_scores WHERE result_id = ? ORDER BY participant;
	`
	rows, err := r.db.QueryContext(ctx, q, result.ID)
	if err != nil {
		return fmt.Errorf("failed to query scores: %v", err)
	}
	defer rows.Close()

	result.Scores = []models.ParticipantScore{}
	for rows.Next() {
		var score models.ParticipantScore
		if err := rows.Scan(&score.ParticipantID, &score.Score); err != nil {
			return fmt.Errorf("failed to scan score: %v", err)
		}
		result.Scores = append(result.Scores, score)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteResult(row rowScanner) (*models.RoundResult, error) {
	result := &models.RoundResult{}
	var endedAt int64
	if err := row.Scan(&result.ID, &result.Room, &result.Round, &result.Mode, &result.Reason, &endedAt); err != nil {
		return nil, err
	}
	result.EndedAt = time.UnixMilli(endedAt).UTC()
	return result, nil
}
