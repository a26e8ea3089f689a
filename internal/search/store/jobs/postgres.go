package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"deepsearch/internal/search/models"
)

// Schema is the table backing the Postgres store. Result and questions are
// stored as JSONB: the job owns its result wholesale, so partial SQL-level
// updates are never needed.
const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id         TEXT PRIMARY KEY,
    status     TEXT NOT NULL,
    result     JSONB,
    error      TEXT NOT NULL DEFAULT '',
    questions  JSONB,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);`

// PostgresStore persists jobs in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects via the pgx stdlib driver and ensures the schema.
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := &PostgresStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgres wraps an existing connection, ensuring the schema. Used by
// tests that manage the database lifecycle themselves.
func NewPostgres(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	store := &PostgresStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure jobs schema: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Create(ctx context.Context, job *models.Job) error {
	resultJSON, questionsJSON, err := encodeJob(job)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO jobs (id, status, result, error, questions, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, string(job.Status), resultJSON, job.Error, questionsJSON,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, status, result, error, questions, created_at, updated_at
        FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update runs the read-modify-write inside one transaction with a row lock,
// so concurrent mutations serialize and readers never see a torn job.
func (s *PostgresStore) Update(ctx context.Context, id string, fn func(*models.Job) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
        SELECT id, status, result, error, questions, created_at, updated_at
        FROM jobs WHERE id = $1 FOR UPDATE`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock job: %w", err)
	}

	if err := fn(job); err != nil {
		return err
	}
	job.UpdatedAt = time.Now().UTC()

	resultJSON, questionsJSON, err := encodeJob(job)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
        UPDATE jobs SET status = $2, result = $3, error = $4, questions = $5, updated_at = $6
        WHERE id = $1`,
		job.ID, string(job.Status), resultJSON, job.Error, questionsJSON, job.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		job           models.Job
		status        string
		resultJSON    []byte
		questionsJSON []byte
	)
	if err := row.Scan(&job.ID, &status, &resultJSON, &job.Error, &questionsJSON, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.Status = models.JobStatus(status)
	if len(resultJSON) > 0 {
		var result models.Result
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("decode job result: %w", err)
		}
		job.Result = &result
	}
	if len(questionsJSON) > 0 {
		if err := json.Unmarshal(questionsJSON, &job.Questions); err != nil {
			return nil, fmt.Errorf("decode job questions: %w", err)
		}
	}
	return &job, nil
}

func encodeJob(job *models.Job) (resultJSON, questionsJSON []byte, err error) {
	if job.Result != nil {
		resultJSON, err = json.Marshal(job.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("encode job result: %w", err)
		}
	}
	if job.Questions != nil {
		questionsJSON, err = json.Marshal(job.Questions)
		if err != nil {
			return nil, nil, fmt.Errorf("encode job questions: %w", err)
		}
	}
	return resultJSON, questionsJSON, nil
}
