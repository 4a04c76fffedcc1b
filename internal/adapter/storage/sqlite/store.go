// Package sqlite implements the durable job store and queue on a single
// SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"videoq/internal/domain"
	"videoq/internal/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA foreign_keys = ON",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

func NewStore(dbPath string) (*Store, error) {
	registerHook()

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection for SQLite (WAL allows concurrent readers but only
	// one writer)
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const jobColumns = `id, job_type, status, input_files, output_files, config,
	created_at, started_at, completed_at, error_message, retry_count, progress`

func (s *Store) CreateJob(jobType domain.JobType, inputFiles []string, cfg domain.JobConfig) (int64, error) {
	if !jobType.Valid() {
		return 0, domain.NewConfigError("unknown job type: %s", jobType)
	}

	inputs, err := json.Marshal(inputFiles)
	if err != nil {
		return 0, fmt.Errorf("encode input files: %w", err)
	}
	config, err := domain.EncodeJobConfig(cfg)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		INSERT INTO jobs (job_type, status, input_files, config, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(jobType), string(domain.JobStatusPending), string(inputs), string(config), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	jobID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("job id: %w", err)
	}

	if err := insertLog(tx, jobID, domain.LogLevelInfo, fmt.Sprintf("Job created: %s", jobType)); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return jobID, nil
}

func (s *Store) GetJob(id int64) (*domain.Job, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return job, nil
}

func (s *Store) ListJobs(filter domain.JobStatus, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	var (
		rows *sql.Rows
		err  error
	)
	if filter != "" {
		rows, err = s.db.Query(`
			SELECT `+jobColumns+` FROM jobs
			WHERE status = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?`, string(filter), limit)
	} else {
		rows, err = s.db.Query(`
			SELECT `+jobColumns+` FROM jobs
			ORDER BY created_at DESC, id DESC
			LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus performs a partial update: only the supplied fields change.
// The derived log entry is appended in the same transaction so a status
// change and its audit record cannot diverge. started_at records the first
// ever start; a retry run does not overwrite it.
func (s *Store) UpdateJobStatus(id int64, status domain.JobStatus, upd domain.StatusUpdate) error {
	if !status.Valid() {
		return fmt.Errorf("invalid job status: %s", status)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sets := []string{"status = ?"}
	params := []any{string(status)}

	if upd.Progress != nil {
		sets = append(sets, "progress = ?")
		params = append(params, *upd.Progress)
	}
	if upd.OutputFiles != nil {
		outputs, err := json.Marshal(upd.OutputFiles)
		if err != nil {
			return fmt.Errorf("encode output files: %w", err)
		}
		sets = append(sets, "output_files = ?")
		params = append(params, string(outputs))
	}
	if upd.ErrorMessage != "" {
		sets = append(sets, "error_message = ?")
		params = append(params, upd.ErrorMessage)
	}

	now := time.Now().UTC()
	switch status {
	case domain.JobStatusRunning:
		sets = append(sets, "started_at = COALESCE(started_at, ?)")
		params = append(params, now)
	case domain.JobStatusCompleted, domain.JobStatusFailed:
		sets = append(sets, "completed_at = ?")
		params = append(params, now)
	}
	params = append(params, id)

	res, err := tx.Exec("UPDATE jobs SET "+strings.Join(sets, ", ")+" WHERE id = ?", params...)
	if err != nil {
		return fmt.Errorf("update job %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}

	message := fmt.Sprintf("Status updated: %s", status)
	if upd.Progress != nil {
		message = fmt.Sprintf("%s (%.1f%%)", message, *upd.Progress)
	}
	if err := insertLog(tx, id, domain.LogLevelInfo, message); err != nil {
		return err
	}
	if status == domain.JobStatusFailed && upd.ErrorMessage != "" {
		if err := insertLog(tx, id, domain.LogLevelError, upd.ErrorMessage); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpdateProgress records mid-run progress without touching status and
// without an audit entry; progress events are too frequent to log.
func (s *Store) UpdateProgress(id int64, progress float64) error {
	if _, err := s.db.Exec(`UPDATE jobs SET progress = ? WHERE id = ?`, progress, id); err != nil {
		return fmt.Errorf("update progress for job %d: %w", id, err)
	}
	return nil
}

func (s *Store) AddJobLog(id int64, level domain.LogLevel, message string) error {
	_, err := s.db.Exec(`
		INSERT INTO job_logs (job_id, timestamp, level, message)
		VALUES (?, ?, ?, ?)`,
		id, time.Now().UTC(), string(level), message)
	if err != nil {
		return fmt.Errorf("add log for job %d: %w", id, err)
	}
	return nil
}

func (s *Store) GetJobLogs(id int64) ([]domain.JobLogEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, job_id, timestamp, level, message
		FROM job_logs
		WHERE job_id = ?
		ORDER BY timestamp ASC, id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("get logs for job %d: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []domain.JobLogEntry
	for rows.Next() {
		var entry domain.JobLogEntry
		var level string
		if err := rows.Scan(&entry.ID, &entry.JobID, &entry.Timestamp, &level, &entry.Message); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		entry.Level = domain.LogLevel(level)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) IncrementRetryCount(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`UPDATE jobs SET retry_count = retry_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment retry count for job %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	if err := insertLog(tx, id, domain.LogLevelInfo, "Retry attempt incremented"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CleanupOldJobs deletes completed jobs finished before the cutoff. Failed
// jobs are kept indefinitely so their history stays available for manual
// retry. Log entries cascade with the job row.
func (s *Store) CleanupOldJobs(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.Exec(`
		DELETE FROM jobs
		WHERE status = ? AND completed_at < ?`,
		string(domain.JobStatusCompleted), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup rows affected: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job         domain.Job
		jobType     string
		status      string
		inputFiles  string
		outputFiles sql.NullString
		config      sql.NullString
	)
	err := row.Scan(&job.ID, &jobType, &status, &inputFiles, &outputFiles, &config,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.ErrorMessage,
		&job.RetryCount, &job.Progress)
	if err != nil {
		return nil, err
	}
	job.Type = domain.JobType(jobType)
	job.Status = domain.JobStatus(status)
	if err := json.Unmarshal([]byte(inputFiles), &job.InputFiles); err != nil {
		return nil, fmt.Errorf("decode input files: %w", err)
	}
	if outputFiles.Valid && outputFiles.String != "" {
		if err := json.Unmarshal([]byte(outputFiles.String), &job.OutputFiles); err != nil {
			return nil, fmt.Errorf("decode output files: %w", err)
		}
	}
	if config.Valid {
		job.Config = json.RawMessage(config.String)
	}
	return &job, nil
}

func insertLog(tx *sql.Tx, jobID int64, level domain.LogLevel, message string) error {
	_, err := tx.Exec(`
		INSERT INTO job_logs (job_id, timestamp, level, message)
		VALUES (?, ?, ?, ?)`,
		jobID, time.Now().UTC(), string(level), message)
	if err != nil {
		return fmt.Errorf("insert log for job %d: %w", jobID, err)
	}
	return nil
}

var _ port.JobStore = (*Store)(nil)
