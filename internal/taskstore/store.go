// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package taskstore persists finished A2A research tasks in SQLite so a
// client can fetch a report again by session id and operators can list or
// export past research.
package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-agent/pkg/types"
)

// ErrTaskNotFound is returned by Get for an unknown task id.
var ErrTaskNotFound = errors.New("task not found")

// Status is the terminal state of a task.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Task is one research request and its outcome.
type Task struct {
	ID        string                `json:"id" yaml:"id"`
	Query     string                `json:"query" yaml:"query"`
	Mode      types.SearchMode      `json:"search_mode" yaml:"search_mode"`
	Status    Status                `json:"status" yaml:"status"`
	CreatedAt time.Time             `json:"created_at" yaml:"created_at"`
	Report    *types.ResearchReport `json:"report,omitempty" yaml:"report,omitempty"`
	Error     string                `json:"error,omitempty" yaml:"error,omitempty"`
}

const defaultListLimit = 20

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store manages the task SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at path, creating its directory
// and schema when missing.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			mode TEXT,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			report TEXT,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_mode ON tasks(mode)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save inserts t or replaces the task with the same id.
func (s *Store) Save(ctx context.Context, t Task) error {
	if t.ID == "" {
		return fmt.Errorf("task id is empty")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	var reportJSON sql.NullString
	if t.Report != nil {
		data, err := json.Marshal(t.Report)
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		reportJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, query, mode, status, created_at, report, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			query=excluded.query, mode=excluded.mode, status=excluded.status,
			created_at=excluded.created_at, report=excluded.report, error=excluded.error`,
		t.ID, t.Query, string(t.Mode), string(t.Status),
		t.CreatedAt.UTC().Format(timeLayout), reportJSON, t.Error,
	)
	if err != nil {
		return fmt.Errorf("saving task %s: %w", t.ID, err)
	}
	return nil
}

// Get returns the task with id, or ErrTaskNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, mode, status, created_at, report, error FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListOptions filters List. Zero values match everything.
type ListOptions struct {
	// Query matches tasks whose query contains this text (case-insensitive).
	Query string

	Mode   types.SearchMode
	Status Status

	// MaxResults caps the result count (default 20).
	MaxResults int
}

// List returns tasks matching opts, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Task, error) {
	var qb strings.Builder
	var args []any

	qb.WriteString(`SELECT id, query, mode, status, created_at, report, error FROM tasks WHERE 1=1`)
	if opts.Query != "" {
		qb.WriteString(` AND lower(query) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(opts.Query))+"%")
	}
	if opts.Mode != "" {
		qb.WriteString(` AND mode = ?`)
		args = append(args, string(opts.Mode))
	}
	if opts.Status != "" {
		qb.WriteString(` AND status = ?`)
		args = append(args, string(opts.Status))
	}

	limit := opts.MaxResults
	if limit <= 0 {
		limit = defaultListLimit
	}
	qb.WriteString(` ORDER BY created_at DESC, id LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var (
		t          Task
		mode       sql.NullString
		status     string
		createdAt  string
		reportJSON sql.NullString
		errText    sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Query, &mode, &status, &createdAt, &reportJSON, &errText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}
	t.Mode = types.SearchMode(mode.String)
	t.Status = Status(status)
	t.Error = errText.String
	if ts, err := time.Parse(timeLayout, createdAt); err == nil {
		t.CreatedAt = ts
	}
	if reportJSON.Valid && reportJSON.String != "" {
		var rep types.ResearchReport
		if err := json.Unmarshal([]byte(reportJSON.String), &rep); err != nil {
			return nil, fmt.Errorf("decoding report of task %s: %w", t.ID, err)
		}
		t.Report = &rep
	}
	return &t, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
