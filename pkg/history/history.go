// Package history keeps a SQLite journal of bank copies
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/james-see/octatools/pkg/octatrack"
	"github.com/james-see/octatools/pkg/transplant"
)

// ErrNotFound is returned when no journal entry has the requested id
var ErrNotFound = errors.New("history entry not found")

// Entry is one journaled bank copy
type Entry struct {
	ID          string             `json:"id" yaml:"id"`
	SrcProject  string             `json:"src_project" yaml:"src_project"`
	SrcBank     int                `json:"src_bank" yaml:"src_bank"`
	DestProject string             `json:"dest_project" yaml:"dest_project"`
	DestBank    int                `json:"dest_bank" yaml:"dest_bank"`
	State       transplant.State   `json:"state" yaml:"state"`
	Error       string             `json:"error,omitempty" yaml:"error,omitempty"`
	NewSlots    int                `json:"new_slots" yaml:"new_slots"`
	Transfers   int                `json:"transfers" yaml:"transfers"`
	StartedAt   time.Time          `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time          `json:"finished_at" yaml:"finished_at"`
	Report      *transplant.Report `json:"report,omitempty" yaml:"report,omitempty"`
}

// Store is a SQLite backed journal
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the journal location under the user's home directory
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".octatools", "history.db"), nil
}

// Open opens or creates the journal at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS bank_copies (
		id TEXT PRIMARY KEY,
		src_project TEXT NOT NULL,
		src_bank INTEGER NOT NULL,
		dest_project TEXT NOT NULL,
		dest_bank INTEGER NOT NULL,
		state TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		new_slots INTEGER NOT NULL DEFAULT 0,
		transfers INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		report BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bank_copies table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record journals a bank copy report
func (s *Store) Record(ctx context.Context, r *transplant.Report) error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("invalid report id %q: %w", r.ID, err)
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	var newSlots, transfers int
	if r.Plan != nil {
		newSlots = r.Plan.Count(octatrack.Static, transplant.NewSlot) + r.Plan.Count(octatrack.Flex, transplant.NewSlot)
		transfers = len(r.Plan.Transfers)
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO bank_copies
		(id, src_project, src_bank, dest_project, dest_bank, state, error, new_slots, transfers, started_at, finished_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Request.Src.Project, r.Request.Src.BankID, r.Request.Dest.Project, r.Request.Dest.BankID,
		string(r.State), r.Error, newSlots, transfers,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.FinishedAt.UTC().Format(time.RFC3339Nano), payload)
	if err != nil {
		return fmt.Errorf("insert bank copy: %w", err)
	}
	return nil
}

const selectColumns = `id, src_project, src_bank, dest_project, dest_bank, state, error, new_slots, transfers, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner, extra ...any) (*Entry, error) {
	var (
		e                 Entry
		state             string
		started, finished string
	)
	dest := append([]any{&e.ID, &e.SrcProject, &e.SrcBank, &e.DestProject, &e.DestBank, &state, &e.Error,
		&e.NewSlots, &e.Transfers, &started, &finished}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.State = transplant.State(state)
	var err error
	if e.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if e.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	return &e, nil
}

// List returns the most recent entries first, at most limit of them (all when limit <= 0)
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM bank_copies ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select bank copies: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Get returns one entry with its full report
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", id, ErrNotFound)
	}
	var payload []byte
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+`, report FROM bank_copies WHERE id = ?`, id)
	e, err := scanEntry(row, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Report = &transplant.Report{}
	if err := json.Unmarshal(payload, e.Report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return e, nil
}
