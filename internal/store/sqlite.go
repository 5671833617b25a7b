package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/trialscout/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	mu      sync.Mutex // guards entropy
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// The special path ":memory:" opens a private in-memory database.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := dbPath + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)"
	if dbPath == ":memory:" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{
		db:      db,
		logger:  logger,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Debug("opened store", slog.String("path", dbPath))

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trials (
		nct_id        TEXT PRIMARY KEY,
		conditions    TEXT NOT NULL DEFAULT '',
		interventions TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT '',
		detail        TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clinical_notes (
		id          TEXT PRIMARY KEY,
		transcript  TEXT NOT NULL,
		patient     TEXT NOT NULL,
		trial_ids   TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notes_created ON clinical_notes(created_at DESC);

	CREATE TABLE IF NOT EXISTS saved_trials (
		nct_id    TEXT PRIMARY KEY,
		seq       INTEGER NOT NULL,
		detail    TEXT NOT NULL,
		saved_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_saved_seq ON saved_trials(seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) PutNotes(ctx context.Context, p PutNotesParams) (*Notes, error) {
	if strings.TrimSpace(p.Transcript) == "" {
		return nil, fmt.Errorf("empty transcript")
	}
	now := time.Now().UTC()
	id := s.newID()

	trialIDs := p.TrialIDs
	if trialIDs == nil {
		trialIDs = []string{}
	}
	patientJSON, err := json.Marshal(p.Patient)
	if err != nil {
		return nil, fmt.Errorf("encode patient: %w", err)
	}
	idsJSON, _ := json.Marshal(trialIDs)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO clinical_notes (id, transcript, patient, trial_ids, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, p.Transcript, string(patientJSON), string(idsJSON), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert clinical notes: %w", err)
	}

	return &Notes{
		ID:         id,
		Transcript: p.Transcript,
		Patient:    p.Patient,
		TrialIDs:   trialIDs,
		CreatedAt:  now,
	}, nil
}

func (s *SQLiteStore) GetNotes(ctx context.Context, id string) (*Notes, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, transcript, patient, trial_ids, created_at FROM clinical_notes WHERE id = ?`, id)

	var n Notes
	var patientJSON, idsJSON, createdAt string
	err := row.Scan(&n.ID, &n.Transcript, &patientJSON, &idsJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("clinical notes %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(patientJSON), &n.Patient); err != nil {
		return nil, fmt.Errorf("decode patient: %w", err)
	}
	if err := json.Unmarshal([]byte(idsJSON), &n.TrialIDs); err != nil {
		return nil, fmt.Errorf("decode trial ids: %w", err)
	}
	n.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDetail(row scanner, extra ...interface{}) (model.TrialDetail, error) {
	var d model.TrialDetail
	var detailJSON string
	if err := row.Scan(append([]interface{}{&detailJSON}, extra...)...); err != nil {
		return d, err
	}
	if err := json.Unmarshal([]byte(detailJSON), &d); err != nil {
		return d, fmt.Errorf("decode trial detail: %w", err)
	}
	return d, nil
}
