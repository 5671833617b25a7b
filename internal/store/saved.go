package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcliao/trialscout/internal/model"
)

func (s *SQLiteStore) SaveTrial(ctx context.Context, d model.TrialDetail) (bool, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return false, fmt.Errorf("encode trial: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO saved_trials (nct_id, seq, detail, saved_at)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM saved_trials), ?, ?)
		 ON CONFLICT(nct_id) DO NOTHING`,
		d.NCTID, string(b), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("save trial %s: %w", d.NCTID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) RemoveSaved(ctx context.Context, nctID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_trials WHERE nct_id = ?`, nctID)
	if err != nil {
		return fmt.Errorf("remove saved trial %s: %w", nctID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("saved trial %s: %w", nctID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListSaved(ctx context.Context) ([]SavedTrial, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT detail, saved_at FROM saved_trials ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	saved := []SavedTrial{}
	for rows.Next() {
		var savedAt string
		d, err := scanDetail(rows, &savedAt)
		if err != nil {
			return nil, err
		}
		t, _ := time.Parse(time.RFC3339Nano, savedAt)
		saved = append(saved, SavedTrial{Detail: d, SavedAt: t})
	}
	return saved, rows.Err()
}
