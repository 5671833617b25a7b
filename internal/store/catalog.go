package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/trialscout/internal/model"
)

func (s *SQLiteStore) UpsertTrial(ctx context.Context, d model.TrialDetail) error {
	if strings.TrimSpace(d.NCTID) == "" {
		return fmt.Errorf("trial without nct_id")
	}
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode trial: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trials (nct_id, conditions, interventions, status, detail, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(nct_id) DO UPDATE SET
		   conditions = excluded.conditions,
		   interventions = excluded.interventions,
		   status = excluded.status,
		   detail = excluded.detail,
		   updated_at = excluded.updated_at`,
		d.NCTID, d.Conditions, d.Interventions, d.Status, string(b),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert trial %s: %w", d.NCTID, err)
	}
	return nil
}

func (s *SQLiteStore) GetTrial(ctx context.Context, nctID string) (*model.TrialDetail, error) {
	row := s.db.QueryRowContext(ctx, `SELECT detail FROM trials WHERE nct_id = ?`, nctID)
	d, err := scanDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trial %s: %w", nctID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *SQLiteStore) ListTrials(ctx context.Context) ([]model.TrialDetail, error) {
	return s.queryTrials(ctx, `SELECT detail FROM trials ORDER BY nct_id`)
}

// SearchTrials finds trials whose conditions or interventions contain any
// of the terms. LIKE is case-insensitive for ASCII in SQLite.
func (s *SQLiteStore) SearchTrials(ctx context.Context, p SearchParams) ([]model.TrialDetail, error) {
	var where []string
	var args []interface{}
	for _, term := range p.Terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		like := "%" + escapeLike(term) + "%"
		where = append(where, `conditions LIKE ? ESCAPE '\' OR interventions LIKE ? ESCAPE '\'`)
		args = append(args, like, like)
	}
	if len(where) == 0 {
		return []model.TrialDetail{}, nil
	}

	query := `SELECT detail FROM trials WHERE ` + strings.Join(where, " OR ") + ` ORDER BY nct_id`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}
	return s.queryTrials(ctx, query, args...)
}

// ImportTrials upserts every trial and returns the number written.
func (s *SQLiteStore) ImportTrials(ctx context.Context, trials []model.TrialDetail) (int, error) {
	imported := 0
	for _, d := range trials {
		if err := s.UpsertTrial(ctx, d); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (s *SQLiteStore) queryTrials(ctx context.Context, query string, args ...interface{}) ([]model.TrialDetail, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trials := []model.TrialDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		trials = append(trials, d)
	}
	return trials, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
