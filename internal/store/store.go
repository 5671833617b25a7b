// Package store provides SQLite persistence for the development trial
// service: the trial catalog, uploaded clinical notes and saved trials.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/trialscout/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// PutNotesParams holds parameters for storing uploaded clinical notes.
type PutNotesParams struct {
	Transcript string
	Patient    model.PatientData
	TrialIDs   []string
}

// Notes is a stored transcript upload.
type Notes struct {
	ID         string
	Transcript string
	Patient    model.PatientData
	TrialIDs   []string
	CreatedAt  time.Time
}

// SearchParams holds parameters for searching the catalog.
type SearchParams struct {
	// Terms are matched case-insensitively against conditions and
	// interventions. A trial matches when any term occurs.
	Terms []string
	Limit int
}

// SavedTrial is a saved trial with its save position.
type SavedTrial struct {
	Detail  model.TrialDetail
	SavedAt time.Time
}

// Store defines the dev server storage interface.
type Store interface {
	// PutNotes stores the notes of an upload and returns them with a new ID.
	PutNotes(ctx context.Context, p PutNotesParams) (*Notes, error)

	// GetNotes returns notes by ID, or ErrNotFound.
	GetNotes(ctx context.Context, id string) (*Notes, error)

	// UpsertTrial inserts or replaces a catalog entry.
	UpsertTrial(ctx context.Context, d model.TrialDetail) error

	// GetTrial returns a catalog entry, or ErrNotFound.
	GetTrial(ctx context.Context, nctID string) (*model.TrialDetail, error)

	// ListTrials returns the whole catalog ordered by nct_id.
	ListTrials(ctx context.Context) ([]model.TrialDetail, error)

	// SearchTrials returns catalog entries matching any of the terms.
	SearchTrials(ctx context.Context, p SearchParams) ([]model.TrialDetail, error)

	// SaveTrial adds a trial to the saved list. Saving an already saved
	// trial is a no-op; created reports whether a row was added.
	SaveTrial(ctx context.Context, d model.TrialDetail) (created bool, err error)

	// RemoveSaved removes a saved trial, or returns ErrNotFound.
	RemoveSaved(ctx context.Context, nctID string) error

	// ListSaved returns saved trials in the order they were saved.
	ListSaved(ctx context.Context) ([]SavedTrial, error)

	// Close closes the store.
	Close() error
}
