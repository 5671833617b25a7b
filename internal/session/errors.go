package session

import "errors"

var (
	// ErrEmptyQuery is returned when a question is blank. No remote call is made.
	ErrEmptyQuery = errors.New("empty query")

	// ErrEmptyTranscript is returned when an upload has no content.
	ErrEmptyTranscript = errors.New("empty transcript")

	// ErrAlreadyPending is returned when a mutation or question for the same
	// trial is still in flight.
	ErrAlreadyPending = errors.New("operation already pending")

	// ErrUnknownTrial is returned for an nct_id that is not part of the
	// current session.
	ErrUnknownTrial = errors.New("unknown trial")

	// ErrNoSession is returned by commands issued before a transcript is loaded.
	ErrNoSession = errors.New("no session loaded")
)
