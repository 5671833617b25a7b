package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rcliao/trialscout/internal/model"
)

// Operation names carried by RemoteError.Op.
const (
	OpUpload        = "upload transcript"
	OpClinicalNotes = "get clinical notes"
	OpDetail        = "get trial detail"
	OpRanking       = "get trial ranking"
	OpAskAI         = "ask ai"
	OpSave          = "save trial"
	OpRemove        = "remove saved trial"
	OpListSaved     = "list saved trials"
	OpHealth        = "healthcheck"
)

// UploadTranscript submits a transcript and returns the extracted notes and
// candidate trials.
func (c *Client) UploadTranscript(ctx context.Context, transcript string) (*model.ClinicalNotes, error) {
	var out model.ClinicalNotes
	err := c.call(ctx, OpUpload, http.MethodPost, "/api/v1/transcripts",
		model.TranscriptRequest{Transcript: transcript}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ClinicalNotes returns previously uploaded notes by ID.
func (c *Client) ClinicalNotes(ctx context.Context, clinicalNotesID string) (*model.ClinicalNotes, error) {
	var out model.ClinicalNotes
	err := c.call(ctx, OpClinicalNotes, http.MethodGet,
		"/api/v1/transcripts/"+url.PathEscape(clinicalNotesID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// TrialDetail returns the full record of one trial.
func (c *Client) TrialDetail(ctx context.Context, nctID string) (*model.TrialDetail, error) {
	var out model.TrialDetail
	err := c.call(ctx, OpDetail, http.MethodGet, "/api/v1/trials/"+url.PathEscape(nctID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Ranking returns the AI relevance ranking for the trials of a transcript.
func (c *Client) Ranking(ctx context.Context, clinicalNotesID string) ([]model.TrialRanking, error) {
	var out model.RankingResponse
	err := c.call(ctx, OpRanking, http.MethodGet,
		"/api/v1/transcripts/"+url.PathEscape(clinicalNotesID)+"/trials/ranking", nil, &out)
	if err != nil {
		return nil, err
	}
	return out.Trials, nil
}

// AskAI asks a free-form question about a trial in the context of a
// transcript.
func (c *Client) AskAI(ctx context.Context, clinicalNotesID, nctID, query string) (*model.AIAnswer, error) {
	var out model.AIAnswer
	err := c.call(ctx, OpAskAI, http.MethodPost, "/api/v1/trials/ask_ai", model.AskRequest{
		ClinicalNotesID: clinicalNotesID,
		NCTID:           nctID,
		Query:           query,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveTrial adds a trial to the saved set.
func (c *Client) SaveTrial(ctx context.Context, nctID string) (*model.SaveResponse, error) {
	var out model.SaveResponse
	err := c.call(ctx, OpSave, http.MethodPost, "/api/v1/trials/"+url.PathEscape(nctID)+"/save", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveSavedTrial removes a trial from the saved set.
func (c *Client) RemoveSavedTrial(ctx context.Context, nctID string) (*model.SaveResponse, error) {
	var out model.SaveResponse
	err := c.call(ctx, OpRemove, http.MethodDelete, "/api/v1/trials/"+url.PathEscape(nctID)+"/save", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SavedTrials lists the saved trials with their details.
func (c *Client) SavedTrials(ctx context.Context) ([]model.TrialDetail, error) {
	var out model.SavedTrialsResponse
	if err := c.call(ctx, OpListSaved, http.MethodGet, "/api/v1/trials/saved", nil, &out); err != nil {
		return nil, err
	}
	return out.Trials, nil
}

// Health checks that the service is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, OpHealth, http.MethodGet, "/", nil, nil)
}
