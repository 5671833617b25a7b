package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/trialscout/internal/model"
	"github.com/rcliao/trialscout/internal/store"
)

const diabetesTranscript = "Follow-up for blood sugar.\nThe patient has type 2 diabetes and obesity and takes metformin."

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "dev.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = Seed(context.Background(), st, "")
	require.NoError(t, err)

	srv := httptest.NewServer(New(st, Options{}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func upload(t *testing.T, srv *httptest.Server, transcript string) model.ClinicalNotes {
	t.Helper()
	var notes model.ClinicalNotes
	code := doJSON(t, http.MethodPost, srv.URL+"/api/v1/transcripts", model.TranscriptRequest{Transcript: transcript}, &notes)
	require.Equal(t, http.StatusCreated, code)
	return notes
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	var out map[string]string
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/", nil, &out))
	assert.Equal(t, "ok", out["status"])

	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, srv.URL+"/nope", nil, nil))
}

func TestUploadTranscript(t *testing.T) {
	srv := newTestServer(t)
	notes := upload(t, srv, diabetesTranscript)

	assert.Len(t, notes.ClinicalNotesID, 26)
	assert.Equal(t, "Follow-up for blood sugar.", notes.PatientData.ChiefComplaint)
	assert.ElementsMatch(t, []string{"Obesity", "Type 2 Diabetes"}, notes.PatientData.Conditions)
	assert.NotEmpty(t, notes.CreatedAt)

	var ids []string
	for _, tr := range notes.Trials {
		ids = append(ids, tr.NCTID)
	}
	assert.Equal(t, []string{"NCT05012345", "NCT05555555"}, ids)
	assert.Equal(t, 2, notes.TotalTrialsFound)
	assert.Equal(t, "Type 2 Diabetes, Obesity", notes.Trials[0].Conditions)

	var again model.ClinicalNotes
	code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/transcripts/"+notes.ClinicalNotesID, nil, &again)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, notes, again)
}

func TestUploadRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	var out map[string]string
	code := doJSON(t, http.MethodPost, srv.URL+"/api/v1/transcripts", model.TranscriptRequest{Transcript: "  "}, &out)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "transcript is required", out["detail"])

	resp, err := http.Post(srv.URL+"/api/v1/transcripts", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadWithoutMatches(t *testing.T) {
	srv := newTestServer(t)
	notes := upload(t, srv, "Routine physical, no complaints.")
	assert.Empty(t, notes.Trials)
	assert.NotNil(t, notes.Trials)
	assert.Equal(t, 0, notes.TotalTrialsFound)
}

func TestTrialDetail(t *testing.T) {
	srv := newTestServer(t)

	var d model.TrialDetail
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, srv.URL+"/api/v1/trials/NCT04280705", nil, &d))
	assert.Equal(t, "ACTT", d.Acronym)

	var out map[string]string
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, srv.URL+"/api/v1/trials/NCT00000000", nil, &out))
	assert.Contains(t, out["detail"], "NCT00000000")
}

func TestRanking(t *testing.T) {
	srv := newTestServer(t)
	notes := upload(t, srv, diabetesTranscript)

	var rr model.RankingResponse
	code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/transcripts/"+notes.ClinicalNotesID+"/trials/ranking", nil, &rr)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, rr.Trials, 2)
	assert.Equal(t, "NCT05012345", rr.Trials[0].NCTID)
	assert.GreaterOrEqual(t, rr.Trials[0].RelevanceScore, rr.Trials[1].RelevanceScore)
	for _, r := range rr.Trials {
		assert.GreaterOrEqual(t, r.RelevanceScore, 0.0)
		assert.LessOrEqual(t, r.RelevanceScore, 10.0)
		assert.NotEmpty(t, r.Explanation)
	}

	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, srv.URL+"/api/v1/transcripts/missing/trials/ranking", nil, nil))
}

func TestAskAI(t *testing.T) {
	srv := newTestServer(t)
	notes := upload(t, srv, diabetesTranscript)
	url := srv.URL + "/api/v1/trials/ask_ai"

	var a model.AIAnswer
	code := doJSON(t, http.MethodPost, url, model.AskRequest{
		ClinicalNotesID: notes.ClinicalNotesID, NCTID: "NCT05012345", Query: " What phase is it? ",
	}, &a)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "NCT05012345", a.NCTID)
	assert.Equal(t, "What phase is it?", a.Query)
	assert.Contains(t, a.Answer, "Phase: PHASE2, PHASE3")

	tests := []struct {
		name string
		req  model.AskRequest
		want int
	}{
		{"empty query", model.AskRequest{ClinicalNotesID: notes.ClinicalNotesID, NCTID: "NCT05012345", Query: " "}, http.StatusBadRequest},
		{"unknown notes", model.AskRequest{ClinicalNotesID: "missing", NCTID: "NCT05012345", Query: "phase"}, http.StatusNotFound},
		{"unknown trial", model.AskRequest{ClinicalNotesID: notes.ClinicalNotesID, NCTID: "NCT0", Query: "phase"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, doJSON(t, http.MethodPost, url, tt.req, nil))
		})
	}
}

func TestSaveRemoveList(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/trials/"

	var sr model.SaveResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, base+"NCT05098765/save", nil, &sr))
	assert.Equal(t, "Trial saved", sr.Message)
	assert.Equal(t, "NCT05098765", sr.NCTID)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, base+"NCT04280705/save", nil, &sr))
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, base+"NCT05098765/save", nil, &sr))
	assert.Equal(t, "Trial already saved", sr.Message)

	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodPost, base+"NCT0/save", nil, nil))

	var list model.SavedTrialsResponse
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"saved", nil, &list))
	require.Len(t, list.Trials, 2)
	assert.Equal(t, "NCT05098765", list.Trials[0].NCTID)
	assert.Equal(t, "Lisinopril, Amlodipine", list.Trials[0].Interventions)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodDelete, base+"NCT05098765/save", nil, &sr))
	assert.Equal(t, "Trial removed", sr.Message)
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodDelete, base+"NCT05098765/save", nil, nil))

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"saved", nil, &list))
	require.Len(t, list.Trials, 1)
	assert.Equal(t, "NCT04280705", list.Trials[0].NCTID)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodGet, srv.URL+"/api/v1/trials/NCT04280705", nil, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `trialscout_devserver_requests_total{code="200",route="GET /api/v1/trials/{nct_id}"} 1`)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`trials:
  - nct_id: NCT09999999
    title: Custom Trial
    conditions: Migraine
    interventions: Erenumab
    status: RECRUITING
`), 0o644))

	trials, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, trials, 1)
	assert.Equal(t, "Custom Trial", trials[0].Title)

	st, err := store.NewSQLiteStore(":memory:", nil)
	require.NoError(t, err)
	defer st.Close()
	n, err := Seed(context.Background(), st, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("trials:\n  - title: no id\n"), 0o644))
	_, err = LoadCatalog(bad)
	assert.Error(t, err)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
