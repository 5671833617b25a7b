// Package model defines the clinical trial data types exchanged with the
// trial-matching service.
package model

// TrialRecord is the short form of a trial returned by a transcript upload.
type TrialRecord struct {
	NCTID         string `json:"nct_id"`
	Conditions    string `json:"conditions"`
	Interventions string `json:"interventions"`
}

// TrialID returns the nct_id.
func (t TrialRecord) TrialID() string { return t.NCTID }

// TrialDetail is the full record of a single trial.
type TrialDetail struct {
	NCTID                 string `json:"nct_id" yaml:"nct_id"`
	Acronym               string `json:"acronym" yaml:"acronym"`
	Title                 string `json:"title" yaml:"title"`
	PrimaryCompletionDate string `json:"primary_completion_date" yaml:"primary_completion_date"`
	StudyFirstPostDate    string `json:"study_first_post_date" yaml:"study_first_post_date"`
	LastUpdatePostDate    string `json:"last_update_post_date" yaml:"last_update_post_date"`
	StudyType             string `json:"study_type" yaml:"study_type"`
	Status                string `json:"status" yaml:"status"`
	Sponsor               string `json:"sponsor" yaml:"sponsor"`
	Conditions            string `json:"conditions" yaml:"conditions"`
	Interventions         string `json:"interventions" yaml:"interventions"`
	Locations             string `json:"locations" yaml:"locations"`
	Age                   string `json:"age" yaml:"age"`
	Sex                   string `json:"sex" yaml:"sex"`
	Phases                string `json:"phases" yaml:"phases"`
	EligibilityCriteria   string `json:"eligibility_criteria" yaml:"eligibility_criteria"`
}

// TrialID returns the nct_id.
func (t TrialDetail) TrialID() string { return t.NCTID }

// Record returns the short form of the detail.
func (t TrialDetail) Record() TrialRecord {
	return TrialRecord{NCTID: t.NCTID, Conditions: t.Conditions, Interventions: t.Interventions}
}

// TrialRanking is one entry of an AI relevance ranking.
type TrialRanking struct {
	NCTID          string  `json:"nct_id"`
	Explanation    string  `json:"explanation"`
	RelevanceScore float64 `json:"relevance_score"`
}

// TrialID returns the nct_id.
func (t TrialRanking) TrialID() string { return t.NCTID }

// PatientData is the structured summary extracted from a transcript.
type PatientData struct {
	PatientName        string   `json:"patient_name"`
	PatientDOB         string   `json:"patient_dob"`
	PatientGender      string   `json:"patient_gender"`
	ChiefComplaint     string   `json:"chief_complaint"`
	Conditions         []string `json:"conditions"`
	CurrentMedications []string `json:"current_medications"`
	Allergies          []string `json:"allergies"`
	PastMedicalHistory []string `json:"past_medical_history"`
	FamilyHistory      []string `json:"family_history"`
	SocialHistory      []string `json:"social_history"`
	TestResults        []string `json:"test_results"`
	Contradictions     []string `json:"contradictions"`
	ProposedPlan       string   `json:"proposed_plan"`
	Interventions      []string `json:"interventions"`
	Concerns           string   `json:"concerns"`
}

// ClinicalNotes is the response to a transcript upload.
type ClinicalNotes struct {
	ClinicalNotesID  string        `json:"clinical_notes_id"`
	PatientData      PatientData   `json:"patient_data"`
	Trials           []TrialRecord `json:"trials"`
	CreatedAt        string        `json:"created_at"`
	TotalTrialsFound int           `json:"total_trials_found"`
}

// AIAnswer is the answer to a free-form question about a trial.
type AIAnswer struct {
	NCTID  string `json:"nct_id"`
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// TranscriptRequest is the body of a transcript upload.
type TranscriptRequest struct {
	Transcript string `json:"transcript"`
}

// AskRequest is the body of an ask-AI call.
type AskRequest struct {
	ClinicalNotesID string `json:"clinical_notes_id"`
	NCTID           string `json:"nct_id"`
	Query           string `json:"query"`
}

// RankingResponse wraps a ranking.
type RankingResponse struct {
	Trials []TrialRanking `json:"trials"`
}

// SavedTrialsResponse wraps the saved trials list.
type SavedTrialsResponse struct {
	Trials []TrialDetail `json:"trials"`
}

// SaveResponse acknowledges a save or remove.
type SaveResponse struct {
	Message string `json:"message"`
	NCTID   string `json:"nct_id"`
}
