package devserver

import (
	"sort"
	"strings"

	"github.com/rcliao/trialscout/internal/model"
)

// vocabulary is the set of condition and intervention terms in the catalog.
type vocabulary struct {
	conditions    []string
	interventions []string
}

func newVocabulary(trials []model.TrialDetail) vocabulary {
	conds := map[string]string{}
	ints := map[string]string{}
	for _, t := range trials {
		for _, c := range splitTerms(t.Conditions) {
			conds[strings.ToLower(c)] = c
		}
		for _, i := range splitTerms(t.Interventions) {
			ints[strings.ToLower(i)] = i
		}
	}
	return vocabulary{conditions: sortedValues(conds), interventions: sortedValues(ints)}
}

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// labeled transcript lines, e.g. "Allergies: penicillin".
var labels = map[string]string{
	"name":                 "name",
	"patient":              "name",
	"patient name":         "name",
	"dob":                  "dob",
	"date of birth":        "dob",
	"gender":               "gender",
	"sex":                  "gender",
	"chief complaint":      "complaint",
	"medications":          "medications",
	"current medications":  "medications",
	"allergies":            "allergies",
	"past medical history": "history",
	"history":              "history",
	"family history":       "family",
	"social history":       "social",
	"tests":                "tests",
	"test results":         "tests",
	"labs":                 "tests",
	"plan":                 "plan",
	"concerns":             "concerns",
}

// extract builds patient data from a free-text transcript. Conditions and
// interventions are the catalog terms that occur in the text.
func extract(transcript string, vocab vocabulary) model.PatientData {
	p := model.PatientData{
		Conditions:         []string{},
		CurrentMedications: []string{},
		Allergies:          []string{},
		PastMedicalHistory: []string{},
		FamilyHistory:      []string{},
		SocialHistory:      []string{},
		TestResults:        []string{},
		Contradictions:     []string{},
		Interventions:      []string{},
	}

	lower := strings.ToLower(transcript)
	for _, c := range vocab.conditions {
		if strings.Contains(lower, strings.ToLower(c)) {
			p.Conditions = append(p.Conditions, c)
		}
	}
	for _, i := range vocab.interventions {
		if strings.Contains(lower, strings.ToLower(i)) {
			p.Interventions = append(p.Interventions, i)
		}
	}

	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		field := labels[strings.ToLower(strings.TrimSpace(key))]
		value = strings.TrimSpace(value)
		if !ok || field == "" || value == "" {
			if p.ChiefComplaint == "" {
				p.ChiefComplaint = truncate(line, 200)
			}
			continue
		}
		switch field {
		case "name":
			p.PatientName = value
		case "dob":
			p.PatientDOB = value
		case "gender":
			p.PatientGender = value
		case "complaint":
			p.ChiefComplaint = truncate(value, 200)
		case "medications":
			p.CurrentMedications = append(p.CurrentMedications, splitTerms(value)...)
		case "allergies":
			p.Allergies = append(p.Allergies, splitTerms(value)...)
		case "history":
			p.PastMedicalHistory = append(p.PastMedicalHistory, splitTerms(value)...)
		case "family":
			p.FamilyHistory = append(p.FamilyHistory, splitTerms(value)...)
		case "social":
			p.SocialHistory = append(p.SocialHistory, splitTerms(value)...)
		case "tests":
			p.TestResults = append(p.TestResults, splitTerms(value)...)
		case "plan":
			p.ProposedPlan = value
		case "concerns":
			p.Concerns = value
		}
	}

	// A listed medication the patient is allergic to is flagged.
	for _, m := range p.CurrentMedications {
		for _, a := range p.Allergies {
			if strings.EqualFold(m, a) {
				p.Contradictions = append(p.Contradictions, "allergic to current medication "+m)
			}
		}
	}
	return p
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
