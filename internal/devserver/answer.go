package devserver

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rcliao/trialscout/internal/model"
)

// topic is a detail field that a question can ask about. Keywords ending in
// "*" match any word with that prefix.
type topic struct {
	label    string
	keywords []string
	value    func(model.TrialDetail) string
}

var topics = []topic{
	{"Eligibility criteria", []string{"eligib*", "criteria", "inclusion", "exclusion", "qualify", "qualifies", "enroll*"},
		func(d model.TrialDetail) string { return d.EligibilityCriteria }},
	{"Locations", []string{"where", "location*", "site*", "city", "cities", "near*"},
		func(d model.TrialDetail) string { return d.Locations }},
	{"Phase", []string{"phase*"},
		func(d model.TrialDetail) string { return d.Phases }},
	{"Status", []string{"status", "recruit*", "open", "active"},
		func(d model.TrialDetail) string { return d.Status }},
	{"Age", []string{"age", "ages", "old", "older", "young*", "years"},
		func(d model.TrialDetail) string { return d.Age }},
	{"Sex", []string{"sex", "gender", "male", "female", "women", "men", "woman", "man"},
		func(d model.TrialDetail) string { return d.Sex }},
	{"Sponsor", []string{"sponsor*", "fund*", "who"},
		func(d model.TrialDetail) string { return d.Sponsor }},
	{"Dates", []string{"when", "date*", "complet*", "start*", "posted", "updated", "timeline"},
		func(d model.TrialDetail) string {
			return fmt.Sprintf("first posted %s, last updated %s, primary completion %s",
				orUnknown(d.StudyFirstPostDate), orUnknown(d.LastUpdatePostDate), orUnknown(d.PrimaryCompletionDate))
		}},
	{"Interventions", []string{"intervention*", "drug*", "treatment*", "therap*", "dose*", "dosing", "medication*"},
		func(d model.TrialDetail) string { return d.Interventions }},
}

// answer replies to a question about a trial from the fields the question
// mentions, or with a summary when it mentions none.
func answer(d model.TrialDetail, patient model.PatientData, query string) string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var lines []string
	for _, t := range topics {
		if mentions(words, t.keywords) {
			lines = append(lines, t.label+": "+orUnknown(t.value(d))+".")
		}
	}
	if len(lines) == 0 {
		lines = append(lines, summary(d))
	}
	if conds := overlap(splitTerms(d.Conditions), patient.Conditions); len(conds) > 0 {
		lines = append(lines, "This patient has "+strings.Join(conds, ", ")+", which the trial studies.")
	}
	return strings.Join(lines, "\n")
}

func mentions(words, keywords []string) bool {
	for _, w := range words {
		for _, k := range keywords {
			if prefix, ok := strings.CutSuffix(k, "*"); ok {
				if strings.HasPrefix(w, prefix) {
					return true
				}
			} else if w == k {
				return true
			}
		}
	}
	return false
}

func summary(d model.TrialDetail) string {
	name := d.Title
	if d.Acronym != "" {
		name = d.Acronym + ": " + d.Title
	}
	return fmt.Sprintf("%s (%s) is a %s %s study of %s testing %s. Status: %s.",
		d.NCTID, orUnknown(name), strings.ToLower(orUnknown(d.StudyType)), orUnknown(d.Phases),
		orUnknown(d.Conditions), orUnknown(d.Interventions), orUnknown(d.Status))
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not reported"
	}
	return s
}
