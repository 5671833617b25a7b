package devserver

import (
	"math"
	"sort"
	"strings"

	"github.com/rcliao/trialscout/internal/model"
)

// Ranking weights. A trial that matches every patient condition and
// intervention and is recruiting scores 10.
const (
	conditionWeight    = 0.6
	interventionWeight = 0.3
	recruitingWeight   = 0.1
)

// rank scores each trial against the patient and returns them by
// descending relevance. Ties keep the input order.
func rank(patient model.PatientData, trials []model.TrialDetail) []model.TrialRanking {
	out := make([]model.TrialRanking, 0, len(trials))
	for _, t := range trials {
		conds := overlap(splitTerms(t.Conditions), patient.Conditions)
		ints := overlap(splitTerms(t.Interventions), patient.Interventions)
		recruiting := strings.EqualFold(t.Status, "RECRUITING")

		score := conditionWeight*fraction(len(conds), len(splitTerms(t.Conditions))) +
			interventionWeight*fraction(len(ints), len(splitTerms(t.Interventions)))
		if recruiting {
			score += recruitingWeight
		}

		out = append(out, model.TrialRanking{
			NCTID:          t.NCTID,
			Explanation:    explain(conds, ints, recruiting),
			RelevanceScore: math.Round(score*100) / 10,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	return out
}

// overlap returns the trial terms also present in the patient terms.
func overlap(trial, patient []string) []string {
	var out []string
	for _, t := range trial {
		for _, p := range patient {
			if strings.EqualFold(t, p) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func fraction(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of)
}

func explain(conds, ints []string, recruiting bool) string {
	var parts []string
	if len(conds) > 0 {
		parts = append(parts, "matches conditions "+strings.Join(conds, ", "))
	}
	if len(ints) > 0 {
		parts = append(parts, "matches interventions "+strings.Join(ints, ", "))
	}
	if len(parts) == 0 {
		parts = append(parts, "no direct overlap with the patient's conditions or interventions")
	}
	s := strings.Join(parts, "; ")
	s = strings.ToUpper(s[:1]) + s[1:] + "."
	if recruiting {
		s += " Currently recruiting."
	}
	return s
}
