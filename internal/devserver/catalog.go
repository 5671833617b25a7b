package devserver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/trialscout/internal/model"
)

// Catalog is the YAML layout of a trial catalog file.
type Catalog struct {
	Trials []model.TrialDetail `yaml:"trials"`
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) ([]model.TrialDetail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, d := range c.Trials {
		if strings.TrimSpace(d.NCTID) == "" {
			return nil, fmt.Errorf("parse catalog: trial %d has no nct_id", i)
		}
	}
	return c.Trials, nil
}

// Importer writes trials into the catalog.
type Importer interface {
	ImportTrials(ctx context.Context, trials []model.TrialDetail) (int, error)
}

// Seed loads the catalog at path into st, or the built-in seed trials when
// path is empty.
func Seed(ctx context.Context, st Importer, path string) (int, error) {
	trials := SeedTrials()
	if path != "" {
		var err error
		if trials, err = LoadCatalog(path); err != nil {
			return 0, err
		}
	}
	return st.ImportTrials(ctx, trials)
}

// splitTerms splits a comma, semicolon or pipe separated list.
func splitTerms(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '|' })
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			terms = append(terms, p)
		}
	}
	return terms
}

// SeedTrials returns a small built-in catalog.
func SeedTrials() []model.TrialDetail {
	return []model.TrialDetail{
		{
			NCTID:                 "NCT04280705",
			Acronym:               "ACTT",
			Title:                 "Adaptive COVID-19 Treatment Trial",
			PrimaryCompletionDate: "2020-04-19",
			StudyFirstPostDate:    "2020-02-21",
			LastUpdatePostDate:    "2021-03-26",
			StudyType:             "INTERVENTIONAL",
			Status:                "COMPLETED",
			Sponsor:               "National Institute of Allergy and Infectious Diseases",
			Conditions:            "COVID-19, Pneumonia",
			Interventions:         "Remdesivir, Placebo",
			Locations:             "Omaha, Nebraska; Seattle, Washington",
			Age:                   "18 Years and older",
			Sex:                   "ALL",
			Phases:                "PHASE3",
			EligibilityCriteria:   "Inclusion: hospitalized adults with laboratory-confirmed SARS-CoV-2 infection. Exclusion: ALT or AST more than 5 times the upper limit of normal.",
		},
		{
			NCTID:                 "NCT05012345",
			Acronym:               "GLIDE",
			Title:                 "Semaglutide for Glycemic Control in Type 2 Diabetes",
			PrimaryCompletionDate: "2026-06-30",
			StudyFirstPostDate:    "2023-01-10",
			LastUpdatePostDate:    "2025-11-02",
			StudyType:             "INTERVENTIONAL",
			Status:                "RECRUITING",
			Sponsor:               "University Diabetes Consortium",
			Conditions:            "Type 2 Diabetes, Obesity",
			Interventions:         "Semaglutide, Metformin",
			Locations:             "Boston, Massachusetts; Chicago, Illinois",
			Age:                   "30 Years to 75 Years",
			Sex:                   "ALL",
			Phases:                "PHASE2, PHASE3",
			EligibilityCriteria:   "Inclusion: HbA1c between 7.0% and 10.5% on stable metformin. Exclusion: history of pancreatitis.",
		},
		{
			NCTID:                 "NCT05098765",
			Acronym:               "CALM-BP",
			Title:                 "Lisinopril Versus Amlodipine in Resistant Hypertension",
			PrimaryCompletionDate: "2027-01-15",
			StudyFirstPostDate:    "2024-03-05",
			LastUpdatePostDate:    "2025-09-18",
			StudyType:             "INTERVENTIONAL",
			Status:                "RECRUITING",
			Sponsor:               "Heartland Cardiology Network",
			Conditions:            "Hypertension, Chronic Kidney Disease",
			Interventions:         "Lisinopril, Amlodipine",
			Locations:             "Denver, Colorado",
			Age:                   "40 Years and older",
			Sex:                   "ALL",
			Phases:                "PHASE4",
			EligibilityCriteria:   "Inclusion: systolic blood pressure above 140 mmHg on three agents. Exclusion: pregnancy.",
		},
		{
			NCTID:                 "NCT04567890",
			Acronym:               "BREATHE",
			Title:                 "Inhaled Corticosteroid Step-Down in Mild Asthma",
			PrimaryCompletionDate: "2025-12-01",
			StudyFirstPostDate:    "2022-08-14",
			LastUpdatePostDate:    "2025-02-27",
			StudyType:             "INTERVENTIONAL",
			Status:                "ACTIVE_NOT_RECRUITING",
			Sponsor:               "Pulmonary Research Alliance",
			Conditions:            "Asthma",
			Interventions:         "Budesonide, Albuterol",
			Locations:             "Portland, Oregon; Austin, Texas",
			Age:                   "12 Years to 65 Years",
			Sex:                   "ALL",
			Phases:                "PHASE3",
			EligibilityCriteria:   "Inclusion: physician-diagnosed asthma controlled for 3 months. Exclusion: current smoker.",
		},
		{
			NCTID:                 "NCT05555555",
			Acronym:               "",
			Title:                 "Metformin and Exercise in Prediabetes",
			PrimaryCompletionDate: "2026-09-30",
			StudyFirstPostDate:    "2023-06-01",
			LastUpdatePostDate:    "2025-10-10",
			StudyType:             "INTERVENTIONAL",
			Status:                "RECRUITING",
			Sponsor:               "Community Health Institute",
			Conditions:            "Prediabetes, Obesity",
			Interventions:         "Metformin, Exercise Program",
			Locations:             "Atlanta, Georgia",
			Age:                   "25 Years to 70 Years",
			Sex:                   "FEMALE",
			Phases:                "PHASE2",
			EligibilityCriteria:   "Inclusion: fasting glucose 100 to 125 mg/dL. Exclusion: prior diagnosis of diabetes.",
		},
	}
}
