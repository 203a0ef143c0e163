package service

import (
	"sort"

	"github.com/mediguard-triage-server/internal/catalog"
	"github.com/mediguard-triage-server/internal/domain"
)

// CategoryRule is one weighted firing condition: it contributes its
// weight to the category score when the biomarker's status matches the
// direction and its deviation strictly exceeds the threshold.
type CategoryRule struct {
	BiomarkerID  string
	Direction    domain.RuleDirection
	MinDeviation float64
	Weight       float64
}

// CategoryProfile bundles a disease category's rules with its intrinsic
// severity, its priority for tie-breaking (lower wins) and its
// narrative and literature references.
type CategoryProfile struct {
	Category   domain.DiseaseCategory
	Severity   domain.Severity
	Priority   int
	Rules      []CategoryRule
	Narrative  string
	References []domain.Reference
}

// RuleTable holds the profiles for every disease category
type RuleTable struct {
	profiles map[domain.DiseaseCategory]*CategoryProfile
	ordered  []*CategoryProfile
}

// NewRuleTable builds a table from profiles, ordered by priority
func NewRuleTable(profiles []*CategoryProfile) *RuleTable {
	t := &RuleTable{profiles: make(map[domain.DiseaseCategory]*CategoryProfile, len(profiles))}
	for _, p := range profiles {
		t.profiles[p.Category] = p
	}
	t.ordered = make([]*CategoryProfile, len(profiles))
	copy(t.ordered, profiles)
	sort.SliceStable(t.ordered, func(i, j int) bool {
		return t.ordered[i].Priority < t.ordered[j].Priority
	})
	return t
}

// Profile returns the profile for a category
func (t *RuleTable) Profile(category domain.DiseaseCategory) (*CategoryProfile, bool) {
	p, ok := t.profiles[category]
	return p, ok
}

// Profiles returns all profiles in priority order
func (t *RuleTable) Profiles() []*CategoryProfile {
	return t.ordered
}

// Validate checks that every rule references a cataloged biomarker
func (t *RuleTable) Validate(cat *catalog.Catalog) error {
	for _, p := range t.ordered {
		for _, r := range p.Rules {
			if _, ok := cat.Get(r.BiomarkerID); !ok {
				return domain.NewCatalogError(r.BiomarkerID,
					"rule for category "+string(p.Category)+" references unknown biomarker")
			}
		}
	}
	return nil
}

// DefaultRuleTable returns the built-in clinical rule set. Deviation
// thresholds are percentages of the violated reference bound and are
// strict: a rule fires only above its threshold.
func DefaultRuleTable() *RuleTable {
	return NewRuleTable([]*CategoryProfile{
		{
			Category: domain.CategorySepsis,
			Severity: domain.SeverityCritical,
			Priority: 1,
			Rules: []CategoryRule{
				{BiomarkerID: "procalcitonin", Direction: domain.RuleHigh, MinDeviation: 100, Weight: 10},
				{BiomarkerID: "lactate", Direction: domain.RuleHigh, MinDeviation: 50, Weight: 8},
				{BiomarkerID: "wbc_count", Direction: domain.RuleAbnormal, MinDeviation: 5, Weight: 5},
				{BiomarkerID: "crp", Direction: domain.RuleHigh, MinDeviation: 400, Weight: 2},
			},
			Narrative: "Markedly elevated procalcitonin with hyperlactatemia indicates a dysregulated host response to infection with tissue hypoperfusion. Immediate sepsis workup and source control are warranted.",
			References: []domain.Reference{
				{Title: "Surviving Sepsis Campaign Guidelines", Section: "Biomarker-Guided Diagnosis", Citation: "Rhodes A, et al. Intensive Care Med. 2017;43(3):304-377"},
				{Title: "Sepsis-3 Consensus Definitions", Section: "Diagnostic Criteria", Citation: "Singer M, et al. JAMA. 2016;315(8):801-810"},
			},
		},
		{
			Category: domain.CategoryCardiacEvent,
			Severity: domain.SeverityCritical,
			Priority: 2,
			Rules: []CategoryRule{
				{BiomarkerID: "troponin", Direction: domain.RuleHigh, MinDeviation: 0, Weight: 10},
				{BiomarkerID: "bnp", Direction: domain.RuleHigh, MinDeviation: 250, Weight: 6},
				{BiomarkerID: "ldh", Direction: domain.RuleHigh, MinDeviation: 70, Weight: 4},
			},
			Narrative: "Elevated cardiac troponin indicates myocardial injury. Together with natriuretic peptide elevation this pattern is consistent with an acute cardiac event and requires urgent cardiology evaluation.",
			References: []domain.Reference{
				{Title: "Fourth Universal Definition of Myocardial Infarction", Section: "Troponin in Acute MI", Citation: "Thygesen K, et al. Circulation. 2018;138(20):e618-e651"},
				{Title: "Heart Failure Biomarkers", Section: "BNP and NT-proBNP", Citation: "Januzzi JL, et al. J Am Coll Cardiol. 2019;73(9):1086-1099"},
			},
		},
		{
			Category: domain.CategoryRenalFailure,
			Severity: domain.SeverityHigh,
			Priority: 3,
			Rules: []CategoryRule{
				{BiomarkerID: "creatinine", Direction: domain.RuleHigh, MinDeviation: 50, Weight: 8},
				{BiomarkerID: "bun", Direction: domain.RuleHigh, MinDeviation: 90, Weight: 6},
				{BiomarkerID: "potassium", Direction: domain.RuleHigh, MinDeviation: 8, Weight: 4},
			},
			Narrative: "Rising creatinine and urea with potassium retention indicates significant renal impairment. Assess for acute kidney injury and review nephrotoxic exposures.",
			References: []domain.Reference{
				{Title: "KDIGO Acute Kidney Injury Guidelines", Section: "AKI Diagnosis", Citation: "KDIGO AKI Work Group. Kidney Int Suppl. 2012;2(1):1-138"},
			},
		},
		{
			Category: domain.CategoryLiverDisease,
			Severity: domain.SeverityHigh,
			Priority: 4,
			Rules: []CategoryRule{
				{BiomarkerID: "alt", Direction: domain.RuleHigh, MinDeviation: 250, Weight: 6},
				{BiomarkerID: "ast", Direction: domain.RuleHigh, MinDeviation: 350, Weight: 6},
				{BiomarkerID: "bilirubin_total", Direction: domain.RuleHigh, MinDeviation: 60, Weight: 5},
				{BiomarkerID: "albumin", Direction: domain.RuleLow, MinDeviation: 12, Weight: 4},
				{BiomarkerID: "inr", Direction: domain.RuleHigh, MinDeviation: 20, Weight: 2},
			},
			Narrative: "Transaminase elevation with hyperbilirubinemia indicates hepatocellular injury. Falling albumin and prolonged INR point to impaired synthetic function.",
			References: []domain.Reference{
				{Title: "Acute Liver Failure Diagnosis", Section: "Laboratory Markers", Citation: "European Association for Study of Liver. J Hepatol. 2017;66(5):1047-1081"},
			},
		},
		{
			Category: domain.CategoryCoagulopathy,
			Severity: domain.SeverityHigh,
			Priority: 5,
			Rules: []CategoryRule{
				{BiomarkerID: "inr", Direction: domain.RuleHigh, MinDeviation: 60, Weight: 6},
				{BiomarkerID: "d_dimer", Direction: domain.RuleHigh, MinDeviation: 250, Weight: 5},
				{BiomarkerID: "platelet_count", Direction: domain.RuleLow, MinDeviation: 30, Weight: 5},
			},
			Narrative: "Prolonged INR with thrombocytopenia and D-dimer elevation suggests a consumptive coagulopathy. Evaluate for disseminated intravascular coagulation.",
			References: []domain.Reference{
				{Title: "Coagulation Disorders in Critical Care", Section: "DIC and Thrombosis", Citation: "Levi M, et al. N Engl J Med. 2019;381(23):2230-2241"},
			},
		},
		{
			Category: domain.CategoryMetabolicDisorder,
			Severity: domain.SeverityModerate,
			Priority: 6,
			Rules: []CategoryRule{
				{BiomarkerID: "glucose", Direction: domain.RuleHigh, MinDeviation: 40, Weight: 6},
				{BiomarkerID: "glucose", Direction: domain.RuleLow, MinDeviation: 12, Weight: 6},
				{BiomarkerID: "sodium", Direction: domain.RuleAbnormal, MinDeviation: 3, Weight: 5},
				{BiomarkerID: "calcium", Direction: domain.RuleLow, MinDeviation: 15, Weight: 5},
				{BiomarkerID: "calcium", Direction: domain.RuleHigh, MinDeviation: 4, Weight: 5},
			},
			Narrative: "Glucose or electrolyte derangement outside the reference interval indicates a metabolic disturbance. Correlate with hydration status and endocrine history.",
			References: []domain.Reference{
				{Title: "Diabetic Emergencies", Section: "Hyperglycemia and DKA", Citation: "American Diabetes Association. Diabetes Care. 2020;43(Suppl 1):S66-S76"},
				{Title: "Electrolyte Disturbances", Section: "Hyponatremia", Citation: "Spasovski G, et al. Eur J Endocrinol. 2014;170(3):G1-G47"},
			},
		},
		{
			Category: domain.CategoryInfection,
			Severity: domain.SeverityModerate,
			Priority: 7,
			Rules: []CategoryRule{
				{BiomarkerID: "wbc_count", Direction: domain.RuleHigh, MinDeviation: 0, Weight: 2},
				{BiomarkerID: "crp", Direction: domain.RuleHigh, MinDeviation: 0, Weight: 2},
				{BiomarkerID: "esr", Direction: domain.RuleHigh, MinDeviation: 0, Weight: 1},
				{BiomarkerID: "procalcitonin", Direction: domain.RuleHigh, MinDeviation: 0, Weight: 1},
			},
			Narrative: "Leukocytosis with elevated inflammatory markers indicates an active infectious or inflammatory process without current evidence of systemic compromise.",
			References: []domain.Reference{
				{Title: "Inflammatory Markers in Infection", Section: "CRP and ESR", Citation: "Povoa P. Crit Care. 2002;6(5):396-399"},
			},
		},
		{
			Category: domain.CategoryAnemia,
			Severity: domain.SeverityModerate,
			Priority: 8,
			Rules: []CategoryRule{
				{BiomarkerID: "hemoglobin", Direction: domain.RuleLow, MinDeviation: 10, Weight: 5},
				{BiomarkerID: "hemoglobin", Direction: domain.RuleLow, MinDeviation: 40, Weight: 4},
			},
			Narrative: "Hemoglobin below the reference interval indicates anemia. Severity below 7 g/dL warrants transfusion consideration.",
			References: []domain.Reference{
				{Title: "Anemia Classification and Management", Section: "Severe Anemia", Citation: "WHO. Haemoglobin concentrations for the diagnosis of anaemia. 2011"},
			},
		},
		{
			Category: domain.CategoryNormal,
			Severity: domain.SeverityLow,
			Priority: 9,
			Rules:    nil,
			Narrative: "All measured biomarkers fall within their reference intervals. No triage action indicated.",
			References: []domain.Reference{
				{Title: "Reference Ranges in Clinical Chemistry", Section: "Normal Biomarker Ranges", Citation: "Kratz A, et al. N Engl J Med. 2004;351(15):1548-1563"},
			},
		},
	})
}
