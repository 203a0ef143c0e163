package domain

// Core Enums and Types

// BiomarkerStatus classifies a measured value against its reference range
type BiomarkerStatus string

const (
	StatusNormal       BiomarkerStatus = "NORMAL"
	StatusLow          BiomarkerStatus = "LOW"
	StatusHigh         BiomarkerStatus = "HIGH"
	StatusCriticalLow  BiomarkerStatus = "CRITICAL_LOW"
	StatusCriticalHigh BiomarkerStatus = "CRITICAL_HIGH"
)

// IsCritical reports whether the status breaches a critical threshold
func (s BiomarkerStatus) IsCritical() bool {
	return s == StatusCriticalLow || s == StatusCriticalHigh
}

// IsAbnormal reports whether the status is outside the normal range
func (s BiomarkerStatus) IsAbnormal() bool {
	return s != StatusNormal
}

// Direction collapses a status to the LOW/HIGH/NORMAL axis used in
// evidence items and rule matching
func (s BiomarkerStatus) Direction() BiomarkerStatus {
	switch s {
	case StatusCriticalLow:
		return StatusLow
	case StatusCriticalHigh:
		return StatusHigh
	default:
		return s
	}
}

// Severity represents the coarse urgency tier of a classification result
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityOrder = []Severity{SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical}

// Escalate returns the next-higher tier; CRITICAL stays CRITICAL
func (s Severity) Escalate() Severity {
	for i, tier := range severityOrder {
		if tier == s && i < len(severityOrder)-1 {
			return severityOrder[i+1]
		}
	}
	return s
}

// Rank returns the numeric position of the tier, LOW=0 .. CRITICAL=3
func (s Severity) Rank() int {
	for i, tier := range severityOrder {
		if tier == s {
			return i
		}
	}
	return 0
}

// DiseaseCategory identifies one of the nine fixed triage categories
type DiseaseCategory string

const (
	CategorySepsis            DiseaseCategory = "sepsis"
	CategoryCardiacEvent      DiseaseCategory = "cardiac_event"
	CategoryRenalFailure      DiseaseCategory = "renal_failure"
	CategoryLiverDisease      DiseaseCategory = "liver_disease"
	CategoryCoagulopathy      DiseaseCategory = "coagulopathy"
	CategoryMetabolicDisorder DiseaseCategory = "metabolic_disorder"
	CategoryInfection         DiseaseCategory = "infection"
	CategoryAnemia            DiseaseCategory = "anemia"
	CategoryNormal            DiseaseCategory = "normal"
)

// RuleDirection is the deviation direction a scoring rule requires
type RuleDirection string

const (
	RuleLow      RuleDirection = "low"
	RuleHigh     RuleDirection = "high"
	RuleAbnormal RuleDirection = "abnormal"
)

// Matches reports whether a biomarker status satisfies the rule direction
func (d RuleDirection) Matches(status BiomarkerStatus) bool {
	switch d {
	case RuleLow:
		return status == StatusLow || status == StatusCriticalLow
	case RuleHigh:
		return status == StatusHigh || status == StatusCriticalHigh
	case RuleAbnormal:
		return status.IsAbnormal()
	}
	return false
}

// Catalog Models

// BiomarkerDefinition is the immutable reference entry for one analyte.
// CriticalLow/CriticalHigh are optional; nil means no critical threshold
// is defined on that side.
type BiomarkerDefinition struct {
	ID           string   `json:"id"`
	Code         string   `json:"code"`
	DisplayName  string   `json:"display_name"`
	Unit         string   `json:"unit"`
	NormalLow    float64  `json:"normal_low"`
	NormalHigh   float64  `json:"normal_high"`
	CriticalLow  *float64 `json:"critical_low,omitempty"`
	CriticalHigh *float64 `json:"critical_high,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
}

// NormalMidpoint returns the midpoint of the normal reference range
func (d BiomarkerDefinition) NormalMidpoint() float64 {
	return (d.NormalLow + d.NormalHigh) / 2
}

// BiomarkerPanel maps canonical biomarker ids to submitted numeric values.
// A panel may be partial; ids are guaranteed canonical by the parser.
type BiomarkerPanel map[string]float64

// Scaled Panel Models

// ScaledEntry is one biomarker after range validation and scaling.
// NotMeasured entries were substituted by the scaler's fill policy and
// never produce warnings or evidence.
type ScaledEntry struct {
	BiomarkerID  string          `json:"biomarker_id"`
	Value        float64         `json:"value"`
	Scaled       float64         `json:"scaled"`
	Status       BiomarkerStatus `json:"status"`
	DeviationPct float64         `json:"deviation_pct"`
	NotMeasured  bool            `json:"not_measured"`
}

// ScaledPanel holds one entry per catalog biomarker, in catalog order
type ScaledPanel struct {
	Entries []ScaledEntry `json:"entries"`
}

// Entry returns the entry for a biomarker id
func (p *ScaledPanel) Entry(id string) (ScaledEntry, bool) {
	for _, e := range p.Entries {
		if e.BiomarkerID == id {
			return e, true
		}
	}
	return ScaledEntry{}, false
}

// Flag marks one measured, out-of-range biomarker
type Flag struct {
	BiomarkerID  string          `json:"biomarker_id"`
	Value        float64         `json:"value"`
	Status       BiomarkerStatus `json:"status"`
	DeviationPct float64         `json:"deviation_pct"`
}

// Classification Models

// CategoryProbability is one entry of the ordered probability breakdown
type CategoryProbability struct {
	Category    DiseaseCategory `json:"category"`
	Probability float64         `json:"probability"`
}

// Evidence is one biomarker supporting the winning category, ranked by
// deviation magnitude. Status is collapsed to LOW/HIGH/NORMAL.
type Evidence struct {
	BiomarkerID string          `json:"biomarker_id"`
	Value       float64         `json:"value"`
	Unit        string          `json:"unit"`
	Status      BiomarkerStatus `json:"status"`
	Magnitude   float64         `json:"magnitude"`
}

// Reference is a literature citation attached to a category
type Reference struct {
	Title    string `json:"title"`
	Section  string `json:"section"`
	Citation string `json:"citation"`
}

// ClassificationResult is the complete outcome of one classification.
// Probabilities are ordered by descending probability with category
// priority as the tie-break, and sum to 1.0.
type ClassificationResult struct {
	Category      DiseaseCategory       `json:"category"`
	Confidence    float64               `json:"confidence"`
	Severity      Severity              `json:"severity"`
	Probabilities []CategoryProbability `json:"probabilities"`
	Evidence      []Evidence            `json:"evidence"`
	Narrative     string                `json:"narrative"`
	References    []Reference           `json:"references,omitempty"`
}

// WarningSeverity is the level of a generated warning message
type WarningSeverity string

const (
	WarnCritical WarningSeverity = "CRITICAL"
	WarnWarning  WarningSeverity = "WARNING"
)

// Warning is a severity-tagged message derived from one flag
type Warning struct {
	BiomarkerID string          `json:"biomarker_id"`
	Severity    WarningSeverity `json:"severity"`
	Message     string          `json:"message"`
}

// PanelCompleteness reports which catalog fields were measured versus
// substituted, so callers can disclose "N of 24 found"
type PanelCompleteness struct {
	Measured  int      `json:"measured"`
	Total     int      `json:"total"`
	Defaulted []string `json:"defaulted,omitempty"`
}

// TriageResult is the full response of one triage request
type TriageResult struct {
	Classification *ClassificationResult `json:"classification"`
	Warnings       []Warning             `json:"warnings"`
	Completeness   PanelCompleteness     `json:"completeness"`
	FieldErrors    []FieldError          `json:"field_errors,omitempty"`
}
