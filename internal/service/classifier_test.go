package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediguard-triage-server/internal/catalog"
	"github.com/mediguard-triage-server/internal/domain"
)

func newTestClassifier() *Classifier {
	cat := catalog.New()
	cfg := domain.EngineConfig{DeviationCeiling: 500, CriticalBoost: 3.0, EvidenceTopK: 5}
	return NewClassifier(cat, DefaultRuleTable(), cfg, testLogger())
}

func classifyPanel(t *testing.T, panel domain.BiomarkerPanel) *domain.ClassificationResult {
	t.Helper()
	scaler := newTestScaler()
	scaled, _, _, err := scaler.Scale(panel)
	require.NoError(t, err)
	return newTestClassifier().Classify(scaled)
}

func TestClassifier_AllNormalPanel(t *testing.T) {
	result := classifyPanel(t, domain.BiomarkerPanel{
		"hemoglobin": 14.5,
		"wbc_count":  7.2,
		"glucose":    95,
		"sodium":     138,
	})

	assert.Equal(t, domain.CategoryNormal, result.Category)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, domain.SeverityLow, result.Severity)
	assert.Empty(t, result.Evidence)

	// Full breakdown still lists every category
	require.Len(t, result.Probabilities, 9)
	assert.Equal(t, domain.CategoryNormal, result.Probabilities[0].Category)
	for _, p := range result.Probabilities[1:] {
		assert.Zero(t, p.Probability)
	}
}

func TestClassifier_SepsisPanel(t *testing.T) {
	result := classifyPanel(t, domain.BiomarkerPanel{
		"procalcitonin": 5.2,
		"lactate":       6.5,
		"wbc_count":     18.5,
		"hemoglobin":    8.5,
	})

	assert.Equal(t, domain.CategorySepsis, result.Category)
	assert.Greater(t, result.Confidence, 0.8)
	assert.Equal(t, domain.SeverityCritical, result.Severity)
	assert.Equal(t, domain.CategorySepsis, result.Probabilities[0].Category)

	// Evidence is the winning category's abnormal markers, strongest first
	require.NotEmpty(t, result.Evidence)
	assert.Equal(t, "procalcitonin", result.Evidence[0].BiomarkerID)
	for i := 1; i < len(result.Evidence); i++ {
		assert.GreaterOrEqual(t, result.Evidence[i-1].Magnitude, result.Evidence[i].Magnitude)
	}

	assert.Contains(t, result.Narrative, "Key findings: ")
	assert.Contains(t, result.Narrative, "PCT is HIGH")
	require.NotEmpty(t, result.References)
	assert.Contains(t, result.References[0].Citation, "Intensive Care Med")
}

func TestClassifier_CardiacPanel(t *testing.T) {
	result := classifyPanel(t, domain.BiomarkerPanel{
		"troponin": 0.8,
		"bnp":      950,
		"ldh":      520,
	})

	assert.Equal(t, domain.CategoryCardiacEvent, result.Category)
	assert.Equal(t, domain.SeverityCritical, result.Severity)
}

func TestClassifier_RenalPanel(t *testing.T) {
	result := classifyPanel(t, domain.BiomarkerPanel{
		"creatinine": 4.5,
		"bun":        62,
		"potassium":  5.9,
	})

	assert.Equal(t, domain.CategoryRenalFailure, result.Category)
	assert.Equal(t, domain.SeverityHigh, result.Severity)
}

func TestClassifier_AnemiaPanel(t *testing.T) {
	result := classifyPanel(t, domain.BiomarkerPanel{
		"hemoglobin": 8.5,
	})

	assert.Equal(t, domain.CategoryAnemia, result.Category)
	assert.Equal(t, domain.SeverityModerate, result.Severity)
}

func TestClassifier_SeverityEscalatesOnCriticalEvidence(t *testing.T) {
	// Hemoglobin below its critical bound escalates anemia one tier
	result := classifyPanel(t, domain.BiomarkerPanel{
		"hemoglobin": 6.0,
	})

	assert.Equal(t, domain.CategoryAnemia, result.Category)
	assert.Equal(t, domain.SeverityHigh, result.Severity)
}

func TestClassifier_DefaultedBiomarkersNeverFire(t *testing.T) {
	// Troponin is filled from the midpoint when absent and the cardiac
	// rules must not see it
	result := classifyPanel(t, domain.BiomarkerPanel{
		"hemoglobin": 8.5,
	})

	for _, p := range result.Probabilities {
		if p.Category == domain.CategoryCardiacEvent {
			assert.Zero(t, p.Probability)
		}
	}
}

func TestClassifier_ProbabilitiesSumToOne(t *testing.T) {
	result := classifyPanel(t, domain.BiomarkerPanel{
		"procalcitonin": 5.2,
		"lactate":       6.5,
		"wbc_count":     18.5,
		"hemoglobin":    8.5,
	})

	sum := 0.0
	for _, p := range result.Probabilities {
		sum += p.Probability
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestClassifier_PriorityBreaksTies(t *testing.T) {
	// Craft equal raw scores for two categories: glucose high fires
	// metabolic (weight 6) and crp high fires infection at low
	// deviation (weight 2); instead use direct profile comparison
	table := DefaultRuleTable()
	sepsis, _ := table.Profile(domain.CategorySepsis)
	cardiac, _ := table.Profile(domain.CategoryCardiacEvent)
	assert.Less(t, sepsis.Priority, cardiac.Priority)

	// Deterministic repeated classification
	panel := domain.BiomarkerPanel{"procalcitonin": 5.2, "lactate": 6.5}
	first := classifyPanel(t, panel)
	for i := 0; i < 5; i++ {
		again := classifyPanel(t, panel)
		assert.Equal(t, first.Category, again.Category)
		assert.Equal(t, first.Probabilities, again.Probabilities)
	}
}

func TestClassifier_EvidenceCappedAtTopK(t *testing.T) {
	cat := catalog.New()
	cfg := domain.EngineConfig{DeviationCeiling: 500, CriticalBoost: 3.0, EvidenceTopK: 2}
	classifier := NewClassifier(cat, DefaultRuleTable(), cfg, testLogger())

	scaler := newTestScaler()
	scaled, _, _, err := scaler.Scale(domain.BiomarkerPanel{
		"procalcitonin": 5.2,
		"lactate":       6.5,
		"wbc_count":     18.5,
		"crp":           180,
	})
	require.NoError(t, err)

	result := classifier.Classify(scaled)
	assert.Equal(t, domain.CategorySepsis, result.Category)
	assert.Len(t, result.Evidence, 2)
}

func TestRuleTable_ValidateAgainstCatalog(t *testing.T) {
	require.NoError(t, DefaultRuleTable().Validate(catalog.New()))

	broken := NewRuleTable([]*CategoryProfile{
		{
			Category: domain.CategorySepsis,
			Severity: domain.SeverityCritical,
			Priority: 1,
			Rules:    []CategoryRule{{BiomarkerID: "missing", Direction: domain.RuleHigh, Weight: 1}},
		},
	})

	var catErr *domain.CatalogError
	require.ErrorAs(t, broken.Validate(catalog.New()), &catErr)
	assert.Equal(t, "missing", catErr.BiomarkerID)
}
