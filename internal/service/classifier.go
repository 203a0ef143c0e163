package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mediguard-triage-server/internal/catalog"
	"github.com/mediguard-triage-server/internal/domain"
)

// Classifier scores a scaled panel against the rule table and produces
// a ranked multi-label classification with supporting evidence.
type Classifier struct {
	catalog *catalog.Catalog
	rules   *RuleTable
	logger  *logrus.Logger

	criticalBoost float64
	evidenceTopK  int
}

// NewClassifier creates a classifier over the rule table
func NewClassifier(cat *catalog.Catalog, rules *RuleTable, cfg domain.EngineConfig, logger *logrus.Logger) *Classifier {
	boost := cfg.CriticalBoost
	if boost <= 0 {
		boost = 3.0
	}
	topK := cfg.EvidenceTopK
	if topK <= 0 {
		topK = 5
	}
	return &Classifier{
		catalog:       cat,
		rules:         rules,
		logger:        logger,
		criticalBoost: boost,
		evidenceTopK:  topK,
	}
}

// categoryScore is the outcome of evaluating one category's rules
type categoryScore struct {
	profile  *CategoryProfile
	raw      float64
	critical bool
}

// Classify evaluates every category against the panel and returns the
// winning category with its confidence, severity, full probability
// breakdown, top evidence and narrative. A panel with no firing rule
// classifies as normal with probability 1.
func (c *Classifier) Classify(panel *domain.ScaledPanel) *domain.ClassificationResult {
	scores := make([]categoryScore, 0, len(c.rules.Profiles()))
	total := 0.0

	for _, profile := range c.rules.Profiles() {
		score := c.evaluate(profile, panel)
		if score.critical {
			score.raw *= c.criticalBoost
		}
		total += score.raw
		scores = append(scores, score)
	}

	probabilities := make([]domain.CategoryProbability, 0, len(scores))
	for _, s := range scores {
		p := 0.0
		if total > 0 {
			p = s.raw / total
		} else if s.profile.Category == domain.CategoryNormal {
			p = 1.0
		}
		probabilities = append(probabilities, domain.CategoryProbability{
			Category:    s.profile.Category,
			Probability: p,
		})
	}

	// Descending probability; the scores slice is already in priority
	// order, so a stable sort breaks ties toward the higher priority
	sort.SliceStable(probabilities, func(i, j int) bool {
		return probabilities[i].Probability > probabilities[j].Probability
	})

	winner, _ := c.rules.Profile(probabilities[0].Category)
	severity := winner.Severity
	if total > 0 && c.winnerHasCritical(scores, winner.Category) {
		severity = severity.Escalate()
	}

	evidence := c.selectEvidence(winner, panel)
	result := &domain.ClassificationResult{
		Category:      winner.Category,
		Confidence:    probabilities[0].Probability,
		Severity:      severity,
		Probabilities: probabilities,
		Evidence:      evidence,
		Narrative:     c.narrative(winner, evidence),
		References:    winner.References,
	}

	c.logger.WithFields(logrus.Fields{
		"category":   result.Category,
		"confidence": result.Confidence,
		"severity":   result.Severity,
	}).Debug("Classified biomarker panel")

	return result
}

// evaluate sums the weights of the profile's firing rules. Entries
// filled from defaults never fire a rule.
func (c *Classifier) evaluate(profile *CategoryProfile, panel *domain.ScaledPanel) categoryScore {
	score := categoryScore{profile: profile}
	for _, rule := range profile.Rules {
		entry, ok := panel.Entry(rule.BiomarkerID)
		if !ok || entry.NotMeasured {
			continue
		}
		if !rule.Direction.Matches(entry.Status) {
			continue
		}
		if entry.DeviationPct <= rule.MinDeviation {
			continue
		}
		score.raw += rule.Weight
		if entry.Status.IsCritical() {
			score.critical = true
		}
	}
	return score
}

func (c *Classifier) winnerHasCritical(scores []categoryScore, category domain.DiseaseCategory) bool {
	for _, s := range scores {
		if s.profile.Category == category {
			return s.critical
		}
	}
	return false
}

// narrative appends the key findings to the category's template
func (c *Classifier) narrative(winner *CategoryProfile, evidence []domain.Evidence) string {
	if len(evidence) == 0 {
		return winner.Narrative
	}

	findings := make([]string, 0, len(evidence))
	for _, ev := range evidence {
		def, _ := c.catalog.Get(ev.BiomarkerID)
		findings = append(findings, fmt.Sprintf("%s is %s (%s %s)",
			def.Code, ev.Status, formatQuantity(ev.Value), def.Unit))
	}
	return winner.Narrative + " Key findings: " + strings.Join(findings, "; ") + "."
}

// selectEvidence picks the winning category's abnormal measured
// biomarkers, strongest deviation first, capped at the configured top K
func (c *Classifier) selectEvidence(winner *CategoryProfile, panel *domain.ScaledPanel) []domain.Evidence {
	ruleSet := make(map[string]bool, len(winner.Rules))
	for _, r := range winner.Rules {
		ruleSet[r.BiomarkerID] = true
	}

	var evidence []domain.Evidence
	for _, entry := range panel.Entries {
		if entry.NotMeasured || entry.Status == domain.StatusNormal || !ruleSet[entry.BiomarkerID] {
			continue
		}
		def, _ := c.catalog.Get(entry.BiomarkerID)
		evidence = append(evidence, domain.Evidence{
			BiomarkerID: entry.BiomarkerID,
			Value:       entry.Value,
			Unit:        def.Unit,
			Status:      entry.Status.Direction(),
			Magnitude:   entry.DeviationPct,
		})
	}

	// Entries come in catalog order, so equal magnitudes stay stable
	sort.SliceStable(evidence, func(i, j int) bool {
		return evidence[i].Magnitude > evidence[j].Magnitude
	})
	if len(evidence) > c.evidenceTopK {
		evidence = evidence[:c.evidenceTopK]
	}
	return evidence
}
