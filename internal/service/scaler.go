package service

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/mediguard-triage-server/internal/catalog"
	"github.com/mediguard-triage-server/internal/domain"
)

// Fill policies for biomarkers missing from the input panel
const (
	FillMidpoint = "midpoint"
)

// Scaler normalizes a raw panel against the catalog: it fills missing
// biomarkers per the configured policy, rejects physiologically
// impossible values, classifies each value against its reference
// interval and computes a bounded deviation percentage.
type Scaler struct {
	catalog *catalog.Catalog
	logger  *logrus.Logger

	fill             func(domain.BiomarkerDefinition) float64
	deviationCeiling float64
}

// NewScaler creates a scaler with the configured fill policy and
// deviation ceiling. An unknown fill policy is a configuration error.
func NewScaler(cat *catalog.Catalog, cfg domain.EngineConfig, logger *logrus.Logger) (*Scaler, error) {
	policy := cfg.FillPolicy
	if policy == "" {
		policy = FillMidpoint
	}

	var fill func(domain.BiomarkerDefinition) float64
	switch policy {
	case FillMidpoint:
		fill = domain.BiomarkerDefinition.NormalMidpoint
	default:
		return nil, fmt.Errorf("unsupported fill policy: %q", policy)
	}

	ceiling := cfg.DeviationCeiling
	if ceiling <= 0 {
		ceiling = 500.0
	}
	return &Scaler{
		catalog:          cat,
		logger:           logger,
		fill:             fill,
		deviationCeiling: ceiling,
	}, nil
}

// Scale produces one entry per catalog biomarker, in catalog order.
// Values outside [0, AbsoluteMax] are rejected as validation errors
// and treated like missing fields: filled with the normal midpoint and
// marked not measured, so they never generate flags or warnings.
// Abnormal measured entries are additionally returned as flags. A
// panel key absent from the catalog indicates a bug upstream of the
// scaler and returns a *domain.CatalogError.
func (s *Scaler) Scale(panel domain.BiomarkerPanel) (*domain.ScaledPanel, []domain.Flag, []domain.FieldError, error) {
	for id := range panel {
		if _, ok := s.catalog.Get(id); !ok {
			return nil, nil, nil, domain.NewCatalogError(id, "panel key not in catalog")
		}
	}

	entries := make([]domain.ScaledEntry, 0, s.catalog.Size())
	var flags []domain.Flag
	var fieldErrs []domain.FieldError

	for _, def := range s.catalog.All() {
		value, measured := panel[def.ID]

		if measured && (value < 0 || value > catalog.AbsoluteMax) {
			fieldErrs = append(fieldErrs, domain.FieldError{
				Field:   def.ID,
				Kind:    domain.FieldValidation,
				Message: "value outside plausible physiological bounds",
				Value:   strconv.FormatFloat(value, 'f', -1, 64),
			})
			measured = false
		}
		if !measured {
			value = s.fill(def)
		}

		status := s.classify(value, def)
		deviation := s.deviation(value, def, status)

		entries = append(entries, domain.ScaledEntry{
			BiomarkerID:  def.ID,
			Value:        value,
			Scaled:       s.scaled(value),
			Status:       status,
			DeviationPct: deviation,
			NotMeasured:  !measured,
		})

		if measured && status != domain.StatusNormal {
			flags = append(flags, domain.Flag{
				BiomarkerID:  def.ID,
				Value:        value,
				Status:       status,
				DeviationPct: deviation,
			})
		}
	}

	s.logger.WithFields(logrus.Fields{
		"measured": len(panel),
		"flags":    len(flags),
		"rejected": len(fieldErrs),
	}).Debug("Scaled biomarker panel")

	return &domain.ScaledPanel{Entries: entries}, flags, fieldErrs, nil
}

// classify places a value against the reference interval, escalating
// to the critical statuses when a critical bound exists and is crossed
func (s *Scaler) classify(value float64, def domain.BiomarkerDefinition) domain.BiomarkerStatus {
	if def.NormalLow == def.NormalHigh {
		if value == def.NormalLow {
			return domain.StatusNormal
		}
		if value < def.NormalLow {
			return s.escalateLow(value, def)
		}
		return s.escalateHigh(value, def)
	}

	switch {
	case value < def.NormalLow:
		return s.escalateLow(value, def)
	case value > def.NormalHigh:
		return s.escalateHigh(value, def)
	default:
		return domain.StatusNormal
	}
}

func (s *Scaler) escalateLow(value float64, def domain.BiomarkerDefinition) domain.BiomarkerStatus {
	if def.CriticalLow != nil && value < *def.CriticalLow {
		return domain.StatusCriticalLow
	}
	return domain.StatusLow
}

func (s *Scaler) escalateHigh(value float64, def domain.BiomarkerDefinition) domain.BiomarkerStatus {
	if def.CriticalHigh != nil && value > *def.CriticalHigh {
		return domain.StatusCriticalHigh
	}
	return domain.StatusHigh
}

// deviation computes how far outside the reference interval a value
// sits, as a percentage of the violated bound, clipped to the ceiling.
// A zero bound would divide away, so it maps straight to the ceiling.
func (s *Scaler) deviation(value float64, def domain.BiomarkerDefinition, status domain.BiomarkerStatus) float64 {
	var pct float64
	switch status.Direction() {
	case domain.StatusLow:
		if def.NormalLow == 0 {
			return s.deviationCeiling
		}
		pct = (def.NormalLow - value) / def.NormalLow * 100.0
	case domain.StatusHigh:
		if def.NormalHigh == 0 {
			return s.deviationCeiling
		}
		pct = (value - def.NormalHigh) / def.NormalHigh * 100.0
	default:
		return 0
	}
	if pct > s.deviationCeiling {
		return s.deviationCeiling
	}
	return pct
}

// scaled maps a value onto [0, 1] over the absolute plausible range
func (s *Scaler) scaled(value float64) float64 {
	scaled := value / catalog.AbsoluteMax
	if scaled < 0 {
		return 0
	}
	if scaled > 1 {
		return 1
	}
	return scaled
}
