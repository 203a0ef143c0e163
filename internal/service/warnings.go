package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mediguard-triage-server/internal/catalog"
	"github.com/mediguard-triage-server/internal/domain"
)

// WarningGenerator renders patient-facing alerts for abnormal measured
// biomarkers, critical ones first.
type WarningGenerator struct {
	catalog *catalog.Catalog
}

// NewWarningGenerator creates a generator over the catalog
func NewWarningGenerator(cat *catalog.Catalog) *WarningGenerator {
	return &WarningGenerator{catalog: cat}
}

// Generate produces one warning per flag, ordered critical first and
// within each tier by descending deviation. Flags only cover measured
// values, so defaulted biomarkers never alert.
func (g *WarningGenerator) Generate(flags []domain.Flag) []domain.Warning {
	ordered := make([]domain.Flag, len(flags))
	copy(ordered, flags)
	sort.SliceStable(ordered, func(i, j int) bool {
		ci, cj := ordered[i].Status.IsCritical(), ordered[j].Status.IsCritical()
		if ci != cj {
			return ci
		}
		return ordered[i].DeviationPct > ordered[j].DeviationPct
	})

	warnings := make([]domain.Warning, 0, len(ordered))
	for _, flag := range ordered {
		def, ok := g.catalog.Get(flag.BiomarkerID)
		if !ok {
			continue
		}
		warnings = append(warnings, g.render(flag, def))
	}
	return warnings
}

func (g *WarningGenerator) render(flag domain.Flag, def domain.BiomarkerDefinition) domain.Warning {
	entryValue := flag.Value

	if flag.Status.IsCritical() {
		direction := "HIGH"
		if flag.Status.Direction() == domain.StatusLow {
			direction = "LOW"
		}
		return domain.Warning{
			BiomarkerID: flag.BiomarkerID,
			Severity:    domain.WarnCritical,
			Message: fmt.Sprintf("CRITICAL: %s (%s) is dangerously %s: %s %s",
				def.DisplayName, def.Code, direction, formatQuantity(entryValue), def.Unit),
		}
	}

	var message string
	if flag.Status.Direction() == domain.StatusLow {
		message = fmt.Sprintf("%s (%s) is BELOW normal range (%s %s < %s %s)",
			def.DisplayName, def.Code,
			formatQuantity(entryValue), def.Unit,
			formatQuantity(def.NormalLow), def.Unit)
	} else {
		message = fmt.Sprintf("%s (%s) is ABOVE normal range (%s %s > %s %s)",
			def.DisplayName, def.Code,
			formatQuantity(entryValue), def.Unit,
			formatQuantity(def.NormalHigh), def.Unit)
	}
	return domain.Warning{
		BiomarkerID: flag.BiomarkerID,
		Severity:    domain.WarnWarning,
		Message:     message,
	}
}

// formatQuantity renders a value without trailing zeros
func formatQuantity(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
