// Package catalog holds the static biomarker reference table: reference
// ranges, critical thresholds, accepted aliases and the fixed CSV order.
// The catalog is built once at startup and read-only afterwards, so it is
// safe for unlimited concurrent readers.
package catalog

import (
	"fmt"
	"strings"

	"github.com/mediguard-triage-server/internal/domain"
)

// AbsoluteMax is the plausibility ceiling for any submitted value.
// Values outside [0, AbsoluteMax] are physiologically impossible and
// rejected per-field.
const AbsoluteMax = 100000.0

func ptr(v float64) *float64 { return &v }

// definitions lists every supported analyte in the fixed positional CSV
// order. Reference intervals follow standard adult ranges.
var definitions = []domain.BiomarkerDefinition{
	{ID: "hemoglobin", Code: "HGB", DisplayName: "Hemoglobin", Unit: "g/dL",
		NormalLow: 12.0, NormalHigh: 17.0, CriticalLow: ptr(7.0), CriticalHigh: ptr(20.0),
		Aliases: []string{"hgb", "hb", "hemo"}},
	{ID: "wbc_count", Code: "WBC", DisplayName: "WBC Count", Unit: "x10^3/uL",
		NormalLow: 4.0, NormalHigh: 11.0, CriticalLow: ptr(1.0), CriticalHigh: ptr(30.0),
		Aliases: []string{"wbc", "white_blood_cell", "white_blood_cell_count", "leukocyte", "leukocyte_count"}},
	{ID: "platelet_count", Code: "PLT", DisplayName: "Platelet Count", Unit: "x10^3/uL",
		NormalLow: 150, NormalHigh: 400, CriticalLow: ptr(50.0), CriticalHigh: ptr(1000.0),
		Aliases: []string{"plt", "platelet", "platelets", "thrombocyte"}},
	{ID: "glucose", Code: "GLU", DisplayName: "Glucose", Unit: "mg/dL",
		NormalLow: 70, NormalHigh: 140, CriticalLow: ptr(40.0), CriticalHigh: ptr(500.0),
		Aliases: []string{"glu", "blood_sugar", "blood_glucose", "bg"}},
	{ID: "creatinine", Code: "CREAT", DisplayName: "Creatinine", Unit: "mg/dL",
		NormalLow: 0.6, NormalHigh: 1.3, CriticalHigh: ptr(10.0),
		Aliases: []string{"creat", "cr"}},
	{ID: "bun", Code: "BUN", DisplayName: "Blood Urea Nitrogen", Unit: "mg/dL",
		NormalLow: 7, NormalHigh: 20, CriticalHigh: ptr(100.0),
		Aliases: []string{"blood_urea_nitrogen", "urea"}},
	{ID: "sodium", Code: "NA", DisplayName: "Sodium", Unit: "mEq/L",
		NormalLow: 135, NormalHigh: 145, CriticalLow: ptr(120.0), CriticalHigh: ptr(160.0),
		Aliases: []string{"na"}},
	{ID: "potassium", Code: "K", DisplayName: "Potassium", Unit: "mEq/L",
		NormalLow: 3.5, NormalHigh: 5.0, CriticalLow: ptr(2.5), CriticalHigh: ptr(6.5),
		Aliases: []string{"k"}},
	{ID: "chloride", Code: "CL", DisplayName: "Chloride", Unit: "mEq/L",
		NormalLow: 96, NormalHigh: 106, CriticalLow: ptr(80.0), CriticalHigh: ptr(120.0),
		Aliases: []string{"cl"}},
	{ID: "calcium", Code: "CA", DisplayName: "Calcium", Unit: "mg/dL",
		NormalLow: 8.5, NormalHigh: 10.5, CriticalLow: ptr(6.0), CriticalHigh: ptr(13.0),
		Aliases: []string{"ca"}},
	{ID: "alt", Code: "ALT", DisplayName: "ALT", Unit: "U/L",
		NormalLow: 7, NormalHigh: 56, CriticalHigh: ptr(1000.0),
		Aliases: []string{"alanine_aminotransferase", "sgpt"}},
	{ID: "ast", Code: "AST", DisplayName: "AST", Unit: "U/L",
		NormalLow: 10, NormalHigh: 40, CriticalHigh: ptr(1000.0),
		Aliases: []string{"aspartate_aminotransferase", "sgot"}},
	{ID: "bilirubin_total", Code: "TBIL", DisplayName: "Total Bilirubin", Unit: "mg/dL",
		NormalLow: 0.1, NormalHigh: 1.2, CriticalHigh: ptr(15.0),
		Aliases: []string{"tbil", "tb", "bilirubin", "total_bilirubin"}},
	{ID: "albumin", Code: "ALB", DisplayName: "Albumin", Unit: "g/dL",
		NormalLow: 3.5, NormalHigh: 5.0, CriticalLow: ptr(1.5),
		Aliases: []string{"alb"}},
	{ID: "total_protein", Code: "TP", DisplayName: "Total Protein", Unit: "g/dL",
		NormalLow: 6.0, NormalHigh: 8.3,
		Aliases: []string{"tp", "protein"}},
	{ID: "ldh", Code: "LDH", DisplayName: "LDH", Unit: "U/L",
		NormalLow: 140, NormalHigh: 280, CriticalHigh: ptr(1500.0),
		Aliases: []string{"lactate_dehydrogenase"}},
	{ID: "troponin", Code: "TNI", DisplayName: "Troponin I", Unit: "ng/mL",
		NormalLow: 0.0, NormalHigh: 0.04, CriticalHigh: ptr(0.5),
		Aliases: []string{"tni", "ctni", "troponin_i"}},
	{ID: "bnp", Code: "BNP", DisplayName: "BNP", Unit: "pg/mL",
		NormalLow: 0, NormalHigh: 100, CriticalHigh: ptr(2000.0),
		Aliases: []string{"b_type_natriuretic_peptide", "brain_natriuretic_peptide"}},
	{ID: "crp", Code: "CRP", DisplayName: "C-Reactive Protein", Unit: "mg/L",
		NormalLow: 0, NormalHigh: 10, CriticalHigh: ptr(300.0),
		Aliases: []string{"c_reactive_protein"}},
	{ID: "esr", Code: "ESR", DisplayName: "ESR", Unit: "mm/hr",
		NormalLow: 0, NormalHigh: 20,
		Aliases: []string{"erythrocyte_sedimentation_rate", "sed_rate"}},
	{ID: "procalcitonin", Code: "PCT", DisplayName: "Procalcitonin", Unit: "ng/mL",
		NormalLow: 0, NormalHigh: 0.25, CriticalHigh: ptr(5.0),
		Aliases: []string{"pct"}},
	{ID: "d_dimer", Code: "DD", DisplayName: "D-Dimer", Unit: "ug/mL",
		NormalLow: 0, NormalHigh: 0.5, CriticalHigh: ptr(10.0),
		Aliases: []string{"dd", "ddimer"}},
	{ID: "inr", Code: "INR", DisplayName: "INR", Unit: "ratio",
		NormalLow: 0.8, NormalHigh: 1.2, CriticalHigh: ptr(5.0),
		Aliases: []string{"international_normalized_ratio"}},
	{ID: "lactate", Code: "LAC", DisplayName: "Lactate", Unit: "mmol/L",
		NormalLow: 0.5, NormalHigh: 2.2, CriticalHigh: ptr(4.0),
		Aliases: []string{"lac", "lactic_acid"}},
}

// Catalog is the immutable biomarker reference table with an O(1)
// alias resolution index
type Catalog struct {
	order   []string
	byID    map[string]domain.BiomarkerDefinition
	aliases map[string]string
}

// New builds the catalog and its alias resolution table
func New() *Catalog {
	c := &Catalog{
		order:   make([]string, 0, len(definitions)),
		byID:    make(map[string]domain.BiomarkerDefinition, len(definitions)),
		aliases: make(map[string]string),
	}
	for _, def := range definitions {
		c.order = append(c.order, def.ID)
		c.byID[def.ID] = def
		c.aliases[def.ID] = def.ID
		c.aliases[strings.ToLower(def.Code)] = def.ID
		for _, alias := range def.Aliases {
			c.aliases[alias] = def.ID
		}
	}
	return c
}

// Size returns the number of catalog entries
func (c *Catalog) Size() int {
	return len(c.order)
}

// Order returns the fixed positional CSV order of biomarker ids
func (c *Catalog) Order() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Get returns the definition for a canonical id
func (c *Catalog) Get(id string) (domain.BiomarkerDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// All returns every definition in catalog order, for introspection
func (c *Catalog) All() []domain.BiomarkerDefinition {
	out := make([]domain.BiomarkerDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Resolve maps a submitted key to a canonical biomarker id. Matching is
// case-insensitive and tolerates spaces and hyphens in place of
// underscores.
func (c *Catalog) Resolve(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	id, ok := c.aliases[key]
	return id, ok
}

// Template formats a fill-in input template in the given encoding
// ("json", "key_value" or "csv") with normal-midpoint example values.
func (c *Catalog) Template(format string) (string, error) {
	switch format {
	case "json":
		var b strings.Builder
		b.WriteString("{\n")
		for i, id := range c.order {
			def := c.byID[id]
			fmt.Fprintf(&b, "  %q: %s", id, formatValue(def.NormalMidpoint()))
			if i < len(c.order)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString("}")
		return b.String(), nil
	case "key_value":
		pairs := make([]string, 0, len(c.order))
		for _, id := range c.order {
			def := c.byID[id]
			pairs = append(pairs, fmt.Sprintf("%s=%s", id, formatValue(def.NormalMidpoint())))
		}
		return strings.Join(pairs, ", "), nil
	case "csv":
		values := make([]string, 0, len(c.order))
		for _, id := range c.order {
			values = append(values, formatValue(c.byID[id].NormalMidpoint()))
		}
		return strings.Join(values, ","), nil
	}
	return "", fmt.Errorf("unknown template format: %q", format)
}

func formatValue(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}
