package service

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mediguard-triage-server/internal/catalog"
	"github.com/mediguard-triage-server/internal/domain"
)

// Input encodings the parser auto-detects, in priority order
const (
	EncodingJSON     = "json"
	EncodingKeyValue = "key_value"
	EncodingCSV      = "csv"
	EncodingUnknown  = "unknown"
)

// numericPrefix matches a signed decimal number at the start of a token,
// leaving any unit suffix behind
var numericPrefix = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?`)

// pairSeparator splits key=value input on commas or newlines
var pairSeparator = regexp.MustCompile(`[,\n]`)

// unitSpellings maps each canonical catalog unit to the spellings the
// parser accepts as the same unit family. Suffixes are tolerated but
// never converted; a suffix outside the biomarker's family is a
// field-level error.
var unitSpellings = map[string][]string{
	"g/dL":     {"g/dl"},
	"mg/dL":    {"mg/dl"},
	"mg/L":     {"mg/l"},
	"mEq/L":    {"meq/l", "mmol/l"},
	"mmol/L":   {"mmol/l", "meq/l"},
	"U/L":      {"u/l", "iu/l"},
	"ng/mL":    {"ng/ml"},
	"pg/mL":    {"pg/ml"},
	"ug/mL":    {"ug/ml", "µg/ml", "mcg/ml"},
	"mm/hr":    {"mm/hr", "mm/h"},
	"ratio":    {"ratio"},
	"x10^3/uL": {"x10^3/ul", "x103/ul", "10^3/ul", "k/ul", "×10³/µl", "/ul"},
}

// Parser converts raw textual input into a canonical biomarker panel.
// It auto-detects JSON objects, key=value lists and the fixed-order
// positional CSV, in that priority.
type Parser struct {
	catalog *catalog.Catalog
	logger  *logrus.Logger
}

// NewParser creates a parser over the given catalog
func NewParser(cat *catalog.Catalog, logger *logrus.Logger) *Parser {
	return &Parser{catalog: cat, logger: logger}
}

// Parse extracts a biomarker panel from raw text. Field-level problems
// (unknown keys, malformed numbers, incompatible units) are reported in
// the returned slice without aborting the rest of the panel. The panel
/// is nil only for a hard failure: an unrecognized encoding, a CSV
// token-count mismatch, or input from which no field could be
// extracted; those return a *domain.ParseError.
func (p *Parser) Parse(raw string) (domain.BiomarkerPanel, []domain.FieldError, error) {
	text := strings.TrimSpace(raw)

	var (
		panel     domain.BiomarkerPanel
		fieldErrs []domain.FieldError
		err       error
		encoding  string
	)

	switch {
	case strings.HasPrefix(text, "{"):
		encoding = EncodingJSON
		panel, fieldErrs, err = p.parseJSON(text)
	case strings.ContainsAny(text, "=:"):
		encoding = EncodingKeyValue
		panel, fieldErrs, err = p.parseKeyValue(text)
	case strings.Contains(text, ","):
		encoding = EncodingCSV
		panel, fieldErrs, err = p.parseCSV(text)
	default:
		return nil, nil, domain.NewParseError(EncodingUnknown,
			"input matches none of the supported encodings (JSON, key=value, CSV)")
	}

	if err != nil {
		return nil, fieldErrs, err
	}
	if len(panel) == 0 {
		return nil, fieldErrs, domain.NewParseError(encoding, "no biomarker field could be extracted")
	}

	p.logger.WithFields(logrus.Fields{
		"encoding":     encoding,
		"fields":       len(panel),
		"field_errors": len(fieldErrs),
	}).Debug("Parsed biomarker panel")

	return panel, fieldErrs, nil
}

// parseJSON handles a JSON object with case-insensitive id/alias keys
func (p *Parser) parseJSON(text string) (domain.BiomarkerPanel, []domain.FieldError, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var data map[string]interface{}
	if err := dec.Decode(&data); err != nil {
		return nil, nil, domain.NewParseError(EncodingJSON, "invalid JSON object: %v", err)
	}

	// Sorted keys keep field error ordering deterministic
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	panel := domain.BiomarkerPanel{}
	var fieldErrs []domain.FieldError

	for _, key := range keys {
		id, ok := p.catalog.Resolve(key)
		if !ok {
			fieldErrs = append(fieldErrs, domain.FieldError{
				Field: key, Kind: domain.FieldParse, Message: "unknown biomarker",
			})
			continue
		}
		def, _ := p.catalog.Get(id)

		var value float64
		switch v := data[key].(type) {
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				fieldErrs = append(fieldErrs, domain.FieldError{
					Field: key, Kind: domain.FieldParse,
					Message: "invalid numeric value", Value: v.String(),
				})
				continue
			}
			value = f
		case string:
			f, ferr := p.parseToken(v, def)
			if ferr != nil {
				ferr.Field = key
				fieldErrs = append(fieldErrs, *ferr)
				continue
			}
			value = f
		default:
			fieldErrs = append(fieldErrs, domain.FieldError{
				Field: key, Kind: domain.FieldParse, Message: "value is not numeric",
			})
			continue
		}
		panel[id] = value
	}

	return panel, fieldErrs, nil
}

// parseKeyValue handles comma/newline-separated key=value or key:value pairs
func (p *Parser) parseKeyValue(text string) (domain.BiomarkerPanel, []domain.FieldError, error) {
	pairs := pairSeparator.Split(text, -1)

	panel := domain.BiomarkerPanel{}
	var fieldErrs []domain.FieldError

	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		var key, value string
		if i := strings.Index(pair, "="); i >= 0 {
			key, value = pair[:i], pair[i+1:]
		} else if i := strings.Index(pair, ":"); i >= 0 {
			key, value = pair[:i], pair[i+1:]
		} else {
			fieldErrs = append(fieldErrs, domain.FieldError{
				Field: pair, Kind: domain.FieldParse, Message: "missing '=' or ':' separator",
			})
			continue
		}
		key = strings.TrimSpace(key)

		id, ok := p.catalog.Resolve(key)
		if !ok {
			fieldErrs = append(fieldErrs, domain.FieldError{
				Field: key, Kind: domain.FieldParse, Message: "unknown biomarker",
			})
			continue
		}
		def, _ := p.catalog.Get(id)

		f, ferr := p.parseToken(value, def)
		if ferr != nil {
			ferr.Field = key
			fieldErrs = append(fieldErrs, *ferr)
			continue
		}
		panel[id] = f
	}

	return panel, fieldErrs, nil
}

// parseCSV handles the fixed-order positional encoding. A token-count
// mismatch is unrecoverable; malformed individual tokens are excluded
// as field errors.
func (p *Parser) parseCSV(text string) (domain.BiomarkerPanel, []domain.FieldError, error) {
	tokens := strings.Split(text, ",")
	order := p.catalog.Order()

	if len(tokens) != len(order) {
		return nil, nil, domain.NewParseError(EncodingCSV,
			"expected exactly %d comma-separated values, got %d", len(order), len(tokens))
	}

	panel := domain.BiomarkerPanel{}
	var fieldErrs []domain.FieldError

	for i, id := range order {
		def, _ := p.catalog.Get(id)
		f, ferr := p.parseToken(tokens[i], def)
		if ferr != nil {
			ferr.Field = id
			fieldErrs = append(fieldErrs, *ferr)
			continue
		}
		panel[id] = f
	}

	return panel, fieldErrs, nil
}

// parseToken parses one numeric token, tolerating surrounding
// whitespace, an explicit sign, and a trailing unit suffix. The suffix
// is not converted; a suffix outside the biomarker's unit family is an
// error. The returned FieldError has its Field left for the caller.
func (p *Parser) parseToken(token string, def domain.BiomarkerDefinition) (float64, *domain.FieldError) {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return 0, &domain.FieldError{Kind: domain.FieldParse, Message: "empty value", Value: token}
	}

	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f, nil
	}

	num := numericPrefix.FindString(tok)
	if num == "" {
		return 0, &domain.FieldError{Kind: domain.FieldParse, Message: "invalid numeric value", Value: tok}
	}

	suffix := strings.TrimSpace(tok[len(num):])
	if !unitCompatible(def.Unit, suffix) {
		return 0, &domain.FieldError{
			Kind:    domain.FieldParse,
			Message: "unit " + suffix + " is incompatible with " + def.Unit,
			Value:   tok,
		}
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, &domain.FieldError{Kind: domain.FieldParse, Message: "invalid numeric value", Value: tok}
	}
	return f, nil
}

// unitCompatible reports whether a unit suffix belongs to the same
// family as the catalog unit
func unitCompatible(catalogUnit, suffix string) bool {
	if suffix == "" {
		return true
	}
	s := strings.ToLower(suffix)
	if s == strings.ToLower(catalogUnit) {
		return true
	}
	for _, spelling := range unitSpellings[catalogUnit] {
		if s == spelling {
			return true
		}
	}
	return false
}
