package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mediguard-triage-server/internal/caching"
	"github.com/mediguard-triage-server/internal/catalog"
	"github.com/mediguard-triage-server/internal/domain"
)

// Engine runs the full triage pipeline: parse, scale, classify and
// generate warnings. Results for identical panels are served from the
// cache when one is configured.
type Engine struct {
	catalog    *catalog.Catalog
	parser     *Parser
	scaler     *Scaler
	classifier *Classifier
	warnings   *WarningGenerator
	cache      *caching.ResultCache
	logger     *logrus.Logger
}

// NewEngine wires the pipeline services over a shared catalog. The
// cache may be nil to disable memoization. Returns an error when the
// rule table references a biomarker the catalog does not define or the
// fill policy is unknown.
func NewEngine(cfg domain.EngineConfig, cache *caching.ResultCache, logger *logrus.Logger) (*Engine, error) {
	cat := catalog.New()
	rules := DefaultRuleTable()
	if err := rules.Validate(cat); err != nil {
		return nil, err
	}
	scaler, err := NewScaler(cat, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		catalog:    cat,
		parser:     NewParser(cat, logger),
		scaler:     scaler,
		classifier: NewClassifier(cat, rules, cfg, logger),
		warnings:   NewWarningGenerator(cat),
		cache:      cache,
		logger:     logger,
	}, nil
}

// Triage processes raw lab panel text end to end. Field-level problems
// are folded into the result; a non-nil error means the input could
// not be triaged at all (*domain.ParseError) or the engine is
// misconfigured (*domain.CatalogError).
func (e *Engine) Triage(ctx context.Context, raw string) (*domain.TriageResult, error) {
	start := time.Now()

	panel, parseErrs, err := e.parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	// Cache entries are keyed by the parsed panel, so they hold only
	// panel-derived state. Parse errors come from the raw text and are
	// attached per request: two inputs yielding the same panel may
	// carry different unknown keys or malformed tokens.
	if e.cache != nil {
		key := caching.Fingerprint(panel)
		if cached, ok := e.cache.Get(key); ok {
			e.logger.WithContext(ctx).WithField("fingerprint", key[:12]).Debug("Triage cache hit")
			return withParseErrors(cached, parseErrs), nil
		}
	}

	scaled, flags, validationErrs, err := e.scaler.Scale(panel)
	if err != nil {
		return nil, err
	}

	result := &domain.TriageResult{
		Classification: e.classifier.Classify(scaled),
		Warnings:       e.warnings.Generate(flags),
		Completeness:   e.completeness(scaled),
		FieldErrors:    validationErrs,
	}

	if e.cache != nil {
		e.cache.Add(caching.Fingerprint(panel), result)
	}
	result = withParseErrors(result, parseErrs)

	e.logger.WithContext(ctx).WithFields(logrus.Fields{
		"category":     result.Classification.Category,
		"confidence":   result.Classification.Confidence,
		"severity":     result.Classification.Severity,
		"warnings":     len(result.Warnings),
		"measured":     result.Completeness.Measured,
		"field_errors": len(result.FieldErrors),
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Info("Triage completed")

	return result, nil
}

// withParseErrors returns a per-request view of a panel-scoped result
// with the request's parse errors prepended. The shared result is
// never mutated.
func withParseErrors(result *domain.TriageResult, parseErrs []domain.FieldError) *domain.TriageResult {
	if len(parseErrs) == 0 {
		return result
	}
	out := *result
	out.FieldErrors = make([]domain.FieldError, 0, len(parseErrs)+len(result.FieldErrors))
	out.FieldErrors = append(out.FieldErrors, parseErrs...)
	out.FieldErrors = append(out.FieldErrors, result.FieldErrors...)
	return &out
}

// Catalog returns the biomarker definitions in panel order
func (e *Engine) Catalog() []domain.BiomarkerDefinition {
	return e.catalog.All()
}

// Template renders an all-normal example panel in the given encoding
func (e *Engine) Template(format string) (string, error) {
	return e.catalog.Template(format)
}

// CacheStats reports memoization counters, zero when caching is off
func (e *Engine) CacheStats() caching.CacheStats {
	if e.cache == nil {
		return caching.CacheStats{}
	}
	return e.cache.Stats()
}

// completeness tallies measured versus substituted biomarkers
func (e *Engine) completeness(scaled *domain.ScaledPanel) domain.PanelCompleteness {
	pc := domain.PanelCompleteness{Total: e.catalog.Size()}
	for _, entry := range scaled.Entries {
		if entry.NotMeasured {
			pc.Defaulted = append(pc.Defaulted, entry.BiomarkerID)
		} else {
			pc.Measured++
		}
	}
	return pc
}
