package pipeline

import (
	"fmt"
	"time"

	"halo-cme-lab/internal/domain"
)

// DefaultMaxMissingFraction is the largest tolerated share of missing values
// across the weighted parameters.
const DefaultMaxMissingFraction = 0.5

// QualityCheck represents one input data quality criterion.
type QualityCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// QualityResult contains all input checks.
type QualityResult struct {
	Checks  []QualityCheck
	AllPass bool
	Errors  []string // per-item findings behind failed checks
}

// QualityChecker inspects the series and catalog before detection. Failed
// checks are reported, they do not stop the run.
type QualityChecker struct {
	params     []string
	margin     time.Duration
	maxMissing float64
}

// NewQualityChecker creates a checker for the weighted parameters and the
// search margin used by the detector.
func NewQualityChecker(params []string, margin time.Duration) *QualityChecker {
	return &QualityChecker{
		params:     append([]string(nil), params...),
		margin:     margin,
		maxMissing: DefaultMaxMissingFraction,
	}
}

// WithMaxMissingFraction overrides the missing-value tolerance.
func (c *QualityChecker) WithMaxMissingFraction(f float64) *QualityChecker {
	c.maxMissing = f
	return c
}

// Check runs every input check in a fixed order.
func (c *QualityChecker) Check(series *domain.Series, catalog []*domain.ExpectedWindow) *QualityResult {
	result := &QualityResult{
		Checks:  make([]QualityCheck, 0, 6),
		AllPass: true,
		Errors:  []string{},
	}
	add := func(check QualityCheck, errs []string) {
		result.Checks = append(result.Checks, check)
		if !check.Pass {
			result.AllPass = false
			result.Errors = append(result.Errors, errs...)
		}
	}

	add(c.checkSeriesRows(series), nil)
	add(c.checkCatalogWindows(catalog), nil)
	add(c.checkDuplicateWindows(catalog))
	add(c.checkParametersPresent(series))
	add(c.checkWindowCoverage(series, catalog))
	add(c.checkMissingFraction(series), nil)

	return result
}

// checkSeriesRows: series rows >= 1.
func (c *QualityChecker) checkSeriesRows(series *domain.Series) QualityCheck {
	n := series.Len()
	return QualityCheck{
		Name:      "Series rows",
		Threshold: ">= 1",
		Actual:    fmt.Sprintf("%d", n),
		Pass:      n >= 1,
	}
}

// checkCatalogWindows: catalog windows >= 1.
func (c *QualityChecker) checkCatalogWindows(catalog []*domain.ExpectedWindow) QualityCheck {
	n := len(catalog)
	return QualityCheck{
		Name:      "Catalog windows",
		Threshold: ">= 1",
		Actual:    fmt.Sprintf("%d", n),
		Pass:      n >= 1,
	}
}

// checkDuplicateWindows: duplicate catalog IDs == 0.
func (c *QualityChecker) checkDuplicateWindows(catalog []*domain.ExpectedWindow) (QualityCheck, []string) {
	seen := make(map[string]int, len(catalog))
	var errs []string
	for _, w := range catalog {
		seen[w.ID]++
		if seen[w.ID] == 2 {
			errs = append(errs, fmt.Sprintf("duplicate catalog id: %s", w.ID))
		}
	}
	return QualityCheck{
		Name:      "Duplicate catalog IDs",
		Threshold: "== 0",
		Actual:    fmt.Sprintf("%d", len(errs)),
		Pass:      len(errs) == 0,
	}, errs
}

// checkParametersPresent: every weighted parameter is a series column.
func (c *QualityChecker) checkParametersPresent(series *domain.Series) (QualityCheck, []string) {
	var errs []string
	for _, name := range c.params {
		if !series.Has(name) {
			errs = append(errs, fmt.Sprintf("missing parameter: %s", name))
		}
	}
	present := len(c.params) - len(errs)
	return QualityCheck{
		Name:      "Weighted parameters present",
		Threshold: fmt.Sprintf("%d/%d", len(c.params), len(c.params)),
		Actual:    fmt.Sprintf("%d/%d", present, len(c.params)),
		Pass:      len(errs) == 0,
	}, errs
}

// checkWindowCoverage: every catalog window has samples in its search range.
func (c *QualityChecker) checkWindowCoverage(series *domain.Series, catalog []*domain.ExpectedWindow) (QualityCheck, []string) {
	var errs []string
	for _, w := range catalog {
		lo, hi := series.IndexRange(w.SearchWindow(c.margin))
		if hi == lo {
			errs = append(errs, fmt.Sprintf("window %s: no samples in search range", w.ID))
		}
	}
	covered := len(catalog) - len(errs)
	return QualityCheck{
		Name:      "Windows with samples",
		Threshold: fmt.Sprintf("%d/%d", len(catalog), len(catalog)),
		Actual:    fmt.Sprintf("%d/%d", covered, len(catalog)),
		Pass:      len(errs) == 0,
	}, errs
}

// checkMissingFraction: share of missing values over the weighted
// parameters present in the series.
func (c *QualityChecker) checkMissingFraction(series *domain.Series) QualityCheck {
	var total, missing int
	for _, name := range c.params {
		col, ok := series.Column(name)
		if !ok {
			continue
		}
		total += len(col)
		for _, v := range col {
			if domain.IsMissing(v) {
				missing++
			}
		}
	}

	frac := 0.0
	if total > 0 {
		frac = float64(missing) / float64(total)
	}
	return QualityCheck{
		Name:      "Missing values",
		Threshold: fmt.Sprintf("<= %.1f%%", c.maxMissing*100),
		Actual:    fmt.Sprintf("%.1f%%", frac*100),
		Pass:      total > 0 && frac <= c.maxMissing,
	}
}
