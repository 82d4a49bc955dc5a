// Package rules applies ordered business transformations to enriched tables.
package rules

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vigia-data/registry-harvester/internal/table"
)

// Kind tags a rule variant. The engine resolves behavior through the registry,
// so adding a kind means adding one applier, not touching the engine.
type Kind string

// Rule kinds.
const (
	KindDateFormat    Kind = "date-format"
	KindCleanNumber   Kind = "clean-number"
	KindFilter        Kind = "filter"
	KindExcludeValues Kind = "exclude-values"
	KindNotNull       Kind = "not-null"
	KindProject       Kind = "project"
)

// Rule is a data-carrying variant: Kind selects the applier, the remaining
// fields parameterize it. Unused fields stay zero.
type Rule struct {
	Name string
	Kind Kind

	// date-format, clean-number, not-null, project
	Columns []string

	// date-format
	InputLayout  string
	OutputLayout string

	// filter
	Predicate func(table.Row) bool

	// exclude-values
	Column    string
	Blocklist []string
}

type applier func(Rule, *table.Table, *zap.Logger) (*table.Table, error)

// registry maps each kind to its applier.
var registry = map[Kind]applier{
	KindDateFormat:    applyDateFormat,
	KindCleanNumber:   applyCleanNumber,
	KindFilter:        applyFilter,
	KindExcludeValues: applyExcludeValues,
	KindNotNull:       applyNotNull,
	KindProject:       applyProject,
}

// Engine applies rules in order. Each rule is isolated: one that fails is
// logged and skipped, and the chain continues on the unchanged table. Partial
// transformation beats blocking the day's delivery.
type Engine struct {
	rules  []Rule
	logger *zap.Logger
}

// New creates a rule engine over an ordered rule list.
func New(rules []Rule, logger *zap.Logger) *Engine {
	return &Engine{rules: rules, logger: logger}
}

// ApplyAll runs every rule in order and returns the final table. The input
// table is never mutated.
func (e *Engine) ApplyAll(tbl *table.Table) *table.Table {
	current := tbl
	for _, rule := range e.rules {
		next, err := e.applyOne(rule, current)
		if err != nil {
			e.logger.Warn("rule skipped",
				zap.String("rule", rule.Name),
				zap.String("kind", string(rule.Kind)),
				zap.Error(err))
			continue
		}
		current = next
	}
	return current
}

func (e *Engine) applyOne(rule Rule, tbl *table.Table) (out *table.Table, err error) {
	apply, ok := registry[rule.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
	// a panicking predicate stays contained to its rule
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("rule panicked: %v", r)
		}
	}()
	return apply(rule, tbl, e.logger)
}

func applyDateFormat(rule Rule, tbl *table.Table, logger *zap.Logger) (*table.Table, error) {
	if rule.InputLayout == "" || rule.OutputLayout == "" {
		return nil, fmt.Errorf("date-format rule needs input and output layouts")
	}
	out := tbl.Clone()
	unparsed := 0
	for _, row := range out.Rows {
		for _, col := range rule.Columns {
			value, ok := row[col]
			if !ok || value == "" {
				continue
			}
			parsed, err := time.Parse(rule.InputLayout, value)
			if err != nil {
				unparsed++
				continue
			}
			row[col] = parsed.Format(rule.OutputLayout)
		}
	}
	if unparsed > 0 {
		logger.Warn("left unparsable dates unchanged",
			zap.String("rule", rule.Name),
			zap.Int("values", unparsed))
	}
	return out, nil
}

// applyCleanNumber strips the trailing ".0" that identifiers pick up when a
// numeric column passes through a floating-point representation upstream.
func applyCleanNumber(rule Rule, tbl *table.Table, _ *zap.Logger) (*table.Table, error) {
	out := tbl.Clone()
	for _, row := range out.Rows {
		for _, col := range rule.Columns {
			if value, ok := row[col]; ok && strings.HasSuffix(value, ".0") {
				row[col] = strings.TrimSuffix(value, ".0")
			}
		}
	}
	return out, nil
}

func applyFilter(rule Rule, tbl *table.Table, logger *zap.Logger) (*table.Table, error) {
	if rule.Predicate == nil {
		return nil, fmt.Errorf("filter rule has no predicate")
	}
	out := tbl.Filter(rule.Predicate)
	logger.Info("filtered rows",
		zap.String("rule", rule.Name),
		zap.Int("before", tbl.Len()),
		zap.Int("after", out.Len()))
	return out, nil
}

func applyExcludeValues(rule Rule, tbl *table.Table, logger *zap.Logger) (*table.Table, error) {
	if rule.Column == "" {
		return nil, fmt.Errorf("exclude-values rule has no column")
	}
	blocked := make(map[string]bool, len(rule.Blocklist))
	for _, v := range rule.Blocklist {
		blocked[v] = true
	}
	out := tbl.Filter(func(row table.Row) bool {
		return !blocked[row[rule.Column]]
	})
	logger.Info("excluded blocklisted rows",
		zap.String("rule", rule.Name),
		zap.String("column", rule.Column),
		zap.Int("before", tbl.Len()),
		zap.Int("after", out.Len()))
	return out, nil
}

func applyNotNull(rule Rule, tbl *table.Table, logger *zap.Logger) (*table.Table, error) {
	out := tbl.Filter(func(row table.Row) bool {
		for _, col := range rule.Columns {
			value, ok := row[col]
			if !ok || strings.TrimSpace(value) == "" {
				return false
			}
		}
		return true
	})
	logger.Info("dropped rows with missing values",
		zap.String("rule", rule.Name),
		zap.Int("before", tbl.Len()),
		zap.Int("after", out.Len()))
	return out, nil
}

func applyProject(rule Rule, tbl *table.Table, logger *zap.Logger) (*table.Table, error) {
	if len(rule.Columns) == 0 {
		return nil, fmt.Errorf("project rule has no columns")
	}
	out, missing := tbl.Select(rule.Columns)
	if len(missing) > 0 {
		logger.Warn("projection is missing columns",
			zap.String("rule", rule.Name),
			zap.Strings("missing", missing))
	}
	return out, nil
}
