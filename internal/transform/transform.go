// Package transform holds the cleaning rules a pipeline can apply to a dataset.
package transform

import (
	"errors"
	"fmt"
	"sort"

	"etl-template/internal/config"
	"etl-template/internal/dataset"
	"etl-template/internal/logging"
)

// ErrUnknownRule is returned by Apply for a name that is not registered.
var ErrUnknownRule = errors.New("unknown cleaning rule")

// Params carries the per-rule settings from configuration.
type Params struct {
	// Columns restricts drop_na. Empty means every column.
	Columns []string
	// Value is the fill_na replacement text.
	Value string
}

// RuleFunc is a pure cleaning rule: it returns a new Dataset and never
// modifies its input.
type RuleFunc func(ds *dataset.Dataset, params Params, logger *logging.Logger) (*dataset.Dataset, error)

// ruleRegistry maps rule names to implementations.
var ruleRegistry = make(map[string]RuleFunc)

func init() {
	ruleRegistry[config.RuleDropDuplicates] = dropDuplicates
	ruleRegistry[config.RuleDropNA] = dropNA
	ruleRegistry[config.RuleFillNA] = fillNA
}

// Names returns the registered rule names, sorted.
func Names() []string {
	names := make([]string, 0, len(ruleRegistry))
	for name := range ruleRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply runs the named rule on ds.
func Apply(name string, params Params, ds *dataset.Dataset, logger *logging.Logger) (*dataset.Dataset, error) {
	rule, ok := ruleRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w '%s' (known: %v)", ErrUnknownRule, name, Names())
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if ds == nil {
		ds = dataset.New()
	}
	return rule(ds, params, logger)
}

func dropDuplicates(ds *dataset.Dataset, _ Params, logger *logging.Logger) (*dataset.Dataset, error) {
	out := ds.DropDuplicates()
	if removed := ds.Len() - out.Len(); removed > 0 {
		logger.Logf(logging.Debug, "drop_duplicates removed %d rows (%d -> %d).", removed, ds.Len(), out.Len())
	}
	return out, nil
}

// dropNA removes rows with a Null in any listed column. Listed columns the
// Dataset does not have are reported and ignored; if none of them exist the
// Dataset is returned as is.
func dropNA(ds *dataset.Dataset, params Params, logger *logging.Logger) (*dataset.Dataset, error) {
	if len(params.Columns) == 0 {
		return logDropped(ds, ds.DropMissing(), logger), nil
	}
	present := make([]string, 0, len(params.Columns))
	for _, c := range params.Columns {
		if ds.HasColumn(c) {
			present = append(present, c)
			continue
		}
		logger.Logf(logging.Warning, "drop_na: column '%s' not found in data; skipping it.", c)
	}
	if len(present) == 0 {
		return ds.Clone(), nil
	}
	return logDropped(ds, ds.DropMissing(present...), logger), nil
}

func logDropped(in, out *dataset.Dataset, logger *logging.Logger) *dataset.Dataset {
	if removed := in.Len() - out.Len(); removed > 0 {
		logger.Logf(logging.Debug, "drop_na removed %d rows (%d -> %d).", removed, in.Len(), out.Len())
	}
	return out
}

// fillNA replaces every Null with params.Value, "N/A" when unset.
func fillNA(ds *dataset.Dataset, params Params, logger *logging.Logger) (*dataset.Dataset, error) {
	value := params.Value
	if value == "" {
		value = config.DefaultFillValue
	}
	if n := ds.CountMissing(); n > 0 {
		logger.Logf(logging.Debug, "fill_na replacing %d missing values with '%s'.", n, value)
	}
	return ds.FillMissing(dataset.TextValue(value)), nil
}
