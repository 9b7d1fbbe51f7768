// Package processor applies a pipeline's cleaning rules in order.
package processor

import (
	"context"
	"fmt"

	"etl-template/internal/config"
	"etl-template/internal/dataset"
	"etl-template/internal/etlerr"
	"etl-template/internal/logging"
	"etl-template/internal/transform"
)

// Processor is the transform step of a pipeline.
type Processor struct {
	name   string
	rules  []config.RuleConfig
	logger *logging.Logger
}

// New creates a Processor for the named pipeline. Rules are checked when
// Transform runs.
func New(name string, rules []config.RuleConfig, logger *logging.Logger) *Processor {
	if logger == nil {
		logger = logging.Discard()
	}
	cp := make([]config.RuleConfig, len(rules))
	copy(cp, rules)
	return &Processor{name: name, rules: cp, logger: logger}
}

// Rules returns the rule list.
func (p *Processor) Rules() []config.RuleConfig {
	out := make([]config.RuleConfig, len(p.rules))
	copy(out, p.rules)
	return out
}

// Transform applies every rule to ds in order. An empty Dataset is returned
// unchanged. Any rule failure is ErrTransformation.
func (p *Processor) Transform(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error) {
	if ds.IsEmpty() {
		p.logger.Logf(logging.Warning, "[%s] No data to transform.", p.name)
		if ds == nil {
			return dataset.New(), nil
		}
		return ds, nil
	}

	out := ds
	for i, r := range p.rules {
		if err := ctx.Err(); err != nil {
			return nil, etlerr.Transformation(p.name, err)
		}
		next, err := transform.Apply(r.Rule, transform.Params{Columns: r.Columns, Value: r.Value}, out, p.logger)
		if err != nil {
			return nil, etlerr.Transformation(p.name, fmt.Errorf("rule #%d (%s): %w", i+1, r.Rule, err))
		}
		p.logger.Logf(logging.Debug, "[%s] Rule %s: %d -> %d rows.", p.name, r.Rule, out.Len(), next.Len())
		out = next
	}
	if out.Len() < ds.Len() {
		p.logger.Logf(logging.Info, "[%s] Cleaning removed %d of %d rows.", p.name, ds.Len()-out.Len(), ds.Len())
	}
	return out, nil
}
