package projection

import "github.com/okian/vaxdash/internal/domain/model"

// Option applies a configuration option to a projection run.
type Option func(*options)

type options struct {
	perCapita   bool
	casesColumn string
}

// WithPerCapita divides every category value by the record's population.
func WithPerCapita() Option {
	return func(o *options) {
		o.perCapita = true
	}
}

// WithCasesColumn copies the named column onto every emitted row as Cases.
func WithCasesColumn(column string) Option {
	return func(o *options) {
		o.casesColumn = column
	}
}

// Project emits one row per (record, category): records in input order, and
// within a record categories in schema order. Rows are always emitted; a
// missing cell yields 0 with FlagMissingValue and a non-positive population
// under WithPerCapita yields 0 with FlagPopulationZero. A missing cases cell
// under WithCasesColumn sets FlagMissingValue and leaves Cases at 0.
func Project(records []model.Record, schema Schema, opts ...Option) []model.CategoryRow {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	out := make([]model.CategoryRow, 0, len(records)*len(schema.Categories))
	for _, r := range records {
		cases, casesOK := 0.0, true
		if o.casesColumn != "" {
			cases, casesOK = r.Metric(o.casesColumn)
		}
		for _, c := range schema.Categories {
			row := model.CategoryRow{
				State:    r.State,
				Location: r.Location,
				Date:     r.Date,
				Year:     r.Year,
				Week:     r.Week,
				Label:    c.Label,
				Cases:    cases,
			}
			v, ok := r.Metric(c.Column)
			if !ok || !casesOK {
				row.Flags |= model.FlagMissingValue
			}
			switch {
			case o.perCapita && r.Population <= 0:
				row.Flags |= model.FlagPopulationZero
			case !ok:
			case o.perCapita:
				row.Value = v / float64(r.Population)
			default:
				row.Value = v
			}
			out = append(out, row)
		}
	}
	return out
}
