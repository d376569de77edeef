// Package projection unpivots wide category columns into long-form rows.
package projection

// Category maps an output label to the source column holding its value.
type Category struct {
	Label  string
	Column string
}

// Schema is an ordered, mutually exclusive set of categories.
type Schema struct {
	Name       string
	Categories []Category
}

// Labels returns the category labels in declaration order.
func (s Schema) Labels() []string {
	out := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		out[i] = c.Label
	}
	return out
}

// Columns returns the source columns in declaration order.
func (s Schema) Columns() []string {
	out := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		out[i] = c.Column
	}
	return out
}

// Weekly series schemas. Labels and columns coincide in the weekly table.
var (
	VaccineType = Schema{
		Name: "vaccine_type",
		Categories: []Category{
			{Label: "All", Column: "All"},
			{Label: "Janssen", Column: "Janssen"},
			{Label: "Moderna", Column: "Moderna"},
			{Label: "Pfizer", Column: "Pfizer"},
			{Label: "Unknown", Column: "Unknown"},
		},
	}

	AgeBracket = Schema{
		Name: "age_group",
		Categories: []Category{
			{Label: "All", Column: "All"},
			{Label: "age<12", Column: "age<12"},
			{Label: "12<=age<18", Column: "12<=age<18"},
			{Label: "18<=age<65", Column: "18<=age<65"},
			{Label: "age>=65", Column: "age>=65"},
		},
	}
)

// Per-state completed series schemas used by the ranking detail view.
var (
	// SeriesByVaccine holds raw counts; project it per capita.
	SeriesByVaccine = Schema{
		Name: "vaccine_type",
		Categories: []Category{
			{Label: "Pfizer", Column: "Pfizer_num"},
			{Label: "Moderna", Column: "Moderna_num"},
			{Label: "Janssen", Column: "Janssen_num"},
		},
	}

	// SeriesByAge holds percentages already normalised by population.
	SeriesByAge = Schema{
		Name: "age_group",
		Categories: []Category{
			{Label: "age>=12", Column: "age>=12"},
			{Label: "age>=18", Column: "age>=18"},
			{Label: "age>=65", Column: "age>=65"},
		},
	}
)
