package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/vaxdash/internal/domain/model"
	"github.com/okian/vaxdash/internal/domain/projection"
	"github.com/okian/vaxdash/internal/domain/ranking"
)

// Control values.
const (
	ModeVaccineType = "vaccine_type"
	ModeAgeGroup    = "age_group"

	CriterionSeriesComplete = "series_complete"
	CriterionCovidRate      = "covid_rate"
)

// Controls are the user inputs of one recomputation pass.
type Controls struct {
	Date      model.Date `json:"date"`
	Mode      string     `json:"mode" validate:"oneof=vaccine_type age_group"`
	Detail    string     `json:"detail" validate:"oneof=vaccine_type age_group"`
	Criterion string     `json:"criterion" validate:"oneof=series_complete covid_rate"`
	Direction string     `json:"direction" validate:"oneof=descending ascending desc asc"`
	Show      int        `json:"show" validate:"min=1"`
	Lag       int        `json:"lag" validate:"min=0"`
}

// RankingQuery selects one ranking.
type RankingQuery struct {
	Date      model.Date
	Criterion string
	Direction string
	Show      int
}

// Ranking returns the ranking part of c.
func (c Controls) Ranking() RankingQuery {
	return RankingQuery{Date: c.Date, Criterion: c.Criterion, Direction: c.Direction, Show: c.Show}
}

// DefaultControls returns the controls shown before any user input.
func (s *Service) DefaultControls() Controls {
	return Controls{
		Date:      s.defaultDate,
		Mode:      ModeVaccineType,
		Detail:    ModeVaccineType,
		Criterion: CriterionSeriesComplete,
		Direction: string(ranking.Descending),
		Show:      s.defaultShow,
		Lag:       0,
	}
}

// Validate checks c against the tag rules and the configured bounds.
func (s *Service) Validate(c Controls) error {
	err := s.validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidControls, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidControls, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", fe.Field(), fe.Param(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	case "daterange":
		return fmt.Sprintf("%s %v outside [%s]", fe.Field(), fe.Value(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

// newValidator builds the Controls validator. Bounds that come from
// configuration are enforced by a struct-level rule.
func newValidator(s *Service) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		c, ok := sl.Current().Interface().(Controls)
		if !ok {
			return
		}
		if c.Date.Before(s.minDate) || c.Date.After(s.maxDate) {
			sl.ReportError(c.Date.String(), "date", "Date", "daterange", s.minDate.String()+", "+s.maxDate.String())
		}
		if c.Show > s.maxShow {
			sl.ReportError(c.Show, "show", "Show", "max", fmt.Sprint(s.maxShow))
		}
		if c.Lag > s.maxLag {
			sl.ReportError(c.Lag, "lag", "Lag", "max", fmt.Sprint(s.maxLag))
		}
	}, Controls{})
	return v
}

// criterionColumn maps a ranking criterion to its metric column.
func criterionColumn(criterion string) string {
	if criterion == CriterionCovidRate {
		return model.ColumnCovidRate
	}
	return model.ColumnSeriesCompletePct
}

// weeklySchema returns the weekly category schema of mode.
func weeklySchema(mode string) projection.Schema {
	if mode == ModeAgeGroup {
		return projection.AgeBracket
	}
	return projection.VaccineType
}

// detailSchema returns the per-state detail schema of mode and whether its
// values are raw counts needing per-capita normalisation.
func detailSchema(mode string) (projection.Schema, bool) {
	if mode == ModeAgeGroup {
		return projection.SeriesByAge, false
	}
	return projection.SeriesByVaccine, true
}
