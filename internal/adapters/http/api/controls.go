package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	service "github.com/okian/vaxdash/internal/app"
	"github.com/okian/vaxdash/internal/domain/model"
)

// parseControls overlays query parameters on def. Absent parameters keep
// their default; range checks are left to the service.
func parseControls(q url.Values, def service.Controls) (service.Controls, error) {
	c := def
	if v := strings.TrimSpace(q.Get("date")); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			return c, fmt.Errorf("%w: date: %w", ErrBadRequest, err)
		}
		c.Date = d
	}
	if v := strings.TrimSpace(q.Get("mode")); v != "" {
		c.Mode = v
	}
	if v := strings.TrimSpace(q.Get("detail")); v != "" {
		c.Detail = v
	}
	if v := strings.TrimSpace(q.Get("criterion")); v != "" {
		c.Criterion = v
	}
	if v := strings.TrimSpace(q.Get("direction")); v != "" {
		c.Direction = v
	}
	var err error
	if c.Show, err = intParam(q, "show", c.Show); err != nil {
		return c, err
	}
	if c.Lag, err = intParam(q, "lag", c.Lag); err != nil {
		return c, err
	}
	return c, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	return n, nil
}
