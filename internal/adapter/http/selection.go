package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
)

// Query parameter names. state and month may repeat.
const (
	paramState        = "state"
	paramMunicipality = "municipality"
	paramMonth        = "month"
	paramCause        = "cause"
)

// selectionQuery mirrors the filter query parameters for validation.
type selectionQuery struct {
	States       []string `validate:"max=100,dive,max=64"`
	Municipality string   `validate:"max=120"`
	Months       []string `validate:"max=12,dive,month_name"`
	Cause        string   `validate:"max=200"`
}

// ValidationError reports a malformed filter selection.
type ValidationError struct {
	Field string
	Value string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: failed %s", e.Field, e.Value, e.Rule)
}

type selectionParser struct {
	validate *validator.Validate
}

func newSelectionParser() *selectionParser {
	v := validator.New(validator.WithRequiredStructEnabled())
	// month_name accepts the Portuguese month names used in the dataset.
	must(v.RegisterValidation("month_name", isMonthName))
	return &selectionParser{validate: v}
}

func isMonthName(fl validator.FieldLevel) bool {
	_, ok := domain.MonthNumber(fl.Field().String())
	return ok
}

// must panics on validator registration errors, which are programming
// mistakes caught at startup.
func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("register validation: %v", err))
	}
}

// parse reads a domain.Selection from the request's query string. Blank
// values are ignored and missing single-choice filters default to domain.All.
func (p *selectionParser) parse(r *http.Request) (domain.Selection, error) {
	q := r.URL.Query()
	sq := selectionQuery{
		States:       nonBlank(q[paramState]),
		Municipality: strings.TrimSpace(q.Get(paramMunicipality)),
		Months:       nonBlank(q[paramMonth]),
		Cause:        strings.TrimSpace(q.Get(paramCause)),
	}

	if err := p.validate.Struct(sq); err != nil {
		return domain.Selection{}, toValidationError(err)
	}

	sel := domain.Selection{
		States:       sq.States,
		Municipality: sq.Municipality,
		Months:       sq.Months,
		Cause:        sq.Cause,
	}
	if sel.Municipality == "" {
		sel.Municipality = domain.All
	}
	if sel.Cause == "" {
		sel.Cause = domain.All
	}
	return sel, nil
}

// encodeSelection renders sel back into query parameters, omitting
// unconstrained dimensions.
func encodeSelection(sel domain.Selection) url.Values {
	v := url.Values{}
	for _, s := range sel.States {
		v.Add(paramState, s)
	}
	if sel.Municipality != "" && sel.Municipality != domain.All {
		v.Set(paramMunicipality, sel.Municipality)
	}
	for _, m := range sel.Months {
		v.Add(paramMonth, m)
	}
	if sel.Cause != "" && sel.Cause != domain.All {
		v.Set(paramCause, sel.Cause)
	}
	return v
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: "query", Rule: err.Error()}
	}
	fe := verrs[0]
	return &ValidationError{
		Field: queryName(fe.StructField()),
		Value: fmt.Sprint(fe.Value()),
		Rule:  fe.Tag(),
	}
}

func queryName(field string) string {
	switch {
	case strings.HasPrefix(field, "States"):
		return paramState
	case strings.HasPrefix(field, "Months"):
		return paramMonth
	case field == "Municipality":
		return paramMunicipality
	case field == "Cause":
		return paramCause
	default:
		return strings.ToLower(field)
	}
}
