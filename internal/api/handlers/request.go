package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cloo-solutions/faqdesk/internal/api"
	"github.com/cloo-solutions/faqdesk/internal/api/middleware"
	"github.com/cloo-solutions/faqdesk/internal/domain"
)

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads and validates a request body, writing a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.ErrorWithCode(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		api.ErrorWithCode(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

// requireTenant returns the authenticated tenant or writes a 401
func requireTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.ErrorWithCode(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return "", false
	}
	return tenantID, true
}

// parseWindow reads optional RFC 3339 "from" and "to" query parameters
func parseWindow(r *http.Request) (domain.TimeWindow, error) {
	var window domain.TimeWindow
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &window.From}, {"to", &window.To}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return window, domain.NewDomainError(domain.ErrCodeValidation, p.name+" must be an RFC 3339 timestamp")
		}
		t = t.UTC()
		*p.dst = &t
	}
	return window, window.Validate()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
