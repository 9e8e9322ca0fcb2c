package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/game-topup-api/internal/apperr"
)

func init() {
	// money goes out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type affected struct {
	Message      string `json:"message"`
	AffectedRows int64  `json:"affectedRows"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, apiError{Error: code, Message: message, Details: details})
}

// writeErr maps the error taxonomy onto a status code and the error envelope.
func writeErr(w http.ResponseWriter, logger log.FieldLogger, err error) {
	var details any
	var fe *fieldErrors
	if errors.As(err, &fe) {
		details = fe.fields
	}

	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", apperr.Message(err), details)
	case errors.Is(err, apperr.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", apperr.Message(err), nil)
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", apperr.Message(err), nil)
	case errors.Is(err, apperr.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", apperr.Message(err), nil)
	case errors.Is(err, apperr.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, "too_many_attempts", apperr.Message(err), nil)
	default:
		logger.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	}
}

// decodeJSON reads a single JSON document of at most 1MiB. Unknown fields are
// ignored; numbers decode as json.Number into untyped destinations.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid json body: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validation("invalid json body: extra data after json")
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors is a validation failure that names the offending fields.
type fieldErrors struct {
	fields map[string]string
}

func (e *fieldErrors) Error() string {
	names := make([]string, 0, len(e.fields))
	for k := range e.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "missing or invalid fields: " + strings.Join(names, ", ")
}

func (e *fieldErrors) Unwrap() error { return apperr.ErrValidation }

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return errors.Wrap(apperr.ErrValidation, err.Error())
	}
	fe := &fieldErrors{fields: make(map[string]string, len(ve))}
	for _, f := range ve {
		fe.fields[f.Field()] = f.Tag()
	}
	return fe
}
