package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// pakai nama field JSON di pesan error
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors is rendered as {"error": "validation failed", "fields": {...}}.
type fieldErrors map[string]string

func (fe fieldErrors) Error() string { return "validation failed" }

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeFields(w http.ResponseWriter, fe fieldErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": fe.Error(), "fields": fe})
}

// decodeJSON reads a single JSON object into dst and runs struct validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is empty")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			writeFields(w, validationFields(vErrs))
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func validationFields(vErrs validator.ValidationErrors) fieldErrors {
	out := fieldErrors{}
	for _, fe := range vErrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		switch fe.Tag() {
		case "required":
			out[field] = "This field is required."
		case "min":
			if fe.Kind() == reflect.String {
				out[field] = fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
			} else if fe.Kind() == reflect.Slice {
				out[field] = fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
			} else {
				out[field] = fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
			}
		case "max":
			if fe.Kind() == reflect.String {
				out[field] = fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
			} else {
				out[field] = fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
			}
		case "gte":
			out[field] = fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
		case "lte":
			out[field] = fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
		case "email":
			out[field] = "Enter a valid email address."
		case "oneof":
			out[field] = fmt.Sprintf("Must be one of: %s.", fe.Param())
		case "eqfield":
			out[field] = "Passwords do not match."
		default:
			out[field] = "Invalid value (" + fe.Tag() + ")."
		}
	}
	return out
}
