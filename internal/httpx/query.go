package httpx

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// query collects filter parse failures so a handler can report all of them at once.
type query struct {
	v    url.Values
	errs fieldErrors
}

func newQuery(r *http.Request) *query {
	return &query{v: r.URL.Query(), errs: fieldErrors{}}
}

func (q *query) str(key string) string { return strings.TrimSpace(q.v.Get(key)) }

func (q *query) decimal(key string) *decimal.Decimal {
	s := q.str(key)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		q.errs[key] = "Enter a number."
		return nil
	}
	return &d
}

func (q *query) int(key string) *int {
	s := q.str(key)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		q.errs[key] = "Enter a whole number."
		return nil
	}
	return &n
}

func (q *query) int64(key string) *int64 {
	s := q.str(key)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		q.errs[key] = "Enter a whole number."
		return nil
	}
	return &n
}

func (q *query) bool(key string) *bool {
	s := strings.ToLower(q.str(key))
	if s == "" {
		return nil
	}
	var b bool
	switch s {
	case "true", "1", "yes", "on":
		b = true
	case "false", "0", "no", "off":
		b = false
	default:
		q.errs[key] = "Enter a boolean."
		return nil
	}
	return &b
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func (q *query) time(key string) *time.Time {
	s := q.str(key)
	if s == "" {
		return nil
	}
	t, err := parseTime(s)
	if err != nil {
		q.errs[key] = "Enter a valid date/time."
		return nil
	}
	return &t
}

// parseTime accepts RFC3339 and the naive forms; naive values are UTC.
func parseTime(s string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func (q *query) valid() bool { return len(q.errs) == 0 }

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
