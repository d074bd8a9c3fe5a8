package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/yanizio/portal/internal/apperr"
)

// maxBody caps request bodies.  Commands are small.
const maxBody = 1 << 20

// Decode reads a JSON body into v.  Unknown fields are rejected.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	return decode(w, r, v, false)
}

// DecodeOptional is Decode that accepts an empty body.
func DecodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	return decode(w, r, v, true)
}

func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return apperr.Validation("body", "too large")
		}
		return apperr.Validation("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// QueryTime parses an RFC 3339 timestamp or YYYY-MM-DD date from the query
// string.  A bare date means the start of that day (UTC).  Missing values
// return nil.
func QueryTime(r *http.Request, name string) (*time.Time, error) {
	t, _, err := queryTime(r, name)
	return t, err
}

// QueryTimeEnd is QueryTime for inclusive upper bounds: a bare date means
// the last instant of that day, so "to=2025-04-01" keeps records from the
// whole of April 1st.
func QueryTimeEnd(r *http.Request, name string) (*time.Time, error) {
	t, dateOnly, err := queryTime(r, name)
	if err != nil || t == nil || !dateOnly {
		return t, err
	}
	end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return &end, nil
}

func queryTime(r *http.Request, name string) (*time.Time, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, false, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, false, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t, true, nil
	}
	return nil, false, apperr.Validation(name, "must be RFC 3339 or YYYY-MM-DD")
}

// QueryInt64 parses an optional integer query parameter.
func QueryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.Validation(name, "must be an integer")
	}
	return &n, nil
}
