// Package httputil holds the HTTP response, request decoding and middleware
// helpers shared by the movies API handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"git.cscs.ch/openchami/chamicore-movies/pkg/types"
)

// ProblemContentType is the media type of RFC 9457 problem responses.
const ProblemContentType = "application/problem+json"

// RespondJSON writes v as a JSON body with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// RespondProblem writes an RFC 9457 problem with the given status and detail.
func RespondProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeProblem(w, r, types.ProblemDetail{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// RespondProblemf is RespondProblem with a formatted detail.
func RespondProblemf(w http.ResponseWriter, r *http.Request, status int, format string, args ...any) {
	RespondProblem(w, r, status, fmt.Sprintf(format, args...))
}

// RespondValidationProblem writes a 400 problem listing field errors.
func RespondValidationProblem(w http.ResponseWriter, r *http.Request, errs []types.ValidationError) {
	writeProblem(w, r, types.ProblemDetail{
		Type:     "about:blank",
		Title:    http.StatusText(http.StatusBadRequest),
		Status:   http.StatusBadRequest,
		Detail:   "one or more fields failed validation",
		Instance: r.URL.Path,
		Errors:   errs,
	})
}

func writeProblem(w http.ResponseWriter, r *http.Request, problem types.ProblemDetail) {
	if problem.Status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Int("status", problem.Status).Str("detail", problem.Detail).Msg("request failed")
	}
	w.Header().Set("Content-Type", ProblemContentType)
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

// DecodeJSON decodes the request body into v, rejecting unknown fields and
// trailing data.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
