package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.cscs.ch/openchami/chamicore-movies/pkg/types"
)

func TestRespondProblem(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/movies/v1/movies/x", nil)
	rec := httptest.NewRecorder()

	RespondProblemf(rec, req, http.StatusNotFound, "movie %q not found", "x")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ProblemContentType, rec.Header().Get("Content-Type"))

	var problem types.ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	assert.Equal(t, types.ProblemDetail{
		Type:     "about:blank",
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   `movie "x" not found`,
		Instance: "/movies/v1/movies/x",
	}, problem)
}

func TestRespondValidationProblem(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/movies/v1/movies", nil)
	rec := httptest.NewRecorder()

	RespondValidationProblem(rec, req, []types.ValidationError{{Field: "title", Message: "required"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var problem types.ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	assert.Equal(t, []types.ValidationError{{Field: "title", Message: "required"}}, problem.Errors)
}

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"title":"Dune"}`},
		{name: "unknown field", body: `{"title":"Dune","extra":1}`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
		{name: "trailing object", body: `{"title":"a"}{"title":"b"}`, wantErr: true},
		{name: "malformed", body: `{"title":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(req, &p)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Dune", p.Title)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := middleware.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var inner, access map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &inner))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &access))

	assert.NotEmpty(t, inner["request_id"])
	assert.Equal(t, inner["request_id"], access["request_id"])
	assert.Equal(t, "warn", access["level"])
	assert.Equal(t, "/health", access["path"])
	assert.EqualValues(t, http.StatusTeapot, access["status"])
}

func TestMiddlewareHeaders(t *testing.T) {
	h := SecureHeaders(APIVersion("movies/v1")(CacheControl(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "movies/v1", rec.Header().Get("X-API-Version"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestContentType(t *testing.T) {
	h := ContentType(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	h := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v map[string]string
		if err := DecodeJSON(r, &v); err != nil {
			RespondProblem(w, r, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"a very long title"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ProblemContentType, rec.Header().Get("Content-Type"))
}

func TestProbeHandlers(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ReadinessHandler(func() error { return errors.New("warming up") }).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "warming up")

	rec = httptest.NewRecorder()
	ReadinessHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	VersionHandler("chamicore-movies", "v1", "abc", "now").
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.JSONEq(t, `{"service":"chamicore-movies","version":"v1","commit":"abc","buildDate":"now"}`, rec.Body.String())
}
