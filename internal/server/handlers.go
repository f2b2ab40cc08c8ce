package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"git.cscs.ch/openchami/chamicore-movies/internal/auth"
	"git.cscs.ch/openchami/chamicore-movies/internal/events"
	"git.cscs.ch/openchami/chamicore-movies/internal/httputil"
	"git.cscs.ch/openchami/chamicore-movies/internal/model"
	"git.cscs.ch/openchami/chamicore-movies/internal/store"
	"git.cscs.ch/openchami/chamicore-movies/internal/validation"
	"git.cscs.ch/openchami/chamicore-movies/pkg/types"
)

const moviesPath = "/movies/v1/movies"

// handleCreateMovie creates a movie. The server assigns the ID and derives
// the slug from title and year.
//
// Response: 201 with Resource envelope + Location header.
// Errors:  400 for malformed bodies and validation failures.
func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req types.CreateMovieRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondProblemf(w, r, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	m := model.Movie{
		ID:            uuid.New(),
		Title:         strings.TrimSpace(req.Title),
		YearOfRelease: req.YearOfRelease,
		Genres:        req.Genres,
	}
	m.Slug = model.Slugify(m.Title, m.YearOfRelease)

	res := s.store.Create(m)
	if res.Outcome != store.OutcomeSucceeded {
		httputil.RespondValidationProblem(w, r, toValidationErrors(res.Violations))
		return
	}

	s.publish(r.Context(), events.ActionCreated, m)

	w.Header().Set("Location", fmt.Sprintf("%s/%s", moviesPath, m.ID))
	httputil.RespondJSON(w, http.StatusCreated, toMovieResource(m))
}

// handleGetMovie returns a single movie. The path value is tried as a UUID
// first and otherwise resolved as a slug.
//
// Response: 200 with Resource envelope.
// Errors:  404 if not found.
func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	idOrSlug := chi.URLParam(r, "id")

	var res store.LookupResult
	if id, err := uuid.Parse(idOrSlug); err == nil {
		res = s.store.GetByID(id)
	} else {
		res = s.store.GetBySlug(idOrSlug)
	}

	if res.Outcome != store.OutcomeSucceeded {
		httputil.RespondProblemf(w, r, http.StatusNotFound, "movie %q not found", idOrSlug)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, toMovieResource(res.Movie))
}

// handleListMovies returns every stored movie.
//
// Response: 200 with ResourceList envelope.
func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	movies := s.store.GetAll()

	items := make([]types.Resource[types.Movie], len(movies))
	for i, m := range movies {
		items[i] = toMovieResource(m)
	}

	httputil.RespondJSON(w, http.StatusOK, types.ResourceList[types.Resource[types.Movie]]{
		Kind:       types.MovieListKind,
		APIVersion: types.APIVersion,
		Metadata:   types.ListMetadata{TotalCount: len(items)},
		Items:      items,
	})
}

// handleUpdateMovie replaces a movie. The slug is re-derived, so changing
// the title or year moves the movie to a new slug.
//
// Response: 200 with updated Resource envelope.
// Errors:  400 for a malformed id, body or failed validation; 404.
func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMovieID(w, r)
	if !ok {
		return
	}

	var req types.UpdateMovieRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondProblemf(w, r, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	m := model.Movie{
		ID:            id,
		Title:         strings.TrimSpace(req.Title),
		YearOfRelease: req.YearOfRelease,
		Genres:        req.Genres,
	}
	m.Slug = model.Slugify(m.Title, m.YearOfRelease)

	res := s.store.Update(m)
	switch res.Outcome {
	case store.OutcomeSucceeded:
		s.publish(r.Context(), events.ActionUpdated, res.Movie)
		httputil.RespondJSON(w, http.StatusOK, toMovieResource(res.Movie))
	case store.OutcomeNotFound:
		httputil.RespondProblemf(w, r, http.StatusNotFound, "movie %q not found", id)
	default:
		httputil.RespondValidationProblem(w, r, toValidationErrors(res.Violations))
	}
}

// handleDeleteMovie deletes a movie by ID.
//
// Response: 200 with an empty body.
// Errors:  400 for a malformed id; 404 if not found.
func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := parseMovieID(w, r)
	if !ok {
		return
	}

	res := s.store.DeleteByID(id)
	if res.Outcome != store.OutcomeSucceeded {
		httputil.RespondProblemf(w, r, http.StatusNotFound, "movie %q not found", id)
		return
	}

	s.publish(r.Context(), events.ActionDeleted, res.Movie)

	w.WriteHeader(http.StatusOK)
}

func parseMovieID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.RespondProblemf(w, r, http.StatusBadRequest, "movie id %q is not a valid UUID", raw)
		return uuid.Nil, false
	}
	return id, true
}

// publish emits a lifecycle event. Failures are logged and never reach the
// caller.
func (s *Server) publish(ctx context.Context, action events.Action, m model.Movie) {
	logger := log.Ctx(ctx)

	var actor string
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		actor = p.Subject
	}

	event, err := events.NewMovieEvent(action, m, actor, s.now())
	if err != nil {
		logger.Warn().Err(err).Str("action", string(action)).Msg("failed to build movie event")
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event_id", event.ID).Str("type", event.Type).Msg("failed to publish movie event")
	}
}

func toMovieResource(m model.Movie) types.Resource[types.Movie] {
	genres := m.Genres
	if genres == nil {
		genres = []string{}
	}
	return types.Resource[types.Movie]{
		Kind:       types.MovieKind,
		APIVersion: types.APIVersion,
		Metadata:   types.ResourceMetadata{ID: m.ID.String()},
		Spec: types.Movie{
			Title:         m.Title,
			Slug:          m.Slug,
			YearOfRelease: m.YearOfRelease,
			Genres:        genres,
		},
	}
}

func toValidationErrors(violations validation.Violations) []types.ValidationError {
	out := make([]types.ValidationError, len(violations))
	for i, v := range violations {
		out[i] = types.ValidationError{Field: v.Field, Message: v.Message}
	}
	return out
}
