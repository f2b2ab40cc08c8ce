// Package events builds and publishes movie lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"git.cscs.ch/openchami/chamicore-movies/internal/model"
)

// JSONDataContentType is the content type of every event payload.
const JSONDataContentType = "application/json"

const (
	// Source identifies this service as the event producer.
	Source = "chamicore-movies"

	// SubjectPrefix is the NATS subject prefix for movie events.
	SubjectPrefix = "chamicore.movies.movie"
)

// Action is a movie lifecycle transition.
type Action string

// Movie lifecycle actions.
const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Type returns the event type for a.
func (a Action) Type() string {
	return SubjectPrefix + "." + string(a)
}

// Event is a CloudEvents style envelope.
type Event struct {
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	Subject         string          `json:"subject"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// MovieData is the payload of a movie event. Deleted events carry only the
// identity fields.
type MovieData struct {
	ID            string   `json:"id"`
	Slug          string   `json:"slug"`
	Title         string   `json:"title,omitempty"`
	YearOfRelease int      `json:"yearOfRelease,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Actor         string   `json:"actor,omitempty"`
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NewMovieEvent builds the event announcing action on m, performed by actor.
func NewMovieEvent(action Action, m model.Movie, actor string, now time.Time) (Event, error) {
	if m.ID == uuid.Nil {
		return Event{}, fmt.Errorf("movie id is required")
	}

	payload := MovieData{
		ID:    m.ID.String(),
		Slug:  m.Slug,
		Actor: actor,
	}
	if action != ActionDeleted {
		payload.Title = m.Title
		payload.YearOfRelease = m.YearOfRelease
		payload.Genres = m.Genres
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshaling movie %s payload: %w", action, err)
	}

	return Event{
		ID:              "evt-" + uuid.NewString(),
		Source:          Source,
		Type:            action.Type(),
		Subject:         m.ID.String(),
		Time:            now.UTC(),
		DataContentType: JSONDataContentType,
		Data:            data,
	}, nil
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() error { return nil }
