package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	natssrv "github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.cscs.ch/openchami/chamicore-movies/internal/model"
)

func testMovie() model.Movie {
	return model.Movie{
		ID:            uuid.MustParse("2f6c1d6e-5c1b-4e0f-9d0a-6f1f3c2b9a10"),
		Title:         "Dune",
		Slug:          "dune-1984",
		YearOfRelease: 1984,
		Genres:        []string{"Sci-Fi"},
	}
}

func TestNewMovieEvent(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	m := testMovie()

	event, err := NewMovieEvent(ActionCreated, m, "alice", now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(event.ID, "evt-"))
	assert.Equal(t, Source, event.Source)
	assert.Equal(t, "chamicore.movies.movie.created", event.Type)
	assert.Equal(t, m.ID.String(), event.Subject)
	assert.Equal(t, JSONDataContentType, event.DataContentType)
	assert.Equal(t, time.UTC, event.Time.Location())

	var payload MovieData
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, MovieData{
		ID:            m.ID.String(),
		Slug:          "dune-1984",
		Title:         "Dune",
		YearOfRelease: 1984,
		Genres:        []string{"Sci-Fi"},
		Actor:         "alice",
	}, payload)
}

func TestNewMovieEvent_DeletedCarriesIdentityOnly(t *testing.T) {
	event, err := NewMovieEvent(ActionDeleted, testMovie(), "", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "chamicore.movies.movie.deleted", event.Type)

	var payload MovieData
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "dune-1984", payload.Slug)
	assert.Empty(t, payload.Title)
	assert.Empty(t, payload.Genres)
}

func TestNewMovieEvent_RequiresID(t *testing.T) {
	m := testMovie()
	m.ID = uuid.Nil

	_, err := NewMovieEvent(ActionUpdated, m, "", time.Now())
	require.Error(t, err)
}

func TestNewMovieEvent_UniqueIDs(t *testing.T) {
	a, err := NewMovieEvent(ActionUpdated, testMovie(), "", time.Now())
	require.NoError(t, err)
	b, err := NewMovieEvent(ActionUpdated, testMovie(), "", time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	require.NoError(t, p.Publish(context.Background(), Event{Type: "x"}))
	require.NoError(t, p.Close())
}

func TestNewNATSPublisher_ConfigErrors(t *testing.T) {
	_, err := NewNATSPublisher(NATSConfig{Stream: StreamConfig{Name: "S"}})
	require.Error(t, err)

	_, err = NewNATSPublisher(NATSConfig{URL: "nats://127.0.0.1:4222"})
	require.Error(t, err)
}

func TestNATSPublisher_PublishesToStream(t *testing.T) {
	natsURL := startEmbeddedNATS(t)

	publisher, err := NewNATSPublisher(NATSConfig{
		URL:    natsURL,
		Name:   "chamicore-movies-test",
		Stream: StreamConfig{Name: "CHAMICORE_MOVIES"},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, publisher.Close())
	})

	m := testMovie()
	for _, action := range []Action{ActionCreated, ActionUpdated, ActionDeleted} {
		event, err := NewMovieEvent(action, m, "alice", time.Now())
		require.NoError(t, err)
		require.NoError(t, publisher.Publish(context.Background(), event))
	}

	conn, err := natsgo.Connect(natsURL)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	js, err := conn.JetStream()
	require.NoError(t, err)

	published := streamEvents(t, js, "CHAMICORE_MOVIES")
	require.Len(t, published, 3)
	assert.Equal(t, "chamicore.movies.movie.created", published[0].Type)
	assert.Equal(t, "chamicore.movies.movie.updated", published[1].Type)
	assert.Equal(t, "chamicore.movies.movie.deleted", published[2].Type)
	for _, event := range published {
		assert.Equal(t, m.ID.String(), event.Subject)
		assert.Equal(t, Source, event.Source)
	}
}

func TestNATSPublisher_ReusesExistingStream(t *testing.T) {
	natsURL := startEmbeddedNATS(t)
	cfg := NATSConfig{URL: natsURL, Stream: StreamConfig{Name: "CHAMICORE_MOVIES"}}

	first, err := NewNATSPublisher(cfg)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewNATSPublisher(cfg)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestNATSPublisher_RejectsUntypedEvent(t *testing.T) {
	natsURL := startEmbeddedNATS(t)

	publisher, err := NewNATSPublisher(NATSConfig{URL: natsURL, Stream: StreamConfig{Name: "CHAMICORE_MOVIES"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	require.Error(t, publisher.Publish(context.Background(), Event{ID: "evt-1"}))
}

func streamEvents(t *testing.T, js natsgo.JetStreamContext, stream string) []Event {
	t.Helper()

	info, err := js.StreamInfo(stream)
	require.NoError(t, err)
	require.NotNil(t, info)

	items := make([]Event, 0, info.State.Msgs)
	for seq := info.State.FirstSeq; seq <= info.State.LastSeq; seq++ {
		msg, err := js.GetMsg(stream, seq)
		if err != nil {
			continue
		}

		var event Event
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		items = append(items, event)
	}

	return items
}

func startEmbeddedNATS(t *testing.T) string {
	t.Helper()

	srv, err := natssrv.NewServer(&natssrv.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	require.NoError(t, err)

	go srv.Start()
	require.True(t, srv.ReadyForConnections(10*time.Second), "nats server did not become ready")

	t.Cleanup(func() {
		srv.Shutdown()
		srv.WaitForShutdown()
	})

	return fmt.Sprintf("nats://%s", srv.Addr().String())
}
