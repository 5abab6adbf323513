package notes_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/notes_sdk_go/internal/httpx"
	"github.com/Ratio1/notes_sdk_go/pkg/notes"
)

func TestClientRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/notes":
			io.WriteString(w, `[{"id":1,"text":"a","votes":2},{"id":5,"text":"Buy milk","votes":0}]`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/notes":
			var payload map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, map[string]string{"text": "Buy milk"}, payload)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			io.WriteString(w, `{"id":5,"text":"Buy milk","votes":0}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/notes/5/vote":
			assert.Equal(t, "down", r.URL.Query().Get("type"))
			io.WriteString(w, `{"id":5,"text":"Buy milk","votes":-1}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/notes/5":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/notes/6":
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := notes.New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	list, err := client.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []notes.Note{{ID: 1, Text: "a", Votes: 2}, {ID: 5, Text: "Buy milk", Votes: 0}}, list)

	created, err := client.Create(ctx, "Buy milk")
	require.NoError(t, err)
	assert.Equal(t, notes.Note{ID: 5, Text: "Buy milk"}, created)

	voted, err := client.Vote(ctx, 5, notes.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), voted.Votes)

	require.NoError(t, client.Delete(ctx, 5))

	err = client.Delete(ctx, 6)
	require.Error(t, err)
	assert.True(t, notes.IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, httpx.StatusCode(err))
}

func TestClientValidatesBeforeRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unexpected call", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := notes.New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Create(ctx, " \t\n")
	assert.ErrorIs(t, err, notes.ErrEmptyText)

	_, err = client.Vote(ctx, 5, notes.VoteDirection("sideways"))
	assert.ErrorIs(t, err, notes.ErrInvalidVoteDirection)

	_, err = client.Vote(ctx, 0, notes.VoteUp)
	assert.ErrorIs(t, err, notes.ErrInvalidID)

	assert.ErrorIs(t, client.Delete(ctx, -3), notes.ErrInvalidID)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClientRejectsMalformedPayloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, `{"not":"a list"}`)
		default:
			io.WriteString(w, `{"id":0,"text":""}`)
		}
	}))
	defer srv.Close()

	client, err := notes.New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.List(ctx)
	assert.Error(t, err)
	_, err = client.Create(ctx, "x")
	assert.Error(t, err)
}

func TestParseVoteDirection(t *testing.T) {
	d, err := notes.ParseVoteDirection(" UP ")
	require.NoError(t, err)
	assert.Equal(t, notes.VoteUp, d)

	d, err = notes.ParseVoteDirection("down")
	require.NoError(t, err)
	assert.Equal(t, notes.VoteDown, d)

	_, err = notes.ParseVoteDirection("left")
	assert.ErrorIs(t, err, notes.ErrInvalidVoteDirection)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, notes.IsNotFound(notes.ErrNotFound))
	assert.True(t, notes.IsNotFound(&httpx.HTTPError{StatusCode: http.StatusNotFound}))
	assert.False(t, notes.IsNotFound(&httpx.HTTPError{StatusCode: http.StatusInternalServerError}))
	assert.False(t, notes.IsNotFound(errors.New("other")))
}

func TestClientWatch(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notes/events" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(notes.Event{Type: notes.EventCreated, Note: notes.Note{ID: 1, Text: "a"}})
		_ = conn.WriteJSON(notes.Event{Type: notes.EventDeleted, Note: notes.Note{ID: 1, Text: "a"}})
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client, err := notes.New(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []notes.Event
	err = client.Watch(ctx, func(ev notes.Event) {
		got = append(got, ev)
		if len(got) == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 2)
	assert.Equal(t, notes.EventCreated, got[0].Type)
	assert.Equal(t, notes.EventDeleted, got[1].Type)
}

func TestClientWatchUnsupported(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client, err := notes.New(srv.URL)
	require.NoError(t, err)

	err = client.Watch(context.Background(), func(notes.Event) {})
	assert.ErrorIs(t, err, notes.ErrWatchUnsupported)
}
