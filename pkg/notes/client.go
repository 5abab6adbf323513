package notes

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ratio1/notes_sdk_go/internal/httpx"
	"github.com/Ratio1/notes_sdk_go/internal/notesapi"
)

const (
	notesPath  = "/api/notes"
	eventsPath = "/api/notes/events"
)

// Backend is the transport behind a Client.
type Backend interface {
	List(ctx context.Context) ([]Note, error)
	Create(ctx context.Context, text string) (Note, error)
	Vote(ctx context.Context, id int64, dir VoteDirection) (Note, error)
	Delete(ctx context.Context, id int64) error
	Watch(ctx context.Context, fn func(Event)) error
}

// Client provides access to the notes REST API.
type Client struct {
	backend Backend
}

// New constructs a Client bound to the provided base URL.
func New(baseURL string, opts ...httpx.Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(cl), nil
}

// NewWithHTTPClient wraps an existing httpx.Client.
func NewWithHTTPClient(httpClient *httpx.Client) *Client {
	return &Client{backend: &httpBackend{client: httpClient}}
}

// NewWithBackend allows callers to supply a custom backend (e.g., mocks).
func NewWithBackend(b Backend) *Client {
	return &Client{backend: b}
}

// List fetches every note in server order.
func (c *Client) List(ctx context.Context) ([]Note, error) {
	if c == nil || c.backend == nil {
		return nil, fmt.Errorf("notes: client is nil")
	}
	return c.backend.List(ctx)
}

// Create posts a new note and returns it as stored by the server.
func (c *Client) Create(ctx context.Context, text string) (Note, error) {
	if strings.TrimSpace(text) == "" {
		return Note{}, ErrEmptyText
	}
	if c == nil || c.backend == nil {
		return Note{}, fmt.Errorf("notes: client is nil")
	}
	return c.backend.Create(ctx, text)
}

// Vote applies an up or down vote and returns the updated note.
func (c *Client) Vote(ctx context.Context, id int64, dir VoteDirection) (Note, error) {
	if id <= 0 {
		return Note{}, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	if !dir.Valid() {
		return Note{}, fmt.Errorf("%w: %q", ErrInvalidVoteDirection, string(dir))
	}
	if c == nil || c.backend == nil {
		return Note{}, fmt.Errorf("notes: client is nil")
	}
	return c.backend.Vote(ctx, id, dir)
}

// Delete removes a note.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	if c == nil || c.backend == nil {
		return fmt.Errorf("notes: client is nil")
	}
	return c.backend.Delete(ctx, id)
}

// Watch blocks delivering change feed events to fn until ctx ends or the
// feed fails. It returns ctx.Err() on cancellation.
func (c *Client) Watch(ctx context.Context, fn func(Event)) error {
	if fn == nil {
		return fmt.Errorf("notes: watch callback is required")
	}
	if c == nil || c.backend == nil {
		return fmt.Errorf("notes: client is nil")
	}
	return c.backend.Watch(ctx, fn)
}

type httpBackend struct {
	client *httpx.Client
	dialer *websocket.Dialer
}

func notePath(id int64) string {
	return notesPath + "/" + strconv.FormatInt(id, 10)
}

func (b *httpBackend) List(ctx context.Context) ([]Note, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("notes: http backend not configured")
	}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   notesPath,
		Header: http.Header{"Accept": []string{"application/json"}},
	})
	if err != nil {
		return nil, err
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("notes: read list response: %w", err)
	}
	list, err := notesapi.DecodeNotes(data)
	if err != nil {
		return nil, err
	}
	out := make([]Note, len(list))
	for i, n := range list {
		out[i] = Note(n)
	}
	return out, nil
}

func (b *httpBackend) Create(ctx context.Context, text string) (Note, error) {
	if b == nil || b.client == nil {
		return Note{}, fmt.Errorf("notes: http backend not configured")
	}
	req, err := httpx.JSONRequest(http.MethodPost, notesPath, notesapi.CreateRequest{Text: text})
	if err != nil {
		return Note{}, fmt.Errorf("notes: encode create request: %w", err)
	}
	return b.doNote(ctx, req)
}

func (b *httpBackend) Vote(ctx context.Context, id int64, dir VoteDirection) (Note, error) {
	if b == nil || b.client == nil {
		return Note{}, fmt.Errorf("notes: http backend not configured")
	}
	return b.doNote(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   notePath(id) + "/vote",
		Query:  url.Values{"type": {string(dir)}},
	})
}

func (b *httpBackend) Delete(ctx context.Context, id int64) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("notes: http backend not configured")
	}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   notePath(id),
	})
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

func (b *httpBackend) doNote(ctx context.Context, req *httpx.Request) (Note, error) {
	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return Note{}, err
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return Note{}, fmt.Errorf("notes: read response: %w", err)
	}
	n, err := notesapi.DecodeNote(data)
	if err != nil {
		return Note{}, err
	}
	return Note(n), nil
}

func (b *httpBackend) Watch(ctx context.Context, fn func(Event)) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("notes: http backend not configured")
	}
	u := b.client.BaseURL()
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u = u.ResolveReference(&url.URL{Path: eventsPath})

	dialer := b.dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return ErrWatchUnsupported
		}
		return fmt.Errorf("notes: dial change feed: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("notes: read change feed: %w", err)
		}
		fn(ev)
	}
}
