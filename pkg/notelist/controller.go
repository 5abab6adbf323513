package notelist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Ratio1/notes_sdk_go/internal/httpx"
	"github.com/Ratio1/notes_sdk_go/internal/logger"
	"github.com/Ratio1/notes_sdk_go/internal/metrics"
	"github.com/Ratio1/notes_sdk_go/pkg/notes"
)

const (
	opLoad   = "load"
	opAdd    = "add"
	opVote   = "vote"
	opDelete = "delete"
	opWatch  = "watch"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used to report failed operations.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics records every operation on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// Controller owns the rendered note list. Operations may be called from
// several goroutines; render passes never interleave.
type Controller struct {
	client  *notes.Client
	view    View
	log     *logrus.Entry
	metrics *metrics.Metrics

	// issued is the generation of the most recently started refresh.
	issued atomic.Uint64

	mu       sync.Mutex
	rendered uint64
	entries  []Entry
}

// New builds a controller rendering into view.
func New(client *notes.Client, view View, opts ...Option) *Controller {
	c := &Controller{
		client: client,
		view:   view,
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadNotes fetches the full list and re-renders it. On failure the previous
// rendering is left untouched. When refreshes overlap, the response of the
// most recently issued one wins: an older response arriving late is dropped.
func (c *Controller) LoadNotes(ctx context.Context) error {
	gen := c.issued.Add(1)
	done := c.metrics.Track(opLoad)

	list, err := c.client.List(ctx)
	done(metrics.Status(err))
	if err != nil {
		c.fail(opLoad, 0, err, "failed to load notes")
		return err
	}

	entries := make([]Entry, len(list))
	for i, n := range list {
		entries[i] = EntryFromNote(n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen < c.rendered {
		if c.metrics != nil {
			c.metrics.StaleRefreshes.Inc()
		}
		c.log.WithFields(logrus.Fields{"op": opLoad, "generation": gen, "rendered": c.rendered}).
			Debug("dropping stale refresh")
		return nil
	}
	c.rendered = gen
	c.entries = entries
	c.view.Render(entries)
	if c.metrics != nil {
		c.metrics.RenderedNotes.Set(float64(len(entries)))
	}
	return nil
}

// AddNote creates a note from text and appends it to the rendered list.
// Blank text is ignored without contacting the service. The input is cleared
// only after the note was created.
func (c *Controller) AddNote(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	done := c.metrics.Track(opAdd)
	n, err := c.client.Create(ctx, text)
	done(metrics.Status(err))
	if err != nil {
		c.fail(opAdd, 0, err, "failed to add note")
		return err
	}

	entry := EntryFromNote(n)
	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.view.Append(entry)
	c.mu.Unlock()

	c.view.ClearInput()
	return nil
}

// Submit adds the note currently typed into the view's input.
func (c *Controller) Submit(ctx context.Context) error {
	return c.AddNote(ctx, c.view.Input())
}

// VoteOnNote votes on id and then reloads the whole list. The note returned
// by the vote is ignored; the reload is the source of truth.
func (c *Controller) VoteOnNote(ctx context.Context, id int64, dir notes.VoteDirection) error {
	done := c.metrics.Track(opVote)
	_, err := c.client.Vote(ctx, id, dir)
	done(metrics.Status(err))
	if err != nil {
		c.fail(opVote, id, err, "failed to vote on note")
		return err
	}
	return c.LoadNotes(ctx)
}

// DeleteNote deletes id and then reloads the whole list.
func (c *Controller) DeleteNote(ctx context.Context, id int64) error {
	done := c.metrics.Track(opDelete)
	err := c.client.Delete(ctx, id)
	done(metrics.Status(err))
	if err != nil {
		c.fail(opDelete, id, err, "failed to delete note")
		return err
	}
	return c.LoadNotes(ctx)
}

// Watch reloads the list for every change feed event until ctx ends.
func (c *Controller) Watch(ctx context.Context) error {
	err := c.client.Watch(ctx, func(ev notes.Event) {
		c.log.WithFields(logrus.Fields{"op": opWatch, "event": ev.Type, "note_id": ev.Note.ID}).
			Debug("change feed event")
		_ = c.LoadNotes(ctx)
	})
	if err != nil && ctx.Err() == nil {
		c.fail(opWatch, 0, err, "change feed stopped")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ctx.Err()
	}
	return err
}

// Entries returns a snapshot of the rendered list.
func (c *Controller) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Controller) fail(op string, id int64, err error, msg string) {
	fields := logrus.Fields{"op": op}
	if id != 0 {
		fields["note_id"] = id
	}
	if status := httpx.StatusCode(err); status != 0 {
		fields["status"] = status
	}
	c.log.WithFields(fields).WithError(err).Error(msg)
}
