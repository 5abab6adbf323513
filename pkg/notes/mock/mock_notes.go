package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Ratio1/notes_sdk_go/internal/devseed"
	"github.com/Ratio1/notes_sdk_go/pkg/notes"
)

// DefaultEventBuffer is the per-subscriber channel capacity used by Subscribe.
const DefaultEventBuffer = 16

// Mock implements the notes service in memory: ids come from a counter that
// starts at 1, new notes start with zero votes and List returns notes in
// creation order.
type Mock struct {
	mu     sync.RWMutex
	notes  []notes.Note
	nextID int64

	subMu  sync.Mutex
	subs   map[int]chan notes.Event
	subSeq int
}

// Option configures the mock instance.
type Option func(*Mock)

// WithFirstID sets the id handed to the first created note.
func WithFirstID(id int64) Option {
	return func(m *Mock) {
		if id > 0 {
			m.nextID = id
		}
	}
}

// New creates an empty mock store.
func New(opts ...Option) *Mock {
	m := &Mock{
		nextID: 1,
		subs:   make(map[int]chan notes.Event),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed creates one note per entry, in order.
func (m *Mock) Seed(entries []devseed.NoteSeedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			return fmt.Errorf("mock notes: seed entry missing text")
		}
		m.notes = append(m.notes, notes.Note{ID: m.nextID, Text: e.Text, Votes: e.Votes})
		m.nextID++
	}
	return nil
}

// List returns a copy of every note.
func (m *Mock) List(ctx context.Context) ([]notes.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]notes.Note, len(m.notes))
	copy(out, m.notes)
	return out, nil
}

// Create stores a new note.
func (m *Mock) Create(ctx context.Context, text string) (notes.Note, error) {
	if strings.TrimSpace(text) == "" {
		return notes.Note{}, notes.ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return notes.Note{}, err
	}

	m.mu.Lock()
	n := notes.Note{ID: m.nextID, Text: text}
	m.nextID++
	m.notes = append(m.notes, n)
	m.mu.Unlock()

	m.publish(notes.Event{Type: notes.EventCreated, Note: n})
	return n, nil
}

// Vote adjusts the vote count of id by one in direction dir.
func (m *Mock) Vote(ctx context.Context, id int64, dir notes.VoteDirection) (notes.Note, error) {
	if !dir.Valid() {
		return notes.Note{}, fmt.Errorf("%w: %q", notes.ErrInvalidVoteDirection, string(dir))
	}
	if err := ctx.Err(); err != nil {
		return notes.Note{}, err
	}

	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return notes.Note{}, notes.ErrNotFound
	}
	if dir == notes.VoteUp {
		m.notes[idx].Votes++
	} else {
		m.notes[idx].Votes--
	}
	n := m.notes[idx]
	m.mu.Unlock()

	m.publish(notes.Event{Type: notes.EventVoted, Note: n})
	return n, nil
}

// Delete removes id.
func (m *Mock) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return notes.ErrNotFound
	}
	n := m.notes[idx]
	m.notes = append(m.notes[:idx], m.notes[idx+1:]...)
	m.mu.Unlock()

	m.publish(notes.Event{Type: notes.EventDeleted, Note: n})
	return nil
}

// Subscribe returns a channel receiving every subsequent change and a func
// that unsubscribes and closes it. Events are dropped for a subscriber whose
// buffer is full.
func (m *Mock) Subscribe(buffer int) (<-chan notes.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	ch := make(chan notes.Event, buffer)

	m.subMu.Lock()
	id := m.subSeq
	m.subSeq++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
			close(ch)
		})
	}
}

func (m *Mock) publish(ev notes.Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// indexOf expects m.mu to be held.
func (m *Mock) indexOf(id int64) int {
	for i, n := range m.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
