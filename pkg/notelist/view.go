package notelist

import (
	"fmt"
	"io"
	"sync"

	"github.com/Ratio1/notes_sdk_go/pkg/notes"
)

// Entry is one rendered line of the note list.
type Entry struct {
	ID    int64
	Text  string
	Votes int64
}

// EntryFromNote converts a note returned by the service.
func EntryFromNote(n notes.Note) Entry {
	return Entry{ID: n.ID, Text: n.Text, Votes: n.Votes}
}

func (e Entry) String() string {
	return fmt.Sprintf("#%d: %s (votes: %d)", e.ID, e.Text, e.Votes)
}

// View is the surface the controller renders into. Input and ClearInput back
// the text field, Render and Append the list itself.
type View interface {
	Input() string
	ClearInput()
	// Render replaces every entry.
	Render(entries []Entry)
	Append(entry Entry)
}

const actionHints = "[up] [down] [delete]"

// TextView renders the list as plain text lines.
type TextView struct {
	mu      sync.Mutex
	out     io.Writer
	input   string
	entries []Entry
}

// NewTextView writes to out. A nil out discards output.
func NewTextView(out io.Writer) *TextView {
	if out == nil {
		out = io.Discard
	}
	return &TextView{out: out}
}

// SetInput fills the input buffer, the way a user types into the text field.
func (v *TextView) SetInput(text string) {
	v.mu.Lock()
	v.input = text
	v.mu.Unlock()
}

func (v *TextView) Input() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.input
}

func (v *TextView) ClearInput() {
	v.mu.Lock()
	v.input = ""
	v.mu.Unlock()
}

func (v *TextView) Render(entries []Entry) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.entries = append(v.entries[:0:0], entries...)
	if len(entries) == 0 {
		fmt.Fprintln(v.out, "(no notes)")
		return
	}
	for _, e := range entries {
		v.writeEntry(e)
	}
}

func (v *TextView) Append(entry Entry) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.entries = append(v.entries, entry)
	v.writeEntry(entry)
}

// Entries returns a copy of what is currently shown.
func (v *TextView) Entries() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	return out
}

// writeEntry expects v.mu to be held.
func (v *TextView) writeEntry(e Entry) {
	fmt.Fprintf(v.out, "%s  %s\n", e, actionHints)
}
