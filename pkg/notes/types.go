package notes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Ratio1/notes_sdk_go/internal/httpx"
)

// Note is a user-submitted text entry with a server-assigned id and a vote count.
type Note struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Votes int64  `json:"votes"`
}

// VoteDirection selects an upvote or a downvote.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// Valid reports whether d is VoteUp or VoteDown.
func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

// ParseVoteDirection accepts "up" or "down" in any case.
func ParseVoteDirection(raw string) (VoteDirection, error) {
	d := VoteDirection(strings.ToLower(strings.TrimSpace(raw)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidVoteDirection, raw)
	}
	return d, nil
}

// EventType names a change published on the change feed.
type EventType string

const (
	EventCreated EventType = "created"
	EventVoted   EventType = "voted"
	EventDeleted EventType = "deleted"
)

// Event is a single change feed message.
type Event struct {
	Type EventType `json:"type"`
	Note Note      `json:"note"`
}

var (
	// ErrNotFound is returned when a note id does not exist.
	ErrNotFound = errors.New("notes: note not found")
	// ErrEmptyText is returned when note text is blank.
	ErrEmptyText = errors.New("notes: text is required")
	// ErrInvalidID is returned for ids that the server could never assign.
	ErrInvalidID = errors.New("notes: id must be positive")
	// ErrInvalidVoteDirection is returned for directions other than up and down.
	ErrInvalidVoteDirection = errors.New("notes: vote direction must be up or down")
	// ErrWatchUnsupported is returned by backends without a change feed.
	ErrWatchUnsupported = errors.New("notes: change feed not supported by backend")
)

// IsNotFound reports whether err means the note does not exist, either from
// an in-memory backend or from a 404 response.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || httpx.StatusCode(err) == http.StatusNotFound
}
