package notesapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrEmptyBody is returned when a payload was expected but the body is empty.
var ErrEmptyBody = errors.New("notesapi: empty response body")

// Note is the wire representation exchanged with the notes service.
type Note struct {
	ID    int64  `json:"id" validate:"gt=0"`
	Text  string `json:"text" validate:"required"`
	Votes int64  `json:"votes"`
}

// CreateRequest is the body of POST /api/notes.
type CreateRequest struct {
	Text string `json:"text" validate:"required"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks a struct against its validate tags.
func Validate(v any) error {
	return validatorInstance().Struct(v)
}

// DecodeNote decodes and validates a single note document.
func DecodeNote(body []byte) (Note, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Note{}, ErrEmptyBody
	}
	var n Note
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return Note{}, fmt.Errorf("notesapi: decode note: %w", err)
	}
	if err := Validate(n); err != nil {
		return Note{}, fmt.Errorf("notesapi: invalid note: %w", err)
	}
	return n, nil
}

// DecodeNotes decodes and validates a JSON array of notes. A null or empty
// body yields an empty, non-nil slice.
func DecodeNotes(body []byte) ([]Note, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Note{}, nil
	}
	var list []Note
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("notesapi: decode note list: %w", err)
	}
	for i := range list {
		if err := Validate(list[i]); err != nil {
			return nil, fmt.Errorf("notesapi: invalid note at index %d: %w", i, err)
		}
	}
	return list, nil
}

// Encode serializes v as compact JSON without HTML escaping.
func Encode(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
