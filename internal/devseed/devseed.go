// Package devseed loads JSON seed files used to pre-populate the in-memory
// notes model and the sandbox store during local development.
package devseed

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// NoteSeedEntry is one note to create at startup. Ids are always assigned by
// the store, so a seed only carries text and an initial vote count.
type NoteSeedEntry struct {
	Text  string `json:"text"`
	Votes int64  `json:"votes,omitempty"`
}

// LoadNotesSeed reads a JSON array of NoteSeedEntry from path.
func LoadNotesSeed(path string) ([]NoteSeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	return ParseNotesSeed(data)
}

// ParseNotesSeed decodes a seed document and rejects entries with blank text.
func ParseNotesSeed(data []byte) ([]NoteSeedEntry, error) {
	var entries []NoteSeedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("devseed: decode notes seed: %w", err)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			return nil, fmt.Errorf("devseed: entry %d has empty text", i)
		}
	}
	return entries, nil
}
