// Package storage persists sandbox notes in a BoltDB file.
package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/Ratio1/notes_sdk_go/internal/devseed"
	"github.com/Ratio1/notes_sdk_go/pkg/notes"
)

var (
	bucketNotes = []byte("notes")
	bucketMeta  = []byte("meta")

	keyNextID = []byte("next_id")
)

// BoltStore keeps notes keyed by big-endian id, so a cursor walk yields them
// in creation order. The id counter lives in the meta bucket and is never
// rewound, so deleted ids are not reused.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{NoSync: false})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketNotes, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func idKey(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// List returns every note in creation order.
func (s *BoltStore) List(ctx context.Context) ([]notes.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]notes.Note, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNotes).ForEach(func(_, v []byte) error {
			var n notes.Note
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			out = append(out, n)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create stores a note with the next id and zero votes.
func (s *BoltStore) Create(ctx context.Context, text string) (notes.Note, error) {
	if strings.TrimSpace(text) == "" {
		return notes.Note{}, notes.ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return notes.Note{}, err
	}
	var n notes.Note
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		n, err = insert(tx, text, 0)
		return err
	})
	return n, err
}

// Seed creates one note per entry in a single transaction.
func (s *BoltStore) Seed(entries []devseed.NoteSeedEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for i, e := range entries {
			if strings.TrimSpace(e.Text) == "" {
				return fmt.Errorf("storage: seed entry %d missing text", i)
			}
			if _, err := insert(tx, e.Text, e.Votes); err != nil {
				return err
			}
		}
		return nil
	})
}

// Vote moves the vote count of id by one.
func (s *BoltStore) Vote(ctx context.Context, id int64, dir notes.VoteDirection) (notes.Note, error) {
	if !dir.Valid() {
		return notes.Note{}, fmt.Errorf("%w: %q", notes.ErrInvalidVoteDirection, string(dir))
	}
	if err := ctx.Err(); err != nil {
		return notes.Note{}, err
	}
	var n notes.Note
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		v := b.Get(idKey(id))
		if v == nil {
			return notes.ErrNotFound
		}
		if err := json.Unmarshal(v, &n); err != nil {
			return err
		}
		if dir == notes.VoteUp {
			n.Votes++
		} else {
			n.Votes--
		}
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		return b.Put(idKey(id), data)
	})
	if err != nil {
		return notes.Note{}, err
	}
	return n, nil
}

// Delete removes id.
func (s *BoltStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		if b.Get(idKey(id)) == nil {
			return notes.ErrNotFound
		}
		return b.Delete(idKey(id))
	})
}

// Close closes the underlying BoltDB.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func insert(tx *bolt.Tx, text string, votes int64) (notes.Note, error) {
	meta := tx.Bucket(bucketMeta)
	next := int64(1)
	if v := meta.Get(keyNextID); v != nil {
		next = int64(binary.BigEndian.Uint64(v))
	}
	n := notes.Note{ID: next, Text: text, Votes: votes}
	data, err := json.Marshal(n)
	if err != nil {
		return notes.Note{}, err
	}
	if err := tx.Bucket(bucketNotes).Put(idKey(n.ID), data); err != nil {
		return notes.Note{}, err
	}
	if err := meta.Put(keyNextID, idKey(next+1)); err != nil {
		return notes.Note{}, err
	}
	return n, nil
}
