package mock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Ratio1/notes_sdk_go/internal/devseed"
	"github.com/Ratio1/notes_sdk_go/pkg/notes"
	"github.com/Ratio1/notes_sdk_go/pkg/notes/mock"
)

func TestMockCreateAssignsIncreasingIDs(t *testing.T) {
	m := mock.New()
	ctx := context.Background()

	first, err := m.Create(ctx, "Buy milk")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := m.Create(ctx, "Walk dog")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("unexpected ids: %d, %d", first.ID, second.ID)
	}
	if first.Votes != 0 || first.Text != "Buy milk" {
		t.Fatalf("unexpected note: %#v", first)
	}

	if _, err := m.Create(ctx, "   "); !errors.Is(err, notes.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}

	list, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != 1 || list[1].ID != 2 {
		t.Fatalf("unexpected list: %#v", list)
	}
}

func TestMockVoteAndDelete(t *testing.T) {
	m := mock.New(mock.WithFirstID(5))
	ctx := context.Background()

	n, err := m.Create(ctx, "Buy milk")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.ID != 5 {
		t.Fatalf("expected first id 5, got %d", n.ID)
	}

	if _, err := m.Vote(ctx, 5, notes.VoteUp); err != nil {
		t.Fatalf("Vote up: %v", err)
	}
	if _, err := m.Vote(ctx, 5, notes.VoteUp); err != nil {
		t.Fatalf("Vote up: %v", err)
	}
	updated, err := m.Vote(ctx, 5, notes.VoteDown)
	if err != nil {
		t.Fatalf("Vote down: %v", err)
	}
	if updated.Votes != 1 {
		t.Fatalf("expected 1 vote, got %d", updated.Votes)
	}

	if _, err := m.Vote(ctx, 99, notes.VoteUp); !errors.Is(err, notes.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Vote(ctx, 5, notes.VoteDirection("sideways")); !errors.Is(err, notes.ErrInvalidVoteDirection) {
		t.Fatalf("expected ErrInvalidVoteDirection, got %v", err)
	}

	if err := m.Delete(ctx, 5); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := m.Delete(ctx, 5); !errors.Is(err, notes.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	list, _ := m.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %#v", list)
	}

	next, err := m.Create(ctx, "again")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if next.ID != 6 {
		t.Fatalf("ids must not be reused, got %d", next.ID)
	}
}

func TestMockSeed(t *testing.T) {
	m := mock.New()
	err := m.Seed([]devseed.NoteSeedEntry{{Text: "a"}, {Text: "b", Votes: 3}})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	list, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[1].ID != 2 || list[1].Votes != 3 {
		t.Fatalf("unexpected seeded list: %#v", list)
	}
	if err := m.Seed([]devseed.NoteSeedEntry{{Text: ""}}); err == nil {
		t.Fatalf("expected error for empty seed text")
	}
}

func TestMockSubscribe(t *testing.T) {
	m := mock.New()
	ctx := context.Background()
	events, cancel := m.Subscribe(4)

	n, _ := m.Create(ctx, "x")
	_, _ = m.Vote(ctx, n.ID, notes.VoteDown)
	_ = m.Delete(ctx, n.ID)

	want := []notes.EventType{notes.EventCreated, notes.EventVoted, notes.EventDeleted}
	for _, typ := range want {
		ev := <-events
		if ev.Type != typ || ev.Note.ID != n.ID {
			t.Fatalf("unexpected event %#v, want type %s", ev, typ)
		}
	}

	cancel()
	cancel()
	if _, ok := <-events; ok {
		t.Fatalf("expected closed channel after cancel")
	}
}

func TestMockHonoursCancelledContext(t *testing.T) {
	m := mock.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.List(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
