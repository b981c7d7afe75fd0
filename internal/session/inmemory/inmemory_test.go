package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teachmate/teachmate/internal/session"
)

func TestRoundTripPreservesHistoryOrder(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	sess := session.NewSession()
	sess.History = []session.Message{
		{Role: session.RoleUser, Content: "what is photosynthesis"},
		{Role: session.RoleAssistant, Content: "it converts light into chemical energy"},
		{Role: session.RoleUser, Content: "and respiration?"},
	}
	sess.Baselines["1"] = "a context-free answer"

	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.History) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got.History))
	}
	for i, m := range sess.History {
		if got.History[i] != m {
			t.Fatalf("message %d mismatch: %+v != %+v", i, got.History[i], m)
		}
	}
	if got.Baselines["1"] != "a context-free answer" {
		t.Fatalf("baseline lost: %+v", got.Baselines)
	}
}

func TestLoadReturnsCopy(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	sess := session.NewSession()
	sess.History = []session.Message{{Role: session.RoleUser, Content: "original"}}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, _ := store.Load(ctx, sess.ID)
	got.History[0].Content = "mutated"

	again, _ := store.Load(ctx, sess.ID)
	if again.History[0].Content != "original" {
		t.Fatalf("store state leaked: %q", again.History[0].Content)
	}
}

func TestLoadUnknownID(t *testing.T) {
	store := NewStore()
	if _, err := store.Load(context.Background(), "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	sess := session.NewSession()
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	older := session.NewSession()
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := session.NewSession()
	newer.UpdatedAt = time.Now()

	if err := store.Save(ctx, older); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, newer); err != nil {
		t.Fatalf("save: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(list))
	}
	if list[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %s", list[0].ID)
	}
}
