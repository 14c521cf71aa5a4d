package history

import (
	"context"
	"testing"
	"time"

	"github.com/user/querydesk/internal/types"
)

func newEntry(id, query string) *types.HistoryEntry {
	return &types.HistoryEntry{
		ID:        types.EntryID(id),
		Query:     query,
		Timestamp: time.Now().UTC(),
	}
}

func TestStoreAddAndList(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.Add(ctx, newEntry("aaaa1111", "first")); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(ctx, newEntry("bbbb2222", "second")); err != nil {
		t.Fatal(err)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Query != "second" {
		t.Errorf("expected newest first, got %q", entries[0].Query)
	}
}

func TestStoreSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	entry := newEntry("aaaa1111", "persisted")
	entry.Favorite = true
	entry.AddTag("revenue")
	if err := store.Add(ctx, entry); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reloaded.Get(ctx, "aaaa1111")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Favorite || !got.HasTag("revenue") {
		t.Errorf("flags lost across reload: %+v", got)
	}
}

func TestStoreGetByPrefix(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	store.Add(ctx, newEntry("aaaa1111", "one"))
	store.Add(ctx, newEntry("aabb2222", "two"))

	got, err := store.Get(ctx, "aaaa")
	if err != nil {
		t.Fatal(err)
	}
	if got.Query != "one" {
		t.Errorf("unexpected entry %+v", got)
	}

	if _, err := store.Get(ctx, "aa"); err == nil {
		t.Error("prefixes shorter than 4 characters must not match")
	}
	if _, err := store.Get(ctx, "zzzz"); err == nil {
		t.Error("expected not-found error")
	}
}

func TestStoreGetAmbiguousPrefix(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	store.Add(ctx, newEntry("aaaa1111", "one"))
	store.Add(ctx, newEntry("aaaa2222", "two"))

	if _, err := store.Get(ctx, "aaaa"); err == nil {
		t.Error("expected ambiguity error for a shared prefix")
	}
}

func TestStoreUpdate(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	entry := newEntry("aaaa1111", "toggle me")
	store.Add(ctx, entry)

	entry.Favorite = true
	entry.AddTag("x")
	entry.AddTag("x") // second add is a no-op
	if err := store.Update(ctx, entry); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get(ctx, "aaaa1111")
	if !got.Favorite {
		t.Error("favorite flag not persisted")
	}
	if len(got.Tags) != 1 {
		t.Errorf("tags must behave as a set, got %v", got.Tags)
	}

	entry.Favorite = false
	if err := store.Update(ctx, entry); err != nil {
		t.Fatal(err)
	}
	got, _ = store.Get(ctx, "aaaa1111")
	if got.Favorite {
		t.Error("favorite toggle back off not persisted")
	}

	if err := store.Update(ctx, newEntry("ffff0000", "ghost")); err == nil {
		t.Error("updating an unknown entry must fail")
	}
}
