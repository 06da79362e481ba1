package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"parrotdb/pkg/cerr"
	"parrotdb/pkg/models"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func mustInsert(t *testing.T, c *Catalog, msg string, replies ...string) {
	t.Helper()
	now := time.Now().UTC()
	e := &models.Entry{Message: msg, Replies: replies, LastIndex: -1, CreatedAt: now, UpdatedAt: now}
	if err := c.Insert(context.Background(), e); err != nil {
		t.Fatalf("Insert(%q): %v", msg, err)
	}
}

func TestInsertGetRoundtrip(t *testing.T) {
	c := openTestCatalog(t)
	mustInsert(t, c, "hi", "Hello", "Hi there")

	e, err := c.Get(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.Message != "hi" || len(e.Replies) != 2 || e.Replies[0] != "Hello" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Seq == 0 {
		t.Fatalf("Seq not assigned")
	}
}

func TestInsertDuplicateFails(t *testing.T) {
	c := openTestCatalog(t)
	mustInsert(t, c, "hi", "Hello")
	e := &models.Entry{Message: "hi", Replies: []string{"again"}}
	if err := c.Insert(context.Background(), e); !cerr.Is(err, cerr.Duplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	c := openTestCatalog(t)
	if _, err := c.Get(context.Background(), "nope"); !cerr.Is(err, cerr.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateMissingFails(t *testing.T) {
	c := openTestCatalog(t)
	e := &models.Entry{Message: "ghost"}
	if err := c.Update(context.Background(), "ghost", e); !cerr.Is(err, cerr.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// TestScanInsertionOrder verifies entries come back in insertion order,
// not key order, including after a rename.
func TestScanInsertionOrder(t *testing.T) {
	c := openTestCatalog(t)
	mustInsert(t, c, "zebra", "z")
	mustInsert(t, c, "apple", "a")
	mustInsert(t, c, "mango", "m")

	got, err := c.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"zebra", "apple", "mango"}
	if len(got) != len(want) {
		t.Fatalf("Scan returned %d entries, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Message != w {
			t.Fatalf("Scan[%d] = %q, want %q", i, got[i].Message, w)
		}
	}
}

func TestRenamePreservesPosition(t *testing.T) {
	c := openTestCatalog(t)
	mustInsert(t, c, "first", "1")
	mustInsert(t, c, "second", "2")

	e, err := c.Rename(context.Background(), "first", "renamed", time.Now().UTC())
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if e.Message != "renamed" {
		t.Fatalf("renamed entry message = %q", e.Message)
	}
	if _, err := c.Get(context.Background(), "first"); !cerr.Is(err, cerr.NotFound) {
		t.Fatalf("old key should be gone, got %v", err)
	}

	got, err := c.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 || got[0].Message != "renamed" || got[1].Message != "second" {
		t.Fatalf("scan order after rename: %+v", got)
	}
}

func TestRenameConflicts(t *testing.T) {
	c := openTestCatalog(t)
	mustInsert(t, c, "a", "1")
	mustInsert(t, c, "b", "2")
	if _, err := c.Rename(context.Background(), "a", "b", time.Now().UTC()); !cerr.Is(err, cerr.Duplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if _, err := c.Rename(context.Background(), "ghost", "c", time.Now().UTC()); !cerr.Is(err, cerr.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	// nothing changed
	if _, err := c.Get(context.Background(), "a"); err != nil {
		t.Fatalf("entry a should still exist: %v", err)
	}
}

// TestLockPairSharedStripe verifies locking a key pair returns even when
// both keys hash to the same stripe, and that the stripe is usable again
// after unlock.
func TestLockPairSharedStripe(t *testing.T) {
	c := openTestCatalog(t)

	// find a second key on the first key's stripe
	k1 := "hello"
	k2 := ""
	for i := 0; i < 10000; i++ {
		cand := fmt.Sprintf("key-%d", i)
		if c.stripeFor(cand) == c.stripeFor(k1) {
			k2 = cand
			break
		}
	}
	if k2 == "" {
		t.Fatalf("no colliding key found")
	}

	done := make(chan struct{})
	go func() {
		unlock := c.LockPair(k1, k2)
		unlock()
		unlock = c.LockKey(k1)
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("LockPair hung on keys sharing stripe %d", c.stripeFor(k1))
	}

	// distinct stripes still lock and release cleanly in either order
	unlock := c.LockPair("hi", "bye")
	unlock()
	unlock = c.LockPair("bye", "hi")
	unlock()
}

func TestDeleteIsIdempotent(t *testing.T) {
	c := openTestCatalog(t)
	mustInsert(t, c, "hi", "Hello")
	n, err := c.Delete(context.Background(), "hi")
	if err != nil || n != 1 {
		t.Fatalf("Delete = (%d, %v), want (1, nil)", n, err)
	}
	n, err = c.Delete(context.Background(), "hi")
	if err != nil || n != 0 {
		t.Fatalf("second Delete = (%d, %v), want (0, nil)", n, err)
	}
}

func TestCountAndClearAll(t *testing.T) {
	c := openTestCatalog(t)
	mustInsert(t, c, "a", "1")
	mustInsert(t, c, "b", "2")
	n, err := c.Count(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("Count = (%d, %v)", n, err)
	}
	removed, err := c.ClearAll(context.Background())
	if err != nil || removed != 2 {
		t.Fatalf("ClearAll = (%d, %v)", removed, err)
	}
	n, err = c.Count(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Count after clear = (%d, %v)", n, err)
	}
}

// TestSeqSurvivesReopen verifies the sequence counter restores from the
// highest index key, so reopened catalogs do not reuse positions.
func TestSeqSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustInsert(t, c, "one", "1")
	mustInsert(t, c, "two", "2")
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()
	mustInsert(t, c2, "three", "3")

	got, err := c2.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 3 || got[2].Message != "three" {
		t.Fatalf("scan after reopen: %+v", got)
	}
	if got[2].Seq <= got[1].Seq {
		t.Fatalf("seq not monotonic after reopen: %d <= %d", got[2].Seq, got[1].Seq)
	}
}

func TestContextDeadline(t *testing.T) {
	c := openTestCatalog(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	if _, err := c.Get(ctx, "x"); !cerr.Is(err, cerr.Timeout) {
		t.Fatalf("expected timeout kind, got %v", err)
	}
}

func TestClosedCatalogFails(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = c.Close()
	if _, err := c.Get(context.Background(), "x"); !cerr.Is(err, cerr.ConnFailed) {
		t.Fatalf("expected conn failed, got %v", err)
	}
	if c.Ready() {
		t.Fatalf("Ready should be false after Close")
	}
}
