package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutLookup(t *testing.T) {
	store := openTestStore(t)
	hash := Hash("agent A {}")

	if _, ok, err := store.Lookup(hash, "python"); err != nil || ok {
		t.Fatalf("Lookup() before Put = %v, %v; want miss", ok, err)
	}

	if err := store.Put(hash, "python", "class A: pass"); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}
	out, ok, err := store.Lookup(hash, "python")
	if err != nil || !ok {
		t.Fatalf("Lookup() after Put = %v, %v; want hit", ok, err)
	}
	if out != "class A: pass" {
		t.Errorf("cached output = %q", out)
	}

	// Same hash, different target is a distinct entry.
	if _, ok, _ := store.Lookup(hash, "javascript"); ok {
		t.Error("Lookup() hit for a target never stored")
	}
}

func TestPutReplaces(t *testing.T) {
	store := openTestStore(t)
	hash := Hash("src")

	if err := store.Put(hash, "python", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(hash, "python", "v2"); err != nil {
		t.Fatal(err)
	}
	out, ok, err := store.Lookup(hash, "python")
	if err != nil || !ok || out != "v2" {
		t.Errorf("Lookup() = %q, %v, %v; want v2 hit", out, ok, err)
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	if err := store.Put(Hash("old"), "python", "out"); err != nil {
		t.Fatal(err)
	}
	// A negative age puts the cutoff in the future so the fresh entry
	// is definitely older than it.
	removed, err := store.Prune(-time.Second)
	if err != nil {
		t.Fatalf("Prune() returned error: %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune() removed %d entries, want 1", removed)
	}

	if err := store.Put(Hash("fresh"), "python", "out"); err != nil {
		t.Fatal(err)
	}
	removed, err = store.Prune(24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("Prune(24h) removed %d fresh entries, want 0", removed)
	}
}

func TestHash(t *testing.T) {
	a, b := Hash("agent A {}"), Hash("agent B {}")
	if a == b {
		t.Error("different sources hashed identically")
	}
	if a != Hash("agent A {}") {
		t.Error("Hash() is not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("len(Hash()) = %d, want 64 hex characters", len(a))
	}
}
