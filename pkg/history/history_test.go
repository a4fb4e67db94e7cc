package history

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreRecordsAndCapsPerHost(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Record(ctx, "d1", Entry{Command: "cmd", At: time.Unix(int64(i), 0), Succeeded: true}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := store.Recent(ctx, "d1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3 (capacity cap)", len(entries))
	}
	if entries[0].At.Unix() != 2 || entries[2].At.Unix() != 4 {
		t.Errorf("entries = %+v, want the 3 most recent in order", entries)
	}
}

func TestMemoryStoreSeparatesHosts(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	store.Record(ctx, "d1", Entry{Command: "a"})
	store.Record(ctx, "d2", Entry{Command: "b"})

	d1, _ := store.Recent(ctx, "d1", 0)
	d2, _ := store.Recent(ctx, "d2", 0)
	if len(d1) != 1 || d1[0].Command != "a" {
		t.Errorf("d1 history = %+v, want [a]", d1)
	}
	if len(d2) != 1 || d2[0].Command != "b" {
		t.Errorf("d2 history = %+v, want [b]", d2)
	}
}

func TestMemoryStoreRecentWithNoEntries(t *testing.T) {
	store := NewMemoryStore(5)
	entries, err := store.Recent(context.Background(), "unknown", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %+v, want empty", entries)
	}
}

func TestDecodeEntryRoundTrips(t *testing.T) {
	at := time.Unix(1700000000, 0)
	line := "1700000000000000000|true|ls -la /tmp"
	entry, ok := decodeEntry(line)
	if !ok {
		t.Fatal("decodeEntry reported failure")
	}
	if entry.Command != "ls -la /tmp" || !entry.Succeeded || !entry.At.Equal(at) {
		t.Errorf("decodeEntry = %+v, want Command=%q Succeeded=true At=%v", entry, "ls -la /tmp", at)
	}
}
