package sqlitestore

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/vango-go/vai-avatar/pkg/avatar/transcript"
)

func TestStore_RecordsAppendedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "transcript.db")
	store, err := Open(path, "sess-1", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	tr := transcript.New(nil, nil, store)
	tr.Append("hello", transcript.Local)
	tr.Append("hi, how can I help?", transcript.Remote)

	records, err := store.List("sess-1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records)=%d, want 2", len(records))
	}
	entries := tr.Entries()
	for i, rec := range records {
		if rec.SessionID != "sess-1" {
			t.Fatalf("record %d session=%q", i, rec.SessionID)
		}
		if rec.Entry.ID != entries[i].ID || rec.Entry.Text != entries[i].Text || rec.Entry.Author != entries[i].Author {
			t.Fatalf("record %d = %+v, want %+v", i, rec.Entry, entries[i])
		}
		if !rec.Entry.At.Equal(entries[i].At) {
			t.Fatalf("record %d at=%v, want %v", i, rec.Entry.At, entries[i].At)
		}
	}
}

func TestStore_ListFiltersAndLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.db")

	first, err := Open(path, "a", nil)
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	trA := transcript.New(nil, nil, first)
	trA.Append("a1", transcript.Local)
	trA.Append("a2", transcript.Remote)
	trA.Append("a3", transcript.Remote)
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(path, "b", nil)
	if err != nil {
		t.Fatalf("Open b: %v", err)
	}
	defer second.Close()
	transcript.New(nil, nil, second).Append("b1", transcript.Local)

	all, err := second.List("", 0)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 4 || all[0].Entry.Text != "a1" || all[3].Entry.Text != "b1" {
		t.Fatalf("List all = %+v", all)
	}

	tail, err := second.List("a", 2)
	if err != nil {
		t.Fatalf("List a: %v", err)
	}
	if len(tail) != 2 || tail[0].Entry.Text != "a2" || tail[1].Entry.Text != "a3" {
		t.Fatalf("List a limit 2 = %+v", tail)
	}
}

func TestStore_PathWithURISyntax(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("? is not allowed in windows file names")
	}
	dir := filepath.Join(t.TempDir(), "a?b#c%20d")
	path := filepath.Join(dir, "transcript.db")

	store, err := Open(path, "sess", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tr := transcript.New(nil, nil, store)
	tr.Append("hello", transcript.Local)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database not created at %q: %v", path, err)
	}
	entries, err := os.ReadDir(filepath.Dir(dir))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a?b#c%20d" {
		t.Fatalf("unexpected siblings: %v", entries)
	}

	reopened, err := Open(path, "sess", nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	records, err := reopened.List("sess", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Entry.Text != "hello" {
		t.Fatalf("records=%+v", records)
	}
}

func TestStore_LogsThroughGivenLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := Open(filepath.Join(t.TempDir(), "transcript.db"), "sess-9", logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if out := buf.String(); !strings.Contains(out, "transcript store opened") || !strings.Contains(out, "session_id=sess-9") {
		t.Fatalf("log=%q", out)
	}
}
