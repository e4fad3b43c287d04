// Package transcript keeps the ordered chat history shown beside the avatar.
package transcript

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Author int

const (
	Local Author = iota
	Remote
)

func (a Author) String() string {
	if a == Remote {
		return "remote"
	}
	return "local"
}

// ParseAuthor is the inverse of Author.String. Unknown names map to Local.
func ParseAuthor(s string) Author {
	if s == "remote" {
		return Remote
	}
	return Local
}

// Entry is one line of the transcript. Entries are never modified after Append.
type Entry struct {
	ID     string
	Text   string
	Author Author
	At     time.Time
}

// Renderer draws entries as they are appended.
type Renderer interface {
	Render(Entry)
	ScrollToLatest()
}

// Sink receives every appended entry after it has been rendered, e.g. to
// persist it.
type Sink interface {
	Record(Entry) error
}

type Transcript struct {
	entries  []Entry
	renderer Renderer
	sinks    []Sink
	logger   *slog.Logger
	now      func() time.Time
}

func New(renderer Renderer, logger *slog.Logger, sinks ...Sink) *Transcript {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcript{
		entries:  make([]Entry, 0, 32),
		renderer: renderer,
		sinks:    sinks,
		logger:   logger,
		now:      time.Now,
	}
}

// Append adds an entry at the end. It always succeeds.
func (t *Transcript) Append(text string, author Author) Entry {
	entry := Entry{
		ID:     uuid.NewString(),
		Text:   text,
		Author: author,
		At:     t.now(),
	}
	t.entries = append(t.entries, entry)

	if t.renderer != nil {
		t.renderer.Render(entry)
		t.renderer.ScrollToLatest()
	}
	for _, sink := range t.sinks {
		if err := sink.Record(entry); err != nil {
			t.logger.Warn("transcript sink failed", "entry_id", entry.ID, "error", err)
		}
	}
	return entry
}

// Entries returns a copy of the transcript in insertion order.
func (t *Transcript) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

func (t *Transcript) Len() int {
	return len(t.entries)
}
