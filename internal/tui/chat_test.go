package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vango-go/vai-avatar/pkg/avatar/display"
	"github.com/vango-go/vai-avatar/pkg/avatar/transcript"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func sized(t *testing.T, opts Options) Model {
	t.Helper()
	m, _ := update(t, NewModel(opts), tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestModel_LoadingUntilSized(t *testing.T) {
	if got := NewModel(Options{}).View(); got != "Loading..." {
		t.Fatalf("View=%q", got)
	}
}

func TestModel_EnterWithBlankInputKeepsText(t *testing.T) {
	called := false
	m := sized(t, Options{Submit: func(string) bool { called = true; return true }})
	m.input.SetValue("   ")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatalf("expected no command for blank input")
	}
	if called {
		t.Fatalf("submit must not be called")
	}
	if m.Input() != "   " {
		t.Fatalf("input=%q, want retained", m.Input())
	}
}

func TestModel_EnterSubmitsAndClears(t *testing.T) {
	var got []string
	m := sized(t, Options{Submit: func(s string) bool { got = append(got, s); return true }})
	m.input.SetValue("hello")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected submit command")
	}
	if m.Input() != "" {
		t.Fatalf("input=%q, want cleared on enter", m.Input())
	}
	if msg := cmd(); msg != nil {
		t.Fatalf("submit command returned %T", msg)
	}
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("submitted=%v", got)
	}
}

func TestModel_RepeatedEnterSubmitsOnce(t *testing.T) {
	var got []string
	m := sized(t, Options{Submit: func(s string) bool { got = append(got, s); return true }})
	m.input.SetValue("hello")

	m, first := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, second := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if second != nil {
		t.Fatalf("second enter produced a command")
	}
	first()
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("submitted=%v", got)
	}
}

func TestModel_ClientClearKeepsNewText(t *testing.T) {
	m := sized(t, Options{Submit: func(string) bool { return true }})
	var queued []tea.Msg
	b := NewBridge()
	b.Attach(func(msg tea.Msg) { queued = append(queued, msg) })

	m.input.SetValue("hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m.input.SetValue("next question")

	// The client loop clears the input once the send went out.
	cmd()
	b.ClearInput()
	for _, msg := range queued {
		m, _ = update(t, m, msg)
	}
	if m.Input() != "next question" {
		t.Fatalf("input=%q, want text typed after enter kept", m.Input())
	}
}

func TestModel_SubmitFailureMarksClosed(t *testing.T) {
	m := sized(t, Options{Submit: func(string) bool { return false }})
	m.input.SetValue("hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msg := cmd()
	if _, ok := msg.(submitFailed); !ok {
		t.Fatalf("msg=%T, want submitFailed", msg)
	}
	m, _ = update(t, m, msg)
	if !strings.Contains(m.View(), "Disconnected") {
		t.Fatalf("expected disconnected banner")
	}
	if _, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatalf("expected no submit after close")
	}
}

func TestBridge_DeliversToModel(t *testing.T) {
	m := sized(t, Options{Title: "ws://127.0.0.1:8000/ws"})

	var queued []tea.Msg
	b := NewBridge()
	b.SetStatus("dropped before attach")
	b.Attach(func(msg tea.Msg) { queued = append(queued, msg) })

	b.Surface(display.Surface{Kind: display.SurfaceVideo, URL: "http://127.0.0.1:8000/static/welcome.mp4", Active: true})
	b.SetStatus("Welcome!")
	b.Render(transcript.Entry{Text: "hi", Author: transcript.Local})
	b.ScrollToLatest()
	b.Render(transcript.Entry{Text: "Echo: hi", Author: transcript.Remote})
	b.ScrollToLatest()

	if len(queued) != 6 {
		t.Fatalf("queued %d messages, want 6", len(queued))
	}
	for _, msg := range queued {
		m, _ = update(t, m, msg)
	}

	if m.Status() != "Welcome!" {
		t.Fatalf("status=%q", m.Status())
	}
	if s := m.Surface(); s.Kind != display.SurfaceVideo || !s.Active {
		t.Fatalf("surface=%+v", s)
	}
	entries := m.Entries()
	if len(entries) != 2 || entries[0].Text != "hi" || entries[1].Author != transcript.Remote {
		t.Fatalf("entries=%+v", entries)
	}

	view := m.View()
	for _, want := range []string{"vai-avatar", "welcome.mp4", "Welcome!", "You", "Avatar", "Echo: hi"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestBridge_ClosedShowsReason(t *testing.T) {
	m := sized(t, Options{})
	var queued []tea.Msg
	b := NewBridge()
	b.Attach(func(msg tea.Msg) { queued = append(queued, msg) })
	b.Closed(errors.New("read: connection reset"))

	m, _ = update(t, m, queued[0])
	if !strings.Contains(m.View(), "connection reset") {
		t.Fatalf("view missing close reason:\n%s", m.View())
	}
}

func TestModel_StillSurface(t *testing.T) {
	m := sized(t, Options{})
	m, _ = update(t, m, surfaceMsg(display.Surface{Kind: display.SurfaceStill, URL: "/static/loading-avatar.png"}))
	if !strings.Contains(m.View(), "still") || !strings.Contains(m.View(), "loading-avatar.png") {
		t.Fatalf("view missing still surface:\n%s", m.View())
	}
}

func TestModel_EscQuits(t *testing.T) {
	m := sized(t, Options{})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
