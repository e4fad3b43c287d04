package player

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// fakeFFplay writes a shell script standing in for ffplay.
func fakeFFplay(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found")
	}
	path := filepath.Join(t.TempDir(), "ffplay")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write fake ffplay: %v", err)
	}
	return path
}

// postQueue records posted work so tests can run it like the client loop.
type postQueue chan func()

func (q postQueue) post(fn func()) bool {
	q <- fn
	return true
}

func TestFFplay_NaturalExitPostsEnded(t *testing.T) {
	q := make(postQueue, 4)
	p := NewFFplay(FFplayConfig{Path: fakeFFplay(t, "exit 0"), Post: q.post})

	ended := 0
	p.OnEnded(func() { ended++ })
	p.SetSource("http://127.0.0.1:8000/static/welcome.mp4")
	if err := p.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	select {
	case fn := <-q:
		fn()
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for end notification")
	}
	if ended != 1 {
		t.Fatalf("ended=%d, want 1", ended)
	}
	if p.Playing() {
		t.Fatalf("expected no running process after exit")
	}
}

func TestFFplay_PauseSuppressesEnded(t *testing.T) {
	q := make(postQueue, 4)
	p := NewFFplay(FFplayConfig{Path: fakeFFplay(t, "exec sleep 30"), Post: q.post})
	p.OnEnded(func() { t.Errorf("ended must not fire after Pause") })
	p.SetSource("a.mp4")
	if err := p.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !p.Playing() {
		t.Fatalf("expected running process")
	}
	p.Pause()
	if p.Playing() {
		t.Fatalf("expected process gone after Pause")
	}

	select {
	case fn := <-q:
		fn()
	case <-time.After(300 * time.Millisecond):
	}
}

func TestFFplay_ReplaceOnlyLatestEnds(t *testing.T) {
	q := make(postQueue, 4)
	p := NewFFplay(FFplayConfig{Path: fakeFFplay(t, `case "$7" in slow.mp4) exec sleep 30 ;; *) exit 0 ;; esac`), Post: q.post})

	var got []string
	p.OnEnded(func() { got = append(got, "first") })
	p.SetSource("slow.mp4")
	if err := p.Play(); err != nil {
		t.Fatalf("Play slow: %v", err)
	}

	p.OnEnded(func() { got = append(got, "second") })
	p.SetSource("fast.mp4")
	if err := p.Play(); err != nil {
		t.Fatalf("Play fast: %v", err)
	}

	select {
	case fn := <-q:
		fn()
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for end notification")
	}
	select {
	case fn := <-q:
		fn()
	case <-time.After(300 * time.Millisecond):
	}
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("ended calls=%v, want [second]", got)
	}
}

func TestFFplay_SetVisibleLeavesPlaybackAlone(t *testing.T) {
	q := make(postQueue, 4)
	p := NewFFplay(FFplayConfig{Path: fakeFFplay(t, "exec sleep 30"), Post: q.post})
	t.Cleanup(func() { _ = p.Close() })
	p.SetSource("a.mp4")
	if err := p.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	p.SetVisible(false)
	p.SetVisible(true)
	if !p.Playing() {
		t.Fatalf("visibility changes must not stop the clip")
	}
}

func TestFFplay_MissingBinary(t *testing.T) {
	p := NewFFplay(FFplayConfig{Path: filepath.Join(t.TempDir(), "no-such-ffplay")})
	p.SetSource("a.mp4")
	if err := p.Play(); err == nil {
		t.Fatalf("expected error for missing binary")
	}
	if p.Playing() {
		t.Fatalf("expected nothing running")
	}
}

func TestFFplay_NoSource(t *testing.T) {
	p := NewFFplay(FFplayConfig{})
	if err := p.Play(); !errors.Is(err, ErrNoSource) {
		t.Fatalf("err=%v, want ErrNoSource", err)
	}
}

func TestSilent_EndsAfterDuration(t *testing.T) {
	q := make(postQueue, 4)
	s := NewSilent(20*time.Millisecond, q.post)
	ended := 0
	s.OnEnded(func() { ended++ })
	s.SetSource("a.mp4")
	if err := s.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	select {
	case fn := <-q:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for end notification")
	}
	if ended != 1 {
		t.Fatalf("ended=%d", ended)
	}
}

func TestSilent_PauseAndZeroDuration(t *testing.T) {
	q := make(postQueue, 4)
	s := NewSilent(20*time.Millisecond, q.post)
	s.OnEnded(func() { t.Errorf("ended must not fire after Pause") })
	s.SetSource("a.mp4")
	if err := s.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	s.Pause()

	forever := NewSilent(0, q.post)
	forever.OnEnded(func() { t.Errorf("zero duration must never end") })
	forever.SetSource("b.mp4")
	if err := forever.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}

	select {
	case fn := <-q:
		fn()
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNew(t *testing.T) {
	if v, err := New(BackendNone, FFplayConfig{}, 0); err != nil {
		t.Fatalf("New none: %v", err)
	} else if _, ok := v.(*Silent); !ok {
		t.Fatalf("none backend=%T", v)
	}
	if v, err := New(BackendFFplay, FFplayConfig{}, 0); err != nil {
		t.Fatalf("New ffplay: %v", err)
	} else if _, ok := v.(*FFplay); !ok {
		t.Fatalf("ffplay backend=%T", v)
	}
	if _, err := New("vlc", FFplayConfig{}, 0); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
