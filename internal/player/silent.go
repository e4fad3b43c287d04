package player

import (
	"sync"
	"time"
)

// Silent is a video surface that shows nothing. With a positive Duration each
// clip "ends" after that long; otherwise a clip runs until it is interrupted.
type Silent struct {
	duration time.Duration
	post     PostFunc

	mu      sync.Mutex
	src     string
	onEnded func()
	timer   *time.Timer
	gen     uint64
}

func NewSilent(duration time.Duration, post PostFunc) *Silent {
	return &Silent{duration: duration, post: post}
}

func (s *Silent) SetSource(url string) {
	s.mu.Lock()
	s.src = url
	s.mu.Unlock()
}

func (s *Silent) SetVisible(bool) {}

func (s *Silent) OnEnded(fn func()) {
	s.mu.Lock()
	s.onEnded = fn
	s.mu.Unlock()
}

func (s *Silent) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	if s.src == "" {
		return ErrNoSource
	}
	if s.duration <= 0 {
		return nil
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.duration, func() { s.fire(gen) })
	return nil
}

func (s *Silent) fire(gen uint64) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	fn := s.onEnded
	s.mu.Unlock()
	if fn != nil && s.post != nil {
		s.post(fn)
	}
}

func (s *Silent) Pause() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

func (s *Silent) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
