package presenter

import (
	"context"
	"sync"
)

const defaultLoopQueue = 64

// Loop is the single logical thread of the client. Work posted from any
// goroutine runs on the goroutine executing Run, one item at a time, in the
// order it was accepted.
type Loop struct {
	work     chan func()
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewLoop() *Loop {
	return &Loop{
		work:    make(chan func(), defaultLoopQueue),
		stopped: make(chan struct{}),
	}
}

// Post schedules fn. It blocks while the queue is full and reports false once
// the loop has stopped, in which case fn never runs.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.work <- fn:
		return true
	case <-l.stopped:
		return false
	}
}

// Run executes posted work until ctx is done, done is closed (nil never
// closes) or Stop is called.
func (l *Loop) Run(ctx context.Context, done <-chan struct{}) {
	defer l.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			// Events the transport delivered before closing still count.
			for {
				select {
				case fn := <-l.work:
					fn()
				default:
					return
				}
			}
		case <-l.stopped:
			return
		case fn := <-l.work:
			fn()
		}
	}
}

func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopped) })
}

// Stopped is closed once the loop no longer runs work.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}
