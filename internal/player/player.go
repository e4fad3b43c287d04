package player

import (
	"fmt"
	"time"
)

const (
	BackendFFplay = "ffplay"
	BackendNone   = "none"
)

// Video matches display.Video.
type Video interface {
	SetSource(url string)
	Play() error
	Pause()
	SetVisible(visible bool)
	OnEnded(fn func())
}

var (
	_ Video = (*FFplay)(nil)
	_ Video = (*Silent)(nil)
)

// New picks a backend by name. silentDuration only applies to "none".
func New(backend string, ff FFplayConfig, silentDuration time.Duration) (Video, error) {
	switch backend {
	case BackendFFplay, "":
		return NewFFplay(ff), nil
	case BackendNone:
		return NewSilent(silentDuration, ff.Post), nil
	default:
		return nil, fmt.Errorf("player: unsupported backend %q", backend)
	}
}
