// Package display owns the avatar's visual state: a still image surface and a
// video surface, exactly one of which is visible at a time.
//
// The Controller is not safe for concurrent use. It is driven from a single
// logical thread (see package presenter), and surface implementations must
// deliver end-of-playback notifications on that same thread.
package display

import (
	"log/slog"
	"strings"
)

// Video is the media surface that plays clips.
type Video interface {
	SetSource(url string)
	// Play starts playback of the current source. Errors (blocked autoplay,
	// missing player) are reported but the surface stays switched.
	Play() error
	Pause()
	SetVisible(visible bool)
	// OnEnded replaces the end-of-playback handler. Nil clears it.
	OnEnded(fn func())
}

// Still is the image surface.
type Still interface {
	SetSource(url string)
	SetVisible(visible bool)
}

type SurfaceKind int

const (
	SurfaceNone SurfaceKind = iota
	SurfaceStill
	SurfaceVideo
)

func (k SurfaceKind) String() string {
	switch k {
	case SurfaceStill:
		return "still"
	case SurfaceVideo:
		return "video"
	default:
		return "none"
	}
}

// Surface is a snapshot of what is on screen.
type Surface struct {
	Kind SurfaceKind
	URL  string
	// Active is true while the video surface owns an in-progress playback.
	Active bool
}

type Config struct {
	// IdleImage is shown when a video finishes on its own.
	IdleImage string
	Logger    *slog.Logger
	// OnChange, if set, observes every completed transition.
	OnChange func(Surface)
}

// Controller mediates every transition between the two surfaces.
type Controller struct {
	video Video
	still Still

	idleImage string
	logger    *slog.Logger
	onChange  func(Surface)

	kind     SurfaceKind
	stillURL string
	videoURL string
	active   bool

	// completion is the single slot holding the token of the playback whose
	// end is still observed. Zero means nothing is observed.
	completion uint64
	nextToken  uint64
}

func NewController(video Video, still Still, cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		video:     video,
		still:     still,
		idleImage: strings.TrimSpace(cfg.IdleImage),
		logger:    logger,
		onChange:  cfg.OnChange,
	}
}

// PlayVideo switches to the video surface and starts url. A playback already in
// progress is paused first and its end-of-playback is never observed.
func (c *Controller) PlayVideo(url string) {
	if c.active {
		c.video.Pause()
	}
	c.video.SetSource(url)
	c.video.SetVisible(true)
	c.still.SetVisible(false)
	c.kind = SurfaceVideo
	c.videoURL = url

	c.nextToken++
	token := c.nextToken
	c.completion = token
	c.video.OnEnded(func() { c.ended(token) })

	if err := c.video.Play(); err != nil {
		c.logger.Debug("video playback did not start", "url", url, "error", err)
	}
	c.active = true
	c.changed()
}

// ShowStill switches to the still surface. It pauses the video unconditionally
// but leaves the active flag alone; that flag clears when the pending
// end-of-playback fires or the next PlayVideo supersedes it.
func (c *Controller) ShowStill(url string) {
	c.video.Pause()
	c.video.SetVisible(false)
	c.still.SetSource(url)
	c.still.SetVisible(true)
	c.kind = SurfaceStill
	c.stillURL = url
	c.changed()
}

// Surface returns the visible surface.
func (c *Controller) Surface() Surface {
	s := Surface{Kind: c.kind, Active: c.active}
	switch c.kind {
	case SurfaceStill:
		s.URL = c.stillURL
	case SurfaceVideo:
		s.URL = c.videoURL
	}
	return s
}

// Active reports whether the video surface owns an in-progress playback.
func (c *Controller) Active() bool {
	return c.active
}

func (c *Controller) ended(token uint64) {
	if token == 0 || token != c.completion {
		c.logger.Debug("stale end-of-playback ignored", "token", token)
		return
	}
	c.completion = 0
	c.video.OnEnded(nil)
	c.active = false
	c.ShowStill(c.idleImage)
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange(c.Surface())
	}
}
