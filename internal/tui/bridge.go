package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vango-go/vai-avatar/pkg/avatar/display"
	"github.com/vango-go/vai-avatar/pkg/avatar/presenter"
	"github.com/vango-go/vai-avatar/pkg/avatar/transcript"
)

// Bridge forwards client-loop calls to the bubbletea program as messages. It
// implements presenter.View and transcript.Renderer, and Surface can be used
// as display.Config.OnChange. Calls made before Attach are dropped.
type Bridge struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

var (
	_ presenter.View      = (*Bridge)(nil)
	_ transcript.Renderer = (*Bridge)(nil)
)

func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach sets the delivery function, normally (*tea.Program).Send.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

func (b *Bridge) post(msg tea.Msg) {
	b.mu.RLock()
	send := b.send
	b.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

func (b *Bridge) SetStatus(text string) { b.post(statusMsg(text)) }

// ClearInput does nothing: the model empties the box itself when Enter is
// accepted, and clearing again later would wipe text typed since.
func (b *Bridge) ClearInput() {}

func (b *Bridge) Render(e transcript.Entry) { b.post(entryMsg(e)) }

func (b *Bridge) ScrollToLatest() { b.post(scrollMsg{}) }

func (b *Bridge) Surface(s display.Surface) { b.post(surfaceMsg(s)) }

// Closed tells the screen the session is over. err is nil for a clean close.
func (b *Bridge) Closed(err error) { b.post(closedMsg{err: err}) }

// Still returns the terminal's image surface. The avatar pane draws from the
// snapshots passed to Surface, so the surface itself has nothing to do.
func (b *Bridge) Still() display.Still { return stillPane{} }

type stillPane struct{}

func (stillPane) SetSource(string) {}
func (stillPane) SetVisible(bool)  {}
