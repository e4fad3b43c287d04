// Package tui is the terminal front end of the avatar client: an avatar pane,
// a status line, the transcript and an input box.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vango-go/vai-avatar/pkg/avatar/display"
	"github.com/vango-go/vai-avatar/pkg/avatar/transcript"
)

var (
	colorAccent = lipgloss.Color("#A855F7")
	colorRemote = lipgloss.Color("#22C55E")
	colorWarn   = lipgloss.Color("#FBBF24")
	colorError  = lipgloss.Color("#EF4444")
	colorMuted  = lipgloss.Color("#6B7280")
	colorText   = lipgloss.Color("#F9FAFB")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	avatarBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	avatarVideoBoxStyle = avatarBoxStyle.BorderForeground(colorRemote)

	localLabelStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	remoteLabelStyle = lipgloss.NewStyle().Foreground(colorRemote).Bold(true)
	localMsgStyle    = lipgloss.NewStyle().Foreground(colorText).Background(colorAccent).Padding(0, 1)
	remoteMsgStyle   = lipgloss.NewStyle().Foreground(colorText)

	statusStyle = lipgloss.NewStyle().Foreground(colorWarn)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(colorMuted)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)
)

// Messages delivered through Program.Send by Bridge.
type (
	statusMsg     string
	entryMsg      transcript.Entry
	scrollMsg     struct{}
	surfaceMsg   display.Surface
	closedMsg    struct{ err error }
	submitFailed struct{}
)

// Submitter hands user input to the client loop. It reports false once the
// loop is gone.
type Submitter func(text string) bool

type Options struct {
	Title  string // usually the agent URL
	Submit Submitter
}

// Model is the bubbletea model of the chat screen. Enter takes the typed text
// and empties the input box in the same update, so a second Enter before the
// client loop catches up has nothing to send.
type Model struct {
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	title   string
	submit  Submitter
	entries []transcript.Entry
	status  string
	surface display.Surface
	closed  bool
	err     error

	width  int
	height int
	ready  bool
}

func NewModel(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.CharLimit = 4000
	ti.Width = 76
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorRemote)

	return Model{
		input:    ti,
		viewport: viewport.New(80, 16),
		spinner:  sp,
		title:    opts.Title,
		submit:   opts.Submit,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			cmd := m.submitCmd()
			if cmd != nil {
				m.input.Reset()
			}
			return m, cmd
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case statusMsg:
		m.status = string(msg)

	case entryMsg:
		m.entries = append(m.entries, transcript.Entry(msg))
		m.viewport.SetContent(m.renderTranscript())

	case scrollMsg:
		m.viewport.GotoBottom()

	case surfaceMsg:
		m.surface = display.Surface(msg)

	case closedMsg:
		m.closed = true
		m.err = msg.err
		m.input.Blur()

	case submitFailed:
		m.closed = true

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if !m.closed {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// submitCmd hands the typed text to the client off the UI goroutine. Blank
// input produces no command and stays in the box.
func (m Model) submitCmd() tea.Cmd {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" || m.closed || m.submit == nil {
		return nil
	}
	submit := m.submit
	return func() tea.Msg {
		if !submit(text) {
			return submitFailed{}
		}
		return nil
	}
}

func (m *Model) resize() {
	const (
		headerHeight = 2
		avatarHeight = 4
		statusHeight = 1
		inputHeight  = 3
		helpHeight   = 1
	)
	vpHeight := m.height - headerHeight - avatarHeight - statusHeight - inputHeight - helpHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.Width = width - 4
	m.viewport.SetContent(m.renderTranscript())
	m.ready = true
}

func (m Model) renderTranscript() string {
	var b strings.Builder
	for _, e := range m.entries {
		switch e.Author {
		case transcript.Local:
			b.WriteString(localLabelStyle.Render("You") + "\n")
			b.WriteString(localMsgStyle.Render(e.Text) + "\n\n")
		default:
			b.WriteString(remoteLabelStyle.Render("Avatar") + "\n")
			b.WriteString(remoteMsgStyle.Render(e.Text) + "\n\n")
		}
	}
	return b.String()
}

func (m Model) renderAvatar() string {
	var line string
	switch m.surface.Kind {
	case display.SurfaceVideo:
		marker := "▶"
		if m.surface.Active {
			marker = m.spinner.View()
		}
		line = fmt.Sprintf("%s video  %s", marker, m.surface.URL)
	case display.SurfaceStill:
		line = fmt.Sprintf("■ still  %s", m.surface.URL)
	default:
		line = "… waiting for the agent"
	}
	style := avatarBoxStyle
	if m.surface.Kind == display.SurfaceVideo {
		style = avatarVideoBoxStyle
	}
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(line)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("vai-avatar") + "  " + helpStyle.Render(m.title) + "\n")
	b.WriteString(strings.Repeat("─", max(m.width-2, 1)) + "\n")
	b.WriteString(m.renderAvatar() + "\n")

	switch {
	case m.closed && m.err != nil:
		b.WriteString(errorStyle.Render("Disconnected: "+m.err.Error()) + "\n")
	case m.closed:
		b.WriteString(errorStyle.Render("Disconnected") + "\n")
	default:
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}

	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(inputBoxStyle.Render(m.input.View()) + "\n")
	b.WriteString(helpStyle.Render("Enter to send • Esc to quit"))
	return b.String()
}

// Entries returns the transcript rows the model has rendered.
func (m Model) Entries() []transcript.Entry {
	out := make([]transcript.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m Model) Status() string { return m.status }

func (m Model) Surface() display.Surface { return m.surface }

func (m Model) Input() string { return m.input.Value() }
