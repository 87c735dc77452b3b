package live

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// tickMsg is delivered once per poll interval.
type tickMsg time.Time

// Model adapts a Session to bubbletea. Sampling happens synchronously in
// Update when a tick finds the refresh interval elapsed.
type Model struct {
	ctx     context.Context
	session *Session
	keys    KeyMap
	theme   Theme
	poll    time.Duration
	width   int
}

func NewModel(ctx context.Context, session *Session, poll time.Duration) Model {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return Model{
		ctx:     ctx,
		session: session,
		keys:    DefaultKeyMap,
		theme:   DefaultTheme,
		poll:    poll,
	}
}

// Session returns the underlying state machine.
func (m Model) Session() *Session { return m.session }

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.poll, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(message, m.keys.Quit):
			m.session.Quit()
			return m, tea.Quit
		case key.Matches(message, m.keys.Next):
			m.session.Next()
		case key.Matches(message, m.keys.Previous):
			m.session.Previous()
		case key.Matches(message, m.keys.Tab1):
			m.session.Select(1)
		case key.Matches(message, m.keys.Tab2):
			m.session.Select(2)
		case key.Matches(message, m.keys.Tab3):
			m.session.Select(3)
		case key.Matches(message, m.keys.Tab4):
			m.session.Select(4)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = message.Width
		return m, nil

	case tickMsg:
		if m.session.State() == Terminated {
			return m, tea.Quit
		}
		m.session.Tick(m.ctx, time.Time(message))
		return m, m.tick()
	}
	return m, nil
}

func (m Model) View() string {
	if m.session.State() == Terminated {
		return ""
	}
	return Render(m.session, m.theme, m.width)
}

// Run drives the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, session *Session, poll time.Duration, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(NewModel(ctx, session, poll), opts...).Run()
	if err != nil && ctx.Err() != nil {
		// Killed by the caller's context, not a terminal failure.
		return nil
	}
	return err
}
