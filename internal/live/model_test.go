package live

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestModel() Model {
	s := NewSession(testReport(), &stubSampler{}, time.Second, time.Unix(0, 0))
	return NewModel(context.Background(), s, 0)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func TestQuitKeys(t *testing.T) {
	for _, msg := range []tea.KeyMsg{runeKey('q'), {Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		m := newTestModel()
		m, cmd := update(t, m, msg)
		if m.Session().State() != Terminated {
			t.Errorf("%s did not terminate the session", msg)
		}
		if cmd == nil {
			t.Fatalf("%s returned no command", msg)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s command did not quit", msg)
		}
	}
}

func TestTabKeys(t *testing.T) {
	m := newTestModel()

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.Session().Tab() != TabCPUMemory {
		t.Errorf("right -> %v", m.Session().Tab())
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.Session().Tab() != TabStorageNetwork {
		t.Errorf("tab -> %v", m.Session().Tab())
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.Session().Tab() != TabCPUMemory {
		t.Errorf("left -> %v", m.Session().Tab())
	}
	m, _ = update(t, m, runeKey('4'))
	if m.Session().Tab() != TabPeripherals {
		t.Errorf("4 -> %v", m.Session().Tab())
	}
	m, _ = update(t, m, runeKey('1'))
	if m.Session().Tab() != TabOverview {
		t.Errorf("1 -> %v", m.Session().Tab())
	}
	m, _ = update(t, m, runeKey('x'))
	if m.Session().Tab() != TabOverview {
		t.Errorf("unbound key changed tab to %v", m.Session().Tab())
	}
}

func TestTickRefreshesAndReschedules(t *testing.T) {
	m := newTestModel()

	m, cmd := update(t, m, tickMsg(time.Unix(2, 0)))
	if cmd == nil {
		t.Fatal("tick did not reschedule")
	}
	if got := m.Session().Report().CPU[0].Usage; got != 75 {
		t.Errorf("usage after tick = %v, want 75", got)
	}
}

func TestTickAfterQuit(t *testing.T) {
	m := newTestModel()
	m.Session().Quit()

	_, cmd := update(t, m, tickMsg(time.Unix(2, 0)))
	if cmd == nil {
		t.Fatal("no command after quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("tick after quit did not return tea.Quit")
	}
}

func TestViewPerTab(t *testing.T) {
	m := newTestModel()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	want := map[Tab]string{
		TabOverview:       "System Summary",
		TabCPUMemory:      "RAM & Swap Details",
		TabStorageNetwork: "Network Interfaces",
		TabPeripherals:    "USB Devices",
	}
	for tab, title := range want {
		m.Session().Select(int(tab) + 1)
		view := m.View()
		if !strings.Contains(view, title) {
			t.Errorf("tab %v view missing %q", tab, title)
		}
		if !strings.Contains(view, "bench") {
			t.Errorf("tab %v view missing hostname", tab)
		}
	}

	m.Session().Select(4)
	if !strings.Contains(m.View(), "0x046d") {
		t.Error("unnamed USB vendor not rendered as hex")
	}
}
