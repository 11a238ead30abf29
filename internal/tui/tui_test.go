package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/presenter"
)

type fakeIntents struct {
	state   presenter.State
	adds    []string
	toggles map[string]bool
	input   string
}

func (f *fakeIntents) Start(context.Context) error { return nil }
func (f *fakeIntents) State() presenter.State      { return f.state }
func (f *fakeIntents) OnAddRequested(title string) error {
	f.adds = append(f.adds, title)
	return nil
}
func (f *fakeIntents) OnToggleRequested(id string, done bool) error {
	if f.toggles == nil {
		f.toggles = map[string]bool{}
	}
	f.toggles[id] = done
	return nil
}
func (f *fakeIntents) SetInput(text string) { f.input = text }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func step(t *testing.T, m tea.Model, msg tea.Msg) tea.Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next
}

func loadedModel(t *testing.T, items ...model.Item) (tea.Model, *fakeIntents) {
	t.Helper()
	done, pending := model.Collection(items).Stats()
	fi := &fakeIntents{state: presenter.State{Items: items, Done: done, Pending: pending}}
	var m tea.Model = New(context.Background(), fi, NewNotifier())
	m = step(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = step(t, m, startedMsg{})
	return m, fi
}

func TestSpaceTogglesSelectedItem(t *testing.T) {
	now := time.Now()
	m, fi := loadedModel(t,
		model.Item{ID: "a", Title: "Buy milk", CreatedAt: now},
		model.Item{ID: "b", Title: "Walk dog", Done: true, CreatedAt: now.Add(time.Second)},
	)

	m = step(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if done, ok := fi.toggles["a"]; !ok || !done {
		t.Fatalf("expected toggle of a to done, got %v", fi.toggles)
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	step(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if done, ok := fi.toggles["b"]; !ok || done {
		t.Fatalf("expected toggle of b to pending, got %v", fi.toggles)
	}
}

func TestAddFlow(t *testing.T) {
	m, fi := loadedModel(t)

	m = step(t, m, runes("a"))
	if !m.(Model).adding {
		t.Fatalf("expected add mode")
	}

	// Blank titles are rejected before reaching the presenter.
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(fi.adds) != 0 || m.(Model).addErr == "" {
		t.Fatalf("blank title should be rejected")
	}

	m = step(t, m, runes("Buy milk"))
	if fi.input != "Buy milk" {
		t.Fatalf("input not forwarded, got %q", fi.input)
	}
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(fi.adds) != 1 || fi.adds[0] != "Buy milk" {
		t.Fatalf("adds = %v", fi.adds)
	}
	if m.(Model).adding {
		t.Fatalf("add mode should close after submit")
	}
}

func TestEscCancelsAdd(t *testing.T) {
	m, fi := loadedModel(t)
	m = step(t, m, runes("a"))
	m = step(t, m, runes("draft"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.(Model).adding || len(fi.adds) != 0 || fi.input != "" {
		t.Fatalf("esc should cancel without adding")
	}
}

func TestQuit(t *testing.T) {
	m, _ := loadedModel(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestViewStates(t *testing.T) {
	fi := &fakeIntents{state: presenter.State{Loading: true}}
	m := New(context.Background(), fi, NewNotifier())
	if !strings.Contains(m.View(), "Loading") {
		t.Fatalf("expected loading view")
	}

	empty, _ := loadedModel(t)
	if !strings.Contains(empty.View(), emptyText) {
		t.Fatalf("expected empty-list message, got:\n%s", empty.View())
	}

	full, _ := loadedModel(t, model.Item{ID: "a", Title: "Buy milk", CreatedAt: time.Now()})
	if !strings.Contains(full.View(), "Buy milk") {
		t.Fatalf("expected item in view, got:\n%s", full.View())
	}
}

func TestNotifierCoalesces(t *testing.T) {
	n := NewNotifier()
	for i := 0; i < 5; i++ {
		n.Render(presenter.State{})
	}
	msg := n.wait()()
	if _, ok := msg.(stateMsg); !ok {
		t.Fatalf("expected stateMsg, got %T", msg)
	}
	select {
	case <-n.ch:
		t.Fatalf("signals should coalesce into one")
	default:
	}
}
