// Package tui is the interactive view: a Bubble Tea program that draws the
// presenter's state and turns key presses into add/toggle intents.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/presenter"
	"github.com/Makepad-fr/tada/internal/ui"
)

const emptyText = "You have finished all of your todos!"

// Intents is what the view needs from the presenter.
type Intents interface {
	Start(ctx context.Context) error
	State() presenter.State
	OnAddRequested(title string) error
	OnToggleRequested(id string, done bool) error
	SetInput(text string)
}

// Notifier turns presenter render callbacks into a channel the program can
// wait on. Pending signals coalesce, so Render never blocks the store.
type Notifier struct {
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Render is a presenter render callback.
func (n *Notifier) Render(presenter.State) {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

type stateMsg struct{}

type startedMsg struct{ err error }

func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return stateMsg{}
	}
}

// listItem adapts model.Item to bubbles/list.Item
type listItem struct {
	item model.Item
}

func (i listItem) Title() string       { return i.item.Title }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.item.Title }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderLine(it.item, index == m.Index()))
}

func renderLine(it model.Item, selected bool) string {
	t := ui.Current()
	box := t.Muted.Render(t.BoxUnchecked)
	text := it.Title
	if it.Done {
		box = t.Success.Render(t.BoxChecked)
		text = t.DoneText.Render(text)
	}
	prefix := "  "
	if selected {
		prefix = t.Selected.Render(">") + " "
	}
	return prefix + box + " " + text
}

// Model is the Bubble Tea model.
type Model struct {
	ctx      context.Context
	p        Intents
	notifier *Notifier

	list   list.Model
	ti     textinput.Model
	adding bool
	addErr string
	state  presenter.State
	width  int
	height int
}

// New builds the model. The presenter must render through notifier.
func New(ctx context.Context, p Intents, notifier *Notifier) Model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = ui.Current().Title
	l.Styles.HelpStyle = ui.Current().Muted
	l.Styles.PaginationStyle = ui.Current().Muted
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")

	addBind := key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	toggleBind := key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{addBind, toggleBind} }
	l.AdditionalFullHelpKeys = func() []key.Binding { return []key.Binding{addBind, toggleBind} }

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What's left todo?"
	ti.CharLimit = 200

	return Model{
		ctx:      ctx,
		p:        p,
		notifier: notifier,
		list:     l,
		ti:       ti,
		state:    presenter.State{Loading: true},
		width:    80,
		height:   24,
	}
}

func (m Model) Init() tea.Cmd {
	start := func() tea.Msg {
		return startedMsg{err: m.p.Start(m.ctx)}
	}
	return tea.Batch(start, m.notifier.wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch x := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = x.Width, x.Height
		m.resize()
		return m, nil
	case startedMsg:
		m.state = m.p.State()
		return m, m.syncList()
	case stateMsg:
		m.state = m.p.State()
		return m, tea.Batch(m.syncList(), m.notifier.wait())
	}

	if m.adding {
		return m.updateAdding(msg)
	}

	if k, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch k.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case " ":
			if li, ok := m.list.SelectedItem().(listItem); ok {
				if err := m.p.OnToggleRequested(li.item.ID, !li.item.Done); err != nil {
					m.addErr = err.Error()
				}
			}
			return m, nil
		case "a":
			if m.state.Loading {
				return m, nil
			}
			m.adding = true
			m.addErr = ""
			m.ti.SetValue(m.state.Input)
			m.ti.Focus()
			m.resize()
			return m, textinput.Blink
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateAdding(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			title := strings.TrimSpace(m.ti.Value())
			if title == "" {
				m.addErr = "Title cannot be empty"
				return m, nil
			}
			if err := m.p.OnAddRequested(title); err != nil {
				m.addErr = err.Error()
				return m, nil
			}
			m.ti.SetValue("")
			m.ti.Blur()
			m.adding = false
			m.addErr = ""
			m.resize()
			return m, nil
		case "esc":
			m.p.SetInput("")
			m.ti.SetValue("")
			m.ti.Blur()
			m.adding = false
			m.addErr = ""
			m.resize()
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	m.p.SetInput(m.ti.Value())
	return m, cmd
}

// syncList copies presenter items into the list, keeping the cursor.
func (m *Model) syncList() tea.Cmd {
	items := make([]list.Item, 0, len(m.state.Items))
	for _, it := range m.state.Items {
		items = append(items, listItem{item: it})
	}
	m.list.Title = ui.Header(m.state.Done, m.state.Pending)
	idx := m.list.Index()
	cmd := m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	return cmd
}

func (m *Model) resize() {
	h := m.height - 6
	if m.adding {
		h -= 4
	}
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func (m Model) View() string {
	t := ui.Current()
	var b strings.Builder

	switch {
	case m.state.Loading && m.state.Err != nil:
		b.WriteString(t.Error.Render("Could not load todos: " + m.state.Err.Error()))
	case m.state.Loading:
		b.WriteString(t.Muted.Render("Loading…"))
	case len(m.state.Items) == 0:
		b.WriteString(ui.Header(0, 0) + "\n\n" + t.Muted.Render(emptyText))
	default:
		b.WriteString(m.list.View())
	}

	if !m.state.Loading && m.state.Err != nil {
		b.WriteString("\n" + t.Error.Render("Not saved: "+m.state.Err.Error()))
	}

	if m.adding {
		title := "Add new item"
		if m.addErr != "" {
			title += " — " + t.Error.Render(m.addErr)
		}
		b.WriteString("\n" + ui.Frame(title+"\n"+m.ti.View()))
	} else if m.addErr != "" {
		b.WriteString("\n" + t.Error.Render(m.addErr))
	}
	return ui.Frame(b.String())
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, p Intents, notifier *Notifier, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(New(ctx, p, notifier), opts...).Run()
	return err
}
