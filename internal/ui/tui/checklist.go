package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user quits a prompt without confirming.
var ErrCancelled = errors.New("selection cancelled")

type checklistKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	All     key.Binding
	None    key.Binding
	Confirm key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultChecklistKeyMap() checklistKeyMap {
	return checklistKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle"),
		),
		All: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "all"),
		),
		None: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "none"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

var checklistStyles = struct {
	Title    lipgloss.Style
	Help     lipgloss.Style
	Item     lipgloss.Style
	Cursor   lipgloss.Style
	Checked  lipgloss.Style
	Status   lipgloss.Style
	Disabled lipgloss.Style
}{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Item:     lipgloss.NewStyle().Padding(0, 2),
	Cursor:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 2),
	Checked:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Status:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
	Disabled: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Padding(0, 1),
}

// ChecklistModel is a multi-select list with every option checked initially.
type ChecklistModel struct {
	title     string
	options   []string
	checked   []bool
	cursor    int
	keys      checklistKeyMap
	showHelp  bool
	width     int
	confirmed bool
	quitting  bool
	warning   string
}

// NewChecklistModel creates a checklist over options, all pre-checked.
func NewChecklistModel(title string, options []string) ChecklistModel {
	checked := make([]bool, len(options))
	for i := range checked {
		checked[i] = true
	}
	return ChecklistModel{
		title:   title,
		options: options,
		checked: checked,
		keys:    defaultChecklistKeyMap(),
	}
}

// Init implements tea.Model.
func (m ChecklistModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ChecklistModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		m.warning = ""
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}

		case key.Matches(msg, m.keys.Toggle):
			if len(m.checked) > 0 {
				next := append([]bool(nil), m.checked...)
				next[m.cursor] = !next[m.cursor]
				m.checked = next
			}

		case key.Matches(msg, m.keys.All):
			m.setAll(true)

		case key.Matches(msg, m.keys.None):
			m.setAll(false)

		case key.Matches(msg, m.keys.Confirm):
			if len(m.Selected()) == 0 {
				m.warning = "Select at least one item"
				return m, nil
			}
			m.confirmed = true
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ChecklistModel) setAll(v bool) {
	// Copies of the model share the slice, so never write through it.
	next := make([]bool, len(m.checked))
	for i := range next {
		next[i] = v
	}
	m.checked = next
}

// View implements tea.Model.
func (m ChecklistModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(checklistStyles.Title.Render(m.title))
	b.WriteString("\n\n")

	for i, opt := range m.options {
		box := "[ ]"
		if m.checked[i] {
			box = checklistStyles.Checked.Render("[x]")
		}
		label := opt
		if m.width > 12 {
			label = truncateText(opt, m.width-12)
		}
		line := fmt.Sprintf("%s %s", box, label)
		if i == m.cursor {
			b.WriteString(checklistStyles.Cursor.Render("> " + line))
		} else {
			b.WriteString(checklistStyles.Item.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	status := fmt.Sprintf("%d of %d selected", len(m.Selected()), len(m.options))
	b.WriteString(checklistStyles.Status.Render(status))
	if m.warning != "" {
		b.WriteString(checklistStyles.Disabled.Render(m.warning))
	}
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(checklistStyles.Help.Render(`Navigation:
  ↑/k      Move up
  ↓/j      Move down

Selection:
  Space    Toggle item
  a        Select all
  n        Select none
  Enter    Confirm

General:
  ?        Toggle full help
  q/Esc    Quit`))
	} else {
		b.WriteString(checklistStyles.Help.Render("↑/↓ navigate • space toggle • a all • n none • enter confirm • q quit"))
	}
	return b.String()
}

// Selected returns the indices of checked options in order.
func (m ChecklistModel) Selected() []int {
	var out []int
	for i, c := range m.checked {
		if c {
			out = append(out, i)
		}
	}
	return out
}

// Confirmed reports whether the user pressed enter with a selection.
func (m ChecklistModel) Confirmed() bool {
	return m.confirmed
}

// Checklist runs an interactive checklist and returns the chosen indices.
// Quitting returns ErrCancelled.
func Checklist(title string, options []string) ([]int, error) {
	final, err := Run(NewChecklistModel(title, options))
	if err != nil {
		return nil, err
	}
	m, ok := final.(ChecklistModel)
	if !ok || !m.Confirmed() {
		return nil, ErrCancelled
	}
	return m.Selected(), nil
}
