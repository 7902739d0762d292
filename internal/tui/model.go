// Package tui is the interactive attendance-taking screen. It walks the
// roster one participant at a time; every mark goes through the store.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rollcall/internal/domain"
	"rollcall/internal/roster"
	"rollcall/internal/views"
)

type Model struct {
	store *roster.Store
	keys  KeyMap
	help  help.Model
	bar   progress.Model

	search    textinput.Model
	searching bool

	index int
	err   string
}

// New builds the screen over store. The session must already be loaded;
// with no session the screen only offers quit.
func New(store *roster.Store) Model {
	session, _ := store.Session()

	ti := textinput.New()
	ti.Placeholder = "nombre"
	ti.Prompt = "/ "
	ti.CharLimit = 80

	m := Model{
		store:  store,
		keys:   DefaultKeyMap(session.Variant),
		help:   help.New(),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		search: ti,
	}
	m.syncKeys()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Index is the roster position currently shown.
func (m Model) Index() int { return m.index }

func (m Model) Searching() bool { return m.searching }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.bar.Width = min(60, max(10, msg.Width-20))
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		people := m.store.Attendees()
		m.err = ""
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Prev):
			m.index--
		case key.Matches(msg, m.keys.Next):
			m.index++
		case key.Matches(msg, m.keys.Search):
			m.searching = true
			m.search.SetValue("")
			return m, m.search.Focus()
		case key.Matches(msg, m.keys.Clear):
			if session, ok := m.store.Session(); ok {
				m.mark(people, session.Variant.Default(), false)
			}
		default:
			for i, b := range m.keys.Mark {
				if key.Matches(msg, b) {
					session, _ := m.store.Session()
					m.mark(people, session.Variant.Choices()[i], true)
					break
				}
			}
		}
		m.syncKeys()
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.searching = false
		m.search.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		m.searching = false
		m.search.Blur()
		people := m.store.Attendees()
		matches := views.Filter(people, m.search.Value())
		if len(matches) == 0 {
			m.err = fmt.Sprintf("sin coincidencias para %q", m.search.Value())
			return m, nil
		}
		m.index = views.IndexOf(people, matches[0].ID)
		m.syncKeys()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// mark records status for the current participant and, when advance is
// set, moves to the next one.
func (m *Model) mark(people []domain.Participant, status domain.Status, advance bool) {
	if m.index < 0 || m.index >= len(people) {
		return
	}
	if err := m.store.SetStatus(people[m.index].ID, status); err != nil {
		m.err = err.Error()
		return
	}
	if advance && m.index < len(people)-1 {
		m.index++
	}
}

// syncKeys clamps the cursor and disables navigation at the roster ends.
func (m *Model) syncKeys() {
	n := len(m.store.Attendees())
	if m.index >= n {
		m.index = n - 1
	}
	if m.index < 0 {
		m.index = 0
	}
	m.keys.Prev.SetEnabled(m.index > 0)
	m.keys.Next.SetEnabled(m.index < n-1)
	_, active := m.store.Session()
	for i := range m.keys.Mark {
		m.keys.Mark[i].SetEnabled(active && n > 0)
	}
	m.keys.Clear.SetEnabled(active && n > 0)
	m.keys.Search.SetEnabled(n > 0)
}

func (m Model) View() string {
	session, ok := m.store.Session()
	people := m.store.Attendees()
	if !ok || len(people) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			TitleStyle.Render("Sin sesión activa"),
			SubtitleStyle.Render("Importe una lista con `rollcall import` antes de tomar asistencia."),
			"",
			m.help.View(m.keys),
		)
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(session.Title()))
	b.WriteString("\n")
	if session.Variant == domain.VariantAttendance {
		b.WriteString(SubtitleStyle.Render(fmt.Sprintf("%s · Sesión %s", session.Group.Title(), session.Meeting)))
	} else {
		b.WriteString(SubtitleStyle.Render(session.Group.Title()))
	}
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(float64(m.index+1) / float64(len(people))))
	b.WriteString("  ")
	b.WriteString(CounterStyle.Render(Counter(m.index, len(people))))
	b.WriteString("\n\n")

	current := people[m.index]
	var choices []string
	for i, s := range session.Variant.Choices() {
		label := fmt.Sprintf("[%d] %s", i+1, s.Label())
		if current.Status == s {
			choices = append(choices, SelectedChoiceStyle.Render(label))
		} else {
			choices = append(choices, ChoiceStyle.Render(label))
		}
	}
	card := lipgloss.JoinVertical(lipgloss.Left,
		NameStyle.Render(current.Name),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, choices...),
	)
	b.WriteString(CardStyle.Render(card))
	b.WriteString("\n\n")

	b.WriteString(TallyLine(session.Variant, people))
	b.WriteString("\n")
	if m.searching {
		b.WriteString("\n")
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// Counter renders the 1-based position, e.g. "3 de 10".
func Counter(index, total int) string {
	if total == 0 {
		return "0 de 0"
	}
	return fmt.Sprintf("%d de %d", index+1, total)
}

// TallyLine renders the live per-status counts.
func TallyLine(variant domain.Variant, people []domain.Participant) string {
	var parts []string
	for _, e := range views.CountByStatus(variant, people) {
		label := statusStyle(e.Label,
			e.Status == domain.StatusPresent || e.Status == domain.StatusInFavor,
			e.Status == domain.StatusAbsent || e.Status == domain.StatusAgainst,
		)
		parts = append(parts, fmt.Sprintf("%s: %d", label, e.Count))
	}
	return strings.Join(parts, "  ")
}
