package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/inventory"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

type pickerAction int

const (
	pickerNone pickerAction = iota
	pickerApply
	pickerRefresh
	pickerReboot
	pickerMultiUser
	pickerQuit
)

var stateFilters = []model.PackageState{model.StateAll, model.StateEnabled, model.StateDisabled, model.StateUninstalled}

const pickerRows = 18

// pickerModel renders a read-only copy of the package model. Its only output
// is the action chosen and the rows marked for it.
type pickerModel struct {
	device model.Device
	rows   [][]model.Package
	status string

	user   int
	cursor int
	filter int
	marked map[inventory.Ref]bool
	search textinput.Model
	multi  bool

	action pickerAction
	target model.PackageState
}

func newPickerModel(m *inventory.Model, status string) pickerModel {
	rows := make([][]model.Package, len(m.Packages))
	for i := range m.Packages {
		rows[i] = m.View(i, model.Filter{})
	}
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search name or description"
	ti.CharLimit = 64
	return pickerModel{device: m.Device, rows: rows, status: status, marked: map[inventory.Ref]bool{}, search: ti}
}

// withMarks returns m with refs marked and multi-user shown as multi.
func (m pickerModel) withMarks(refs []inventory.Ref, multi bool) pickerModel {
	for _, ref := range refs {
		m.marked[ref] = true
	}
	m.multi = multi
	return m
}

// visible maps the filtered list back to row indexes.
func (m pickerModel) visible() []int {
	if m.user >= len(m.rows) {
		return nil
	}
	f := model.Filter{State: stateFilters[m.filter], Query: m.search.Value()}
	var out []int
	for i, p := range m.rows[m.user] {
		if f.Match(p) {
			out = append(out, i)
		}
	}
	return out
}

func (m pickerModel) Marked() []inventory.Ref {
	out := make([]inventory.Ref, 0, len(m.marked))
	for u := range m.rows {
		for i := range m.rows[u] {
			ref := inventory.Ref{User: u, Index: i}
			if m.marked[ref] {
				out = append(out, ref)
			}
		}
	}
	return out
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if !m.search.Focused() {
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	if m.search.Focused() {
		switch key.String() {
		case "ctrl+c":
			m.action = pickerQuit
			return m, tea.Quit
		case "enter", "esc":
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.cursor = 0
		return m, cmd
	}
	vis := m.visible()
	switch key.String() {
	case "ctrl+c", "q":
		m.action = pickerQuit
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(vis)-1 {
			m.cursor++
		}
	case "tab":
		if len(m.rows) > 0 {
			m.user = (m.user + 1) % len(m.rows)
			m.cursor = 0
		}
	case "f":
		m.filter = (m.filter + 1) % len(stateFilters)
		m.cursor = 0
	case " ", "space":
		if m.cursor < len(vis) {
			ref := inventory.Ref{User: m.user, Index: vis[m.cursor]}
			if m.marked[ref] {
				delete(m.marked, ref)
			} else {
				m.marked[ref] = true
			}
		}
	case "u", "d", "e":
		if len(m.marked) == 0 {
			m.status = "mark packages with space first"
			return m, nil
		}
		m.action = pickerApply
		m.target = map[string]model.PackageState{"u": model.StateUninstalled, "d": model.StateDisabled, "e": model.StateEnabled}[key.String()]
		return m, tea.Quit
	case "/":
		m.cursor = 0
		cmd := m.search.Focus()
		return m, cmd
	case "r":
		m.action = pickerRefresh
		return m, tea.Quit
	case "R":
		m.action = pickerReboot
		return m, tea.Quit
	case "m":
		m.action = pickerMultiUser
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render("Universal Android Debloater")
	hint := lipgloss.NewStyle().Faint(true).Render("↑/↓ move, space mark, tab user, f filter, / search, m multi-user, u/d/e uninstall/disable/enable, r refresh, R reboot, q quit")

	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	unsafeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	faint := lipgloss.NewStyle().Faint(true)

	header := fmt.Sprintf("%s  %s  sdk %d", m.device.Serial, m.device.Name(), m.device.SDK)
	if m.user < len(m.device.Users) {
		u := m.device.Users[m.user]
		header += fmt.Sprintf("  user %d", u.ID)
		if u.Protected {
			header += " (protected)"
		}
	}
	header += "  filter " + strings.ToLower(string(stateFilters[m.filter]))
	if m.multi {
		header += "  multi-user"
	}

	lines := []string{title, hint, header}
	if m.search.Focused() || m.search.Value() != "" {
		lines = append(lines, m.search.View())
	}
	lines = append(lines, "")
	vis := m.visible()
	start := 0
	if m.cursor >= pickerRows {
		start = m.cursor - pickerRows + 1
	}
	for n := start; n < len(vis) && n < start+pickerRows; n++ {
		i := vis[n]
		p := m.rows[m.user][i]
		box := "[ ]"
		if m.marked[inventory.Ref{User: m.user, Index: i}] {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %-50s %-11s %s", box, p.Name, p.State, p.Catalog.Removal)
		switch {
		case n == m.cursor:
			line = cursorStyle.Render("> " + line)
		case p.Catalog.Removal == model.RemovalUnsafe:
			line = unsafeStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		lines = append(lines, line)
	}
	if len(vis) == 0 {
		lines = append(lines, faint.Render("  no packages"))
	}
	if m.cursor < len(vis) {
		if d := m.rows[m.user][vis[m.cursor]].Catalog.Description; d != "" {
			lines = append(lines, "", faint.Render(firstLine(d)))
		}
	}
	if m.status != "" {
		lines = append(lines, "", m.status)
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
