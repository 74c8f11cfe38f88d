package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// row is one rendered line of a list screen.
type row struct {
	key   string
	title string
	// done rows (checked items) render muted with a mark.
	done bool
}

func (r row) FilterValue() string { return r.title }
func (r row) Title() string       { return r.title }

type rowDelegate struct {
	normal   lipgloss.Style
	done     lipgloss.Style
	selected lipgloss.Style
}

func newRowDelegate() rowDelegate {
	return rowDelegate{
		normal: lipgloss.NewStyle(),
		done:   lipgloss.NewStyle().Foreground(colorChecked),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
	}
}

func (d rowDelegate) Height() int                             { return 1 }
func (d rowDelegate) Spacing() int                            { return 0 }
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		return
	}

	r, ok := item.(row)
	if !ok {
		fmt.Fprint(w, fitWidth(fmt.Sprint(item), contentW))
		return
	}

	mark := "  "
	style := d.normal
	if r.done {
		mark = "✓ "
		style = d.done
	}
	if index == m.Index() {
		style = d.selected
	}
	fmt.Fprint(w, style.Render(fitWidth(mark+r.title, contentW)))
}

func newList(items []list.Item) list.Model {
	l := list.New(items, newRowDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}
