package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"oversee-cli/internal/apperr"
	"oversee-cli/internal/checking"
)

const modalHeight = 7

type checkDoneMsg struct {
	wf  *checking.Workflow
	res checking.Result
	err error
}

func (m *appModel) modalOpen() bool {
	if m.checks == nil {
		return false
	}
	_, ok := m.checks.Session()
	return ok
}

// selectItem opens the quantity modal for an unchecked inbound item.
func (m *appModel) selectItem(key string) tea.Cmd {
	if m.checks == nil {
		return nil
	}
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return m.setFlash(checking.ErrInvalidItem.Message, true)
	}
	if err := m.checks.Select(id); err != nil {
		return m.setFlash(apperr.UserMessage(err), true)
	}
	m.qtyBuf = ""
	return nil
}

func (m *appModel) updateModal(msg tea.KeyMsg) tea.Cmd {
	s, _ := m.checks.Session()
	if s.Phase == checking.Submitting {
		return nil
	}

	var err error
	switch k := msg.String(); k {
	case "esc":
		err = m.checks.Cancel()
		m.qtyBuf = ""
	case "+", "=", "up", "right":
		m.qtyBuf = ""
		err = m.checks.Increment()
	case "-", "down", "left":
		m.qtyBuf = ""
		err = m.checks.Decrement()
	case "backspace":
		if m.qtyBuf != "" {
			m.qtyBuf = m.qtyBuf[:len(m.qtyBuf)-1]
		}
		err = m.typeQuantity()
	case "enter":
		m.qtyBuf = ""
		wf := m.checks
		ctx := m.ctx
		return tea.Batch(func() tea.Msg {
			res, err := wf.Submit(ctx)
			return checkDoneMsg{wf: wf, res: res, err: err}
		}, m.spin.Tick)
	default:
		if len(k) == 1 && k[0] >= '0' && k[0] <= '9' {
			m.qtyBuf += k
			err = m.typeQuantity()
		}
	}
	if err != nil {
		return m.setFlash(apperr.UserMessage(err), true)
	}
	return nil
}

// typeQuantity applies the typed digits; the workflow clamps them to the
// available quantity, and the buffer follows the clamped value.
func (m *appModel) typeQuantity() error {
	q := decimal.Zero
	if m.qtyBuf != "" {
		v, err := decimal.NewFromString(m.qtyBuf)
		if err != nil {
			return checking.ErrInvalidQty
		}
		q = v
	}
	if err := m.checks.SetQuantity(q); err != nil {
		return err
	}
	if s, ok := m.checks.Session(); ok && !s.Quantity.Equal(q) {
		m.qtyBuf = s.Quantity.String()
	}
	return nil
}

func (m *appModel) onCheckDone(msg checkDoneMsg) tea.Cmd {
	if msg.wf != m.checks {
		return nil
	}
	m.syncRows()
	if msg.err != nil {
		var text string
		switch {
		case errors.Is(msg.err, checking.ErrBusy), apperr.IsValidation(msg.err):
			text = apperr.UserMessage(msg.err)
		default:
			text = "Check not saved: " + apperr.UserMessage(msg.err)
		}
		log.WithError(msg.err).Warn("check failed")
		return m.setFlash(text, true)
	}
	text := msg.res.Item.Name + " marked not received"
	if msg.res.Item.Checked {
		text = fmt.Sprintf("%s checked: %s", msg.res.Item.Name, qtyText(msg.res.Item.CheckedQuantity))
	}
	if msg.res.Reloaded {
		text += " (list reloaded)"
	}
	return m.setFlash(text, false)
}

func (m *appModel) viewModal() string {
	s, ok := m.checks.Session()
	if !ok {
		return ""
	}
	w := m.contentWidth() - 4
	if w > 60 {
		w = 60
	}

	qty := s.Quantity.String()
	if m.qtyBuf != "" {
		qty = m.qtyBuf
	}
	input := lipgloss.NewStyle().Foreground(colorAccentFg).Background(colorAccent).Padding(0, 1).Render(qty)

	status := ""
	switch s.Phase {
	case checking.Submitting:
		status = m.spin.View() + " Sending…"
	case checking.Rejected:
		status = styleError().Render("Not saved: " + apperr.UserMessage(s.Err))
	}

	lines := []string{
		styleTitle().Render(s.Item.Name),
		styleMuted().Render(fmt.Sprintf("Code %s  ·  available %s", s.Item.Code, qtyText(s.Item.Quantity))),
		"Quantity received: " + input,
		status,
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Background(colorModalBg).
		Width(w).
		Render(strings.Join(lines, "\n"))
}
