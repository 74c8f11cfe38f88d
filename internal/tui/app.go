package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"oversee-cli/internal/apperr"
	"oversee-cli/internal/checking"
	"oversee-cli/internal/listsync"
	"oversee-cli/internal/model"
	"oversee-cli/internal/store"
)

type view int

const (
	viewBranches view = iota
	viewMenu
	viewList
	viewItems
	viewSupport
)

func (v view) String() string {
	switch v {
	case viewBranches:
		return "branches"
	case viewMenu:
		return "menu"
	case viewList:
		return "list"
	case viewItems:
		return "items"
	case viewSupport:
		return "support"
	}
	return ""
}

const (
	menuInbound      = listInbound
	menuOutbound     = listOutbound
	menuRequisitions = listRequisitions
	menuSupport      = "support"
	menuBranch       = "branch"

	flashTTL = 3 * time.Second
)

// listChangedMsg tells the loop that some list's displayed rows changed.
type listChangedMsg struct{}

type flashClearMsg struct{ seq int }

type appModel struct {
	ctx    context.Context
	opts   Options
	user   model.User
	branch model.Branch

	// events receives list changes published from fetch and timer goroutines.
	events chan tea.Msg

	width  int
	height int
	view   view

	menu   list.Model
	rows   list.Model
	search textinput.Model
	spin   spinner.Model
	page   viewport.Model

	// screen is the list on display; parent is the document list behind an
	// items screen.
	screen   listScreen
	parent   listScreen
	listKind string
	doc      string

	checks *checking.Workflow
	qtyBuf string

	flash    string
	flashErr bool
	flashSeq int

	state *store.TUIState
}

func newAppModel(ctx context.Context, opts Options, sess store.Session) *appModel {
	m := &appModel{
		ctx:    ctx,
		opts:   opts,
		user:   sess.User,
		branch: sess.Branch,
		events: make(chan tea.Msg, 64),
		menu:   newList(menuRows()),
		rows:   newList(nil),
		search: textinput.New(),
		spin:   spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		page:   viewport.New(0, 0),
	}
	if code := strings.TrimSpace(opts.Branch); code != "" && code != m.branch.Code {
		m.branch = model.Branch{Code: code}
	}
	m.search.Prompt = "Search: "
	m.search.Placeholder = "name, code or number"
	m.search.CharLimit = 80
	m.search.Focus()

	st, err := opts.Store.LoadTUIState()
	if err != nil || st == nil {
		st = &store.TUIState{Version: 1}
	}
	if st.Search == nil {
		st.Search = map[string]string{}
	}
	m.state = st
	return m
}

func menuRows() []list.Item {
	return []list.Item{
		row{key: menuInbound, title: "Inbound invoices (NF de entrada)"},
		row{key: menuOutbound, title: "Outbound invoices (NF de saída)"},
		row{key: menuRequisitions, title: "Requisitions"},
		row{key: menuSupport, title: "Support"},
		row{key: menuBranch, title: "Change branch"},
	}
}

func (m *appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitEvent()}
	switch {
	case m.branch.Code == "":
		cmds = append(cmds, m.openBranches())
	case m.state.View == viewList.String() || m.state.View == viewItems.String():
		m.view = viewMenu
		cmds = append(cmds, m.openList(m.state.List))
	case m.state.View == viewSupport.String():
		m.openSupport()
	default:
		m.view = viewMenu
	}
	return tea.Batch(cmds...)
}

// waitEvent is re-armed after every event so the loop keeps listening.
func (m *appModel) waitEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg { return <-events }
}

func (m *appModel) changed() {
	select {
	case m.events <- listChangedMsg{}:
	default:
		// A queued change already makes the loop re-read the list.
	}
}

func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case listChangedMsg:
		m.syncRows()
		return m, m.waitEvent()

	case loadDoneMsg:
		if msg.screen != m.screen && msg.screen != m.parent {
			return m, nil
		}
		if msg.err != nil && !errors.Is(msg.err, listsync.ErrSuperseded) && !errors.Is(msg.err, listsync.ErrDisposed) {
			log.WithError(msg.err).WithField("list", msg.screen.name()).Warn("list load failed")
		}
		m.syncRows()
		return m, nil

	case checkDoneMsg:
		return m, m.onCheckDone(msg)

	case spinner.TickMsg:
		if !m.anyBusy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case flashClearMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case viewMenu:
			return m, m.updateMenu(msg)
		case viewSupport:
			return m, m.updateSupport(msg)
		case viewItems:
			if m.modalOpen() {
				return m, m.updateModal(msg)
			}
			return m, m.updateList(msg)
		default:
			return m, m.updateList(msg)
		}
	}
	return m, nil
}

func (m *appModel) updateMenu(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "esc":
		return tea.Quit
	case "enter":
		r, ok := m.menu.SelectedItem().(row)
		if !ok {
			return nil
		}
		switch r.key {
		case menuSupport:
			m.openSupport()
			return nil
		case menuBranch:
			return m.openBranches()
		default:
			return m.openList(r.key)
		}
	}
	var cmd tea.Cmd
	m.menu, cmd = m.menu.Update(msg)
	return cmd
}

func (m *appModel) updateSupport(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "esc", "backspace":
		m.view = viewMenu
		return nil
	}
	var cmd tea.Cmd
	m.page, cmd = m.page.Update(msg)
	return cmd
}

// updateList handles the branch picker, document lists and item lists.
func (m *appModel) updateList(msg tea.KeyMsg) tea.Cmd {
	if m.screen == nil {
		return nil
	}
	switch msg.String() {
	case "esc":
		return m.back()
	case "ctrl+r", "f5":
		return m.reload()
	case "enter":
		// Swallowed while the list is fetching; pick refuses too.
		if m.screen.busy() {
			return nil
		}
		return m.open()
	case "up", "down", "pgup", "pgdown", "home", "end":
		var cmd tea.Cmd
		m.rows, cmd = m.rows.Update(msg)
		return cmd
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != before {
		m.screen.typeQuery(v)
		m.rows.Select(0)
	}
	return cmd
}

func (m *appModel) reload() tea.Cmd {
	state, _, _, _ := m.screen.snapshot()
	switch state {
	case listsync.Ready:
		return tea.Batch(m.screen.refresh(m.ctx), m.spin.Tick)
	case listsync.Failed, listsync.Idle:
		return tea.Batch(m.screen.load(m.ctx), m.spin.Tick)
	}
	return nil
}

func (m *appModel) open() tea.Cmd {
	key, label, ok := m.screen.pick(m.rows.Index())
	if !ok {
		return nil
	}
	switch m.view {
	case viewBranches:
		b := model.Branch{Code: key, Name: label}
		if err := m.opts.Store.SetBranch(m.ctx, b); err != nil {
			return m.setFlash(err.Error(), true)
		}
		m.branch = b
		m.closeScreens()
		m.view = viewMenu
		return nil
	case viewList:
		return m.openItems(key)
	case viewItems:
		return m.selectItem(key)
	}
	return nil
}

func (m *appModel) back() tea.Cmd {
	switch m.view {
	case viewItems:
		m.screen.close()
		m.screen, m.parent = m.parent, nil
		m.checks = nil
		m.doc = ""
		m.view = viewList
		m.search.SetValue(m.screen.rawQuery())
		m.syncRows()
	case viewList:
		m.closeScreens()
		m.view = viewMenu
	case viewBranches:
		if m.branch.Code == "" {
			return tea.Quit
		}
		m.closeScreens()
		m.view = viewMenu
	}
	return nil
}

func (m *appModel) screenOptions() listsync.ScreenOptions {
	return listsync.ScreenOptions{Clock: m.opts.Clock, Debounce: m.opts.Debounce, NavWindow: m.opts.NavWindow}
}

func (m *appModel) openBranches() tea.Cmd {
	m.closeScreens()
	api := m.opts.Client
	s := newDocScreen[model.Branch](listBranches, "Choose a branch", func(ctx context.Context) ([]model.Branch, error) {
		return api.Branches(ctx)
	}, m.screenOptions(), m.changed)
	s.key = func(b model.Branch) string { return b.Code }
	s.label = func(b model.Branch) string { return b.Name }
	s.line = branchLine
	return m.show(viewBranches, s, "")
}

func (m *appModel) openList(kind string) tea.Cmd {
	m.closeScreens()
	api := m.opts.Client
	branch := m.branch.Code
	opts := m.screenOptions()

	var s listScreen
	switch kind {
	case listInbound:
		d := newDocScreen[model.InboundInvoice](listInbound, "Inbound invoices", func(ctx context.Context) ([]model.InboundInvoice, error) {
			return api.InboundInvoices(ctx, branch)
		}, opts, m.changed)
		d.key = func(n model.InboundInvoice) string { return n.Number }
		d.label = func(n model.InboundInvoice) string { return "NF " + n.Number + " " + n.SupplierName }
		d.line = inboundLine
		s = d
	case listOutbound:
		d := newDocScreen[model.OutboundInvoice](listOutbound, "Outbound invoices", func(ctx context.Context) ([]model.OutboundInvoice, error) {
			return api.OutboundInvoices(ctx, branch)
		}, opts, m.changed)
		d.key = func(n model.OutboundInvoice) string { return n.Number }
		d.label = func(n model.OutboundInvoice) string { return "NF " + n.Number + " " + n.CustomerName }
		d.line = outboundLine
		s = d
	case listRequisitions:
		d := newDocScreen[model.Requisition](listRequisitions, "Requisitions", func(ctx context.Context) ([]model.Requisition, error) {
			return api.Requisitions(ctx, branch)
		}, opts, m.changed)
		d.key = func(r model.Requisition) string { return r.Number }
		d.label = func(r model.Requisition) string { return "Req " + r.Number + " " + r.CostCenter }
		d.line = requisitionLine
		s = d
	default:
		m.view = viewMenu
		return nil
	}
	m.listKind = kind
	return m.show(viewList, s, m.state.Search[kind])
}

func (m *appModel) openItems(doc string) tea.Cmd {
	api := m.opts.Client
	branch := m.branch.Code
	var fetch func(ctx context.Context) ([]model.LineItem, error)
	switch m.listKind {
	case listInbound:
		fetch = func(ctx context.Context) ([]model.LineItem, error) { return api.InboundItems(ctx, branch, doc) }
	case listOutbound:
		fetch = func(ctx context.Context) ([]model.LineItem, error) { return api.OutboundItems(ctx, branch, doc) }
	case listRequisitions:
		fetch = func(ctx context.Context) ([]model.LineItem, error) { return api.RequisitionItems(ctx, branch, doc) }
	default:
		return nil
	}

	s := newDocScreen[model.LineItem](listItems, m.itemsHeading(doc), fetch, m.screenOptions(), m.changed)
	s.key = func(it model.LineItem) string { return fmt.Sprint(it.ID) }
	s.label = func(it model.LineItem) string { return it.Name }
	s.line = itemLine
	s.done = func(it model.LineItem) bool { return it.Checked }

	m.parent = m.screen
	m.doc = doc
	m.checks = nil
	if m.listKind == listInbound {
		scope := checking.Scope{Branch: branch, DocumentID: doc, User: m.user}
		m.checks = checking.New(scope, checking.ListStore{List: s.scr.List}, api)
	}
	m.screen = s
	m.view = viewItems
	m.search.SetValue("")
	m.rows.SetItems(nil)
	return tea.Batch(s.load(m.ctx), m.spin.Tick)
}

func (m *appModel) itemsHeading(doc string) string {
	switch m.listKind {
	case listInbound:
		return "Items of inbound NF " + doc
	case listOutbound:
		return "Items of outbound NF " + doc
	default:
		return "Items of requisition " + doc
	}
}

// show puts s on screen with an initial search and starts its first load.
func (m *appModel) show(v view, s listScreen, query string) tea.Cmd {
	m.screen = s
	m.view = v
	m.search.SetValue(query)
	if query != "" {
		s.typeQuery(query)
		s.flushQuery()
	}
	m.rows.SetItems(nil)
	return tea.Batch(s.load(m.ctx), m.spin.Tick)
}

func (m *appModel) openSupport() {
	m.view = viewSupport
	m.page.SetContent(renderMarkdown(supportMarkdown, m.contentWidth()))
	m.page.GotoTop()
}

func (m *appModel) closeScreens() {
	if m.screen != nil {
		m.rememberSearch()
		m.screen.close()
	}
	if m.parent != nil {
		m.parent.close()
	}
	m.screen, m.parent = nil, nil
	m.checks = nil
	m.doc = ""
}

func (m *appModel) rememberSearch() {
	if m.view == viewList && m.screen != nil {
		if q := m.screen.rawQuery(); q != "" {
			m.state.Search[m.screen.name()] = q
		} else {
			delete(m.state.Search, m.screen.name())
		}
	}
}

func (m *appModel) syncRows() {
	if m.screen == nil {
		return
	}
	idx := m.rows.Index()
	items := m.screen.rows()
	m.rows.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx < 0 {
		idx = 0
	}
	m.rows.Select(idx)
}

func (m *appModel) anyBusy() bool {
	if m.screen != nil && m.screen.busy() {
		return true
	}
	if m.checks != nil {
		if s, ok := m.checks.Session(); ok && s.Phase == checking.Submitting {
			return true
		}
	}
	return false
}

func (m *appModel) setFlash(text string, isErr bool) tea.Cmd {
	m.flashSeq++
	seq := m.flashSeq
	m.flash = text
	m.flashErr = isErr
	return tea.Tick(flashTTL, func(time.Time) tea.Msg { return flashClearMsg{seq: seq} })
}

func (m *appModel) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m *appModel) bodyHeight() int {
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

func (m *appModel) resize() {
	w := m.contentWidth()
	h := m.bodyHeight()
	m.menu.SetSize(w, h)
	m.rows.SetSize(w, h-2)
	m.search.Width = w - len(m.search.Prompt) - 2
	m.page.Width = w
	m.page.Height = h
	if m.view == viewSupport {
		m.page.SetContent(renderMarkdown(supportMarkdown, w))
	}
}

// shutdown releases the screens and remembers where the user was.
func (m *appModel) shutdown() {
	v := m.view
	kind := m.listKind
	m.closeScreens()
	m.state.View = v.String()
	m.state.List = ""
	if v == viewList || v == viewItems {
		m.state.List = kind
	}
	if err := m.opts.Store.SaveTUIState(m.state); err != nil {
		log.WithError(err).Warn("save tui state")
	}
}

func (m *appModel) View() string {
	w := m.contentWidth()

	who := m.user.Name
	if who == "" {
		who = m.user.ID
	}
	branch := "no branch"
	if m.branch.Code != "" {
		branch = strings.TrimSpace("Filial " + m.branch.Code + " " + m.branch.Name)
	}
	header := styleTitle().Render("Oversee") + styleMuted().Render("  "+who+"  ·  "+branch)

	var body string
	switch m.view {
	case viewMenu:
		body = m.menu.View()
	case viewSupport:
		body = m.page.View()
	default:
		body = m.viewList()
	}
	body = normalizePane(body, w, m.bodyHeight())

	status := ""
	if m.flash != "" {
		if m.flashErr {
			status = styleError().Render(m.flash)
		} else {
			status = lipgloss.NewStyle().Foreground(colorChecked).Render(m.flash)
		}
	}
	footer := styleMuted().Render(m.helpLine())
	return strings.Join([]string{header, body, status, footer}, "\n")
}

func (m *appModel) viewList() string {
	if m.screen == nil {
		return ""
	}
	state, shown, total, err := m.screen.snapshot()

	lines := []string{styleTitle().Render(m.screen.heading()), m.search.View()}
	switch state {
	case listsync.Idle, listsync.Loading:
		lines = append(lines, m.spin.View()+" Loading…", renderSkeleton(m.contentWidth(), m.bodyHeight()-3))
		return strings.Join(lines, "\n")
	case listsync.Failed:
		lines = append(lines, styleError().Render("Could not load: "+apperr.UserMessage(err)), styleMuted().Render("Press ctrl+r to try again."))
		return strings.Join(lines, "\n")
	case listsync.Refreshing:
		lines = append(lines, m.spin.View()+" Refreshing…")
	default:
		if q := strings.TrimSpace(m.search.Value()); q != "" {
			lines = append(lines, styleMuted().Render(fmt.Sprintf("%d of %d", shown, total)))
		} else {
			lines = append(lines, styleMuted().Render(fmt.Sprintf("%d records", total)))
		}
	}
	if shown == 0 && state == listsync.Ready {
		lines = append(lines, styleMuted().Render("Nothing to show."))
	} else {
		lines = append(lines, m.rows.View())
	}

	out := strings.Join(lines, "\n")
	if m.modalOpen() {
		out = normalizePane(out, m.contentWidth(), m.bodyHeight()-modalHeight) + "\n" + m.viewModal()
	}
	return out
}

func renderSkeleton(width, height int) string {
	if height < 1 {
		height = 1
	}
	if height > 8 {
		height = 8
	}
	bar := lipgloss.NewStyle().Foreground(colorSkeleton)
	lines := make([]string, height)
	for i := range lines {
		n := width - 4 - (i%3)*8
		if n < 4 {
			n = 4
		}
		lines[i] = "  " + bar.Render(strings.Repeat("░", n))
	}
	return strings.Join(lines, "\n")
}

func (m *appModel) helpLine() string {
	switch m.view {
	case viewMenu:
		return "enter: open  q: quit"
	case viewSupport:
		return "↑/↓: scroll  esc: back"
	case viewItems:
		if m.modalOpen() {
			return "+/-: adjust  digits: type quantity  enter: confirm  esc: cancel"
		}
		if m.checks != nil {
			return "type to search  enter: check item  ctrl+r: refresh  esc: back"
		}
		return "type to search  ctrl+r: refresh  esc: back"
	case viewBranches:
		return "type to search  enter: choose  ctrl+r: refresh  esc: back"
	default:
		return "type to search  enter: open  ctrl+r/F5: refresh  esc: back  ctrl+c: quit"
	}
}
