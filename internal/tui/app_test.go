package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"oversee-cli/internal/api"
	"oversee-cli/internal/apitest"
	"oversee-cli/internal/checking"
	"oversee-cli/internal/clock/clocktest"
	"oversee-cli/internal/listsync"
	"oversee-cli/internal/model"
	"oversee-cli/internal/store"
)

// driver runs an appModel the way tea.Program would: commands run on their
// own goroutines and their messages are fed back to Update on the test goroutine.
type driver struct {
	t    *testing.T
	m    *appModel
	msgs chan tea.Msg
}

func (d *driver) exec(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		if msg := cmd(); msg != nil {
			d.msgs <- msg
		}
	}()
}

func (d *driver) dispatch(msg tea.Msg) {
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			d.exec(c)
		}
		return
	}
	_, cmd := d.m.Update(msg)
	d.exec(cmd)
}

// settle processes messages until nothing is fetching and the loop went quiet.
func (d *driver) settle() {
	d.t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-d.msgs:
			d.dispatch(msg)
		case <-time.After(100 * time.Millisecond):
			if !d.m.anyBusy() {
				return
			}
		case <-deadline:
			d.t.Fatalf("model did not settle")
		}
	}
}

// until pumps messages until cond holds.
func (d *driver) until(cond func() bool) {
	d.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			d.t.Fatalf("condition not reached")
		}
		select {
		case msg := <-d.msgs:
			d.dispatch(msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (d *driver) press(keys ...tea.KeyMsg) {
	d.t.Helper()
	for _, k := range keys {
		d.dispatch(k)
	}
	d.settle()
}

func (d *driver) typeText(s string) {
	d.t.Helper()
	for _, r := range s {
		d.dispatch(runes(string(r)))
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyCtrlR = tea.KeyMsg{Type: tea.KeyCtrlR}
)

type harness struct {
	*driver
	fake  *apitest.Server
	clk   *clocktest.Fake
	store store.Store
	opts  Options
}

func newHarness(t *testing.T, branch model.Branch, setup ...func(*apitest.Server)) *harness {
	t.Helper()
	fake := apitest.New(apitest.Demo())
	fake.Token = "tok"
	for _, fn := range setup {
		fn(fake)
	}
	srv := apitest.Start(t, fake)

	st := store.Store{Dir: t.TempDir()}
	ctx := context.Background()
	if err := st.SaveSession(ctx, store.Session{Token: "tok", User: model.User{ID: "42", Name: "Ana Lima"}, Branch: branch}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	client, err := api.New(api.Config{BaseURL: srv.URL, Tokens: st})
	if err != nil {
		t.Fatalf("api client: %v", err)
	}

	h := &harness{fake: fake, clk: clocktest.New(), store: st}
	h.opts = Options{
		Client:    client,
		Store:     st,
		Debounce:  200 * time.Millisecond,
		NavWindow: 800 * time.Millisecond,
		Clock:     h.clk,
	}
	h.driver = h.start(t)
	return h
}

func (h *harness) start(t *testing.T) *driver {
	t.Helper()
	sess, err := h.store.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	m := newAppModel(context.Background(), h.opts, sess)
	d := &driver{t: t, m: m, msgs: make(chan tea.Msg, 1024)}
	d.dispatch(tea.WindowSizeMsg{Width: 100, Height: 40})
	d.exec(m.Init())
	d.settle()
	t.Cleanup(func() { m.closeScreens() })
	return d
}

func (h *harness) rowTitles() []string {
	var out []string
	for _, it := range h.m.rows.Items() {
		out = append(out, it.(row).title)
	}
	return out
}

func (h *harness) view() string { return xansi.Strip(h.m.View()) }

func TestBranchPicker_SearchAndChoose(t *testing.T) {
	h := newHarness(t, model.Branch{})

	if h.m.view != viewBranches {
		t.Fatalf("expected the branch picker first; got %v", h.m.view)
	}
	if n := len(h.rowTitles()); n != 2 {
		t.Fatalf("expected 2 branches; got %d", n)
	}

	h.typeText("NATAL")
	h.settle()
	if n := len(h.rowTitles()); n != 2 {
		t.Fatalf("search must wait for the debounce interval; got %d rows", n)
	}
	h.clk.Advance(200 * time.Millisecond)
	h.settle()
	rows := h.rowTitles()
	if len(rows) != 1 || !strings.Contains(rows[0], "Filial Natal") {
		t.Fatalf("unexpected rows after search: %v", rows)
	}

	h.press(keyEnter)
	if h.m.view != viewMenu {
		t.Fatalf("expected menu after picking a branch; got %v", h.m.view)
	}
	sess, err := h.store.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if sess.Branch.Code != "2" || sess.Branch.Name != "Filial Natal" {
		t.Fatalf("branch not stored: %+v", sess.Branch)
	}
	if !strings.Contains(h.view(), "Filial 2 Filial Natal") {
		t.Fatalf("header should show the branch:\n%s", h.view())
	}
}

func TestInboundCheckFlow(t *testing.T) {
	h := newHarness(t, model.Branch{Code: "1", Name: "Matriz Mossoró"})

	if h.m.view != viewMenu {
		t.Fatalf("expected menu; got %v", h.m.view)
	}
	h.press(keyEnter)
	if h.m.view != viewList || len(h.rowTitles()) != 3 {
		t.Fatalf("expected the inbound list with 3 rows; got view %v rows %v", h.m.view, h.rowTitles())
	}

	h.press(keyEnter)
	if h.m.view != viewItems || h.m.doc != "1001" {
		t.Fatalf("expected items of NF 1001; got view %v doc %q", h.m.view, h.m.doc)
	}
	items := h.m.rows.Items()
	if len(items) != 3 || !items[2].(row).done || items[0].(row).done {
		t.Fatalf("unexpected item rows: %v", h.rowTitles())
	}

	// The first item opens the modal with quantity 1.
	h.press(keyEnter)
	s, ok := h.m.checks.Session()
	if !ok || s.Item.ID != 1 || s.Quantity.String() != "1" {
		t.Fatalf("expected a session on item 1 with quantity 1; got %+v ok=%v", s, ok)
	}

	h.press(runes("5"), runes("+"))
	s, _ = h.m.checks.Session()
	if s.Quantity.String() != "6" {
		t.Fatalf("expected quantity 6; got %s", s.Quantity)
	}
	if !strings.Contains(h.view(), "Quantity received:  6") {
		t.Fatalf("modal should show the quantity:\n%s", h.view())
	}

	h.press(keyEnter)
	if h.m.modalOpen() {
		t.Fatalf("modal should close after a successful check")
	}
	calls := h.fake.Checks()
	if len(calls) != 1 || calls[0].ItemID != 1 || calls[0].Quantity != "6" || calls[0].UserID != "42" {
		t.Fatalf("unexpected PATCH calls: %+v", calls)
	}
	if !h.m.rows.Items()[0].(row).done {
		t.Fatalf("item 1 should render as checked")
	}
	if !strings.Contains(h.m.flash, "checked: 6") {
		t.Fatalf("unexpected flash: %q", h.m.flash)
	}
	if got := h.fake.Hits("GET /nfentradas/itens"); got != 1 {
		t.Fatalf("a matched echo must not reload the list; got %d fetches", got)
	}

	// A checked row refuses selection.
	h.clk.Advance(800 * time.Millisecond)
	h.press(keyDown, keyDown, keyEnter)
	if h.m.modalOpen() {
		t.Fatalf("checked item must not open the modal")
	}
	if h.m.flash != checking.ErrAlreadyChecked.Message {
		t.Fatalf("unexpected flash: %q", h.m.flash)
	}
}

func TestCheckModal_TypedQuantityIsClamped(t *testing.T) {
	h := newHarness(t, model.Branch{Code: "1"})
	h.press(keyEnter) // inbound
	h.press(keyEnter) // NF 1001
	h.press(keyDown, keyEnter)

	h.press(runes("9"), runes("9"))
	s, _ := h.m.checks.Session()
	if s.Quantity.String() != "20" || h.m.qtyBuf != "20" {
		t.Fatalf("expected quantity clamped to 20; got %s (buffer %q)", s.Quantity, h.m.qtyBuf)
	}

	h.press(keyEsc)
	if h.m.modalOpen() || len(h.fake.Checks()) != 0 {
		t.Fatalf("esc must close the modal without sending")
	}
	if h.m.view != viewItems {
		t.Fatalf("esc in the modal must stay on the items screen")
	}
}

func TestCheckModal_ZeroQuantityLeavesItemOpen(t *testing.T) {
	h := newHarness(t, model.Branch{Code: "1"})
	h.press(keyEnter) // inbound
	h.press(keyEnter) // NF 1001
	h.press(keyEnter) // item 1, seeded with 1

	h.press(runes("-"), keyEnter)
	calls := h.fake.Checks()
	if len(calls) != 1 || calls[0].Quantity != "0" || calls[0].Checked != "0" {
		t.Fatalf("unexpected PATCH calls: %+v", calls)
	}
	if h.m.rows.Items()[0].(row).done {
		t.Fatalf("item 1 must stay unchecked")
	}
	if !strings.HasSuffix(h.m.flash, "marked not received") || strings.Contains(h.m.flash, "checked") {
		t.Fatalf("unexpected flash: %q", h.m.flash)
	}
}

func TestCheckModal_RejectedKeepsSession(t *testing.T) {
	h := newHarness(t, model.Branch{Code: "1"}, func(s *apitest.Server) {
		s.FailCheck = func(int64) (int, string) { return 409, "Item bloqueado" }
	})
	h.press(keyEnter)
	h.press(keyEnter)
	h.press(keyEnter)
	h.press(keyEnter)

	s, ok := h.m.checks.Session()
	if !ok || s.Phase != checking.Rejected {
		t.Fatalf("expected a rejected session; got %+v ok=%v", s, ok)
	}
	if !strings.Contains(h.view(), "Item bloqueado") {
		t.Fatalf("the server message should be shown:\n%s", h.view())
	}
	if h.m.rows.Items()[0].(row).done {
		t.Fatalf("a rejected check must not mark the row")
	}
}

func TestRefreshOverlaySwallowsEnter(t *testing.T) {
	h := newHarness(t, model.Branch{Code: "1"})
	h.press(keyEnter)
	if len(h.rowTitles()) != 3 {
		t.Fatalf("expected 3 invoices")
	}

	h.fake.SetDelay(300 * time.Millisecond)
	h.dispatch(keyCtrlR)
	h.until(h.m.screen.busy)
	if state, _, _, _ := h.m.screen.snapshot(); state != listsync.Refreshing {
		t.Fatalf("expected refreshing; got %v", state)
	}
	if !strings.Contains(h.view(), "Refreshing") {
		t.Fatalf("expected the refresh overlay:\n%s", h.view())
	}
	if !strings.Contains(h.view(), "Ração Forte") {
		t.Fatalf("rows must stay visible while refreshing:\n%s", h.view())
	}

	h.dispatch(keyEnter)
	if h.m.view != viewList {
		t.Fatalf("enter must be ignored while refreshing")
	}

	h.settle()
	if len(h.rowTitles()) != 3 || h.m.screen.busy() {
		t.Fatalf("expected the list back to ready with 3 rows")
	}
	if got := h.fake.Hits("GET /nfentradas/1"); got != 2 {
		t.Fatalf("expected 2 fetches; got %d", got)
	}
}

func TestFailedLoadOffersRetry(t *testing.T) {
	h := newHarness(t, model.Branch{Code: "1"})
	expired := store.Session{Token: "expired", User: model.User{ID: "42"}, Branch: model.Branch{Code: "1"}}
	if err := h.store.SaveSession(context.Background(), expired); err != nil {
		t.Fatalf("save session: %v", err)
	}
	h.press(keyEnter)

	if state, _, _, _ := h.m.screen.snapshot(); state != listsync.Failed {
		t.Fatalf("expected failed; got %v", state)
	}
	if v := h.view(); !strings.Contains(v, "Token inválido ou expirado") || !strings.Contains(v, "ctrl+r") {
		t.Fatalf("expected the error and a retry hint:\n%s", v)
	}

	h.press(keyCtrlR)
	if got := h.fake.Hits("GET /nfentradas/1"); got != 2 {
		t.Fatalf("ctrl+r should load again after a failure; got %d fetches", got)
	}
}

func TestSupportPage(t *testing.T) {
	h := newHarness(t, model.Branch{Code: "1"})
	h.press(keyDown, keyDown, keyDown, keyEnter)

	if h.m.view != viewSupport {
		t.Fatalf("expected support; got %v", h.m.view)
	}
	v := h.view()
	for _, want := range []string{"3316-3070", "99637-8231", "Lemarq Software"} {
		if !strings.Contains(v, want) {
			t.Fatalf("support page misses %q:\n%s", want, v)
		}
	}
	h.press(keyEsc)
	if h.m.view != viewMenu {
		t.Fatalf("esc should return to the menu")
	}
}

func TestStateRestoredOnRelaunch(t *testing.T) {
	h := newHarness(t, model.Branch{Code: "1"})
	h.press(keyEnter)
	h.typeText("racao")
	h.clk.Advance(200 * time.Millisecond)
	h.settle()
	if len(h.rowTitles()) != 1 {
		t.Fatalf("expected 1 row for racao; got %v", h.rowTitles())
	}

	h.m.shutdown()
	st, err := h.store.LoadTUIState()
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if st.View != "list" || st.List != listInbound || st.Search[listInbound] != "racao" {
		t.Fatalf("unexpected saved state: %+v", st)
	}

	d := h.start(t)
	if d.m.view != viewList || d.m.search.Value() != "racao" {
		t.Fatalf("expected the inbound list restored with its search; got view %v search %q", d.m.view, d.m.search.Value())
	}
	if n := len(d.m.rows.Items()); n != 1 {
		t.Fatalf("restored search should filter to 1 row; got %d", n)
	}
}

func TestBackFromItemsKeepsParentList(t *testing.T) {
	h := newHarness(t, model.Branch{Code: "1"})
	h.press(keyEnter)
	h.press(keyEnter)
	if h.m.view != viewItems {
		t.Fatalf("expected items")
	}

	h.press(keyEsc)
	if h.m.view != viewList || len(h.rowTitles()) != 3 {
		t.Fatalf("expected the inbound list back with its rows")
	}
	if got := h.fake.Hits("GET /nfentradas/1"); got != 1 {
		t.Fatalf("going back must not refetch the parent; got %d", got)
	}

	// The navigation lock holds until its window passes.
	h.press(keyEnter)
	if h.m.view != viewList {
		t.Fatalf("a second open inside the lock window must be refused")
	}
	h.clk.Advance(800 * time.Millisecond)
	h.press(keyEnter)
	if h.m.view != viewItems {
		t.Fatalf("expected items after the lock window")
	}
}
