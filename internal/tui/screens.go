package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"oversee-cli/internal/listfilter"
	"oversee-cli/internal/listsync"
	"oversee-cli/internal/model"
)

const (
	listBranches     = "branches"
	listInbound      = "inbound"
	listOutbound     = "outbound"
	listRequisitions = "requisitions"
	listItems        = "items"
)

// listScreen is what the app model needs from a searchable remote list,
// whatever its record type.
type listScreen interface {
	name() string
	heading() string
	load(ctx context.Context) tea.Cmd
	refresh(ctx context.Context) tea.Cmd
	typeQuery(raw string)
	// flushQuery applies the typed search without waiting for the debounce.
	flushQuery()
	rawQuery() string
	rows() []list.Item
	snapshot() (state listsync.State, shown, total int, err error)
	busy() bool
	// pick takes the navigation lock and returns the displayed row at i.
	pick(i int) (key, label string, ok bool)
	close()
}

// loadDoneMsg carries the end of a Load or Refresh back to the event loop.
type loadDoneMsg struct {
	screen listScreen
	err    error
}

type docScreen[T listfilter.Searchable] struct {
	id    string
	title string
	scr   *listsync.Screen[T]
	key   func(T) string
	label func(T) string
	line  func(T) string
	done  func(T) bool
}

func newDocScreen[T listfilter.Searchable](id, title string, fetch listsync.FetchFunc[T], opts listsync.ScreenOptions, changed func()) *docScreen[T] {
	s := &docScreen[T]{id: id, title: title, scr: listsync.NewScreen(fetch, opts)}
	s.scr.List.OnChange(func(listsync.Snapshot[T]) { changed() })
	return s
}

func (s *docScreen[T]) name() string    { return s.id }
func (s *docScreen[T]) heading() string { return s.title }

func (s *docScreen[T]) load(ctx context.Context) tea.Cmd {
	return func() tea.Msg { return loadDoneMsg{screen: s, err: s.scr.List.Load(ctx)} }
}

func (s *docScreen[T]) refresh(ctx context.Context) tea.Cmd {
	return func() tea.Msg { return loadDoneMsg{screen: s, err: s.scr.List.Refresh(ctx)} }
}

func (s *docScreen[T]) typeQuery(raw string) { s.scr.Type(raw) }
func (s *docScreen[T]) flushQuery()          { s.scr.Search.Flush() }
func (s *docScreen[T]) rawQuery() string     { return s.scr.Search.Raw() }
func (s *docScreen[T]) busy() bool           { return s.scr.List.Busy() }
func (s *docScreen[T]) close()               { s.scr.Close() }

func (s *docScreen[T]) snapshot() (listsync.State, int, int, error) {
	snap := s.scr.List.Snapshot()
	return snap.State, len(snap.Displayed), snap.Total, snap.Err
}

func (s *docScreen[T]) rows() []list.Item {
	displayed := s.scr.List.Displayed()
	out := make([]list.Item, 0, len(displayed))
	for _, r := range displayed {
		it := row{key: s.key(r), title: s.line(r)}
		if s.done != nil {
			it.done = s.done(r)
		}
		out = append(out, it)
	}
	return out
}

func (s *docScreen[T]) pick(i int) (string, string, bool) {
	displayed := s.scr.List.Displayed()
	if i < 0 || i >= len(displayed) {
		return "", "", false
	}
	if !s.scr.Open() {
		return "", "", false
	}
	r := displayed[i]
	return s.key(r), s.label(r), true
}

var printer = message.NewPrinter(language.BrazilianPortuguese)

func moneyText(d decimal.Decimal) string {
	return "R$ " + decimalText(d, 2)
}

func qtyText(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.String()
	}
	return decimalText(d, 3)
}

// decimalText renders d rounded to places with pt-BR grouping ("15.230,40").
func decimalText(d decimal.Decimal, places int32) string {
	r := d.Round(places)
	whole, frac, _ := strings.Cut(r.Abs().StringFixed(places), ".")
	if w := r.Abs().Truncate(0).BigInt(); w.IsInt64() {
		whole = printer.Sprintf("%d", w.Int64())
	}
	sign := ""
	if r.IsNegative() {
		sign = "-"
	}
	if frac == "" {
		return sign + whole
	}
	return sign + whole + "," + frac
}

func dateText(t time.Time) string {
	if t.IsZero() {
		return "--/--/----"
	}
	return t.Format("02/01/2006")
}

func branchLine(b model.Branch) string {
	return fmt.Sprintf("%-6s %s", b.Code, b.Name)
}

func inboundLine(n model.InboundInvoice) string {
	return fmt.Sprintf("NF %-8s %s  %s (%s)  %s", n.Number, dateText(n.IssuedAt), n.SupplierName, n.SupplierCode, moneyText(n.Amount))
}

func outboundLine(n model.OutboundInvoice) string {
	shipped := ""
	if n.ShippedAt != nil {
		shipped = "  shipped " + dateText(*n.ShippedAt)
	}
	return fmt.Sprintf("NF %-8s %s  %s (%s)  %s%s", n.Number, dateText(n.IssuedAt), n.CustomerName, n.CustomerCode, moneyText(n.Amount), shipped)
}

func requisitionLine(r model.Requisition) string {
	return fmt.Sprintf("Req %-7s %s  %s", r.Number, dateText(r.Date), r.CostCenter)
}

func itemLine(it model.LineItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-8s %s  qty %s", it.Code, it.Name, qtyText(it.Quantity))
	if it.Checked {
		fmt.Fprintf(&b, "  checked %s", qtyText(it.CheckedQuantity))
	}
	if it.Barcode != "" {
		fmt.Fprintf(&b, "  [%s]", it.Barcode)
	}
	return b.String()
}
