// Package export renders lists as spreadsheets and printable conference sheets.
package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"oversee-cli/internal/model"
)

// Table is a header plus rows of cell values (string, float64, int64).
type Table struct {
	Header []string
	Rows   [][]any
}

// Strings renders every cell as text.
func (t Table) Strings() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]string, len(r))
		for i, v := range r {
			row[i] = cellText(v)
		}
		out = append(out, row)
	}
	return out
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return decimal.NewFromFloat(t).StringFixed(2)
	default:
		return fmt.Sprint(t)
	}
}

func dateText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func money(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

func InboundInvoicesTable(rows []model.InboundInvoice) Table {
	t := Table{Header: []string{"Number", "Supplier code", "Supplier", "Issued", "Amount"}}
	for _, n := range rows {
		t.Rows = append(t.Rows, []any{n.Number, n.SupplierCode, n.SupplierName, dateText(n.IssuedAt), money(n.Amount)})
	}
	return t
}

func OutboundInvoicesTable(rows []model.OutboundInvoice) Table {
	t := Table{Header: []string{"Number", "Customer code", "Customer", "Issued", "Shipped", "Amount"}}
	for _, n := range rows {
		shipped := ""
		if n.ShippedAt != nil {
			shipped = dateText(*n.ShippedAt)
		}
		t.Rows = append(t.Rows, []any{n.Number, n.CustomerCode, n.CustomerName, dateText(n.IssuedAt), shipped, money(n.Amount)})
	}
	return t
}

func RequisitionsTable(rows []model.Requisition) Table {
	t := Table{Header: []string{"Number", "Date", "Cost center"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Number, dateText(r.Date), r.CostCenter})
	}
	return t
}

func BranchesTable(rows []model.Branch) Table {
	t := Table{Header: []string{"Code", "Name"}}
	for _, b := range rows {
		t.Rows = append(t.Rows, []any{b.Code, b.Name})
	}
	return t
}

// LineItemsTable includes the checked columns when withCheck is set.
func LineItemsTable(rows []model.LineItem, withCheck bool) Table {
	t := Table{Header: []string{"ID", "Code", "Material", "Barcode", "Quantity"}}
	if withCheck {
		t.Header = append(t.Header, "Checked", "Checked qty")
	}
	for _, it := range rows {
		row := []any{it.ID, it.Code, it.Name, it.Barcode, it.Quantity.InexactFloat64()}
		if withCheck {
			checked := "no"
			if it.Checked {
				checked = "yes"
			}
			row = append(row, checked, it.CheckedQuantity.InexactFloat64())
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
