package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Tabular is implemented by payloads that can also be shown as a table.
type Tabular interface {
	TableHeader() []string
	TableRows() [][]string
}

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - table (payloads implementing Tabular; others fall back to pretty JSON)
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "table":
		t, ok := v.(Tabular)
		if !ok {
			return WriteJSON(w, v, true)
		}
		return WriteTable(w, t)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// WriteTable renders t with a rounded border.
func WriteTable(w io.Writer, t Tabular) error {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(t.TableHeader()...).
		Rows(t.TableRows()...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}

// Output is the envelope list commands write: {"data": ..., "meta": ...}.
// Header and Rows only feed the table format.
type Output struct {
	Data   any            `json:"data"`
	Meta   map[string]any `json:"meta,omitempty"`
	Header []string       `json:"-"`
	Rows   [][]string     `json:"-"`
}

func (o Output) TableHeader() []string { return o.Header }
func (o Output) TableRows() [][]string { return o.Rows }
