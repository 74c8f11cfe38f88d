package export

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"

	"oversee-cli/internal/model"
)

// Sheet is a printable conference sheet for one document.
type Sheet struct {
	Title     string
	Subtitle  string
	PrintedAt time.Time
	Items     []model.LineItem
}

// CheckingSheetPDF renders one row per item with a box to tick, and a Code128
// barcode for items that have one.
func CheckingSheetPDF(w io.Writer, sheet Sheet) error {
	if len(sheet.Items) == 0 {
		return fmt.Errorf("no items to print")
	}
	printedAt := sheet.PrintedAt
	if printedAt.IsZero() {
		printedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(sheet.Title, true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(sheet.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	if s := strings.TrimSpace(sheet.Subtitle); s != "" {
		pdf.CellFormat(0, 6, tr(s), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Printed: "+printedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(8, 7, "", "B", 0, "C", false, 0, "")
		pdf.CellFormat(22, 7, "Code", "B", 0, "L", false, 0, "")
		pdf.CellFormat(70, 7, "Material", "B", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, "Qty", "B", 0, "R", false, 0, "")
		pdf.CellFormat(0, 7, "Barcode", "B", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
	header()

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, it := range sheet.Items {
		rowH := 8.0
		code := strings.TrimSpace(it.Barcode)
		var img []byte
		if code != "" {
			b, err := renderCode128PNG(code, 600, 120)
			if err != nil {
				return fmt.Errorf("barcode for item %d: %w", it.ID, err)
			}
			img = b
			rowH = 18
		}
		if pdf.GetY()+rowH > pageH-bottom {
			pdf.AddPage()
			header()
		}

		x, y := pdf.GetX(), pdf.GetY()
		box := "[ ]"
		if it.Checked {
			box = "[x]"
		}
		pdf.CellFormat(8, rowH, box, "", 0, "C", false, 0, "")
		pdf.CellFormat(22, rowH, tr(it.Code), "", 0, "L", false, 0, "")
		pdf.CellFormat(70, rowH, tr(truncate(it.Name, 40)), "", 0, "L", false, 0, "")
		pdf.CellFormat(20, rowH, it.Quantity.String(), "", 0, "R", false, 0, "")
		if img != nil {
			name := fmt.Sprintf("item-barcode-%d", it.ID)
			pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(img))
			pdf.ImageOptions(name, x+124, y+1, 56, 11, false, opt, 0, "")
			pdf.SetFont("Helvetica", "", 7)
			pdf.Text(x+124, y+rowH-1.5, code)
			pdf.SetFont("Helvetica", "", 10)
		}
		pdf.SetXY(x, y+rowH)
		pdf.Line(x, y+rowH, x+180, y+rowH)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := png.Encode(&out, toNRGBA(scaled)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}
