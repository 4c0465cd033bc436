package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"cumeal/internal/domain/menu"
)

const (
	dateColWidth = 38.0
	mealColWidth = 38.0
	lineHeight   = 5.0
)

// WeekSheet renders menus as a printable A4 landscape table: one row per
// day, one column per meal. An empty list still produces a page saying so.
func WeekSheet(title string, menus []menu.Record, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("Cumeal Admin", true)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, "Generated "+generated.Format("Monday, January 2, 2006 15:04"))
	pdf.Ln(10)

	rows := datedMenus(menus)
	if len(rows) == 0 {
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 8, "No menus found.")
	} else {
		drawTable(pdf, rows)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawTable(pdf *gofpdf.Fpdf, rows []menu.Record) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(34, 197, 94)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(dateColWidth, 8, "Date", "1", 0, "C", true, 0, "")
	for i, mt := range menu.MealTypes {
		ln := 0
		if i == len(menu.MealTypes)-1 {
			ln = 1
		}
		pdf.CellFormat(mealColWidth*1.5, 8, mt.Label(), "1", ln, "C", true, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)

	left, _, _, _ := pdf.GetMargins()
	pdf.SetFont("Helvetica", "", 9)
	for _, m := range rows {
		cells := []string{latin1(pdf, menu.FormatDisplayDate(m.Date))}
		for _, mt := range menu.MealTypes {
			cells = append(cells, latin1(pdf, strings.ReplaceAll(mealLine(m.Items(mt)), ", ", "\n")))
		}

		height := lineHeight
		for i, c := range cells {
			w := colWidth(i)
			if h := float64(len(pdf.SplitLines([]byte(c), w-2))) * lineHeight; h > height {
				height = h
			}
		}

		x, y := pdf.GetXY()
		for i, c := range cells {
			w := colWidth(i)
			pdf.Rect(x, y, w, height, "D")
			pdf.SetXY(x, y)
			pdf.MultiCell(w, lineHeight, c, "", "L", false)
			x += w
		}
		pdf.SetXY(left, y+height)
	}
}

func colWidth(i int) float64 {
	if i == 0 {
		return dateColWidth
	}
	return mealColWidth * 1.5
}

// latin1 maps text into the core-font code page so accented dish names print.
func latin1(pdf *gofpdf.Fpdf, s string) string {
	return pdf.UnicodeTranslatorFromDescriptor("")(s)
}
