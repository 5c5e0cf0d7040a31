package receipt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"libraryadmin/internal/student"
)

// Letterhead is the library identity printed on every receipt. Image files are looked up in
// AssetsDir and skipped when missing.
type Letterhead struct {
	Name      string
	Address   string
	Contact   string
	AssetsDir string
}

const (
	logoFile      = "logo.png"
	watermarkFile = "logo11.png"
	signFile      = "sign.png"
)

type rgb struct{ r, g, b int }

var (
	green  = rgb{0x2E, 0x8B, 0x57}
	grey   = rgb{0xCC, 0xCC, 0xCC}
	muted  = rgb{0x55, 0x55, 0x55}
	orange = rgb{0xFF, 0x8C, 0x00}
	shade  = rgb{0xF0, 0xF0, 0xF0}
	black  = rgb{0, 0, 0}
)

// Filename is the attachment name for a receipt.
func Filename(st *student.Student, month string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' {
			return '_'
		}
		return r
	}, st.Name)
	return fmt.Sprintf("receipt_%s_%s.pdf", name, month)
}

// Render writes a Letter-size PDF receipt for a paid fee.
func Render(w io.Writer, lh Letterhead, st *student.Student, fee student.FeeRecord) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(50, 50, 50)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	pdf.SetLineWidth(2)
	setDraw(pdf, green)
	pdf.Rect(20, 20, pageW-40, pageH-40, "D")
	pdf.SetLineWidth(1)
	setDraw(pdf, grey)
	pdf.Rect(30, 30, pageW-60, pageH-60, "D")

	if path, ok := asset(lh.AssetsDir, watermarkFile); ok {
		pdf.SetAlpha(0.1, "Normal")
		pdf.ImageOptions(path, pageW/2-100, pageH/2-100, 120, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
		pdf.SetAlpha(1, "Normal")
	}
	if path, ok := asset(lh.AssetsDir, logoFile); ok {
		pdf.ImageOptions(path, 50, 40, 80, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 20)
	setText(pdf, green)
	pdf.Text(150, 62, lh.Name)
	pdf.SetFont("Helvetica", "", 12)
	setText(pdf, muted)
	pdf.SetXY(150, 70)
	pdf.MultiCell(pageW-200, 15, strings.TrimSpace(lh.Address+"\n"+lh.Contact), "", "L", false)

	pdf.SetFont("Helvetica", "BU", 16)
	setText(pdf, black)
	pdf.SetXY(45, 200)
	pdf.CellFormat(pageW-90, 20, "Fee Receipt", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	setDraw(pdf, black)
	y := 250.0
	row(pdf, y, "Name: "+st.Name, "Father: "+st.FatherName, black, &shade)
	y += 20
	row(pdf, y, "Shift No: "+joinInts(st.ShiftNo), "Serial No: "+strconv.Itoa(st.SerialNo), black, nil)
	y += 20
	row(pdf, y, "Mobile: "+st.Mobile, "Admission: "+indianDate(string(st.AdmissionDate)), black, nil)
	y += 40

	paid := ""
	if fee.PaidOn != nil {
		paid = fee.PaidOn.Format("2/1/2006")
	}
	row(pdf, y, "Month Paid: "+monthName(fee.Month), "Amount: "+strconv.FormatFloat(fee.Amount, 'f', -1, 64), orange, nil)
	y += 20
	row(pdf, y, "Status: Paid", "Date: "+paid, orange, nil)
	y += 60

	if path, ok := asset(lh.AssetsDir, signFile); ok {
		pdf.ImageOptions(path, 400, y-10, 100, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	}
	setText(pdf, black)
	pdf.Text(350, y+65, "Authorized Signature")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return pdf.Output(w)
}

func row(pdf *fpdf.Fpdf, y float64, left, right string, color rgb, bg *rgb) {
	if bg != nil {
		pdf.SetFillColor(bg.r, bg.g, bg.b)
		pdf.Rect(50, y, 500, 20, "FD")
	} else {
		pdf.Rect(50, y, 250, 20, "D")
		pdf.Rect(300, y, 250, 20, "D")
	}
	setText(pdf, color)
	pdf.Text(55, y+14, left)
	pdf.Text(305, y+14, right)
	setText(pdf, black)
}

func setDraw(pdf *fpdf.Fpdf, c rgb) { pdf.SetDrawColor(c.r, c.g, c.b) }
func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }

func asset(dir, name string) (string, bool) {
	if dir == "" {
		return "", false
	}
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}

func indianDate(d string) string {
	t, err := time.Parse("2006-01-02", d)
	if err != nil {
		return d
	}
	return t.Format("2/1/2006")
}

func monthName(month string) string {
	m, err := student.ParseMonth(month)
	if err != nil {
		return month
	}
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}
