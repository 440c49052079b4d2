// Package report renders order invoices and catalog exports.
package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"storefront-api/internal/model"
)

// Invoice renders a single-page PDF for the order. customer may be nil when
// the account was deleted.
func Invoice(o *model.Order, customer *model.User) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+o.ID.Hex(), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Invoice")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	line := func(label, value string) {
		pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}
	line("Order", o.ID.Hex())
	line("Date", o.CreatedAt.Format("2006-01-02"))
	line("Status", string(o.Status))
	line("Payment method", o.PaymentMethod)
	if customer != nil {
		line("Customer", fmt.Sprintf("%s <%s>", customer.Name, customer.Email))
	}
	addr := o.ShippingAddress
	line("Ship to", fmt.Sprintf("%s, %s, %s %s, %s", addr.FullName, addr.Address, addr.City, addr.PostalCode, addr.Country))
	pdf.Ln(6)

	widths := []float64{90, 25, 35, 40}
	pdf.SetFont("Helvetica", "B", 11)
	for i, h := range []string{"Item", "Qty", "Unit price", "Amount"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for _, it := range o.Items {
		pdf.CellFormat(widths[0], 8, it.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 8, fmt.Sprintf("%d", it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 8, money(it.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 8, money(it.Price*float64(it.Quantity)), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	totals := [][2]string{
		{"Items", money(o.ItemsPrice)},
		{"Tax", money(o.TaxPrice)},
		{"Shipping", money(o.ShippingPrice)},
		{"Grand total", money(o.TotalPrice)},
	}
	for i, t := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Helvetica", "B", 12)
		}
		pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, t[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 8, t[1], "", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render invoice")
	}
	return buf.Bytes(), nil
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
