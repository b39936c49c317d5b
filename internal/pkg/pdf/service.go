// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

var invoiceTmpl = template.Must(template.New("invoice").Parse(invoiceTemplate))

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	OrderNumber   string
	OrderDate     string
	Status        string
	Currency      string
	Shipping      order.ShippingAddress
	Lines         []InvoiceLine
	ItemCount     int
	Total         string
	Company       config.CompanyConfig
}

// InvoiceLine is one row of the items table with amounts already formatted
type InvoiceLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	Total     string
}

// NewInvoiceData builds the template data for o, dated now
func (s *Service) NewInvoiceData(o *order.Order, now time.Time) InvoiceData {
	lines := make([]InvoiceLine, 0, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		lines = append(lines, InvoiceLine{
			Name:      item.DisplayName(),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice().StringFixed(2),
			Total:     item.LineTotal().StringFixed(2),
		})
	}

	return InvoiceData{
		InvoiceNumber: fmt.Sprintf("INV-%s", o.OrderNumber),
		InvoiceDate:   now.Format("January 2, 2006"),
		OrderNumber:   o.OrderNumber,
		OrderDate:     o.CreatedAt.Format("January 2, 2006"),
		Status:        string(o.Status),
		Currency:      s.config.Store.Currency,
		Shipping:      o.Shipping,
		Lines:         lines,
		ItemCount:     o.ItemCount(),
		Total:         o.TotalAmount.StringFixed(2),
		Company:       s.config.Company,
	}
}

// RenderHTML renders the invoice page for o
func (s *Service) RenderHTML(o *order.Order) ([]byte, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, s.NewInvoiceData(o, time.Now())); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateInvoice generates a PDF invoice for an order. The wkhtmltopdf
// binary must be on PATH.
func (s *Service) GenerateInvoice(o *order.Order) (*bytes.Buffer, error) {
	htmlContent, err := s.RenderHTML(o)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.MarginTop.Set(15)
	pdfg.MarginBottom.Set(15)
	pdfg.Title.Set(fmt.Sprintf("Invoice %s", o.OrderNumber))

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(htmlContent))
	page.FooterCenter.Set("Page [page] of [topage]")
	page.FooterFontSize.Set(8)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// invoiceTemplate is laid out with tables; wkhtmltopdf's WebKit predates flexbox.
const invoiceTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Invoice {{.InvoiceNumber}}</title>
<style>
  body { font-family: "DejaVu Sans", Helvetica, sans-serif; font-size: 12px; color: #1f2937; margin: 0; }
  table { width: 100%; border-collapse: collapse; }
  .masthead td { vertical-align: top; padding-bottom: 16px; }
  .masthead h1 { font-size: 20px; margin: 0 0 4px 0; }
  .masthead .muted { color: #6b7280; line-height: 1.5; }
  .doc-title { font-size: 24px; letter-spacing: 2px; color: #0f766e; text-align: right; }
  .meta td { padding: 3px 0; }
  .meta .key { color: #6b7280; width: 110px; }
  .rule { border-top: 3px solid #0f766e; margin: 12px 0 18px 0; }
  .ship-to { margin-bottom: 18px; }
  .ship-to h2, .lines h2 { font-size: 11px; text-transform: uppercase; color: #6b7280; margin: 0 0 6px 0; }
  .lines th { background: #f0fdfa; border-bottom: 1px solid #99f6e4; padding: 8px 6px; text-align: left; }
  .lines td { border-bottom: 1px solid #e5e7eb; padding: 8px 6px; }
  .num { text-align: right; white-space: nowrap; }
  .grand td { border-top: 2px solid #1f2937; border-bottom: none; font-size: 14px; font-weight: bold; padding-top: 10px; }
  .status { text-transform: capitalize; font-weight: bold; }
  .closing { margin-top: 36px; color: #6b7280; font-size: 10px; }
</style>
</head>
<body>
<table class="masthead">
  <tr>
    <td>
      <h1>{{.Company.Name}}</h1>
      <div class="muted">
        {{if .Company.Address}}{{.Company.Address}}<br>{{end}}
        {{if .Company.Phone}}{{.Company.Phone}}<br>{{end}}
        {{.Company.Email}}{{if .Company.Website}}<br>{{.Company.Website}}{{end}}
      </div>
    </td>
    <td>
      <div class="doc-title">TAX INVOICE</div>
      <table class="meta">
        <tr><td class="key">Invoice no.</td><td class="num">{{.InvoiceNumber}}</td></tr>
        <tr><td class="key">Issued</td><td class="num">{{.InvoiceDate}}</td></tr>
        <tr><td class="key">Order no.</td><td class="num">{{.OrderNumber}}</td></tr>
        <tr><td class="key">Ordered</td><td class="num">{{.OrderDate}}</td></tr>
        <tr><td class="key">Status</td><td class="num status">{{.Status}}</td></tr>
      </table>
    </td>
  </tr>
</table>

<div class="rule"></div>

<div class="ship-to">
  <h2>Deliver to</h2>
  {{.Shipping.Address}}<br>
  {{.Shipping.City}}, {{.Shipping.State}} {{.Shipping.PostalCode}}
</div>

<div class="lines">
  <h2>{{.ItemCount}} unit(s)</h2>
  <table>
    <tr>
      <th>Description</th>
      <th class="num">Unit price ({{.Currency}})</th>
      <th class="num">Quantity</th>
      <th class="num">Amount ({{.Currency}})</th>
    </tr>
    {{range .Lines}}
    <tr>
      <td>{{.Name}}</td>
      <td class="num">{{.UnitPrice}}</td>
      <td class="num">{{.Quantity}}</td>
      <td class="num">{{.Total}}</td>
    </tr>
    {{end}}
    <tr class="grand">
      <td colspan="3" class="num">Amount payable ({{.Currency}})</td>
      <td class="num">{{.Total}}</td>
    </tr>
  </table>
</div>

<div class="closing">
  Goods once delivered are covered by the supplier's return terms.
  Questions about this invoice: {{.Company.Email}}
</div>
</body>
</html>
`
