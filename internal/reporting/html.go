package reporting

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/aburayhan/cargo-erp/web"
)

var printer = message.NewPrinter(language.English)

var batchTemplate = template.Must(template.New("batch.html").Funcs(template.FuncMap{
	"money": func(v float64) string { return printer.Sprintf("%.2f", v) },
	"kg":    func(v float64) string { return printer.Sprintf("%.2f", v) },
	"rate":  func(v float64) string { return printer.Sprintf("%.4f", v) },
	"logo":  func(s string) template.URL { return template.URL(s) },
}).ParseFS(web.Templates, "templates/reports/batch.html"))

// RenderBatchHTML renders the printable report.
func RenderBatchHTML(rep BatchReport) (string, error) {
	var buf bytes.Buffer
	if err := batchTemplate.Execute(&buf, rep); err != nil {
		return "", fmt.Errorf("reporting: render html: %w", err)
	}
	return buf.String(), nil
}

// HTMLRenderer converts HTML into PDF bytes.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// RenderBatchPDF renders the report through an HTML to PDF converter.
func RenderBatchPDF(ctx context.Context, renderer HTMLRenderer, rep BatchReport) ([]byte, error) {
	html, err := RenderBatchHTML(rep)
	if err != nil {
		return nil, err
	}
	pdf, err := renderer.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("reporting: render pdf: %w", err)
	}
	return pdf, nil
}
