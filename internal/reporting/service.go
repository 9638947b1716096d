package reporting

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/aburayhan/cargo-erp/internal/ledger"
	"github.com/aburayhan/cargo-erp/internal/settings"
)

// ErrRendererUnavailable is returned when PDF rendering is not configured.
var ErrRendererUnavailable = errors.New("reporting: pdf renderer unavailable")

// BatchSource lists and resolves recorded batches.
type BatchSource interface {
	Batches() []ledger.BatchView
	FindBatch(batchID string) (ledger.Shipment, ledger.ArrivalBatch, error)
}

// SettingsSource provides the business profile.
type SettingsSource interface {
	Get() settings.BusinessSettings
}

// Service builds reports from the ledger.
type Service struct {
	batches  BatchSource
	settings SettingsSource
	pdf      HTMLRenderer
}

// NewService builds the service. pdf may be nil.
func NewService(batches BatchSource, settings SettingsSource, pdf HTMLRenderer) *Service {
	return &Service{batches: batches, settings: settings, pdf: pdf}
}

// Batches lists every recorded batch, latest first.
func (s *Service) Batches() []ledger.BatchView {
	return s.batches.Batches()
}

// Report builds the report of a batch.
func (s *Service) Report(batchID string) (BatchReport, error) {
	shipment, batch, err := s.batches.FindBatch(batchID)
	if err != nil {
		return BatchReport{}, err
	}
	return BuildBatchReport(s.settings.Get(), shipment, batch), nil
}

// PDF renders the report of a batch as PDF.
func (s *Service) PDF(ctx context.Context, batchID string) ([]byte, BatchReport, error) {
	rep, err := s.Report(batchID)
	if err != nil {
		return nil, BatchReport{}, err
	}
	if s.pdf == nil {
		return nil, rep, ErrRendererUnavailable
	}
	pdf, err := RenderBatchPDF(ctx, s.pdf, rep)
	if err != nil {
		return nil, rep, err
	}
	return pdf, rep, nil
}

// Filename builds a download name such as
// Financial_Matrix_March_cargo_2024-03-10.pdf.
func Filename(rep BatchReport, ext string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		default:
			return -1
		}
	}, rep.ShipmentName)
	if clean == "" {
		clean = rep.BatchID
	}
	return "Financial_Matrix_" + clean + "_" + rep.BatchDate + "." + ext
}
