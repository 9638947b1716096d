// Package cli holds the operator commands of the cargo binary.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/aburayhan/cargo-erp/internal/ledger"
	"github.com/aburayhan/cargo-erp/internal/persist"
)

// ShipmentLoader reads the persisted ledger.
type ShipmentLoader interface {
	Load(ctx context.Context) ([]ledger.Shipment, persist.Status)
}

// AuditOptions defines the flags of the audit command.
type AuditOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// AuditSummary is the JSON output of the audit command.
type AuditSummary struct {
	OK        bool             `json:"ok"`
	Source    persist.Status   `json:"source"`
	Shipments int              `json:"shipments"`
	Findings  []ledger.Finding `json:"findings"`
}

// AuditCommand loads the ledger and reports inconsistencies. It exits 0 when
// clean, 10 when findings exist and 1 on failure.
func AuditCommand(ctx context.Context, loader ShipmentLoader, opts AuditOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	shipments, status := loader.Load(ctx)
	if status == persist.StatusError {
		_, _ = fmt.Fprintln(opts.Stderr, "audit: ledger could not be loaded from any store")
		return 1
	}
	findings := ledger.Audit(shipments)
	if findings == nil {
		findings = []ledger.Finding{}
	}
	summary := AuditSummary{OK: len(findings) == 0, Source: status, Shipments: len(shipments), Findings: findings}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "audit: encode json: %v\n", err)
			return 1
		}
	} else {
		renderAuditHuman(opts.Stdout, summary)
	}
	if !summary.OK {
		return 10
	}
	return 0
}

func renderAuditHuman(w io.Writer, s AuditSummary) {
	_, _ = fmt.Fprintf(w, "Audited %d shipments (%s)\n", s.Shipments, s.Source)
	if s.OK {
		_, _ = fmt.Fprintln(w, "No inconsistencies found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KIND\tSHIPMENT\tBATCH\tOWNER\tFIELD\tSTORED\tEXPECTED")
	for _, f := range s.Findings {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\t%.2f\n",
			f.Kind, f.ShipmentID, dash(f.BatchID), dash(f.OwnerName), dash(f.Field), f.Stored, f.Expected)
	}
	_ = tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
