package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aburayhan/cargo-erp/internal/ledger"
	"github.com/aburayhan/cargo-erp/internal/persist"
)

// LedgerSource is sampled on every scrape.
type LedgerSource interface {
	Snapshot() []ledger.Shipment
}

// SyncSource reports the state of the debounced ledger save.
type SyncSource interface {
	Status() persist.SyncState
}

var syncStatuses = []persist.Status{persist.StatusLive, persist.StatusOffline, persist.StatusError}

// ledgerCollector exposes ledger totals as gauges computed at scrape time.
type ledgerCollector struct {
	ledger LedgerSource
	sync   SyncSource

	shipments *prometheus.Desc
	batches   *prometheus.Desc
	plannedKg *prometheus.Desc
	arrivedKg *prometheus.Desc
	netProfit *prometheus.Desc
	pending   *prometheus.Desc
	status    *prometheus.Desc
}

func newLedgerCollector(src LedgerSource, saves SyncSource) *ledgerCollector {
	return &ledgerCollector{
		ledger: src,
		sync:   saves,
		shipments: prometheus.NewDesc("cargo_ledger_shipments",
			"Shipments by lifecycle status and archive flag.", []string{"status", "archived"}, nil),
		batches: prometheus.NewDesc("cargo_ledger_batches",
			"Recorded arrival batches on unarchived shipments.", nil, nil),
		plannedKg: prometheus.NewDesc("cargo_ledger_planned_kg",
			"Planned weight on unarchived shipments.", nil, nil),
		arrivedKg: prometheus.NewDesc("cargo_ledger_arrived_kg",
			"Arrived weight on unarchived shipments.", nil, nil),
		netProfit: prometheus.NewDesc("cargo_ledger_net_profit",
			"Sum of batch net profit on unarchived shipments.", nil, nil),
		pending: prometheus.NewDesc("cargo_ledger_sync_pending",
			"1 while a ledger save is scheduled or in flight.", nil, nil),
		status: prometheus.NewDesc("cargo_ledger_sync_status",
			"1 for the outcome of the last ledger save.", []string{"status"}, nil),
	}
}

func (c *ledgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.shipments
	ch <- c.batches
	ch <- c.plannedKg
	ch <- c.arrivedKg
	ch <- c.netProfit
	ch <- c.pending
	ch <- c.status
}

func (c *ledgerCollector) Collect(ch chan<- prometheus.Metric) {
	if c.ledger != nil {
		c.collectLedger(ch)
	}
	if c.sync != nil {
		state := c.sync.Status()
		ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, boolValue(state.Pending))
		for _, s := range syncStatuses {
			ch <- prometheus.MustNewConstMetric(c.status, prometheus.GaugeValue, boolValue(state.Status == s), string(s))
		}
	}
}

type shipmentKey struct {
	status   ledger.Status
	archived bool
}

func (c *ledgerCollector) collectLedger(ch chan<- prometheus.Metric) {
	counts := make(map[shipmentKey]int)
	var batches int
	var planned, arrived, net float64
	for _, s := range c.ledger.Snapshot() {
		counts[shipmentKey{status: s.Status, archived: s.IsArchived}]++
		if s.IsArchived {
			continue
		}
		batches += len(s.Batches)
		planned += s.TotalPlannedKg
		arrived += ledger.ArrivedTotal(s)
		for _, b := range s.Batches {
			net += b.NetProfit
		}
	}
	for key, n := range counts {
		archived := "false"
		if key.archived {
			archived = "true"
		}
		ch <- prometheus.MustNewConstMetric(c.shipments, prometheus.GaugeValue, float64(n), string(key.status), archived)
	}
	ch <- prometheus.MustNewConstMetric(c.batches, prometheus.GaugeValue, float64(batches))
	ch <- prometheus.MustNewConstMetric(c.plannedKg, prometheus.GaugeValue, planned)
	ch <- prometheus.MustNewConstMetric(c.arrivedKg, prometheus.GaugeValue, arrived)
	ch <- prometheus.MustNewConstMetric(c.netProfit, prometheus.GaugeValue, net)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
