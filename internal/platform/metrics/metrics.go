// Package metrics exposes Prometheus collectors for the scraper.
//
// Judge API:
//   - judge_api_requests_total{outcome}: ok, transient, fatal
//   - judge_api_request_duration_seconds
//   - judge_api_retries_total
//
// Scrape:
//   - scrape_pages_total: committed pages
//   - scrape_rows_total{table,kind}: kind is new or updated
//   - scrape_records_skipped_total: malformed records
//   - scrape_renames_total
//   - scrape_watermark_seconds: unix time of the committed watermark
//   - scrape_state: driver state, see StateValue
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JudgeAPIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_api_requests_total",
			Help: "Judge API GET requests by outcome",
		},
		[]string{"outcome"},
	)

	JudgeAPIRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "judge_api_request_duration_seconds",
			Help:    "Judge API request latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	JudgeAPIRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judge_api_retries_total",
			Help: "Judge API request retries after a transient failure",
		},
	)

	ScrapePages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrape_pages_total",
			Help: "Pages committed to the store",
		},
	)

	ScrapeRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_rows_total",
			Help: "Rows written by table and kind (new, updated)",
		},
		[]string{"table", "kind"},
	)

	ScrapeRecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrape_records_skipped_total",
			Help: "Malformed submission records skipped",
		},
	)

	ScrapeRenames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrape_renames_total",
			Help: "Rename edges recorded",
		},
	)

	ScrapeWatermark = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scrape_watermark_seconds",
			Help: "Unix time of the committed watermark",
		},
	)

	ScrapeState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scrape_state",
			Help: "Driver state: 0 idle, 1 fetching, 2 normalizing, 3 committing, 4 done, 5 failed",
		},
	)
)

// RecordRequest records one judge API call.
func RecordRequest(outcome string, d time.Duration) {
	JudgeAPIRequests.WithLabelValues(outcome).Inc()
	JudgeAPIRequestDuration.Observe(d.Seconds())
}

// RecordRows adds one table's new and updated counts.
func RecordRows(table string, inserted, updated int) {
	if inserted > 0 {
		ScrapeRows.WithLabelValues(table, "new").Add(float64(inserted))
	}
	if updated > 0 {
		ScrapeRows.WithLabelValues(table, "updated").Add(float64(updated))
	}
}

func RecordWatermark(t time.Time) {
	if t.IsZero() {
		return
	}
	ScrapeWatermark.Set(float64(t.Unix()))
}
