package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook ingestion metrics
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_webhooks_total",
			Help: "Total number of webhook deliveries received",
		},
		[]string{"status"},
	)

	RecordsStoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sluice_records_stored_total",
			Help: "Total number of records appended to the sheet",
		},
	)

	DuplicatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sluice_duplicates_total",
			Help: "Total number of redelivered messages skipped by dedup",
		},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sluice_ingest_duration_seconds",
			Help:    "Duration of one webhook ingestion in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Storage metrics
	StorageErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sluice_storage_errors_total",
			Help: "Total number of sheet backend errors",
		},
	)

	// Media proxy metrics
	MediaRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_media_requests_total",
			Help: "Total number of media proxy requests",
		},
		[]string{"status"},
	)

	MediaBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sluice_media_bytes_total",
			Help: "Total bytes of media content streamed through the proxy",
		},
	)
)
