package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog API
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieetl_catalog_requests_total",
			Help: "Catalog API requests by endpoint and outcome (ok, status, transport)",
		},
		[]string{"endpoint", "outcome"},
	)

	// Staging store
	StagedDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieetl_staged_documents_total",
			Help: "Documents upserted into the staging store by kind (listing, details, credits)",
		},
		[]string{"kind"},
	)

	// Relational store
	TableRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movieetl_table_rows",
			Help: "Rows written to a table by the last replace",
		},
		[]string{"table"},
	)

	DatasetBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieetl_dataset_download_bytes_total",
			Help: "Bytes downloaded per bulk dataset file",
		},
		[]string{"file"},
	)

	MatchRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movieetl_integration_match_rate",
			Help: "Fraction of movies matched to an external rating in the last integration",
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movieetl_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"stage"},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieetl_pipeline_runs_total",
			Help: "Pipeline runs by result (success, failure)",
		},
		[]string{"result"},
	)
)
