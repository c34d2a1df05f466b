package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeUpdated      = "updated"
	OutcomeScrapeFailed = "scrape_failed"
	OutcomeCommitFailed = "commit_failed"
)

var (
	// LinksReconciled conta links processados por resultado
	LinksReconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpool_links_reconciled_total",
			Help: "Number of monitored links processed, by outcome",
		},
		[]string{"outcome"},
	)

	ProductsUpdated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpool_products_updated_total",
			Help: "Number of product updates staged by reconciliation",
		},
	)

	ProductsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpool_products_skipped_total",
			Help: "Number of products skipped because they could not be loaded",
		},
	)

	PriceHistoryAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpool_price_history_appended_total",
			Help: "Number of price history entries appended",
		},
	)

	// ScrapeDuration mede quanto tempo leva cada scrape
	ScrapeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkpool_scrape_duration_seconds",
			Help:    "Duration of scrape calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	MigratedProducts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpool_migration_products_total",
			Help: "Products visited by the backfill job, by result",
		},
		[]string{"result"},
	)
)

// Init registra as métricas no registry padrão
func Init() {
	prometheus.MustRegister(LinksReconciled, ProductsUpdated, ProductsSkipped, PriceHistoryAppended, ScrapeDuration, MigratedProducts)
}
