package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogLoads tracks channel list loads by result (success, fetch_error, parse_error)
	CatalogLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octonet_catalog_loads_total",
		Help: "Total number of channel list loads",
	}, []string{"result"})

	// CatalogLoadDuration tracks how long fetching and parsing the channel list took
	CatalogLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "octonet_catalog_load_duration_seconds",
		Help:    "Duration of channel list loads",
		Buckets: prometheus.DefBuckets,
	})

	// CatalogChannels tracks the number of loaded channels per kind (tv, radio)
	CatalogChannels = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "octonet_catalog_channels",
		Help: "Number of channels in the catalog",
	}, []string{"kind"})

	// CatalogGroups tracks the number of loaded groups per kind (tv, radio)
	CatalogGroups = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "octonet_catalog_groups",
		Help: "Number of channel groups in the catalog",
	}, []string{"kind"})

	// HostTransfers tracks records handed to the host by record type
	HostTransfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "octonet_host_transfers_total",
		Help: "Total number of records transferred to the host",
	}, []string{"record"})
)

// RecordLoad records the outcome and duration of a channel list load
func RecordLoad(result string, elapsed time.Duration) {
	CatalogLoads.WithLabelValues(result).Inc()
	CatalogLoadDuration.Observe(elapsed.Seconds())
}

// SetCatalogSize sets the channel and group gauges
func SetCatalogSize(tvChannels, radioChannels, tvGroups, radioGroups int) {
	CatalogChannels.WithLabelValues("tv").Set(float64(tvChannels))
	CatalogChannels.WithLabelValues("radio").Set(float64(radioChannels))
	CatalogGroups.WithLabelValues("tv").Set(float64(tvGroups))
	CatalogGroups.WithLabelValues("radio").Set(float64(radioGroups))
}

// RecordTransfers adds n transferred records of the given type
func RecordTransfers(record string, n int) {
	if n > 0 {
		HostTransfers.WithLabelValues(record).Add(float64(n))
	}
}
