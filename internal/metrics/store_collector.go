package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreStatFunc returns local store connection statistics without importing
// database/sql.
type StoreStatFunc func() (open, inUse, idle int)

// storeCollector implements prometheus.Collector for store connection stats.
type storeCollector struct {
	statFunc StoreStatFunc

	openDesc  *prometheus.Desc
	inUseDesc *prometheus.Desc
	idleDesc  *prometheus.Desc
}

// NewStoreCollector creates a collector that exposes store connection gauges.
func NewStoreCollector(statFunc StoreStatFunc) prometheus.Collector {
	return &storeCollector{
		statFunc: statFunc,
		openDesc: prometheus.NewDesc(
			"taskflow_store_open_conns",
			"Number of open connections to the local store.",
			nil, nil,
		),
		inUseDesc: prometheus.NewDesc(
			"taskflow_store_in_use_conns",
			"Number of local store connections in use.",
			nil, nil,
		),
		idleDesc: prometheus.NewDesc(
			"taskflow_store_idle_conns",
			"Number of idle local store connections.",
			nil, nil,
		),
	}
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.openDesc
	ch <- c.inUseDesc
	ch <- c.idleDesc
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	open, inUse, idle := c.statFunc()
	ch <- prometheus.MustNewConstMetric(c.openDesc, prometheus.GaugeValue, float64(open))
	ch <- prometheus.MustNewConstMetric(c.inUseDesc, prometheus.GaugeValue, float64(inUse))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(idle))
}
