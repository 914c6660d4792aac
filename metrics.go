package triedb

import "github.com/prometheus/client_golang/prometheus"

var (
	compactionsDesc = prometheus.NewDesc(
		"triedb_compactions_total",
		"Number of compactions started, by input level class.",
		[]string{"db", "level"}, nil,
	)
	compactionSecondsDesc = prometheus.NewDesc(
		"triedb_compaction_seconds_total",
		"Wall time during which at least one compaction was running.",
		[]string{"db"}, nil,
	)
	writeStallsDesc = prometheus.NewDesc(
		"triedb_write_stalls_total",
		"Number of write stalls.",
		[]string{"db"}, nil,
	)
	writeStallSecondsDesc = prometheus.NewDesc(
		"triedb_write_stall_seconds_total",
		"Time spent in write stalls.",
		[]string{"db"}, nil,
	)
	writeStalledDesc = prometheus.NewDesc(
		"triedb_write_stalled",
		"1 while writes are stalled.",
		[]string{"db"}, nil,
	)
)

// Collector exports a database's Stats to prometheus.
type Collector struct {
	db Database
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for db. Register it once per database.
func NewCollector(db Database) *Collector {
	return &Collector{db: db}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- compactionsDesc
	ch <- compactionSecondsDesc
	ch <- writeStallsDesc
	ch <- writeStallSecondsDesc
	ch <- writeStalledDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.db.Stats()
	path := c.db.Path()

	stalled := 0.0
	if s.WriteStalled {
		stalled = 1
	}

	ch <- prometheus.MustNewConstMetric(compactionsDesc, prometheus.CounterValue, float64(s.Level0Compactions), path, "l0")
	ch <- prometheus.MustNewConstMetric(compactionsDesc, prometheus.CounterValue, float64(s.NonLevel0Compactions), path, "other")
	ch <- prometheus.MustNewConstMetric(compactionSecondsDesc, prometheus.CounterValue, s.CompactionTime.Seconds(), path)
	ch <- prometheus.MustNewConstMetric(writeStallsDesc, prometheus.CounterValue, float64(s.WriteStalls), path)
	ch <- prometheus.MustNewConstMetric(writeStallSecondsDesc, prometheus.CounterValue, s.WriteStallTime.Seconds(), path)
	ch <- prometheus.MustNewConstMetric(writeStalledDesc, prometheus.GaugeValue, stalled, path)
}
