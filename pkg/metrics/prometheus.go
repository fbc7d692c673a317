package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds the Prometheus metrics for one pipeline process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Input quality
	rowsParsed    *prometheus.CounterVec
	malformedRows prometheus.Counter
	scoreRange    prometheus.Counter

	// Aggregation
	duplicateEntries prometheus.Counter
	scoreConflicts   prometheus.Counter

	// Pipeline shape
	candidates      prometheus.Gauge
	units           prometheus.Gauge
	multiMemberUnit prometheus.Gauge

	// Allocation outcome
	placements  *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	diagnostics *prometheus.CounterVec

	// Stage timing
	stageDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "muster",
		subsystem:        "pipeline",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.rowsParsed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rows_parsed_total",
		Help:      "Rows read from input tables, by table",
	}, []string{"table"})

	m.malformedRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "malformed_rows_total",
		Help:      "Rows skipped for missing identity fields",
	})

	m.scoreRange = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_range_errors_total",
		Help:      "Interview records excluded for out-of-range scores",
	})

	m.duplicateEntries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_entries_total",
		Help:      "Same-sheet duplicate interview records dropped",
	})

	m.scoreConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_conflicts_total",
		Help:      "Candidates whose cross-sheet scores disagreed beyond tolerance",
	})

	m.candidates = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "candidates",
		Help:      "Distinct candidates after roster normalization",
	})

	m.units = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "units",
		Help:      "Allocation units after relationship grouping",
	})

	m.multiMemberUnit = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "multi_member_units",
		Help:      "Units with more than one member",
	})

	m.placements = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "placements_total",
		Help:      "Units placed, by pass (designated or ranked)",
	}, []string{"pass"})

	m.rejections = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rejections_total",
		Help:      "Units left unassigned, by reason",
	}, []string{"reason"})

	m.diagnostics = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "diagnostics_total",
		Help:      "Non-fatal issues recovered during the run, by kind",
	}, []string{"kind"})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage_duration_milliseconds",
		Help:      "Pipeline stage wall time in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"stage"})
}

// RecordRowParsed counts one input row from the named table.
func RecordRowParsed(table string) {
	globalManager.rowsParsed.WithLabelValues(table).Inc()
}

// RecordMalformedRow counts one skipped roster row.
func RecordMalformedRow() {
	globalManager.malformedRows.Inc()
}

// RecordScoreRangeError counts one excluded interview record.
func RecordScoreRangeError() {
	globalManager.scoreRange.Inc()
}

// RecordDuplicateEntry counts one dropped same-sheet duplicate.
func RecordDuplicateEntry() {
	globalManager.duplicateEntries.Inc()
}

// RecordScoreConflict counts one conflict-flagged aggregation.
func RecordScoreConflict() {
	globalManager.scoreConflicts.Inc()
}

// UpdateCandidateCount sets the distinct candidate gauge.
func UpdateCandidateCount(count int) {
	globalManager.candidates.Set(float64(count))
}

// UpdateUnitCounts sets the unit gauges.
func UpdateUnitCounts(total, multiMember int) {
	globalManager.units.Set(float64(total))
	globalManager.multiMemberUnit.Set(float64(multiMember))
}

// RecordPlacement counts one placed unit for the given pass.
func RecordPlacement(pass string) {
	globalManager.placements.WithLabelValues(pass).Inc()
}

// RecordRejection counts one unassigned unit for the given reason.
func RecordRejection(reason string) {
	globalManager.rejections.WithLabelValues(reason).Inc()
}

// RecordDiagnostic counts one recovered issue of the given kind.
func RecordDiagnostic(kind string) {
	globalManager.diagnostics.WithLabelValues(kind).Inc()
}

// RecordStageDuration observes one stage's wall time in milliseconds.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// GetRegistry returns the custom registry backing the global manager, for
// exposing a /metrics endpoint or scraping in tests.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
