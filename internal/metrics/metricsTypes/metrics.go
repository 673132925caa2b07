package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_RowsFetched         = "rows_fetched"
	Metric_Incr_RowsInserted        = "rows_inserted"
	Metric_Incr_RowsSkipped         = "rows_skipped"
	Metric_Incr_FetchErrors         = "fetch_errors"
	Metric_Incr_OperatorsProcessed  = "operators_processed"
	Metric_Incr_AggregationErrors   = "aggregation_errors"
	Metric_Incr_SnapshotsWritten    = "snapshots_written"
	Metric_Incr_SnapshotsSkipped    = "snapshots_skipped"
	Metric_Gauge_ChangedOperators   = "changed_operators"
	Metric_Gauge_LastProcessedBlock = "last_processed_block"
	Metric_Timing_RunDuration       = "run_duration"
	Metric_Timing_OperatorDuration  = "operator_duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_RowsFetched,
			Labels: []string{"kind"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_RowsInserted,
			Labels: []string{"kind"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_RowsSkipped,
			Labels: []string{"kind", "reason"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_FetchErrors,
			Labels: []string{"kind"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_OperatorsProcessed,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_AggregationErrors,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_SnapshotsWritten,
			Labels: []string{"kind"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_SnapshotsSkipped,
			Labels: []string{"kind"},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_ChangedOperators,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_LastProcessedBlock,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name:   Metric_Timing_RunDuration,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Timing_OperatorDuration,
			Labels: []string{},
		},
	},
}
