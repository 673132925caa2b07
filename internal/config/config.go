package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "OPERATOR_STATE"

const (
	Debug = "debug"

	DatabaseHost        = "database.host"
	DatabasePort        = "database.port"
	DatabaseUser        = "database.user"
	DatabasePassword    = "database.password"
	DatabaseDbName      = "database.db-name"
	DatabaseSchemaName  = "database.schema-name"
	DatabaseSSLMode     = "database.ssl-mode"
	DatabaseSSLCert     = "database.ssl-cert"
	DatabaseSSLKey      = "database.ssl-key"
	DatabaseSSLRootCert = "database.ssl-root-cert"

	PipelineName             = "pipeline.name"
	PipelineWorkers          = "pipeline.workers"
	PipelineLogProgressEvery = "pipeline.log-progress-every"
	PipelineCron             = "pipeline.cron"
	PipelineOperatorsChunk   = "pipeline.operators-chunk-size"

	SnapshotDate      = "snapshot.date"
	SnapshotEndDate   = "snapshot.end-date"
	SnapshotExportCsv = "snapshot.export-csv"

	RebuildOperator  = "rebuild.operator"
	RebuildUpToBlock = "rebuild.up-to-block"

	DataDogStatsdEnabled    = "datadog.statsd.enabled"
	DataDogStatsdUrl        = "datadog.statsd.url"
	DataDogStatsdSampleRate = "datadog.statsd.sample-rate"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"
)

const (
	DefaultPipelineName     = "operator_state"
	DefaultLogProgressEvery = 100
	DefaultOperatorsChunk   = 500
	SnapshotDateFormat      = "2006-01-02"
)

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DbName      string
	SchemaName  string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

type PipelineConfig struct {
	Name             string
	Workers          int
	LogProgressEvery int
	Cron             string

	// OperatorsChunkSize bounds how many operators are queued on the pool at once.
	OperatorsChunkSize int
}

type SnapshotConfig struct {
	Date      string
	EndDate   string
	ExportCsv string
}

type RebuildConfig struct {
	Operator  string
	UpToBlock uint64
}

type StatsdConfig struct {
	Enabled    bool
	Url        string
	SampleRate float64
}

type DataDogConfig struct {
	StatsdConfig StatsdConfig
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type Config struct {
	Debug            bool
	DatabaseConfig   DatabaseConfig
	PipelineConfig   PipelineConfig
	SnapshotConfig   SnapshotConfig
	RebuildConfig    RebuildConfig
	DataDogConfig    DataDogConfig
	PrometheusConfig PrometheusConfig
}

func NewConfig() *Config {
	return &Config{
		Debug: viper.GetBool(normalizeFlagName(Debug)),

		DatabaseConfig: DatabaseConfig{
			Host:        viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:        viper.GetInt(normalizeFlagName(DatabasePort)),
			User:        viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:    viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:      viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName:  viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			SSLMode:     viper.GetString(normalizeFlagName(DatabaseSSLMode)),
			SSLCert:     viper.GetString(normalizeFlagName(DatabaseSSLCert)),
			SSLKey:      viper.GetString(normalizeFlagName(DatabaseSSLKey)),
			SSLRootCert: viper.GetString(normalizeFlagName(DatabaseSSLRootCert)),
		},

		PipelineConfig: PipelineConfig{
			Name:             viper.GetString(normalizeFlagName(PipelineName)),
			Workers:          viper.GetInt(normalizeFlagName(PipelineWorkers)),
			LogProgressEvery: viper.GetInt(normalizeFlagName(PipelineLogProgressEvery)),
			Cron:             viper.GetString(normalizeFlagName(PipelineCron)),

			OperatorsChunkSize: viper.GetInt(normalizeFlagName(PipelineOperatorsChunk)),
		},

		SnapshotConfig: SnapshotConfig{
			Date:      viper.GetString(normalizeFlagName(SnapshotDate)),
			EndDate:   viper.GetString(normalizeFlagName(SnapshotEndDate)),
			ExportCsv: viper.GetString(normalizeFlagName(SnapshotExportCsv)),
		},

		RebuildConfig: RebuildConfig{
			Operator:  strings.ToLower(viper.GetString(normalizeFlagName(RebuildOperator))),
			UpToBlock: viper.GetUint64(normalizeFlagName(RebuildUpToBlock)),
		},

		DataDogConfig: DataDogConfig{
			StatsdConfig: StatsdConfig{
				Enabled:    viper.GetBool(normalizeFlagName(DataDogStatsdEnabled)),
				Url:        viper.GetString(normalizeFlagName(DataDogStatsdUrl)),
				SampleRate: viper.GetFloat64(normalizeFlagName(DataDogStatsdSampleRate)),
			},
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Port:    viper.GetInt(normalizeFlagName(PrometheusPort)),
		},
	}
}

// GetPipelineName falls back to the default pipeline name so that checkpoints
// written without configuration still land on a stable key.
func (c *Config) GetPipelineName() string {
	if c.PipelineConfig.Name == "" {
		return DefaultPipelineName
	}
	return c.PipelineConfig.Name
}

func (c *Config) GetLogProgressEvery() int {
	if c.PipelineConfig.LogProgressEvery <= 0 {
		return DefaultLogProgressEvery
	}
	return c.PipelineConfig.LogProgressEvery
}

func (c *Config) GetOperatorsChunkSize() int {
	if c.PipelineConfig.OperatorsChunkSize <= 0 {
		return DefaultOperatorsChunk
	}
	return c.PipelineConfig.OperatorsChunkSize
}

// GetSnapshotDates expands the configured snapshot date (and optional end date)
// into the inclusive list of UTC calendar days to materialize.
func (c *Config) GetSnapshotDates() ([]time.Time, error) {
	if c.SnapshotConfig.Date == "" {
		return nil, errors.New("snapshot date is required")
	}
	start, err := ParseSnapshotDate(c.SnapshotConfig.Date)
	if err != nil {
		return nil, err
	}
	end := start
	if c.SnapshotConfig.EndDate != "" {
		end, err = ParseSnapshotDate(c.SnapshotConfig.EndDate)
		if err != nil {
			return nil, err
		}
	}
	if end.Before(start) {
		return nil, errors.New("snapshot end date must not be before the start date")
	}

	dates := make([]time.Time, 0)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}

func ParseSnapshotDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(SnapshotDateFormat, date, time.UTC)
	if err != nil {
		return time.Time{}, errors.New("invalid snapshot date, expected YYYY-MM-DD")
	}
	return t, nil
}

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}
