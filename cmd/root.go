package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/Layr-Labs/operator-state/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "operator-state",
	Short: "Reconstructs EigenLayer operator state and daily snapshots from indexed events",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)

	rootCmd.PersistentFlags().String(config.DatabaseHost, "localhost", `PostgreSQL host`)
	rootCmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String(config.DatabaseUser, "operator_state", `PostgreSQL username`)
	rootCmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String(config.DatabaseDbName, "operator_state", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String(config.DatabaseSchemaName, "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLMode, "disable", `PostgreSQL SSL mode (disable, require, verify-ca, verify-full)`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLCert, "", `Path to the client SSL certificate`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLKey, "", `Path to the client SSL key`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLRootCert, "", `Path to the SSL root certificate`)

	rootCmd.PersistentFlags().String(config.PipelineName, config.DefaultPipelineName, `Checkpoint key for this pipeline`)
	rootCmd.PersistentFlags().Int(config.PipelineWorkers, 1, `Operators processed in parallel; 1 runs them in order`)
	rootCmd.PersistentFlags().Int(config.PipelineLogProgressEvery, config.DefaultLogProgressEvery, `Log progress every N operators`)
	rootCmd.PersistentFlags().Int(config.PipelineOperatorsChunk, config.DefaultOperatorsChunk, `Operators queued on the worker pool at once`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Float64(config.DataDogStatsdSampleRate, 1.0, `The sample rate to use for statsd metrics`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int(config.PrometheusPort, 2112, `The port to run the prometheus server on`)

	// setup sub commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(changedCmd)
	rootCmd.AddCommand(runDatabaseCmd)
	rootCmd.AddCommand(runVersionCmd)

	// bind any subcommand flags
	runCmd.PersistentFlags().String(config.PipelineCron, "", `Run on this cron schedule (seconds field included) until shutdown, e.g. "0 */15 * * * *"`)

	snapshotCmd.PersistentFlags().String(config.SnapshotDate, "", `Snapshot date, YYYY-MM-DD (required)`)
	snapshotCmd.PersistentFlags().String(config.SnapshotEndDate, "", `Last date of an inclusive range, YYYY-MM-DD`)
	snapshotCmd.PersistentFlags().String(config.SnapshotExportCsv, "", `Write operator daily snapshot rows to this CSV file`)

	rebuildCmd.PersistentFlags().String(config.RebuildOperator, "", `Operator address to rebuild (required)`)
	rebuildCmd.PersistentFlags().Uint64(config.RebuildUpToBlock, 0, `Only use events at or below this block; 0 uses every event`)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}

// bindCommandFlags binds a subcommand's own flags once cobra has parsed them.
func bindCommandFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(config.KebabToSnakeCase(f.Name), f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(f.Name); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}
