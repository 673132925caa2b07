package cmd

import (
	"context"
	"time"

	"github.com/Layr-Labs/operator-state/internal/config"
	"github.com/Layr-Labs/operator-state/internal/logger"
	"github.com/Layr-Labs/operator-state/internal/metrics/prometheus"
	"github.com/Layr-Labs/operator-state/internal/shutdown"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one incremental pass, or keep running on a cron schedule",
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		e, err := newEngine(cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup engine", zap.Error(err))
		}
		defer e.close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if cfg.PipelineConfig.Cron == "" {
			if _, err := e.pipeline.Run(ctx); err != nil {
				l.Sugar().Fatalw("Pipeline run failed", zap.Error(err))
			}
			return
		}

		promChannel := make(chan bool)
		if cfg.PrometheusConfig.Enabled {
			server := prometheus.NewPrometheusServer(&prometheus.PrometheusServerConfig{
				Port: cfg.PrometheusConfig.Port,
			}, l)
			if err := server.Start(promChannel); err != nil {
				l.Sugar().Fatalw("Failed to start prometheus server", zap.Error(err))
			}
		}

		cronLogger := cron.VerbosePrintfLogger(zap.NewStdLog(l))
		scheduler := cron.New(cron.WithSeconds(), cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		))
		_, err = scheduler.AddFunc(cfg.PipelineConfig.Cron, func() {
			if _, err := e.pipeline.Run(ctx); err != nil {
				l.Sugar().Errorw("Scheduled pipeline run failed", zap.Error(err))
			}
		})
		if err != nil {
			l.Sugar().Fatalw("Invalid cron schedule", zap.Error(err), zap.String("cron", cfg.PipelineConfig.Cron))
		}
		scheduler.Start()
		l.Sugar().Infow("Started scheduled pipeline", zap.String("cron", cfg.PipelineConfig.Cron))

		gracefulShutdown := shutdown.CreateGracefulShutdownChannel()

		done := make(chan bool)
		go shutdown.ListenForShutdown(gracefulShutdown, done, func() {
			l.Sugar().Info("Shutting down...")
			cancel()
			<-scheduler.Stop().Done()
			if cfg.PrometheusConfig.Enabled {
				promChannel <- true
			}
		}, time.Second*5, l)
		<-done
	},
}
