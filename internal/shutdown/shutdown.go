package shutdown

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func CreateGracefulShutdownChannel() chan os.Signal {
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGTERM, syscall.SIGINT)

	return gracefulShutdown
}

// ListenForShutdown blocks until SIGTERM/SIGINT, runs signalHandler, waits
// timeToWait for in-flight operators to finish their row loops, then closes done.
func ListenForShutdown(
	signalChan chan os.Signal,
	done chan bool,
	signalHandler func(),
	timeToWait time.Duration,
	l *zap.Logger,
) {
	sig := <-signalChan
	switch sig {
	case syscall.SIGTERM, syscall.SIGINT:
		l.Sugar().Infow("Caught signal, stopping new operator submissions", zap.String("signal", sig.String()))

		signalHandler()

		l.Sugar().Infow("Waiting for in-flight operators", zap.Duration("timeToWait", timeToWait))
		time.Sleep(timeToWait)

		l.Sugar().Infow("Exiting")
		close(done)
	}
}
