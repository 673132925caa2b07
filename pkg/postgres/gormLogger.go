package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm's SQL trace through zap at debug level. Record-not-found
// is not reported as an error.
type GormLogger struct {
	logger *zap.Logger
}

func NewGormLogger(l *zap.Logger) *GormLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &GormLogger{logger: l.WithOptions(zap.AddCallerSkip(3))}
}

func (g *GormLogger) LogMode(gormLogger.LogLevel) gormLogger.Interface {
	return g
}

func (g *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	g.logger.Sugar().Debugf(msg, args...)
}

func (g *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	g.logger.Sugar().Warnf(msg, args...)
}

func (g *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	g.logger.Sugar().Errorf(msg, args...)
}

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if !g.logger.Core().Enabled(zap.DebugLevel) && (err == nil || errors.Is(err, gorm.ErrRecordNotFound)) {
		return
	}
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", time.Since(begin)),
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		g.logger.Debug("Query failed", append(fields, zap.Error(err))...)
		return
	}
	g.logger.Debug("Query", fields...)
}
