package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// SQLModule is the module every GORM log line is written to.
const SQLModule = "auth_sql"

// GormLogger implements gorm's logger.Interface on top of the module loggers.
type GormLogger struct {
	slowThreshold        time.Duration
	logLevel             gormlogger.LogLevel
	enableAudit          bool
	parameterizedQueries bool
}

type GormLoggerConfig struct {
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel
	EnableAudit   bool
	// ParameterizedQueries keeps bind values (password hashes, emails) out of the log.
	ParameterizedQueries bool
}

func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		SlowThreshold:        200 * time.Millisecond,
		LogLevel:             gormlogger.Warn,
		EnableAudit:          false,
		ParameterizedQueries: true,
	}
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{
		slowThreshold:        cfg.SlowThreshold,
		logLevel:             cfg.LogLevel,
		enableAudit:          cfg.EnableAudit,
		parameterizedQueries: cfg.ParameterizedQueries,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Info {
		DebugCtx(ctx, SQLModule, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Warn {
		WarnCtx(ctx, SQLModule, fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Error {
		ErrorCtx(ctx, SQLModule, fmt.Sprintf(msg, data...))
	}
}

// ParamsFilter implements gormlogger.ParamsFilter.
func (l *GormLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.parameterizedQueries {
		return sql, nil
	}
	return sql, params
}

// Trace logs every executed statement: errors, slow queries, then audit.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
	}

	switch {
	case err != nil && l.logLevel >= gormlogger.Error:
		// not-found is ordinary control flow
		if !errors.Is(err, gormlogger.ErrRecordNotFound) {
			fields = append(fields, zap.Error(err))
			ErrorCtx(ctx, SQLModule, "sql error", fields...)
		} else if l.enableAudit {
			DebugCtx(ctx, SQLModule, "sql executed", fields...)
		}

	case l.slowThreshold != 0 && elapsed > l.slowThreshold && l.logLevel >= gormlogger.Warn:
		fields = append(fields, zap.Duration("threshold", l.slowThreshold))
		if elapsed > l.slowThreshold*2 {
			ErrorCtx(ctx, SQLModule, "very slow query", fields...)
		} else {
			WarnCtx(ctx, SQLModule, "slow query", fields...)
		}

	case l.logLevel >= gormlogger.Info && l.enableAudit:
		DebugCtx(ctx, SQLModule, "sql executed", fields...)
	}
}
