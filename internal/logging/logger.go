package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger interface defines the common logging methods.
// It is implemented by the stdout JSON logger and the OTLP-backed logger.
type Logger interface {
	WithService(serviceName string) *slog.Logger
	WithComponent(componentName string) *slog.Logger
	WithOperation(operationName string) *slog.Logger
	WithRequestID(requestID string) *slog.Logger
	WithUserID(userID string) *slog.Logger
	WithProject(projectID string) *slog.Logger
	WithFunnel(funnelID string) *slog.Logger
	WithError(err error) *slog.Logger
	WithMetrics(metrics map[string]interface{}) *slog.Logger
	LogStartup(serviceName string, version string, port int)
	LogShutdown(serviceName string, reason string)
	LogCacheOperation(operation string, key string, hit bool, duration int64)
	LogDatabaseOperation(operation string, table string, duration int64, rowsAffected int64)
	LogAPIRequest(method string, path string, statusCode int, duration int64, userID string)
	LogBusinessEvent(eventType string, details map[string]interface{})
	LogDataAccess(projectID string, operation string, source string, purpose string, success bool)
	Logger() *slog.Logger
}

// StandardLogger provides a standardized logging interface
type StandardLogger struct {
	logger Logger
}

// NewStandardLogger creates a JSON logger writing to stdout.
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	return NewStandardLoggerWithWriter(os.Stdout, logLevel, environment)
}

// NewStandardLoggerWithWriter creates a JSON logger writing to w.
func NewStandardLoggerWithWriter(w io.Writer, logLevel string, environment string) *StandardLogger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: getSlogLevel(logLevel),
	})).With("environment", environment)

	return &StandardLogger{logger: &slogAdapter{logger: logger}}
}

// NewStandardOTLPLogger creates a logger that exports through OTLP, falling
// back to stdout JSON when the exporter cannot be built.
func NewStandardOTLPLogger(config OTLPConfig) *StandardLogger {
	otlpLogger, err := NewOTLPLogger(config)
	if err != nil {
		basic := slog.New(slog.NewJSONHandler(config.fallback(), &slog.HandlerOptions{
			Level: getSlogLevel(config.LogLevel),
		}))
		basic.Warn("OTLP logger unavailable, using stdout", "error", err.Error())
		return &StandardLogger{logger: &slogAdapter{logger: basic}}
	}
	return &StandardLogger{logger: &slogAdapter{logger: otlpLogger.Logger(), closer: otlpLogger}}
}

func (l *StandardLogger) WithService(serviceName string) *slog.Logger {
	return l.logger.WithService(serviceName)
}

func (l *StandardLogger) WithComponent(componentName string) *slog.Logger {
	return l.logger.WithComponent(componentName)
}

func (l *StandardLogger) WithOperation(operationName string) *slog.Logger {
	return l.logger.WithOperation(operationName)
}

func (l *StandardLogger) WithRequestID(requestID string) *slog.Logger {
	return l.logger.WithRequestID(requestID)
}

func (l *StandardLogger) WithUserID(userID string) *slog.Logger {
	return l.logger.WithUserID(userID)
}

// WithProject creates a logger scoped to a project
func (l *StandardLogger) WithProject(projectID string) *slog.Logger {
	return l.logger.WithProject(projectID)
}

// WithFunnel creates a logger scoped to a funnel
func (l *StandardLogger) WithFunnel(funnelID string) *slog.Logger {
	return l.logger.WithFunnel(funnelID)
}

func (l *StandardLogger) WithError(err error) *slog.Logger {
	return l.logger.WithError(err)
}

func (l *StandardLogger) WithMetrics(metrics map[string]interface{}) *slog.Logger {
	return l.logger.WithMetrics(metrics)
}

func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.LogStartup(serviceName, version, port)
}

func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.LogShutdown(serviceName, reason)
}

func (l *StandardLogger) LogCacheOperation(operation string, key string, hit bool, duration int64) {
	l.logger.LogCacheOperation(operation, key, hit, duration)
}

func (l *StandardLogger) LogDatabaseOperation(operation string, table string, duration int64, rowsAffected int64) {
	l.logger.LogDatabaseOperation(operation, table, duration, rowsAffected)
}

func (l *StandardLogger) LogAPIRequest(method string, path string, statusCode int, duration int64, userID string) {
	l.logger.LogAPIRequest(method, path, statusCode, duration, userID)
}

func (l *StandardLogger) LogBusinessEvent(eventType string, details map[string]interface{}) {
	l.logger.LogBusinessEvent(eventType, details)
}

// LogDataAccess records who read which financial source and why.
func (l *StandardLogger) LogDataAccess(projectID string, operation string, source string, purpose string, success bool) {
	l.logger.LogDataAccess(projectID, operation, source, purpose, success)
}

// Logger returns the underlying *slog.Logger
func (l *StandardLogger) Logger() *slog.Logger {
	return l.logger.Logger()
}

// Shutdown flushes the OTLP exporter when one is attached.
func (l *StandardLogger) Shutdown(ctx context.Context) error {
	if a, ok := l.logger.(*slogAdapter); ok && a.closer != nil {
		return a.closer.Shutdown(ctx)
	}
	return nil
}

// getSlogLevel converts string level to slog.Level
func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogrusLogger builds the JSON logrus logger used by connection code.
func NewLogrusLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(ParseLogrusLevel(level))
	l.SetOutput(os.Stdout)
	return l
}

// slogAdapter implements Logger on top of a *slog.Logger.
type slogAdapter struct {
	logger *slog.Logger
	closer *OTLPLogger
}

func (s *slogAdapter) WithService(serviceName string) *slog.Logger {
	return s.logger.With("service", serviceName)
}

func (s *slogAdapter) WithComponent(componentName string) *slog.Logger {
	return s.logger.With("component", componentName)
}

func (s *slogAdapter) WithOperation(operationName string) *slog.Logger {
	return s.logger.With("operation", operationName)
}

func (s *slogAdapter) WithRequestID(requestID string) *slog.Logger {
	return s.logger.With("request_id", requestID)
}

func (s *slogAdapter) WithUserID(userID string) *slog.Logger {
	return s.logger.With("user_id", userID)
}

func (s *slogAdapter) WithProject(projectID string) *slog.Logger {
	return s.logger.With("project_id", projectID)
}

func (s *slogAdapter) WithFunnel(funnelID string) *slog.Logger {
	return s.logger.With("funnel_id", funnelID)
}

func (s *slogAdapter) WithError(err error) *slog.Logger {
	if err == nil {
		return s.logger
	}
	return s.logger.With("error", err.Error())
}

func (s *slogAdapter) WithMetrics(metrics map[string]interface{}) *slog.Logger {
	return s.logger.With("metrics", metrics)
}

func (s *slogAdapter) LogStartup(serviceName string, version string, port int) {
	s.logger.Info("Application startup",
		"service", serviceName,
		"version", version,
		"port", port,
		"event", "startup",
	)
}

func (s *slogAdapter) LogShutdown(serviceName string, reason string) {
	s.logger.Info("Application shutdown",
		"service", serviceName,
		"reason", reason,
		"event", "shutdown",
	)
}

func (s *slogAdapter) LogCacheOperation(operation string, key string, hit bool, duration int64) {
	s.logger.Debug("Cache operation",
		"operation", operation,
		"key", key,
		"hit", hit,
		"duration_ms", duration,
		"event", "cache",
	)
}

func (s *slogAdapter) LogDatabaseOperation(operation string, table string, duration int64, rowsAffected int64) {
	s.logger.Debug("Database operation",
		"operation", operation,
		"table", table,
		"duration_ms", duration,
		"rows_affected", rowsAffected,
		"event", "database",
	)
}

func (s *slogAdapter) LogAPIRequest(method string, path string, statusCode int, duration int64, userID string) {
	s.logger.Info("API request",
		"method", method,
		"path", path,
		"status", statusCode,
		"duration_ms", duration,
		"user_id", userID,
		"event", "api",
	)
}

func (s *slogAdapter) LogBusinessEvent(eventType string, details map[string]interface{}) {
	s.logger.Info("Business event",
		"event_type", eventType,
		"details", details,
		"event", "business",
	)
}

func (s *slogAdapter) LogDataAccess(projectID string, operation string, source string, purpose string, success bool) {
	s.logger.Info("Financial data access",
		"project_id", projectID,
		"operation", operation,
		"source", source,
		"purpose", purpose,
		"success", success,
		"event", "data_access",
	)
}

func (s *slogAdapter) Logger() *slog.Logger {
	return s.logger
}
