// Package logger configures the process-wide slog logger. Output is JSON on
// stdout, or an OpenTelemetry log exporter when OTEL_ENABLED=true. Warnings and
// errors are sampled; the counters behind them are not.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelError   = slog.LevelError
	LevelFatal   = slog.Level(12)
)

var (
	Logger       *slog.Logger
	sampleRate   atomic.Int32
	programLevel = new(slog.LevelVar)
	output       io.Writer = os.Stdout
	shutdownFunc func(context.Context) error
)

// Counters are incremented regardless of sampling.
var (
	TotalErrors          atomic.Int64
	TotalWarnings        atomic.Int64
	TotalRuns            atomic.Int64
	FailedRuns           atomic.Int64
	DuplicateAnswers     atomic.Int64
	OutOfDomainResponses atomic.Int64
	DerivationFailures   atomic.Int64
	Total4xxErrors       atomic.Int64
	Total5xxErrors       atomic.Int64
)

// Options controls Setup.
type Options struct {
	Level       slog.Level
	SampleRate  int
	OTELEnabled bool
	ServiceName string
	// Output receives JSON records; nil keeps the current writer (stdout).
	Output io.Writer
}

// OptionsFromEnv reads LOG_LEVEL, ERROR_SAMPLE_RATE, OTEL_ENABLED and
// OTEL_SERVICE_NAME.
func OptionsFromEnv() Options {
	opts := Options{
		Level:       LevelInfo,
		SampleRate:  1,
		ServiceName: os.Getenv("OTEL_SERVICE_NAME"),
	}

	if level, err := ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		opts.Level = level
	}
	if s := os.Getenv("ERROR_SAMPLE_RATE"); s != "" {
		if rate, err := strconv.Atoi(s); err == nil && rate > 0 {
			opts.SampleRate = rate
		}
	}
	opts.OTELEnabled = strings.ToLower(os.Getenv("OTEL_ENABLED")) == "true"
	if opts.ServiceName == "" {
		opts.ServiceName = "pulldown"
	}
	return opts
}

func init() {
	programLevel.Set(LevelInfo)
	sampleRate.Store(1)
	setupJSONLogging()
}

// Setup installs the logger described by opts as the slog default. If the
// OTEL exporter cannot be created it falls back to JSON and returns the error.
func Setup(ctx context.Context, opts Options) error {
	programLevel.Set(opts.Level)
	if opts.SampleRate > 0 {
		sampleRate.Store(int32(opts.SampleRate))
	}
	if opts.Output != nil {
		output = opts.Output
	}

	if !opts.OTELEnabled {
		setupJSONLogging()
		return nil
	}

	shutdown, err := setupOTELLogging(ctx, opts.ServiceName)
	if err != nil {
		setupJSONLogging()
		return fmt.Errorf("otel logging unavailable, using JSON: %w", err)
	}
	shutdownFunc = shutdown
	return nil
}

// SetOutput redirects JSON logging, e.g. to stderr when stdout carries data.
func SetOutput(w io.Writer) {
	output = w
	setupJSONLogging()
}

func setupJSONLogging() {
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: programLevel})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func setupOTELLogging(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	handler := &levelHandler{
		level:   programLevel,
		handler: otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(provider)),
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)

	return provider.Shutdown, nil
}

// levelHandler filters records below level before handing them on
type levelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}

// Shutdown flushes the OTEL exporter, if any
func Shutdown(ctx context.Context) error {
	if shutdownFunc != nil {
		return shutdownFunc(ctx)
	}
	return nil
}

// SetLevel sets the minimum log level
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// GetLevel returns the minimum log level
func GetLevel() slog.Level {
	return programLevel.Level()
}

// ParseLevel converts a level name to slog.Level. Empty is INFO.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

func shouldSample() bool {
	rate := sampleRate.Load()
	if rate <= 1 {
		return true
	}
	return rand.Intn(int(rate)) == 0
}

func Trace(msg string, args ...any) {
	Logger.Log(context.Background(), LevelTrace, msg, args...)
}

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn is sampled
func Warn(msg string, args ...any) {
	TotalWarnings.Add(1)
	if shouldSample() {
		Logger.Warn(msg, args...)
	}
}

// Error is sampled
func Error(msg string, args ...any) {
	TotalErrors.Add(1)
	if shouldSample() {
		Logger.Error(msg, args...)
	}
}

// Fatal logs, flushes the exporter and exits
func Fatal(msg string, args ...any) {
	Logger.Log(context.Background(), LevelFatal, msg, args...)
	if shutdownFunc != nil {
		_ = shutdownFunc(context.Background())
	}
	os.Exit(1)
}
