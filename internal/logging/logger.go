// Package logging provides categorized logging backed by zap.
// Every category logger is a no-op until Initialize is called, so library
// code and tests stay silent unless a binary opts in.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, configuration load
	CategoryEngine    Category = "engine"    // Grid validation engine
	CategoryLLM       Category = "llm"       // LLM adapter calls
	CategoryRateLimit Category = "ratelimit" // Rate-limit gate decisions
	CategoryStore     Category = "store"     // Persistence
	CategoryAPI       Category = "api"       // HTTP surface
	CategoryConfig    Category = "config"    // Config watcher
)

// Config controls Initialize.
type Config struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	Output     string          // stderr, stdout, or a file path
	Categories map[string]bool // missing entries are enabled
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
)

// Initialize builds the process-wide zap logger from cfg.
func Initialize(cfg Config) error {
	zc := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(defaultString(cfg.Level, "info"))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	out := defaultString(cfg.Output, "stderr")
	zc.OutputPaths = []string{out}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	Use(l, cfg.Categories)
	return nil
}

// Use installs an already built zap logger. Tests use it with zaptest/observer.
func Use(l *zap.Logger, cats map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	categories = cats
	loggers = make(map[Category]*Logger)
}

// Reset restores the no-op logger.
func Reset() {
	Use(zap.NewNop(), nil)
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	l := base
	mu.RUnlock()
	_ = l.Sync()
}

// Zap returns the underlying zap logger for structured call sites.
func Zap() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, ok := categories[string(category)]
	return !ok || enabled
}

// Get returns (or creates) a logger for the given category.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a child logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// BootError logs error to the boot category
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

// Engine logs to the engine category
func Engine(format string, args ...interface{}) { Get(CategoryEngine).Info(format, args...) }

// EngineDebug logs debug to the engine category
func EngineDebug(format string, args ...interface{}) { Get(CategoryEngine).Debug(format, args...) }

// EngineWarn logs warning to the engine category
func EngineWarn(format string, args ...interface{}) { Get(CategoryEngine).Warn(format, args...) }

// LLM logs to the llm category
func LLM(format string, args ...interface{}) { Get(CategoryLLM).Info(format, args...) }

// LLMDebug logs debug to the llm category
func LLMDebug(format string, args ...interface{}) { Get(CategoryLLM).Debug(format, args...) }

// LLMError logs error to the llm category
func LLMError(format string, args ...interface{}) { Get(CategoryLLM).Error(format, args...) }

// RateLimit logs to the ratelimit category
func RateLimit(format string, args ...interface{}) { Get(CategoryRateLimit).Info(format, args...) }

// RateLimitWarn logs warning to the ratelimit category
func RateLimitWarn(format string, args ...interface{}) { Get(CategoryRateLimit).Warn(format, args...) }

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }

// Store logs to the store category
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// API logs to the api category
func API(format string, args ...interface{}) { Get(CategoryAPI).Info(format, args...) }

// APIError logs error to the api category
func APIError(format string, args ...interface{}) { Get(CategoryAPI).Error(format, args...) }

// ConfigInfo logs to the config category
func ConfigInfo(format string, args ...interface{}) { Get(CategoryConfig).Info(format, args...) }

// ConfigWarn logs warning to the config category
func ConfigWarn(format string, args ...interface{}) { Get(CategoryConfig).Warn(format, args...) }

// =============================================================================
// TIMERS
// =============================================================================

// Timer measures an operation and logs its duration when stopped.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}
