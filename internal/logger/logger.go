// Package logger holds the process-wide slog instance. Init runs once at
// startup; everything else reads the configured logger.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/kamaqiyasov/vkinder/internal/config"
)

// Format selects the handler encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config carries the logging knobs from the app config.
type Config struct {
	Level      string
	Format     Format
	Component  string
	WithSource bool
}

var (
	mu     sync.RWMutex
	global *slog.Logger
)

// InitFromConfig configures the global logger from the app config. A nil
// config yields text output at info level.
func InitFromConfig(c *config.Config) {
	if c == nil {
		Init(nil)
		return
	}
	Init(&Config{
		Level:      c.Log.Level,
		Format:     Format(c.Log.Format),
		Component:  c.Log.Component,
		WithSource: c.Log.Source,
	})
}

// Init replaces the global logger. Safe to call again; later calls win.
func Init(c *Config) {
	if c == nil {
		c = &Config{}
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(c.Level),
		AddSource: c.WithSource,
	}

	var h slog.Handler
	switch Format(strings.ToLower(string(c.Format))) {
	case FormatJSON:
		h = slog.NewJSONHandler(os.Stdout, opts)
	default:
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(h)
	if c.Component != "" {
		log = log.With("component", c.Component)
	}

	mu.Lock()
	global = log
	mu.Unlock()
}

// L returns the global logger, initializing a default one on first use.
func L() *slog.Logger {
	mu.RLock()
	log := global
	mu.RUnlock()

	if log == nil {
		Init(nil)
		return L()
	}
	return log
}

// With returns a child of the global logger with extra attributes.
func With(args ...any) *slog.Logger { return L().With(args...) }

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
