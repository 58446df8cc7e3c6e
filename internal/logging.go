package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// NewLogger builds the structured logger for CLI runs. Logs go to w only in
// verbose mode; otherwise everything is discarded and the UIManager owns the terminal.
func NewLogger(config *Config, w io.Writer) *slog.Logger {
	if config == nil || !config.Verbose || w == nil {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(newHandler(w, config.LogFormat, slog.LevelDebug))
}

// NewMCPLogger logs to $XDG_CACHE_HOME/clipscope/mcp.log because stdout carries
// the protocol. The returned closer must be closed when the server stops.
func NewMCPLogger(config *Config) (*slog.Logger, io.Closer, error) {
	if !config.MCPLogEnabled {
		return slog.New(slog.DiscardHandler), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(config.CacheDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(config.CacheDir, "mcp.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", logPath, err)
	}

	logger := slog.New(newHandler(logFile, config.LogFormat, slog.LevelDebug)).With("component", "mcp")
	return logger, logFile, nil
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// componentLogger tags a logger with the component that owns it
func componentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger.With("component", component)
}
