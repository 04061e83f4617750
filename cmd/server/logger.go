package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// colorHandler renders slog records as compact colored lines on the console.
type colorHandler struct {
	logger *log.Logger
	level  slog.Level
	attrs  []slog.Attr
	group  string
	lock   *sync.Mutex
}

func newColorHandler(logger *log.Logger, level slog.Level) *colorHandler {
	return &colorHandler{
		logger: logger,
		level:  level,
		lock:   &sync.Mutex{},
	}
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	level := r.Level.String() + ":"
	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	h.logger.Println(r.Time.Format("[15:04:05.000]"), level, color.CyanString(r.Message))

	for _, attr := range h.attrs {
		h.logger.Printf("  %s=%s\n", color.YellowString(h.group+attr.Key), color.WhiteString("%v", attr.Value.Any()))
	}
	r.Attrs(func(a slog.Attr) bool {
		h.logger.Printf("  %s=%s\n", color.YellowString(h.group+a.Key), color.WhiteString("%v", a.Value.Any()))
		return true
	})

	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// slogAdapter exposes a *slog.Logger through the printf-style Logger
// interface the emailchange handlers expect.
type slogAdapter struct {
	s *slog.Logger
}

func (l slogAdapter) Debug(format string, args ...any) {
	l.s.Debug(fmt.Sprintf(format, args...))
}

func (l slogAdapter) Info(format string, args ...any) {
	l.s.Info(fmt.Sprintf(format, args...))
}

func (l slogAdapter) Error(format string, args ...any) {
	l.s.Error(fmt.Sprintf(format, args...))
}
