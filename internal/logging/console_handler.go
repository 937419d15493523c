package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// consoleHandler renders human-readable single-line output. Color is applied
// only when the destination is a terminal.
type consoleHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	level slog.Leveler
	attrs []slog.Attr
	color bool
}

func newConsoleHandler(out io.Writer, level slog.Leveler) *consoleHandler {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &consoleHandler{
		mu:    &sync.Mutex{},
		out:   out,
		level: level,
		color: color,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder

	b.WriteString(record.Time.Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(h.colorize(levelLabel(record.Level), levelColor(record.Level)))
	b.WriteByte(' ')
	b.WriteString(record.Message)

	attrs := make([]slog.Attr, 0, record.NumAttrs()+len(h.attrs))
	attrs = append(attrs, h.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	sort.SliceStable(attrs, func(i, j int) bool { return attrOrder(attrs[i].Key) < attrOrder(attrs[j].Key) })
	for _, attr := range attrs {
		b.WriteByte(' ')
		b.WriteString(h.colorize(attr.Key+"="+attr.Value.String(), ansiDim))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h
}

func (h *consoleHandler) colorize(text, code string) string {
	if !h.color || code == "" {
		return text
	}
	return code + text + ansiReset
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ansiBlue
	default:
		return ansiDim
	}
}

// attrOrder pins identification fields ahead of free-form detail.
func attrOrder(key string) string {
	switch key {
	case FieldTaskID:
		return "0"
	case FieldStage:
		return "1"
	case FieldComponent:
		return "2"
	case FieldParagraph:
		return "3"
	default:
		return "9" + key
	}
}
