package emit

import (
	"context"
	"log/slog"
	"sort"
)

// LogEmitter implements Emitter by writing each event as a structured log
// record through a slog.Logger.
//
// Errors are logged at ERROR, node_closed at DEBUG and everything else at
// the configured level. Output format (text or JSON) follows the logger's
// handler.
//
// Usage:
//
//	emitter := emit.NewLogEmitter(slog.New(slog.NewJSONHandler(os.Stderr, nil)), slog.LevelInfo)
type LogEmitter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogEmitter creates a LogEmitter. A nil logger uses slog.Default.
func NewLogEmitter(logger *slog.Logger, level slog.Level) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger, level: level}
}

// Emit writes event as one log record.
//
// Example text output:
//
//	level=INFO msg=node_end run_id=4f0c... step=3 node=root/critic duration_ms=12
func (l *LogEmitter) Emit(event Event) {
	level := l.level
	switch event.Msg {
	case MsgNodeError:
		level = slog.LevelError
	case MsgNodeClosed, MsgEdgeSend:
		level = slog.LevelDebug
	}

	attrs := []slog.Attr{
		slog.String("run_id", event.RunID),
		slog.Int("step", event.Step),
		slog.String("node", event.NodeID),
	}
	keys := make([]string, 0, len(event.Meta))
	for k := range event.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, event.Meta[k]))
	}
	l.logger.LogAttrs(context.Background(), level, event.Msg, attrs...)
}
