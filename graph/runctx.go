package graph

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	runKey
	stepKey
	metricsKey
)

// run carries per-invocation bookkeeping shared by every node executed
// under one root invocation.
type run struct {
	id    string
	steps atomic.Int64
}

// ContextWithLogger returns a copy of ctx that carries l. Nodes executed
// under the returned context log through l.
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, l)
}

// LoggerFrom returns the logger stored in ctx, or slog.Default when none is set.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// RunIDFrom returns the identifier of the root invocation that ctx belongs
// to. It is empty outside of an invocation.
func RunIDFrom(ctx context.Context) string {
	if r, ok := ctx.Value(runKey).(*run); ok {
		return r.id
	}
	return ""
}

// StepFrom returns the step number assigned to the node currently being
// forwarded under ctx. Steps start at 1 and increase monotonically across
// the whole invocation, nested composites included.
func StepFrom(ctx context.Context) int {
	if s, ok := ctx.Value(stepKey).(int); ok {
		return s
	}
	return 0
}

// withRun attaches a fresh run to ctx unless one is already present.
func withRun(ctx context.Context) context.Context {
	if _, ok := ctx.Value(runKey).(*run); ok {
		return ctx
	}
	return context.WithValue(ctx, runKey, &run{id: uuid.NewString()})
}

// nextStep allocates the next step number and returns a context carrying it.
func nextStep(ctx context.Context) context.Context {
	r, ok := ctx.Value(runKey).(*run)
	if !ok {
		return ctx
	}
	return context.WithValue(ctx, stepKey, int(r.steps.Add(1)))
}

func withMetrics(ctx context.Context, m *PrometheusMetrics) context.Context {
	if m == nil {
		return ctx
	}
	return context.WithValue(ctx, metricsKey, m)
}

func metricsFrom(ctx context.Context) *PrometheusMetrics {
	m, _ := ctx.Value(metricsKey).(*PrometheusMetrics)
	return m
}
