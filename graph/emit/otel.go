package emit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by recording OpenTelemetry spans.
//
// Each event becomes one span named after event.Msg carrying masf.run_id,
// masf.step and masf.node attributes plus every Meta field. node_end and
// node_error events with a "duration_ms" field are back-dated so the span
// covers the forward; other events are instantaneous.
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	emitter := emit.NewOTelEmitter(otel.Tracer("masf"))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an emitter recording spans with tracer. A nil
// tracer uses the global provider's "masf" tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	if tracer == nil {
		tracer = otel.Tracer("masf")
	}
	return &OTelEmitter{tracer: tracer}
}

// Emit records event as a span.
func (o *OTelEmitter) Emit(event Event) {
	o.record(context.Background(), event)
}

// EmitBatch records each event as a span under ctx.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.record(ctx, event)
	}
	return nil
}

func (o *OTelEmitter) record(ctx context.Context, event Event) {
	end := event.Time
	if end.IsZero() {
		end = time.Now()
	}
	start := end
	if ms, ok := event.Meta["duration_ms"].(int64); ok && ms > 0 {
		start = end.Add(-time.Duration(ms) * time.Millisecond)
	}

	_, span := o.tracer.Start(ctx, event.Msg, trace.WithTimestamp(start))
	span.SetAttributes(
		attribute.String("masf.run_id", event.RunID),
		attribute.Int("masf.step", event.Step),
		attribute.String("masf.node", event.NodeID),
	)
	for key, value := range event.Meta {
		span.SetAttributes(metaAttribute("masf."+key, value))
	}
	if msg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, msg)
		span.RecordError(errors.New(msg))
	}
	span.End(trace.WithTimestamp(end))
}

func metaAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case time.Duration:
		return attribute.Int64(key, v.Milliseconds())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

// Flush forces export of pending spans when the global tracer provider
// supports it.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}
