package graph

import (
	"time"

	"github.com/dshills/masf-go/graph/emit"
	"github.com/dshills/masf-go/graph/hook"
	"github.com/dshills/masf-go/graph/store"
)

// instrument installs the observability hooks selected by s on the
// composite and everything inside it.
func (g *BaseGraph) instrument(s settings) {
	if s.emitter != nil {
		g.instrumentEmitter(s.emitter)
	}
	if s.metrics != nil {
		g.instrumentMetrics(s.metrics)
	}
	if s.recorder != nil {
		g.instrumentRecorder(s.recorder)
	}
}

func (g *BaseGraph) instrumentEmitter(e emit.Emitter) {
	event := func(ev hook.Event, msg string, meta map[string]any) {
		e.Emit(emit.Event{
			RunID:  RunIDFrom(ev.Ctx),
			Step:   StepFrom(ev.Ctx),
			NodeID: targetPath(ev.Target.Object),
			Msg:    msg,
			Time:   time.Now(),
			Meta:   meta,
		})
	}
	g.RegisterHook(hook.StageForward.Before(), func(ev hook.Event) {
		in, _ := ev.Args.(Message)
		event(ev, emit.MsgNodeStart, map[string]any{"type": ev.Target.Type, "keys": in.Keys()})
	}, Recursive())
	g.RegisterHook(hook.StageForward.After(), func(ev hook.Event) {
		out, _ := ev.Result.(Message)
		event(ev, emit.MsgNodeEnd, map[string]any{"duration_ms": ev.Duration.Milliseconds(), "keys": out.Keys()})
	}, Recursive())
	g.RegisterHook(hook.StageForward.Error(), func(ev hook.Event) {
		event(ev, emit.MsgNodeError, map[string]any{"duration_ms": ev.Duration.Milliseconds(), "error": ev.Err.Error()})
	}, Recursive())
	g.RegisterHook(hook.StageExecute.After(), func(ev hook.Event) {
		if out, _ := ev.Result.(Message); out == nil {
			event(ev, emit.MsgNodeClosed, nil)
		}
	}, Recursive())
	g.RegisterHook(hook.StageSend.After(), func(ev hook.Event) {
		msg, _ := ev.Args.(Message)
		event(ev, emit.MsgEdgeSend, map[string]any{"keys": msg.Keys()})
	}, Recursive())
}

func (g *BaseGraph) instrumentMetrics(m *PrometheusMetrics) {
	g.RegisterHook(hook.StageForward.After(), func(ev hook.Event) {
		m.RecordNode(targetPath(ev.Target.Object), "success", ev.Duration)
	}, Recursive())
	g.RegisterHook(hook.StageForward.Error(), func(ev hook.Event) {
		m.RecordNode(targetPath(ev.Target.Object), "error", ev.Duration)
	}, Recursive())
	g.RegisterHook(hook.StageExecute.After(), func(ev hook.Event) {
		if out, _ := ev.Result.(Message); out == nil {
			m.RecordNode(targetPath(ev.Target.Object), "closed", 0)
		}
	}, Recursive())
	g.RegisterHook(hook.StageSend.After(), func(ev hook.Event) {
		m.IncrementTransfers(targetPath(ev.Target.Object))
	}, Recursive())
}

func (g *BaseGraph) instrumentRecorder(st store.Store) {
	record := func(ev hook.Event, status string) {
		in, _ := ev.Args.(Message)
		rec := store.StepRecord{
			RunID:     RunIDFrom(ev.Ctx),
			Step:      StepFrom(ev.Ctx),
			NodeID:    targetPath(ev.Target.Object),
			Status:    status,
			Input:     in.Clone(),
			Duration:  ev.Duration,
			CreatedAt: time.Now(),
		}
		if ev.Err != nil {
			rec.Error = ev.Err.Error()
		} else if out, ok := ev.Result.(Message); ok {
			rec.Output = out.Clone()
		}
		if err := st.SaveStep(ev.Ctx, rec); err != nil {
			LoggerFrom(ev.Ctx).Warn("failed to record step", "node", rec.NodeID, "error", err)
		}
	}
	g.RegisterHook(hook.StageForward.After(), func(ev hook.Event) { record(ev, store.StatusSuccess) }, Recursive())
	g.RegisterHook(hook.StageForward.Error(), func(ev hook.Event) { record(ev, store.StatusError) }, Recursive())
}

// targetPath names a hook target: a node's path, or an edge's name
// qualified by the path of the composite that owns it.
func targetPath(obj any) string {
	switch o := obj.(type) {
	case Node:
		return o.base().Path()
	case *Edge:
		if owner := o.sender.base().owner; owner != nil && owner.host != nil {
			return owner.host.base().Path() + "/" + o.Name()
		}
		return o.Name()
	}
	return ""
}
