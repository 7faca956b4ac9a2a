package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/masf-go/graph"
	"github.com/dshills/masf-go/graph/hook"
	"github.com/dshills/masf-go/graph/loader"
)

func runGraph(ctx context.Context, configPath, graphPath, input string, out io.Writer) error {
	msg, err := parseInput(input)
	if err != nil {
		return err
	}
	return withApp(ctx, configPath, func(ctx context.Context, a *app) error {
		g, err := a.loader().LoadFile(ctx, graphPath)
		if err != nil {
			return err
		}
		start := time.Now()
		result, err := g.Invoke(ctx, msg)
		if err != nil {
			return err
		}
		a.logger.Info("run finished", "graph", g.Name(), "duration_ms", time.Since(start).Milliseconds())
		return writeJSON(out, result)
	})
}

func validateGraph(ctx context.Context, configPath, graphPath string, out io.Writer) error {
	return withApp(ctx, configPath, func(ctx context.Context, a *app) error {
		g, err := a.loader().LoadFile(ctx, graphPath)
		if err != nil {
			return err
		}
		describe(out, g, 0)
		return nil
	})
}

func listKinds(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, k := range loader.DefaultRegistry().Kinds() {
		fmt.Fprintf(w, "%s\t%s\n", k.Name, k.Description)
	}
	fmt.Fprintf(w, "%s\t%s\n", loader.KindGraph, "nested graph: {nodes, edges}")
	fmt.Fprintf(w, "%s\t%s\n", loader.KindLoop, "nested loop: {loop, nodes, edges}")
	_ = w.Flush()
}

func showRuns(ctx context.Context, configPath string, args []string, out io.Writer) error {
	return withApp(ctx, configPath, func(ctx context.Context, a *app) error {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		defer w.Flush()

		if len(args) == 1 {
			steps, err := a.store.LoadRun(ctx, args[0])
			if err != nil {
				return fmt.Errorf("loading run %s: %w", args[0], err)
			}
			fmt.Fprintln(w, "STEP\tNODE\tSTATUS\tDURATION\tERROR")
			for _, s := range steps {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", s.Step, s.NodeID, s.Status, s.Duration, s.Error)
			}
			return nil
		}

		runs, err := a.store.ListRuns(ctx)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		fmt.Fprintln(w, "RUN\tSTEPS\tERRORS\tSTARTED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", r.RunID, r.Steps, r.Errors, r.StartedAt.Format(time.RFC3339))
		}
		return nil
	})
}

// parseInput decodes a JSON or YAML message. A leading @ names a file.
func parseInput(input string) (graph.Message, error) {
	data := []byte(input)
	if path, ok := strings.CutPrefix(input, "@"); ok {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
	}
	msg := graph.Message{}
	if err := yaml.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	return msg, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type subgraph interface {
	Nodes() []graph.Node
	Edges() []*graph.Edge
}

// describe prints n and, for composites, its children and edges.
func describe(out io.Writer, n graph.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(out, "%s%s (%s)\n", indent, n.Name(), hook.TypeName(n))
	if lp, ok := n.(*graph.Loop); ok {
		cfg := lp.Config()
		fmt.Fprintf(out, "%s  max_iterations=%d until=%t condition=%q\n", indent, cfg.MaxIterations, cfg.Until != nil, cfg.Condition)
	}
	sg, ok := n.(subgraph)
	if !ok {
		return
	}
	for _, child := range sg.Nodes() {
		describe(out, child, depth+1)
	}
	for _, e := range sg.Edges() {
		keys := "*"
		if names := e.Keys().Names(); len(names) > 0 {
			keys = strings.Join(names, ",")
		}
		fmt.Fprintf(out, "%s  %s [%s]\n", indent, e.Name(), keys)
	}
}
