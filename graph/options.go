package graph

import (
	"log/slog"

	"github.com/dshills/masf-go/graph/emit"
	"github.com/dshills/masf-go/graph/store"
)

// DefaultMaxPasses bounds the scheduling passes of one Graph invocation.
const DefaultMaxPasses = 10000

// DefaultLoopMaxPasses bounds the scheduling passes of one Loop invocation.
const DefaultLoopMaxPasses = 1000

// Option configures a Graph or Loop at construction.
//
//	g := graph.NewGraph(
//	    graph.WithName("review"),
//	    graph.WithLogger(logger),
//	    graph.WithEmitter(emit.NewBufferedEmitter()),
//	    graph.WithMetrics(graph.NewPrometheusMetrics(registry)),
//	)
type Option func(*settings)

type settings struct {
	name      string
	logger    *slog.Logger
	maxPasses int
	emitter   emit.Emitter
	metrics   *PrometheusMetrics
	recorder  store.Store
}

func newSettings(defaultName string, defaultPasses int, opts []Option) settings {
	s := settings{name: defaultName, maxPasses: defaultPasses}
	for _, opt := range opts {
		opt(&s)
	}
	if s.name == "" {
		s.name = defaultName
	}
	if s.maxPasses <= 0 {
		s.maxPasses = defaultPasses
	}
	return s
}

// WithName sets the composite's name when it is used as a root. Nested
// composites take the name they are registered under.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithLogger routes the composite's log output through l. A logger already
// carried by the invocation context takes precedence.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithMaxPasses overrides the scheduling pass cap. Hitting the cap stops
// the invocation with a warning rather than an error.
func WithMaxPasses(n int) Option {
	return func(s *settings) { s.maxPasses = n }
}

// WithEmitter sends node lifecycle events for every node inside the
// composite, nested composites included, to e.
func WithEmitter(e emit.Emitter) Option {
	return func(s *settings) { s.emitter = e }
}

// WithMetrics records Prometheus metrics for every node inside the
// composite and for its scheduler.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithRecorder persists a store.StepRecord for every forward inside the
// composite.
func WithRecorder(st store.Store) Option {
	return func(s *settings) { s.recorder = st }
}
