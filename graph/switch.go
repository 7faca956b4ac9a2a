package graph

import (
	"context"
	"fmt"
	"slices"
)

// RouteFunc picks the receivers, by node name, that a Switch feeds.
type RouteFunc func(ctx context.Context, in Message) ([]string, error)

// Switch forwards its input unchanged to a subset of its successors.
//
// Edges to receivers the route does not select are closed rather than fed,
// so those branches are skipped and their closure propagates downstream.
type Switch struct {
	Base
	route    RouteFunc
	selected []string
}

// NewSwitch returns a switch driven by route.
func NewSwitch(route RouteFunc) *Switch {
	return &Switch{route: route}
}

// RouteOn selects the receiver mapped to the string value of key. Values
// missing from cases select fallback; an empty fallback selects nothing.
func RouteOn(key string, cases map[string]string, fallback string) RouteFunc {
	return func(_ context.Context, in Message) ([]string, error) {
		v, ok := in[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingKey, key)
		}
		if target, ok := cases[fmt.Sprint(v)]; ok {
			return []string{target}, nil
		}
		if fallback == "" {
			return nil, nil
		}
		return []string{fallback}, nil
	}
}

// Forward evaluates the route and passes in through.
func (s *Switch) Forward(ctx context.Context, in Message) (Message, error) {
	s.selected = nil
	if s.route == nil {
		return nil, fmt.Errorf("switch %s has no route", s.Name())
	}
	targets, err := s.route(ctx, in)
	if err != nil {
		return nil, err
	}
	s.selected = targets
	return in.Clone(), nil
}

// Selected returns the receivers chosen by the last forward.
func (s *Switch) Selected() []string {
	return slices.Clone(s.selected)
}

// Dispatch sends out to the selected receivers and closes every other edge.
func (s *Switch) Dispatch(ctx context.Context, out Message, edges []*Edge) error {
	for _, name := range s.selected {
		if !slices.ContainsFunc(edges, func(e *Edge) bool { return e.Receiver().Name() == name }) {
			return fmt.Errorf("switch %s: route target %q is not a successor", s.Name(), name)
		}
	}
	for _, e := range edges {
		if slices.Contains(s.selected, e.Receiver().Name()) {
			if err := e.Send(ctx, out); err != nil {
				return err
			}
			continue
		}
		e.Close()
	}
	return nil
}
