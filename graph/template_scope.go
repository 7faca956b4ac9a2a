package graph

import (
	"context"
	"maps"
	"slices"

	"github.com/dshills/masf-go/graph/hook"
)

type scopeKey struct{}

type scopeEntry struct {
	selector *hook.Selector
	override bool
	config   Config
}

// WithTemplateDefaults returns a context whose templates materialize with
// cfg underneath their prototype configuration.
func WithTemplateDefaults(ctx context.Context, cfg Config) context.Context {
	return pushScope(ctx, scopeEntry{config: cfg})
}

// WithTemplateOverrides returns a context whose templates materialize with
// cfg on top of their prototype configuration.
func WithTemplateOverrides(ctx context.Context, cfg Config) context.Context {
	return pushScope(ctx, scopeEntry{override: true, config: cfg})
}

// WithTemplateDefaultsFor is WithTemplateDefaults restricted to
// declarations whose name and template type match sel.
func WithTemplateDefaultsFor(ctx context.Context, sel hook.Selector, cfg Config) context.Context {
	return pushScope(ctx, scopeEntry{selector: &sel, config: cfg})
}

// WithTemplateOverridesFor is WithTemplateOverrides restricted to
// declarations whose name and template type match sel.
func WithTemplateOverridesFor(ctx context.Context, sel hook.Selector, cfg Config) context.Context {
	return pushScope(ctx, scopeEntry{selector: &sel, override: true, config: cfg})
}

func pushScope(ctx context.Context, e scopeEntry) context.Context {
	e.config = maps.Clone(e.config)
	prev, _ := ctx.Value(scopeKey{}).([]scopeEntry)
	return context.WithValue(ctx, scopeKey{}, append(slices.Clone(prev), e))
}

type layers struct {
	selectedDefaults  Config
	defaults          Config
	overrides         Config
	selectedOverrides Config
}

// templateLayers folds the scopes in ctx, outermost first, into the four
// layers that apply to the declaration (name, typeName).
func templateLayers(ctx context.Context, name, typeName string) layers {
	l := layers{
		selectedDefaults:  Config{},
		defaults:          Config{},
		overrides:         Config{},
		selectedOverrides: Config{},
	}
	if ctx == nil {
		return l
	}
	entries, _ := ctx.Value(scopeKey{}).([]scopeEntry)
	for _, e := range entries {
		var dst Config
		switch {
		case e.selector != nil && !e.selector.MatchDeclaration(name, typeName):
			continue
		case e.selector != nil && e.override:
			dst = l.selectedOverrides
		case e.selector != nil:
			dst = l.selectedDefaults
		case e.override:
			dst = l.overrides
		default:
			dst = l.defaults
		}
		maps.Copy(dst, e.config)
	}
	return l
}
