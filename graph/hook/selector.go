package hook

import (
	"path"
	"reflect"
	"slices"
)

// Target describes the thing a selector is evaluated against: either a live
// object (Object set) or a declaration that has no instance yet (Object nil).
type Target struct {
	Name   string
	Type   string
	Object any
}

// Named is implemented by objects that carry a name.
type Named interface {
	Name() string
}

// TargetOf describes a live object. The name comes from Named, the type from
// the object's concrete type name with pointers stripped.
func TargetOf(obj any) Target {
	t := Target{Type: TypeName(obj), Object: obj}
	if n, ok := obj.(Named); ok {
		t.Name = n.Name()
	}
	return t
}

// Declaration describes an object that does not exist yet.
func Declaration(name, typeName string) Target {
	return Target{Name: name, Type: typeName}
}

// TypeName returns the type name of v with pointer indirections removed.
func TypeName(v any) string {
	if v == nil {
		return ""
	}
	return typeName(reflect.TypeOf(v))
}

// TypeNameOf returns the type name of T with pointer indirections removed.
func TypeNameOf[T any]() string {
	return typeName(reflect.TypeFor[T]())
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Selector matches targets by type, name and an arbitrary predicate.
// Empty filters match everything; all non-empty filters must match.
//
// Names are path.Match patterns, so "agent_*" selects every name with that prefix.
type Selector struct {
	Types     []string
	Names     []string
	Predicate func(Target) bool
}

// IsZero reports whether s has no filters, i.e. matches everything.
func (s Selector) IsZero() bool {
	return len(s.Types) == 0 && len(s.Names) == 0 && s.Predicate == nil
}

// Match evaluates s against t.
func (s Selector) Match(t Target) bool {
	if len(s.Types) > 0 && !slices.Contains(s.Types, t.Type) {
		return false
	}
	if len(s.Names) > 0 && !matchName(s.Names, t.Name) {
		return false
	}
	if s.Predicate != nil && !s.Predicate(t) {
		return false
	}
	return true
}

// MatchObject evaluates s against a live object.
func (s Selector) MatchObject(obj any) bool {
	return s.Match(TargetOf(obj))
}

// MatchDeclaration evaluates s against a name and type with no instance.
func (s Selector) MatchDeclaration(name, typeName string) bool {
	return s.Match(Declaration(name, typeName))
}

func matchName(patterns []string, name string) bool {
	for _, p := range patterns {
		if p == name {
			return true
		}
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
