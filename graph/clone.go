package graph

import "reflect"

// Cloner is implemented by configuration values that know how to copy
// themselves for each materialized node.
type Cloner interface {
	Clone() any
}

type sharedValue struct{ v any }

type factoryValue struct{ fn func() any }

// Shared marks v to be handed to every materialized node as is.
func Shared(v any) any { return sharedValue{v} }

// Factory marks fn to be called once per materialized node for a fresh value.
func Factory(fn func() any) any { return factoryValue{fn} }

// resolveValue produces the per-node copy of a configuration value.
// Maps, slices and arrays are copied recursively, pointers to structs are
// copied one level, everything else is copied by value.
func resolveValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case sharedValue:
		return x.v
	case factoryValue:
		if x.fn == nil {
			return nil
		}
		return x.fn()
	case Cloner:
		return x.Clone()
	}
	return cloneValue(reflect.ValueOf(v)).Interface()
}

func cloneValue(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneElem(iter.Value(), rv.Type().Elem()))
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := range rv.Len() {
			out.Index(i).Set(cloneElem(rv.Index(i), rv.Type().Elem()))
		}
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := range rv.Len() {
			out.Index(i).Set(cloneElem(rv.Index(i), rv.Type().Elem()))
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return rv
		}
		out := reflect.New(rv.Type().Elem())
		out.Elem().Set(rv.Elem())
		return out
	}
	return rv
}

// cloneElem copies a container element, resolving markers stored behind
// interface-typed elements.
func cloneElem(v reflect.Value, elem reflect.Type) reflect.Value {
	if elem.Kind() != reflect.Interface {
		return cloneValue(v)
	}
	if v.IsNil() {
		return reflect.Zero(elem)
	}
	resolved := resolveValue(v.Interface())
	if resolved == nil {
		return reflect.Zero(elem)
	}
	rv := reflect.ValueOf(resolved)
	if !rv.Type().AssignableTo(elem) {
		return v
	}
	return rv
}
