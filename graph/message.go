package graph

import (
	"maps"
	"reflect"
	"slices"
)

// Message is the payload exchanged between nodes.
type Message map[string]any

// Attributes is a node's attribute store. Composites hand their own store to
// children as the outer scope.
type Attributes map[string]any

// Clone returns a shallow copy of m. A nil message clones to an empty one.
func (m Message) Clone() Message {
	out := make(Message, len(m))
	maps.Copy(out, m)
	return out
}

// Keys returns the message keys in sorted order.
func (m Message) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// MergeMessage folds incoming into acc and returns the result. Neither
// argument is modified.
//
// Keys present on only one side are copied. When a key exists on both sides:
// lists extend, maps update key-wise, and any other pair is coalesced into a
// two-element list so that neither value is lost.
//
//	MergeMessage({"a": [1]}, {"a": [2]})          // {"a": [1, 2]}
//	MergeMessage({"a": {"x": 1}}, {"a": {"y": 2}}) // {"a": {"x": 1, "y": 2}}
//	MergeMessage({"a": 1}, {"a": 2})              // {"a": [1, 2]}
func MergeMessage(acc, incoming Message) Message {
	out := acc.Clone()
	for k, v := range incoming {
		prev, ok := out[k]
		if !ok {
			out[k] = v
			continue
		}
		out[k] = mergeValues(prev, v)
	}
	return out
}

func mergeValues(prev, next any) any {
	if list, ok := asList(prev); ok {
		if more, ok := asList(next); ok {
			return append(list, more...)
		}
		return append(list, next)
	}
	if pm, ok := asMap(prev); ok {
		if nm, ok := asMap(next); ok {
			maps.Copy(pm, nm)
			switch prev.(type) {
			case Message:
				return Message(pm)
			case Attributes:
				return Attributes(pm)
			}
			return pm
		}
	}
	return []any{prev, next}
}

// asList returns a fresh []any copy of v when v is a slice or array.
func asList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if l, ok := v.([]any); ok {
		return slices.Clone(l), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		// []byte is a scalar payload, not a list.
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asMap returns a fresh map[string]any copy of v when v is a string-keyed map.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return maps.Clone(m), true
	case Message:
		return maps.Clone(map[string]any(m)), true
	case Attributes:
		return maps.Clone(map[string]any(m)), true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
