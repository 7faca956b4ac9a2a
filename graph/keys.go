package graph

import (
	"maps"
	"slices"
	"strings"
)

// Keys maps attribute or message keys to a human-readable description.
type Keys map[string]string

// KeyList builds Keys from bare names with empty descriptions.
func KeyList(names ...string) Keys {
	k := make(Keys, len(names))
	for _, n := range names {
		k[n] = ""
	}
	return k
}

// Names returns the keys in sorted order.
func (k Keys) Names() []string {
	return slices.Sorted(maps.Keys(k))
}

type policyMode int

const (
	policyUnset policyMode = iota
	policyAll
	policyListed
)

// KeyPolicy selects which attributes cross a node's outer boundary.
//
// There are three effective policies: all keys, no keys, or an explicit list.
// The zero value is "unset": an unset pull policy pulls everything and an
// unset push policy mirrors the pull policy.
type KeyPolicy struct {
	mode policyMode
	keys Keys
}

// AllKeys lets every attribute through.
func AllKeys() KeyPolicy { return KeyPolicy{mode: policyAll} }

// NoKeys lets nothing through.
func NoKeys() KeyPolicy { return KeyPolicy{mode: policyListed, keys: Keys{}} }

// OnlyKeys lets exactly the listed keys through. A nil or empty map is
// equivalent to NoKeys.
func OnlyKeys(keys Keys) KeyPolicy {
	return KeyPolicy{mode: policyListed, keys: maps.Clone(keys)}
}

// IsSet reports whether the policy was chosen explicitly.
func (p KeyPolicy) IsSet() bool { return p.mode != policyUnset }

// IsAll reports whether every key passes. Unset counts as all.
func (p KeyPolicy) IsAll() bool { return p.mode != policyListed }

// IsNone reports whether no key passes.
func (p KeyPolicy) IsNone() bool { return p.mode == policyListed && len(p.keys) == 0 }

// Keys returns the listed keys; nil for all-keys policies.
func (p KeyPolicy) Keys() Keys {
	if p.mode != policyListed {
		return nil
	}
	return maps.Clone(p.keys)
}

// Allows reports whether key passes the policy.
func (p KeyPolicy) Allows(key string) bool {
	if p.IsAll() {
		return true
	}
	_, ok := p.keys[key]
	return ok
}

// String renders the policy for logs.
func (p KeyPolicy) String() string {
	switch {
	case p.mode == policyUnset:
		return "unset"
	case p.IsAll():
		return "all"
	case p.IsNone():
		return "none"
	default:
		return "only[" + strings.Join(p.keys.Names(), ",") + "]"
	}
}

// copyAllowed copies every key of src allowed by p into dst.
func (p KeyPolicy) copyAllowed(dst, src map[string]any) {
	if p.IsNone() {
		return
	}
	if p.IsAll() {
		maps.Copy(dst, src)
		return
	}
	for k := range p.keys {
		if v, ok := src[k]; ok {
			dst[k] = v
		}
	}
}
