// Package specifier maps reserved module specifiers to polyfill identifiers.
package specifier

import (
	"sort"
	"strings"
)

// Scheme marks the host built-in module namespace. It is stripped before
// lookup, so "node:crypto" and "crypto" resolve identically.
const Scheme = "node:"

// ID names a polyfill module.
type ID string

const (
	Crypto  ID = "crypto"
	Buffer  ID = "buffer"
	Process ID = "process"

	// Globals is the environment stub injected into every bundle. It is not
	// reachable through a specifier.
	Globals ID = "globals"
)

// Known reports whether id names a shipped polyfill.
func Known(id ID) bool {
	switch id {
	case Crypto, Buffer, Process, Globals:
		return true
	}
	return false
}

// Table is an immutable specifier -> polyfill mapping.
type Table struct {
	entries map[string]ID
}

// New builds a table from entries. Keys are stored without the scheme
// marker; the map is copied so later changes to entries are not observed.
func New(entries map[string]ID) *Table {
	t := &Table{entries: make(map[string]ID, len(entries))}
	for spec, id := range entries {
		t.entries[StripScheme(spec)] = id
	}
	return t
}

// Default returns the table of built-in modules shipped with the shim.
func Default() *Table {
	return New(map[string]ID{
		"crypto":  Crypto,
		"buffer":  Buffer,
		"process": Process,
	})
}

// With returns a new table holding t's entries plus extra. Entries in extra
// win on conflict. t is left unchanged.
func (t *Table) With(extra map[string]ID) *Table {
	merged := make(map[string]ID, len(t.entries)+len(extra))
	for spec, id := range t.entries {
		merged[spec] = id
	}
	for spec, id := range extra {
		merged[StripScheme(spec)] = id
	}
	return &Table{entries: merged}
}

// Lookup strips a leading scheme marker from spec and returns the matching
// polyfill. A miss is not an error.
func (t *Table) Lookup(spec string) (ID, bool) {
	id, ok := t.entries[StripScheme(spec)]
	return id, ok
}

// Len returns the number of specifiers.
func (t *Table) Len() int { return len(t.entries) }

// Specifiers lists the bare specifiers in sorted order.
func (t *Table) Specifiers() []string {
	specs := make([]string, 0, len(t.entries))
	for spec := range t.entries {
		specs = append(specs, spec)
	}
	sort.Strings(specs)
	return specs
}

// StripScheme removes one leading scheme marker.
func StripScheme(spec string) string {
	return strings.TrimPrefix(spec, Scheme)
}
