package primitive

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind is the wire type id of a primitive.
type Kind int32

// Known primitive kinds. Id 0 is reserved and never decoded.
const (
	Unknown  Kind = 0
	Line     Kind = 1
	Box      Kind = 2
	Sphere   Kind = 3
	Cylinder Kind = 4
	Triangle Kind = 5
)

// Layout constants shared by every type.
const (
	// ElementSize is the size of one payload element (float32) or header field (int32).
	ElementSize = 4

	// HeaderSize covers the type id and the material id.
	HeaderSize = 2 * ElementSize
)

// Type describes the wire layout of one primitive type.
type Type struct {
	ID           Kind
	Name         string
	ElementCount int
	ElementSize  int
	HeaderSize   int
	MessageSize  int
}

// NewType builds a Type with the derived layout fields filled in.
// A type with zero elements has a zero message size and cannot be decoded.
func NewType(id Kind, name string, elements int) Type {
	t := Type{
		ID:           id,
		Name:         name,
		ElementCount: elements,
		ElementSize:  ElementSize,
		HeaderSize:   HeaderSize,
	}
	if elements > 0 {
		t.MessageSize = (elements + 2) * ElementSize
	}
	return t
}

// Decodable reports whether messages of this type can appear on the wire.
func (t Type) Decodable() bool {
	return t.MessageSize > 0
}

func (t Type) String() string {
	return t.Name
}

// Registry is an immutable table of primitive types indexed by id.
type Registry struct {
	byID   map[Kind]Type
	byName map[string]Type
	order  []Type
}

// NewRegistry builds a registry from the given types.
// Duplicate ids or names and negative element counts are rejected.
func NewRegistry(types ...Type) (*Registry, error) {
	r := &Registry{
		byID:   make(map[Kind]Type, len(types)),
		byName: make(map[string]Type, len(types)),
		order:  make([]Type, 0, len(types)),
	}
	for _, t := range types {
		if t.ElementCount < 0 {
			return nil, fmt.Errorf("primitive %s: negative element count %d", t.Name, t.ElementCount)
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("primitive %s: duplicate type id %d", t.Name, t.ID)
		}
		name := strings.ToUpper(t.Name)
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("primitive id %d: duplicate type name %q", t.ID, t.Name)
		}
		r.byID[t.ID] = t
		r.byName[name] = t
		r.order = append(r.order, t)
	}
	sort.Slice(r.order, func(i, j int) bool { return r.order[i].ID < r.order[j].ID })
	return r, nil
}

// Default returns the process-wide registry of the five known primitives
// plus the reserved UNKNOWN entry.
var Default = sync.OnceValue(func() *Registry {
	r, err := NewRegistry(
		NewType(Unknown, "UNKNOWN", 0),
		NewType(Line, "LINE", 6),
		NewType(Box, "BOX", 9),
		NewType(Sphere, "SPHERE", 4),
		NewType(Cylinder, "CYLINDER", 6),
		NewType(Triangle, "TRIANGLE", 9),
	)
	if err != nil {
		panic(err)
	}
	return r
})

// Lookup returns the type registered under id.
// A miss means the stream is desynchronized; callers treat it as a protocol error.
func (r *Registry) Lookup(id Kind) (Type, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// ByName looks a type up by name, case-insensitively.
func (r *Registry) ByName(name string) (Type, bool) {
	t, ok := r.byName[strings.ToUpper(strings.TrimSpace(name))]
	return t, ok
}

// Types returns every registered type ordered by id.
func (r *Registry) Types() []Type {
	out := make([]Type, len(r.order))
	copy(out, r.order)
	return out
}

// Known returns the decodable types ordered by id.
func (r *Registry) Known() []Type {
	out := make([]Type, 0, len(r.order))
	for _, t := range r.order {
		if t.Decodable() {
			out = append(out, t)
		}
	}
	return out
}
