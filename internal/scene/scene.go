// Package scene is the renderer side of a session: it turns decoded
// primitives into descriptors and keeps the set currently on screen.
package scene

import (
	"sort"

	"github.com/roach88/primdiff/internal/hashops"
)

// Scene holds the objects currently displayed, keyed by content key.
// Not safe for concurrent use; the owning session serializes access.
type Scene struct {
	objects map[hashops.ContentKey]*Object
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{objects: make(map[hashops.ContentKey]*Object)}
}

// Apply removes first, then adds, matching the order the viewer mutates
// its scene graph. Removing an absent key is a no-op.
func (s *Scene) Apply(removed []hashops.ContentKey, added []*Object) {
	for _, key := range removed {
		delete(s.objects, key)
	}
	for _, obj := range added {
		s.objects[obj.Key] = obj
	}
}

// Get returns the object for key.
func (s *Scene) Get(key hashops.ContentKey) (*Object, bool) {
	obj, ok := s.objects[key]
	return obj, ok
}

// Len returns the number of objects.
func (s *Scene) Len() int {
	return len(s.objects)
}

// Objects returns every object ordered by key.
func (s *Scene) Objects() []*Object {
	out := make([]*Object, 0, len(s.objects))
	for _, obj := range s.objects {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Reset empties the scene.
func (s *Scene) Reset() {
	clear(s.objects)
}
