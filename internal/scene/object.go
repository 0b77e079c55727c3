package scene

import (
	"fmt"

	"github.com/roach88/primdiff/internal/diff"
	"github.com/roach88/primdiff/internal/hashops"
	"github.com/roach88/primdiff/internal/primitive"
)

// Vec3 is a point or extent in scene space.
type Vec3 [3]float32

// Object is the renderer-side descriptor of one decoded primitive.
//
// Which geometric fields are meaningful depends on Kind:
//   - LINE: Vertices[0..1]
//   - BOX: Position, Rotation (ZYX euler), Size
//   - SPHERE: Position, Radius
//   - CYLINDER: Vertices[0..1] as the axis end points
//   - TRIANGLE: Vertices[0..2]
type Object struct {
	Key      hashops.ContentKey `json:"key"`
	Kind     primitive.Kind     `json:"kind"`
	Type     string             `json:"type"`
	Material *Material          `json:"material"`
	Position Vec3               `json:"position"`
	Rotation Vec3               `json:"rotation"`
	Size     Vec3               `json:"size"`
	Radius   float32            `json:"radius,omitempty"`
	Vertices []Vec3             `json:"vertices,omitempty"`
}

// Points returns every reference point of the object, used for bounds.
func (o *Object) Points() []Vec3 {
	switch o.Kind {
	case primitive.Box, primitive.Sphere:
		return []Vec3{o.Position}
	default:
		return o.Vertices
	}
}

// Extent returns how far the object reaches beyond its reference points.
func (o *Object) Extent() float32 {
	switch o.Kind {
	case primitive.Sphere:
		return o.Radius
	case primitive.Box:
		m := o.Size[0]
		for _, s := range o.Size[1:] {
			m = max(m, s)
		}
		return m / 2
	case primitive.Cylinder:
		return CylinderRadius
	default:
		return 0
	}
}

func (o *Object) String() string {
	return fmt.Sprintf("%s %s material=%d", o.Type, o.Key, o.Material.Color)
}

// CylinderRadius is the radius used for every cylinder; the wire format
// only carries the axis.
const CylinderRadius = 0.05

func vec(p []float32, i int) Vec3 {
	return Vec3{p[i], p[i+1], p[i+2]}
}

// Builders returns the geometry builders for every known primitive type.
// Materials are shared through cache.
func Builders(cache *MaterialCache) map[primitive.Kind]diff.GeometryBuilder[*Object] {
	return map[primitive.Kind]diff.GeometryBuilder[*Object]{
		primitive.Line: func(key hashops.ContentKey, p []float32, material int32) *Object {
			return &Object{
				Key:      key,
				Kind:     primitive.Line,
				Type:     "LINE",
				Material: cache.For(primitive.Line, material),
				Vertices: []Vec3{vec(p, 0), vec(p, 3)},
			}
		},
		primitive.Box: func(key hashops.ContentKey, p []float32, material int32) *Object {
			return &Object{
				Key:      key,
				Kind:     primitive.Box,
				Type:     "BOX",
				Material: cache.For(primitive.Box, material),
				Position: vec(p, 0),
				Rotation: vec(p, 3),
				Size:     vec(p, 6),
			}
		},
		primitive.Sphere: func(key hashops.ContentKey, p []float32, material int32) *Object {
			return &Object{
				Key:      key,
				Kind:     primitive.Sphere,
				Type:     "SPHERE",
				Material: cache.For(primitive.Sphere, material),
				Position: vec(p, 0),
				Radius:   p[3],
			}
		},
		primitive.Cylinder: func(key hashops.ContentKey, p []float32, material int32) *Object {
			return &Object{
				Key:      key,
				Kind:     primitive.Cylinder,
				Type:     "CYLINDER",
				Material: cache.For(primitive.Cylinder, material),
				Vertices: []Vec3{vec(p, 0), vec(p, 3)},
			}
		},
		primitive.Triangle: func(key hashops.ContentKey, p []float32, material int32) *Object {
			return &Object{
				Key:      key,
				Kind:     primitive.Triangle,
				Type:     "TRIANGLE",
				Material: cache.For(primitive.Triangle, material),
				Vertices: []Vec3{vec(p, 0), vec(p, 3), vec(p, 6)},
			}
		},
	}
}
