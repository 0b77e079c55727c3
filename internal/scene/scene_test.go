package scene

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/primdiff/internal/hashops"
	"github.com/roach88/primdiff/internal/primitive"
)

func TestBuilders_CoverKnownTypes(t *testing.T) {
	builders := Builders(NewMaterialCache())
	for _, typ := range primitive.Default().Known() {
		_, ok := builders[typ.ID]
		assert.True(t, ok, "missing builder for %s", typ.Name)
	}
}

func TestBuilders_Fields(t *testing.T) {
	cache := NewMaterialCache()
	builders := Builders(cache)

	tests := []struct {
		name    string
		kind    primitive.Kind
		payload []float32
		check   func(t *testing.T, o *Object)
	}{
		{
			name:    "line",
			kind:    primitive.Line,
			payload: []float32{1, 2, 3, 4, 5, 6},
			check: func(t *testing.T, o *Object) {
				assert.Equal(t, []Vec3{{1, 2, 3}, {4, 5, 6}}, o.Vertices)
				assert.Equal(t, ShadingBasic, o.Material.Shading)
			},
		},
		{
			name:    "box",
			kind:    primitive.Box,
			payload: []float32{1, 2, 3, 0.1, 0.2, 0.3, 4, 5, 6},
			check: func(t *testing.T, o *Object) {
				assert.Equal(t, Vec3{1, 2, 3}, o.Position)
				assert.Equal(t, Vec3{0.1, 0.2, 0.3}, o.Rotation)
				assert.Equal(t, Vec3{4, 5, 6}, o.Size)
				assert.Equal(t, float32(3), o.Extent())
				assert.Equal(t, ShadingLambert, o.Material.Shading)
			},
		},
		{
			name:    "sphere",
			kind:    primitive.Sphere,
			payload: []float32{1, 2, 3, 0.5},
			check: func(t *testing.T, o *Object) {
				assert.Equal(t, Vec3{1, 2, 3}, o.Position)
				assert.Equal(t, float32(0.5), o.Radius)
				assert.Equal(t, []Vec3{{1, 2, 3}}, o.Points())
			},
		},
		{
			name:    "cylinder",
			kind:    primitive.Cylinder,
			payload: []float32{0, 0, 0, 0, 0, 2},
			check: func(t *testing.T, o *Object) {
				assert.Equal(t, []Vec3{{0, 0, 0}, {0, 0, 2}}, o.Vertices)
				assert.Equal(t, float32(CylinderRadius), o.Extent())
			},
		},
		{
			name:    "triangle",
			kind:    primitive.Triangle,
			payload: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
			check: func(t *testing.T, o *Object) {
				assert.Len(t, o.Vertices, 3)
				assert.Equal(t, Vec3{0, 1, 0}, o.Vertices[2])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := builders[tt.kind](hashops.ContentKey(42), tt.payload, 0x112233)
			require.NotNil(t, obj)
			assert.Equal(t, tt.kind, obj.Kind)
			assert.Equal(t, hashops.ContentKey(42), obj.Key)
			assert.Equal(t, int32(0x112233), obj.Material.Color)
			tt.check(t, obj)
		})
	}
}

func TestBuilders_DoNotRetainPayload(t *testing.T) {
	builders := Builders(NewMaterialCache())
	payload := []float32{1, 2, 3, 4, 5, 6}
	obj := builders[primitive.Line](1, payload, 0)

	payload[0] = 99
	assert.Equal(t, float32(1), obj.Vertices[0][0])
}

func TestMaterialCache_SharesByTypeAndColor(t *testing.T) {
	cache := NewMaterialCache()

	a := cache.For(primitive.Box, 0xff0000)
	b := cache.For(primitive.Box, 0xff0000)
	c := cache.For(primitive.Sphere, 0xff0000)
	d := cache.For(primitive.Box, 0x00ff00)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.NotSame(t, a, d)
	assert.Equal(t, 3, cache.Len())
}

func TestMaterial_RGB(t *testing.T) {
	m := &Material{Color: 0xff8000}
	r, g, b := m.RGB()
	assert.Equal(t, 1.0, r)
	assert.InDelta(t, 0.5, g, 0.01)
	assert.Equal(t, 0.0, b)
}

func TestScene_ApplyRemovesThenAdds(t *testing.T) {
	s := New()
	a := &Object{Key: 1}
	b := &Object{Key: 2}

	s.Apply(nil, []*Object{a, b})
	assert.Equal(t, 2, s.Len())

	// Re-adding a key removed in the same delta keeps it.
	a2 := &Object{Key: 1}
	s.Apply([]hashops.ContentKey{1, 2}, []*Object{a2})
	assert.Equal(t, 1, s.Len())
	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Same(t, a2, got)
}

func TestScene_ObjectsSortedAndReset(t *testing.T) {
	s := New()
	s.Apply(nil, []*Object{{Key: 30}, {Key: 10}, {Key: 20}})

	objs := s.Objects()
	require.Len(t, objs, 3)
	assert.Equal(t, hashops.ContentKey(10), objs[0].Key)
	assert.Equal(t, hashops.ContentKey(30), objs[2].Key)

	s.Reset()
	assert.Equal(t, 0, s.Len())
}

func TestObject_JSONKeyIsHex(t *testing.T) {
	obj := &Object{Key: 0xabc, Kind: primitive.Sphere, Type: "SPHERE", Material: &Material{Color: 1}}
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"key":"0000000000000abc"`)
}
