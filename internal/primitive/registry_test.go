package primitive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Layouts(t *testing.T) {
	reg := Default()

	tests := []struct {
		kind     Kind
		name     string
		elements int
		size     int
	}{
		{Unknown, "UNKNOWN", 0, 0},
		{Line, "LINE", 6, 32},
		{Box, "BOX", 9, 44},
		{Sphere, "SPHERE", 4, 24},
		{Cylinder, "CYLINDER", 6, 32},
		{Triangle, "TRIANGLE", 9, 44},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, ok := reg.Lookup(tt.kind)
			require.True(t, ok)
			assert.Equal(t, tt.name, typ.Name)
			assert.Equal(t, tt.elements, typ.ElementCount)
			assert.Equal(t, 4, typ.ElementSize)
			assert.Equal(t, 8, typ.HeaderSize)
			assert.Equal(t, tt.size, typ.MessageSize)
		})
	}
}

func TestDefault_IsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestLookup_Missing(t *testing.T) {
	_, ok := Default().Lookup(6)
	assert.False(t, ok)
	_, ok = Default().Lookup(-1)
	assert.False(t, ok)
}

func TestByName(t *testing.T) {
	typ, ok := Default().ByName("box")
	require.True(t, ok)
	assert.Equal(t, Box, typ.ID)

	_, ok = Default().ByName("hexagon")
	assert.False(t, ok)
}

func TestKnown_ExcludesReserved(t *testing.T) {
	known := Default().Known()
	require.Len(t, known, 5)
	for i, typ := range known {
		assert.Equal(t, Kind(i+1), typ.ID)
		assert.True(t, typ.Decodable())
	}
}

func TestNewRegistry_RejectsDuplicateID(t *testing.T) {
	_, err := NewRegistry(NewType(1, "LINE", 6), NewType(1, "OTHER", 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate type id")
}

func TestNewRegistry_RejectsDuplicateName(t *testing.T) {
	_, err := NewRegistry(NewType(1, "LINE", 6), NewType(2, "line", 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate type name")
}

func TestNewRegistry_RejectsNegativeCount(t *testing.T) {
	_, err := NewRegistry(Type{ID: 1, Name: "BROKEN", ElementCount: -1})
	require.Error(t, err)
}

func TestTypes_SortedByID(t *testing.T) {
	reg, err := NewRegistry(NewType(3, "C", 1), NewType(1, "A", 1), NewType(2, "B", 1))
	require.NoError(t, err)

	types := reg.Types()
	require.Len(t, types, 3)
	assert.Equal(t, []Kind{1, 2, 3}, []Kind{types[0].ID, types[1].ID, types[2].ID})
}
