package scene

import (
	"sync"

	"github.com/roach88/primdiff/internal/hashops"
	"github.com/roach88/primdiff/internal/primitive"
)

// Shading selects how a material is lit.
type Shading string

const (
	// ShadingBasic ignores lighting; used for lines.
	ShadingBasic Shading = "basic"

	// ShadingLambert is flat diffuse shading; used for solids.
	ShadingLambert Shading = "lambert"
)

// Material is shared by every object with the same type and color.
type Material struct {
	Color   int32   `json:"color"`
	Shading Shading `json:"shading"`
}

// RGB splits the 0xRRGGBB color into components in [0, 1].
func (m *Material) RGB() (r, g, b float64) {
	c := uint32(m.Color)
	return float64(c>>16&0xff) / 255, float64(c>>8&0xff) / 255, float64(c&0xff) / 255
}

// MaterialCache hands out one Material per (type, color) pair.
// Safe for concurrent use.
type MaterialCache struct {
	mu        sync.Mutex
	materials map[hashops.ContentKey]*Material
}

// NewMaterialCache creates an empty cache.
func NewMaterialCache() *MaterialCache {
	return &MaterialCache{materials: make(map[hashops.ContentKey]*Material)}
}

// For returns the material for a primitive type and color, creating it on first use.
func (c *MaterialCache) For(kind primitive.Kind, color int32) *Material {
	key := hashops.Numbers(int64(kind), int64(color))

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.materials[key]; ok {
		return m
	}
	m := &Material{Color: color, Shading: ShadingLambert}
	if kind == primitive.Line {
		m.Shading = ShadingBasic
	}
	c.materials[key] = m
	return m
}

// Len returns the number of distinct materials.
func (c *MaterialCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.materials)
}
