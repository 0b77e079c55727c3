// Package render draws a scene snapshot as a PNG image.
//
// The projection is top-down: scene X maps to image X, scene Y maps to image
// Y flipped so that +Y points up, and Z is dropped. The scene bounds are fit
// into the image with a padding margin. Boxes use only their Z rotation.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/roach88/primdiff/internal/primitive"
	"github.com/roach88/primdiff/internal/scene"
)

// Options controls the output image.
type Options struct {
	Width   int
	Height  int
	Padding float64
	// LineWidth is the stroke width in pixels for lines and triangle edges.
	LineWidth float64
}

// DefaultOptions returns an 800x600 image with a 20 pixel margin.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 600, Padding: 20, LineWidth: 1.5}
}

// projection maps scene XY to pixel coordinates.
type projection struct {
	scale  float64
	cx, cy float64
	w, h   float64
}

func (p projection) point(v scene.Vec3) (float64, float64) {
	x := (float64(v[0])-p.cx)*p.scale + p.w/2
	y := p.h/2 - (float64(v[1])-p.cy)*p.scale
	return x, y
}

func fit(objs []*scene.Object, opts Options) projection {
	p := projection{scale: 1, w: float64(opts.Width), h: float64(opts.Height)}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, o := range objs {
		r := float64(o.Extent())
		for _, pt := range o.Points() {
			minX = math.Min(minX, float64(pt[0])-r)
			maxX = math.Max(maxX, float64(pt[0])+r)
			minY = math.Min(minY, float64(pt[1])-r)
			maxY = math.Max(maxY, float64(pt[1])+r)
		}
	}
	if math.IsInf(minX, 1) {
		return p
	}
	p.cx, p.cy = (minX+maxX)/2, (minY+maxY)/2

	dx, dy := maxX-minX, maxY-minY
	availW := math.Max(p.w-2*opts.Padding, 1)
	availH := math.Max(p.h-2*opts.Padding, 1)
	switch {
	case dx > 0 && dy > 0:
		p.scale = math.Min(availW/dx, availH/dy)
	case dx > 0:
		p.scale = availW / dx
	case dy > 0:
		p.scale = availH / dy
	}
	return p
}

// PNG renders objs and writes the encoded image to w.
func PNG(w io.Writer, objs []*scene.Object, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("render: invalid image size %dx%d", opts.Width, opts.Height)
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = 1
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	defer dc.Close()
	dc.ClearWithColor(gg.White)

	proj := fit(objs, opts)
	var errs []error
	for _, o := range objs {
		if err := draw(dc, proj, o, opts); err != nil {
			errs = append(errs, fmt.Errorf("render %s: %w", o.Key, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

func draw(dc *gg.Context, p projection, o *scene.Object, opts Options) error {
	if o.Material != nil {
		dc.SetRGB(o.Material.RGB())
	} else {
		dc.SetRGB(0, 0, 0)
	}

	switch o.Kind {
	case primitive.Line:
		x1, y1 := p.point(o.Vertices[0])
		x2, y2 := p.point(o.Vertices[1])
		dc.SetLineWidth(opts.LineWidth)
		dc.DrawLine(x1, y1, x2, y2)
		return dc.Stroke()

	case primitive.Cylinder:
		x1, y1 := p.point(o.Vertices[0])
		x2, y2 := p.point(o.Vertices[1])
		dc.SetLineWidth(math.Max(2*scene.CylinderRadius*p.scale, opts.LineWidth))
		dc.DrawLine(x1, y1, x2, y2)
		return dc.Stroke()

	case primitive.Triangle:
		x1, y1 := p.point(o.Vertices[0])
		x2, y2 := p.point(o.Vertices[1])
		x3, y3 := p.point(o.Vertices[2])
		dc.MoveTo(x1, y1)
		dc.LineTo(x2, y2)
		dc.LineTo(x3, y3)
		dc.ClosePath()
		return dc.Fill()

	case primitive.Sphere:
		x, y := p.point(o.Position)
		dc.DrawCircle(x, y, math.Max(float64(o.Radius)*p.scale, 1))
		return dc.Fill()

	case primitive.Box:
		x, y := p.point(o.Position)
		w := float64(o.Size[0]) * p.scale
		h := float64(o.Size[1]) * p.scale
		dc.Push()
		defer dc.Pop()
		dc.Translate(x, y)
		// Image Y is flipped, so a counter-clockwise scene rotation is clockwise here.
		dc.Rotate(-float64(o.Rotation[2]))
		dc.DrawRectangle(-w/2, -h/2, w, h)
		return dc.Fill()

	default:
		return fmt.Errorf("unsupported primitive kind %d", o.Kind)
	}
}
