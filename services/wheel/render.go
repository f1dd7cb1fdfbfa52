package wheel

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const (
	DefaultSize = 500
	// arcSteps is the number of segments used per slice outline.
	arcSteps = 48
)

// RenderOptions controls the wheel image. Highlight is a slice index or -1.
type RenderOptions struct {
	Size      int
	Highlight int
}

// Render draws the wheel unrotated, slice 0 starting at the top and running
// clockwise. The browser rotates the image while spinning.
func Render(slices []Slice, opts RenderOptions) *image.RGBA {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)

	c := float32(size) / 2
	outer := c - 2
	inner := outer * 0.35

	for _, s := range slices {
		highlighted := s.Index == opts.Highlight
		edge, core := 0.40, 0.60
		if highlighted {
			edge, core = 0.55, 0.75
		}
		fillSlice(img, c, outer, s.Start, s.End, hsl(s.Hue, 0.70, edge))
		fillSlice(img, c, inner, s.Start, s.End, hsl(s.Hue, 0.70, core))
	}

	if opts.Highlight >= 0 && opts.Highlight < len(slices) {
		s := slices[opts.Highlight]
		outlineSlice(img, c, outer, s.Start, s.End, color.RGBA{R: 0xff, G: 0xd7, A: 0xff})
	}

	for _, s := range slices {
		drawLabel(img, c, outer*0.62, s.Mid(), s.Label)
	}
	return img
}

// EncodePNG renders the wheel straight to w.
func EncodePNG(w io.Writer, slices []Slice, opts RenderOptions) error {
	return png.Encode(w, Render(slices, opts))
}

// point returns the pixel for a clockwise-from-top angle at radius r.
func point(c, r float32, angle float64) (float32, float32) {
	return c + r*float32(math.Sin(angle)), c - r*float32(math.Cos(angle))
}

func slicePath(z *vector.Rasterizer, c, r float32, start, end float64) {
	z.MoveTo(c, c)
	for i := 0; i <= arcSteps; i++ {
		a := start + (end-start)*float64(i)/arcSteps
		x, y := point(c, r, a)
		z.LineTo(x, y)
	}
	z.ClosePath()
}

func fillSlice(dst draw.Image, c, r float32, start, end float64, col color.Color) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	slicePath(z, c, r, start, end)
	z.Draw(dst, b, image.NewUniform(col), image.Point{})
}

// outlineSlice strokes a slice by filling the ring between two radii, plus
// the two straight edges.
func outlineSlice(dst draw.Image, c, r float32, start, end float64, col color.Color) {
	const thickness = 5
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over

	z.MoveTo(point(c, r, start))
	for i := 1; i <= arcSteps; i++ {
		z.LineTo(point(c, r, start+(end-start)*float64(i)/arcSteps))
	}
	for i := arcSteps; i >= 0; i-- {
		z.LineTo(point(c, r-thickness, start+(end-start)*float64(i)/arcSteps))
	}
	z.ClosePath()

	for _, a := range []float64{start, end} {
		perp := a + math.Pi/2
		dx := float32(math.Sin(perp)) * thickness / 2
		dy := -float32(math.Cos(perp)) * thickness / 2
		ox, oy := point(c, r, a)
		z.MoveTo(c-dx, c-dy)
		z.LineTo(c+dx, c+dy)
		z.LineTo(ox+dx, oy+dy)
		z.LineTo(ox-dx, oy-dy)
		z.ClosePath()
	}
	z.Draw(dst, b, image.NewUniform(col), image.Point{})
}

func drawLabel(dst draw.Image, c, r float32, angle float64, label string) {
	if label == "" {
		return
	}
	face := basicfont.Face7x13
	width := font.MeasureString(face, label).Round()
	x, y := point(c, r, angle)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(int(x)-width/2, int(y)+face.Ascent/2),
	}
	d.DrawString(label)
}

// hsl converts hue in degrees plus saturation and lightness in [0,1].
func hsl(h, s, l float64) color.RGBA {
	h = math.Mod(h, 360) / 360
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return color.RGBA{R: v, G: v, B: v, A: 0xff}
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return color.RGBA{
		R: channel(p, q, h+1.0/3),
		G: channel(p, q, h),
		B: channel(p, q, h-1.0/3),
		A: 0xff,
	}
}

func channel(p, q, t float64) uint8 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	var v float64
	switch {
	case t < 1.0/6:
		v = p + (q-p)*6*t
	case t < 0.5:
		v = q
	case t < 2.0/3:
		v = p + (q-p)*(2.0/3-t)*6
	default:
		v = p
	}
	return uint8(math.Round(v * 255))
}
