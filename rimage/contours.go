package rimage

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
)

// Contour is a closed border of a connected foreground region, in tracing order.
type Contour []image.Point

// neighbors lists the 8-neighbourhood counterclockwise on screen, starting east.
var neighbors = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

const westNeighbor = 4

func neighborIndex(d image.Point) int {
	for i, n := range neighbors {
		if n == d {
			return i
		}
	}
	return -1
}

// Area returns the absolute polygon area enclosed by the contour (shoelace formula). A contour
// of fewer than three points has zero area.
func (c Contour) Area() float64 {
	if len(c) < 3 {
		return 0
	}
	var twice int
	for i, p := range c {
		q := c[(i+1)%len(c)]
		twice += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(float64(twice)) / 2
}

// Points returns the contour vertices as real-valued points.
func (c Contour) Points() []r2.Point {
	pts := make([]r2.Point, len(c))
	for i, p := range c {
		pts[i] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return pts
}

// binaryImage is a foreground mask in image-local coordinates.
type binaryImage struct {
	w, h int
	fg   []bool
}

func newBinaryImage(img *image.Gray) *binaryImage {
	b := img.Bounds()
	bin := &binaryImage{w: b.Dx(), h: b.Dy(), fg: make([]bool, b.Dx()*b.Dy())}
	for y := 0; y < bin.h; y++ {
		for x := 0; x < bin.w; x++ {
			bin.fg[y*bin.w+x] = img.GrayAt(b.Min.X+x, b.Min.Y+y).Y != 0
		}
	}
	return bin
}

func (b *binaryImage) at(p image.Point) bool {
	if p.X < 0 || p.Y < 0 || p.X >= b.w || p.Y >= b.h {
		return false
	}
	return b.fg[p.Y*b.w+p.X]
}

// FindExternalContours returns the outer borders of the outermost foreground regions of a binary
// image, where any non-zero pixel is foreground. Regions are 8-connected, and a region nested in
// a hole of another region is not reported. Contours are ordered by the raster position of their
// top-left pixel and their points are in the image's coordinate space.
func FindExternalContours(img *image.Gray) []Contour {
	bin := newBinaryImage(img)
	outside := bin.outsideBackground()
	labels := make([]int, len(bin.fg))
	var contours []Contour
	label := 0
	for y := 0; y < bin.h; y++ {
		for x := 0; x < bin.w; x++ {
			idx := y*bin.w + x
			if !bin.fg[idx] || labels[idx] != 0 {
				continue
			}
			label++
			if !bin.labelRegion(image.Point{x, y}, label, labels, outside) {
				continue
			}
			contour := bin.traceOuterBorder(image.Point{x, y})
			origin := img.Bounds().Min
			for i := range contour {
				contour[i] = contour[i].Add(origin)
			}
			contours = append(contours, contour)
		}
	}
	return contours
}

// outsideBackground marks the background pixels 4-connected to the image frame.
func (b *binaryImage) outsideBackground() []bool {
	outside := make([]bool, len(b.fg))
	var stack []image.Point
	push := func(p image.Point) {
		if p.X < 0 || p.Y < 0 || p.X >= b.w || p.Y >= b.h {
			return
		}
		idx := p.Y*b.w + p.X
		if b.fg[idx] || outside[idx] {
			return
		}
		outside[idx] = true
		stack = append(stack, p)
	}
	for x := 0; x < b.w; x++ {
		push(image.Point{x, 0})
		push(image.Point{x, b.h - 1})
	}
	for y := 0; y < b.h; y++ {
		push(image.Point{0, y})
		push(image.Point{b.w - 1, y})
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range []image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			push(p.Add(d))
		}
	}
	return outside
}

// labelRegion floods the 8-connected region containing start and reports whether it borders the
// outside background or the image frame.
func (b *binaryImage) labelRegion(start image.Point, label int, labels []int, outside []bool) bool {
	external := false
	labels[start.Y*b.w+start.X] = label
	stack := []image.Point{start}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i, d := range neighbors {
			q := p.Add(d)
			if q.X < 0 || q.Y < 0 || q.X >= b.w || q.Y >= b.h {
				external = true
				continue
			}
			idx := q.Y*b.w + q.X
			if !b.fg[idx] {
				// diagonal background pixels belong to the hole or outside only via 4-neighbours
				if i%2 == 0 && outside[idx] {
					external = true
				}
				continue
			}
			if labels[idx] == 0 {
				labels[idx] = label
				stack = append(stack, q)
			}
		}
	}
	return external
}

// traceOuterBorder follows the outer border of the region whose first pixel in raster order is
// start, using Suzuki and Abe's border following.
func (b *binaryImage) traceOuterBorder(start image.Point) Contour {
	// clockwise from the west neighbour for the pixel preceding start on the border
	first := -1
	for k := 0; k < 8; k++ {
		d := (westNeighbor - k + 8) % 8
		if b.at(start.Add(neighbors[d])) {
			first = d
			break
		}
	}
	if first < 0 {
		return Contour{start}
	}
	p1 := start.Add(neighbors[first])
	prev, cur := p1, start
	var contour Contour
	for limit := 4*len(b.fg) + 8; limit > 0; limit-- {
		d := neighborIndex(prev.Sub(cur))
		next := cur
		for k := 1; k <= 8; k++ {
			q := cur.Add(neighbors[(d+k)%8])
			if b.at(q) {
				next = q
				break
			}
		}
		contour = append(contour, cur)
		if next == start && cur == p1 {
			break
		}
		prev, cur = cur, next
	}
	return contour
}

// LargestContour returns the index of the contour with the greatest area, the first one on ties,
// or -1 when there are none.
func LargestContour(contours []Contour) int {
	best := -1
	bestArea := -1.0
	for i, c := range contours {
		if a := c.Area(); a > bestArea {
			best, bestArea = i, a
		}
	}
	return best
}
