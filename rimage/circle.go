package rimage

import (
	"image"
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
)

const circleEpsilon = 1e-7

// Circle is a circle in image coordinates.
type Circle struct {
	Center r2.Point
	Radius float64
}

// Contains reports whether p lies inside or on the circle.
func (c Circle) Contains(p r2.Point) bool {
	return p.Sub(c.Center).Norm() <= c.Radius+circleEpsilon
}

// Bounds returns the square [cx-r, cx+r) x [cy-r, cy+r) with every coordinate truncated to an
// integer. The rectangle is not clipped to any image.
func (c Circle) Bounds() image.Rectangle {
	return image.Rect(
		int(c.Center.X-c.Radius), int(c.Center.Y-c.Radius),
		int(c.Center.X+c.Radius), int(c.Center.Y+c.Radius),
	)
}

func circleFrom2(a, b r2.Point) Circle {
	center := a.Add(b).Mul(0.5)
	return Circle{Center: center, Radius: a.Sub(center).Norm()}
}

func circleFrom3(a, b, c r2.Point) Circle {
	bx, by := b.X-a.X, b.Y-a.Y
	cx, cy := c.X-a.X, c.Y-a.Y
	d := 2 * (bx*cy - by*cx)
	if math.Abs(d) < 1e-12 {
		// collinear: the farthest pair spans the circle
		best := circleFrom2(a, b)
		for _, cand := range []Circle{circleFrom2(a, c), circleFrom2(b, c)} {
			if cand.Radius > best.Radius {
				best = cand
			}
		}
		return best
	}
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (cy*b2 - by*c2) / d
	uy := (bx*c2 - cx*b2) / d
	center := r2.Point{X: a.X + ux, Y: a.Y + uy}
	return Circle{Center: center, Radius: math.Hypot(ux, uy)}
}

// MinEnclosingCircle returns the smallest circle containing every point, computed with Welzl's
// incremental algorithm over a fixed shuffle of the input so that results are reproducible.
func MinEnclosingCircle(points []r2.Point) Circle {
	switch len(points) {
	case 0:
		return Circle{}
	case 1:
		return Circle{Center: points[0]}
	}
	pts := make([]r2.Point, len(points))
	copy(pts, points)
	rng := rand.New(rand.NewSource(int64(len(pts))))
	rng.Shuffle(len(pts), func(i, j int) { pts[i], pts[j] = pts[j], pts[i] })

	c := Circle{Center: pts[0]}
	for i := 1; i < len(pts); i++ {
		if c.Contains(pts[i]) {
			continue
		}
		c = Circle{Center: pts[i]}
		for j := 0; j < i; j++ {
			if c.Contains(pts[j]) {
				continue
			}
			c = circleFrom2(pts[i], pts[j])
			for k := 0; k < j; k++ {
				if !c.Contains(pts[k]) {
					c = circleFrom3(pts[i], pts[j], pts[k])
				}
			}
		}
	}
	return c
}
