package rimage

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func fillRect(img *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{v})
		}
	}
}

func fillDisk(img *image.Gray, cx, cy, r float64, v uint8) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if math.Hypot(float64(x)-cx, float64(y)-cy) <= r {
				img.SetGray(x, y, color.Gray{v})
			}
		}
	}
}

func TestFindExternalContoursSquare(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	fillRect(img, image.Rect(5, 5, 7, 7), 255)

	contours := FindExternalContours(img)
	test.That(t, len(contours), test.ShouldEqual, 1)
	test.That(t, contours[0], test.ShouldResemble, Contour{{5, 5}, {5, 6}, {6, 6}, {6, 5}})
	test.That(t, contours[0].Area(), test.ShouldEqual, 1.)
}

func TestFindExternalContoursSinglePixel(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	img.SetGray(1, 1, color.Gray{1})
	contours := FindExternalContours(img)
	test.That(t, len(contours), test.ShouldEqual, 1)
	test.That(t, contours[0], test.ShouldResemble, Contour{{1, 1}})
	test.That(t, contours[0].Area(), test.ShouldEqual, 0.)
}

func TestFindExternalContoursNested(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 30, 30))
	// ring with a blob in its hole, plus a separate blob
	fillRect(img, image.Rect(2, 2, 20, 20), 255)
	fillRect(img, image.Rect(5, 5, 17, 17), 0)
	fillRect(img, image.Rect(9, 9, 12, 12), 255)
	fillRect(img, image.Rect(24, 3, 28, 6), 255)

	contours := FindExternalContours(img)
	test.That(t, len(contours), test.ShouldEqual, 2)
	test.That(t, contours[0][0], test.ShouldResemble, image.Point{2, 2})
	test.That(t, contours[1][0], test.ShouldResemble, image.Point{24, 3})
	test.That(t, contours[0].Area(), test.ShouldEqual, 17.*17.)
	test.That(t, contours[1].Area(), test.ShouldEqual, 3.*2.)
	test.That(t, LargestContour(contours), test.ShouldEqual, 0)
}

func TestFindExternalContoursDiagonal(t *testing.T) {
	// 8-connectivity joins diagonal neighbours into one region
	img := image.NewGray(image.Rect(0, 0, 5, 5))
	img.SetGray(1, 1, color.Gray{255})
	img.SetGray(2, 2, color.Gray{255})
	img.SetGray(3, 3, color.Gray{255})
	contours := FindExternalContours(img)
	test.That(t, len(contours), test.ShouldEqual, 1)
	test.That(t, contours[0], test.ShouldResemble, Contour{{1, 1}, {2, 2}, {3, 3}, {2, 2}})
}

func TestFindExternalContoursOffsetBounds(t *testing.T) {
	img := image.NewGray(image.Rect(10, 20, 30, 40))
	fillRect(img, image.Rect(12, 22, 15, 25), 255)
	contours := FindExternalContours(img)
	test.That(t, len(contours), test.ShouldEqual, 1)
	test.That(t, contours[0][0], test.ShouldResemble, image.Point{12, 22})
	test.That(t, contours[0].Area(), test.ShouldEqual, 4.)
}

func TestFindExternalContoursEmpty(t *testing.T) {
	test.That(t, FindExternalContours(image.NewGray(image.Rect(0, 0, 8, 8))), test.ShouldBeEmpty)
	test.That(t, LargestContour(nil), test.ShouldEqual, -1)
}

func TestLargestContourTie(t *testing.T) {
	a := Contour{{0, 0}, {0, 2}, {2, 2}, {2, 0}}
	b := Contour{{5, 5}, {5, 7}, {7, 7}, {7, 5}}
	test.That(t, LargestContour([]Contour{a, b}), test.ShouldEqual, 0)
}

func TestDiskContourCircle(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 120, 100))
	fillDisk(img, 50, 40, 20, 255)
	contours := FindExternalContours(img)
	test.That(t, len(contours), test.ShouldEqual, 1)
	test.That(t, contours[0].Area(), test.ShouldAlmostEqual, math.Pi*20*20, 150)

	c := MinEnclosingCircle(contours[0].Points())
	test.That(t, c.Center.X, test.ShouldAlmostEqual, 50, 1)
	test.That(t, c.Center.Y, test.ShouldAlmostEqual, 40, 1)
	test.That(t, c.Radius, test.ShouldAlmostEqual, 20, 1)
	for _, p := range contours[0].Points() {
		test.That(t, c.Contains(p), test.ShouldBeTrue)
	}
}

func TestMinEnclosingCircle(t *testing.T) {
	test.That(t, MinEnclosingCircle(nil), test.ShouldResemble, Circle{})
	test.That(t, MinEnclosingCircle([]r2.Point{{X: 3, Y: 4}}), test.ShouldResemble, Circle{Center: r2.Point{X: 3, Y: 4}})

	c := MinEnclosingCircle([]r2.Point{{X: 0, Y: 0}, {X: 4, Y: 0}})
	test.That(t, c.Center.X, test.ShouldAlmostEqual, 2.)
	test.That(t, c.Radius, test.ShouldAlmostEqual, 2.)

	// right triangle: hypotenuse is the diameter
	c = MinEnclosingCircle([]r2.Point{{X: 0, Y: 0}, {X: 6, Y: 0}, {X: 0, Y: 8}, {X: 1, Y: 1}})
	test.That(t, c.Center.X, test.ShouldAlmostEqual, 3.)
	test.That(t, c.Center.Y, test.ShouldAlmostEqual, 4.)
	test.That(t, c.Radius, test.ShouldAlmostEqual, 5.)

	// equilateral triangle needs all three points
	h := math.Sqrt(3)
	c = MinEnclosingCircle([]r2.Point{{X: -1, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: h}})
	test.That(t, c.Center.Y, test.ShouldAlmostEqual, h/3)
	test.That(t, c.Radius, test.ShouldAlmostEqual, 2*h/3)

	// collinear
	c = MinEnclosingCircle([]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 3, Y: 3}})
	test.That(t, c.Radius, test.ShouldAlmostEqual, math.Sqrt(18)/2)
}

func TestCircleBounds(t *testing.T) {
	c := Circle{Center: r2.Point{X: 50.7, Y: 40.2}, Radius: 20.5}
	test.That(t, c.Bounds(), test.ShouldResemble, image.Rect(30, 19, 71, 60))
}
