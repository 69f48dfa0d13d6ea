package rimage

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestMakeGray(t *testing.T) {
	img := image.NewNRGBA(image.Rect(2, 3, 6, 5))
	img.Set(2, 3, color.NRGBA{255, 255, 255, 255})
	img.Set(5, 4, color.NRGBA{0, 0, 0, 255})
	gray := MakeGray(img)
	test.That(t, gray.Bounds(), test.ShouldResemble, img.Bounds())
	test.That(t, gray.GrayAt(2, 3).Y, test.ShouldEqual, uint8(255))
	test.That(t, gray.GrayAt(5, 4).Y, test.ShouldEqual, uint8(0))

	test.That(t, MakeGray(gray), test.ShouldEqual, gray)
}

func TestThreshold(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(img.Pix, []uint8{0, 50, 51, 200})
	out := Threshold(img, 50)
	test.That(t, out.Pix, test.ShouldResemble, []uint8{0, 0, 255, 255})

	sub := img.SubImage(image.Rect(2, 0, 4, 1)).(*image.Gray)
	out = Threshold(sub, 50)
	test.That(t, out.Bounds(), test.ShouldResemble, image.Rect(2, 0, 4, 1))
	test.That(t, out.GrayAt(2, 0).Y, test.ShouldEqual, uint8(255))
}
