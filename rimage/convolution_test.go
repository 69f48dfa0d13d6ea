package rimage

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestGaussianKernel(t *testing.T) {
	k, err := GaussianKernel(5, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, k.Size(), test.ShouldResemble, image.Point{5, 5})
	test.That(t, k.Sum(), test.ShouldAlmostEqual, 1.0)
	test.That(t, GaussianSigmaForSize(5), test.ShouldAlmostEqual, 1.1)

	// symmetric and peaked at the center
	test.That(t, k.At(0, 0), test.ShouldAlmostEqual, k.At(4, 4))
	test.That(t, k.At(1, 2), test.ShouldAlmostEqual, k.At(2, 1))
	test.That(t, k.At(2, 2), test.ShouldBeGreaterThan, k.At(1, 2))

	_, err = GaussianKernel(4, 1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = GaussianKernel(0, 1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConvolveGray(t *testing.T) {
	t.Run("uniform image is unchanged", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 17, 9))
		for i := range img.Pix {
			img.Pix[i] = 120
		}
		out, err := GaussianBlurGray(img, 5, 0)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Bounds(), test.ShouldResemble, img.Bounds())
		for _, v := range out.Pix {
			test.That(t, v, test.ShouldEqual, uint8(120))
		}
	})

	t.Run("identity kernel", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 4, 3))
		for i := range img.Pix {
			img.Pix[i] = uint8(i * 10)
		}
		k, err := NewKernel(3, 3)
		test.That(t, err, test.ShouldBeNil)
		k.Content[1][1] = 1
		out, err := ConvolveGray(img, k, image.Point{1, 1}, BorderConstant)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Pix, test.ShouldResemble, img.Pix)
	})

	t.Run("constant border darkens edges", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 5, 5))
		for i := range img.Pix {
			img.Pix[i] = 90
		}
		k, err := NewKernel(3, 3)
		test.That(t, err, test.ShouldBeNil)
		for y := 0; y < 3; y++ {
			for x := 0; x < 3; x++ {
				k.Content[y][x] = 1. / 9
			}
		}
		out, err := ConvolveGray(img, k, image.Point{1, 1}, BorderConstant)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.GrayAt(0, 0), test.ShouldResemble, color.Gray{40})
		test.That(t, out.GrayAt(2, 2), test.ShouldResemble, color.Gray{90})

		out, err = ConvolveGray(img, k, image.Point{1, 1}, BorderReplicate)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.GrayAt(0, 0), test.ShouldResemble, color.Gray{90})
	})

	t.Run("bad anchor", func(t *testing.T) {
		k, err := NewKernel(3, 3)
		test.That(t, err, test.ShouldBeNil)
		_, err = ConvolveGray(image.NewGray(image.Rect(0, 0, 2, 2)), k, image.Point{3, 0}, BorderReflect101)
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestBorderIndex(t *testing.T) {
	for _, tc := range []struct {
		i, n     int
		border   BorderPad
		expected int
	}{
		{-1, 5, BorderReflect101, 1},
		{-2, 5, BorderReflect101, 2},
		{5, 5, BorderReflect101, 3},
		{6, 5, BorderReflect101, 2},
		{-3, 1, BorderReflect101, 0},
		{-2, 5, BorderReplicate, 0},
		{7, 5, BorderReplicate, 4},
		{-1, 5, BorderConstant, -1},
		{3, 5, BorderConstant, 3},
	} {
		test.That(t, borderIndex(tc.i, tc.n, tc.border), test.ShouldEqual, tc.expected)
	}
}
