package rimage

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// MakeGray converts any image to an 8-bit luma image sharing its bounds.
func MakeGray(pic image.Image) *image.Gray {
	if g, ok := pic.(*image.Gray); ok {
		return g
	}
	result := image.NewGray(pic.Bounds())
	draw.Draw(result, result.Bounds(), pic, pic.Bounds().Min, draw.Src)
	return result
}

// Threshold returns a binary image: pixels strictly brighter than cutoff become 255, the rest 0.
func Threshold(pic *image.Gray, cutoff uint8) *image.Gray {
	b := pic.Bounds()
	result := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if pic.GrayAt(x, y).Y > cutoff {
				result.SetGray(x, y, color.Gray{255})
			}
		}
	}
	return result
}

// SameImgSize compares two images to see if they're the same size.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Size() == g2.Bounds().Size()
}
