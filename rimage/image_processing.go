package rimage

import (
	"image"

	"github.com/disintegration/imaging"
)

// Crop returns a copy of the part of img inside rect, clipped to the image bounds. The result's
// bounds start at the origin.
func Crop(img image.Image, rect image.Rectangle) *image.NRGBA {
	return imaging.Crop(img, rect.Intersect(img.Bounds()))
}

// Resize scales img to exactly width x height. Shrinking averages the source area covered by
// each output pixel; enlarging interpolates linearly.
func Resize(img image.Image, width, height int) *image.NRGBA {
	size := img.Bounds().Size()
	if size.X == width && size.Y == height {
		return imaging.Clone(img)
	}
	filter := imaging.Box
	if width > size.X || height > size.Y {
		filter = imaging.Linear
	}
	return imaging.Resize(img, width, height, filter)
}
