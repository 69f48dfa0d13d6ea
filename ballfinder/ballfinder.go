// Package ballfinder locates the ball in a single camera frame and crops it out.
package ballfinder

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/spindoe/config"
	"go.viam.com/spindoe/rimage"
)

// ErrDetectionAbsent is returned when a frame contains no ball-sized bright region.
var ErrDetectionAbsent = errors.New("no ball detected")

// Ball is a ball found in a frame.
type Ball struct {
	// Center and Radius describe the minimal circle enclosing the ball's outline, in pixels of
	// the source frame.
	Center r2.Point
	Radius float64
	// Bounds is the crop window in source frame coordinates, already clipped to the frame.
	Bounds image.Rectangle
	// Crop holds a copy of the pixels inside Bounds, with its origin at (0, 0).
	Crop image.Image
}

// Finder localizes balls with a fixed set of parameters. It is safe for concurrent use.
type Finder struct {
	cfg    config.Localizer
	kernel *rimage.Kernel
}

// NewFinder validates cfg and returns a Finder using it.
func NewFinder(cfg config.Localizer) (*Finder, error) {
	if err := cfg.Validate("localizer"); err != nil {
		return nil, err
	}
	kernel, err := rimage.GaussianKernel(cfg.BlurKernelSize, cfg.BlurSigma)
	if err != nil {
		return nil, err
	}
	return &Finder{cfg: cfg, kernel: kernel}, nil
}

// Localize finds the largest bright region of img and returns the square crop around its
// enclosing circle. It returns an error wrapping ErrDetectionAbsent when there is no region or
// the region is smaller than the configured minimum radius.
func (f *Finder) Localize(img image.Image) (*Ball, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errors.Wrap(ErrDetectionAbsent, "empty image")
	}
	gray := rimage.MakeGray(img)
	half := f.cfg.BlurKernelSize / 2
	blurred, err := rimage.ConvolveGray(gray, f.kernel, image.Point{half, half}, rimage.BorderReflect101)
	if err != nil {
		return nil, err
	}
	binary := rimage.Threshold(blurred, uint8(f.cfg.Threshold))

	contours := rimage.FindExternalContours(binary)
	largest := rimage.LargestContour(contours)
	if largest < 0 {
		return nil, errors.Wrap(ErrDetectionAbsent, "no bright region")
	}
	circle := rimage.MinEnclosingCircle(contours[largest].Points())
	if circle.Radius < f.cfg.MinRadiusPx {
		return nil, errors.Wrapf(ErrDetectionAbsent, "largest region radius %.1fpx is below %.1fpx",
			circle.Radius, f.cfg.MinRadiusPx)
	}

	window := cropWindow(circle).Intersect(bounds)
	if window.Empty() {
		return nil, errors.Wrap(ErrDetectionAbsent, "crop window outside of frame")
	}
	return &Ball{
		Center: circle.Center,
		Radius: circle.Radius,
		Bounds: window,
		Crop:   rimage.Crop(img, window),
	}, nil
}

// cropWindow truncates center and radius to integers before building the square, so the
// window side is always twice the integer radius.
func cropWindow(c rimage.Circle) image.Rectangle {
	cx, cy, r := int(c.Center.X), int(c.Center.Y), int(c.Radius)
	return image.Rect(cx-r, cy-r, cx+r, cy+r)
}
