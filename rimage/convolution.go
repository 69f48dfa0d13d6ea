package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/spindoe/utils"
)

// BorderPad selects how pixels outside the image are synthesized during a convolution.
type BorderPad int

const (
	// BorderReflect101 mirrors the image without repeating the edge pixel: gfedcb|abcdefgh|gfedcba.
	BorderReflect101 BorderPad = iota
	// BorderReplicate repeats the edge pixel: aaaaaa|abcdefgh|hhhhhhh.
	BorderReplicate
	// BorderConstant treats everything outside the image as zero.
	BorderConstant
)

// Kernel is a 2D convolution filter stored row by row.
type Kernel struct {
	Content [][]float64
	Height  int
	Width   int
}

// NewKernel creates a zero kernel of the given size.
func NewKernel(width, height int) (*Kernel, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("kernel dimensions must be positive, got %dx%d", width, height)
	}
	content := make([][]float64, height)
	for i := range content {
		content[i] = make([]float64, width)
	}
	return &Kernel{Content: content, Height: height, Width: width}, nil
}

// Size returns the kernel width and height.
func (k *Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// At returns the weight at column x, row y.
func (k *Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// Sum returns the sum of all weights.
func (k *Kernel) Sum() float64 {
	var sum float64
	for _, row := range k.Content {
		for _, v := range row {
			sum += v
		}
	}
	return sum
}

// Normalize scales the kernel so that its weights add up to 1.
func (k *Kernel) Normalize() {
	sum := k.Sum()
	if sum == 0 {
		return
	}
	for _, row := range k.Content {
		for i := range row {
			row[i] /= sum
		}
	}
}

// GaussianSigmaForSize returns the standard deviation used for a Gaussian kernel of the given
// size when none is specified.
func GaussianSigmaForSize(size int) float64 {
	return 0.3*(float64(size-1)*0.5-1) + 0.8
}

// GaussianKernel returns a normalized size x size Gaussian kernel. A non-positive sigma is
// derived from the size.
func GaussianKernel(size int, sigma float64) (*Kernel, error) {
	if size <= 0 || size%2 == 0 {
		return nil, errors.Errorf("gaussian kernel size must be odd and positive, got %d", size)
	}
	if sigma <= 0 {
		sigma = GaussianSigmaForSize(size)
	}
	half := size / 2
	weights := make([]float64, size)
	for i := range weights {
		d := float64(i - half)
		weights[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}
	k, err := NewKernel(size, size)
	if err != nil {
		return nil, err
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			k.Content[y][x] = weights[y] * weights[x]
		}
	}
	k.Normalize()
	return k, nil
}

// borderIndex maps an out of range coordinate back inside [0, n). It returns -1 when the
// pixel should read as zero.
func borderIndex(i, n int, border BorderPad) int {
	if i >= 0 && i < n {
		return i
	}
	switch border {
	case BorderReplicate:
		return utils.MinInt(utils.MaxInt(i, 0), n-1)
	case BorderConstant:
		return -1
	default:
		if n == 1 {
			return 0
		}
		period := 2 * (n - 1)
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - i
		}
		return i
	}
}

// ConvolveGray applies a convolution matrix (Kernel) to a grayscale image.
// Example of usage:
//
//	res, err := rimage.ConvolveGray(img, kernel, image.Point{2, 2}, rimage.BorderReflect101)
//
// Note: the anchor represents a point inside the area of the kernel. After every step of the
// convolution the position specified by the anchor point gets updated on the result image.
func ConvolveGray(img *image.Gray, kernel *Kernel, anchor image.Point, border BorderPad) (*image.Gray, error) {
	kernelSize := kernel.Size()
	if !anchor.In(image.Rectangle{Max: kernelSize}) {
		return nil, errors.Errorf("anchor %v is outside of the %v kernel", anchor, kernelSize)
	}
	bounds := img.Bounds()
	size := bounds.Size()
	resultImage := image.NewGray(bounds)
	if size.X == 0 || size.Y == 0 {
		return resultImage, nil
	}
	utils.ParallelForEachPixel(size, func(x, y int) {
		sum := float64(0)
		for ky := 0; ky < kernelSize.Y; ky++ {
			sy := borderIndex(y+ky-anchor.Y, size.Y, border)
			if sy < 0 {
				continue
			}
			for kx := 0; kx < kernelSize.X; kx++ {
				sx := borderIndex(x+kx-anchor.X, size.X, border)
				if sx < 0 {
					continue
				}
				pixel := img.GrayAt(bounds.Min.X+sx, bounds.Min.Y+sy)
				sum += float64(pixel.Y) * kernel.At(kx, ky)
			}
		}
		sum = utils.ClampF64(math.Round(sum), 0, 255)
		resultImage.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{uint8(sum)})
	})
	return resultImage, nil
}

// GaussianBlurGray blurs img with a size x size Gaussian kernel centered on each pixel.
func GaussianBlurGray(img *image.Gray, size int, sigma float64) (*image.Gray, error) {
	kernel, err := GaussianKernel(size, sigma)
	if err != nil {
		return nil, err
	}
	return ConvolveGray(img, kernel, image.Point{size / 2, size / 2}, BorderReflect101)
}
