package rimage

import (
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	// register decoders beyond the ones imaging pulls in.
	_ "golang.org/x/image/webp"
)

// ReadImageFromFile decodes the image at path, honouring any EXIF orientation.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "could not read image %q", path)
	}
	return img, nil
}

// DecodeImage decodes a single image from r.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode image")
	}
	return img, nil
}

// WriteImageToFile encodes img to path, choosing the format from the file extension and creating
// the parent directory if needed.
func WriteImageToFile(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrapf(err, "could not create directory for %q", path)
	}
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(err, "could not write image %q", path)
	}
	return nil
}
