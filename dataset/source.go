// Package dataset turns a stream of camera frames into time-stamped, normalized ball images.
package dataset

import (
	"context"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/maruel/natural"
	"github.com/pkg/errors"

	"go.viam.com/spindoe/rimage"
)

// ErrDecodeFailure marks a frame that could not be decoded. The frame's index is still consumed.
var ErrDecodeFailure = errors.New("frame could not be decoded")

// Frame is one decoded image of the sequence and its zero-based capture index.
type Frame struct {
	Image image.Image
	Index int
}

// A FrameSource yields frames in capture order. Next returns io.EOF once the sequence is
// exhausted. A returned error wrapping ErrDecodeFailure is per frame: the Frame carries the
// failed index and the next call continues with the following frame.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// SliceSource serves in-memory images. A nil entry behaves as an undecodable frame.
type SliceSource struct {
	images []image.Image
	next   int
}

// NewSliceSource returns a source over images, indexed from zero.
func NewSliceSource(images ...image.Image) *SliceSource {
	return &SliceSource{images: images}
}

// Next returns the next image.
func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.next >= len(s.images) {
		return Frame{}, io.EOF
	}
	idx := s.next
	s.next++
	if s.images[idx] == nil {
		return Frame{Index: idx}, errors.Wrapf(ErrDecodeFailure, "frame %d is empty", idx)
	}
	return Frame{Image: s.images[idx], Index: idx}, nil
}

// Close does nothing.
func (s *SliceSource) Close() error {
	return nil
}

// DirectorySource reads image files matching a glob pattern from a directory, in natural file
// name order: runs of digits compare by value, so "vid_2.png" precedes "vid_10.png".
type DirectorySource struct {
	paths []string
	next  int
}

// NewDirectorySource lists the files in dir matching pattern.
func NewDirectorySource(dir, pattern string) (*DirectorySource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read frame directory %q", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%q is not a directory", dir)
	}
	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "bad frame pattern %q", pattern)
	}
	sort.Sort(natural.StringSlice(paths))
	return &DirectorySource{paths: paths}, nil
}

// Len returns the number of files matched.
func (s *DirectorySource) Len() int {
	return len(s.paths)
}

// Next decodes the next file.
func (s *DirectorySource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.next >= len(s.paths) {
		return Frame{}, io.EOF
	}
	idx := s.next
	s.next++
	img, err := rimage.ReadImageFromFile(s.paths[idx])
	if err != nil {
		return Frame{Index: idx}, errors.Wrapf(ErrDecodeFailure, "%s: %v", s.paths[idx], err)
	}
	return Frame{Image: img, Index: idx}, nil
}

// Close does nothing.
func (s *DirectorySource) Close() error {
	return nil
}
