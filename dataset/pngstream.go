package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"image/png"
	"io"

	"github.com/pkg/errors"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// maxPNGChunk caps the length field accepted from a chunk header. A larger value means the
// header is corrupt and the reader falls back to searching for the next signature.
const maxPNGChunk = 1 << 26

// PNGStreamSource reads frames from back to back PNG images, the format ffmpeg writes with
// image2pipe. Images are delimited by walking their chunks up to IEND, so a frame whose data
// is damaged only costs that frame: it is reported as a decode failure and reading resumes at
// the next PNG signature.
type PNGStreamSource struct {
	r    *bufio.Reader
	next int
}

// NewPNGStreamSource reads frames from r. The caller owns r.
func NewPNGStreamSource(r io.Reader) *PNGStreamSource {
	return &PNGStreamSource{r: bufio.NewReader(r)}
}

// Next decodes the next image of the stream.
func (s *PNGStreamSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	data, err := s.readImage()
	if err != nil {
		return Frame{}, err
	}
	idx := s.next
	s.next++
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{Index: idx}, errors.Wrapf(ErrDecodeFailure, "video frame %d: %v", idx, err)
	}
	return Frame{Image: img, Index: idx}, nil
}

// Close does nothing.
func (s *PNGStreamSource) Close() error {
	return nil
}

// readImage returns the bytes of the next image. Damaged images are returned as they were
// found, ending where the next signature starts. io.EOF means the stream ended cleanly.
func (s *PNGStreamSource) readImage() ([]byte, error) {
	head, err := s.r.Peek(len(pngSignature))
	if len(head) == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	if !bytes.Equal(head, pngSignature) {
		// stray bytes between images count as one damaged frame
		return s.skipToSignature(nil)
	}
	buf := make([]byte, len(pngSignature), 64<<10)
	copy(buf, head)
	if _, err := s.r.Discard(len(pngSignature)); err != nil {
		return nil, err
	}

	for {
		header, err := s.r.Peek(8)
		if err != nil {
			if len(header) == 0 && !errors.Is(err, io.EOF) {
				return nil, err
			}
			return s.skipToSignature(buf)
		}
		length := binary.BigEndian.Uint32(header[:4])
		kind := string(header[4:8])
		if length > maxPNGChunk || !validChunkType(header[4:8]) {
			return s.skipToSignature(buf)
		}
		chunk := make([]byte, 12+int(length))
		n, err := io.ReadFull(s.r, chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return buf, nil
			}
			return nil, err
		}
		if kind == "IEND" {
			return buf, nil
		}
	}
}

// skipToSignature appends bytes to buf until the reader is positioned at a PNG signature or the
// stream ends.
func (s *PNGStreamSource) skipToSignature(buf []byte) ([]byte, error) {
	for {
		head, err := s.r.Peek(len(pngSignature))
		if len(head) == len(pngSignature) && bytes.Equal(head, pngSignature) {
			return buf, nil
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			rest, err := io.ReadAll(s.r)
			if err != nil {
				return nil, err
			}
			return append(buf, rest...), nil
		}
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b)
	}
}

func validChunkType(kind []byte) bool {
	for _, c := range kind {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
