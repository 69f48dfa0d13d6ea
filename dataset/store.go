package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/spindoe/rimage"
)

// FileName returns the stored file name of a ball captured at timestampNs.
func FileName(timestampNs int64) string {
	return fmt.Sprintf("%d.png", timestampNs)
}

// ParseTimestamp recovers the capture time in nanoseconds from a stored file name.
func ParseTimestamp(path string) (int64, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	ts, err := strconv.ParseInt(stem, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "%q is not named after a timestamp", base)
	}
	if ts < 0 {
		return 0, errors.Errorf("%q has a negative timestamp", base)
	}
	return ts, nil
}

// Writer stores normalized ball images as <timestamp_ns>.png. When a raw directory is set the
// unresized crop is written there under the same name.
type Writer struct {
	dir    string
	rawDir string
}

// NewWriter creates the output directories if needed. rawDir may be empty.
func NewWriter(dir, rawDir string) (*Writer, error) {
	for _, d := range []string{dir, rawDir} {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o750); err != nil {
			return nil, errors.Wrapf(err, "cannot create output directory %q", d)
		}
	}
	return &Writer{dir: dir, rawDir: rawDir}, nil
}

// Write stores ball and returns the path of the normalized image.
func (w *Writer) Write(ball LocalizedBall) (string, error) {
	if ball.Normalized == nil {
		return "", errors.Errorf("ball at %dns has no normalized image", ball.TimestampNs)
	}
	name := FileName(ball.TimestampNs)
	path := filepath.Join(w.dir, name)
	if err := rimage.WriteImageToFile(path, ball.Normalized); err != nil {
		return "", err
	}
	if w.rawDir != "" && ball.Crop != nil {
		if err := rimage.WriteImageToFile(filepath.Join(w.rawDir, name), ball.Crop); err != nil {
			return "", err
		}
	}
	return path, nil
}

// ReadDirectory loads stored ball images back in time order. Files not named after a
// timestamp are ignored. When frameIntervalNs is positive the frame index is recovered from
// the timestamp, otherwise it is -1.
func ReadDirectory(dir string, frameIntervalNs int64) ([]LocalizedBall, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list %q", dir)
	}
	type stored struct {
		path string
		ts   int64
	}
	var files []stored
	for _, p := range paths {
		ts, err := ParseTimestamp(p)
		if err != nil {
			continue
		}
		files = append(files, stored{p, ts})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ts < files[j].ts })

	balls := make([]LocalizedBall, 0, len(files))
	for _, f := range files {
		img, err := rimage.ReadImageFromFile(f.path)
		if err != nil {
			return nil, err
		}
		index := -1
		if frameIntervalNs > 0 {
			index = int(f.ts / frameIntervalNs)
		}
		ball := LocalizedBall{Index: index, TimestampNs: f.ts, Normalized: img}
		ball.Crop = img
		ball.Bounds = img.Bounds()
		balls = append(balls, ball)
	}
	return balls, nil
}
