package orientation

import (
	"context"
	"encoding/json"
	"image"
	"io"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/spindoe/spatialmath"
)

// Record is one externally computed orientation as stored in a table file. A valid record
// carries exactly one of a row-major 3x3 rotation matrix, a unit quaternion [w, x, y, z] or an
// axis-angle {"th", "x", "y", "z"}.
type Record struct {
	TimestampNs int64             `json:"timestamp_ns"`
	Rotation    []float64         `json:"rotation,omitempty"`
	Quaternion  []float64         `json:"quaternion,omitempty"`
	AxisAngle   *spatialmath.R4AA `json:"axis_angle,omitempty"`
	Valid       bool              `json:"valid"`
}

// quaternionTolerance bounds how far from unit length a stored quaternion may be.
const quaternionTolerance = 1e-3

// orientation returns the single orientation rec carries, or nil if it carries none.
func (rec *Record) orientation() (spatialmath.Orientation, error) {
	var found []spatialmath.Orientation
	if len(rec.Rotation) > 0 {
		rot, err := spatialmath.NewRotationMatrix(rec.Rotation)
		if err != nil {
			return nil, err
		}
		found = append(found, rot)
	}
	if len(rec.Quaternion) > 0 {
		if len(rec.Quaternion) != 4 {
			return nil, errors.Errorf("quaternion has %d elements, need exactly 4", len(rec.Quaternion))
		}
		q := spatialmath.Quaternion(quat.Number{
			Real: rec.Quaternion[0], Imag: rec.Quaternion[1], Jmag: rec.Quaternion[2], Kmag: rec.Quaternion[3],
		})
		if norm := spatialmath.Norm(q.Quaternion()); math.Abs(norm-1) > quaternionTolerance {
			return nil, errors.Errorf("quaternion has length %f, expected 1", norm)
		}
		found = append(found, &q)
	}
	if rec.AxisAngle != nil {
		aa := rec.AxisAngle
		if aa.RX == 0 && aa.RY == 0 && aa.RZ == 0 && aa.Theta != 0 {
			return nil, errors.New("axis_angle has a zero axis")
		}
		found = append(found, aa)
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		return nil, errors.New("record carries more than one of rotation, quaternion and axis_angle")
	}
}

// Table is an Estimator that looks orientations up by capture time. It serves results computed
// ahead of time by a dot-pattern detector running outside this program.
type Table struct {
	byTime map[int64]Sample
}

// NewTable builds a table from samples. Duplicate timestamps are rejected.
func NewTable(samples []Sample) (*Table, error) {
	t := &Table{byTime: make(map[int64]Sample, len(samples))}
	for _, s := range samples {
		if _, ok := t.byTime[s.TimestampNs]; ok {
			return nil, errors.Errorf("duplicate orientation for timestamp %d", s.TimestampNs)
		}
		t.byTime[s.TimestampNs] = s
	}
	return t, nil
}

// ReadTable loads a JSON array of records from path.
func ReadTable(path string) (*Table, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open orientation table %q", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	samples, err := DecodeSamples(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading orientation table %q", path)
	}
	return NewTable(samples)
}

// DecodeSamples decodes a JSON array of records. Every valid record must carry an
// orientation; all orientations are converted to rotation matrices.
func DecodeSamples(r io.Reader) ([]Sample, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, errors.Wrap(err, "failed to decode orientation records from json")
	}
	samples := make([]Sample, 0, len(records))
	for i, rec := range records {
		s := Sample{TimestampNs: rec.TimestampNs, Valid: rec.Valid}
		o, err := rec.orientation()
		if err == nil && o == nil && rec.Valid {
			err = errors.New("valid record has no orientation")
		}
		if err != nil {
			return nil, errors.Wrapf(err, "record %d (timestamp %d)", i, rec.TimestampNs)
		}
		if o != nil {
			s.Rotation = o.RotationMatrix()
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// EncodeSamples writes samples as a JSON array of records.
func EncodeSamples(w io.Writer, samples []Sample) error {
	records := lo.Map(samples, func(s Sample, _ int) Record {
		rec := Record{TimestampNs: s.TimestampNs, Valid: s.Valid}
		if s.Rotation != nil {
			rec.Rotation = s.Rotation.Slice()
		}
		return rec
	})
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// Samples returns the table's contents sorted by time.
func (t *Table) Samples() []Sample {
	samples := lo.Values(t.byTime)
	sort.Slice(samples, func(i, j int) bool { return samples[i].TimestampNs < samples[j].TimestampNs })
	return samples
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.byTime)
}

// Estimate cannot answer without a timestamp and always reports an invalid reading.
func (t *Table) Estimate(ctx context.Context, img image.Image) (*spatialmath.RotationMatrix, bool, error) {
	return nil, false, nil
}

// EstimateAt returns the stored orientation for timestampNs. Missing timestamps are invalid
// readings, not errors.
func (t *Table) EstimateAt(ctx context.Context, timestampNs int64, img image.Image) (*spatialmath.RotationMatrix, bool, error) {
	s, ok := t.byTime[timestampNs]
	if !ok || !s.Valid {
		return nil, false, nil
	}
	return s.Rotation, true, nil
}
