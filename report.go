package spindoe

import (
	"encoding/json"
	"io"

	"go.viam.com/spindoe/spin"
)

// Report is the serialized form of a spin estimate.
type Report struct {
	AngularVelocity [3]float64 `json:"angular_velocity_rad_s"`
	Axis            [3]float64 `json:"axis"`
	RadPerSecond    float64    `json:"rad_s"`
	RPS             float64    `json:"rps"`
	Inliers         []int      `json:"inliers"`
	Samples         int        `json:"samples"`
	InlierRatio     float64    `json:"inlier_ratio"`
	ResidualRad     float64    `json:"residual_rad"`
}

// NewReport summarizes est.
func NewReport(est *spin.Estimate) Report {
	w, a := est.AngularVelocity, est.Axis()
	return Report{
		AngularVelocity: [3]float64{w.X, w.Y, w.Z},
		Axis:            [3]float64{a.X, a.Y, a.Z},
		RadPerSecond:    est.Magnitude(),
		RPS:             est.RPS(),
		Inliers:         est.Inliers,
		Samples:         est.Samples,
		InlierRatio:     est.InlierRatio(),
		ResidualRad:     est.Residual,
	}
}

// WriteReport writes est as indented JSON.
func WriteReport(w io.Writer, est *spin.Estimate) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewReport(est))
}
