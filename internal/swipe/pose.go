package swipe

import "math"

// Pose is the continuous transform applied to a slot.
type Pose struct {
	DX          float64 `json:"dx"`
	DY          float64 `json:"dy"`
	RotationDeg float64 `json:"rotationDeg"`
	Scale       float64 `json:"scale"`
	Opacity     float64 `json:"opacity"`
}

// IdentityPose is the resting pose of the active slot.
func IdentityPose() Pose { return Pose{Scale: 1, Opacity: 1} }

// StagedPose is the pose of the hidden slot: identity transform, invisible.
func StagedPose() Pose { return Pose{Scale: 1, Opacity: 0} }

// IsIdentity reports whether p is the active resting pose.
func (p Pose) IsIdentity() bool { return p == IdentityPose() }

// PoseAt derives the full pose for a displacement. Rotation and scale are pure
// functions of dx; dy is carried through unchanged.
func PoseAt(dx, dy, width float64) Pose {
	return Pose{
		DX:          dx,
		DY:          dy,
		RotationDeg: rotationFor(dx, width),
		Scale:       scaleFor(dx, width),
		Opacity:     1,
	}
}

// rotationFor maps dx over [-W, 0, W] onto [-15, 0, 15] degrees.
func rotationFor(dx, width float64) float64 {
	if width <= 0 {
		return 0
	}
	return interpolate(dx, []float64{-width, 0, width}, []float64{-15, 0, 15})
}

// scaleFor maps |dx| over [0, W/2] onto [1, 0.95].
func scaleFor(dx, width float64) float64 {
	if width <= 0 {
		return 1
	}
	return interpolate(math.Abs(dx), []float64{0, width / 2}, []float64{1, 0.95})
}

// interpolate is piecewise linear over ascending input stops and clamps to the
// first and last output values outside the input range.
func interpolate(x float64, in, out []float64) float64 {
	if x <= in[0] {
		return out[0]
	}
	last := len(in) - 1
	if x >= in[last] {
		return out[last]
	}
	for i := 1; i <= last; i++ {
		if x <= in[i] {
			t := (x - in[i-1]) / (in[i] - in[i-1])
			return out[i-1] + t*(out[i]-out[i-1])
		}
	}
	return out[last]
}
