// Package ik contains the per-frame inverse kinematics steps for a serial chain: a positional FABRIK
// relaxation and a planar Jacobian pseudo-inverse correction. All functions work on joint positions
// expressed in the chain's root frame and return new slices; nothing here touches a scene.
package ik

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/ikchain/kinematics"
	spatial "go.viam.com/ikchain/spatialmath"
)

func checkShape(positions []r3.Vector, lengths []float64) error {
	if len(lengths) == 0 || len(positions) != len(lengths)+1 {
		return errors.Wrapf(kinematics.ErrJointCount, "%d positions for %d segments", len(positions), len(lengths))
	}
	return nil
}

// StretchToward lays the chain out toward target, one segment at a time from joint 0. Each joint is
// placed on the line from the previous, already placed joint to the target at that segment's length.
// For a target beyond reach this leaves every joint on the ray from joint 0 to the target.
func StretchToward(positions []r3.Vector, lengths []float64, target r3.Vector) ([]r3.Vector, error) {
	if err := checkShape(positions, lengths); err != nil {
		return nil, err
	}
	out := append([]r3.Vector(nil), positions...)
	for i, length := range lengths {
		d := target.Sub(out[i]).Norm()
		if d < kinematics.MinSegmentLength {
			return nil, kinematics.NewDegenerateSegmentError(i, d)
		}
		out[i+1] = spatial.Lerp(out[i], target, length/d)
	}
	return out, nil
}

// SolveFABRIK runs one backward and one forward reaching pass. The backward pass pins the end effector
// on the target and walks toward joint 0 restoring segment lengths; the forward pass pins joint 0 back
// where it started and walks out again. The returned chain keeps every segment length and its original
// joint 0; when the target is reachable the end effector approaches it over successive calls.
func SolveFABRIK(positions []r3.Vector, lengths []float64, target r3.Vector) ([]r3.Vector, error) {
	if err := checkShape(positions, lengths); err != nil {
		return nil, err
	}
	out := append([]r3.Vector(nil), positions...)
	start := out[0]
	n := len(lengths)

	out[n] = target
	for i := n - 1; i >= 0; i-- {
		d := out[i+1].Sub(out[i]).Norm()
		if d < kinematics.MinSegmentLength {
			return nil, kinematics.NewDegenerateSegmentError(i, d)
		}
		out[i] = spatial.Lerp(out[i+1], out[i], lengths[i]/d)
	}

	out[0] = start
	for i := 0; i < n; i++ {
		d := out[i+1].Sub(out[i]).Norm()
		if d < kinematics.MinSegmentLength {
			return nil, kinematics.NewDegenerateSegmentError(i, d)
		}
		out[i+1] = spatial.Lerp(out[i], out[i+1], lengths[i]/d)
	}
	return out, nil
}
