package ik

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/ikchain/kinematics"
	spatial "go.viam.com/ikchain/spatialmath"
	"go.viam.com/ikchain/utils/matrix"
)

// jointAxis is the axis every revolute joint turns about, in the root frame.
var jointAxis = r3.Vector{Z: 1}

// JacobianTranspose returns the N×2 transpose of the planar Jacobian of a chain with N+1 joints. Row i
// is the x,y part of the joint axis crossed with the vector from joint i to the end effector, which is
// how the end effector moves per radian turned at joint i.
func JacobianTranspose(positions []r3.Vector) (*mat.Dense, error) {
	if len(positions) < 2 {
		return nil, errors.Wrapf(kinematics.ErrJointCount, "need at least 2 joints, got %d", len(positions))
	}
	n := len(positions) - 1
	end := positions[n]
	jt := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		cross := jointAxis.Cross(end.Sub(positions[i]))
		jt.Set(i, 0, cross.X)
		jt.Set(i, 1, cross.Y)
	}
	return jt, nil
}

// JacobianPseudoInverse returns the N×2 right pseudo-inverse Jᵗ(J·Jᵗ + λ²I)⁻¹ of the planar Jacobian.
// A damping of zero gives the undamped form, which fails with matrix.ErrSingularMatrix when the chain
// is folded or stretched into a line.
func JacobianPseudoInverse(positions []r3.Vector, damping float64) (*mat.Dense, error) {
	jt, err := JacobianTranspose(positions)
	if err != nil {
		return nil, err
	}
	return matrix.DampedPseudoInverse(matrix.Transpose(jt), damping)
}

// JacobianStep returns the per-joint angle change, in radians about the joint axis, that moves the end
// effector toward target to first order. Only the x,y error is considered.
func JacobianStep(positions []r3.Vector, target r3.Vector, damping float64) ([]float64, error) {
	pinv, err := JacobianPseudoInverse(positions, damping)
	if err != nil {
		return nil, err
	}
	delta := target.Sub(positions[len(positions)-1])
	return matrix.MatrixVectorProduct(pinv, []float64{delta.X, delta.Y})
}

// AxisRotation returns the rotation of theta radians about the joint axis.
func AxisRotation(theta float64) spatial.Orientation {
	return &spatial.R4AA{Theta: theta, RX: jointAxis.X, RY: jointAxis.Y, RZ: jointAxis.Z}
}

// PointAt returns the rotation that turns offset, a child's position in its parent's frame, onto
// direction.
func PointAt(offset, direction r3.Vector) spatial.Orientation {
	return spatial.RotationBetween(offset, direction)
}
