package kinematics

import "github.com/pkg/errors"

// MinSegmentLength is the shortest rest distance accepted between two consecutive joints.
const MinSegmentLength = 1e-6

var (
	// ErrInvalidChainLength is returned when a chain is asked to span fewer than one segment.
	ErrInvalidChainLength = errors.New("chain length must be at least 1")

	// ErrParentMissing is returned when the scene hierarchy above a leaf is shallower than the chain.
	ErrParentMissing = errors.New("joint has no parent")

	// ErrDegenerateSegment is returned when two consecutive joints coincide at rest, or come to coincide
	// while solving.
	ErrDegenerateSegment = errors.New("degenerate segment")

	// ErrJointCount is returned when a write does not supply one value per joint.
	ErrJointCount = errors.New("wrong number of joint values")
)

// NewDegenerateSegmentError returns an error naming the segment between joints i and i+1.
func NewDegenerateSegmentError(i int, length float64) error {
	return errors.Wrapf(ErrDegenerateSegment, "segment %d has length %g, minimum is %g", i, length, MinSegmentLength)
}
