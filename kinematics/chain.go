// Package kinematics models a serial chain of joints living in a scene hierarchy. Every query and write
// on a joint is expressed relative to the chain's root frame, so the solvers never see where the chain
// sits in the wider scene.
package kinematics

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/ikchain/logging"
	"go.viam.com/ikchain/referenceframe"
	spatial "go.viam.com/ikchain/spatialmath"
	"go.viam.com/ikchain/utils"
)

// Chain is an ordered run of N+1 joints ending at a leaf, with the N segment lengths measured at
// construction. Joint 0 is nearest the root and joint N is the end effector.
type Chain struct {
	leaf    referenceframe.Node
	root    referenceframe.Node
	joints  []referenceframe.Node
	lengths []float64
	total   float64
	rest    []spatial.Pose
	logger  logging.Logger
}

// FindRoot returns the node length+1 levels above leaf, which is the parent of joint 0 of a chain of
// the given length. It returns nil if the hierarchy is not that deep.
func FindRoot(leaf referenceframe.Node, length int) referenceframe.Node {
	return referenceframe.Ancestor(leaf, length+1)
}

// NewChain builds a chain of length segments ending at leaf. Positions and rotations are expressed in
// root's frame; a nil root means world space. Segment lengths and the rest local poses are captured
// once here and never change.
func NewChain(leaf referenceframe.Node, length int, root referenceframe.Node, logger logging.Logger) (*Chain, error) {
	if length < 1 {
		return nil, errors.Wrapf(ErrInvalidChainLength, "got %d", length)
	}
	if leaf == nil {
		return nil, errors.New("chain leaf cannot be nil")
	}
	c := &Chain{leaf: leaf, root: root, logger: logger}
	joints, err := walk(leaf, length)
	if err != nil {
		return nil, err
	}
	c.joints = joints

	c.lengths = make([]float64, length)
	for i := 0; i < length; i++ {
		d := joints[i+1].Pose().Point().Sub(joints[i].Pose().Point()).Norm()
		if d < MinSegmentLength {
			return nil, NewDegenerateSegmentError(i, d)
		}
		c.lengths[i] = d
	}
	c.total = lo.Sum(c.lengths)

	c.rest = lo.Map(joints, func(j referenceframe.Node, _ int) spatial.Pose { return j.LocalPose() })

	rootName := referenceframe.World
	if root != nil {
		rootName = root.Name()
	}
	logger.Debugw("built chain", "leaf", leaf.Name(), "root", rootName, "segments", c.lengths, "total", c.total)
	return c, nil
}

// walk collects the leaf and its length ancestors, ordered from the top down.
func walk(leaf referenceframe.Node, length int) ([]referenceframe.Node, error) {
	joints := make([]referenceframe.Node, length+1)
	joints[length] = leaf
	for i := length; i > 0; i-- {
		parent := joints[i].Parent()
		if parent == nil {
			return nil, errors.Wrapf(ErrParentMissing, "%q is %d levels above the leaf", joints[i].Name(), length-i)
		}
		joints[i-1] = parent
	}
	return joints, nil
}

// Resync walks the parent links from the leaf again so that relinked hierarchies are picked up. The
// segment lengths are not remeasured.
func (c *Chain) Resync() error {
	joints, err := walk(c.leaf, len(c.lengths))
	if err != nil {
		return err
	}
	for i := range joints {
		if joints[i] != c.joints[i] {
			c.logger.Debugw("chain joint relinked", "index", i, "from", c.joints[i].Name(), "to", joints[i].Name())
		}
	}
	c.joints = joints
	return nil
}

// Len returns the number of segments N.
func (c *Chain) Len() int {
	return len(c.lengths)
}

// Joints returns the N+1 joints, ordered from the root to the end effector.
func (c *Chain) Joints() []referenceframe.Node {
	return append([]referenceframe.Node(nil), c.joints...)
}

// Joint returns joint i.
func (c *Chain) Joint(i int) referenceframe.Node {
	return c.joints[i]
}

// SegmentLengths returns a copy of the fixed segment lengths.
func (c *Chain) SegmentLengths() []float64 {
	return append([]float64(nil), c.lengths...)
}

// TotalLength returns the sum of the segment lengths, the farthest the end effector can be from joint 0.
func (c *Chain) TotalLength() float64 {
	return c.total
}

// Root returns the frame the chain is expressed in, or nil for world space.
func (c *Chain) Root() referenceframe.Node {
	return c.root
}

// Pose returns the pose of joint i in the root frame.
func (c *Chain) Pose(i int) spatial.Pose {
	return referenceframe.PoseInFrame(c.joints[i], c.root)
}

// Position returns the position of joint i in the root frame.
func (c *Chain) Position(i int) r3.Vector {
	return c.Pose(i).Point()
}

// Orientation returns the rotation of joint i in the root frame.
func (c *Chain) Orientation(i int) spatial.Orientation {
	return c.Pose(i).Orientation()
}

// SetPosition moves joint i to p in the root frame, keeping its rotation. Descendants move with it.
func (c *Chain) SetPosition(i int, p r3.Vector) {
	referenceframe.SetPoseInFrame(c.joints[i], c.root, spatial.NewPose(p, c.Orientation(i)))
}

// SetOrientation rotates joint i to o in the root frame, keeping its position. Descendants move with it.
func (c *Chain) SetOrientation(i int, o spatial.Orientation) {
	referenceframe.SetPoseInFrame(c.joints[i], c.root, spatial.NewPose(c.Position(i), o))
}

// Positions returns every joint position in the root frame.
func (c *Chain) Positions() []r3.Vector {
	out := make([]r3.Vector, len(c.joints))
	for i := range c.joints {
		out[i] = c.Position(i)
	}
	return out
}

// SetPositions writes one position per joint. Joints are written from the root outward, so every
// joint ends at exactly the requested position even though moving a joint drags its descendants.
func (c *Chain) SetPositions(positions []r3.Vector) error {
	if len(positions) != len(c.joints) {
		return errors.Wrapf(ErrJointCount, "expected %d positions, got %d", len(c.joints), len(positions))
	}
	for i, p := range positions {
		c.SetPosition(i, p)
	}
	return nil
}

// EndEffector returns the position of joint N in the root frame.
func (c *Chain) EndEffector() r3.Vector {
	return c.Position(len(c.joints) - 1)
}

// RestLocalPoses returns the local pose of every joint as it was when the chain was built.
func (c *Chain) RestLocalPoses() []spatial.Pose {
	return append([]spatial.Pose(nil), c.rest...)
}

// ResetLocalPositions puts every joint back at its rest offset from its parent, keeping current local
// rotations.
func (c *Chain) ResetLocalPositions() {
	for i, j := range c.joints {
		j.SetLocalPose(spatial.NewPose(c.rest[i].Point(), j.LocalPose().Orientation()))
	}
}

// ResetLocalRotations sets the local rotation of joint 0 to first and every other joint to identity,
// keeping current local positions.
func (c *Chain) ResetLocalRotations(first spatial.Orientation) {
	for i, j := range c.joints {
		o := spatial.NewZeroOrientation()
		if i == 0 && first != nil {
			o = first
		}
		j.SetLocalPose(spatial.NewPose(j.LocalPose().Point(), o))
	}
}

// String prints a table of the joints with their root frame positions, planar angles and the length of
// the segment leading to the next joint.
func (c *Chain) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Name", "Position", "Angle", "Segment"})
	for i, j := range c.joints {
		p := c.Position(i)
		segment := ""
		if i < len(c.lengths) {
			segment = fmt.Sprintf("%.3f", c.lengths[i])
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%d", i),
			j.Name(),
			fmt.Sprintf("X:%.3f, Y:%.3f, Z:%.3f", p.X, p.Y, p.Z),
			fmt.Sprintf("%.2f", utils.RadToDeg(spatial.PlanarAngle(c.Orientation(i)))),
			segment,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", fmt.Sprintf("%.3f", c.total)})
	return t.Render()
}
