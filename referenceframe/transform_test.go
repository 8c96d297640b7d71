package referenceframe

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	spatial "go.viam.com/ikchain/spatialmath"
)

func TestTransformHierarchy(t *testing.T) {
	root := NewTransform("root", nil, spatial.NewPose(r3.Vector{X: 10}, spatial.NewRotationZ(math.Pi/2)))
	nodes, err := BuildChain(root, []string{"a", "b"}, []r3.Vector{{X: 1}, {X: 2}})
	test.That(t, err, test.ShouldBeNil)
	a, b := nodes[0], nodes[1]

	test.That(t, a.Parent().Name(), test.ShouldEqual, "root")
	test.That(t, root.Parent(), test.ShouldBeNil)

	// rotated a quarter turn, so +X offsets run along world +Y
	test.That(t, spatial.PoseAlmostCoincident(b.Pose(), spatial.NewPoseFromPoint(r3.Vector{X: 10, Y: 3})), test.ShouldBeTrue)

	// moving a carries b along; a now has the identity world orientation
	a.SetPose(spatial.NewPoseFromPoint(r3.Vector{X: 0, Y: 0}))
	test.That(t, spatial.PoseAlmostCoincident(b.Pose(), spatial.NewPoseFromPoint(r3.Vector{X: 2})), test.ShouldBeTrue)
	test.That(t, spatial.PoseAlmostCoincident(b.LocalPose(), spatial.NewPoseFromPoint(r3.Vector{X: 2})), test.ShouldBeTrue)
}

func TestFrameRelativePoses(t *testing.T) {
	root := NewTransform("root", nil, spatial.NewPose(r3.Vector{X: 5, Y: 5}, spatial.NewRotationZ(math.Pi)))
	n := NewTransform("n", nil, spatial.NewPoseFromPoint(r3.Vector{X: 4, Y: 5}))

	inRoot := PoseInFrame(n, root)
	test.That(t, inRoot.Point().X, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, inRoot.Point().Y, test.ShouldAlmostEqual, 0, 1e-9)

	SetPoseInFrame(n, root, spatial.NewPoseFromPoint(r3.Vector{X: 2}))
	test.That(t, n.Pose().Point().X, test.ShouldAlmostEqual, 3, 1e-9)
	test.That(t, n.Pose().Point().Y, test.ShouldAlmostEqual, 5, 1e-9)

	test.That(t, spatial.PoseAlmostEqual(PoseInFrame(n, nil), n.Pose()), test.ShouldBeTrue)
}

func TestSetParent(t *testing.T) {
	root := NewTransform("root", nil, nil)
	other := NewTransform("other", root, spatial.NewPoseFromPoint(r3.Vector{Y: 10}))
	nodes, err := BuildChain(root, []string{"a", "b"}, []r3.Vector{{X: 1}, {X: 1}})
	test.That(t, err, test.ShouldBeNil)
	a, b := nodes[0], nodes[1]

	test.That(t, b.SetParent(other, true), test.ShouldBeNil)
	test.That(t, b.Parent().Name(), test.ShouldEqual, "other")
	test.That(t, a.Children(), test.ShouldHaveLength, 0)
	test.That(t, spatial.PoseAlmostCoincident(b.Pose(), spatial.NewPoseFromPoint(r3.Vector{X: 2})), test.ShouldBeTrue)

	err = root.SetParent(b, false)
	test.That(t, errors.Is(err, ErrCycle), test.ShouldBeTrue)

	test.That(t, root.Find("b"), test.ShouldEqual, b)
	test.That(t, root.Find("missing"), test.ShouldBeNil)
	test.That(t, Ancestor(b, 2), test.ShouldEqual, Node(root))
	test.That(t, Ancestor(b, 3), test.ShouldBeNil)
}
