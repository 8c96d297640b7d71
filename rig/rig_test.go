package rig

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/ikchain/kinematics"
	"go.viam.com/ikchain/logging"
	"go.viam.com/ikchain/motionplan/ik"
	"go.viam.com/ikchain/referenceframe"
	spatial "go.viam.com/ikchain/spatialmath"
)

var (
	armOffsets = []r3.Vector{{}, {X: 13.5}, {X: 11}, {X: 3.5}, {X: 4}}
	armLengths = []float64{13.5, 11, 3.5, 4}
)

type scene struct {
	root   *referenceframe.Transform
	joints []*referenceframe.Transform
	chain  *kinematics.Chain
}

func newScene(t *testing.T, rootPose spatial.Pose, logger logging.Logger) *scene {
	t.Helper()
	return newSceneWithOffsets(t, armOffsets, rootPose, logger)
}

func newSceneWithOffsets(t *testing.T, offsets []r3.Vector, rootPose spatial.Pose, logger logging.Logger) *scene {
	t.Helper()
	world := referenceframe.NewTransform(referenceframe.World, nil, nil)
	root := referenceframe.NewTransform("root", world, rootPose)
	joints, err := referenceframe.BuildChain(root, []string{"j0", "j1", "j2", "j3", "j4"}, offsets)
	test.That(t, err, test.ShouldBeNil)
	chain, err := kinematics.NewChain(joints[4], 4, root, logger)
	test.That(t, err, test.ShouldBeNil)
	return &scene{root: root, joints: joints, chain: chain}
}

// bend turns every joint 20 degrees relative to its parent.
func (s *scene) bend() {
	for _, j := range s.joints[:4] {
		j.SetLocalPose(spatial.NewPose(j.LocalPose().Point(), spatial.NewRotationZ(20*math.Pi/180)))
	}
}

func (s *scene) localPoses() []spatial.Pose {
	out := make([]spatial.Pose, 0, len(s.joints))
	for _, j := range s.joints {
		out = append(out, j.LocalPose())
	}
	return out
}

func (s *scene) state() *ik.State {
	return &ik.State{Positions: s.chain.Positions()}
}

func optionsWith(mode Mode) Options {
	opts := DefaultOptions()
	opts.Mode = mode
	return opts
}

func TestModeSwitch(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	s := newScene(t, nil, logger)
	bones := NewBoneSet("upper", "lower")
	r, err := New(s.chain, NewPointTarget(r3.Vector{X: 10}), bones, DefaultOptions(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.JacobianEnabled(), test.ShouldBeTrue)
	test.That(t, r.FABRIKEnabled(), test.ShouldBeFalse)
	test.That(t, bones.Visible(), test.ShouldBeTrue)

	test.That(t, r.OnFABRIKToggle(true), test.ShouldBeNil)
	test.That(t, r.FABRIKEnabled(), test.ShouldBeTrue)
	test.That(t, r.JacobianEnabled(), test.ShouldBeFalse)
	test.That(t, bones.Visible(), test.ShouldBeFalse)
	test.That(t, spatial.PlanarAngle(s.joints[0].LocalPose().Orientation()), test.ShouldAlmostEqual, 5*math.Pi/180, 1e-9)
	for _, j := range s.joints[1:] {
		test.That(t, spatial.OrientationAlmostEqual(j.LocalPose().Orientation(), spatial.NewZeroOrientation()), test.ShouldBeTrue)
	}

	// repeating a request, from either control, changes nothing
	s.joints[2].SetLocalPose(spatial.NewPoseFromPoint(r3.Vector{X: 7, Y: 1}))
	before := s.localPoses()
	test.That(t, r.OnFABRIKToggle(true), test.ShouldBeNil)
	test.That(t, r.OnJacobianToggle(false), test.ShouldBeNil)
	test.That(t, s.localPoses(), test.ShouldResemble, before)
	test.That(t, r.FABRIKEnabled(), test.ShouldBeTrue)

	test.That(t, r.OnJacobianToggle(true), test.ShouldBeNil)
	test.That(t, r.JacobianEnabled(), test.ShouldBeTrue)
	test.That(t, r.FABRIKEnabled(), test.ShouldBeFalse)
	test.That(t, bones.Visible(), test.ShouldBeTrue)
	for i, j := range s.joints {
		test.That(t, j.LocalPose().Point().Sub(armOffsets[i]).Norm(), test.ShouldBeLessThan, 1e-9)
	}

	test.That(t, r.OnFABRIKToggle(false), test.ShouldBeNil)
	test.That(t, r.Mode(), test.ShouldEqual, ModeJacobian)
	test.That(t, logs.FilterMessage("solver mode changed").Len(), test.ShouldEqual, 2)

	test.That(t, r.SetMode(Mode(7)), test.ShouldNotBeNil)
}

func TestNewHidesMarkersInFABRIK(t *testing.T) {
	logger := logging.NewTestLogger(t)
	s := newScene(t, nil, logger)
	bones := NewBoneSet("upper")
	before := s.localPoses()
	r, err := New(s.chain, NewPointTarget(r3.Vector{}), bones, optionsWith(ModeFABRIK), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.FABRIKEnabled(), test.ShouldBeTrue)
	test.That(t, bones.Visible(), test.ShouldBeFalse)
	test.That(t, s.localPoses(), test.ShouldResemble, before)

	_, err = New(nil, NewPointTarget(r3.Vector{}), nil, DefaultOptions(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = New(s.chain, nil, nil, DefaultOptions(), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestOptionsValidate(t *testing.T) {
	test.That(t, DefaultOptions().Validate(), test.ShouldBeNil)

	opts := DefaultOptions()
	opts.Stride = 3
	opts.StoppingDelta = 0
	opts.Damping = -1
	err := opts.Validate()
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 3)

	m, err := ModeFromString("fabrik")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldEqual, ModeFABRIK)
	test.That(t, m.String(), test.ShouldEqual, "fabrik")
	_, err = ModeFromString("ccd")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStepUnreachable(t *testing.T) {
	for _, mode := range []Mode{ModeFABRIK, ModeJacobian} {
		t.Run(mode.String(), func(t *testing.T) {
			logger := logging.NewTestLogger(t)
			s := newScene(t, nil, logger)
			s.bend()
			r, err := New(s.chain, NewPointTarget(r3.Vector{X: 40}), nil, optionsWith(mode), logger)
			test.That(t, err, test.ShouldBeNil)

			res, err := r.Step()
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Outcome, test.ShouldEqual, OutcomeStretched)
			test.That(t, res.Mode, test.ShouldEqual, mode)
			test.That(t, res.Reach, test.ShouldAlmostEqual, 40, 1e-9)

			want := []float64{0, 13.5, 24.5, 28, 32}
			for i, p := range s.chain.Positions() {
				test.That(t, p.X, test.ShouldAlmostEqual, want[i], 1e-6)
				test.That(t, p.Y, test.ShouldAlmostEqual, 0, 1e-6)
				test.That(t, p.Z, test.ShouldAlmostEqual, 0, 1e-6)
			}
			test.That(t, res.Residual, test.ShouldAlmostEqual, 8, 1e-6)
			test.That(t, ik.CollinearityMetric(s.state()), test.ShouldBeLessThan, 1e-6)
			test.That(t, ik.NewSegmentLengthMetric(armLengths)(s.state()), test.ShouldBeLessThan, 1e-12)
		})
	}
}

func TestStepUnreachableOffAxisOffsets(t *testing.T) {
	for _, tc := range []struct {
		name    string
		offsets []r3.Vector
		target  r3.Vector
	}{
		{"along y", []r3.Vector{{}, {Y: 13.5}, {Y: 11}, {Y: 3.5}, {Y: 4}}, r3.Vector{X: 40}},
		{"mixed", []r3.Vector{{}, {X: 13.5}, {Y: 11}, {X: -3.5}, {Y: -4}}, r3.Vector{X: -30, Y: -30}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			logger := logging.NewTestLogger(t)
			s := newSceneWithOffsets(t, tc.offsets, nil, logger)
			r, err := New(s.chain, NewPointTarget(tc.target), nil, DefaultOptions(), logger)
			test.That(t, err, test.ShouldBeNil)

			dir := tc.target.Normalize()
			for frame := 0; frame < 2; frame++ {
				res, err := r.Step()
				test.That(t, err, test.ShouldBeNil)
				test.That(t, res.Outcome, test.ShouldEqual, OutcomeStretched)
				test.That(t, res.Residual, test.ShouldAlmostEqual, tc.target.Norm()-32, 1e-6)

				reach := 0.
				for i, p := range s.chain.Positions() {
					if i > 0 {
						reach += armLengths[i-1]
					}
					test.That(t, p.Sub(dir.Mul(reach)).Norm(), test.ShouldBeLessThan, 1e-6)
				}
			}
			test.That(t, ik.CollinearityMetric(s.state()), test.ShouldBeLessThan, 1e-6)
		})
	}
}

func TestStepWithinStoppingDelta(t *testing.T) {
	for _, mode := range []Mode{ModeFABRIK, ModeJacobian} {
		t.Run(mode.String(), func(t *testing.T) {
			logger := logging.NewTestLogger(t)
			s := newScene(t, nil, logger)
			s.bend()
			target := NewPointTarget(s.joints[4].Pose().Point().Add(r3.Vector{X: 0.0005}))
			r, err := New(s.chain, target, nil, optionsWith(mode), logger)
			test.That(t, err, test.ShouldBeNil)

			before := s.localPoses()
			for i := 0; i < 3; i++ {
				res, err := r.Step()
				test.That(t, err, test.ShouldBeNil)
				test.That(t, res.Outcome, test.ShouldEqual, OutcomeSatisfied)
				test.That(t, res.Residual, test.ShouldAlmostEqual, 0.0005, 1e-9)
			}
			for i, p := range s.localPoses() {
				test.That(t, p, test.ShouldEqual, before[i])
			}
		})
	}
}

func TestStepFABRIKConverges(t *testing.T) {
	logger := logging.NewTestLogger(t)
	rootPose := spatial.NewPose(r3.Vector{X: 5, Y: 5, Z: 1}, spatial.NewRotationZ(math.Pi/2))
	s := newScene(t, rootPose, logger)
	// (20, 10) in the root frame
	target := NewPointTarget(r3.Vector{X: -5, Y: 25, Z: 1})
	r, err := New(s.chain, target, nil, DefaultOptions(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.SetMode(ModeFABRIK), test.ShouldBeNil)

	var res Result
	frames := 0
	for ; frames < 300; frames++ {
		res, err = r.Step()
		test.That(t, err, test.ShouldBeNil)
		if res.Outcome == OutcomeSatisfied {
			break
		}
		test.That(t, res.Outcome, test.ShouldEqual, OutcomeRelaxed)
	}
	test.That(t, frames, test.ShouldBeGreaterThan, 0)
	test.That(t, res.Outcome, test.ShouldEqual, OutcomeSatisfied)
	test.That(t, s.joints[4].Pose().Point().Distance(target.Point()), test.ShouldBeLessThan, DefaultStoppingDelta)
	test.That(t, s.joints[0].Pose().Point().Distance(r3.Vector{X: 5, Y: 5, Z: 1}), test.ShouldBeLessThan, 1e-9)
	test.That(t, ik.NewSegmentLengthMetric(armLengths)(s.state()), test.ShouldBeLessThan, 1e-12)
}

func TestStepJacobianConverges(t *testing.T) {
	logger := logging.NewTestLogger(t)
	s := newScene(t, nil, logger)
	s.bend()
	target := NodeTarget{referenceframe.NewTransform("target", nil, spatial.NewPoseFromPoint(r3.Vector{X: 20, Y: 15}))}
	r, err := New(s.chain, target, nil, DefaultOptions(), logger)
	test.That(t, err, test.ShouldBeNil)

	first, err := r.Step()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first.Outcome, test.ShouldEqual, OutcomeStepped)

	var res Result
	for i := 0; i < 100; i++ {
		res, err = r.Step()
		test.That(t, err, test.ShouldBeNil)
		if res.Outcome == OutcomeSatisfied {
			break
		}
	}
	test.That(t, res.Outcome, test.ShouldEqual, OutcomeSatisfied)
	test.That(t, res.Residual, test.ShouldBeLessThan, DefaultStoppingDelta)
	test.That(t, s.joints[4].Pose().Point().Distance(r3.Vector{X: 20, Y: 15}), test.ShouldBeLessThan, DefaultStoppingDelta)
	test.That(t, ik.NewSegmentLengthMetric(armLengths)(s.state()), test.ShouldBeLessThan, 1e-12)
	// rotations only, so local offsets are untouched
	for i, j := range s.joints {
		test.That(t, j.LocalPose().Point().Sub(armOffsets[i]).Norm(), test.ShouldBeLessThan, 1e-9)
	}
}

func TestStepSingularJacobian(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	s := newScene(t, nil, logger)
	target := NewPointTarget(r3.Vector{X: 20, Y: 5})
	r, err := New(s.chain, target, nil, DefaultOptions(), logger)
	test.That(t, err, test.ShouldBeNil)

	before := s.localPoses()
	res, err := r.Step()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, OutcomeSkipped)
	for i, p := range s.localPoses() {
		test.That(t, p, test.ShouldEqual, before[i])
	}
	test.That(t, logs.FilterMessage("skipping frame with singular jacobian").Len(), test.ShouldEqual, 1)

	opts := DefaultOptions()
	opts.Damping = 0.5
	damped, err := New(s.chain, target, nil, opts, logger)
	test.That(t, err, test.ShouldBeNil)
	res, err = damped.Step()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, OutcomeStepped)
}

func TestStepResync(t *testing.T) {
	logger := logging.NewTestLogger(t)
	s := newScene(t, nil, logger)
	r, err := New(s.chain, NewPointTarget(r3.Vector{X: 40}), nil, optionsWith(ModeFABRIK), logger)
	test.That(t, err, test.ShouldBeNil)

	// swap j2 for a node of the same length bent off to the side
	spare := referenceframe.NewTransform("spare", s.joints[1], spatial.NewPoseFromPoint(r3.Vector{Y: 11}))
	test.That(t, s.joints[3].SetParent(spare, false), test.ShouldBeNil)
	res, err := r.Step()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, OutcomeStretched)
	test.That(t, r.Chain().Joint(2).Name(), test.ShouldEqual, "spare")
	test.That(t, spare.Pose().Point().X, test.ShouldAlmostEqual, 24.5, 1e-6)

	test.That(t, s.joints[1].SetParent(nil, true), test.ShouldBeNil)
	_, err = r.Step()
	test.That(t, errors.Is(err, kinematics.ErrParentMissing), test.ShouldBeTrue)
}

func TestPlaneTargetRaycast(t *testing.T) {
	target := NewPlaneTarget(r3.Vector{X: 3, Y: 3, Z: 2})

	hit, ok := target.Raycast(r3.Vector{Z: 10}, r3.Vector{X: 1, Y: 1, Z: -8})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hit.Sub(r3.Vector{X: 1, Y: 1, Z: 2}).Norm(), test.ShouldBeLessThan, 1e-12)
	test.That(t, target.Point(), test.ShouldResemble, hit)

	_, ok = target.Raycast(r3.Vector{Z: 10}, r3.Vector{X: 1})
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = target.Raycast(r3.Vector{Z: 10}, r3.Vector{Z: 1})
	test.That(t, ok, test.ShouldBeFalse)
	target.Range = 5
	_, ok = target.Raycast(r3.Vector{Z: 10}, r3.Vector{Z: -1})
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, target.Point(), test.ShouldResemble, hit)

	target.Set(r3.Vector{Z: -1})
	test.That(t, target.Point().Z, test.ShouldEqual, -1.)
}

func TestGroupStep(t *testing.T) {
	logger := logging.NewTestLogger(t)
	var rigs []*Rig
	for _, mode := range []Mode{ModeFABRIK, ModeJacobian} {
		s := newScene(t, nil, logger)
		r, err := New(s.chain, NewPointTarget(r3.Vector{X: 40}), nil, optionsWith(mode), logger)
		test.That(t, err, test.ShouldBeNil)
		rigs = append(rigs, r)
	}
	g := NewGroup(rigs...)
	results, err := g.Step(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldHaveLength, 2)
	test.That(t, results[0].Mode, test.ShouldEqual, ModeFABRIK)
	test.That(t, results[1].Outcome, test.ShouldEqual, OutcomeStretched)

	limited := NewGroup(rigs...)
	limited.SetLimit(1)
	results, err = limited.Step(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, results, test.ShouldHaveLength, 2)

	broken := newScene(t, nil, logger)
	r, err := New(broken.chain, NewPointTarget(r3.Vector{X: 40}), nil, DefaultOptions(), logger)
	test.That(t, err, test.ShouldBeNil)
	g.Add(r)
	test.That(t, g.Len(), test.ShouldEqual, 3)
	test.That(t, broken.joints[2].SetParent(nil, true), test.ShouldBeNil)
	_, err = g.Step(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "rig 2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewGroup(rigs...).Step(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}
