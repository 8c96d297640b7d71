// Package rig drives a kinematic chain toward a target one frame at a time. It owns the solver mode,
// switches the chain between the rest configurations each mode expects, and flips the visibility of
// the bone markers that only make sense in one of them.
package rig

import (
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/ikchain/kinematics"
	"go.viam.com/ikchain/logging"
	"go.viam.com/ikchain/motionplan/ik"
	spatial "go.viam.com/ikchain/spatialmath"
	"go.viam.com/ikchain/utils"
	"go.viam.com/ikchain/utils/matrix"
)

// Outcome describes what a Step did.
type Outcome int

const (
	// OutcomeSatisfied means the end effector was already within the stopping delta; nothing moved.
	OutcomeSatisfied Outcome = iota
	// OutcomeStretched means the target was out of reach and the chain was laid out straight toward it.
	OutcomeStretched
	// OutcomeRelaxed means one FABRIK pass pair was applied.
	OutcomeRelaxed
	// OutcomeStepped means one Jacobian angle step was applied.
	OutcomeStepped
	// OutcomeSkipped means the Jacobian could not be inverted this frame and the pose was held.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSatisfied:
		return "satisfied"
	case OutcomeStretched:
		return "stretched"
	case OutcomeRelaxed:
		return "relaxed"
	case OutcomeStepped:
		return "stepped"
	case OutcomeSkipped:
		return "skipped"
	}
	return "unknown"
}

// Result reports one Step. Distances are in the chain's root frame.
type Result struct {
	Outcome Outcome
	Mode    Mode
	// Reach is the distance from joint 0 to the target.
	Reach float64
	// Residual is the distance from the end effector to the target after the step.
	Residual float64
}

// Rig couples a chain, a target and a set of markers under one solver mode.
type Rig struct {
	mu      sync.Mutex
	chain   *kinematics.Chain
	target  Target
	markers Markers
	opts    Options
	mode    Mode
	logger  logging.Logger
}

// New returns a rig in opts.Mode. The chain is left in whatever pose it is in; only the marker
// visibility is made to agree with the mode. markers may be nil.
func New(chain *kinematics.Chain, target Target, markers Markers, opts Options, logger logging.Logger) (*Rig, error) {
	if chain == nil {
		return nil, errors.New("rig needs a chain")
	}
	if target == nil {
		return nil, errors.New("rig needs a target")
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid rig options")
	}
	r := &Rig{
		chain:   chain,
		target:  target,
		markers: markers,
		opts:    opts,
		mode:    opts.Mode,
		logger:  logger,
	}
	setMarkersVisible(markers, r.mode == ModeJacobian)
	return r, nil
}

// Chain returns the chain the rig drives.
func (r *Rig) Chain() *kinematics.Chain {
	return r.chain
}

// Options returns the options the rig was built with, with the current mode.
func (r *Rig) Options() Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	opts := r.opts
	opts.Mode = r.mode
	return opts
}

// Mode returns the active mode.
func (r *Rig) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// FABRIKEnabled reports whether the FABRIK control should show as on.
func (r *Rig) FABRIKEnabled() bool {
	return r.Mode() == ModeFABRIK
}

// JacobianEnabled reports whether the Jacobian control should show as on. It is always the opposite
// of FABRIKEnabled.
func (r *Rig) JacobianEnabled() bool {
	return r.Mode() == ModeJacobian
}

// SetMode switches the solving strategy. Switching to FABRIK hides the markers and resets local
// rotations, giving joint 0 a small fixed offset; switching to Jacobian shows the markers and puts
// every joint back at its rest offset from its parent. Asking for the active mode does nothing.
func (r *Rig) SetMode(m Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m != ModeJacobian && m != ModeFABRIK {
		return errors.Errorf("unknown mode %d", m)
	}
	if m == r.mode {
		return nil
	}
	r.mode = m
	switch m {
	case ModeFABRIK:
		setMarkersVisible(r.markers, false)
		r.chain.ResetLocalRotations(ik.AxisRotation(utils.DegToRad(r.opts.FABRIKOffsetDeg)))
	case ModeJacobian:
		setMarkersVisible(r.markers, true)
		r.chain.ResetLocalPositions()
	}
	r.logger.Infow("solver mode changed", "mode", m.String())
	return nil
}

// OnFABRIKToggle handles the FABRIK control: on selects FABRIK, off selects Jacobian.
func (r *Rig) OnFABRIKToggle(selected bool) error {
	if selected {
		return r.SetMode(ModeFABRIK)
	}
	return r.SetMode(ModeJacobian)
}

// OnJacobianToggle handles the Jacobian control: on selects Jacobian, off selects FABRIK.
func (r *Rig) OnJacobianToggle(selected bool) error {
	if selected {
		return r.SetMode(ModeJacobian)
	}
	return r.SetMode(ModeFABRIK)
}

// targetInRoot expresses the target in the chain's root frame.
func (r *Rig) targetInRoot() r3.Vector {
	world := r.target.Point()
	root := r.chain.Root()
	if root == nil {
		return world
	}
	return spatial.PoseBetween(root.Pose(), spatial.NewPoseFromPoint(world)).Point()
}

// Step advances the chain by one frame toward the target. The joint list is re-read from the scene
// first. A singular Jacobian is not an error: the frame is skipped and the pose held.
func (r *Rig) Step() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.chain.Resync(); err != nil {
		return Result{}, err
	}
	target := r.targetInRoot()
	positions := r.chain.Positions()
	end := positions[len(positions)-1]

	res := Result{Mode: r.mode, Reach: target.Distance(positions[0])}
	if end.Distance(target) < r.opts.StoppingDelta {
		res.Outcome = OutcomeSatisfied
		res.Residual = end.Distance(target)
		return res, nil
	}

	var err error
	switch {
	case res.Reach >= r.chain.TotalLength():
		res.Outcome = OutcomeStretched
		err = r.stretch(positions, target)
	case r.mode == ModeFABRIK:
		res.Outcome = OutcomeRelaxed
		err = r.relax(positions, target)
	default:
		res.Outcome = OutcomeStepped
		err = r.step(positions, target)
		if errors.Is(err, matrix.ErrSingularMatrix) {
			r.logger.Debugw("skipping frame with singular jacobian", "error", err.Error())
			res.Outcome = OutcomeSkipped
			err = nil
		}
	}
	if err != nil {
		return Result{}, err
	}
	res.Residual = r.chain.EndEffector().Distance(target)
	return res, nil
}

func (r *Rig) stretch(positions []r3.Vector, target r3.Vector) error {
	if r.mode == ModeFABRIK {
		stretched, err := ik.StretchToward(positions, r.chain.SegmentLengths(), target)
		if err != nil {
			return err
		}
		return r.chain.SetPositions(stretched)
	}
	// Each joint turns its child's offset onto the heading; the end effector uses its own offset.
	heading := target.Sub(positions[0])
	joints := r.chain.Joints()
	for i := range joints {
		child := joints[i]
		if i+1 < len(joints) {
			child = joints[i+1]
		}
		r.chain.SetOrientation(i, ik.PointAt(child.LocalPose().Point(), heading))
	}
	return nil
}

func (r *Rig) relax(positions []r3.Vector, target r3.Vector) error {
	relaxed, err := ik.SolveFABRIK(positions, r.chain.SegmentLengths(), target)
	if err != nil {
		return err
	}
	return r.chain.SetPositions(relaxed)
}

func (r *Rig) step(positions []r3.Vector, target r3.Vector) error {
	dTheta, err := ik.JacobianStep(positions, target, r.opts.Damping)
	if err != nil {
		return err
	}
	// Orientations are re-read per joint so each turn carries the ones before it.
	for i, d := range dTheta {
		current := r.chain.Orientation(i)
		r.chain.SetOrientation(i, spatial.ComposeOrientations(current, ik.AxisRotation(d*r.opts.Stride)))
	}
	return nil
}
