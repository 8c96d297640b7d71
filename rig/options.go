package rig

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Mode selects the solving strategy.
type Mode int

const (
	// ModeJacobian turns joints by a damped pseudo-inverse step about the joint axis.
	ModeJacobian Mode = iota
	// ModeFABRIK moves joint positions by forward and backward reaching.
	ModeFABRIK
)

func (m Mode) String() string {
	switch m {
	case ModeJacobian:
		return "jacobian"
	case ModeFABRIK:
		return "fabrik"
	}
	return "unknown"
}

// ModeFromString parses "jacobian" or "fabrik".
func ModeFromString(s string) (Mode, error) {
	switch s {
	case "jacobian", "":
		return ModeJacobian, nil
	case "fabrik":
		return ModeFABRIK, nil
	}
	return ModeJacobian, errors.Errorf("unknown solver mode %q, expected jacobian or fabrik", s)
}

const (
	// DefaultStride is the default gain applied to Jacobian angle steps.
	DefaultStride = 1.
	// MinStride and MaxStride bound the stride.
	MinStride = 0.1
	MaxStride = 2.
	// DefaultStoppingDelta is the default distance below which the end effector counts as on target.
	DefaultStoppingDelta = 0.001
	// DefaultFABRIKOffsetDeg is the rotation given to joint 0 when switching to FABRIK, so the chain
	// does not start out perfectly straight.
	DefaultFABRIKOffsetDeg = 5.
)

// Options are the tunables of a Rig.
type Options struct {
	Mode          Mode
	Stride        float64
	StoppingDelta float64
	// Damping is the λ of the damped pseudo-inverse. Zero keeps the undamped form, which skips frames
	// where the chain is in a line.
	Damping         float64
	FABRIKOffsetDeg float64
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Mode:            ModeJacobian,
		Stride:          DefaultStride,
		StoppingDelta:   DefaultStoppingDelta,
		FABRIKOffsetDeg: DefaultFABRIKOffsetDeg,
	}
}

// Validate reports every out of range option.
func (o Options) Validate() error {
	var errs error
	if o.Mode != ModeJacobian && o.Mode != ModeFABRIK {
		errs = multierr.Append(errs, errors.Errorf("unknown mode %d", o.Mode))
	}
	if o.Stride < MinStride || o.Stride > MaxStride {
		errs = multierr.Append(errs, errors.Errorf("stride %g outside [%g, %g]", o.Stride, MinStride, MaxStride))
	}
	if o.StoppingDelta <= 0 {
		errs = multierr.Append(errs, errors.Errorf("stopping delta must be positive, got %g", o.StoppingDelta))
	}
	if o.Damping < 0 {
		errs = multierr.Append(errs, errors.Errorf("damping must not be negative, got %g", o.Damping))
	}
	return errs
}
