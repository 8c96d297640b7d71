package config

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/ikchain/kinematics"
	"go.viam.com/ikchain/logging"
	"go.viam.com/ikchain/referenceframe"
	"go.viam.com/ikchain/rig"
)

// Scene is everything a config describes, built and wired together.
type Scene struct {
	World  *referenceframe.Transform
	Root   *referenceframe.Transform
	Joints []*referenceframe.Transform
	Target *rig.PlaneTarget
	Bones  rig.BoneSet
	Chain  *kinematics.Chain
	Rig    *rig.Rig
}

// BuildScene builds the joint hierarchy under a root frame, the chain over its last ChainLength
// segments and a rig driving that chain toward the configured target.
func (c *Config) BuildScene(logger logging.Logger) (*Scene, error) {
	if err := c.Validate(""); err != nil {
		return nil, err
	}
	opts, err := c.Solver.Options()
	if err != nil {
		return nil, err
	}

	s := &Scene{}
	s.World = referenceframe.NewTransform(referenceframe.World, nil, nil)
	s.Root = referenceframe.NewTransform("root", s.World, c.Root.Pose())
	s.Joints, err = referenceframe.BuildChain(s.Root,
		lo.Map(c.Chain.Joints, func(j JointConfig, _ int) string { return j.Name }),
		lo.Map(c.Chain.Joints, func(j JointConfig, _ int) r3.Vector { return j.Translation.Vector() }))
	if err != nil {
		return nil, err
	}
	for i, j := range s.Joints {
		j.SetLocalPose(c.Chain.Joints[i].LocalPose())
	}

	length := c.ChainLength()
	leaf := s.Joints[len(s.Joints)-1]
	s.Chain, err = kinematics.NewChain(leaf, length, kinematics.FindRoot(leaf, length), logger.Sublogger("chain"))
	if err != nil {
		return nil, errors.Wrap(err, "cannot build chain")
	}

	s.Target = rig.NewPlaneTarget(c.Target.Vector())
	s.Bones = rig.NewBoneSet(c.BoneNames()...)
	s.Rig, err = rig.New(s.Chain, s.Target, s.Bones, opts, logger.Sublogger("rig"))
	if err != nil {
		return nil, err
	}
	logger.Debugw("built scene",
		"joints", lo.Map(s.Joints, func(j *referenceframe.Transform, _ int) string { return j.Name() }),
		"segments", length,
		"mode", opts.Mode.String())
	return s, nil
}
