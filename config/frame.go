package config

import (
	"github.com/golang/geo/r3"

	spatial "go.viam.com/ikchain/spatialmath"
	"go.viam.com/ikchain/utils"
)

// Translation is the offset of a frame from its parent.
type Translation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector returns the translation as a vector.
func (t Translation) Vector() r3.Vector {
	return r3.Vector{X: t.X, Y: t.Y, Z: t.Z}
}

// Orientation is the rotation of a frame relative to its parent, as an axis and an angle in degrees
// about it. A zero axis means +Z.
type Orientation struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	TH float64 `json:"th"`
}

// Orientation converts to a spatial orientation.
func (o Orientation) Orientation() spatial.Orientation {
	aa := &spatial.R4AA{Theta: utils.DegToRad(o.TH), RX: o.X, RY: o.Y, RZ: o.Z}
	aa.Normalize()
	return aa
}

// FrameConfig is the pose of a frame relative to its parent.
type FrameConfig struct {
	Translation Translation `json:"translation"`
	Orientation Orientation `json:"orientation"`
}

// Pose returns the pose described by the config.
func (f FrameConfig) Pose() spatial.Pose {
	return spatial.NewPose(f.Translation.Vector(), f.Orientation.Orientation())
}

// JointConfig describes one joint of the chain: its offset from the previous joint and its initial
// turn about the joint axis.
type JointConfig struct {
	Name        string      `json:"name"`
	Translation Translation `json:"translation"`
	AngleDeg    float64     `json:"angle_deg,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (j *JointConfig) Validate(path string) error {
	if j.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	return nil
}

// LocalPose returns the pose of the joint relative to the previous one.
func (j *JointConfig) LocalPose() spatial.Pose {
	return spatial.NewPose(j.Translation.Vector(), spatial.NewRotationZ(utils.DegToRad(j.AngleDeg)))
}
