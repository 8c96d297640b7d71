// Package referenceframe defines how a joint chain sees the scene hierarchy it lives in: every node has a
// parent link, a pose relative to that parent, and a world pose composed through its ancestors.
package referenceframe

import (
	spatial "go.viam.com/ikchain/spatialmath"
)

// World is the name used for a node with no parent.
const World = "world"

// Node is a handle into a scene graph. Implementations are owned by the host; the solver only reads
// parent links and poses and writes poses back.
type Node interface {
	// Name returns the name of the node.
	Name() string

	// Parent returns the node this one is attached to, or nil at the top of the hierarchy.
	Parent() Node

	// Pose is the world pose of the node.
	Pose() spatial.Pose

	// SetPose moves the node so that its world pose equals p. Descendants keep their local poses and so
	// move with it.
	SetPose(p spatial.Pose)

	// LocalPose is the pose of the node relative to its parent.
	LocalPose() spatial.Pose

	// SetLocalPose replaces the pose of the node relative to its parent.
	SetLocalPose(p spatial.Pose)
}

// Ancestor returns the node depth levels above n, or nil if the hierarchy is not that deep.
// Ancestor(n, 0) is n itself.
func Ancestor(n Node, depth int) Node {
	current := n
	for i := 0; i < depth && current != nil; i++ {
		current = current.Parent()
	}
	return current
}

// PoseInFrame expresses the world pose of n relative to frame. A nil frame means the world.
func PoseInFrame(n, frame Node) spatial.Pose {
	if frame == nil {
		return n.Pose()
	}
	return spatial.PoseBetween(frame.Pose(), n.Pose())
}

// SetPoseInFrame moves n so that its pose relative to frame equals p. A nil frame means the world.
func SetPoseInFrame(n, frame Node, p spatial.Pose) {
	if frame == nil {
		n.SetPose(p)
		return
	}
	n.SetPose(spatial.Compose(frame.Pose(), p))
}
