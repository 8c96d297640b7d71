package referenceframe

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	spatial "go.viam.com/ikchain/spatialmath"
)

// Transform is an in-memory scene graph node. The local pose is authoritative; world poses are composed
// through the parents on every query, so moving a node moves its whole subtree.
type Transform struct {
	name     string
	parent   *Transform
	children []*Transform
	local    spatial.Pose
}

// NewTransform creates a node attached to parent (which may be nil) at the given local pose.
// A nil pose is the zero pose.
func NewTransform(name string, parent *Transform, local spatial.Pose) *Transform {
	if local == nil {
		local = spatial.NewZeroPose()
	}
	t := &Transform{name: name, local: local}
	if parent != nil {
		t.parent = parent
		parent.children = append(parent.children, t)
	}
	return t
}

// Name returns the name of the node.
func (t *Transform) Name() string {
	return t.name
}

// Parent returns the parent node, or nil at the top of the hierarchy.
func (t *Transform) Parent() Node {
	if t.parent == nil {
		return nil
	}
	return t.parent
}

// Children returns the nodes attached directly to t.
func (t *Transform) Children() []*Transform {
	return append([]*Transform(nil), t.children...)
}

// LocalPose returns the pose relative to the parent.
func (t *Transform) LocalPose() spatial.Pose {
	return t.local
}

// SetLocalPose replaces the pose relative to the parent.
func (t *Transform) SetLocalPose(p spatial.Pose) {
	if p == nil {
		p = spatial.NewZeroPose()
	}
	t.local = p
}

// Pose returns the world pose.
func (t *Transform) Pose() spatial.Pose {
	if t.parent == nil {
		return t.local
	}
	return spatial.Compose(t.parent.Pose(), t.local)
}

// SetPose sets the local pose such that the world pose becomes p.
func (t *Transform) SetPose(p spatial.Pose) {
	if t.parent == nil {
		t.SetLocalPose(p)
		return
	}
	t.local = spatial.PoseBetween(t.parent.Pose(), p)
}

// SetParent relinks t under parent. If keepWorldPose is set the local pose is recomputed so t does not
// move; otherwise the local pose is kept and t moves with its new parent.
func (t *Transform) SetParent(parent *Transform, keepWorldPose bool) error {
	for p := parent; p != nil; p = p.parent {
		if p == t {
			return errors.Wrapf(ErrCycle, "cannot attach %q under %q", t.name, parent.name)
		}
	}
	world := t.Pose()
	if t.parent != nil {
		siblings := t.parent.children[:0]
		for _, c := range t.parent.children {
			if c != t {
				siblings = append(siblings, c)
			}
		}
		t.parent.children = siblings
	}
	t.parent = parent
	if parent != nil {
		parent.children = append(parent.children, t)
	}
	if keepWorldPose {
		t.SetPose(world)
	}
	return nil
}

// Find returns the first node named name in the subtree rooted at t, or nil.
func (t *Transform) Find(name string) *Transform {
	if t.name == name {
		return t
	}
	for _, c := range t.children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// BuildChain attaches one node per offset under parent, each child under the previous one, and returns
// them in order from nearest the parent to the tip. names and offsets must be the same length.
func BuildChain(parent *Transform, names []string, offsets []r3.Vector) ([]*Transform, error) {
	if len(names) != len(offsets) {
		return nil, errors.Errorf("got %d names for %d offsets", len(names), len(offsets))
	}
	nodes := make([]*Transform, 0, len(names))
	current := parent
	for i, name := range names {
		current = NewTransform(name, current, spatial.NewPoseFromPoint(offsets[i]))
		nodes = append(nodes, current)
	}
	return nodes, nil
}
