package rig

import (
	"math"
	"sync"

	"github.com/golang/geo/r3"

	"go.viam.com/ikchain/referenceframe"
)

// Target supplies the world space point the end effector is driven toward. Rigs only read it.
type Target interface {
	Point() r3.Vector
}

// PointTarget is a Target that can be moved from another goroutine while rigs read it.
type PointTarget struct {
	mu sync.RWMutex
	p  r3.Vector
}

// NewPointTarget returns a target at p.
func NewPointTarget(p r3.Vector) *PointTarget {
	return &PointTarget{p: p}
}

// Point returns the current position.
func (t *PointTarget) Point() r3.Vector {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.p
}

// Set moves the target.
func (t *PointTarget) Set(p r3.Vector) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p = p
}

// NodeTarget follows the world position of a scene node.
type NodeTarget struct {
	Node referenceframe.Node
}

// Point returns the world position of the node.
func (t NodeTarget) Point() r3.Vector {
	return t.Node.Pose().Point()
}

// DefaultRaycastRange is the farthest a pointer ray may hit the target plane.
const DefaultRaycastRange = 1000.

// PlaneTarget is a PointTarget placed by pointer rays. The target only moves within the plane of
// constant Z it currently sits in.
type PlaneTarget struct {
	*PointTarget
	Range float64
}

// NewPlaneTarget returns a target at p that accepts rays up to DefaultRaycastRange long.
func NewPlaneTarget(p r3.Vector) *PlaneTarget {
	return &PlaneTarget{PointTarget: NewPointTarget(p), Range: DefaultRaycastRange}
}

// Raycast casts a ray from origin along direction onto the plane through the target with constant Z.
// On a hit within range the target moves to the hit point and true is returned. Rays parallel to the
// plane or pointing away from it leave the target where it is.
func (t *PlaneTarget) Raycast(origin, direction r3.Vector) (r3.Vector, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if direction.Norm() == 0 || math.Abs(direction.Z) < 1e-12 {
		return t.p, false
	}
	direction = direction.Normalize()
	dist := (t.p.Z - origin.Z) / direction.Z
	if dist < 0 || dist > t.Range {
		return t.p, false
	}
	hit := origin.Add(direction.Mul(dist))
	t.p = r3.Vector{X: hit.X, Y: hit.Y, Z: t.p.Z}
	return t.p, true
}
