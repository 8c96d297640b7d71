package rig

import (
	"go.uber.org/atomic"
)

// Marker is an auxiliary visual object whose visibility follows the solver mode.
type Marker interface {
	Name() string
	SetVisible(visible bool)
}

// Markers is the set of markers a rig toggles. The host owns the markers; the rig only flips them.
type Markers interface {
	All() []Marker
}

// Bone is a Marker that only records whether it should be drawn.
type Bone struct {
	name    string
	visible *atomic.Bool
}

// NewBone returns a visible bone.
func NewBone(name string) *Bone {
	return &Bone{name: name, visible: atomic.NewBool(true)}
}

// Name returns the name of the bone.
func (b *Bone) Name() string {
	return b.name
}

// SetVisible shows or hides the bone.
func (b *Bone) SetVisible(visible bool) {
	b.visible.Store(visible)
}

// Visible reports whether the bone is shown.
func (b *Bone) Visible() bool {
	return b.visible.Load()
}

// BoneSet is a fixed set of bones.
type BoneSet []*Bone

// NewBoneSet returns one visible bone per name.
func NewBoneSet(names ...string) BoneSet {
	set := make(BoneSet, 0, len(names))
	for _, n := range names {
		set = append(set, NewBone(n))
	}
	return set
}

// All returns the bones as markers.
func (s BoneSet) All() []Marker {
	out := make([]Marker, 0, len(s))
	for _, b := range s {
		out = append(out, b)
	}
	return out
}

// Visible reports whether every bone is shown. An empty set counts as hidden.
func (s BoneSet) Visible() bool {
	if len(s) == 0 {
		return false
	}
	for _, b := range s {
		if !b.Visible() {
			return false
		}
	}
	return true
}

func setMarkersVisible(markers Markers, visible bool) {
	if markers == nil {
		return
	}
	for _, m := range markers.All() {
		m.SetVisible(visible)
	}
}
