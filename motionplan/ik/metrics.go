package ik

import (
	"math"

	"github.com/golang/geo/r3"

	spatial "go.viam.com/ikchain/spatialmath"
	"go.viam.com/ikchain/utils"
)

// State is a chain configuration to be scored: joint positions in the root frame, ordered from joint 0
// to the end effector.
type State struct {
	Positions []r3.Vector
}

// EndEffector returns the last position of the state.
func (s *State) EndEffector() r3.Vector {
	return s.Positions[len(s.Positions)-1]
}

// StateMetric are functions which, given a State, produces some score. Lower is better.
type StateMetric func(*State) float64

// NewZeroMetric always returns zero.
func NewZeroMetric() StateMetric {
	return func(from *State) float64 { return 0 }
}

type combinableStateMetric struct {
	metrics []StateMetric
}

func (m *combinableStateMetric) combinedDist(input *State) float64 {
	dist := 0.
	for _, metric := range m.metrics {
		dist += metric(input)
	}
	return dist
}

// CombineMetrics will take a variable number of Metrics and return a new Metric which will combine all given metrics into one, summing
// their distances.
func CombineMetrics(metrics ...StateMetric) StateMetric {
	cm := &combinableStateMetric{metrics: metrics}
	return cm.combinedDist
}

// NewPositionOnlyMetric returns a Metric that reports the squared distance from the end effector to goal.
func NewPositionOnlyMetric(goal r3.Vector) StateMetric {
	return func(state *State) float64 {
		return state.EndEffector().Sub(goal).Norm2()
	}
}

// NewSegmentLengthMetric returns a Metric that sums the squared stretch of every segment away from its
// fixed length. A solver that keeps lengths rigid scores zero up to rounding.
func NewSegmentLengthMetric(lengths []float64) StateMetric {
	return func(state *State) float64 {
		score := 0.
		for i, length := range lengths {
			score += utils.Square(state.Positions[i+1].Sub(state.Positions[i]).Norm() - length)
		}
		return score
	}
}

// CollinearityMetric returns the largest distance of any joint from the line through joint 0 and the
// end effector. A fully stretched chain scores zero.
func CollinearityMetric(state *State) float64 {
	start, end := state.Positions[0], state.EndEffector()
	axis := end.Sub(start)
	if axis.Norm() == 0 {
		return 0
	}
	axis = axis.Normalize()
	worst := 0.
	for _, p := range state.Positions {
		rel := p.Sub(start)
		worst = math.Max(worst, rel.Sub(axis.Mul(rel.Dot(axis))).Norm())
	}
	return worst
}

// OrientDist returns the arclength between two orientations in degrees.
func OrientDist(o1, o2 spatial.Orientation) float64 {
	return utils.RadToDeg(spatial.QuatToR4AA(spatial.OrientationBetween(o1, o2).Quaternion()).Theta)
}
