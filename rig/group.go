package rig

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Group steps independent rigs in parallel. Rigs in a group must not share joints.
type Group struct {
	rigs  []*Rig
	limit int
}

// NewGroup returns a group of the given rigs.
func NewGroup(rigs ...*Rig) *Group {
	return &Group{rigs: rigs}
}

// Add appends a rig to the group.
func (g *Group) Add(r *Rig) {
	g.rigs = append(g.rigs, r)
}

// SetLimit bounds the number of rigs stepped at once. n <= 0 means no bound.
func (g *Group) SetLimit(n int) {
	g.limit = n
}

// Len returns the number of rigs in the group.
func (g *Group) Len() int {
	return len(g.rigs)
}

// Step runs one Step on every rig concurrently and returns the results in rig order. The first error
// cancels the rigs that have not started yet and is returned.
func (g *Group) Step(ctx context.Context) ([]Result, error) {
	results := make([]Result, len(g.rigs))
	eg, ctx := errgroup.WithContext(ctx)
	if g.limit > 0 {
		eg.SetLimit(g.limit)
	}
	for i, r := range g.rigs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.Step()
			if err != nil {
				return errors.Wrapf(err, "rig %d", i)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
