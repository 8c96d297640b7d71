package cli

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

func toXYs(points []r3.Vector) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, p := range points {
		xys[i].X = p.X
		xys[i].Y = p.Y
	}
	return xys
}

// writePlot draws the joints, the path the end effector took and the target in the XY plane and saves
// it to path. The file extension picks the format.
func writePlot(path string, joints []r3.Vector, target r3.Vector, trace []r3.Vector) error {
	p := plot.New()
	p.Title.Text = "chain"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())

	chainLine, chainPoints, err := plotter.NewLinePoints(toXYs(joints))
	if err != nil {
		return errors.Wrap(err, "cannot plot joints")
	}
	chainLine.Color = plotutil.Color(0)
	chainLine.Width = vg.Points(2)
	chainPoints.GlyphStyle.Shape = draw.CircleGlyph{}
	chainPoints.GlyphStyle.Color = plotutil.Color(0)

	traceLine, err := plotter.NewLine(toXYs(trace))
	if err != nil {
		return errors.Wrap(err, "cannot plot end effector trace")
	}
	traceLine.Color = plotutil.Color(1)
	traceLine.Dashes = plotutil.Dashes(1)

	targetPoint, err := plotter.NewScatter(toXYs([]r3.Vector{target}))
	if err != nil {
		return errors.Wrap(err, "cannot plot target")
	}
	targetPoint.GlyphStyle.Shape = draw.CrossGlyph{}
	targetPoint.GlyphStyle.Color = plotutil.Color(2)
	targetPoint.GlyphStyle.Radius = vg.Points(5)

	p.Add(traceLine, chainLine, chainPoints, targetPoint)
	p.Legend.Add("chain", chainLine, chainPoints)
	p.Legend.Add("end effector", traceLine)
	p.Legend.Add("target", targetPoint)

	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}
