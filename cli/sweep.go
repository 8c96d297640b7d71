package cli

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/ikchain/config"
	"go.viam.com/ikchain/logging"
	"go.viam.com/ikchain/motionplan/ik"
	"go.viam.com/ikchain/rig"
	"go.viam.com/ikchain/utils"
	"go.viam.com/ikchain/utils/matrix"
)

const (
	defaultSweepFrames = 300

	// Sampled targets lie between these fractions of the chain's total length from joint 0, so some
	// fall out of reach.
	minReachFraction = 0.05
	maxReachFraction = 1.25
)

var defaultSweepWorkers = utils.GetenvInt("IKCHAIN_SWEEP_WORKERS", utils.MinInt(runtime.NumCPU(), 8))

// sweepRun is one solver's results over every sampled target.
type sweepRun struct {
	mode      rig.Mode
	reached   int
	frames    []float64
	residuals []float64
	scores    []float64
}

// SweepAction is the corresponding action for 'sweep'.
func SweepAction(c *cli.Context) error {
	samples := c.Int(samplesFlag)
	if samples < 1 {
		return errors.Errorf("--%s must be at least 1, got %d", samplesFlag, samples)
	}
	frames := c.Int(framesFlag)
	if frames < 1 {
		return errors.Errorf("--%s must be at least 1, got %d", framesFlag, frames)
	}
	logger, closeLogger := newLogger(c)
	defer closeLogger()
	conf, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	targets, err := sampleTargets(conf, logger, samples, c.Uint64(seedFlag), c.String(distributionFlag))
	if err != nil {
		return err
	}

	runs := make([]*sweepRun, 0, 2)
	for _, mode := range []rig.Mode{rig.ModeJacobian, rig.ModeFABRIK} {
		run, err := sweep(c.Context, conf, mode, targets, frames, c.Float64(toleranceFlag), c.Int(workersFlag), logger)
		if err != nil {
			return errors.Wrapf(err, "%s sweep", mode)
		}
		runs = append(runs, run)
	}

	printf(c.App.Writer, "%d targets, %d frames each, tolerance %g", samples, frames, c.Float64(toleranceFlag))
	printf(c.App.Writer, "%s", summarize(runs))
	if c.Bool(histogramFlag) {
		for _, run := range runs {
			printf(c.App.Writer, "%s residuals:", run.mode)
			if err := histogram.Fprint(c.App.Writer, histogram.Hist(10, run.residuals), histogram.Linear(40)); err != nil {
				return err
			}
		}
	}
	return nil
}

// sampleTargets draws world space targets around joint 0 of the configured chain.
func sampleTargets(conf *config.Config, logger logging.Logger, n int, seed uint64, distribution string) ([]r3.Vector, error) {
	scene, err := conf.BuildScene(logger)
	if err != nil {
		return nil, err
	}
	var fractions []float64
	switch distribution {
	case distributionUniform:
		fractions = matrix.SampleUniform(n, minReachFraction, maxReachFraction, seed+1)
	case distributionNormal:
		fractions = matrix.SampleNormal(n, minReachFraction, maxReachFraction, seed+1)
	default:
		return nil, errors.Errorf("unknown distribution %q", distribution)
	}
	angles := matrix.SampleUniform(n, -math.Pi, math.Pi, seed)
	origin := scene.Chain.Joint(0).Pose().Point()
	total := scene.Chain.TotalLength()

	targets := make([]r3.Vector, n)
	for i := range targets {
		r := fractions[i] * total
		targets[i] = origin.Add(r3.Vector{X: r * math.Cos(angles[i]), Y: r * math.Sin(angles[i])})
	}
	return targets, nil
}

// sweep builds one scene per target, steps them together for up to frames frames and scores where each
// chain ends up.
func sweep(
	ctx context.Context,
	conf *config.Config,
	mode rig.Mode,
	targets []r3.Vector,
	frames int,
	tolerance float64,
	workers int,
	logger logging.Logger,
) (*sweepRun, error) {
	modeConf := *conf
	modeConf.Solver.Mode = mode.String()
	sublogger := logger.Sublogger(mode.String())

	scenes := make([]*config.Scene, len(targets))
	group := rig.NewGroup()
	group.SetLimit(workers)
	for i, target := range targets {
		scene, err := modeConf.BuildScene(sublogger)
		if err != nil {
			return nil, err
		}
		scene.Target.Set(target)
		scenes[i] = scene
		group.Add(scene.Rig)
	}

	run := &sweepRun{mode: mode}
	reachedAt := make([]int, len(targets))
	residuals := make([]float64, len(targets))
	for frame := 1; frame <= frames; frame++ {
		results, err := group.Step(ctx)
		if err != nil {
			return nil, err
		}
		done := true
		for i, res := range results {
			residuals[i] = res.Residual
			if reachedAt[i] == 0 && res.Residual < tolerance {
				reachedAt[i] = frame
			}
			done = done && reachedAt[i] != 0
		}
		if done {
			break
		}
	}

	for i, scene := range scenes {
		if reachedAt[i] != 0 {
			run.reached++
			run.frames = append(run.frames, float64(reachedAt[i]))
		}
		state := &ik.State{Positions: worldPositions(scene.Chain.Joints())}
		metric := ik.CombineMetrics(
			ik.NewPositionOnlyMetric(targets[i]),
			ik.NewSegmentLengthMetric(scene.Chain.SegmentLengths()),
		)
		run.scores = append(run.scores, metric(state))
	}
	run.residuals = residuals
	sublogger.Debugw("sweep finished", "targets", len(targets), "reached", run.reached)
	return run, nil
}

func summarize(runs []*sweepRun) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Solver", "Reached", "Mean Frames", "Median Residual", "P95 Residual", "Max Residual", "Mean Score"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.mode.String(),
			fmt.Sprintf("%d/%d", run.reached, len(run.residuals)),
			statString(stats.Mean(run.frames)),
			statString(stats.Median(run.residuals)),
			statString(stats.Percentile(run.residuals, 95)),
			statString(stats.Max(run.residuals)),
			statString(stats.Mean(run.scores)),
		})
	}
	return t.Render()
}

func statString(v float64, err error) string {
	if err != nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}
