package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/ikchain/config"
	"go.viam.com/ikchain/logging"
	"go.viam.com/ikchain/referenceframe"
	"go.viam.com/ikchain/rig"
	spatial "go.viam.com/ikchain/spatialmath"
)

const defaultSolveFrames = 200

// newLogger returns a logger writing to the app's error stream, and to --log-file if given, at the
// level the --debug flag asks for. Call the returned func when done with it.
func newLogger(c *cli.Context) (logging.Logger, func()) {
	logger := logging.NewBlankLogger("ikchain")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	logger.SetLevel(logging.INFO)
	if c.Bool(debugFlag) {
		logger.SetLevel(logging.DEBUG)
	}
	closeLogger := func() {
		goutils.UncheckedErrorFunc(logger.Sync)
	}
	if path := c.String(logFileFlag); path != "" {
		file := logging.NewFileAppender(path)
		logger.AddAppender(file)
		closeLogger = func() {
			goutils.UncheckedErrorFunc(logger.Sync)
			goutils.UncheckedError(file.Close())
		}
	}
	return logger, closeLogger
}

// loadConfig reads the --config file, or the built in arm, and applies the command line overrides.
func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	conf := config.NewDefault()
	if path := c.String(configFlag); path != "" {
		var err error
		conf, err = config.Read(path, logger)
		if err != nil {
			return nil, err
		}
	}

	overrides, err := config.ParseOverrides(c.StringSlice(setFlag))
	if err != nil {
		return nil, err
	}
	if c.IsSet(modeFlag) {
		overrides["mode"] = c.String(modeFlag)
	}
	if len(overrides) > 0 {
		if err := conf.ApplyOverrides(overrides); err != nil {
			return nil, err
		}
	}

	if c.IsSet(targetFlag) {
		target, err := parseVector(c.String(targetFlag))
		if err != nil {
			return nil, errors.Wrapf(err, "bad --%s", targetFlag)
		}
		conf.Target = config.Translation{X: target.X, Y: target.Y, Z: target.Z}
	}

	conf.InitLoggingSettings(logger, c.Bool(debugFlag))
	return conf, nil
}

func worldPositions(nodes []referenceframe.Node) []r3.Vector {
	return lo.Map(nodes, func(n referenceframe.Node, _ int) r3.Vector { return n.Pose().Point() })
}

// DescribeAction is the corresponding action for 'describe'.
func DescribeAction(c *cli.Context) error {
	logger, closeLogger := newLogger(c)
	defer closeLogger()
	conf, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	scene, err := conf.BuildScene(logger)
	if err != nil {
		return err
	}
	opts := scene.Rig.Options()
	root := "world"
	if scene.Chain.Root() != nil {
		root = scene.Chain.Root().Name()
	}
	printf(c.App.Writer, "chain of %d segments under %q, positions relative to it:", scene.Chain.Len(), root)
	printf(c.App.Writer, "%s", scene.Chain.String())
	printf(c.App.Writer, "mode %s, stride %g, stopping delta %g, damping %g, fabrik offset %g deg",
		opts.Mode, opts.Stride, opts.StoppingDelta, opts.Damping, opts.FABRIKOffsetDeg)
	if r := scene.Chain.Root(); r != nil {
		printf(c.App.Writer, "root pose %s", spatial.PoseToString(r.Pose()))
	}
	printf(c.App.Writer, "target %s", spatial.PoseToString(spatial.NewPoseFromPoint(scene.Target.Point())))
	return nil
}

// SolveAction is the corresponding action for 'solve'.
func SolveAction(c *cli.Context) error {
	frames := c.Int(framesFlag)
	if frames < 1 {
		return errors.Errorf("--%s must be at least 1, got %d", framesFlag, frames)
	}
	if c.Float64(fpsFlag) < 0 {
		return errors.Errorf("--%s must not be negative, got %g", fpsFlag, c.Float64(fpsFlag))
	}
	logger, closeLogger := newLogger(c)
	defer closeLogger()
	conf, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	scene, err := conf.BuildScene(logger)
	if err != nil {
		return err
	}

	effector := scene.Joints[len(scene.Joints)-1]
	trace := []r3.Vector{effector.Pose().Point()}
	var last rig.Result
	stepped := 0
	onResult := func(res rig.Result) bool {
		last = res
		stepped++
		trace = append(trace, effector.Pose().Point())
		if c.Bool(traceFlag) {
			printf(c.App.Writer, "frame %d\t%s\tresidual %.4f", stepped, res.Outcome, res.Residual)
		}
		return res.Outcome != rig.OutcomeSatisfied
	}

	if fps := c.Float64(fpsFlag); fps > 0 {
		interval := time.Duration(float64(time.Second) / fps)
		if _, err := scene.Rig.Run(c.Context, clock.New(), interval, frames, onResult); err != nil {
			return errors.Wrapf(err, "frame %d", stepped)
		}
	} else {
		for stepped < frames {
			if err := c.Context.Err(); err != nil {
				return err
			}
			res, err := scene.Rig.Step()
			if err != nil {
				return errors.Wrapf(err, "frame %d", stepped)
			}
			if !onResult(res) {
				break
			}
		}
	}

	printf(c.App.Writer, "%s: %s after %d frames, residual %.4f, reach %.3f of %.3f",
		last.Mode, last.Outcome, stepped, last.Residual, last.Reach, scene.Chain.TotalLength())
	printf(c.App.Writer, "%s", scene.Chain.String())

	if path := c.String(plotFlag); path != "" {
		if err := writePlot(path, worldPositions(scene.Chain.Joints()), scene.Target.Point(), trace); err != nil {
			return err
		}
		printf(c.App.Writer, "wrote plot to %s", path)
	}
	return nil
}

// SchemaAction is the corresponding action for 'schema'.
func SchemaAction(c *cli.Context) error {
	out, err := json.MarshalIndent(config.Schema(), "", "  ")
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return nil
}

// VersionAction is the corresponding action for 'version'.
func VersionAction(c *cli.Context) error {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return errors.New("error reading build info")
	}
	if c.Bool(debugFlag) {
		printf(c.App.Writer, "%s", info.String())
	}
	settings := make(map[string]string, len(info.Settings))
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	version := "?"
	if rev, ok := settings["vcs.revision"]; ok && len(rev) >= 8 {
		version = rev[:8]
		if settings["vcs.modified"] == "true" {
			version += "+"
		}
	}
	deps := make(map[string]*debug.Module, len(info.Deps))
	for _, dep := range info.Deps {
		deps[dep.Path] = dep
	}
	gonumVersion := "?"
	if dep, ok := deps["gonum.org/v1/gonum"]; ok {
		gonumVersion = dep.Version
	}
	printf(c.App.Writer, "version %s git=%s gonum=%s", info.Main.Version, version, gonumVersion)
	return nil
}

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	_, err := fmt.Fprintf(w, format+"\n", a...)
	goutils.UncheckedError(err)
}
