// Package cli contains the ikchain command line: describing a configured chain, solving it toward a
// target frame by frame and sweeping both solvers over sampled targets.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Global flags.
	configFlag  = "config"
	debugFlag   = "debug"
	logFileFlag = "log-file"

	// Flags shared by solve and sweep.
	modeFlag   = "mode"
	framesFlag = "frames"
	setFlag    = "set"

	// Solve flags.
	targetFlag = "target"
	plotFlag   = "plot"
	traceFlag  = "trace"
	fpsFlag    = "fps"

	// Sweep flags.
	samplesFlag      = "samples"
	seedFlag         = "seed"
	distributionFlag = "distribution"
	toleranceFlag    = "tolerance"
	workersFlag      = "workers"
	histogramFlag    = "histogram"

	distributionUniform = "uniform"
	distributionNormal  = "normal"
)

var app = &cli.App{
	Name:            "ikchain",
	Usage:           "solve planar joint chains toward a target",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`; the built in four segment arm is used if omitted",
		},
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.StringFlag{
			Name:  logFileFlag,
			Usage: "also write logs to `FILE`, rotated as it grows",
		},
	},
	Commands: []*cli.Command{
		{
			Name:   "describe",
			Usage:  "print the chain and solver settings a config describes",
			Flags:  []cli.Flag{overridesFlag()},
			Action: DescribeAction,
		},
		{
			Name:  "solve",
			Usage: "step the chain toward a target and print where it ends up",
			Flags: []cli.Flag{
				modeFlagDef(),
				framesFlagDef(defaultSolveFrames),
				overridesFlag(),
				&cli.StringFlag{
					Name:  targetFlag,
					Usage: "target position as `X,Y[,Z]` in world space; overrides the config target",
				},
				&cli.StringFlag{
					Name:  plotFlag,
					Usage: "write a plot of the final chain to `FILE` (png, svg or pdf)",
				},
				&cli.BoolFlag{
					Name:  traceFlag,
					Usage: "print the result of every frame",
				},
				&cli.Float64Flag{
					Name:  fpsFlag,
					Usage: "step at most this many frames per second; 0 steps as fast as possible",
				},
			},
			Action: SolveAction,
		},
		{
			Name:  "sweep",
			Usage: "solve toward many sampled targets with both solvers and compare them",
			Flags: []cli.Flag{
				framesFlagDef(defaultSweepFrames),
				overridesFlag(),
				&cli.IntFlag{
					Name:  samplesFlag,
					Value: 64,
					Usage: "number of targets to sample",
				},
				&cli.Uint64Flag{
					Name:  seedFlag,
					Value: 1,
					Usage: "seed for target sampling",
				},
				&cli.StringFlag{
					Name:  distributionFlag,
					Value: distributionUniform,
					Usage: "distribution of target distances, one of " + distributionUniform + " or " + distributionNormal,
				},
				&cli.Float64Flag{
					Name:  toleranceFlag,
					Value: 0.05,
					Usage: "residual under which a target counts as reached",
				},
				&cli.IntFlag{
					Name:  workersFlag,
					Value: defaultSweepWorkers,
					Usage: "number of chains solved at once",
				},
				&cli.BoolFlag{
					Name:  histogramFlag,
					Usage: "print a histogram of final residuals per solver",
				},
			},
			Action: SweepAction,
		},
		{
			Name:   "schema",
			Usage:  "print the JSON schema of the config file",
			Action: SchemaAction,
		},
		{
			Name:   "version",
			Usage:  "print version info for this program",
			Action: VersionAction,
		},
	},
}

func modeFlagDef() cli.Flag {
	return &cli.StringFlag{
		Name:    modeFlag,
		Aliases: []string{"m"},
		Usage:   "solver mode, jacobian or fabrik; overrides the config",
	}
}

func framesFlagDef(def int) cli.Flag {
	return &cli.IntFlag{
		Name:    framesFlag,
		Aliases: []string{"n"},
		Value:   def,
		Usage:   "maximum number of frames to step",
	}
}

func overridesFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  setFlag,
		Usage: "override a solver or chain setting as `KEY=VALUE`, e.g. stride=0.5 (repeatable)",
	}
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
