package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"ikchain"}, args...))
	return out.String(), errOut.String(), err
}

func TestParseVector(t *testing.T) {
	v, err := parseVector("1, 2.5")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, r3.Vector{X: 1, Y: 2.5})

	v, err = parseVector("1,2,-3")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v.Z, test.ShouldEqual, -3.)

	_, err = parseVector("1")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseVector("1,y")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "coordinate 1")
}

func TestDescribeAction(t *testing.T) {
	out, _, err := runApp(t, "describe", "--set", "stride=0.5", "--set", "damping=0.1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `chain of 4 segments under "root"`)
	test.That(t, out, test.ShouldContainSubstring, "stride 0.5")
	test.That(t, out, test.ShouldContainSubstring, "damping 0.1")
	test.That(t, out, test.ShouldContainSubstring, "tip")
	test.That(t, out, test.ShouldContainSubstring, "32.000")
	test.That(t, out, test.ShouldContainSubstring, "root pose {X:")
	test.That(t, out, test.ShouldContainSubstring, "target {X:")

	_, _, err = runApp(t, "describe", "--set", "stride=7")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "stride 7 outside")

	_, _, err = runApp(t, "describe", "--set", "stride")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSolveAction(t *testing.T) {
	plotPath := filepath.Join(t.TempDir(), "chain.png")
	out, _, err := runApp(t,
		"solve", "--mode", "fabrik", "--target", "20,10", "--frames", "1000",
		"--set", "stopping_delta=0.01", "--plot", plotPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "fabrik: satisfied after")
	test.That(t, out, test.ShouldContainSubstring, "wrote plot to")
	info, err := os.Stat(plotPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)

	t.Run("out of reach", func(t *testing.T) {
		out, _, err := runApp(t, "solve", "--target", "100,0", "--frames", "3", "--trace")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, strings.Count(out, "\tstretched\t"), test.ShouldEqual, 3)
		test.That(t, out, test.ShouldContainSubstring, "jacobian: stretched after 3 frames")
	})

	t.Run("bad flags", func(t *testing.T) {
		_, _, err := runApp(t, "solve", "--frames", "0")
		test.That(t, err, test.ShouldNotBeNil)
		_, _, err = runApp(t, "solve", "--target", "north")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "bad --target")
		_, _, err = runApp(t, "solve", "--mode", "ccd")
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "arm.json")
		contents := `{
			"chain": {"joints": [
				{"name": "a"},
				{"name": "b", "translation": {"x": 10}, "angle_deg": 30},
				{"name": "c", "translation": {"x": 10}, "angle_deg": 30}
			]},
			"target": {"x": 5, "y": 12},
			"solver": {"damping": 0.05}
		}`
		test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
		out, _, err := runApp(t, "--config", path, "solve", "--frames", "5")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out, test.ShouldContainSubstring, "jacobian: ")
		test.That(t, out, test.ShouldContainSubstring, " frames, residual ")

		_, _, err = runApp(t, "--config", filepath.Join(t.TempDir(), "missing.json"), "solve")
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestSweepAction(t *testing.T) {
	out, _, err := runApp(t,
		"sweep", "--samples", "6", "--frames", "40", "--workers", "2", "--seed", "7", "--histogram",
		"--set", "damping=0.1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "6 targets, 40 frames each")
	test.That(t, out, test.ShouldContainSubstring, "REACHED")
	test.That(t, out, test.ShouldContainSubstring, "jacobian residuals:")
	test.That(t, out, test.ShouldContainSubstring, "fabrik residuals:")

	out2, _, err := runApp(t,
		"sweep", "--samples", "6", "--frames", "40", "--workers", "2", "--seed", "7", "--distribution", "normal")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out2, test.ShouldContainSubstring, "fabrik")

	_, _, err = runApp(t, "sweep", "--distribution", "poisson")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown distribution")

	_, _, err = runApp(t, "sweep", "--samples", "0")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSolvePaced(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ikchain.log")
	out, _, err := runApp(t, "--log-file", logPath, "--debug",
		"solve", "--target", "100,0", "--frames", "2", "--fps", "200", "--trace")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.Count(out, "\tstretched\t"), test.ShouldEqual, 2)
	test.That(t, out, test.ShouldContainSubstring, "after 2 frames")

	logs, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logs), test.ShouldContainSubstring, "built scene")

	_, _, err = runApp(t, "solve", "--fps", "-1")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSchemaAction(t *testing.T) {
	out, _, err := runApp(t, "schema")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `"ik_chain_length"`)
}

func TestVersionAction(t *testing.T) {
	out, _, err := runApp(t, "version")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "version ")
	test.That(t, out, test.ShouldContainSubstring, "gonum=")
}

func TestDebugLogging(t *testing.T) {
	_, errOut, err := runApp(t, "--debug", "describe")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, errOut, test.ShouldContainSubstring, "built scene")

	_, errOut, err = runApp(t, "describe")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, errOut, test.ShouldNotContainSubstring, "built scene")
}
