// Package config describes a chain scene and its solver settings as JSON, and builds the scene, chain
// and rig it describes.
package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/ikchain/rig"
	"go.viam.com/ikchain/utils"
)

// Config is the top level of a scene file.
type Config struct {
	ConfigFilePath string `json:"-"`

	Root   FrameConfig  `json:"root"`
	Chain  ChainConfig  `json:"chain"`
	Target Translation  `json:"target"`
	Solver SolverConfig `json:"solver"`
	Bones  []string     `json:"bones,omitempty"`
	Debug  bool         `json:"debug,omitempty"`
}

// ChainConfig lists the joints from the one nearest the root to the end effector.
type ChainConfig struct {
	Joints []JointConfig `json:"joints"`
	// IKChainLength is the number of segments the solver drives, counted back from the last joint.
	// Zero means every joint.
	IKChainLength int `json:"ik_chain_length,omitempty"`
}

// SolverConfig holds the rig tunables. Zero values take the rig defaults.
type SolverConfig struct {
	Mode            string   `json:"mode,omitempty"`
	Stride          float64  `json:"stride,omitempty"`
	StoppingDelta   float64  `json:"stopping_delta,omitempty"`
	Damping         float64  `json:"damping,omitempty"`
	FABRIKOffsetDeg *float64 `json:"fabrik_offset_deg,omitempty"`
}

// NewDefault returns the four segment arm with rest lengths 13.5, 11, 3.5 and 4 laid out along +X from
// the origin, with the target at its reach limit.
func NewDefault() *Config {
	cfg := &Config{
		Chain: ChainConfig{
			Joints: []JointConfig{
				{Name: "shoulder"},
				{Name: "elbow", Translation: Translation{X: 13.5}},
				{Name: "wrist", Translation: Translation{X: 11}},
				{Name: "hand", Translation: Translation{X: 3.5}},
				{Name: "tip", Translation: Translation{X: 4}},
			},
		},
		Target: Translation{X: 32},
	}
	cfg.applyDefaults()
	return cfg
}

// ChainLength returns the number of segments the solver drives.
func (c *Config) ChainLength() int {
	if c.Chain.IKChainLength == 0 {
		return len(c.Chain.Joints) - 1
	}
	return c.Chain.IKChainLength
}

// BoneNames returns the configured bone names, or one bone per driven segment.
func (c *Config) BoneNames() []string {
	if len(c.Bones) > 0 {
		return c.Bones
	}
	n := c.ChainLength()
	if n < 1 || n >= len(c.Chain.Joints) {
		return nil
	}
	joints := c.Chain.Joints[len(c.Chain.Joints)-1-n:]
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		names = append(names, fmt.Sprintf("%s-%s", joints[i].Name, joints[i+1].Name))
	}
	return names
}

func (c *Config) applyDefaults() {
	if c.Solver.Mode == "" {
		c.Solver.Mode = rig.ModeJacobian.String()
	}
	if c.Solver.Stride == 0 {
		c.Solver.Stride = rig.DefaultStride
	}
	if c.Solver.StoppingDelta == 0 {
		c.Solver.StoppingDelta = rig.DefaultStoppingDelta
	}
	if c.Solver.FABRIKOffsetDeg == nil {
		offset := rig.DefaultFABRIKOffsetDeg
		c.Solver.FABRIKOffsetDeg = &offset
	}
}

// Validate ensures all parts of the config are valid. Every problem found is reported.
func (c *Config) Validate(path string) error {
	var errs error
	errs = multierr.Append(errs, c.Chain.Validate(joinPath(path, "chain")))
	if _, err := c.Solver.Options(); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError(joinPath(path, "solver"), err))
	}
	return errs
}

// Validate ensures all parts of the config are valid.
func (c *ChainConfig) Validate(path string) error {
	var errs error
	if len(c.Joints) < 2 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(
			joinPath(path, "joints"), errors.Errorf("need at least 2 joints, got %d", len(c.Joints))))
	}
	seen := map[string]bool{}
	for idx := range c.Joints {
		jointPath := joinPath(path, fmt.Sprintf("joints.%d", idx))
		if err := c.Joints[idx].Validate(jointPath); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if seen[c.Joints[idx].Name] {
			errs = multierr.Append(errs, utils.NewConfigValidationError(
				jointPath, errors.Errorf("duplicate joint name %q", c.Joints[idx].Name)))
		}
		seen[c.Joints[idx].Name] = true
	}
	if c.IKChainLength < 0 || (len(c.Joints) >= 2 && c.IKChainLength > len(c.Joints)-1) {
		errs = multierr.Append(errs, utils.NewConfigValidationError(
			joinPath(path, "ik_chain_length"),
			errors.Errorf("must be between 1 and %d, got %d", len(c.Joints)-1, c.IKChainLength)))
	}
	return errs
}

// Options converts the solver section into rig options.
func (s *SolverConfig) Options() (rig.Options, error) {
	opts := rig.DefaultOptions()
	mode, err := rig.ModeFromString(strings.ToLower(s.Mode))
	if err != nil {
		return rig.Options{}, err
	}
	opts.Mode = mode
	if s.Stride != 0 {
		opts.Stride = s.Stride
	}
	if s.StoppingDelta != 0 {
		opts.StoppingDelta = s.StoppingDelta
	}
	opts.Damping = s.Damping
	if s.FABRIKOffsetDeg != nil {
		opts.FABRIKOffsetDeg = *s.FABRIKOffsetDeg
	}
	if err := opts.Validate(); err != nil {
		return rig.Options{}, err
	}
	return opts, nil
}

// ApplyOverrides sets solver and chain fields from key=value strings, such as those given on the command
// line. Keys are the JSON field names; values are converted to the field types.
func (c *Config) ApplyOverrides(overrides map[string]string) error {
	chainFields := map[string]interface{}{}
	solverFields := map[string]interface{}{}
	for k, v := range overrides {
		if k == "ik_chain_length" {
			chainFields[k] = v
			continue
		}
		solverFields[k] = v
	}
	if err := decodeWeakly(chainFields, &c.Chain); err != nil {
		return errors.Wrap(err, "chain overrides")
	}
	if err := decodeWeakly(solverFields, &c.Solver); err != nil {
		return errors.Wrap(err, "solver overrides")
	}
	return c.Validate("")
}

func decodeWeakly(input map[string]interface{}, result interface{}) error {
	if len(input) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// ParseOverrides splits "key=value" pairs.
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, errors.Errorf("override %q is not key=value", pair)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
