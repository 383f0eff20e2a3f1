// Package busters wires the ghost tracking packages together from a YAML run
// configuration.
//
// Package busters はYAML設定からゴースト追跡の各パッケージを組み立てます。
package busters

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/sw965/busters/game"
	"github.com/sw965/busters/inference"
	"github.com/sw965/busters/sensor"
	"github.com/sw965/busters/sim"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	InferenceExact    = "exact"
	InferenceParticle = "particle"
	InferenceMarginal = "marginal"

	SensorSonar = "sonar"
	SensorExact = "exact"

	GhostRandom      = "random"
	GhostDirectional = "directional"

	SelectWeighted = "weighted"
	SelectMax      = "max"
)

type Config struct {
	Layout    LayoutConfig    `yaml:"layout"`
	Inference InferenceConfig `yaml:"inference"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Ghost     GhostConfig     `yaml:"ghost"`
	Run       RunConfig       `yaml:"run"`
	Log       LogConfig       `yaml:"log"`
}

// LayoutConfig names a layout file or built-in layout. Text, when set, takes precedence.
type LayoutConfig struct {
	Name string `yaml:"name,omitempty"`
	Text string `yaml:"text,omitempty"`
}

type InferenceConfig struct {
	Kind           string `yaml:"kind"`
	Particles      int    `yaml:"particles"`
	JointParticles int    `yaml:"jointParticles"`
}

type SensorConfig struct {
	Kind  string `yaml:"kind"`
	Range int    `yaml:"range,omitempty"`
}

// GhostConfig.Select is how a ghost turns its policy into a move: "weighted" samples it,
// "max" takes its most likely action.
type GhostConfig struct {
	Kind   string  `yaml:"kind"`
	Attack float32 `yaml:"attack,omitempty"`
	Select string  `yaml:"select"`
}

type RunConfig struct {
	Episodes int    `yaml:"episodes"`
	Ticks    int    `yaml:"ticks"`
	Workers  int    `yaml:"workers"`
	Seed     uint64 `yaml:"seed"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() Config {
	return Config{
		Layout: LayoutConfig{Name: "smallHunt"},
		Inference: InferenceConfig{
			Kind:           InferenceExact,
			Particles:      inference.DefaultParticles,
			JointParticles: inference.DefaultJointParticles,
		},
		Sensor: SensorConfig{Kind: SensorSonar, Range: sensor.DefaultSonarRange},
		Ghost:  GhostConfig{Kind: GhostRandom, Attack: game.DefaultAttack, Select: SelectWeighted},
		Run:    RunConfig{Episodes: 10, Ticks: 100, Workers: 4, Seed: 1},
		Log:    LogConfig{Level: "info", Format: LogFormatText},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config file not found: %s", path)
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func SaveConfig(path string, config Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.Layout.Name == "" && c.Layout.Text == "" {
		return fmt.Errorf("%w: layout.name or layout.text is required", ErrInvalidConfig)
	}

	switch c.Inference.Kind {
	case InferenceExact, InferenceParticle, InferenceMarginal:
	default:
		return fmt.Errorf("%w: unknown inference.kind %q", ErrInvalidConfig, c.Inference.Kind)
	}
	if c.Inference.Particles <= 0 {
		return fmt.Errorf("%w: inference.particles must be positive, got %d", ErrInvalidConfig, c.Inference.Particles)
	}
	if c.Inference.JointParticles <= 0 {
		return fmt.Errorf("%w: inference.jointParticles must be positive, got %d", ErrInvalidConfig, c.Inference.JointParticles)
	}

	switch c.Sensor.Kind {
	case SensorSonar:
		if err := (sensor.Sonar{Range: c.Sensor.Range}).Validate(); err != nil {
			return fmt.Errorf("%w: sensor.range: %w", ErrInvalidConfig, err)
		}
	case SensorExact:
	default:
		return fmt.Errorf("%w: unknown sensor.kind %q", ErrInvalidConfig, c.Sensor.Kind)
	}

	switch c.Ghost.Kind {
	case GhostRandom:
	case GhostDirectional:
		if c.Ghost.Attack < 0 || c.Ghost.Attack > 1 {
			return fmt.Errorf("%w: ghost.attack must be within [0, 1], got %f", ErrInvalidConfig, c.Ghost.Attack)
		}
	default:
		return fmt.Errorf("%w: unknown ghost.kind %q", ErrInvalidConfig, c.Ghost.Kind)
	}
	switch c.Ghost.Select {
	case SelectWeighted, SelectMax:
	default:
		return fmt.Errorf("%w: unknown ghost.select %q", ErrInvalidConfig, c.Ghost.Select)
	}

	if c.Run.Episodes < 0 {
		return fmt.Errorf("%w: run.episodes must be non-negative, got %d", ErrInvalidConfig, c.Run.Episodes)
	}
	if c.Run.Ticks <= 0 {
		return fmt.Errorf("%w: run.ticks must be positive, got %d", ErrInvalidConfig, c.Run.Ticks)
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("%w: run.workers must be positive, got %d", ErrInvalidConfig, c.Run.Workers)
	}

	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}

func (c Config) BuildLayout() (*game.Layout, error) {
	if c.Layout.Text != "" {
		return game.ParseLayout(c.Layout.Text)
	}
	return game.LoadLayout(c.Layout.Name)
}

func (c Config) BuildNoise() sensor.NoiseModel {
	if c.Sensor.Kind == SensorExact {
		return sensor.Exact{}
	}
	return sensor.Sonar{Range: c.Sensor.Range}
}

// BuildGhosts returns one motion policy per ghost, indexed from 1.
func (c Config) BuildGhosts(n int) ([]game.Ghost, error) {
	ghosts := make([]game.Ghost, n)
	for i := range ghosts {
		switch c.Ghost.Kind {
		case GhostDirectional:
			g, err := game.NewDirectionalGhost(i+1, c.Ghost.Attack)
			if err != nil {
				return nil, err
			}
			ghosts[i] = g
		default:
			ghosts[i] = game.NewRandomGhost(i + 1)
		}
	}
	return ghosts, nil
}

func (c Config) BuildSelectFunc() game.SelectFunc[game.Direction] {
	if c.Ghost.Select == SelectMax {
		return game.MaxSelectFunc[game.Direction]
	}
	return game.WeightedRandomSelectFunc[game.Direction]
}

func (c Config) BuildModules(noise sensor.NoiseModel, opts ...inference.Option) sim.NewModulesFunc {
	switch c.Inference.Kind {
	case InferenceParticle:
		return sim.ParticleModules(noise, append(slices.Clone(opts), inference.WithParticles(c.Inference.Particles))...)
	case InferenceMarginal:
		return sim.MarginalModules(noise, append(slices.Clone(opts), inference.WithParticles(c.Inference.JointParticles))...)
	default:
		return sim.ExactModules(noise, opts...)
	}
}

// BuildEngine validates c and assembles the simulator it describes.
func (c Config) BuildEngine(opts ...inference.Option) (sim.Engine, error) {
	if err := c.Validate(); err != nil {
		return sim.Engine{}, err
	}
	l, err := c.BuildLayout()
	if err != nil {
		return sim.Engine{}, err
	}
	ghosts, err := c.BuildGhosts(l.NumGhosts())
	if err != nil {
		return sim.Engine{}, err
	}
	noise := c.BuildNoise()
	return sim.Engine{
		Layout:          l,
		Ghosts:          ghosts,
		GhostSelectFunc: c.BuildSelectFunc(),
		Noise:           noise,
		NewModules:      c.BuildModules(noise, opts...),
		Ticks:           c.Run.Ticks,
	}, nil
}
