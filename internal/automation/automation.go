package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/experiment"
	"github.com/san-kum/brazilnut/internal/sim"
)

// Scenario defines a scripted sequence of experiments
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`

	dir string
}

// ScenarioStep is a single experiment in a scenario. The base configuration
// is the preset or the config file, never both, else the defaults. Dt and
// Duration override it when non-zero and Params are applied last.
type ScenarioStep struct {
	Preset   string             `yaml:"preset"`
	Config   string             `yaml:"config"`
	Duration float64            `yaml:"duration"`
	Dt       float64            `yaml:"dt"`
	Params   map[string]float64 `yaml:"params"`
	SaveAs   string             `yaml:"save_as"`
}

// StepResult pairs a finished step with the configuration it ran.
type StepResult struct {
	Name   string
	Config *config.Config
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file. Config paths inside it
// are resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("scenario parse failed (%s): %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	scenario.dir = filepath.Dir(path)

	return &scenario, nil
}

// StepConfig builds and validates the configuration of one step.
func (s *Scenario) StepConfig(i int) (*config.Config, error) {
	step := s.Steps[i]

	var cfg *config.Config
	switch {
	case step.Preset != "" && step.Config != "":
		return nil, fmt.Errorf("preset %s and config %s are mutually exclusive", step.Preset, step.Config)
	case step.Preset != "":
		cfg = config.GetPreset(step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", step.Preset)
		}
	case step.Config != "":
		path := step.Config
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.dir, path)
		}
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	default:
		cfg = config.DefaultConfig()
	}

	if step.Dt > 0 {
		cfg.Dt = step.Dt
	}
	if step.Duration > 0 {
		cfg.Duration = step.Duration
	}
	for k, v := range step.Params {
		if err := experiment.Apply(cfg, k, v); err != nil {
			return nil, err
		}
	}
	if step.SaveAs != "" {
		cfg.Name = step.SaveAs
	} else {
		cfg.Name = fmt.Sprintf("%s_%d", cfg.Name, i+1)
	}

	return cfg, cfg.Validate()
}

// RunScenario executes all steps in order. On failure the results of the
// steps that completed are returned with the error.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i := range scenario.Steps {
		cfg, err := scenario.StepConfig(i)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		log.Info().Int("step", i+1).Int("of", len(scenario.Steps)).Str("name", cfg.Name).Msg("scenario_step")

		exp, err := experiment.New(cfg)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		exp.Setup(registry.DefaultMetrics())

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Name: cfg.Name, Config: cfg, Result: result})
	}

	return results, nil
}

// MonteCarloConfig perturbs one parameter uniformly around its base value.
type MonteCarloConfig struct {
	Base         *config.Config
	Param        string
	Perturbation float64
	NumTrials    int
	Seed         int64
}

// MonteCarloResult holds the outcome of one trial
type MonteCarloResult struct {
	TrialID     int
	Value       float64
	Kicks       int
	ShutoffTime float64
	ShutOff     bool // did the flow shutoff edge fire?
}

// RunMonteCarlo runs all valid trials concurrently. Trials whose perturbed
// configuration fails validation are dropped; the second return value
// counts them.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry) ([]MonteCarloResult, int, error) {
	if cfg.NumTrials <= 0 {
		return nil, 0, fmt.Errorf("monte carlo needs at least one trial")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var cfgs []*config.Config
	var results []MonteCarloResult
	invalid := 0

	for trial := 0; trial < cfg.NumTrials; trial++ {
		trialCfg := cfg.Base.Clone()
		base, err := experiment.Param(trialCfg, cfg.Param)
		if err != nil {
			return nil, 0, err
		}
		v := base + (rng.Float64()-0.5)*2*cfg.Perturbation
		_ = experiment.Apply(trialCfg, cfg.Param, v)
		trialCfg.Name = fmt.Sprintf("%s_trial%d", cfg.Base.Name, trial)

		if trialCfg.Validate() != nil {
			invalid++
			continue
		}
		cfgs = append(cfgs, trialCfg)
		results = append(results, MonteCarloResult{TrialID: trial, Value: v})
	}
	if len(cfgs) == 0 {
		return nil, invalid, fmt.Errorf("no valid trial out of %d", cfg.NumTrials)
	}

	runs, err := experiment.NewSweep(registry, cfgs...).Run(ctx)
	if err != nil {
		return nil, invalid, err
	}

	for i, r := range runs {
		results[i].Kicks = int(r.Metrics["kick_count"])
		results[i].ShutoffTime = r.Metrics["shutoff_time"]
		results[i].ShutOff = results[i].ShutoffTime >= 0
	}

	return results, invalid, nil
}

// MonteCarloStats counts trials where the flow shutoff fired and where the
// edge was missed.
func MonteCarloStats(results []MonteCarloResult) (shutOff int, missed int) {
	for _, r := range results {
		if r.ShutOff {
			shutOff++
		} else {
			missed++
		}
	}
	return
}
