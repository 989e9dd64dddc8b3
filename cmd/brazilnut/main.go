package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/experiment"
	"github.com/san-kum/brazilnut/internal/logging"
	"github.com/san-kum/brazilnut/internal/observability"
)

var (
	dataDir string
	envFile string
	logger  zerolog.Logger

	// experiment configuration
	configFile    string
	preset        string
	dt            float64
	duration      float64
	saveCount     int
	flowRate      float64
	stopFlow      float64
	amplitude     float64
	pulseInterval float64
	kickStart     float64
	stopKick      float64

	// run
	noTrace     bool
	metricsAddr string

	// live
	stepsPerFrame int

	// plot / export
	field   string
	outPath string
	svgPath string
	width   int
	height  int

	// monte carlo
	mcParam   string
	mcPerturb float64
	mcTrials  int
	mcSeed    int64

	// grid
	gridParams []string
	gridMetric string
	gridGoal   string

	// serve
	addr        string
	openBrowser bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "brazilnut",
		Short:         "brazil nut segregation experiment driver",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, err := config.LoadEnv(envFile)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
			if !cmd.Flags().Changed("data") {
				dataDir = env.DataDir
			}
			logger = logging.New("brazilnut", logging.Config{Level: env.LogLevel, Format: env.LogFormat})

			shutdown, err := observability.InitTracing(context.Background(), observability.TracingConfigFromEnv(), logger)
			if err != nil {
				return err
			}
			atexit.Register(func() { observability.ShutdownWithTimeout(context.Background(), shutdown, logger) })
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory (env BRAZILNUT_DATA)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the experiment and store the result",
		Args:  cobra.NoArgs,
		RunE:  runExperiment,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&noTrace, "no-trace", false, "do not record the transition trace")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and the run API on this address while running")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the experiment with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", 0, "simulation steps per frame (0 = auto)")

	sceneCmd := &cobra.Command{
		Use:   "scene",
		Short: "print the scene built from the configuration",
		Args:  cobra.NoArgs,
		RunE:  showScene,
	}
	addConfigFlags(sceneCmd)
	sceneCmd.Flags().StringVar(&svgPath, "svg", "", "also write the container section to an SVG file")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "dry-run the experiment and print its transition timeline",
		Args:  cobra.NoArgs,
		RunE:  showSchedule,
	}
	addConfigFlags(scheduleCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [param] [value...]",
		Short: "run one experiment per parameter value concurrently",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)

	gridCmd := &cobra.Command{
		Use:   "grid",
		Short: "search a parameter grid for the best value of a metric",
		Args:  cobra.NoArgs,
		RunE:  runGrid,
	}
	addConfigFlags(gridCmd)
	gridCmd.Flags().StringArrayVar(&gridParams, "param", nil, "parameter range as name=v1,v2,... (repeatable)")
	gridCmd.Flags().StringVar(&gridMetric, "metric", "floor_travel", "metric to optimize")
	gridCmd.Flags().StringVar(&gridGoal, "goal", "max", "min or max")
	_ = gridCmd.MarkFlagRequired("param")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run and store every step of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "perturb one parameter at random and report shutoff and kick statistics",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addConfigFlags(monteCarloCmd)
	monteCarloCmd.Flags().StringVar(&mcParam, "param", "stop_flow", "parameter to perturb")
	monteCarloCmd.Flags().Float64Var(&mcPerturb, "perturb", 0.01, "half-width of the uniform perturbation")
	monteCarloCmd.Flags().IntVar(&mcTrials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Int64Var(&mcSeed, "seed", 0, "random seed (0 = time based)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&field, "field", "floor_position", "floor_position, floor_velocity, flow_rate or inserted")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 12, "plot height")
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write the series to an SVG file")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata, samples and events to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file (- for stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file (- for stdout)")

	eventsCmd := &cobra.Command{
		Use:   "events [run_id]",
		Short: "print the recorded transition trace of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  showEvents,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	validateCmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "check a yaml or toml configuration file",
		Args:  cobra.ExactArgs(1),
		RunE:  validateConfig,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve stored runs and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().BoolVar(&openBrowser, "open", false, "open the run list in a browser once listening")

	rootCmd.AddCommand(runCmd, liveCmd, sceneCmd, scheduleCmd, sweepCmd, gridCmd, scenarioCmd, monteCarloCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, eventsCmd, presetsCmd, validateCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path, yaml or toml (not with --preset)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().IntVar(&saveCount, "save-count", config.DefaultSaveCount, "keep a sample every n steps")
	cmd.Flags().Float64Var(&flowRate, "flow-rate", config.DefaultFlowRate, "initial insertion volume flow rate")
	cmd.Flags().Float64Var(&stopFlow, "stop-flow", config.DefaultStopFlow, "time at which insertion stops")
	cmd.Flags().Float64Var(&amplitude, "amplitude", config.DefaultAmplitude, "kick speed")
	cmd.Flags().Float64Var(&pulseInterval, "pulse", config.DefaultPulseInterval, "time between kicks")
	cmd.Flags().Float64Var(&kickStart, "kick-start", config.DefaultKickStart, "time of the first kick window")
	cmd.Flags().Float64Var(&stopKick, "stop-kick", config.DefaultStopKick, "time after which the floor rests")
}

// resolveConfig builds the configuration from the preset or the config
// file, then any flags set explicitly on the command line.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	if preset != "" && configFile != "" {
		return nil, fmt.Errorf("--preset %s and --config %s are mutually exclusive", preset, configFile)
	}

	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("save-count") {
		cfg.SaveCount = saveCount
	}
	if cmd.Flags().Changed("flow-rate") {
		cfg.Insertion.FlowRate = flowRate
	}
	if cmd.Flags().Changed("stop-flow") {
		cfg.Schedule.StopFlow = stopFlow
	}
	if cmd.Flags().Changed("amplitude") {
		cfg.Schedule.Amplitude = amplitude
	}
	if cmd.Flags().Changed("pulse") {
		cfg.Schedule.PulseInterval = pulseInterval
	}
	if cmd.Flags().Changed("kick-start") {
		cfg.Schedule.KickStart = kickStart
	}
	if cmd.Flags().Changed("stop-kick") {
		cfg.Schedule.StopKick = stopKick
	}

	return cfg, nil
}

// newExperiment resolves the configuration and builds an experiment with
// the default metrics and transition logging attached.
func newExperiment(cmd *cobra.Command) (*experiment.Experiment, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}

	exp, err := experiment.New(cfg)
	if err != nil {
		return nil, err
	}
	exp.Setup(experiment.NewRegistry().DefaultMetrics())
	exp.AddTransitionObserver(logging.NewTransitionLogger(logger))
	return exp, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
