package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/san-kum/brazilnut/internal/automation"
	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/experiment"
	"github.com/san-kum/brazilnut/internal/export"
	"github.com/san-kum/brazilnut/internal/observability"
	"github.com/san-kum/brazilnut/internal/optim"
	"github.com/san-kum/brazilnut/internal/server"
	"github.com/san-kum/brazilnut/internal/storage"
	"github.com/san-kum/brazilnut/internal/tracing"
	"github.com/san-kum/brazilnut/internal/viz"
)

func runExperiment(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	cfg := exp.Config()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID := storage.NewRunID()

	var trace *tracing.SQLiteWriter
	if !noTrace {
		runDir, err := st.CreateRunDir(runID)
		if err != nil {
			return err
		}
		trace, err = tracing.NewSQLiteWriter(filepath.Join(runDir, storage.EventsFile))
		if err != nil {
			return err
		}
		exp.AddTransitionObserver(trace)
	}

	collector, err := observability.NewCollector(nil)
	if err != nil {
		return err
	}
	exp.AddObserver(collector)
	exp.AddTransitionObserver(collector)

	ctx, cancel := signalContext()
	defer cancel()

	if metricsAddr != "" {
		stop := serveDuringRun(ctx, server.New(st, collector.Handler(), logger), metricsAddr)
		defer stop()
	}

	ctx, span := observability.StartRunSpan(ctx, runID, cfg)
	defer span.End()
	exp.AddTransitionObserver(observability.NewSpanEvents(span))

	logger.Info().
		Str("run_id", runID).
		Str("name", cfg.Name).
		Float64("dt", cfg.Dt).
		Float64("duration", cfg.Duration).
		Int("steps", cfg.Steps()).
		Msg("run_started")
	start := time.Now()

	result, err := exp.Run(ctx)
	if trace != nil {
		if cerr := trace.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("trace_close_failed")
		}
	}
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, context.Canceled) && result != nil {
			logger.Warn().Int("steps", result.StepsTaken).Msg("run_interrupted")
		}
		return err
	}

	if err := st.SaveAs(runID, cfg, result); err != nil {
		return err
	}

	logger.Info().
		Str("run_id", runID).
		Dur("elapsed", time.Since(start)).
		Int("samples", len(result.Samples)).
		Int("transitions", len(result.Events)).
		Msg("run_completed")

	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Println("\nmetrics:")
	fmt.Print(viz.RenderMetrics(result.Metrics))
	return nil
}

// serveDuringRun serves srv on addr in the background. The returned func
// shuts it down and waits for it.
func serveDuringRun(ctx context.Context, srv *server.Server, addr string) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, addr)
	}()

	return func() {
		cancel()
		if err := <-done; err != nil {
			logger.Warn().Err(err).Str("addr", addr).Msg("metrics_server_failed")
		}
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	// transitions are shown in the view; logging would draw over it
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}

	m, err := viz.NewModel(exp, stepsPerFrame)
	if err != nil {
		return err
	}
	return viz.Run(m)
}

func showScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}

	fmt.Print(viz.RenderScene(exp.Scene()))
	if svgPath != "" {
		if err := export.WriteFile(svgPath, export.SceneToSVG(exp.Scene(), 40, 30, 4)); err != nil {
			return err
		}
		logger.Info().Str("path", svgPath).Msg("scene_svg_written")
	}
	return nil
}

func showSchedule(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Print(viz.RenderTimeline(result.Events))
	fmt.Println("\nmetrics:")
	fmt.Print(viz.RenderMetrics(result.Metrics))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	param := args[0]
	values := make([]float64, 0, len(args)-1)
	for _, a := range args[1:] {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", a, err)
		}
		values = append(values, v)
	}

	cfgs, err := experiment.Vary(base, param, values)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, experiment.SweepParams())
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info().Str("param", param).Int("runs", len(cfgs)).Msg("sweep_started")
	start := time.Now()

	results, err := experiment.NewSweep(experiment.NewRegistry(), cfgs...).Run(ctx)
	if err != nil {
		return err
	}
	logger.Info().Dur("elapsed", time.Since(start)).Msg("sweep_completed")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tKICKS\tFREQ\tTRAVEL\tEXCURSION\tMEAN SPEED\tSHUTOFF\tINSERTED\n", param)
	for i, r := range results {
		fmt.Fprintf(w, "%g\t%.0f\t%.3f\t%.4f\t%.4f\t%.4f\t%.4f\t%.0f\n",
			values[i],
			r.Metrics["kick_count"],
			r.Metrics["kick_frequency"],
			r.Metrics["floor_travel"],
			r.Metrics["floor_excursion"],
			r.Metrics["mean_floor_speed"],
			r.Metrics["shutoff_time"],
			r.Metrics["inserted_particles"],
		)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tDT\tDURATION\tSTOP FLOW\tAMPLITUDE\tPULSE\tKICK START\tSTOP KICK")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		s := p.Schedule
		fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\t%g\t%g\t%g\n",
			name, p.Dt, p.Duration, s.StopFlow, s.Amplitude, s.PulseInterval, s.KickStart, s.StopKick)
	}
	return w.Flush()
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s is invalid:\n%w", args[0], err)
	}

	fmt.Printf("%s: ok (%d steps, %s)\n", args[0], cfg.Steps(), cfg.Name)
	return nil
}

func serve(cmd *cobra.Command, args []string) error {
	collector, err := observability.NewCollector(nil)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	replayed, err := collector.ReplayStore(st)
	if err != nil {
		logger.Warn().Err(err).Int("runs", replayed).Msg("metrics_replay_incomplete")
	} else {
		logger.Info().Int("runs", replayed).Msg("metrics_replayed")
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := server.New(st, collector.Handler(), logger)
	if openBrowser {
		srv.OnReady = func(a net.Addr) {
			url := server.BrowseURL(a, "/runs")
			if err := browser.OpenURL(url); err != nil {
				logger.Warn().Err(err).Str("url", url).Msg("browser_open_failed")
			}
		}
	}
	return srv.ListenAndServe(ctx, addr)
}

func runGrid(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseGridParams(gridParams)
	if err != nil {
		return err
	}
	goal, err := optim.ParseGoal(gridGoal)
	if err != nil {
		return err
	}

	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info().Strs("params", names).Int("cells", g.Size()).Str("metric", gridMetric).Msg("grid_started")
	start := time.Now()

	points, best, err := g.Search(ctx, base, experiment.NewRegistry(), gridMetric, goal)
	if err != nil {
		return err
	}
	logger.Info().Dur("elapsed", time.Since(start)).Int("evaluated", len(points)).Msg("grid_completed")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t\n", strings.ToUpper(strings.Join(names, "\t")), gridMetric)
	for i, p := range points {
		vals := make([]string, len(names))
		for j, n := range names {
			vals[j] = strconv.FormatFloat(p.Params[n], 'g', -1, 64)
		}
		mark := ""
		if i == best {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%.4f\t%s\n", strings.Join(vals, "\t"), p.Value, mark)
	}
	return w.Flush()
}

// parseGridParams turns "name=v1,v2" flags into parallel name and range
// slices.
func parseGridParams(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("invalid grid parameter %q (want name=v1,v2)", spec)
		}
		var values []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid value %q for %s: %w", f, name, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info().Str("scenario", sc.Name).Int("steps", len(sc.Steps)).Msg("scenario_started")
	results, runErr := automation.RunScenario(ctx, sc, experiment.NewRegistry())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRUN ID\tKICKS\tTRAVEL\tSHUTOFF")
	for _, r := range results {
		runID, err := st.Save(r.Config, r.Result)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.4f\t%.4f\n",
			r.Name, runID,
			r.Result.Metrics["kick_count"],
			r.Result.Metrics["floor_travel"],
			r.Result.Metrics["shutoff_time"],
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	mc := &automation.MonteCarloConfig{
		Base:         base,
		Param:        mcParam,
		Perturbation: mcPerturb,
		NumTrials:    mcTrials,
		Seed:         mcSeed,
	}
	results, invalid, err := automation.RunMonteCarlo(ctx, mc, experiment.NewRegistry())
	if err != nil {
		return err
	}
	if invalid > 0 {
		logger.Warn().Int("invalid", invalid).Msg("montecarlo_trials_dropped")
	}

	shutOff, missed := automation.MonteCarloStats(results)
	minKicks, maxKicks := results[0].Kicks, results[0].Kicks
	for _, r := range results {
		minKicks = min(minKicks, r.Kicks)
		maxKicks = max(maxKicks, r.Kicks)
	}

	fmt.Printf("trials:        %d (%d invalid)\n", len(results), invalid)
	fmt.Printf("flow shut off: %d\n", shutOff)
	fmt.Printf("edge missed:   %d\n", missed)
	fmt.Printf("kicks:         %d..%d\n", minKicks, maxKicks)
	return nil
}
