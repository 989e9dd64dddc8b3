package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/brazilnut/internal/export"
	"github.com/san-kum/brazilnut/internal/sim"
	"github.com/san-kum/brazilnut/internal/storage"
	"github.com/san-kum/brazilnut/internal/tracing"
	"github.com/san-kum/brazilnut/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tSTEPS\tKICKS\tSHUTOFF\tTRAVEL")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4f\t%.4f\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Kicks,
			run.Metrics["shutoff_time"],
			run.Metrics["floor_travel"],
		)
	}

	return w.Flush()
}

var plotFields = map[string]func(s sim.Sample) float64{
	"floor_position": func(s sim.Sample) float64 { return s.FloorPosition },
	"floor_velocity": func(s sim.Sample) float64 { return s.FloorVelocity },
	"flow_rate":      func(s sim.Sample) float64 { return s.FlowRate },
	"inserted":       func(s sim.Sample) float64 { return float64(s.Inserted) },
}

func plotRun(cmd *cobra.Command, args []string) error {
	get, ok := plotFields[field]
	if !ok {
		return fmt.Errorf("unknown field: %s", field)
	}

	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	if len(samples) < 2 {
		return fmt.Errorf("run %s has too few samples to plot", args[0])
	}

	times := make([]float64, len(samples))
	values := make([]float64, len(samples))
	for i, s := range samples {
		times[i] = s.Time
		values[i] = get(s)
	}

	caption := fmt.Sprintf("%s: %s over %.2fs", meta.Name, field, samples[len(samples)-1].Time)
	fmt.Println(viz.PlotSeries(viz.Downsample(values, width), caption, height, width))

	if svgPath != "" {
		if err := export.WriteFile(svgPath, export.SeriesToSVG(times, values, 800, 300, "#00d7ff")); err != nil {
			return err
		}
		logger.Info().Str("path", svgPath).Msg("plot_svg_written")
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	events, err := tracing.ReadRunEvents(st, args[0])
	if err != nil {
		return err
	}

	if err := storage.ExportJSON(outPath, storage.NewExportData(meta, samples, events)); err != nil {
		return err
	}
	if outPath != "-" {
		fmt.Printf("exported to %s\n", outPath)
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}

	if outPath == "-" {
		return storage.WriteSamplesCSV(os.Stdout, samples)
	}

	file, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := storage.WriteSamplesCSV(file, samples); err != nil {
		return err
	}
	fmt.Printf("exported %d samples to %s\n", len(samples), outPath)
	return nil
}

func showEvents(cmd *cobra.Command, args []string) error {
	events, err := tracing.ReadRunEvents(storage.New(dataDir), args[0])
	if err != nil {
		return err
	}
	fmt.Print(viz.RenderTimeline(events))
	return nil
}
