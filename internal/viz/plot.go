package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/brazilnut/internal/control"
	"github.com/san-kum/brazilnut/internal/scene"
)

// PlotSeries draws values as an ASCII line chart. Fewer than two points
// give an empty string.
func PlotSeries(values []float64, caption string, height, width int) string {
	if len(values) < 2 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}

// Downsample keeps at most n evenly spaced values, always including the last.
func Downsample(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	out := make([]float64, 0, n)
	step := float64(len(values)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, values[int(float64(i)*step+0.5)])
	}
	return out
}

// RenderTimeline lists transitions one per line.
func RenderTimeline(events []control.Event) string {
	if len(events) == 0 {
		return Subtle.Render("(no transitions)") + "\n"
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%-12s %-14s %6s %9s %10s", "time", "event", "kick", "velocity", "threshold")) + "\n")
	for _, e := range events {
		line := fmt.Sprintf("%-12.6f %-14s %6d %9.3f %10.4f", e.Time, e.Kind, e.Kick, e.Velocity, e.Threshold)
		if e.Kind == control.Kick {
			b.WriteString(line + "\n")
		} else {
			b.WriteString(MetricValue.Render(line) + "\n")
		}
	}
	return b.String()
}

// RenderScene describes the built scene.
func RenderScene(sc *scene.Scene) string {
	var b strings.Builder
	row := func(label, format string, args ...any) {
		b.WriteString(MetricLabel.Render(label) + " " + fmt.Sprintf(format, args...) + "\n")
	}

	b.WriteString(HeaderStyle.Render("SCENE") + "\n")
	row("bounds", "%v .. %v", sc.Bounds.Min, sc.Bounds.Max)
	row("gravity", "%v", sc.Gravity)
	row("side wall", "cylinder r=%.4f about %v along %v", sc.Side.Radius, sc.Side.Origin, sc.Side.Orientation)
	for i, w := range sc.Walls() {
		name := "top wall"
		if i == len(sc.Walls())-1 {
			name = "floor"
		}
		row(name, "at %v normal %v", w.Position(), w.Normal)
	}
	row("tracer", "r=%.4f at %v mass=%.4g", sc.Tracer.Radius, sc.Tracer.Position, sc.Tracer.Mass())
	row("template", "r=%.4f volume=%.4g", sc.Template.Radius, sc.Template.Volume())
	row("insertion", "%v .. %v flow=%g", sc.Insertion.Min, sc.Insertion.Max, sc.Insertion.VolumeFlowRate())
	return b.String()
}

// RenderMetrics lists metrics sorted by name.
func RenderMetrics(metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(fmt.Sprintf("  %-20s %s\n", name, MetricValue.Render(fmt.Sprintf("%.6g", metrics[name]))))
	}
	return b.String()
}
