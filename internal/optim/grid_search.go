package optim

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/experiment"
)

type Goal int

const (
	Minimize Goal = iota
	Maximize
)

func ParseGoal(s string) (Goal, error) {
	switch strings.ToLower(s) {
	case "min", "minimize":
		return Minimize, nil
	case "max", "maximize":
		return Maximize, nil
	}
	return Minimize, fmt.Errorf("unknown goal: %s", s)
}

// Point is one evaluated grid cell.
type Point struct {
	Params map[string]float64
	Value  float64
}

// GridSearch evaluates every combination of the given parameter ranges on
// top of a base configuration and reports the best cell for one metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("grid search: %d params but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("grid search: empty range for %s", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of grid cells.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs all cells concurrently and returns them in grid order along
// with the index of the best one. Cells whose configuration fails
// validation are skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	base *config.Config,
	registry *experiment.Registry,
	metricName string,
	goal Goal,
) ([]Point, int, error) {
	var points []Point
	var cfgs []*config.Config
	var err error

	g.searchRecursive(0, make(map[string]float64), func(params map[string]float64) {
		if err != nil {
			return
		}
		cfg := base.Clone()
		for name, v := range params {
			if err = experiment.Apply(cfg, name, v); err != nil {
				return
			}
		}
		if cfg.Validate() != nil {
			return
		}
		cfg.Name = cellName(base.Name, g.paramNames, params)
		cfgs = append(cfgs, cfg)
		points = append(points, Point{Params: params})
	})
	if err != nil {
		return nil, -1, err
	}
	if len(cfgs) == 0 {
		return nil, -1, fmt.Errorf("grid search: no valid configuration in grid")
	}

	results, err := experiment.NewSweep(registry, cfgs...).Run(ctx)
	if err != nil {
		return nil, -1, err
	}

	best := -1
	bestVal := math.Inf(1)
	if goal == Maximize {
		bestVal = math.Inf(-1)
	}
	for i, res := range results {
		val, ok := res.Metrics[metricName]
		if !ok {
			return nil, -1, fmt.Errorf("unknown metric: %s", metricName)
		}
		points[i].Value = val
		if (goal == Minimize && val < bestVal) || (goal == Maximize && val > bestVal) {
			bestVal = val
			best = i
		}
	}

	return points, best, nil
}

func (g *GridSearch) searchRecursive(depth int, current map[string]float64, visit func(map[string]float64)) {
	if depth == len(g.paramNames) {
		visit(current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.searchRecursive(depth+1, newParams, visit)
	}
}

func cellName(base string, names []string, params map[string]float64) string {
	var sb strings.Builder
	sb.WriteString(base)
	for _, n := range names {
		fmt.Fprintf(&sb, "_%s=%g", n, params[n])
	}
	return sb.String()
}
