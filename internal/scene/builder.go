package scene

import (
	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/dynamo"
)

// Scene is the static geometry and initial dynamic state of one run. The
// handles are typed so the controller never has to recover them at run time.
type Scene struct {
	Bounds    config.ContainerConfig
	Gravity   dynamo.Vec3
	Species   *Species
	Side      *CylinderWall
	Top       *InfiniteWall
	Floor     *InfiniteWall
	Insertion *InsertionRegion
	Tracer    *Particle
	Template  Particle
}

// Walls returns the planar walls in the order they were added; the floor,
// the only driven wall, is last.
func (s *Scene) Walls() []*InfiniteWall {
	return []*InfiniteWall{s.Top, s.Floor}
}

type Builder struct {
	cfg *config.Config
}

func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build creates the scene. Bounds are assumed valid; run config.Validate first.
func (b *Builder) Build() *Scene {
	cfg := b.cfg
	lo, hi := cfg.Container.Min, cfg.Container.Max
	mid := cfg.Mid()
	species := Species(cfg.Species)

	s := &Scene{
		Bounds:  cfg.Container,
		Gravity: cfg.Gravity,
		Species: &species,
	}

	s.Side = &CylinderWall{
		Species:     s.Species,
		Origin:      dynamo.Vec3{X: mid.X, Y: mid.Y, Z: lo.Z},
		Orientation: dynamo.Vec3{Z: 1},
		Radius:      (hi.X - lo.X) / 4.0,
	}

	r := cfg.Particles.LargeRadius
	s.Tracer = &Particle{
		Species:  s.Species,
		Radius:   r,
		Position: dynamo.Vec3{X: mid.X, Y: mid.Y, Z: lo.Z + 2*r},
	}

	s.Template = Particle{
		Species: s.Species,
		Radius:  cfg.Particles.SmallRadius,
	}

	eps := cfg.Insertion.Margin
	margin := dynamo.Vec3{X: eps, Y: eps, Z: eps}
	s.Insertion = &InsertionRegion{
		Template: s.Template,
		Min:      mid.Sub(margin),
		Max:      mid.Add(margin),
		flowRate: cfg.Insertion.FlowRate,
	}

	s.Top = NewInfiniteWall(s.Species, dynamo.Vec3{Z: 1}, dynamo.Vec3{Z: hi.Z})
	s.Floor = NewInfiniteWall(s.Species, dynamo.Vec3{Z: -1}, dynamo.Vec3{Z: lo.Z})

	return s
}
