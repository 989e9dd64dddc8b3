package scene

import (
	"math"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/dynamo"
)

// Species carries the contact parameters shared by walls and particles.
type Species config.SpeciesConfig

type Particle struct {
	Species  *Species
	Radius   float64
	Position dynamo.Vec3
	Velocity dynamo.Vec3
}

func (p Particle) Volume() float64 {
	return 4.0 / 3.0 * math.Pi * p.Radius * p.Radius * p.Radius
}

func (p Particle) Mass() float64 {
	if p.Species == nil {
		return 0
	}
	return p.Species.Density * p.Volume()
}

// InfiniteWall is a half-space boundary. Normal points out of the container,
// so a wall with Normal (0,0,-1) at the base keeps particles above it.
type InfiniteWall struct {
	Species  *Species
	Normal   dynamo.Vec3
	position dynamo.Vec3
	velocity dynamo.Vec3
}

func NewInfiniteWall(species *Species, normal, position dynamo.Vec3) *InfiniteWall {
	return &InfiniteWall{Species: species, Normal: normal, position: position}
}

func (w *InfiniteWall) Position() dynamo.Vec3 { return w.position }
func (w *InfiniteWall) Velocity() dynamo.Vec3 { return w.velocity }

func (w *InfiniteWall) SetVelocity(v dynamo.Vec3) {
	w.velocity = v
}

func (w *InfiniteWall) SetPosition(p dynamo.Vec3) {
	w.position = p
}

// Advance translates the wall by its current velocity over dt.
func (w *InfiniteWall) Advance(dt float64) {
	w.position = w.position.Add(w.velocity.Scale(dt))
}

// CylinderWall is an axisymmetric wall: a surface of revolution of the given
// radius about the axis through Origin along Orientation.
type CylinderWall struct {
	Species     *Species
	Origin      dynamo.Vec3
	Orientation dynamo.Vec3
	Radius      float64
}

// Contains reports whether p lies strictly inside the cylinder.
func (c *CylinderWall) Contains(p dynamo.Vec3) bool {
	dx, dy := p.X-c.Origin.X, p.Y-c.Origin.Y
	return dx*dx+dy*dy < c.Radius*c.Radius
}

// InsertionRegion stamps copies of Template at random points in [Min, Max] at
// a volumetric flow rate.
type InsertionRegion struct {
	Template Particle
	Min      dynamo.Vec3
	Max      dynamo.Vec3
	flowRate float64
}

func (r *InsertionRegion) VolumeFlowRate() float64 { return r.flowRate }

func (r *InsertionRegion) SetVolumeFlowRate(rate float64) {
	r.flowRate = rate
}

func (r *InsertionRegion) Volume() float64 {
	d := r.Max.Sub(r.Min)
	return d.X * d.Y * d.Z
}

func (r *InsertionRegion) Contains(p dynamo.Vec3) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X &&
		p.Y >= r.Min.Y && p.Y <= r.Max.Y &&
		p.Z >= r.Min.Z && p.Z <= r.Max.Z
}
