package viz

import (
	"strings"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/dynamo"
	"github.com/san-kum/brazilnut/internal/scene"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a braille pixel grid. Pixel coordinates are (Width*2) x
// (Height*4) with the origin at the top left.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawDashed draws a horizontal dashed segment.
func (c *Canvas) DrawDashed(x0, x1, y int) {
	for x := x0; x <= x1; x++ {
		if (x/2)%2 == 0 {
			c.Set(x, y)
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Section maps the x-z plane of the container onto a canvas.
type Section struct {
	canvas *Canvas
	lo, hi dynamo.Vec3
}

func NewSection(c *Canvas, bounds config.ContainerConfig) *Section {
	return &Section{canvas: c, lo: bounds.Min, hi: bounds.Max}
}

// Pixel returns the canvas pixel for world coordinates x, z.
func (s *Section) Pixel(x, z float64) (int, int) {
	w, h := s.canvas.Width*2-1, s.canvas.Height*4-1
	px := int((x - s.lo.X) / (s.hi.X - s.lo.X) * float64(w))
	pz := h - int((z-s.lo.Z)/(s.hi.Z-s.lo.Z)*float64(h))
	return px, pz
}

// Draw renders the side wall, top, floor, tracer and, while the flow is on,
// the insertion region.
func (s *Section) Draw(sc *scene.Scene) {
	s.canvas.Clear()

	floorZ := sc.Floor.Position().Z
	topZ := sc.Top.Position().Z
	left := sc.Side.Origin.X - sc.Side.Radius
	right := sc.Side.Origin.X + sc.Side.Radius

	lx, ty := s.Pixel(left, topZ)
	rx, fy := s.Pixel(right, floorZ)
	s.canvas.DrawLine(lx, ty, lx, fy)
	s.canvas.DrawLine(rx, ty, rx, fy)
	s.canvas.DrawLine(lx, fy, rx, fy)
	s.canvas.DrawDashed(lx, rx, ty)

	if sc.Insertion.VolumeFlowRate() > 0 {
		x0, z1 := s.Pixel(sc.Insertion.Min.X, sc.Insertion.Max.Z)
		x1, z0 := s.Pixel(sc.Insertion.Max.X, sc.Insertion.Min.Z)
		s.canvas.DrawDashed(x0, x1, z0)
		s.canvas.DrawDashed(x0, x1, z1)
	}

	// the tracer moves with the floor since particles are not integrated
	t := sc.Tracer
	cx, cz := s.Pixel(t.Position.X, t.Position.Z+floorZ-s.lo.Z)
	rx0, _ := s.Pixel(t.Position.X+t.Radius, 0)
	r := rx0 - cx
	if r < 1 {
		r = 1
	}
	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			if dx*dx+dz*dz <= r*r {
				s.canvas.Set(cx+dx, cz+dz)
			}
		}
	}
}
