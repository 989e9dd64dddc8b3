package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/scene"
	"github.com/san-kum/brazilnut/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	if CanvasToSVG(nil, 4, "#fff") != "" {
		t.Error("nil canvas should render nothing")
	}

	c := viz.NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(7, 7)

	svg := CanvasToSVG(c, 4, "#fff")
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("malformed svg: %q", svg)
	}
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 dots, got %d", n)
	}
	if !strings.Contains(svg, `width="32" height="32"`) {
		t.Errorf("unexpected dimensions in %q", svg[:120])
	}
}

func TestSceneToSVG(t *testing.T) {
	sc := scene.NewBuilder(config.DefaultConfig()).Build()
	svg := SceneToSVG(sc, 30, 20, 3)
	if strings.Count(svg, "<circle") < 10 {
		t.Error("expected the scene outline to light up dots")
	}
}

func TestSeriesToSVG(t *testing.T) {
	if SeriesToSVG([]float64{1}, []float64{1}, 100, 50, "red") != "" {
		t.Error("single point should render nothing")
	}
	if SeriesToSVG([]float64{1, 2}, []float64{1}, 100, 50, "red") != "" {
		t.Error("mismatched lengths should render nothing")
	}

	svg := SeriesToSVG([]float64{0, 1, 2}, []float64{0, 0.25, 0}, 100, 50, "red")
	if !strings.Contains(svg, `stroke="red"`) {
		t.Error("stroke color missing")
	}
	if strings.Count(svg, " L") != 2 {
		t.Errorf("expected 2 line segments in %q", svg)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.svg")
	if err := WriteFile(path, ""); err == nil {
		t.Error("expected error for empty svg")
	}
	if err := WriteFile(path, "<svg/>"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "<svg/>" {
		t.Errorf("read back %q, %v", data, err)
	}
}
