package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/softmech/rodsim/internal/linalg"
)

func centerlineFrames() []Frame {
	return []Frame{
		{Time: 0, Points: []linalg.Vec3{{X: 0}, {X: 0.5}, {X: 1}}},
		{Time: 1, Points: []linalg.Vec3{{X: 0}, {X: 0.5, Z: 0.1}, {X: 1, Z: 0.3}}},
		{Time: 2, Points: []linalg.Vec3{{X: 0}, {X: 0.5, Z: 0.2}, {X: 1, Z: 0.6}}},
	}
}

func TestTrajectorySVGDrawsOnePathPerFrame(t *testing.T) {
	svg := TrajectorySVG(centerlineFrames(), 400, 300)

	if !strings.HasPrefix(svg, `<?xml version="1.0"`) {
		t.Fatal("missing xml declaration")
	}
	if !strings.Contains(svg, `viewBox="0 0 400 300"`) {
		t.Error("missing viewBox")
	}
	if got := strings.Count(svg, "<path"); got != 3 {
		t.Errorf("rendered %d paths, want 3", got)
	}
	if !strings.Contains(svg, `stroke-opacity="1.00"`) {
		t.Error("final frame should render at full opacity")
	}
	if !strings.Contains(svg, `stroke-opacity="0.15"`) {
		t.Error("first frame should render faint")
	}
	if !strings.HasSuffix(svg, "</svg>") {
		t.Error("unterminated svg document")
	}
}

func TestTrajectorySVGSingleNodeBecomesOnePath(t *testing.T) {
	frames := []Frame{
		{Time: 0, Points: []linalg.Vec3{{Z: 0.5}}},
		{Time: 1, Points: []linalg.Vec3{{X: 0.1, Z: 0.4}}},
		{Time: 2, Points: []linalg.Vec3{{X: 0.2, Z: 0.2}}},
		{Time: 3, Points: []linalg.Vec3{{X: 0.3, Z: 0.1}}},
	}

	svg := TrajectorySVG(frames, 200, 200)
	if got := strings.Count(svg, "<path"); got != 1 {
		t.Errorf("rendered %d paths, want 1", got)
	}
	if got := strings.Count(svg, " L"); got != 3 {
		t.Errorf("path has %d segments, want 3", got)
	}
}

func TestTrajectorySVGEmpty(t *testing.T) {
	if svg := TrajectorySVG(nil, 100, 100); svg != "" {
		t.Error("expected empty output for no frames")
	}
	one := []Frame{{Points: []linalg.Vec3{{}}}}
	if svg := TrajectorySVG(one, 100, 100); svg != "" {
		t.Error("expected empty output for a single point")
	}
}

func TestWriteTrajectorySVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.svg")
	if err := WriteTrajectorySVG(path, centerlineFrames(), 400, 300); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "</svg>") {
		t.Error("written file is not a complete svg document")
	}

	if err := WriteTrajectorySVG(filepath.Join(t.TempDir(), "empty.svg"), nil, 100, 100); err == nil {
		t.Error("expected error when nothing renders")
	}
}
