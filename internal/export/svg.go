// Package export renders recorded runs into portable image formats.
package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/softmech/rodsim/internal/linalg"
)

const (
	svgBackground = "#0a0a0a"
	svgStroke     = "#00ff7f"
)

// Frame is one recorded sample: the node positions of an entity at one
// time.
type Frame struct {
	Time   float64
	Points []linalg.Vec3
}

// TrajectorySVG renders frames projected on the x-z plane. Frames with
// several nodes draw one polyline per sample, later samples brighter,
// so the sweep of a deforming centerline reads at a glance. Frames
// with a single node collapse to one polyline through time.
func TrajectorySVG(frames []Frame, width, height int) string {
	points := 0
	for _, f := range frames {
		points += len(f.Points)
	}
	if points < 2 {
		return ""
	}

	minX, maxX, minZ, maxZ := bounds(frames)
	rangeX := maxX - minX
	rangeZ := maxZ - minZ
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeZ == 0 {
		rangeZ = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minZ -= rangeZ * 0.1
	maxZ += rangeZ * 0.1
	rangeX = maxX - minX
	rangeZ = maxZ - minZ

	project := func(p linalg.Vec3) (float64, float64) {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Z-minZ)/rangeZ*float64(height)
		return x, y
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, svgBackground))

	if len(frames[0].Points) == 1 {
		writePath(&sb, frames, project, 1.0, func(f Frame) linalg.Vec3 { return f.Points[0] })
	} else {
		for i, f := range frames {
			opacity := 1.0
			if len(frames) > 1 {
				opacity = 0.15 + 0.85*float64(i)/float64(len(frames)-1)
			}
			writeCenterline(&sb, f, project, opacity)
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// WriteTrajectorySVG renders frames and writes the result to path.
func WriteTrajectorySVG(path string, frames []Frame, width, height int) error {
	svg := TrajectorySVG(frames, width, height)
	if svg == "" {
		return fmt.Errorf("export: nothing to render")
	}
	return os.WriteFile(path, []byte(svg), 0644)
}

func bounds(frames []Frame) (minX, maxX, minZ, maxZ float64) {
	first := true
	for _, f := range frames {
		for _, p := range f.Points {
			if first {
				minX, maxX = p.X, p.X
				minZ, maxZ = p.Z, p.Z
				first = false
				continue
			}
			if p.X < minX {
				minX = p.X
			}
			if p.X > maxX {
				maxX = p.X
			}
			if p.Z < minZ {
				minZ = p.Z
			}
			if p.Z > maxZ {
				maxZ = p.Z
			}
		}
	}
	return minX, maxX, minZ, maxZ
}

func writeCenterline(sb *strings.Builder, f Frame, project func(linalg.Vec3) (float64, float64), opacity float64) {
	if len(f.Points) < 2 {
		return
	}
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" stroke-opacity="%.2f" d="M`, svgStroke, opacity))
	for i, p := range f.Points {
		x, y := project(p)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString("\"/>\n")
}

func writePath(sb *strings.Builder, frames []Frame, project func(linalg.Vec3) (float64, float64), opacity float64, pick func(Frame) linalg.Vec3) {
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" stroke-opacity="%.2f" d="M`, svgStroke, opacity))
	for i, f := range frames {
		x, y := project(pick(f))
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString("\"/>\n")
}
