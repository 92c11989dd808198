package viz

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/softmech/rodsim/internal/config"
	"github.com/softmech/rodsim/internal/experiment"
	"github.com/softmech/rodsim/internal/simulation"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	trailCapacity   = 400
	ticksPerSecond  = 60
	maxSubsteps     = 2000
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(40)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// Model steps an assembled scenario in real time and renders it on a
// braille canvas. The world is projected onto the x-z plane, which is
// where every built-in scenario moves.
type Model struct {
	run      *experiment.Run
	scenario *config.Scenario

	t        float64
	dt       float64
	steps    int
	substeps int // integration steps per tick
	running  bool
	done     bool

	width, height int
	canvas        *Canvas

	// Expand-only world bounds keep the projection stable once the
	// transient has been seen.
	minX, maxX float64
	minZ, maxZ float64

	// View mapping derived from the bounds each frame.
	viewScale          float64
	viewOffX, viewOffY int
	loX, loZ           float64

	trail         []struct{ x, y int }
	energyHistory []float64

	recording bool
	frames    []*image.Paletted
	showHelp  bool
}

// NewModel wires an assembled run into a visualization model. The run
// must come from experiment.Assemble so its observers fire on every
// step.
func NewModel(run *experiment.Run) Model {
	dt := run.Scenario.Dt
	substeps := int(math.Round(1.0 / (ticksPerSecond * dt)))
	if substeps < 1 {
		substeps = 1
	}
	if substeps > maxSubsteps {
		substeps = maxSubsteps
	}

	m := Model{
		run:           run,
		scenario:      run.Scenario,
		dt:            dt,
		substeps:      substeps,
		running:       true,
		width:         width,
		height:        height,
		canvas:        NewCanvas(width, height),
		trail:         make([]struct{ x, y int }, 0, trailCapacity),
		energyHistory: make([]float64, 0, historyCapacity),
		minX:          math.Inf(1),
		maxX:          math.Inf(-1),
		minZ:          math.Inf(1),
		maxZ:          math.Inf(-1),
	}
	m.expandBounds()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/ticksPerSecond, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and advances the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if !m.done {
				m.running = !m.running
			}
		case "r":
			m.reset()
		case "+", "=":
			m.substeps *= 2
			if m.substeps > maxSubsteps {
				m.substeps = maxSubsteps
			}
		case "-", "_":
			m.substeps /= 2
			if m.substeps < 1 {
				m.substeps = 1
			}
		case "g":
			if m.recording {
				m.saveGIF()
				m.recording = false
				m.frames = nil
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		m.draw()
		if m.recording {
			m.captureFrame()
		}
		return m, tea.Tick(time.Second/ticksPerSecond, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// step advances the physics by one frame worth of integration steps.
// Observers registered at assembly run inside Stepper.Step, so metric
// values are current when the frame is drawn.
func (m *Model) step() {
	for i := 0; i < m.substeps; i++ {
		if m.t >= m.scenario.Duration {
			m.done = true
			m.running = false
			break
		}
		m.t = m.run.Stepper.Step(m.run.Simulator, m.t, m.dt)
		m.steps++
	}

	m.energyHistory = append(m.energyHistory, m.metricValue("kinetic_energy"))
	if len(m.energyHistory) > historyCapacity {
		m.energyHistory = m.energyHistory[1:]
	}
}

// reset rebuilds the run from its scenario and starts over.
func (m *Model) reset() {
	run, err := experiment.Assemble(m.scenario)
	if err != nil {
		return
	}
	m.run = run
	m.t = 0
	m.steps = 0
	m.running = true
	m.done = false
	m.trail = m.trail[:0]
	m.energyHistory = m.energyHistory[:0]
	m.minX, m.maxX = math.Inf(1), math.Inf(-1)
	m.minZ, m.maxZ = math.Inf(1), math.Inf(-1)
	m.expandBounds()
}

func (m *Model) metricValue(name string) float64 {
	for _, metric := range m.run.Metrics {
		if metric.Name() == name {
			return metric.Value()
		}
	}
	return 0
}

// expandBounds grows the world window to cover every node, never
// shrinking it.
func (m *Model) expandBounds() {
	for _, blk := range m.run.Simulator.Blocks() {
		for _, p := range blk.Positions() {
			m.minX = math.Min(m.minX, p.X)
			m.maxX = math.Max(m.maxX, p.X)
			m.minZ = math.Min(m.minZ, p.Z)
			m.maxZ = math.Max(m.maxZ, p.Z)
		}
	}
	if m.scenario.Floor != nil {
		m.minZ = math.Min(m.minZ, m.scenario.Floor.Origin.Z)
	}
}

// fitView derives the uniform world-to-pixel mapping from the padded
// bounds and stores it for toScreen.
func (m *Model) fitView() {
	cw, ch := m.canvas.PixelWidth(), m.canvas.PixelHeight()
	spanX := m.maxX - m.minX
	spanZ := m.maxZ - m.minZ
	padX := 0.15*spanX + 0.05
	padZ := 0.15*spanZ + 0.05

	loX, hiX := m.minX-padX, m.maxX+padX
	loZ, hiZ := m.minZ-padZ, m.maxZ+padZ

	scaleX := float64(cw-1) / (hiX - loX)
	scaleZ := float64(ch-1) / (hiZ - loZ)
	m.viewScale = math.Min(scaleX, scaleZ)

	usedX := int((hiX - loX) * m.viewScale)
	usedZ := int((hiZ - loZ) * m.viewScale)
	m.viewOffX = (cw - usedX) / 2
	m.viewOffY = (ch - usedZ) / 2

	// Remember the padded origin so toScreen only needs the scale.
	m.loX, m.loZ = loX, loZ
}

func (m *Model) toScreen(x, z float64) (int, int) {
	px := m.viewOffX + int((x-m.loX)*m.viewScale)
	py := m.canvas.PixelHeight() - 1 - m.viewOffY - int((z-m.loZ)*m.viewScale)
	return px, py
}

// draw renders every entity in the collection onto the canvas.
func (m *Model) draw() {
	m.canvas.Clear()
	m.expandBounds()
	m.fitView()

	if m.scenario.Floor != nil {
		m.drawFloor()
	}
	for _, blk := range m.run.Simulator.Blocks() {
		for _, sys := range members(blk) {
			if _, ok := sys.(simulation.Rod); ok {
				m.drawRod(sys)
			} else if b, ok := sys.(simulation.RigidBody); ok {
				m.drawSphere(sys, b.Radius())
			}
		}
	}
	m.drawTrail()
}

// members unwraps an aggregated block into the entities it packs. A
// system that is not a block draws as itself.
func members(sys simulation.System) []simulation.System {
	if b, ok := sys.(interface{ Members() []simulation.System }); ok {
		return b.Members()
	}
	return []simulation.System{sys}
}

func (m *Model) drawFloor() {
	_, gy := m.toScreen(0, m.scenario.Floor.Origin.Z)
	m.canvas.DrawLine(0, gy, m.canvas.PixelWidth()-1, gy)
	for x := 0; x < m.canvas.PixelWidth(); x += 6 {
		m.canvas.DrawLine(x, gy, x-2, gy+2)
	}
}

func (m *Model) drawRod(sys simulation.System) {
	positions := sys.Positions()
	if len(positions) < 2 {
		return
	}
	prevX, prevY := m.toScreen(positions[0].X, positions[0].Z)
	for _, p := range positions[1:] {
		px, py := m.toScreen(p.X, p.Z)
		m.canvas.DrawLine(prevX, prevY, px, py)
		prevX, prevY = px, py
	}

	// Trail the free end, which carries the most motion in every
	// built-in scenario.
	tip := positions[len(positions)-1]
	tx, ty := m.toScreen(tip.X, tip.Z)
	m.appendTrail(tx, ty)

	// Mark the clamped end when there is one.
	if m.scenario.Boundary == config.BoundaryClamp {
		hx, hy := m.toScreen(positions[0].X, positions[0].Z)
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				m.canvas.Set(hx+dx, hy+dy)
			}
		}
	}
}

func (m *Model) drawSphere(sys simulation.System, radius float64) {
	positions := sys.Positions()
	if len(positions) < 1 {
		return
	}
	c := positions[0]
	cx, cy := m.toScreen(c.X, c.Z)
	m.canvas.DrawCircle(cx, cy, int(radius*m.viewScale))
	m.canvas.Set(cx, cy)
	m.appendTrail(cx, cy)
}

func (m *Model) appendTrail(x, y int) {
	m.trail = append(m.trail, struct{ x, y int }{x, y})
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[1:]
	}
}

func (m *Model) drawTrail() {
	for _, pt := range m.trail {
		m.canvas.Set(pt.x, pt.y)
	}
}

// View renders the canvas next to a stats pane.
func (m Model) View() string {
	status := "RUNNING"
	switch {
	case m.done:
		status = "DONE"
	case !m.running:
		status = "PAUSED"
	}
	if m.recording {
		status += "  REC"
	}

	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.scenario.Name)) + "\n")
	s.WriteString(fmt.Sprintf("%s\n\n", status))

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.3fs / %.1fs", m.t, m.scenario.Duration)) + "\n")
	s.WriteString(labelStyle.Render("Steps") + valueStyle.Render(fmt.Sprintf("%d", m.steps)) + "\n")
	s.WriteString(labelStyle.Render("Step size") + valueStyle.Render(fmt.Sprintf("%.1e s", m.dt)) + "\n")
	s.WriteString(labelStyle.Render("Speed") + valueStyle.Render(fmt.Sprintf("%d steps/frame", m.substeps)) + "\n\n")

	for _, metric := range m.run.Metrics {
		label := strings.ReplaceAll(metric.Name(), "_", " ")
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(fmt.Sprintf("%.4g", metric.Value())) + "\n")
	}
	com := m.run.Primary().VelocityCenterOfMass()
	s.WriteString(labelStyle.Render("com speed") + valueStyle.Render(fmt.Sprintf("%.4g", com.Norm())) + "\n")

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\n+/-:Speed G:Record ?:Help"))

	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Reset the scenario       ║
║  +        - Integrate faster         ║
║  -        - Integrate slower         ║
║  G        - Toggle GIF recording     ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

// Run assembles the terminal program around a prepared run and blocks
// until the user quits.
func Run(run *experiment.Run) error {
	p := tea.NewProgram(NewModel(run))
	_, err := p.Run()
	return err
}

// captureFrame rasterizes the braille grid into a paletted bitmap,
// expanding each sub-pixel into a dot block.
func (m *Model) captureFrame() {
	charW, charH := 8, 16
	imgW, imgH := m.width*charW, m.height*charH
	img := image.NewPaletted(image.Rect(0, 0, imgW, imgH), color.Palette{color.Black, color.White})
	dotW, dotH := charW/2, charH/4
	for row := 0; row < m.height; row++ {
		for col := 0; col < m.width; col++ {
			r := m.canvas.Grid[row][col]
			if r <= 0x2800 {
				continue
			}
			pattern := int(r - 0x2800)
			baseX, baseY := col*charW, row*charH
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] == 0 {
						continue
					}
					for py := 0; py < dotH; py++ {
						for px := 0; px < dotW; px++ {
							img.SetColorIndex(baseX+dx*dotW+px, baseY+dy*dotH+py, 1)
						}
					}
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Model) saveGIF() {
	if len(m.frames) == 0 {
		return
	}
	name := m.scenario.Name
	if name == "" {
		name = "simulation"
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 2)
	}
	f, err := os.Create(name + ".gif")
	if err != nil {
		return
	}
	defer f.Close()
	gif.EncodeAll(f, &anim)
}
