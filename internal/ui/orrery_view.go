package ui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-orrery/internal/astro"
	"github.com/litescript/ls-orrery/internal/scale"
	"github.com/litescript/ls-orrery/internal/scene"
	"github.com/litescript/ls-orrery/internal/sim"
)

// LabelMode controls which bodies get a name next to their glyph.
type LabelMode int

const (
	LabelNone LabelMode = iota
	LabelFocused
	LabelAll
)

func (l LabelMode) String() string {
	switch l {
	case LabelNone:
		return "off"
	case LabelFocused:
		return "focus"
	default:
		return "all"
	}
}

// OrreryModel renders a top-down view of the simulated solar system.
type OrreryModel struct {
	width  int
	height int
	frame  sim.FrameOutput
	// scene accumulates the scene writes of every frame seen.
	scene *scene.Delta

	// View state
	zoomLevel  int
	panX       float64
	panY       float64
	scaleMode  astro.ScaleMode
	labelMode  LabelMode
	userPanned bool
	showMoons  bool
}

// panStep is the arrow-key pan, in projected units at 1x zoom.
const panStep = 0.1

// Objects fainter than this are not drawn.
const minOpacity = 0.1

// maxCloudPoints caps the points plotted per cloud; the terminal grid is
// far coarser than the buffers.
const maxCloudPoints = 600

// clouds are the point layers drawn in the orrery, each with the group
// whose visibility gates it.
var clouds = []struct{ object, group string }{
	{scale.ObjBeltDust, scale.ObjBeltGroup},
	{scale.ObjBeltMedium, scale.ObjBeltGroup},
	{scale.ObjBeltLarge, scale.ObjBeltGroup},
	{scale.ObjKuiper, scale.ObjKuiper},
}

// Discrete zoom levels for clean stepping
var zoomLevels = []float64{0.25, 0.5, 0.75, 1.0, 1.5, 2.0, 3.0, 5.0, 10.0}

const defaultZoom = 3

// NewOrreryModel creates a new orrery view model.
func NewOrreryModel() OrreryModel {
	return OrreryModel{
		zoomLevel: defaultZoom,
		scaleMode: astro.ScaleLogR,
		labelMode: LabelFocused,
	}
}

func (m OrreryModel) scale() float64 {
	if m.zoomLevel < 0 || m.zoomLevel >= len(zoomLevels) {
		return 1.0
	}
	return zoomLevels[m.zoomLevel]
}

func (m OrreryModel) projection() astro.ProjectionConfig {
	return astro.ProjectionConfig{Scale: m.scale(), Mode: m.scaleMode}
}

// SetSize updates the viewport size.
func (m OrreryModel) SetSize(width, height int) OrreryModel {
	m.width = width
	m.height = height
	return m
}

// UpdateData takes the latest frame. The view follows the selected body
// unless the user has panned away.
func (m OrreryModel) UpdateData(frame sim.FrameOutput) OrreryModel {
	m.frame = frame
	if d := frame.Scene; d != nil {
		if m.scene == nil || d.Full {
			m.scene = &scene.Delta{}
		}
		m.scene.Merge(d)
	}
	if !m.userPanned {
		m.centerOnSelected()
	}
	return m
}

// Update handles view-local keys. Keys that steer the simulation are
// handled by the root model.
func (m OrreryModel) Update(msg tea.Msg) (OrreryModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up":
		m.pan(0, -1)
	case "down":
		m.pan(0, 1)
	case "left":
		m.pan(-1, 0)
	case "right":
		m.pan(1, 0)
	case "c":
		m.userPanned = false
		m.centerOnSelected()

	case "+", "=":
		if m.zoomLevel < len(zoomLevels)-1 {
			m.zoomLevel++
		}
	case "-":
		if m.zoomLevel > 0 {
			m.zoomLevel--
		}
	case "0":
		m.zoomLevel = defaultZoom

	case "z":
		m.scaleMode = (m.scaleMode + 1) % 3
	case "l":
		m.labelMode = (m.labelMode + 1) % 3
	case "o":
		m.showMoons = !m.showMoons
	}
	if !m.userPanned {
		m.centerOnSelected()
	}
	return m, nil
}

// pan detaches the view from the selection and shifts it by one step,
// smaller when zoomed in.
func (m *OrreryModel) pan(dx, dy float64) {
	step := panStep / m.scale()
	m.panX += dx * step
	m.panY += dy * step
	m.userPanned = true
}

// centerOnSelected pans so the selected body sits in the middle; with
// nothing selected the Sun does.
func (m *OrreryModel) centerOnSelected() {
	body, ok := m.frame.Body(m.frame.Selected)
	if !ok {
		m.panX, m.panY = 0, 0
		return
	}
	proj := astro.ProjectTopDown(body.Position, m.projection())
	m.panX = -proj.X
	m.panY = -proj.Y
}

// View renders the orrery.
func (m OrreryModel) View() string {
	if m.width < 40 || m.height < 10 {
		return "Terminal too small for orrery view"
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.buildCanvas(), m.renderHUD())
}

type bodyPos struct {
	x, y      int
	name      string
	isFocused bool
}

func (m OrreryModel) buildCanvas() string {
	canvasH := m.height - 5
	if canvasH < 5 {
		canvasH = 5
	}
	canvasW := m.width

	grid := make([][]rune, canvasH)
	for y := range grid {
		grid[y] = make([]rune, canvasW)
		for x := range grid[y] {
			grid[y][x] = ' '
		}
	}

	screenCenterX := canvasW / 2
	screenCenterY := canvasH / 2
	cfg := m.projection()

	// log10(Pluto's orbit + 1) is about 2; fit that in half the canvas.
	maxDisplayR := float64(min(screenCenterX, screenCenterY*2)) * 0.9
	displayScale := maxDisplayR / 2.1

	originX := screenCenterX + int(m.panX*displayScale)
	originY := screenCenterY - int(m.panY*displayScale*0.5)

	m.drawClouds(grid, originX, originY, displayScale, cfg)
	m.drawOrbitRings(grid, originX, originY, displayScale, cfg)

	var positions []bodyPos
	for _, body := range m.frame.Bodies {
		if body.Kind == "moon" && !m.showMoons && body.Name != m.frame.Selected {
			continue
		}
		proj := astro.ProjectTopDown(body.Position, cfg)
		sx := originX + int(proj.X*displayScale)
		sy := originY - int(proj.Y*displayScale*0.5)
		if sx < 0 || sx >= canvasW || sy < 0 || sy >= canvasH {
			continue
		}
		focused := body.Name == m.frame.Selected
		grid[sy][sx] = bodyGlyph(body, focused)
		positions = append(positions, bodyPos{x: sx, y: sy, name: body.Name, isFocused: focused})
	}

	// Sun last so it is never covered.
	if originX >= 0 && originX < canvasW && originY >= 0 && originY < canvasH {
		grid[originY][originX] = '☉'
		positions = append(positions, bodyPos{
			x: originX, y: originY, name: "Sun", isFocused: m.frame.Selected == "",
		})
	}

	m.renderLabels(grid, canvasW, canvasH, positions)
	return renderGrid(grid)
}

// shown reports whether the scene has name visible and opaque enough to
// draw. Objects the scene never wrote are shown.
func (m OrreryModel) shown(name string) bool {
	if m.scene == nil {
		return true
	}
	if v, ok := m.scene.Visible[name]; ok && !v {
		return false
	}
	if op, ok := m.scene.Opacity[name]; ok && op < minOpacity {
		return false
	}
	return true
}

// drawClouds plots the belt and Kuiper points inside their draw ranges.
func (m OrreryModel) drawClouds(grid [][]rune, cx, cy int, displayScale float64, cfg astro.ProjectionConfig) {
	if m.scene == nil {
		return
	}
	h, w := len(grid), len(grid[0])
	for _, c := range clouds {
		if !m.shown(c.group) || !m.shown(c.object) {
			continue
		}
		pts := m.scene.PointsDrawn(c.object)
		n := len(pts) / 3
		step := max(1, n/maxCloudPoints)
		for i := 0; i < n; i += step {
			v := astro.Vec3{X: float64(pts[3*i]), Y: float64(pts[3*i+1]), Z: float64(pts[3*i+2])}
			proj := astro.ProjectTopDown(v, cfg)
			x := cx + int(proj.X*displayScale)
			y := cy - int(proj.Y*displayScale*0.5)
			if x >= 0 && x < w && y >= 0 && y < h && grid[y][x] == ' ' {
				grid[y][x] = '.'
			}
		}
	}
}

// drawOrbitRings traces each planet's current orbital radius, skipping
// rings the scene has faded out.
func (m OrreryModel) drawOrbitRings(grid [][]rune, cx, cy int, displayScale float64, cfg astro.ProjectionConfig) {
	for _, body := range m.frame.Bodies {
		if body.Kind != "planet" && body.Kind != "dwarf" {
			continue
		}
		if !m.shown(sim.OrbitObject(body.Name)) {
			continue
		}
		r := astro.ScaleRadius(body.Position.HorizontalRadius(), cfg) * displayScale
		drawCircle(grid, cx, cy, r)
	}
}

func drawCircle(grid [][]rune, cx, cy int, r float64) {
	if r < 1 {
		return
	}
	h := len(grid)
	w := len(grid[0])

	steps := int(2 * math.Pi * r)
	if steps < 8 {
		steps = 8
	}
	if steps > 360 {
		steps = 360
	}
	for i := 0; i < steps; i++ {
		theta := 2 * math.Pi * float64(i) / float64(steps)
		x := cx + int(r*math.Cos(theta))
		y := cy - int(r*math.Sin(theta)*0.5) // Aspect ratio correction

		if x >= 0 && x < w && y >= 0 && y < h && grid[y][x] == ' ' {
			grid[y][x] = '·'
		}
	}
}

func (m OrreryModel) renderLabels(grid [][]rune, width, height int, positions []bodyPos) {
	if m.labelMode == LabelNone {
		return
	}
	for _, pos := range positions {
		if m.labelMode == LabelFocused && !pos.isFocused {
			continue
		}
		labelX := pos.x + 2
		if pos.y < 0 || pos.y >= height || labelX >= width {
			continue
		}
		text := pos.name
		if pos.isFocused {
			text = "◄ " + pos.name
		}
		for i, r := range []rune(text) {
			x := labelX + i
			if x >= width {
				break
			}
			if grid[pos.y][x] == ' ' || grid[pos.y][x] == '·' || grid[pos.y][x] == '.' {
				grid[pos.y][x] = r
			}
		}
	}
}

// Bodies at least this large in scene units get the giant glyph.
const giantRadius = 1.75

func bodyGlyph(body sim.BodyFrame, focused bool) rune {
	switch body.Kind {
	case "planet":
		if body.Radius >= giantRadius {
			if focused {
				return '◉'
			}
			return '○'
		}
		if focused {
			return '●'
		}
		return '•'
	case "dwarf", "asteroid":
		if focused {
			return '◆'
		}
		return '◇'
	case "moon":
		if focused {
			return '●'
		}
		return '∘'
	default:
		return '?'
	}
}

func renderGrid(grid [][]rune) string {
	var b strings.Builder

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cloudStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("137"))
	sunStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	planetStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	giantStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	minorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	focusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("249"))

	for _, row := range grid {
		for _, ch := range row {
			var style lipgloss.Style
			switch ch {
			case ' ':
				b.WriteRune(ch)
				continue
			case '·':
				style = dimStyle
			case '.':
				style = cloudStyle
			case '☉':
				style = sunStyle
			case '•':
				style = planetStyle
			case '○':
				style = giantStyle
			case '◇', '∘':
				style = minorStyle
			case '●', '◉', '◆', '◄':
				style = focusStyle
			default:
				style = labelStyle
			}
			b.WriteString(style.Render(string(ch)))
		}
		b.WriteRune('\n')
	}
	return b.String()
}

func (m OrreryModel) renderHUD() string {
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(12)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	if body, ok := m.frame.Body(m.frame.Selected); ok {
		b.WriteString(headerStyle.Render("◆ " + body.Name))
		b.WriteString("  ")
		b.WriteString(labelStyle.Render("Orbit r:"))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%.1f", body.Position.HorizontalRadius())))
		b.WriteString("  ")
		b.WriteString(labelStyle.Render("Kind:"))
		b.WriteString(valueStyle.Render(body.Kind))
		if body.Held {
			b.WriteString("  ")
			b.WriteString(dimStyle.Render("(held, no live data)"))
		}
	} else {
		b.WriteString(headerStyle.Render("☉ Sun"))
		b.WriteString("  ")
		b.WriteString(dimStyle.Render("(free camera)"))
	}
	if m.frame.Hovered != "" {
		b.WriteString("  ")
		b.WriteString(dimStyle.Render("hover: " + m.frame.Hovered))
	}
	b.WriteString("\n")

	b.WriteString(dimStyle.Render("Mode:"))
	b.WriteString(valueStyle.Render(m.scaleMode.String()))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render("Zoom:"))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%.2gx", m.scale())))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render("Labels:"))
	b.WriteString(valueStyle.Render(m.labelMode.String()))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render("Moons:"))
	b.WriteString(valueStyle.Render(onOff(m.showMoons)))
	if m.userPanned {
		b.WriteString("  ")
		b.WriteString(dimStyle.Render("[c] recenter"))
	}
	return b.String()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
