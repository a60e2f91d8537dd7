// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-orrery/internal/orbit"
	"github.com/litescript/ls-orrery/internal/perf"
	"github.com/litescript/ls-orrery/internal/sim"
	"github.com/litescript/ls-orrery/internal/version"
)

// ViewMode represents the current UI view.
type ViewMode int

const (
	ViewOrrery ViewMode = iota
	ViewScale
	ViewPerf
	viewCount
)

// Msg types for Bubble Tea
type (
	// FrameMsg carries one simulation frame.
	FrameMsg sim.FrameOutput

	// AnimTickMsg triggers fast animation updates.
	AnimTickMsg time.Time

	framesClosedMsg struct{}
)

// Submitter accepts simulation inputs.
type Submitter interface {
	Submit(in sim.Input) bool
}

// Options seeds the UI-side copies of simulation controls.
type Options struct {
	// Slider is the initial time slider position in percent.
	Slider     float64
	AutoRotate bool
}

// Slider step per keypress, in percent.
const sliderStep = 5.0

// Dolly factors for the zoom keys.
const (
	dollyIn  = 0.8
	dollyOut = 1.25
)

// Orbit step per keypress, in radians.
const orbitStep = 0.1

// Model is the root Bubble Tea model. It renders frames produced by the
// simulation loop and turns keys into simulation inputs; it never touches
// simulation state directly.
type Model struct {
	target Submitter
	frames <-chan sim.FrameOutput

	viewMode  ViewMode
	width     int
	height    int
	ready     bool
	statusMsg string
	animTick  int

	orrery OrreryModel

	frame    sim.FrameOutput
	hasFrame bool
	panel    *perf.PanelValues
	bench    *perf.BenchmarkResult

	slider     float64
	tour       int
	autoRotate bool
}

// New creates a new root UI model reading frames from frames and sending
// inputs to target.
func New(target Submitter, frames <-chan sim.FrameOutput, opts Options) Model {
	if opts.Slider == 0 {
		opts.Slider = orbit.DefaultSlider
	}
	return Model{
		target:     target,
		frames:     frames,
		viewMode:   ViewOrrery,
		orrery:     NewOrreryModel(),
		slider:     opts.Slider,
		tour:       -1,
		autoRotate: opts.AutoRotate,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForFrame(m.frames), animTickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
		if m.viewMode == ViewOrrery {
			var cmd tea.Cmd
			m.orrery, cmd = m.orrery.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		// Logo and tabs take 11 lines, the footer 2.
		m.orrery = m.orrery.SetSize(msg.Width, msg.Height-13)

	case FrameMsg:
		m.frame = sim.FrameOutput(msg)
		m.hasFrame = true
		if m.frame.Panel != nil {
			m.panel = m.frame.Panel
		}
		if m.frame.Benchmark != nil {
			m.bench = m.frame.Benchmark
			m.statusMsg = "Benchmark: " + m.bench.Summary()
		}
		m.orrery = m.orrery.UpdateData(m.frame)
		cmds = append(cmds, waitForFrame(m.frames))

	case framesClosedMsg:
		return m, tea.Quit

	case AnimTickMsg:
		m.animTick++
		cmds = append(cmds, animTickCmd())

	case tea.BlurMsg:
		m.submit(sim.SetHidden{Hidden: true})
	case tea.FocusMsg:
		m.submit(sim.SetHidden{Hidden: false})
	}

	return m, tea.Batch(cmds...)
}

// handleKey processes global keys. It reports false for keys that belong
// to the active view.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit, true

	case "1":
		m.viewMode = ViewOrrery
	case "2":
		m.viewMode = ViewScale
	case "3":
		m.viewMode = ViewPerf
	case "tab":
		m.viewMode = (m.viewMode + 1) % viewCount

	case "k", "n":
		m.submit(sim.FocusNext{})
	case "j", "N":
		m.submit(sim.FocusPrev{})
	case "r", "esc":
		m.tour = -1
		m.submit(sim.Reset{})

	case "]":
		m.setSlider(m.slider + sliderStep)
	case "[":
		m.setSlider(m.slider - sliderStep)

	case "m":
		mode := orbit.Live
		if m.frame.PositionMode == orbit.Live.String() {
			mode = orbit.Simulated
		}
		m.submit(sim.SetPositionMode{Mode: mode})
	case "a":
		mode := orbit.Accurate
		if m.frame.DataMode == orbit.Accurate.String() {
			mode = orbit.Educational
		}
		m.submit(sim.SetDataMode{Mode: mode})

	case "t":
		m.tour = (m.tour + 1) % len(sim.Tours)
		stop := sim.Tours[m.tour]
		m.statusMsg = "Tour: " + stop.Label
		m.submit(sim.GuidedTour{Key: stop.Key})

	case ",":
		m.submit(sim.Dolly{Factor: dollyIn})
	case ".":
		m.submit(sim.Dolly{Factor: dollyOut})
	case "H":
		m.submit(sim.OrbitView{DAzimuth: -orbitStep})
	case "L":
		m.submit(sim.OrbitView{DAzimuth: orbitStep})
	case "K":
		m.submit(sim.OrbitView{DPolar: -orbitStep})
	case "J":
		m.submit(sim.OrbitView{DPolar: orbitStep})

	case " ":
		m.autoRotate = !m.autoRotate
		m.submit(sim.SetAutoRotate{On: m.autoRotate})

	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) setSlider(v float64) {
	m.slider = max(0, min(100, v))
	m.submit(sim.SetTimeWarp{Percent: m.slider})
}

func (m *Model) submit(in sim.Input) {
	if m.target == nil {
		return
	}
	if !m.target.Submit(in) {
		m.statusMsg = "Simulation busy, input dropped"
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var content string
	switch m.viewMode {
	case ViewOrrery:
		content = m.orrery.View()
	case ViewScale:
		content = RenderScalePanel(m.frame, m.width)
	case ViewPerf:
		content = RenderPerfPanel(m.panel, m.bench)
	}
	return m.renderHeader() + "\n" + content + "\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	return m.renderLogo() + m.renderTabs() + "\n"
}

func (m Model) renderLogo() string {
	logo := []string{
		`  ██╗     ███████╗       ██████╗ ██████╗ ██████╗ ███████╗██████╗ ██╗   ██╗`,
		`  ██║     ██╔════╝      ██╔═══██╗██╔══██╗██╔══██╗██╔════╝██╔══██╗╚██╗ ██╔╝`,
		`  ██║     ███████╗█████╗██║   ██║██████╔╝██████╔╝█████╗  ██████╔╝ ╚████╔╝`,
		`  ██║     ╚════██║╚════╝██║   ██║██╔══██╗██╔══██╗██╔══╝  ██╔══██╗  ╚██╔╝`,
		`  ███████╗███████║      ╚██████╔╝██║  ██║██║  ██║███████╗██║  ██║   ██║`,
		`  ╚══════╝╚══════╝       ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝   ╚═╝`,
	}

	var b strings.Builder
	b.WriteString("\n")
	for y, line := range logo {
		runes := []rune(line)
		for col, r := range runes {
			color := gradientColor(col, y, len(runes), len(logo))
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(r)))
		}
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render("  Solar System · Milky Way · Observable Universe"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  (c) 2025 litescript.net | v%s", version.Version)))
	b.WriteString("\n\n")
	return b.String()
}

// gradientColor returns a hex color for a position in the logo gradient:
// blue, purple, magenta, pink from left to right, dimming downward.
func gradientColor(col, row, width, height int) string {
	xRatio := float64(col) / float64(width)
	yRatio := float64(row) / float64(height)

	var r, g, b float64
	switch {
	case xRatio < 0.33:
		t := xRatio / 0.33
		r = 59 + t*(139-59)
		g = 130 + t*(92-130)
		b = 246
	case xRatio < 0.66:
		t := (xRatio - 0.33) / 0.33
		r = 139 + t*(217-139)
		g = 92 + t*(70-92)
		b = 246 + t*(239-246)
	default:
		t := (xRatio - 0.66) / 0.34
		r = 217 + t*(236-217)
		g = 70 + t*(72-70)
		b = 239 + t*(153-239)
	}

	brightness := 1.0 - yRatio*0.5
	clamp := func(v float64) int {
		return max(0, min(255, int(v*brightness)))
	}
	return fmt.Sprintf("#%02X%02X%02X", clamp(r), clamp(g), clamp(b))
}

func (m Model) renderTabs() string {
	tabs := []string{"[1] Orrery", "[2] Scale", "[3] Perf"}
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	var parts []string
	for i, tab := range tabs {
		if ViewMode(i) == m.viewMode {
			parts = append(parts, titleStyle.Render("▶ "+tab))
		} else {
			parts = append(parts, dimStyle.Render("  "+tab))
		}
	}
	return "  " + strings.Join(parts, "  ")
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m Model) renderFooter() string {
	spinner := spinnerFrames[m.animTick%len(spinnerFrames)]

	var status string
	switch {
	case !m.hasFrame:
		status = accentStyle.Render(spinner) + " " + m.renderShimmerText("Waiting for first frame...")
	case m.frame.Provenance.Mode == orbit.Accurate.String():
		status = accentStyle.Render(spinner) + mutedStyle.Render(fmt.Sprintf(" frame %d · ", m.frame.Frame)) +
			titleStyle.Render(m.frame.Provenance.Label())
	default:
		status = accentStyle.Render(spinner) + mutedStyle.Render(fmt.Sprintf(" frame %d · %s", m.frame.Frame, m.frame.Provenance.Label()))
	}
	if m.hasFrame && m.frame.DataMode == orbit.Educational.String() && m.frame.PositionMode == orbit.Live.String() {
		status += " " + warnStyle.Render("(live, analytic)")
	}

	var help string
	switch m.viewMode {
	case ViewOrrery:
		help = "j/k: focus | arrows: pan | +/-: zoom | z: scale | l: labels | o: moons | c: center"
	default:
		help = "[/]: warp | m: live | a: accurate | t: tour | ,/.: dolly | HJKL: orbit | space: spin"
	}
	footer := "  " + status + "  " + mutedStyle.Render("|") + "  " + mutedStyle.Render(help)

	if m.statusMsg != "" {
		footer += "\n  " + mutedStyle.Render(m.statusMsg)
	}
	return footer
}

// renderShimmerText renders text with a subtle moving shine effect.
func (m Model) renderShimmerText(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	pos := m.animTick % (len(runes) + 8)

	var result strings.Builder
	for i, r := range runes {
		dist := i - pos + 4
		if dist < 0 {
			dist = -dist
		}
		var hex string
		switch {
		case dist <= 1:
			hex = "#B4A0DC"
		case dist <= 3:
			hex = "#8C78B4"
		case dist <= 5:
			hex = "#6E5A96"
		default:
			hex = "#504678"
		}
		result.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render(string(r)))
	}
	return result.String()
}

// Frame returns the most recent frame and whether one has arrived.
func (m Model) Frame() (sim.FrameOutput, bool) {
	return m.frame, m.hasFrame
}

// ActiveView returns the active view.
func (m Model) ActiveView() ViewMode {
	return m.viewMode
}

func waitForFrame(frames <-chan sim.FrameOutput) tea.Cmd {
	if frames == nil {
		return nil
	}
	return func() tea.Msg {
		out, ok := <-frames
		if !ok {
			return framesClosedMsg{}
		}
		return FrameMsg(out)
	}
}

func animTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return AnimTickMsg(t)
	})
}
