package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/litescript/ls-orrery/internal/perf"
	"github.com/litescript/ls-orrery/internal/sim"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD")).Bold(true)
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))
)

// renderBar draws a bracketed fill bar for a 0-1 fraction.
func renderBar(frac float64, width int) string {
	if frac < 0 {
		frac = 0
	}
	filled := int(frac * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return "[" + accentStyle.Render(bar) + "]"
}

func row(key, value string) string {
	return keyStyle.Render(key) + valueStyle.Render(value) + "\n"
}

// formatDistance renders a camera distance in scene units.
func formatDistance(d float64) string {
	if d >= 1e6 {
		return humanize.SIWithDigits(d, 2, "u")
	}
	return humanize.CommafWithDigits(d, 1) + " u"
}

// layerState describes a far-scale group.
func layerState(visible, ready bool, reveal float64) string {
	switch {
	case visible:
		return fmt.Sprintf("visible (%.0f%%)", reveal*100)
	case ready:
		return "hidden"
	default:
		return "not built"
	}
}

// RenderScalePanel shows where the camera sits on the scale ladder and
// which layers that distance reveals.
func RenderScalePanel(f sim.FrameOutput, width int) string {
	var b strings.Builder
	barW := width - 24
	if barW < 10 {
		barW = 10
	}
	if barW > 60 {
		barW = 60
	}

	b.WriteString(titleStyle.Render("Scale"))
	b.WriteString("\n")
	b.WriteString(keyStyle.Render("Distance"))
	b.WriteString(valueStyle.Render(formatDistance(f.Distance)))
	b.WriteString(mutedStyle.Render("  (" + f.CameraState + ")"))
	b.WriteString("\n")
	b.WriteString(keyStyle.Render("Scale"))
	b.WriteString(renderBar(f.ScalePct/100, barW))
	b.WriteString(valueStyle.Render(fmt.Sprintf(" %5.1f%%", f.ScalePct)))
	b.WriteString("\n")

	var stops []string
	for _, stop := range sim.Tours {
		label := stop.Label
		if nearStop(f.Distance, stop.Distance) {
			label = titleStyle.Render("▶ " + label)
		} else {
			label = mutedStyle.Render("  " + label)
		}
		stops = append(stops, label)
	}
	b.WriteString(keyStyle.Render("Tour [t]"))
	b.WriteString(strings.Join(stops, " "))
	b.WriteString("\n\n")

	v := f.Visibility
	b.WriteString(titleStyle.Render("Layers"))
	b.WriteString("\n")
	b.WriteString(row("Solar detail", onOff(v.SolarDetailVisible)))
	b.WriteString(row("Asteroid belt", onOff(v.AsteroidBeltVisible)))
	b.WriteString(row("Kuiper belt", onOff(v.KuiperBeltVisible)))
	b.WriteString(row("Milky Way", layerState(v.GalaxyVisible, v.GalaxyReady, v.GalaxyReveal)))
	b.WriteString(row("Universe", layerState(v.UniverseVisible, v.UniverseReady, v.UniverseReveal)))
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("Time"))
	b.WriteString("\n")
	b.WriteString(row("Positions", f.PositionMode))
	b.WriteString(row("Warp", fmt.Sprintf("%s days/s", humanize.FtoaWithDigits(f.Warp, 3))))
	b.WriteString(row("Data", f.Provenance.Label()))
	b.WriteString(row("Source", f.Provenance.Source))
	if !f.Provenance.UpdatedAt.IsZero() {
		b.WriteString(row("Valid at", humanize.RelTime(f.Provenance.UpdatedAt, f.Time, "ago", "ahead")))
	}
	return b.String()
}

// nearStop reports whether d is within 10% of a tour stop.
func nearStop(d, stop float64) bool {
	return d >= stop*0.9 && d <= stop*1.1
}

// RenderPerfPanel shows the sampled frame timings and, once finished,
// the benchmark result.
func RenderPerfPanel(p *perf.PanelValues, bench *perf.BenchmarkResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Performance"))
	b.WriteString("\n")
	if p == nil {
		b.WriteString(mutedStyle.Render("collecting samples..."))
		b.WriteString("\n")
	} else {
		b.WriteString(row("FPS", fmt.Sprintf("%.1f", p.FPS)))
		b.WriteString(row("Frame", fmt.Sprintf("%.1f ms", p.LastFrameMs)))
		b.WriteString(row("p50/p90/p99", fmt.Sprintf("%.1f / %.1f / %.1f ms", p.P50, p.P90, p.P99)))
		ratio := fmt.Sprintf("%.2f", p.PixelRatio)
		if p.Adaptive {
			ratio += " (adaptive)"
		}
		b.WriteString(row("Pixel ratio", ratio))
		b.WriteString(row("Quality", p.Quality))
		b.WriteString(row("Updated", p.UpdatedAt.Format(time.TimeOnly)))
	}
	if bench != nil {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Benchmark"))
		b.WriteString("\n")
		b.WriteString(valueStyle.Render(bench.Summary()))
		b.WriteString("\n")
	}
	return b.String()
}
