package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cwbudde/algo-onair/config"
	"github.com/cwbudde/algo-onair/internal/meter"
)

const barWidth = 40

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#D7263D"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(10)

	onAirStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#D7263D")).
			Padding(0, 1)

	cuedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F49D37"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D7263D"))
)

func renderProgress(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(renderDecks(m))
	b.WriteString("\n")
	b.WriteString(row("fader", renderFader(m.Position)+"  "+subtitleStyle.Render(m.State)))
	b.WriteString(row("level", renderLevel(m.Level)))
	b.WriteString(row("comp", fmt.Sprintf("%5.1f dB", m.ReductionDB)))
	b.WriteString(row("progress", renderBar(m.Fraction())+fmt.Sprintf(" %3.0f%%", 100*m.Fraction())))
	b.WriteString(row("bus time", formatFrames(m.Frame, m.SampleRate)))

	if len(m.Notes) > 0 {
		b.WriteString("\n")
		for _, n := range m.Notes {
			b.WriteString(subtitleStyle.Render(fmt.Sprintf("  %s %.2f %s", n.Kind, n.Progress, n.State)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}

func renderHeader(m Model) string {
	title := titleStyle.Render("onair")
	subtitle := subtitleStyle.Render("rendering to " + filepath.Base(m.Output))
	return title + "\n" + subtitle
}

func renderDecks(m Model) string {
	deck := func(id config.ChannelID, name string) string {
		label := fmt.Sprintf("%s %s", id, filepath.Base(name))
		if m.Outgoing == id {
			return onAirStyle.Render(label)
		}
		return cuedStyle.Render(label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, deck(config.DeckA, m.DeckA), "  ", deck(config.DeckB, m.DeckB)) + "\n"
}

func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}

// renderFader draws the crossfader with A on the left and B on the right.
func renderFader(position float64) string {
	slots := barWidth - 1
	idx := int((position + 1) / 2 * float64(slots))
	idx = max(0, min(slots, idx))
	track := []rune(strings.Repeat("─", barWidth))
	track[idx] = '█'
	return "A " + barStyle.Render(string(track)) + " B"
}

func renderBar(fraction float64) string {
	filled := int(fraction * barWidth)
	filled = max(0, min(barWidth, filled))
	return barStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("░", barWidth-filled)
}

func renderLevel(r meter.Reading) string {
	s := fmt.Sprintf("peak %6.1f dBFS  rms %6.1f dBFS", r.PeakDB, r.RMSDB)
	if r.Clipped > 0 {
		s += "  " + errorStyle.Render(fmt.Sprintf("%d clipped", r.Clipped))
	}
	return s
}

func formatFrames(frames, sampleRate int) string {
	if sampleRate <= 0 {
		return "-"
	}
	d := time.Duration(int64(frames) * int64(time.Second) / int64(sampleRate))
	return d.Truncate(time.Millisecond).String()
}

func renderSummary(m Model) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("onair"))
	b.WriteString("\n\n")

	if m.Err != nil {
		b.WriteString(errorStyle.Render("✗ render failed: "))
		b.WriteString(m.Err.Error())
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(okStyle.Render("✓ "))
	b.WriteString(filepath.Base(m.Output))
	b.WriteString("\n")
	b.WriteString(row("length", formatFrames(m.Frame, m.SampleRate)))
	b.WriteString(row("level", renderLevel(m.Level)))
	b.WriteString(row("took", m.Elapsed.Truncate(time.Millisecond).String()))
	return b.String()
}
