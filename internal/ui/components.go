package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

var barChars = []rune(" ▁▂▃▄▅▆▇█")

// springField animates a row of values toward their targets.
type springField struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSpringField(fps int, frequency, damping float64) springField {
	return springField{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

func (s *springField) resize(n int) {
	if len(s.pos) == n {
		return
	}
	s.pos = make([]float64, n)
	s.vel = make([]float64, n)
}

func (s *springField) step(i int, target float64) float64 {
	p, v := s.spring.Update(s.pos[i], s.vel[i], target)
	s.pos[i] = p
	s.vel[i] = v
	return p
}

// renderMeter draws a horizontal level bar for v in [0, 1].
func renderMeter(v float64, width int) string {
	if width < 4 {
		width = 4
	}
	v = min(max(v, 0), 1)
	filled := int(v * float64(width))
	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}

// renderSwatch draws a block filled with c.
func renderSwatch(c colorful.Color, width, height int) string {
	style := lipgloss.NewStyle().Background(lipgloss.Color(c.Clamped().Hex()))
	row := style.Render(strings.Repeat(" ", width))
	rows := make([]string, height)
	for i := range rows {
		rows[i] = row
	}
	return strings.Join(rows, "\n")
}

// renderSpectrum draws bands in [0, 1] as vertical bars spread over width.
func renderSpectrum(bands []float64, width, height int) string {
	if len(bands) == 0 || height < 1 {
		return ""
	}
	colWidth := max(width/len(bands), 1)
	gap := 1
	if colWidth <= 1 {
		gap = 0
	}

	rows := make([]string, height)
	for row := 0; row < height; row++ {
		var line strings.Builder
		for b, v := range bands {
			if b > 0 && gap > 0 {
				line.WriteByte(' ')
			}
			level := v * float64(height)
			rowFromBottom := float64(height - 1 - row)
			charIdx := 0
			if level > rowFromBottom+1 {
				charIdx = len(barChars) - 1
			} else if level > rowFromBottom {
				charIdx = int((level - rowFromBottom) * float64(len(barChars)-1))
			}
			line.WriteString(strings.Repeat(string(barChars[charIdx]), max(colWidth-gap, 1)))
		}
		rows[row] = line.String()
	}
	return strings.Join(rows, "\n")
}

func formatRange(lo, hi float32) string {
	return fmt.Sprintf("[%.2f, %.2f]", lo, hi)
}

// formatDuration formats a duration as m:ss.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
