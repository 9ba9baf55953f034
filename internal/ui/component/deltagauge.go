package component

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/lp-hedger/internal/ui/style"
)

// DeltaGauge visualizes net exposure against the hedge threshold. The
// bar fills as |delta| approaches the threshold and saturates at twice
// the threshold.
type DeltaGauge struct {
	value     float64 // net delta in USD, signed
	threshold float64 // hedge trigger in USD
	width     int
	showValue bool
}

// NewDeltaGauge creates a new delta gauge component
func NewDeltaGauge(width int) *DeltaGauge {
	return &DeltaGauge{
		width:     width,
		threshold: 1,
		showValue: true,
	}
}

// SetValue sets the signed net delta in USD
func (g *DeltaGauge) SetValue(value float64) *DeltaGauge {
	g.value = value
	return g
}

// SetThreshold sets the hedge trigger the bar is scaled against
func (g *DeltaGauge) SetThreshold(threshold float64) *DeltaGauge {
	if threshold > 0 {
		g.threshold = threshold
	}
	return g
}

// SetWidth sets the gauge width
func (g *DeltaGauge) SetWidth(width int) *DeltaGauge {
	g.width = width
	return g
}

// SetShowValue enables/disables value display
func (g *DeltaGauge) SetShowValue(show bool) *DeltaGauge {
	g.showValue = show
	return g
}

// Ratio returns |delta| relative to the threshold
func (g *DeltaGauge) Ratio() float64 {
	return math.Abs(g.value) / g.threshold
}

// View renders the delta gauge
func (g *DeltaGauge) View() string {
	color := g.Color()
	bar := lipgloss.NewStyle().Foreground(color).Render(g.generateBar())

	if !g.showValue {
		return bar
	}

	text := fmt.Sprintf("$%.2f %s", math.Abs(g.value), g.Arrow())
	styledText := lipgloss.NewStyle().Foreground(color).Bold(true).Render(text)
	return bar + " " + styledText
}

// generateBar creates the visual bar. Scale saturates at 2x threshold so
// a freshly breached delta still leaves visible headroom.
func (g *DeltaGauge) generateBar() string {
	if g.width <= 0 {
		return ""
	}

	chars := []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

	intensity := math.Min(g.Ratio()/2, 1.0)
	charIndex := int(intensity * float64(len(chars)-1))
	if charIndex >= len(chars) {
		charIndex = len(chars) - 1
	}

	filledWidth := int(intensity * float64(g.width))
	if filledWidth < 1 && g.value != 0 {
		filledWidth = 1
	}

	var result strings.Builder
	for i := 0; i < g.width; i++ {
		if i < filledWidth {
			result.WriteString(chars[charIndex])
		} else {
			result.WriteString("▁")
		}
	}
	return result.String()
}

// Status returns a text status for the current exposure
func (g *DeltaGauge) Status() string {
	switch {
	case g.Ratio() >= 1:
		return "Hedge needed"
	case g.Ratio() >= 0.8:
		return "Approaching threshold"
	default:
		return "Balanced"
	}
}

// Color returns the display color for the current exposure
func (g *DeltaGauge) Color() lipgloss.Color {
	palette := style.DefaultPalette()
	switch {
	case g.Ratio() >= 1:
		return palette.Error
	case g.Ratio() >= 0.8:
		return palette.Warning
	default:
		return palette.Success
	}
}

// Arrow returns the direction of the exposure: long is up, short is down
func (g *DeltaGauge) Arrow() string {
	switch {
	case g.value > 0:
		return "↑"
	case g.value < 0:
		return "↓"
	default:
		return "→"
	}
}

// ViewDetailed renders the gauge with its status line
func (g *DeltaGauge) ViewDetailed() string {
	status := lipgloss.NewStyle().Foreground(g.Color()).Render(g.Status())
	return g.View() + "\n" + status
}
