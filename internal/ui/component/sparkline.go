package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/lp-hedger/internal/ui/style"
)

// Sparkline is a mini bar graph of recent values, sized to hold one
// point per column.
type Sparkline struct {
	data  []float64
	width int
	color lipgloss.Color
}

// NewSparkline creates a new sparkline component
func NewSparkline(width int) *Sparkline {
	return &Sparkline{
		data:  make([]float64, 0, width),
		width: width,
		color: style.DefaultPalette().Primary,
	}
}

// Push appends a data point, dropping the oldest once the width is full
func (s *Sparkline) Push(value float64) *Sparkline {
	s.data = append(s.data, value)
	if len(s.data) > s.width {
		s.data = s.data[len(s.data)-s.width:]
	}
	return s
}

// SetData replaces all data points
func (s *Sparkline) SetData(data []float64) *Sparkline {
	s.data = make([]float64, len(data))
	copy(s.data, data)
	if len(s.data) > s.width {
		s.data = s.data[len(s.data)-s.width:]
	}
	return s
}

// SetWidth sets the width of the sparkline
func (s *Sparkline) SetWidth(width int) *Sparkline {
	s.width = width
	if len(s.data) > width {
		s.data = s.data[len(s.data)-width:]
	}
	return s
}

// SetColor sets the color for the sparkline
func (s *Sparkline) SetColor(color lipgloss.Color) *Sparkline {
	s.color = color
	return s
}

// View renders the sparkline
func (s *Sparkline) View() string {
	base := lipgloss.NewStyle().Foreground(s.color)
	if len(s.data) == 0 {
		return base.Render(strings.Repeat("▁", s.width))
	}
	return base.Render(s.blocks())
}

// blocks maps each data point to a spark character, normalized over the
// visible window.
func (s *Sparkline) blocks() string {
	min, max := s.data[0], s.data[0]
	for _, v := range s.data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if min == max {
		flat := len(s.data)
		if flat > s.width {
			flat = s.width
		}
		return strings.Repeat("▄", flat) + strings.Repeat(" ", s.width-flat)
	}

	sparkChars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var result strings.Builder
	written := 0
	for _, value := range s.data {
		if written >= s.width {
			break
		}
		normalized := (value - min) / (max - min)
		index := int(normalized * float64(len(sparkChars)-1))
		if index < 0 {
			index = 0
		} else if index >= len(sparkChars) {
			index = len(sparkChars) - 1
		}
		result.WriteRune(sparkChars[index])
		written++
	}
	for ; written < s.width; written++ {
		result.WriteRune(' ')
	}
	return result.String()
}

// Trend returns an arrow for the direction of the latest move
func (s *Sparkline) Trend() string {
	if len(s.data) < 2 {
		return "→"
	}
	last := s.data[len(s.data)-1]
	prev := s.data[len(s.data)-2]
	switch {
	case last > prev:
		return "↗"
	case last < prev:
		return "↘"
	default:
		return "→"
	}
}

// Clear removes all data points
func (s *Sparkline) Clear() *Sparkline {
	s.data = s.data[:0]
	return s
}
