package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(18)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printer writes status lines. Reports go elsewhere so that json and yaml
// output stays machine-readable. A quiet printer only prints errors.
type printer struct {
	w     io.Writer
	quiet bool
}

func (p printer) line(s string) {
	fmt.Fprintln(p.w, s)
}

func (p printer) success(format string, args ...any) {
	if p.quiet {
		return
	}
	p.line(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func (p printer) failure(format string, args ...any) {
	p.line(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func (p printer) warning(format string, args ...any) {
	if p.quiet {
		return
	}
	p.line(styleIconWarning.Render(iconWarning) + " " + styleWarning.Render(fmt.Sprintf(format, args...)))
}

func (p printer) info(format string, args ...any) {
	if p.quiet {
		return
	}
	p.line(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// detail prints an indented secondary line.
func (p printer) detail(format string, args ...any) {
	if p.quiet {
		return
	}
	p.line("  " + styleDim.Render(fmt.Sprintf(format, args...)))
}

// file announces a written file.
func (p printer) file(path string) {
	if p.quiet {
		return
	}
	p.line("  " + styleDim.Render(iconArrow) + " " + styleValue.Render(path))
}

func (p printer) keyValue(key, value string) {
	if p.quiet {
		return
	}
	p.line(styleKey.Render(key) + " " + styleValue.Render(value))
}

func (p printer) title(s string) {
	if p.quiet {
		return
	}
	p.line(styleTitle.Render(s))
}

// scanStats prints scan totals on a single line.
func (p printer) scanStats(files, parsed, cached int) {
	if p.quiet {
		return
	}
	parts := []string{
		styleNumber.Render(fmt.Sprint(files)) + styleDim.Render(" files"),
		styleComputed.Render(fmt.Sprintf("%d parsed", parsed)),
	}
	if cached > 0 {
		parts = append(parts, styleCached.Render(fmt.Sprintf("%d cached", cached)))
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += styleDim.Render(" · ")
		}
		line += part
	}
	p.line(line)
}

// nextStep prints a suggested next command.
func (p printer) nextStep(description, cmd string) {
	if p.quiet {
		return
	}
	p.line(styleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}
