package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ScanProgress renders a one-line status for a running discovery session:
// a bar tracking the session budget and the number of devices found so far.
type ScanProgress struct {
	Budget  time.Duration
	Elapsed time.Duration
	Found   int
	Done    bool
	Width   int
	bar     progress.Model
}

// NewScanProgress creates a progress line for a session with the given budget
func NewScanProgress(budget time.Duration) *ScanProgress {
	p := &ScanProgress{Budget: budget}
	p.SetWidth(MaxContentWidth)
	return p
}

// SetWidth sets the terminal width for responsive rendering
func (p *ScanProgress) SetWidth(width int) *ScanProgress {
	p.Width = width
	barWidth := width - 40 // Leave room for the label and counters
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// Percent returns the fraction of the budget elapsed, clamped to [0, 1]
func (p *ScanProgress) Percent() float64 {
	if p.Done {
		return 1
	}
	if p.Budget <= 0 || p.Elapsed <= 0 {
		return 0
	}
	if p.Elapsed >= p.Budget {
		return 1
	}
	return float64(p.Elapsed) / float64(p.Budget)
}

// Render returns the styled progress line
func (p *ScanProgress) Render() string {
	marker := lipgloss.NewStyle().Foreground(WarningColor).Render(RunningMarker)
	if p.Done {
		marker = lipgloss.NewStyle().Foreground(SuccessColor).Render(SuccessMarker)
	}

	remaining := p.Budget - p.Elapsed
	if remaining < 0 || p.Done {
		remaining = 0
	}

	return ProgressLabelStyle.Render(fmt.Sprintf("%s %s  %3.0f%%  %d found  %s left",
		marker,
		p.bar.ViewAs(p.Percent()),
		p.Percent()*100,
		p.Found,
		remaining.Round(100*time.Millisecond),
	))
}

// String implements fmt.Stringer
func (p *ScanProgress) String() string {
	return p.Render()
}
