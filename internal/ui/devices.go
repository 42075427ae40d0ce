package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/dialscan/internal/discovery"
)

const emptyCell = "-"

// deviceColumns are the device table headings
var deviceColumns = []string{"#", "NAME", "ADDRESS", "MODEL", "SOURCE", "LOCATION"}

// deviceRow flattens a device into table cells
func deviceRow(index int, d *discovery.Device) []string {
	model := strings.TrimSpace(d.Manufacturer + " " + d.ModelName)
	if model == "" && d.DescribeError != "" {
		model = "(" + d.DescribeError + ")"
	}
	return []string{
		fmt.Sprintf("%d", index+1),
		orEmpty(d.Name()),
		orEmpty(d.BaseURL()),
		orEmpty(model),
		orEmpty(string(d.Source)),
		d.Location,
	}
}

// RenderDeviceTable renders devices as a bordered table in discovery order
func RenderDeviceTable(devices []*discovery.Device, width int) string {
	rows := make([][]string, 0, len(devices))
	for i, d := range devices {
		rows = append(rows, deviceRow(i, d))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(MutedColor)).
		Headers(deviceColumns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			if row >= 0 && row < len(rows) && rows[row][col] == emptyCell {
				return TableMutedCellStyle
			}
			return TableCellStyle
		})

	out := t.String()
	if width > 0 && lipgloss.Width(out) > clampWidth(width) {
		// Shrink to fit; long cells wrap
		out = t.Width(clampWidth(width)).String()
	}
	return out
}

// RenderDeviceList renders devices as plain tab-separated lines, one per
// device, for piping into other tools
func RenderDeviceList(devices []*discovery.Device) string {
	var b strings.Builder
	for _, d := range devices {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", d.Location, d.Name(), d.Source)
	}
	return b.String()
}

func orEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyCell
	}
	return s
}
