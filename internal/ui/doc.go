// Package ui provides terminal output components for the dialscan CLI.
//
// These components follow a "run once and exit" pattern: they render
// styled output with Lipgloss but never wait for input. The interactive
// screen lives in package tui.
//
// # Components
//
//   - Header: Command banner showing the operation and its parameters
//   - ScanProgress: One-line bar tracking a discovery session budget
//   - Result: Success, warning, or failure boxes with troubleshooting tips
//   - Device table: Discovered devices in discovery order
//
// A Printer writes these to a stream. Progress lines are only drawn on
// terminals, so piping 'dialscan scan' keeps the output clean. The json and
// plain formats carry no styling at all.
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader(ui.NewHeader("DIAL Discovery", "dialscan scan",
//	    ui.Param{Key: "Timeout", Value: "10s"},
//	    ui.Param{Key: "Port", Value: "any"}))
//	_ = p.PrintDevices(devices, ui.FormatTable)
//
// # Logging Integration
//
// zap logging is silent unless DIALSCAN_LOG_LEVEL is set, so the curated
// output here is not interleaved with log lines.
package ui
