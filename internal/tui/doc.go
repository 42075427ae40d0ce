// Package tui implements the interactive watch screen for dialscan.
//
// The screen drives an ssdp.Engine from the keyboard. One key toggles
// discovery, another restarts it, and devices appear as cards while the
// session runs. A progress bar tracks the session budget.
//
// # Framework Components
//
//   - bubbles/list: Device cards
//   - bubbles/spinner: Activity indicator while discovering
//   - bubbles/progress: Session budget
//   - bubbles/help: Key binding footer
//   - lipgloss: Styling and layout
//
// # Usage Example
//
//	model := tui.NewWatchModel(tui.WatchConfig{
//	    Engine:    ssdp.NewEngine(ssdp.Options{}),
//	    Describer: description.NewClient(),
//	    Timeout:   10 * time.Second,
//	    AutoStart: true,
//	})
//	program := tea.NewProgram(model, tea.WithAltScreen())
//	if _, err := program.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Key Bindings
//
//   - s/enter/space: start or stop discovery
//   - r: rescan (stops the running session first)
//   - ↑/↓: move through the device list
//   - q/esc: quit
//
// Stopping is cooperative. The screen keeps showing DISCOVERING until the
// engine reports the Stopped event, at most one receive timeout later.
//
// # Thread Safety
//
// Engine events reach the model as messages, so all state changes happen on
// the Bubble Tea update goroutine.
package tui
