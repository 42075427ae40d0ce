package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/muurk/dialscan/internal/discovery"
)

// Format selects how scan results are printed
type Format string

const (
	FormatTable Format = "table"
	FormatPlain Format = "plain"
	FormatJSON  Format = "json"
)

// ParseFormat validates an output format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatPlain, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, plain or json)", s)
	}
}

// Printer provides methods for printing UI components to a writer.
// Progress lines are only drawn when the writer is a terminal.
type Printer struct {
	out         io.Writer
	width       int
	interactive bool
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:         w,
		width:       GetTerminalWidth(w),
		interactive: IsTerminal(w),
	}
}

// Width returns the terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Interactive reports whether the printer writes to a terminal
func (p *Printer) Interactive() bool {
	return p.interactive
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(h *Header) {
	p.Println(h.SetWidth(p.width).Render())
}

// PrintResult prints a result box
func (p *Printer) PrintResult(r *Result) {
	p.Println(r.SetWidth(p.width).Render())
}

// PrintProgress redraws the progress line in place. A no-op unless the
// output is a terminal.
func (p *Printer) PrintProgress(sp *ScanProgress) {
	if !p.interactive {
		return
	}
	// Carriage return plus erase-line keeps the cursor on one row
	p.Print("\r\x1b[K" + sp.SetWidth(p.width).Render())
	if sp.Done {
		p.Newline()
	}
}

// PrintDevices prints devices in the given format
func (p *Printer) PrintDevices(devices []*discovery.Device, format Format) error {
	switch format {
	case FormatJSON:
		return p.PrintJSON(devices)
	case FormatPlain:
		p.Print(RenderDeviceList(devices))
	default:
		if len(devices) == 0 {
			return nil
		}
		p.Println(RenderDeviceTable(devices, p.width))
	}
	return nil
}

// PrintJSON writes v as indented JSON
func (p *Printer) PrintJSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
