package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/dialscan/internal/description"
	"github.com/muurk/dialscan/internal/discovery"
	"github.com/muurk/dialscan/internal/ssdp"
)

// progressInterval is how often the progress bar advances
const progressInterval = 100 * time.Millisecond

// Messages for async operations
type discoveryEventMsg struct {
	sessionID string
	event     ssdp.Event
}

type progressTickMsg struct {
	sessionID string
}

type startDiscoveryMsg struct{}

type describedMsg struct {
	location string
	desc     *description.Description
	err      error
}

// watchKeyMap defines key bindings for the watch screen
type watchKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Rescan key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Rescan, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Toggle, k.Rescan, k.Quit},
	}
}

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *discovery.Device
}

func (d deviceItem) FilterValue() string {
	return d.device.Name() + " " + d.device.Location
}

func (d deviceItem) Title() string { return d.device.Name() }

func (d deviceItem) Description() string { return d.device.Location }

// deviceDelegate renders each device as a small card
type deviceDelegate struct {
	width int
}

func (d deviceDelegate) Height() int { return 5 }

func (d deviceDelegate) Spacing() int { return 0 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(deviceItem)
	if !ok {
		return
	}
	device := it.device
	selected := index == m.Index()

	var content strings.Builder
	if selected {
		content.WriteString(SelectedItemStyle.Render("→ " + device.Name()))
	} else {
		content.WriteString("  " + device.Name())
	}
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("  Location: %s\n", device.Location))

	switch {
	case device.ModelName != "" || device.Manufacturer != "":
		content.WriteString(fmt.Sprintf("  Model:    %s", strings.TrimSpace(device.Manufacturer+" "+device.ModelName)))
	case device.DescribeError != "":
		content.WriteString(WarningStyle.Render("  " + device.DescribeError))
	default:
		content.WriteString(SubtitleStyle.Render("  Source: " + string(device.Source)))
	}

	style := cardStyle
	cardWidth := d.width - 6 // 2 for margin-left, 4 for border + padding
	if cardWidth < MinTerminalWidth-6 {
		cardWidth = MinTerminalWidth - 6
	}
	if cardWidth > MaxContentWidth-6 {
		cardWidth = MaxContentWidth - 6
	}
	style = style.Width(cardWidth)
	if selected {
		style = style.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, style.Render(content.String()))
}

// WatchConfig configures the watch screen
type WatchConfig struct {
	Engine     *ssdp.Engine
	Describer  discovery.Describer // nil disables description fetches
	Timeout    time.Duration
	TargetPort int
	Context    context.Context
	AutoStart  bool // start discovering as soon as the program starts
}

// WatchModel is the interactive discovery screen. Discovery is toggled
// with one key; the progress bar tracks the session budget.
type WatchModel struct {
	cfg WatchConfig

	// Discovery state
	Discovering    bool
	Progress       float64
	LastError      string
	session        *ssdp.Session
	events         <-chan ssdp.Event
	startedAt      time.Time
	restartPending bool
	devices        map[string]*discovery.Device

	// UI state
	Width       int
	Height      int
	DeviceList  list.Model
	Spinner     spinner.Model
	ProgressBar progress.Model
	Help        help.Model
	Keys        watchKeyMap
}

// NewWatchModel creates the watch screen model
func NewWatchModel(cfg WatchConfig) WatchModel {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = ssdp.DefaultTimeout
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	deviceList := list.New([]list.Item{}, deviceDelegate{width: MinTerminalWidth}, 0, 0)
	deviceList.Title = "Discovered Devices"
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)
	deviceList.SetFilteringEnabled(false)
	deviceList.Styles.Title = TitleStyle

	keys := watchKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("s", "enter", " "),
			key.WithHelp("s", "start/stop"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	return WatchModel{
		cfg:         cfg,
		devices:     make(map[string]*discovery.Device),
		DeviceList:  deviceList,
		Spinner:     s,
		ProgressBar: progressBar,
		Help:        help.New(),
		Keys:        keys,
	}
}

// Init starts discovery when AutoStart is set
func (m WatchModel) Init() tea.Cmd {
	if m.cfg.AutoStart {
		return func() tea.Msg { return startDiscoveryMsg{} }
	}
	return nil
}

// Update handles messages and updates the model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			m.cfg.Engine.Stop()
			return m, tea.Quit

		case key.Matches(msg, m.Keys.Toggle):
			if m.Discovering {
				// The Stopped event resets the state
				m.cfg.Engine.Stop()
				return m, nil
			}
			return m.startDiscovery()

		case key.Matches(msg, m.Keys.Rescan):
			if m.Discovering {
				m.restartPending = true
				m.cfg.Engine.Stop()
				return m, nil
			}
			return m.startDiscovery()
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DeviceList.SetDelegate(deviceDelegate{width: msg.Width})
		m.DeviceList.SetWidth(msg.Width - 4)
		m.DeviceList.SetHeight(max(msg.Height-14, 5)) // Leave room for header/status/footer
		return m, nil

	case startDiscoveryMsg:
		if m.Discovering {
			return m, nil
		}
		return m.startDiscovery()

	case discoveryEventMsg:
		return m.handleEvent(msg)

	case progressTickMsg:
		if !m.Discovering || m.session == nil || msg.sessionID != m.session.ID() {
			return m, nil
		}
		m.Progress = m.progressAt(time.Now())
		return m, m.tick()

	case describedMsg:
		m.applyDescription(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.Discovering {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// startDiscovery clears the list and starts a new session
func (m WatchModel) startDiscovery() (tea.Model, tea.Cmd) {
	sink, events := ssdp.ChanSink(64)
	session, started := m.cfg.Engine.Start(m.cfg.Context, sink, m.cfg.Timeout, m.cfg.TargetPort)
	if !started {
		m.LastError = "discovery already running"
		return m, nil
	}

	m.devices = make(map[string]*discovery.Device)
	m.DeviceList.SetItems([]list.Item{})
	m.LastError = ""
	m.Discovering = true
	m.Progress = 0
	m.session = session
	m.events = events
	m.startedAt = session.Deadline().Add(-session.Timeout())

	return m, tea.Batch(
		waitForEvent(session.ID(), events),
		m.tick(),
		m.Spinner.Tick,
	)
}

func (m WatchModel) handleEvent(msg discoveryEventMsg) (tea.Model, tea.Cmd) {
	if m.session == nil || msg.sessionID != m.session.ID() {
		return m, nil
	}

	switch msg.event.Kind {
	case ssdp.EventFound:
		device := discovery.NewDeviceFromLocation(msg.event.Location, discovery.SourceSSDP)
		m.devices[device.Location] = device
		m.DeviceList.InsertItem(len(m.DeviceList.Items()), deviceItem{device: device})

		cmds := []tea.Cmd{waitForEvent(msg.sessionID, m.events)}
		if m.cfg.Describer != nil {
			cmds = append(cmds, describe(m.cfg.Context, m.cfg.Describer, device.Location))
		}
		return m, tea.Batch(cmds...)

	case ssdp.EventError:
		m.LastError = msg.event.Message
		return m, waitForEvent(msg.sessionID, m.events)

	case ssdp.EventStopped:
		m.Discovering = false
		m.Progress = m.progressAt(time.Now())
		m.events = nil
		if m.restartPending {
			m.restartPending = false
			return m, restartAfter(m.session)
		}
	}
	return m, nil
}

func (m *WatchModel) applyDescription(msg describedMsg) {
	device, ok := m.devices[msg.location]
	if !ok {
		// From a previous session
		return
	}
	if msg.err != nil {
		device.DescribeError = description.GetShortErrorMessage(msg.err)
	} else {
		device.ApplyDescription(msg.desc)
	}

	// Re-set the item so the list re-renders it
	for i, item := range m.DeviceList.Items() {
		if it, ok := item.(deviceItem); ok && it.device.Location == msg.location {
			m.DeviceList.SetItem(i, deviceItem{device: device})
			break
		}
	}
}

// progressAt returns the fraction of the session budget elapsed at t
func (m WatchModel) progressAt(t time.Time) float64 {
	if m.cfg.Timeout <= 0 {
		return 0
	}
	p := float64(t.Sub(m.startedAt)) / float64(m.cfg.Timeout)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func (m WatchModel) tick() tea.Cmd {
	id := m.session.ID()
	return tea.Tick(progressInterval, func(time.Time) tea.Msg {
		return progressTickMsg{sessionID: id}
	})
}

// restartAfter requests a new session once s has released the engine
func restartAfter(s *ssdp.Session) tea.Cmd {
	return func() tea.Msg {
		<-s.Done()
		return startDiscoveryMsg{}
	}
}

// waitForEvent delivers the next session event as a message
func waitForEvent(sessionID string, events <-chan ssdp.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return discoveryEventMsg{sessionID: sessionID, event: ev}
	}
}

// describe fetches the description for location in the background
func describe(ctx context.Context, describer discovery.Describer, location string) tea.Cmd {
	return func() tea.Msg {
		desc, err := describer.Fetch(ctx, location)
		return describedMsg{location: location, desc: desc, err: err}
	}
}

// Devices returns the devices of the current or last session in discovery order
func (m WatchModel) Devices() []*discovery.Device {
	items := m.DeviceList.Items()
	devices := make([]*discovery.Device, 0, len(items))
	for _, item := range items {
		if it, ok := item.(deviceItem); ok {
			devices = append(devices, it.device)
		}
	}
	return devices
}

// View renders the watch screen
func (m WatchModel) View() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.renderStatus(width))
	b.WriteString("\n")

	if m.LastError != "" {
		b.WriteString(RenderError(m.LastError))
		b.WriteString("\n")
	}

	if len(m.DeviceList.Items()) == 0 {
		if !m.Discovering && m.session != nil {
			b.WriteString("  ")
			b.WriteString(WarningStyle.Render("⚠ No devices found on your network"))
			b.WriteString("\n\n")
			b.WriteString("  Troubleshooting:\n")
			b.WriteString("    • Make sure this machine is on the same network as the receiver\n")
			b.WriteString("    • Some routers drop multicast traffic between WiFi and Ethernet\n")
			b.WriteString("    • Try a longer timeout (dialscan watch --timeout 20000)\n")
		}
	} else {
		b.WriteString(m.DeviceList.View())
	}

	return RenderApplicationContainer(b.String(), m.Help.View(m.Keys), m.Width, m.Height)
}

func (m WatchModel) renderStatus(width int) string {
	var title, subtitle string
	switch {
	case m.Discovering:
		title = fmt.Sprintf("%s DISCOVERING DIAL DEVICES", m.Spinner.View())
		subtitle = fmt.Sprintf("%d found • budget %s • port %s", len(m.devices), m.cfg.Timeout, portLabel(m.cfg.TargetPort))
	case m.session != nil:
		title = StatusActiveStyle.Render("DISCOVERY COMPLETE")
		subtitle = fmt.Sprintf("%d found • press s to search again", len(m.devices))
	default:
		title = "READY"
		subtitle = "Press s to start discovery"
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		TitleStyle.Render(title),
		SubtitleStyle.Render(subtitle),
		"",
		m.ProgressBar.ViewAs(m.Progress),
	)
	return lipgloss.Place(width-4, 0, lipgloss.Center, lipgloss.Top, content)
}

func portLabel(port int) string {
	if port <= 0 {
		return "any"
	}
	return fmt.Sprintf("%d", port)
}
