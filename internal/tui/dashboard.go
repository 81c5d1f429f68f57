package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ewego/fleet/internal/fleet"
)

// refreshInterval is how often the view re-reads the directory.
const refreshInterval = time.Second

// Messages for async operations
type tickMsg time.Time
type rescanDoneMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// dashboardKeyMap defines key bindings for the fleet dashboard
type dashboardKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Rescan key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k dashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Rescan, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k dashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Rescan, k.Quit},
	}
}

var dashboardKeys = dashboardKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Rescan: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rescan now"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// deviceItem wraps a fleet entry for use with bubbles/list
type deviceItem struct {
	entry fleet.Entry
}

// FilterValue implements list.Item; devices filter by id, name, or IP
func (d deviceItem) FilterValue() string {
	return d.entry.Record.DeviceID + " " + d.entry.Record.DisplayName + " " + d.entry.Record.IP
}

// Title returns the status badge and device id for list display
func (d deviceItem) Title() string {
	return fmt.Sprintf("%s  %s", statusBadge(d.entry.Health.Status), d.entry.Record.DeviceID)
}

// Description returns address, telemetry highlights, and observation age
func (d deviceItem) Description() string {
	record := d.entry.Record
	desc := fmt.Sprintf("%s:%d", record.IP, record.Port)

	if battery, ok := d.entry.Health.Payload["battery"].(float64); ok {
		desc += fmt.Sprintf(" • battery %.0f%%", battery)
	}
	if gps, ok := d.entry.Health.Payload["gps"].(map[string]any); ok {
		if fix, ok := gps["fix"].(string); ok {
			desc += " • gps " + fix
		}
	}

	if !d.entry.Health.ObservedAt.IsZero() {
		desc += fmt.Sprintf(" • seen %s ago", time.Since(d.entry.Health.ObservedAt).Round(time.Second))
	} else {
		desc += " • not yet polled"
	}
	return desc
}

// Dashboard is the terminal fleet view. It reads directory snapshots
// on a fixed cadence; the discovery and polling loops run elsewhere
// and the dashboard never mutates fleet state beyond requesting a
// rescan.
type Dashboard struct {
	directory *fleet.Directory
	rescan    func() // nil disables the manual rescan key

	list     list.Model
	spinner  spinner.Model
	help     help.Model
	keys     dashboardKeyMap
	scanning bool
	width    int
	height   int
}

// NewDashboard creates the dashboard model over a fleet directory.
// rescan, when non-nil, triggers an immediate discovery cycle and is
// called from its own goroutine.
func NewDashboard(directory *fleet.Directory, rescan func()) *Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(PrimaryColor).BorderLeftForeground(PrimaryColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(MutedColor).BorderLeftForeground(PrimaryColor)

	deviceList := list.New(nil, delegate, GetTerminalWidth(), 20)
	deviceList.SetShowTitle(false)
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)

	return &Dashboard{
		directory: directory,
		rescan:    rescan,
		list:      deviceList,
		spinner:   s,
		help:      help.New(),
		keys:      dashboardKeys,
	}
}

// Init implements tea.Model
func (d *Dashboard) Init() tea.Cmd {
	d.refresh()
	return tea.Batch(d.spinner.Tick, tickCmd())
}

// Update implements tea.Model
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.list.SetSize(msg.Width, msg.Height-6)
		return d, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, d.keys.Quit):
			return d, tea.Quit
		case key.Matches(msg, d.keys.Rescan):
			if d.rescan == nil || d.scanning {
				return d, nil
			}
			d.scanning = true
			rescan := d.rescan
			return d, func() tea.Msg {
				rescan()
				return rescanDoneMsg{}
			}
		}

	case tickMsg:
		d.refresh()
		return d, tickCmd()

	case rescanDoneMsg:
		d.scanning = false
		d.refresh()
		return d, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}

	var cmd tea.Cmd
	d.list, cmd = d.list.Update(msg)
	return d, cmd
}

// refresh rebuilds the list items from the current directory snapshot.
func (d *Dashboard) refresh() {
	snapshot := d.directory.Snapshot()
	items := make([]list.Item, 0, len(snapshot))
	for _, entry := range snapshot {
		items = append(items, deviceItem{entry: entry})
	}
	d.list.SetItems(items)
}

// View implements tea.Model
func (d *Dashboard) View() string {
	header := TitleStyle.Render("EweGo Fleet")
	count := CountStyle.Render(fmt.Sprintf("%d device(s) known", len(d.list.Items())))
	if d.scanning {
		count += ScanningStyle.Render("  " + d.spinner.View() + " rescanning...")
	}

	var body string
	if len(d.list.Items()) == 0 {
		body = EmptyStyle.Render(d.spinner.View() +
			" No devices yet. Waiting for discovery (mDNS + subnet scan)...")
	} else {
		body = d.list.View()
	}

	return header + "\n" + count + "\n\n" + body + "\n" + d.help.View(d.keys)
}

// Run starts the dashboard program and blocks until the operator quits.
func Run(directory *fleet.Directory, rescan func()) error {
	program := tea.NewProgram(NewDashboard(directory, rescan), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
