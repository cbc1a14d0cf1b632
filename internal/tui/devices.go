// SPDX-License-Identifier: MIT
//
// Package tui implements the terminal picker used to choose a capture
// device and a spectrum resolution.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spectrum/internal/audio"
	"spectrum/internal/config"
	"spectrum/internal/stream"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0A030"))
)

var keys = struct {
	Quit, Up, Down, Left, Right, Enter, Back key.Binding
}{
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Up:    key.NewBinding(key.WithKeys("up", "k")),
	Down:  key.NewBinding(key.WithKeys("down", "j")),
	Left:  key.NewBinding(key.WithKeys("left", "h")),
	Right: key.NewBinding(key.WithKeys("right", "l")),
	Enter: key.NewBinding(key.WithKeys("enter")),
	Back:  key.NewBinding(key.WithKeys("esc")),
}

// maxFramesToDrop bounds the drop count offered by the picker.
const maxFramesToDrop = 64

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// Selection is what the user picked.
type Selection struct {
	Device       audio.Device
	Resolution   int
	FramesToDrop int
}

// Apply writes the selection into cfg.
func (s Selection) Apply(cfg *config.Config) {
	cfg.Audio.InputDevice = s.Device.ID
	if s.Device.DefaultSampleRate > 0 {
		cfg.Audio.SampleRate = s.Device.DefaultSampleRate
	}
	cfg.Spectrum.Resolution = s.Resolution
	cfg.Spectrum.FramesToDrop = s.FramesToDrop
}

// DeviceFetcher lists the host's devices. audio.HostDevices in production.
type DeviceFetcher func() ([]audio.Device, error)

// PickerModel is the Bubble Tea model of the device and resolution picker.
type PickerModel struct {
	fetch         DeviceFetcher
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	status        string
	activeScreen  ScreenType

	// Spectrum options
	resolutionIndex int
	framesToDrop    int

	selection *Selection
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewPickerModel creates a picker that starts on the given resolution and
// drop count.
func NewPickerModel(fetch DeviceFetcher, resolution, framesToDrop int) PickerModel {
	m := PickerModel{
		fetch:        fetch,
		activeScreen: ListScreen,
		framesToDrop: min(max(framesToDrop, 0), maxFramesToDrop),
	}
	for i, r := range stream.Resolutions {
		if r == resolution {
			m.resolutionIndex = i
		}
	}
	return m
}

// Init initializes the Bubble Tea model
func (m PickerModel) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

// Update handles input and updates the model
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		// Start on the first device that can carry I/Q.
		for i, d := range m.devices {
			if d.IQCapable() {
				m.selectedIndex = i
				break
			}
		}
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, keys.Up):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
				m.status = ""

			case key.Matches(msg, keys.Down):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
				m.status = ""

			case key.Matches(msg, keys.Enter):
				if len(m.devices) == 0 {
					break
				}
				if d := m.devices[m.selectedIndex]; !d.IQCapable() {
					m.status = fmt.Sprintf("%s has %d input channel(s); I/Q needs %d", d.Name, d.MaxInputChannels, audio.IQChannels)
					break
				}
				m.status = ""
				m.activeScreen = ConfigScreen
			}

		case ConfigScreen:
			switch {
			case key.Matches(msg, keys.Back):
				m.activeScreen = ListScreen

			case key.Matches(msg, keys.Up):
				if m.resolutionIndex > 0 {
					m.resolutionIndex--
				}

			case key.Matches(msg, keys.Down):
				if m.resolutionIndex < len(stream.Resolutions)-1 {
					m.resolutionIndex++
				}

			case key.Matches(msg, keys.Left):
				if m.framesToDrop > 0 {
					m.framesToDrop--
				}

			case key.Matches(msg, keys.Right):
				if m.framesToDrop < maxFramesToDrop {
					m.framesToDrop++
				}

			case key.Matches(msg, keys.Enter):
				m.selection = &Selection{
					Device:       m.devices[m.selectedIndex],
					Resolution:   stream.Resolutions[m.resolutionIndex],
					FramesToDrop: m.framesToDrop,
				}
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// Selection returns the confirmed choice, or nil if the user quit.
func (m PickerModel) Selection() *Selection {
	return m.selection
}

func (m *PickerModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfigScreen {
		m.viewport.SetContent(m.renderDeviceConfig())
	} else {
		m.viewport.SetContent(m.renderDevices())
	}
}

// View renders the UI
func (m PickerModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("I/Q Capture Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Spectrum Configuration")
		help = infoStyle.Render("↑/↓: Resolution • ←/→: Frames to drop • Enter: Confirm • Esc: Back • q: Quit")
	}

	status := ""
	if m.status != "" {
		status = warnStyle.Render(m.status)
	}
	return fmt.Sprintf("%s\n\n%s\n%s\n%s", title, m.viewport.View(), status, help)
}

// renderDevices formats the device list
func (m PickerModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		deviceInfo := fmt.Sprintf("[%d] %s\n", device.ID, device.Name)
		deviceInfo += fmt.Sprintf("    Input channels: %d, Default sample rate: %.0f Hz\n",
			device.MaxInputChannels, device.DefaultSampleRate)

		switch {
		case i == m.selectedIndex:
			deviceInfo = highlightStyle.Render(deviceInfo)
		case !device.IQCapable():
			deviceInfo = dimStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderDeviceConfig formats the resolution screen. Each option shows the
// bin width at the device's default sample rate.
func (m PickerModel) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Device: %s (%.0f Hz)\n\n", device.Name, device.DefaultSampleRate)
	sb.WriteString("Resolution:\n")

	for i, size := range stream.Resolutions {
		marker := " "
		if i == m.resolutionIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %5d bins", marker, size)
		if device.DefaultSampleRate > 0 {
			line += fmt.Sprintf("  %8.2f Hz/bin", device.DefaultSampleRate/float64(size))
		}
		line += "\n"

		if i == m.resolutionIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}

	fmt.Fprintf(&sb, "\nFrames to drop: %d\n", m.framesToDrop)
	return sb.String()
}

// ErrCancelled is returned by Pick when the user quits without confirming.
var ErrCancelled = errors.New("device selection cancelled")

// Pick runs the picker full screen and returns the confirmed selection.
func Pick(fetch DeviceFetcher, resolution, framesToDrop int) (Selection, error) {
	p := tea.NewProgram(
		NewPickerModel(fetch, resolution, framesToDrop),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return Selection{}, err
	}

	m, ok := final.(PickerModel)
	if !ok || m.selection == nil {
		if ok && m.err != nil {
			return Selection{}, m.err
		}
		return Selection{}, ErrCancelled
	}
	return *m.selection, nil
}
