// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/gpuwatch/lib/schema"
)

// DefaultBarWidth and DefaultHostWidth size the table when the caller
// leaves TableOptions zero.
const (
	DefaultBarWidth  = 10
	DefaultHostWidth = 20
)

// TableOptions controls the table layout.
type TableOptions struct {
	// BarWidth is the number of cells in each device bar.
	BarWidth int

	// HostWidth is the width of the host column. Longer names are
	// truncated with an ellipsis.
	HostWidth int

	// Processes appends a per-process listing after the table.
	Processes bool

	// Profile is the color profile for styling. The zero value is
	// termenv.TrueColor; pass termenv.Ascii for plain text.
	Profile termenv.Profile
}

type tableStyles struct {
	used     lipgloss.Style
	free     lipgloss.Style
	noData   lipgloss.Style
	header   lipgloss.Style
	failure  lipgloss.Style
	username lipgloss.Style
}

func newTableStyles(w io.Writer, profile termenv.Profile) tableStyles {
	// SetColorProfile is required: lipgloss re-detects the profile from
	// the environment unless it is set explicitly.
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return tableStyles{
		used:     renderer.NewStyle().Foreground(lipgloss.Color("1")),
		free:     renderer.NewStyle().Foreground(lipgloss.Color("2")),
		noData:   renderer.NewStyle().Faint(true),
		header:   renderer.NewStyle().Bold(true),
		failure:  renderer.NewStyle().Faint(true),
		username: renderer.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// Table writes the human-readable overview of snapshot.
func Table(w io.Writer, snapshot schema.FleetSnapshot, options TableOptions) error {
	barWidth := positiveOr(options.BarWidth, DefaultBarWidth)
	hostWidth := positiveOr(options.HostWidth, DefaultHostWidth)
	styles := newTableStyles(w, options.Profile)

	buffered := bufio.NewWriter(w)

	maxDevices := snapshot.MaxDevices()
	deviceRange := "no devices"
	if maxDevices > 0 {
		deviceRange = fmt.Sprintf("%s0 -> %s%d...", schema.DeviceIDPrefix, schema.DeviceIDPrefix, maxDevices-1)
	}
	fmt.Fprintln(buffered, styles.header.Render(padHost("Hosts", hostWidth))+deviceRange)

	for _, host := range snapshot.Hosts {
		var row strings.Builder
		row.WriteString(padHost(host.Host, hostWidth))
		if len(host.Report) == 0 {
			row.WriteString(styles.noData.Render("no data"))
		}
		for _, deviceID := range host.Report.DeviceIDs() {
			row.WriteString(bar(host.Report[deviceID].Memory, barWidth, styles))
		}
		fmt.Fprintln(buffered, row.String())
	}

	if options.Processes {
		writeProcesses(buffered, snapshot, styles)
	}
	return buffered.Flush()
}

// bar draws |###-------| for one device. The used cell count is
// used/total scaled to width and rounded half to even; the rest of the
// bar is free cells, so every bar is exactly width cells wide.
func bar(memory schema.MemoryUsage, width int, styles tableStyles) string {
	usedCells := int(math.RoundToEven(memory.UsedFraction() * float64(width)))
	freeCells := width - usedCells
	return "|" +
		styles.used.Render(strings.Repeat("#", usedCells)) +
		styles.free.Render(strings.Repeat("-", freeCells)) +
		"|"
}

// writeProcesses lists every process under its host and device. Hosts
// with an error are listed with the error instead.
func writeProcesses(w io.Writer, snapshot schema.FleetSnapshot, styles tableStyles) {
	fmt.Fprintln(w)
	for _, host := range snapshot.Hosts {
		if host.Error != "" {
			fmt.Fprintf(w, "%s  %s\n", host.Host, styles.failure.Render(host.Error))
			continue
		}
		var lines []string
		for _, deviceID := range host.Report.DeviceIDs() {
			for _, process := range host.Report[deviceID].Processes {
				user := process.User
				if user == "" {
					user = "?"
				}
				line := fmt.Sprintf("  %-8s pid %-8s %8d MiB  %s", deviceID, process.PID, process.UsedMemory, styles.username.Render(user))
				if process.Name != "" {
					line += "  " + process.Name
				}
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintln(w, host.Host)
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
	}
}

// padHost pads or truncates name to exactly width display cells.
func padHost(name string, width int) string {
	if ansi.StringWidth(name) > width {
		name = ansi.Truncate(name, width, "…")
	}
	return name + strings.Repeat(" ", max(width-ansi.StringWidth(name), 0))
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
