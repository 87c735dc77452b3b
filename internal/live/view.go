package live

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/go-tangra/go-tangra-hwcheck/internal/collector"
	"github.com/go-tangra/go-tangra-hwcheck/internal/render"
)

// Theme is the dashboard palette.
type Theme struct {
	Title     lipgloss.Color
	ActiveTab lipgloss.Color
	FaintText lipgloss.Color
	Border    lipgloss.Color
	Header    lipgloss.Color
}

var DefaultTheme = Theme{
	Title:     lipgloss.Color("51"),
	ActiveTab: lipgloss.Color("220"),
	FaintText: lipgloss.Color("245"),
	Border:    lipgloss.Color("240"),
	Header:    lipgloss.Color("220"),
}

const (
	defaultWidth   = 100
	overviewCores  = 8
	overviewVolume = 5
)

// Render draws the whole dashboard. It reads s and nothing else.
func Render(s *Session, theme Theme, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	r := s.Report()

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Title).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Width(width - 2).
		Align(lipgloss.Center).
		Render(fmt.Sprintf("hwcheck live | Host: %s | OS: %s %s", r.Hostname, r.OSName, r.OSVersion))

	var content string
	switch s.Tab() {
	case TabOverview:
		content = renderOverview(r, theme, width)
	case TabCPUMemory:
		content = renderCPUMemory(r, theme, width)
	case TabStorageNetwork:
		content = renderStorageNetwork(r, theme, width)
	case TabPeripherals:
		content = renderPeripherals(r, theme, width)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		renderTabs(s.Tab(), theme),
		content,
		renderFooter(r, theme, width),
	)
}

func renderTabs(active Tab, theme Theme) string {
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ActiveTab)
	inactiveStyle := lipgloss.NewStyle().Foreground(theme.FaintText)
	sep := lipgloss.NewStyle().Foreground(theme.Border).Render("│")

	parts := make([]string, 0, TabCount)
	for i, title := range tabTitles {
		if Tab(i) == active {
			parts = append(parts, activeStyle.Render(title))
		} else {
			parts = append(parts, inactiveStyle.Render(title))
		}
	}
	return strings.Join(parts, sep)
}

func pane(title, body string, theme Theme, width int) string {
	titleLine := lipgloss.NewStyle().Bold(true).Foreground(theme.Header).Render(title)
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		Width(width - 2).
		Render(titleLine + "\n" + body)
}

func split(width int, leftPercent int) (int, int) {
	left := width * leftPercent / 100
	return left, width - left
}

func renderTable(theme Theme, headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.Header).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func coreLines(cores []collector.CPUCore, limit int) string {
	var b strings.Builder
	for i, c := range cores {
		if limit > 0 && i >= limit {
			b.WriteString(" ... (see CPU & RAM tab for more)\n")
			break
		}
		fmt.Fprintf(&b, " Core %d: %5.1f%% | %d MHz\n", i, c.Usage, c.Frequency)
	}
	return b.String()
}

func renderOverview(r *collector.HardwareReport, theme Theme, width int) string {
	left, right := split(width, 40)

	system := fmt.Sprintf(" OS: %s %s\n Kernel: %s\n Uptime: %s\n",
		r.OSName, r.OSVersion, r.KernelVersion, render.FormatUptime(r.Uptime))

	var cpu strings.Builder
	if len(r.CPU) > 0 {
		fmt.Fprintf(&cpu, " Model: %s\n Physical Cores: %d\n\n", r.CPU[0].Model, r.CPU[0].Cores)
	}
	cpu.WriteString(coreLines(r.CPU, overviewCores))

	ram := fmt.Sprintf(" %s\n %s / %s used\n Free: %s\n",
		gauge(r.RAM.Used, r.RAM.Total, left-8),
		humanize.IBytes(r.RAM.Used), humanize.IBytes(r.RAM.Total), humanize.IBytes(r.RAM.Free))

	rows := [][]string{}
	for i, v := range r.Storage {
		if i >= overviewVolume {
			break
		}
		rows = append(rows, []string{v.MountPoint, v.Filesystem, humanize.IBytes(v.Total), render.Percent(v.Used, v.Total)})
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		pane(" System Summary ", system, theme, left),
		pane(" CPU Info ", cpu.String(), theme, right))
	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		pane(" RAM Usage ", ram, theme, left),
		pane(" Storage (Top 5) ", renderTable(theme, []string{"Mount", "FS", "Total", "Used"}, rows), theme, right))
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func renderCPUMemory(r *collector.HardwareReport, theme Theme, width int) string {
	left, right := split(width, 50)

	var cpu strings.Builder
	if len(r.CPU) > 0 {
		c := r.CPU[0]
		fmt.Fprintf(&cpu, " Model: %s\n Brand: %s\n Vendor: %s\n Cores: %d\n\n", c.Model, c.Brand, c.VendorID, c.Cores)
		fmt.Fprintf(&cpu, " Caches:\n L1: %s\n L2: %s\n L3: %s\n\n", orNA(c.L1Cache), orNA(c.L2Cache), orNA(c.L3Cache))
	}
	cpu.WriteString(coreLines(r.CPU, 0))

	var ram strings.Builder
	fmt.Fprintf(&ram, " Swap Total: %s\n Swap Used:  %s\n\n DIMM Details:\n",
		humanize.IBytes(r.RAM.SwapTotal), humanize.IBytes(r.RAM.SwapUsed))
	if len(r.RAM.Sticks) == 0 {
		ram.WriteString(" (no SMBIOS data, run as root)\n")
	}
	for i, m := range r.RAM.Sticks {
		speed := "Unknown"
		if m.Speed != nil {
			speed = fmt.Sprintf("%d MT/s", *m.Speed)
		}
		fmt.Fprintf(&ram, " Slot %d:\n   Manufacturer: %s\n   Part Number:  %s\n   Serial Num:   %s\n   Speed:        %s\n\n",
			i, m.Manufacturer, orUnknown(m.PartNumber), orUnknown(m.SerialNumber), speed)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		pane(" CPU Details ", cpu.String(), theme, left),
		pane(" RAM & Swap Details ", ram.String(), theme, right))
}

func renderStorageNetwork(r *collector.HardwareReport, theme Theme, width int) string {
	disks := make([][]string, 0, len(r.Storage))
	for _, v := range r.Storage {
		disks = append(disks, []string{
			v.Name, v.MountPoint, v.Filesystem, humanize.IBytes(v.Total), render.Percent(v.Used, v.Total),
			orUnknown(v.Interface), orUnknown(v.DiskType), orUnknown(v.ModelName),
		})
	}

	nets := make([][]string, 0, len(r.Network))
	for _, n := range r.Network {
		nets = append(nets, []string{n.Name, n.MACAddress, humanize.IBytes(n.Received), humanize.IBytes(n.Transmitted)})
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		pane(" Storage Details ", renderTable(theme,
			[]string{"Disk", "Mount", "FS", "Total", "Used", "Interface", "Type", "Model"}, disks), theme, width),
		pane(" Network Interfaces ", renderTable(theme,
			[]string{"Interface", "MAC Address", "RX", "TX"}, nets), theme, width))
}

func renderPeripherals(r *collector.HardwareReport, theme Theme, width int) string {
	left, right := split(width, 50)

	pci := make([][]string, 0, len(r.PCI))
	for _, d := range r.PCI {
		pci = append(pci, []string{d.Slot, render.OrHex(d.VendorName, d.VendorID), render.OrHex(d.DeviceName, d.DeviceID)})
	}

	usb := make([][]string, 0, len(r.USB))
	for _, d := range r.USB {
		usb = append(usb, []string{
			fmt.Sprintf("%03d:%03d", d.Bus, d.Address),
			render.OrHex(d.Manufacturer, d.VendorID),
			render.OrHex(d.Product, d.ProductID),
		})
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		pane(" PCI Devices ", renderTable(theme, []string{"Slot", "Vendor", "Device"}, pci), theme, left),
		pane(" USB Devices ", renderTable(theme, []string{"Bus:Addr", "Vendor", "Product"}, usb), theme, right))
}

func renderFooter(r *collector.HardwareReport, theme Theme, width int) string {
	var b strings.Builder
	if mb := r.Motherboard; mb != nil {
		fmt.Fprintf(&b, " Motherboard: %s %s | BIOS: %s (%s)\n", mb.Vendor, mb.Product, mb.BIOSVersion, mb.BIOSDate)
	}
	for _, bat := range r.Battery {
		fmt.Fprintf(&b, " Battery %s: %d%% (%s)\n", bat.Name, bat.Capacity, bat.Status)
	}
	if b.Len() == 0 {
		b.WriteString(" No motherboard or battery information\n")
	}
	help := lipgloss.NewStyle().Foreground(theme.FaintText).
		Render(" q/esc quit | ←/→ tab | 1-4 jump")
	return pane(" System Health ", b.String()+help, theme, width)
}

func gauge(used, total uint64, width int) string {
	if width < 10 {
		width = 10
	}
	filled := 0
	if total > 0 {
		filled = int(float64(used) / float64(total) * float64(width))
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "] " + render.Percent(used, total)
}

func orNA(s *string) string {
	if s == nil {
		return "N/A"
	}
	return *s
}

func orUnknown(s *string) string {
	if s == nil {
		return "Unknown"
	}
	return *s
}
