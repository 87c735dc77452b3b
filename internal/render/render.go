// Package render prints a hardware report as terminal tables.
package render

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/go-tangra/go-tangra-hwcheck/internal/collector"
	"github.com/go-tangra/go-tangra-hwcheck/internal/config"
	"github.com/go-tangra/go-tangra-hwcheck/internal/convert"
)

// Section selects one block of the table output.
type Section uint

const (
	SectionSummary Section = 1 << iota
	SectionCPU
	SectionRAM
	SectionStorage
	SectionNetwork
	SectionUSB
	SectionPCI
	SectionHealth

	// SectionsDefault is printed when no section is requested.
	SectionsDefault = SectionSummary | SectionCPU | SectionRAM | SectionStorage | SectionNetwork
	// SectionsFull is every section except the summary.
	SectionsFull = SectionCPU | SectionRAM | SectionStorage | SectionNetwork | SectionUSB | SectionPCI | SectionHealth
)

const mib = 1024 * 1024
const gib = 1024 * mib

// Printer writes report tables with threshold colouring. Colour support is
// detected from the destination writer.
type Printer struct {
	w          io.Writer
	thresholds config.ThresholdsConfig
	re         *lipgloss.Renderer
}

func NewPrinter(w io.Writer, thresholds config.ThresholdsConfig) *Printer {
	return &Printer{w: w, thresholds: thresholds, re: lipgloss.NewRenderer(w)}
}

// Print writes the requested sections in a fixed order.
func (p *Printer) Print(r *collector.HardwareReport, sections Section) error {
	steps := []struct {
		section Section
		print   func(*collector.HardwareReport) error
	}{
		{SectionSummary, p.summary},
		{SectionCPU, p.cpu},
		{SectionRAM, p.ram},
		{SectionStorage, p.storage},
		{SectionNetwork, p.network},
		{SectionUSB, p.usb},
		{SectionPCI, p.pci},
		{SectionHealth, p.health},
	}
	for _, s := range steps {
		if sections&s.section == 0 {
			continue
		}
		if err := s.print(r); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) title(s string) error {
	_, err := fmt.Fprintf(p.w, "\n%s\n", p.re.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Render(s))
	return err
}

// colouredCell marks a cell whose colour depends on a usage value.
type colouredCell struct {
	row, col int
	color    lipgloss.Color
}

func (p *Printer) table(title string, headers []string, rows [][]string, colours []colouredCell) error {
	if err := p.title(title); err != nil {
		return err
	}

	base := p.re.NewStyle().Padding(0, 1)
	header := base.Bold(true)
	lookup := make(map[[2]int]lipgloss.Color, len(colours))
	for _, c := range colours {
		lookup[[2]int{c.row, c.col}] = c.color
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.re.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if c, ok := lookup[[2]int{row, col}]; ok {
				return base.Foreground(c)
			}
			return base
		})

	_, err := fmt.Fprintln(p.w, t.String())
	return err
}

func (p *Printer) summary(r *collector.HardwareReport) error {
	return p.table("System Summary",
		[]string{"Hostname", "OS", "Kernel", "Uptime"},
		[][]string{{r.Hostname, r.OSName + " " + r.OSVersion, r.KernelVersion, FormatUptime(r.Uptime)}},
		[]colouredCell{{row: 0, col: 0, color: lipgloss.Color("5")}})
}

func (p *Printer) cpu(r *collector.HardwareReport) error {
	rows := make([][]string, 0, len(r.CPU))
	var colours []colouredCell
	for i, c := range r.CPU {
		rows = append(rows, []string{strconv.Itoa(i), c.Model, strconv.FormatUint(c.Frequency, 10), fmt.Sprintf("%.1f", c.Usage)})
		colours = append(colours, colouredCell{row: i, col: 3, color: thresholdColor(c.Usage, p.thresholds.CPU)})
	}
	return p.table("CPU Information", []string{"Core", "Model", "Frequency (MHz)", "Usage (%)"}, rows, colours)
}

func (p *Printer) ram(r *collector.HardwareReport) error {
	usage := ratio(r.RAM.Used, r.RAM.Total)
	swapFree := uint64(0)
	if r.RAM.SwapTotal > r.RAM.SwapUsed {
		swapFree = r.RAM.SwapTotal - r.RAM.SwapUsed
	}
	rows := [][]string{
		{"Main Memory", mibString(r.RAM.Total), mibString(r.RAM.Used), mibString(r.RAM.Free), fmt.Sprintf("%.1f", usage)},
		{"Swap", mibString(r.RAM.SwapTotal), mibString(r.RAM.SwapUsed), mibString(swapFree), fmt.Sprintf("%.1f", ratio(r.RAM.SwapUsed, r.RAM.SwapTotal))},
	}
	if err := p.table("RAM Information",
		[]string{"Type", "Total (MiB)", "Used (MiB)", "Free (MiB)", "Usage (%)"},
		rows,
		[]colouredCell{{row: 0, col: 4, color: thresholdColor(usage, p.thresholds.RAM)}}); err != nil {
		return err
	}

	if len(r.RAM.Sticks) == 0 {
		return nil
	}
	sticks := make([][]string, 0, len(r.RAM.Sticks))
	for i, m := range r.RAM.Sticks {
		speed := "Unknown"
		if m.Speed != nil {
			speed = fmt.Sprintf("%d MT/s", *m.Speed)
		}
		sticks = append(sticks, []string{strconv.Itoa(i), m.Manufacturer, orUnknown(m.PartNumber), orUnknown(m.SerialNumber), speed})
	}
	return p.table("Memory Modules", []string{"Slot", "Manufacturer", "Part Number", "Serial", "Speed"}, sticks, nil)
}

func (p *Printer) storage(r *collector.HardwareReport) error {
	rows := make([][]string, 0, len(r.Storage))
	var colours []colouredCell
	for i, v := range r.Storage {
		usage := ratio(v.Used, v.Total)
		rows = append(rows, []string{
			v.Name, v.MountPoint, v.Filesystem,
			fmt.Sprintf("%.1f", float64(v.Total)/gib),
			fmt.Sprintf("%.1f", float64(v.Used)/gib),
			fmt.Sprintf("%.1f", usage),
			orUnknown(v.Interface), orUnknown(v.ModelName),
		})
		colours = append(colours, colouredCell{row: i, col: 5, color: thresholdColor(usage, p.thresholds.Storage)})
	}
	return p.table("Storage Information",
		[]string{"Name", "Mount", "FS", "Total (GiB)", "Used (GiB)", "Usage (%)", "Interface", "Model"},
		rows, colours)
}

func (p *Printer) network(r *collector.HardwareReport) error {
	rows := make([][]string, 0, len(r.Network))
	for _, n := range r.Network {
		rows = append(rows, []string{
			n.Name, n.MACAddress,
			fmt.Sprintf("%.2f", float64(n.Received)/mib),
			fmt.Sprintf("%.2f", float64(n.Transmitted)/mib),
		})
	}
	return p.table("Network Interfaces", []string{"Interface", "MAC", "Received (MiB)", "Transmitted (MiB)"}, rows, nil)
}

func (p *Printer) usb(r *collector.HardwareReport) error {
	rows := make([][]string, 0, len(r.USB))
	for _, d := range r.USB {
		rows = append(rows, []string{
			fmt.Sprintf("%03d", d.Bus), fmt.Sprintf("%03d", d.Address),
			fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID),
			orUnknown(d.Manufacturer), orUnknown(d.Product),
		})
	}
	return p.table("USB Devices", []string{"Bus", "Address", "ID", "Manufacturer", "Product"}, rows, nil)
}

func (p *Printer) pci(r *collector.HardwareReport) error {
	rows := make([][]string, 0, len(r.PCI))
	for _, d := range r.PCI {
		rows = append(rows, []string{
			d.Slot,
			OrHex(d.VendorName, d.VendorID),
			OrHex(d.DeviceName, d.DeviceID),
			orUnknown(d.ClassName),
		})
	}
	return p.table("PCI Devices", []string{"Slot", "Vendor", "Device", "Class"}, rows, nil)
}

func (p *Printer) health(r *collector.HardwareReport) error {
	if mb := r.Motherboard; mb != nil {
		if err := p.table("Motherboard",
			[]string{"Vendor", "Product", "BIOS Vendor", "BIOS Version", "BIOS Date"},
			[][]string{{mb.Vendor, mb.Product, mb.BIOSVendor, mb.BIOSVersion, mb.BIOSDate}}, nil); err != nil {
			return err
		}
	}

	if len(r.Battery) == 0 {
		_, err := fmt.Fprintln(p.w, "\nNo battery detected.")
		return err
	}
	rows := make([][]string, 0, len(r.Battery))
	for _, b := range r.Battery {
		rows = append(rows, []string{b.Name, b.Status, fmt.Sprintf("%d%%", b.Capacity)})
	}
	return p.table("Battery", []string{"Name", "Status", "Capacity"}, rows, nil)
}

// PrintHistory writes one row per archived report and a page footer.
func (p *Printer) PrintHistory(summaries []convert.ReportSummary, total int) error {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Hostname,
			s.OSName,
			s.KernelVersion,
			s.CollectedAt.Local().Format(time.DateTime),
			s.SnapshotID,
		})
	}
	if err := p.table("Report History", []string{"ID", "Hostname", "OS", "Kernel", "Collected", "Snapshot"}, rows, nil); err != nil {
		return err
	}
	_, err := fmt.Fprintf(p.w, "%d of %d reports\n", len(summaries), total)
	return err
}

// thresholdColor is green up to warning, yellow up to critical and red above.
func thresholdColor(usage float64, t config.Thresholds) lipgloss.Color {
	switch {
	case usage > t.Critical:
		return lipgloss.Color("1")
	case usage > t.Warning:
		return lipgloss.Color("3")
	}
	return lipgloss.Color("2")
}

func ratio(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}

func mibString(b uint64) string { return strconv.FormatUint(b/mib, 10) }

// Percent formats used/total as "12.3%".
func Percent(used, total uint64) string {
	return fmt.Sprintf("%.1f%%", ratio(used, total))
}

// FormatUptime renders seconds as "Xd Yh Zm", leaving off leading zero
// units.
func FormatUptime(seconds uint64) string {
	days := seconds / 86400
	hours := seconds % 86400 / 3600
	minutes := seconds % 3600 / 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// OrHex returns the name, or the id as 0x%04x when the name is unknown.
func OrHex(name *string, id uint16) string {
	if name == nil {
		return fmt.Sprintf("0x%04x", id)
	}
	return *name
}

func orUnknown(s *string) string {
	if s == nil {
		return "Unknown"
	}
	return *s
}
