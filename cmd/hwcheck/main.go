package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-hwcheck/internal/codec"
	"github.com/go-tangra/go-tangra-hwcheck/internal/collector"
	"github.com/go-tangra/go-tangra-hwcheck/internal/config"
	"github.com/go-tangra/go-tangra-hwcheck/internal/convert"
	"github.com/go-tangra/go-tangra-hwcheck/internal/live"
	"github.com/go-tangra/go-tangra-hwcheck/internal/pcidb"
	"github.com/go-tangra/go-tangra-hwcheck/internal/render"
	"github.com/go-tangra/go-tangra-hwcheck/internal/store"
)

var (
	version    = "dev"
	commitHash = "unknown"
	buildDate  = "unknown"
)

// Persistent flags.
var (
	cfgFile  string
	database string
	logLevel string
	logFile  string
)

// Root command flags.
var (
	format     string
	outputFile string
	tui        bool
	save       bool
	full       bool
)

var sections = map[string]render.Section{
	"cpu":     render.SectionCPU,
	"ram":     render.SectionRAM,
	"storage": render.SectionStorage,
	"network": render.SectionNetwork,
	"usb":     render.SectionUSB,
	"pci":     render.SectionPCI,
	"health":  render.SectionHealth,
}

var sectionOrder = []string{"cpu", "ram", "storage", "network", "usb", "pci", "health"}

var rootCmd = &cobra.Command{
	Use:   "hwcheck",
	Short: "hwcheck - hardware inventory for the local host",
	Long: `hwcheck collects a snapshot of the local machine's hardware (CPU, memory,
storage, network, USB and PCI devices, motherboard and battery) and prints it
as tables, JSON or YAML, or shows it on a live terminal dashboard.

Snapshots can be archived in a local SQLite database and served over HTTP.`,
	SilenceUsage: true,
	RunE:         runRoot,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hwcheck %s (commit: %s, built: %s)\n", version, commitHash, buildDate)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default: hwcheck.yaml in ., ./configs, ~/.config/hwcheck, /etc/hwcheck)")
	pf.StringVar(&database, "database", "", "SQLite report archive path (default hwcheck.db)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default warn)")
	pf.StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")

	f := rootCmd.Flags()
	f.StringVarP(&format, "format", "f", "table", "output format: table, json or yaml")
	f.StringVarP(&outputFile, "output", "o", "", "write output to file instead of stdout")
	f.BoolVar(&tui, "tui", false, "show the live dashboard")
	f.BoolVar(&save, "save", false, "archive the collected report")
	f.BoolVar(&full, "full", false, "print every section")
	f.BoolVar(&full, "all", false, "alias for --full")
	for _, name := range sectionOrder {
		f.Bool(name, false, "print the "+name+" section")
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies persistent flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if database != "" {
		cfg.DatabasePath = database
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger. Without --log-file, quiet sends logs
// to io.Discard so they cannot draw over the dashboard.
func newLogger(cfg *config.Config, quiet bool) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	case quiet:
		w = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if cfg.File != "" {
		logger.Debug("config loaded", "file", cfg.File)
	}
	return logger, closeFn, nil
}

// newCollector loads the PCI name database and builds a collector for the
// live host.
func newCollector(cfg *config.Config, logger *slog.Logger) *collector.Collector {
	db, path := pcidb.Load(cfg.PCIIDsPaths...)
	if path == "" {
		logger.Warn("pci.ids not found, PCI names will be shown as ids", "paths", cfg.PCIIDsPaths)
	} else {
		logger.Info("pci.ids loaded", "path", path, "entries", db.Len())
	}
	return collector.New(db, cfg.CPUSampleInterval)
}

func collect(ctx context.Context, c *collector.Collector, logger *slog.Logger) collector.HardwareReport {
	start := time.Now()
	report := c.Collect(ctx)
	logger.Info("report collected",
		"hostname", report.Hostname,
		"duration", time.Since(start),
		"cpus", len(report.CPU),
		"volumes", len(report.Storage),
		"pci", len(report.PCI),
		"usb", len(report.USB))
	return report
}

func archive(ctx context.Context, cfg *config.Config, r *collector.HardwareReport, logger *slog.Logger) error {
	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rec, err := convert.ReportToRecord(r)
	if err != nil {
		return err
	}
	id, _, err := db.Insert(ctx, rec)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	logger.Info("report archived", "id", id, "snapshot_id", rec.SnapshotID, "database", cfg.DatabasePath)
	return nil
}

func selectedSections(cmd *cobra.Command) render.Section {
	if full {
		return render.SectionsFull
	}
	var s render.Section
	for _, name := range sectionOrder {
		if on, _ := cmd.Flags().GetBool(name); on {
			s |= sections[name]
		}
	}
	if s == 0 {
		return render.SectionsDefault
	}
	return s
}

// openOutput returns stdout, or the file named by --output.
func openOutput() (io.Writer, func() error, error) {
	if outputFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, tui)
	if err != nil {
		return err
	}
	defer closeLog()

	outFormat, err := codec.ParseFormat(format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c := newCollector(cfg, logger)
	report := collect(ctx, c, logger)

	if save {
		if err := archive(ctx, cfg, &report, logger); err != nil {
			return err
		}
	}

	if tui {
		session := live.NewSession(report, c.Sampler, cfg.RefreshInterval, time.Now())
		if err := live.Run(ctx, session, cfg.PollInterval); err != nil {
			return fmt.Errorf("run dashboard: %w", err)
		}
		return nil
	}

	w, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	if err := writeReport(w, outFormat, cfg, &report, selectedSections(cmd)); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	if outputFile != "" {
		fmt.Fprintf(os.Stderr, "report written to %s\n", outputFile)
	}
	return nil
}

func writeReport(w io.Writer, f codec.Format, cfg *config.Config, r *collector.HardwareReport, s render.Section) error {
	if f == codec.FormatTable {
		return render.NewPrinter(w, cfg.ThresholdsConfig).Print(r, s)
	}
	return codec.Encode(w, f, r)
}
