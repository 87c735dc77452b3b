package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-hwcheck/internal/codec"
	"github.com/go-tangra/go-tangra-hwcheck/internal/config"
	"github.com/go-tangra/go-tangra-hwcheck/internal/convert"
	"github.com/go-tangra/go-tangra-hwcheck/internal/render"
	"github.com/go-tangra/go-tangra-hwcheck/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the report archive",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived reports, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an archived report",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived report",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Purge reports older than the specified number of days",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPurge,
}

var (
	historyFormat   string
	historyHostname string
	historyPage     int
	historyPageSize int
	purgeDays       int
)

func init() {
	historyListCmd.Flags().StringVarP(&historyFormat, "format", "f", "table", "output format: table, json or yaml")
	historyListCmd.Flags().StringVar(&historyHostname, "hostname", "", "only list reports from this host")
	historyListCmd.Flags().IntVar(&historyPage, "page", 1, "page number")
	historyListCmd.Flags().IntVar(&historyPageSize, "page-size", store.DefaultPageSize, "reports per page")

	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "table", "output format: table, json or yaml")

	historyPurgeCmd.Flags().IntVar(&purgeDays, "days", 90, "purge reports older than this many days")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyPurgeCmd)
}

// withStore loads config and opens the archive for the duration of fn.
func withStore(ctx context.Context, fn func(context.Context, *config.Config, *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, closeLog, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	return fn(ctx, cfg, db)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid report id %q", s)
	}
	return id, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	f, err := codec.ParseFormat(historyFormat)
	if err != nil {
		return err
	}
	return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *store.Store) error {
		records, total, err := db.List(ctx, store.ListFilter{
			Hostname: historyHostname,
			Page:     historyPage,
			PageSize: historyPageSize,
		})
		if err != nil {
			return err
		}
		summaries := make([]convert.ReportSummary, len(records))
		for i := range records {
			summaries[i] = convert.RecordToSummary(&records[i])
		}

		if f == codec.FormatTable {
			return render.NewPrinter(cmd.OutOrStdout(), cfg.ThresholdsConfig).PrintHistory(summaries, total)
		}
		return codec.Encode(cmd.OutOrStdout(), f, summaries)
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	f, err := codec.ParseFormat(historyFormat)
	if err != nil {
		return err
	}
	return withStore(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *store.Store) error {
		rec, err := db.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get report %d: %w", id, err)
		}
		stored, err := convert.RecordToStored(rec)
		if err != nil {
			return err
		}

		if f == codec.FormatTable {
			fmt.Fprintf(cmd.OutOrStdout(), "Report %d (%s), stored %s\n", stored.ID, stored.SnapshotID, stored.StoredAt.Local().Format(time.DateTime))
			return render.NewPrinter(cmd.OutOrStdout(), cfg.ThresholdsConfig).Print(stored.Report, render.SectionSummary|render.SectionsFull)
		}
		return codec.Encode(cmd.OutOrStdout(), f, stored)
	})
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, db *store.Store) error {
		if err := db.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete report %d: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %d\n", id)
		return nil
	})
}

func runHistoryPurge(cmd *cobra.Command, args []string) error {
	if purgeDays < 0 {
		return fmt.Errorf("--days must not be negative")
	}
	return withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, db *store.Store) error {
		n, err := db.Purge(ctx, time.Duration(purgeDays)*24*time.Hour)
		if err != nil {
			return fmt.Errorf("purge: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %d reports older than %d days\n", n, purgeDays)
		return nil
	})
}
