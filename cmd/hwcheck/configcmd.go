package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-hwcheck/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration (default ./hwcheck.yaml)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := "hwcheck.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.Write(path, config.Default(), configForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.File != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", cfg.File)
	}
	return config.Encode(cmd.OutOrStdout(), cfg)
}
