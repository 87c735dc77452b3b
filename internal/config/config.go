package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/go-tangra/go-tangra-hwcheck/internal/pcidb"
)

// Thresholds are usage percentages at which a value is highlighted.
type Thresholds struct {
	Warning  float64 `mapstructure:"warning" yaml:"warning"`
	Critical float64 `mapstructure:"critical" yaml:"critical"`
}

type ThresholdsConfig struct {
	CPU     Thresholds `mapstructure:"cpu_thresholds" yaml:"cpu_thresholds"`
	RAM     Thresholds `mapstructure:"ram_thresholds" yaml:"ram_thresholds"`
	Storage Thresholds `mapstructure:"storage_thresholds" yaml:"storage_thresholds"`
}

// Config holds the hwcheck configuration.
type Config struct {
	ThresholdsConfig `mapstructure:",squash" yaml:",inline"`

	PCIIDsPaths       []string      `mapstructure:"pci_ids_paths" yaml:"pci_ids_paths"`
	CPUSampleInterval time.Duration `mapstructure:"cpu_sample_interval" yaml:"cpu_sample_interval"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`

	DatabasePath  string        `mapstructure:"database" yaml:"database"`
	Listen        string        `mapstructure:"listen" yaml:"listen"`
	ApiSecret     string        `mapstructure:"api_secret" yaml:"api_secret"`
	RetentionDays int           `mapstructure:"retention_days" yaml:"retention_days"`
	PurgeInterval time.Duration `mapstructure:"purge_interval" yaml:"purge_interval"`
	LogLevel      string        `mapstructure:"log_level" yaml:"log_level"`

	// SnapshotInterval makes serve archive a snapshot periodically; 0 disables.
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval" yaml:"snapshot_interval"`

	// File is the config file that was read, "" when none was found.
	File string `mapstructure:"-" yaml:"-"`
}

func setDefaults(v *viper.Viper) {
	for _, key := range []string{"cpu_thresholds", "ram_thresholds", "storage_thresholds"} {
		v.SetDefault(key+".warning", 70.0)
		v.SetDefault(key+".critical", 90.0)
	}
	v.SetDefault("pci_ids_paths", pcidb.DefaultPaths)
	v.SetDefault("cpu_sample_interval", "200ms")
	v.SetDefault("refresh_interval", "1s")
	v.SetDefault("poll_interval", "250ms")
	v.SetDefault("database", "hwcheck.db")
	v.SetDefault("listen", ":9560")
	v.SetDefault("api_secret", "")
	v.SetDefault("retention_days", 0)
	v.SetDefault("purge_interval", "24h")
	v.SetDefault("snapshot_interval", "0s")
	v.SetDefault("log_level", "warn")
}

// Load reads configuration from file and environment. An explicitly named
// file must exist and parse; a searched-for file is optional.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("hwcheck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "hwcheck"))
		}
		v.AddConfigPath("/etc/hwcheck")
	}

	setDefaults(v)

	v.SetEnvPrefix("HWCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Write saves cfg as YAML. It refuses to overwrite an existing file unless
// force is set.
func Write(path string, cfg *Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	var buf bytes.Buffer
	if err := Encode(&buf, cfg); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Encode writes cfg to w as YAML.
func Encode(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return enc.Close()
}
