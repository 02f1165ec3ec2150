package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/hedisam/brunosync/lib/ipc"
	"github.com/hedisam/brunosync/server/internal/diagnostics"
	"github.com/hedisam/brunosync/server/internal/sampler"
	"github.com/hedisam/brunosync/server/internal/workspace"
)

// Config is the daemon configuration. It is read from an optional YAML file; flags given on the command line win.
type Config struct {
	DataDir        string                 `yaml:"data_dir"`
	Socket         string                 `yaml:"socket"`
	Journal        string                 `yaml:"journal"`
	Capacities     diagnostics.Capacities `yaml:"capacities"`
	SampleInterval time.Duration          `yaml:"sample_interval"`
	DebounceWindow time.Duration          `yaml:"debounce_window"`
	Workers        uint                   `yaml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:        ipc.DefaultDataDir(),
		Capacities:     diagnostics.DefaultCapacities,
		SampleInterval: sampler.DefaultInterval,
		DebounceWindow: workspace.DefaultDebounceWindow,
		Workers:        uint(runtime.NumCPU()),
	}
}

// LoadConfig reads path over the defaults. Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Override copies the flags that were set explicitly into cfg.
func (cfg *Config) Override(flags *pflag.FlagSet, opts *Options) {
	if flags.Changed("data-dir") {
		cfg.DataDir = opts.DataDir
	}
	if flags.Changed("socket") {
		cfg.Socket = opts.Socket
	}
	if flags.Changed("journal") {
		cfg.Journal = opts.Journal
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if flags.Changed("sample-interval") {
		cfg.SampleInterval = opts.SampleInterval
	}
	if flags.Changed("debounce-window") {
		cfg.DebounceWindow = opts.DebounceWindow
	}
}

// Validate fills derived paths and rejects values the daemon cannot run with.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if cfg.Socket == "" {
		cfg.Socket = ipc.SocketPath(cfg.DataDir)
	}
	if cfg.Journal == "" {
		cfg.Journal = ipc.JournalPath(cfg.DataDir)
	}
	if cfg.Workers == 0 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}
	if cfg.SampleInterval <= 0 {
		errs = append(errs, errors.New("sample_interval must be positive"))
	}
	if cfg.DebounceWindow < 0 {
		errs = append(errs, errors.New("debounce_window must not be negative"))
	}
	c := cfg.Capacities
	if c.Operations <= 0 || c.WatcherEvents <= 0 || c.ParsingErrors <= 0 {
		errs = append(errs, errors.New("capacities must be positive"))
	}
	return errors.Join(errs...)
}
