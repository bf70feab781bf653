// Package config loads the monitor configuration from TOML or YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/emulator"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/expression"
)

const EnvConfigPath = "RVMON_CONFIG"

type Config struct {
	Expression ExpressionConfig `toml:"expression" yaml:"expression"`
	Machine    MachineConfig    `toml:"machine" yaml:"machine"`
	Monitor    MonitorConfig    `toml:"monitor" yaml:"monitor"`
	Journal    JournalConfig    `toml:"journal" yaml:"journal"`
	Server     ServerConfig     `toml:"server" yaml:"server"`
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
}

type ExpressionConfig struct {
	Lexing      string `toml:"lexing" yaml:"lexing"`           // longest or first
	Comparisons string `toml:"comparisons" yaml:"comparisons"` // conventional or legacy
}

type MachineConfig struct {
	Image        string `toml:"image" yaml:"image"`
	MemoryBase   uint64 `toml:"memory_base" yaml:"memory_base"`
	StackTop     uint64 `toml:"stack_top" yaml:"stack_top"`
	RuntimeLimit uint64 `toml:"runtime_limit" yaml:"runtime_limit"`
}

type MonitorConfig struct {
	Batch       bool   `toml:"batch" yaml:"batch"`
	Prompt      string `toml:"prompt" yaml:"prompt"`
	HistoryFile string `toml:"history_file" yaml:"history_file"`
	Color       bool   `toml:"color" yaml:"color"`
}

type JournalConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

type ServerConfig struct {
	RPCAddress   string   `toml:"rpc_address" yaml:"rpc_address"`
	WebAddress   string   `toml:"web_address" yaml:"web_address"`
	WriteTimeout Duration `toml:"write_timeout" yaml:"write_timeout"`
}

type LoggingConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	Endpoint string `toml:"endpoint" yaml:"endpoint"`
}

// Duration wraps time.Duration for TOML and YAML parsing
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file. Files ending in .yaml or .yml are parsed as YAML, all
// others as TOML.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if _, err := toml.Decode(string(content), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	if _, err := cfg.ExpressionOptions(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads the file named by RVMON_CONFIG, then the default locations. Without any
// file the defaults are returned.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		defaultPaths := []string{
			"./configs/config.toml",
			"./config.toml",
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (c *Config) applyDefaults() {
	// Expression
	if c.Expression.Lexing == "" {
		c.Expression.Lexing = "longest"
	}
	if c.Expression.Comparisons == "" {
		c.Expression.Comparisons = "conventional"
	}

	// Machine
	if c.Machine.MemoryBase == 0 {
		c.Machine.MemoryBase = emulator.DefaultMemoryBase
	}
	if c.Machine.StackTop == 0 {
		c.Machine.StackTop = c.Machine.MemoryBase + 0x8000000
	}

	// Monitor
	if c.Monitor.Prompt == "" {
		c.Monitor.Prompt = "(nemu) "
	}
	if c.Monitor.HistoryFile == "" {
		c.Monitor.HistoryFile = filepath.Join(os.TempDir(), ".rvmon_history")
	}

	// Journal
	if c.Journal.Path == "" {
		c.Journal.Path = "./data/journal.db"
	}

	// Server
	if c.Server.RPCAddress == "" {
		c.Server.RPCAddress = ":2035"
	}
	if c.Server.WebAddress == "" {
		c.Server.WebAddress = ":2036"
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout.Duration = 10 * time.Second
	}

	// Logging
	if c.Logging.Endpoint == "" {
		c.Logging.Endpoint = "http://localhost:8006/log"
	}
}

func (c *Config) expandEnvVars() {
	c.Machine.Image = os.ExpandEnv(c.Machine.Image)
	c.Monitor.HistoryFile = os.ExpandEnv(c.Monitor.HistoryFile)
	c.Journal.Path = os.ExpandEnv(c.Journal.Path)
}

// ExpressionOptions translates the [expression] section.
func (c *Config) ExpressionOptions() (expression.Options, error) {
	var options expression.Options

	switch c.Expression.Lexing {
	case "longest", "":
		options.Lexing = expression.LexLongestMatch
	case "first":
		options.Lexing = expression.LexFirstMatch
	default:
		return options, fmt.Errorf("unknown lexing policy %q, expected longest or first", c.Expression.Lexing)
	}

	switch c.Expression.Comparisons {
	case "conventional", "":
		options.Comparisons = expression.CompareConventional
	case "legacy":
		options.Comparisons = expression.CompareLegacy
	default:
		return options, fmt.Errorf("unknown comparison mapping %q, expected conventional or legacy", c.Expression.Comparisons)
	}

	return options, nil
}
