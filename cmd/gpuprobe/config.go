package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Backend  string `toml:"backend"`
	Power    string `toml:"power"`
	Fallback bool   `toml:"fallback"`
	Window   bool   `toml:"window"`
	Hold     bool   `toml:"hold"`

	Image   string `toml:"image"`
	Format  string `toml:"format"`
	Mips    bool   `toml:"mips"`
	Verify  bool   `toml:"verify"`
	Profile string `toml:"profile"`
	Timeout string `toml:"timeout"`
	Verbose bool   `toml:"verbose"`
}

func DefaultConfig() Config {
	return Config{
		Backend: "webgpu",
		Format:  "rgba8unorm",
		Timeout: "10s",
	}
}

func (c Config) PowerPreference() (gputypes.PowerPreference, error) {
	switch strings.ToLower(c.Power) {
	case "":
		var undefined gputypes.PowerPreference
		return undefined, nil
	case "low":
		return gputypes.PowerPreferenceLowPower, nil
	case "high":
		return gputypes.PowerPreferenceHighPerformance, nil
	default:
		return 0, fmt.Errorf("unknown power preference %q, expected low or high", c.Power)
	}
}

func (c Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}

	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parse timeout: %w", err)
	}

	return timeout, nil
}

func bindFlags(fs *flag.FlagSet, cfg *Config, configPath *string) {
	fs.StringVar(configPath, "config", *configPath, "TOML file with defaults for all other flags")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "backend to probe: soft or webgpu")
	fs.StringVar(&cfg.Power, "power", cfg.Power, "power preference: low or high")
	fs.BoolVar(&cfg.Fallback, "fallback", cfg.Fallback, "force the fallback adapter")
	fs.BoolVar(&cfg.Window, "window", cfg.Window, "open a window and require an adapter that can present to it")
	fs.BoolVar(&cfg.Hold, "hold", cfg.Hold, "with -window, keep the window open until it is closed or escape is pressed")
	fs.StringVar(&cfg.Image, "image", cfg.Image, "image file to upload, a test pattern is used if empty")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "target texture format, e.g. rgba8unorm-srgb")
	fs.BoolVar(&cfg.Mips, "mips", cfg.Mips, "generate the full mip chain")
	fs.BoolVar(&cfg.Verify, "verify", cfg.Verify, "read the texture back and compare it with the uploaded texels")
	fs.StringVar(&cfg.Profile, "profile", cfg.Profile, "write a cpu profile into this directory")
	fs.StringVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout for resolving and reading back")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "enable debug logging")
}

// ParseConfig builds the configuration from the defaults, the optional
// config file and the command line, in that order.
func ParseConfig(args []string, stderr io.Writer) (Config, error) {
	// the first pass only looks for the config file
	var configPath string
	scratch := DefaultConfig()

	fs := flag.NewFlagSet("gpuprobe", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	bindFlags(fs, &scratch, &configPath)
	if err := fs.Parse(args); err != nil {
		fs.SetOutput(stderr)
		fs.Usage()
		return Config{}, err
	}

	cfg := DefaultConfig()

	if configPath != "" {
		buf, err := os.ReadFile(configPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}

		if err := toml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", configPath, err)
		}
	}

	fs = flag.NewFlagSet("gpuprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	bindFlags(fs, &cfg, &configPath)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	return cfg, nil
}
