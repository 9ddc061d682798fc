// Package config loads frameagent's on-disk configuration into a typed
// record. There is no dynamic attribute lookup: every recognized key is a
// struct field, and unknown top-level keys are a startup error.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arctir/frameagent/rqderr"
)

// GRPCConfig controls the control plane listener.
type GRPCConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DaemonLogConfig controls the daemon's own log sink.
type DaemonLogConfig struct {
	Path string `yaml:"path"`
}

// DaemonConfig groups daemon-wide ambient settings.
type DaemonConfig struct {
	Log DaemonLogConfig `yaml:"log"`
}

// MachineLinuxConfig carries the filesystem paths Host Facts detection
// reads from.
type MachineLinuxConfig struct {
	PathInitTarget     string `yaml:"path_init_target"`
	PathInittab        string `yaml:"path_inittab"`
	PathInittabDefault string `yaml:"path_inittab_default"`
	DisplaysPath       string `yaml:"displays_path"`
}

// MachineConfig is the OS-specific portion of the config document. Only
// linux is populated; the daemon's core targets Linux hosts.
type MachineConfig struct {
	Linux MachineLinuxConfig `yaml:"linux"`
}

// EnvironmentLinuxConfig carries base environment values injected into
// every launched frame.
type EnvironmentLinuxConfig struct {
	PATH string `yaml:"PATH"`
}

// EnvironmentConfig is the OS-specific environment base.
type EnvironmentConfig struct {
	Linux EnvironmentLinuxConfig `yaml:"linux"`
}

// SamplerConfig controls the Proc Sampler loop.
type SamplerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// FrameConfig controls Frame Registry retention.
type FrameConfig struct {
	GraceTerminalSeconds int `yaml:"grace_terminal_seconds"`
}

// Config is the fully typed, validated configuration document.
type Config struct {
	GRPC        GRPCConfig        `yaml:"grpc"`
	Daemon      DaemonConfig      `yaml:"daemon"`
	Machine     MachineConfig     `yaml:"machine"`
	Environment EnvironmentConfig `yaml:"environment"`
	Sampler     SamplerConfig     `yaml:"sampler"`
	Frame       FrameConfig       `yaml:"frame"`
}

const (
	defaultGRPCHost              = "127.0.0.1"
	defaultGRPCPort              = 50051
	defaultLogPath               = "/var/log/frameagentd/frameagentd.log"
	defaultPathInitTarget        = "/etc/systemd/system/default.target"
	defaultPathInittab           = "/etc/inittab"
	defaultPathInittabDefault    = "id:5:initdefault:"
	defaultDisplaysPath          = "/tmp/.X11-unix"
	defaultSamplerIntervalSecs   = 15
	defaultFrameGraceTerminalSec = 60
)

// Default returns a Config populated with the daemon's built-in defaults.
func Default() *Config {
	return &Config{
		GRPC: GRPCConfig{Host: defaultGRPCHost, Port: defaultGRPCPort},
		Daemon: DaemonConfig{
			Log: DaemonLogConfig{Path: defaultLogPath},
		},
		Machine: MachineConfig{
			Linux: MachineLinuxConfig{
				PathInitTarget:     defaultPathInitTarget,
				PathInittab:        defaultPathInittab,
				PathInittabDefault: defaultPathInittabDefault,
				DisplaysPath:       defaultDisplaysPath,
			},
		},
		Sampler: SamplerConfig{IntervalSeconds: defaultSamplerIntervalSecs},
		Frame:   FrameConfig{GraceTerminalSeconds: defaultFrameGraceTerminalSec},
	}
}

// Load reads and validates the YAML document at path, starting from
// Default() and overlaying recognized keys. An unknown top-level key is a
// CONFIG-class error, as is malformed YAML.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.refresh(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Refresh re-reads the config document in place: the document may be
// reloaded without restarting the daemon, but the object itself stays
// at a stable address for callers that already hold a pointer to it
// (Refresh replaces fields, it does not hand out a pointer to new
// memory).
func (c *Config) Refresh(path string) error {
	return c.refresh(path)
}

func (c *Config) refresh(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return rqderr.New(rqderr.ClassConfig, "read", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return rqderr.New(rqderr.ClassConfig, "parse", err)
	}
	if err := rejectUnknownKeys(raw); err != nil {
		return rqderr.New(rqderr.ClassConfig, "validate", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return rqderr.New(rqderr.ClassConfig, "decode", err)
	}
	return nil
}

var recognizedTopLevelKeys = map[string]bool{
	"grpc":        true,
	"daemon":      true,
	"machine":     true,
	"environment": true,
	"sampler":     true,
	"frame":       true,
}

// rejectUnknownKeys enforces that the document contains only recognized
// top-level keys, failing fast on a typo rather than silently ignoring
// it.
func rejectUnknownKeys(raw map[string]interface{}) error {
	for key := range raw {
		if !recognizedTopLevelKeys[key] {
			return fmt.Errorf("unrecognized configuration key %q", key)
		}
	}
	return nil
}
