// Package config loads phi.yaml, the optional per-project settings for the
// phi compiler.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up from the working directory upwards.
const FileName = "phi.yaml"

const (
	EmitIR     = "ir"
	EmitObject = "object"
	EmitAsm    = "asm"
)

const (
	DefaultModule = "phi_compiler_module"
	DefaultPasses = "default<O2>"
	// DefaultObject is written when an object is emitted without an output path.
	DefaultObject = "output.o"
)

type Config struct {
	// Module is the identifier of the LLVM module.
	Module string `yaml:"module,omitempty"`

	// Emit is one of ir, object or asm.
	Emit string `yaml:"emit,omitempty"`

	// Output is the file to write. Empty means stdout for text and
	// DefaultObject for objects.
	Output string `yaml:"output,omitempty"`

	// Optimize runs Passes over the module before emission.
	Optimize bool   `yaml:"optimize,omitempty"`
	Passes   string `yaml:"passes,omitempty"`
	Target   Target `yaml:"target,omitempty"`
}

// Target selects the machine code is generated for. An empty triple means
// the host.
type Target struct {
	Triple   string `yaml:"triple,omitempty"`
	CPU      string `yaml:"cpu,omitempty"`
	Features string `yaml:"features,omitempty"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads and parses a phi.yaml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses phi.yaml content. The path is only used in error messages.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Find searches for phi.yaml starting from dir and walking up to the
// filesystem root. It returns "" and no error when there is none.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// LoadFrom returns the config found from dir, or the defaults.
func LoadFrom(dir string) (*Config, error) {
	path, err := Find(dir)
	if err != nil || path == "" {
		return Default(), err
	}
	return Load(path)
}

func (c *Config) setDefaults() {
	if c.Module == "" {
		c.Module = DefaultModule
	}
	if c.Emit == "" {
		c.Emit = EmitIR
	}
	if c.Passes == "" {
		c.Passes = DefaultPasses
	}
}

var ErrUnknownEmit = errors.New("unknown emit mode")

// Validate checks the settings after defaults are applied. Flags that
// override the file are validated with it.
func (c *Config) Validate() error {
	switch c.Emit {
	case EmitIR, EmitObject, EmitAsm:
	default:
		return fmt.Errorf("%w %q: want %s, %s or %s", ErrUnknownEmit, c.Emit, EmitIR, EmitObject, EmitAsm)
	}
	if err := ValidateModuleName(c.Module); err != nil {
		return fmt.Errorf("module: %w", err)
	}
	return nil
}

// OutputPath is where emission goes. Empty means stdout.
func (c *Config) OutputPath() string {
	if c.Output == "" && c.Emit == EmitObject {
		return DefaultObject
	}
	return c.Output
}
