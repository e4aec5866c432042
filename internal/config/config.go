// Package config holds the classifier settings. Defaults mirror the values
// the demo was built around; an optional HCL file overrides them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

const (
	DefaultArenaSize          = 20000
	DefaultInferencesPerCycle = 20
	DefaultBackend            = "onnxruntime"
	DefaultModelPath          = "models/fruits.onnx"

	PreprocessRaw    = "raw"
	PreprocessDecode = "decode"

	LayoutAuto = ""
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

// DefaultLabels are index-aligned with the model's output classes.
var DefaultLabels = []string{"cebollas", "limon", "papas"}

var DefaultImages = []string{"images/cebolla.jpg", "images/papa.jpg", "images/limon.jpg"}

type Model struct {
	Path    string `hcl:"path,optional"`
	Backend string `hcl:"backend,optional"`
	// SchemaVersion overrides the backend's supported version when non-zero.
	SchemaVersion int    `hcl:"schema_version,optional"`
	ArenaSize     int    `hcl:"arena_size,optional"`
	LibraryPath   string `hcl:"library_path,optional"`
	Threads       int    `hcl:"threads,optional"`
}

type Config struct {
	Model              *Model   `hcl:"model,block"`
	Labels             []string `hcl:"labels,optional"`
	Images             []string `hcl:"images,optional"`
	InferencesPerCycle int      `hcl:"inferences_per_cycle,optional"`
	Preprocess         string   `hcl:"preprocess,optional"`
	ProbeImages        *bool    `hcl:"probe_images,optional"`
	// Seed feeds image selection; zero seeds from the clock.
	Seed uint64 `hcl:"seed,optional"`
	// Layout is the decode input order, "nhwc" or "nchw"; empty guesses from the shape.
	Layout string `hcl:"layout,optional"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Model == nil {
		c.Model = &Model{}
	}
	if c.Model.Path == "" {
		c.Model.Path = DefaultModelPath
	}
	if c.Model.Backend == "" {
		c.Model.Backend = DefaultBackend
	}
	if c.Model.ArenaSize == 0 {
		c.Model.ArenaSize = DefaultArenaSize
	}
	if len(c.Labels) == 0 {
		c.Labels = append([]string(nil), DefaultLabels...)
	}
	if len(c.Images) == 0 {
		c.Images = append([]string(nil), DefaultImages...)
	}
	if c.InferencesPerCycle == 0 {
		c.InferencesPerCycle = DefaultInferencesPerCycle
	}
	if c.Preprocess == "" {
		c.Preprocess = PreprocessRaw
	}
	if c.ProbeImages == nil {
		probe := true
		c.ProbeImages = &probe
	}
}

// evalContext exposes the process environment as env.NAME.
func evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(env)},
	}
}

// Load parses the HCL file at path, fills unset fields with defaults and
// validates the result.
func Load(path string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, diags)
	}

	var c Config
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &c); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, diags)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Model.ArenaSize < 0 {
		errs = append(errs, fmt.Errorf("arena_size must be positive, got %d", c.Model.ArenaSize))
	}
	if c.Model.SchemaVersion < 0 {
		errs = append(errs, fmt.Errorf("schema_version must not be negative, got %d", c.Model.SchemaVersion))
	}
	if c.InferencesPerCycle < 1 {
		errs = append(errs, fmt.Errorf("inferences_per_cycle must be at least 1, got %d", c.InferencesPerCycle))
	}
	for i, label := range c.Labels {
		if label == "" {
			errs = append(errs, fmt.Errorf("labels[%d] is empty", i))
		}
	}
	switch c.Preprocess {
	case PreprocessRaw, PreprocessDecode:
	default:
		errs = append(errs, fmt.Errorf("preprocess must be %q or %q, got %q", PreprocessRaw, PreprocessDecode, c.Preprocess))
	}
	switch c.Layout {
	case LayoutAuto, LayoutNHWC, LayoutNCHW:
	default:
		errs = append(errs, fmt.Errorf("layout must be %q or %q, got %q", LayoutNHWC, LayoutNCHW, c.Layout))
	}
	return errors.Join(errs...)
}
