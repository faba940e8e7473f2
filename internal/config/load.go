package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSrc string

// Format identifies a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

var (
	defaultOnce sync.Once
	defaultCfg  Config
	defaultErr  error
)

// Default returns the schema defaults. It panics if the embedded schema is
// broken, which is a build defect rather than a runtime condition.
func Default() Config {
	defaultOnce.Do(func() {
		defaultCfg, defaultErr = Parse(nil, FormatYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("embedded config schema: %v", defaultErr))
	}
	return defaultCfg
}

// Load reads a config file, choosing the syntax by extension.
// An empty path returns Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	format, err := FormatFor(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FormatFor maps a file extension to a Format.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &ValidationError{Message: fmt.Sprintf("unsupported config extension %q (want .yaml, .yml or .cue)", filepath.Ext(path))}
	}
}

// Parse unifies data with the embedded schema, decodes it and validates the
// result. Empty data yields the defaults.
func Parse(data []byte, format Format) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compiling schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	var user cue.Value
	switch format {
	case FormatYAML:
		var m map[string]any
		if err := yaml.Unmarshal(data, &m); err != nil {
			return Config{}, &ValidationError{Message: fmt.Sprintf("parsing YAML: %v", err)}
		}
		if m == nil {
			m = map[string]any{}
		}
		user = ctx.Encode(m)
	case FormatCUE:
		user = ctx.CompileBytes(data, cue.Filename("config.cue"))
	default:
		return Config{}, &ValidationError{Message: fmt.Sprintf("unknown format %q", format)}
	}
	if err := user.Err(); err != nil {
		return Config{}, &ValidationError{Message: fmt.Sprintf("building config value: %v", err)}
	}

	// Decode resolves defaults and fails on anything left incomplete.
	unified := def.Unify(user)
	if err := unified.Validate(); err != nil {
		return Config{}, &ValidationError{Message: err.Error()}
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, &ValidationError{Message: fmt.Sprintf("decoding config: %v", err)}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
