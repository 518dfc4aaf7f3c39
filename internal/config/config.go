// Package config loads eqfields settings from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/eqfields/internal/eqhash"
)

// DefaultFile is the config file looked up in the scanned root.
const DefaultFile = ".eqfields.yaml"

// DefaultMaxFileSize is the default per-file size limit in bytes.
const DefaultMaxFileSize = 1_000_000

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "toon"}

// Config holds the settings that can come from a file or from flags.
type Config struct {
	Format      string   `yaml:"format"`
	Workers     int      `yaml:"workers"`
	MaxFileSize int64    `yaml:"maxFileSize"`
	Exclude     []string `yaml:"exclude,omitempty"`
	RuleID      string   `yaml:"ruleID"`

	excluder *ignore.GitIgnore
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Format:      "text",
		MaxFileSize: DefaultMaxFileSize,
		RuleID:      eqhash.RuleID,
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		c := Default()
		return c, c.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field values and compiles the exclude patterns. It must
// be called again after fields are overridden.
func (c *Config) Validate() error {
	if !validFormat(c.Format) {
		return fmt.Errorf("%w: format %q, want one of %s", ErrInvalid, c.Format, strings.Join(Formats, ", "))
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, c.Workers)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("%w: maxFileSize must not be negative, got %d", ErrInvalid, c.MaxFileSize)
	}
	if strings.TrimSpace(c.RuleID) == "" {
		return fmt.Errorf("%w: ruleID must not be empty", ErrInvalid)
	}
	for _, p := range c.Exclude {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: empty exclude pattern", ErrInvalid)
		}
	}
	c.excluder = nil
	if len(c.Exclude) > 0 {
		c.excluder = ignore.CompileIgnoreLines(c.Exclude...)
	}
	return nil
}

// Excluded reports whether the slash-separated relative path matches one
// of the exclude patterns.
func (c *Config) Excluded(rel string) bool {
	return c.excluder != nil && c.excluder.MatchesPath(rel)
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func validFormat(f string) bool {
	for _, v := range Formats {
		if f == v {
			return true
		}
	}
	return false
}
