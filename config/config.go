// Package config loads formatting, parsing and server defaults from YAML.
//
//	format:
//	  pretty: true
//	  indent_width: 4
//	parse:
//	  allow_empty: true
//	  max_depth: 100
//	server:
//	  addr: ":8080"
package config

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/mongood/shelldata/shelldata"
)

type (
	Config struct {
		Format Format `yaml:"format"`
		Parse  Parse  `yaml:"parse"`
		Server Server `yaml:"server"`
	}

	Format struct {
		Pretty      bool `yaml:"pretty"`
		IndentWidth int  `yaml:"indent_width"`
	}

	Parse struct {
		AllowEmpty bool `yaml:"allow_empty"`
		MaxDepth   int  `yaml:"max_depth"`
	}

	Server struct {
		Addr string `yaml:"addr"`
	}
)

const MaxIndentWidth = 16

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Format: Format{
			IndentWidth: shelldata.PrettyOptions().IndentWidth,
		},
		Parse: Parse{
			MaxDepth: shelldata.DefaultMaxDepth,
		},
		Server: Server{
			Addr: ":8080",
		},
	}
}

// Load reads the file at path over the defaults.
// An empty path means defaults only.
func Load(path string) (*Config, error) {
	c := Default()

	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	err = c.decode(data)
	if err != nil {
		return nil, errors.Wrap(err, "config %v", path)
	}

	return c, nil
}

// ParseYAML reads configuration text over the defaults.
func ParseYAML(data []byte) (*Config, error) {
	c := Default()

	err := c.decode(data)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) decode(data []byte) error {
	d := yaml.NewDecoder(bytes.NewReader(data))
	d.KnownFields(true)

	err := d.Decode(c)
	if err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "decode")
	}

	return c.Validate()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if w := c.Format.IndentWidth; w < 0 || w > MaxIndentWidth {
		return errors.New("format.indent_width: %d out of range 0..%d", w, MaxIndentWidth)
	}

	if c.Parse.MaxDepth < 1 {
		return errors.New("parse.max_depth: must be at least 1, got %d", c.Parse.MaxDepth)
	}

	return nil
}

// EmitOptions returns serializer options for the format section.
func (c *Config) EmitOptions() shelldata.EmitOptions {
	if !c.Format.Pretty {
		return shelldata.CompactOptions()
	}

	return shelldata.EmitOptions{Pretty: true, IndentWidth: c.Format.IndentWidth}
}

// ParseOptions returns parser options for the parse section.
func (c *Config) ParseOptions() shelldata.ParseOptions {
	return shelldata.ParseOptions{
		AllowEmpty: c.Parse.AllowEmpty,
		MaxDepth:   c.Parse.MaxDepth,
	}
}

// Marshal returns the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
