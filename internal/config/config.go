// Package config loads the agent configuration from YAML
package config

import (
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	onvif "github.com/SridarDhandapani/onvif-media"
)

type Config struct {
	Log       Log       `yaml:"log"`
	Discovery Discovery `yaml:"discovery"`
	SOAP      SOAP      `yaml:"soap"`
	API       API       `yaml:"api"`
	Store     Store     `yaml:"store"`
}

// Log support:
// - level:  trace, debug, info, warn, error, disabled
// - format: json, text, color (empty is color on a terminal)
// - output: stdout, stderr
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type Discovery struct {
	Timeout        time.Duration `yaml:"timeout"`
	MulticastAddr  string        `yaml:"multicast_addr"`
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`
}

type SOAP struct {
	Timeout     time.Duration `yaml:"timeout"`
	InsecureTLS bool          `yaml:"insecure_tls"`
	HTTPDigest  bool          `yaml:"http_digest"`
}

type API struct {
	Listen string `yaml:"listen"`
}

// Store.Path empty keeps cameras in memory
type Store struct {
	Path string `yaml:"path"`
}

func Default() *Config {
	return &Config{
		Log: Log{
			Level:  "info",
			Output: "stdout",
		},
		Discovery: Discovery{
			Timeout:        onvif.DefaultTimeout,
			MulticastAddr:  onvif.DefaultMulticastAddr,
			ReceiveTimeout: onvif.DefaultReceiveTimeout,
		},
		SOAP: SOAP{
			Timeout:    onvif.DefaultSOAPTimeout,
			HTTPDigest: true,
		},
		API: API{
			Listen: ":8090",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "config: read %s", path)
	}

	if err = Parse(b, cfg); err != nil {
		return nil, errors.Annotatef(err, "config: %s", path)
	}

	return cfg, nil
}

// Parse decodes b over cfg and validates the result
func Parse(b []byte, cfg *Config) error {
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return errors.Trace(err)
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return errors.NotValidf("log level %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "", "json", "text", "color":
	default:
		return errors.NotValidf("log format %q", c.Log.Format)
	}

	switch c.Log.Output {
	case "", "stdout", "stderr":
	default:
		return errors.NotValidf("log output %q", c.Log.Output)
	}

	if c.Discovery.Timeout <= 0 {
		return errors.NotValidf("discovery timeout %s", c.Discovery.Timeout)
	}
	if c.Discovery.ReceiveTimeout < 0 {
		return errors.NotValidf("discovery receive timeout %s", c.Discovery.ReceiveTimeout)
	}
	if _, _, err := net.SplitHostPort(c.Discovery.MulticastAddr); err != nil {
		return errors.NewNotValid(err, "discovery multicast address")
	}

	if c.SOAP.Timeout <= 0 {
		return errors.NotValidf("soap timeout %s", c.SOAP.Timeout)
	}

	if _, _, err := net.SplitHostPort(c.API.Listen); err != nil {
		return errors.NewNotValid(err, "api listen address")
	}

	return nil
}

// NewLogger builds the process logger described by cfg
func NewLogger(cfg Log) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}
	return newLogger(cfg, out)
}

func newLogger(cfg Log, out io.Writer) zerolog.Logger {
	writer := out

	if cfg.Format != "json" {
		console := zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}

		switch cfg.Format {
		case "text":
			console.NoColor = true
		case "color":
			console.NoColor = false
		default:
			f, ok := out.(*os.File)
			console.NoColor = !ok || !isatty.IsTerminal(f.Fd())
		}

		writer = console
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}
