// CLAUDE:SUMMARY Engine configuration: translator mode, strict/sanitized parsing, journal, YAML loader.
package dom

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Translator converts a CSS selector into an XPath expression.
// *cssxpath.Translator satisfies it.
type Translator interface {
	Translate(css string) (string, error)
}

// Config configures a document root created with New.
type Config struct {
	// PlainCSS disables the HTML pseudo-class extension (:link, :checked, ...).
	// The zero value keeps it enabled.
	PlainCSS bool `json:"plain_css" yaml:"plain_css"`

	// Strict makes loading fail on markup the parser would silently repair.
	Strict bool `json:"strict" yaml:"strict"`

	// Sanitize runs input through a bluemonday policy before parsing:
	// "" (off), "ugc" or "strict".
	Sanitize string `json:"sanitize" yaml:"sanitize"`

	// Journal records every mutation as a mutation.Record (see Tree.Flush).
	Journal bool `json:"journal" yaml:"journal"`

	// MaxFileSize bounds LoadFile input (default: 32 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// Logger for debug messages.
	Logger *slog.Logger `json:"-" yaml:"-"`

	// Translator overrides the CSS translator. When nil, a cssxpath
	// translator honoring PlainCSS is used.
	Translator Translator `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 32 << 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) validate() error {
	switch c.Sanitize {
	case "", "ugc", "strict":
		return nil
	default:
		return fmt.Errorf("dom: invalid sanitize policy %q (want \"\", \"ugc\" or \"strict\")", c.Sanitize)
	}
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.defaults()
	return &cfg, nil
}
