package triedb

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config is the file form of the database options.
//
//	path: /var/lib/app/trie
//	cache: 256
//	handles: 512
//	no_sync: true
//	wal_bytes_per_sync: 512000
type Config struct {
	Path            string `yaml:"path"`
	Cache           int    `yaml:"cache"`
	Handles         int    `yaml:"handles"`
	ReadOnly        bool   `yaml:"readonly"`
	NoSync          bool   `yaml:"no_sync"`
	WALBytesPerSync int    `yaml:"wal_bytes_per_sync"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML config. Unknown fields are rejected.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.WithSecondaryError(errors.Wrap(ErrInvalidConfig, "decode config"), err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Path == "" {
		return errors.Wrap(ErrInvalidConfig, "path is required")
	}
	if c.Cache < 0 || c.Handles < 0 || c.WALBytesPerSync < 0 {
		return errors.Wrap(ErrInvalidConfig, "negative size")
	}
	return nil
}

// Options converts the config into database options. Zero sizes keep the
// defaults.
func (c Config) Options() []Option {
	opts := []Option{
		WithReadonly(c.ReadOnly),
		WithNoSync(c.NoSync),
	}
	if c.Cache > 0 {
		opts = append(opts, WithCache(c.Cache))
	}
	if c.Handles > 0 {
		opts = append(opts, WithHandles(c.Handles))
	}
	if c.WALBytesPerSync > 0 {
		opts = append(opts, WithWALBytesPerSync(c.WALBytesPerSync))
	}
	return opts
}

// OpenConfig validates cfg and opens a Shared owner for it. Extra options
// are applied after the config's own.
func OpenConfig(cfg Config, extra ...Option) (*Shared, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return Open(cfg.Path, append(cfg.Options(), extra...)...)
}
