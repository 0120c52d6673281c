// Package config loads runtime configuration from the environment and export
// profiles from an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/labadmin/pulldown/derive"
	"github.com/labadmin/pulldown/survey"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the process configuration.
type Config struct {
	DatabaseURL      string
	DatabaseDriver   string
	Port             string
	MetadataCacheTTL time.Duration
	OutOfDomain      survey.DomainPolicy
	ColumnSeparator  string
	ProfilesFile     string
}

// Load reads DATABASE_URL, DATABASE_DRIVER, PORT, METADATA_CACHE_TTL,
// OUT_OF_DOMAIN_POLICY, COLUMN_SEPARATOR and PROFILES_FILE.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:     getenv("DATABASE_URL"),
		DatabaseDriver:  getenv("DATABASE_DRIVER"),
		Port:            getenv("PORT"),
		ColumnSeparator: getenv("COLUMN_SEPARATOR"),
		ProfilesFile:    getenv("PROFILES_FILE"),
	}

	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = DriverPostgres
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.ColumnSeparator == "" {
		cfg.ColumnSeparator = ":"
	}

	if s := getenv("METADATA_CACHE_TTL"); s != "" {
		ttl, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid METADATA_CACHE_TTL: %w", err)
		}
		cfg.MetadataCacheTTL = ttl
	}

	policy, err := survey.ParseDomainPolicy(getenv("OUT_OF_DOMAIN_POLICY"))
	if err != nil {
		return nil, err
	}
	cfg.OutOfDomain = policy

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for required and consistent values
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q (use: postgres, sqlite)", c.DatabaseDriver))
	}
	if c.MetadataCacheTTL < 0 {
		errs = append(errs, errors.New("METADATA_CACHE_TTL cannot be negative"))
	}
	if strings.TrimSpace(c.ColumnSeparator) == "" {
		errs = append(errs, errors.New("COLUMN_SEPARATOR cannot be blank"))
	}
	return errors.Join(errs...)
}

// Profiles is the YAML document listing export profiles.
type Profiles struct {
	Profiles map[string]ProfileDef `yaml:"profiles"`
}

// ProfileDef is one profile in the YAML document
type ProfileDef struct {
	Fields []derive.Field `yaml:"fields"`
}

// LoadProfiles reads a profiles file. An empty path yields no profiles.
func LoadProfiles(path string) (map[string][]derive.Field, error) {
	if path == "" {
		return map[string][]derive.Field{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes a profiles document, rejecting unknown keys.
func ParseProfiles(data []byte) (map[string][]derive.Field, error) {
	var doc Profiles
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}

	out := make(map[string][]derive.Field, len(doc.Profiles))
	for name, def := range doc.Profiles {
		out[name] = def.Fields
	}
	return out, nil
}
