package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/backkem/attls/pkg/attls"
	"github.com/backkem/attls/pkg/ebcdic"
	"github.com/backkem/attls/pkg/usermap"
	"github.com/pion/logging"
	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Manager  ManagerConfig  `yaml:"manager"`
	UserMap  UserMapConfig  `yaml:"usermap"`
	Output   OutputSettings `yaml:"output"`
}

// ManagerConfig mirrors attls.ManagerConfig.
type ManagerConfig struct {
	CertificateBufferSize int    `yaml:"certificate_buffer_size"`
	MaxBufferBytes        int64  `yaml:"max_buffer_bytes"`
	AlwaysLoadCertificate bool   `yaml:"always_load_certificate"`
	Codepage              string `yaml:"codepage"`
}

// UserMapConfig holds the static identity mappings.
type UserMapConfig struct {
	Certificates       []CertificateMapping `yaml:"certificates"`
	DistinguishedNames []DNMapping          `yaml:"distinguished_names"`
}

// CertificateMapping maps a certificate file (PEM or DER) to a user ID.
type CertificateMapping struct {
	File string `yaml:"file"`
	User string `yaml:"user"`
}

// DNMapping maps a distinguished name within a registry to a user ID.
type DNMapping struct {
	DN       string `yaml:"dn"`
	Registry string `yaml:"registry"`
	User     string `yaml:"user"`
}

// OutputSettings controls the query output.
type OutputSettings struct {
	Format string `yaml:"format"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadConfig reads a YAML configuration file, expanding ${VAR} references.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "error"
	}
	if cfg.Manager.CertificateBufferSize == 0 {
		cfg.Manager.CertificateBufferSize = attls.DefaultCertificateBufferSize
	}
	if cfg.Manager.MaxBufferBytes == 0 {
		cfg.Manager.MaxBufferBytes = attls.DefaultMaxBufferBytes
	}
	if cfg.Manager.Codepage == "" {
		cfg.Manager.Codepage = "IBM-1047"
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = formatText
	}
}

// parseLogLevel maps a level name to a pion log level.
func parseLogLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(s) {
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("unknown log level %q", s)
	}
}

// transcoder returns the text transcoder for the configured code page.
func (c *Config) transcoder() (ebcdic.Transcoder, error) {
	switch strings.ToUpper(strings.ReplaceAll(c.Manager.Codepage, "-", "")) {
	case "IBM1047", "1047":
		return ebcdic.IBM1047, nil
	case "IBM037", "IBM37", "037", "37":
		return ebcdic.IBM037, nil
	default:
		return nil, fmt.Errorf("unsupported code page %q", c.Manager.Codepage)
	}
}

// staticBackend builds the identity backend from the configured mappings.
func (c *Config) staticBackend(t ebcdic.Transcoder) (*usermap.StaticBackend, error) {
	b := usermap.NewStaticBackend(t)
	for _, m := range c.UserMap.Certificates {
		data, err := os.ReadFile(m.File)
		if err != nil {
			return nil, fmt.Errorf("usermap certificate %s: %w", m.File, err)
		}
		_, der, err := usermap.ParseCertificate(data)
		if err != nil {
			return nil, fmt.Errorf("usermap certificate %s: %w", m.File, err)
		}
		if err := b.AddCertificate(der, m.User); err != nil {
			return nil, fmt.Errorf("usermap certificate %s: %w", m.File, err)
		}
	}
	for _, m := range c.UserMap.DistinguishedNames {
		if err := b.AddDistinguishedName(m.DN, m.Registry, m.User); err != nil {
			return nil, fmt.Errorf("usermap dn %q: %w", m.DN, err)
		}
	}
	return b, nil
}
