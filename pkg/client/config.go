package client

import (
	"crypto/rsa"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/txn2/snowquery/pkg/transport"
)

// Config holds the client identity and connection settings. The yaml-tagged
// fields can come from a config file via LoadConfig; the rest are supplied
// programmatically.
type Config struct {
	// Account is the service account identifier, optionally with a region
	// suffix (AAA00000.us-east-1).
	Account string `yaml:"account"`

	// User is the service user name.
	User string `yaml:"user"`

	// Database to run statements against. Required.
	Database string `yaml:"database"`

	// Warehouse to run statements on. Required.
	Warehouse string `yaml:"warehouse"`

	// Role is optional when the user has a default role configured.
	Role string `yaml:"role"`

	// PrivateKeyPath points at a PEM-encoded RSA private key registered for
	// the user. Ignored when PrivateKey is set directly.
	PrivateKeyPath string `yaml:"private_key_path"`

	// Host overrides the default <account>.snowflakecomputing.com endpoint.
	// Mostly useful for tests.
	Host string `yaml:"host"`

	// RetryMax and RequestTimeout tune the default transport. Ignored when
	// Transport is set directly.
	RetryMax       int           `yaml:"retry_max"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// PrivateKey is the signing key. Takes precedence over PrivateKeyPath.
	PrivateKey *rsa.PrivateKey `yaml:"-"`

	// Transport executes HTTP requests. Defaults to the retrying transport.
	Transport transport.Doer `yaml:"-"`

	// Logger receives debug logs. Defaults to slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// LoadConfig loads client configuration from a YAML file, expanding ${VAR}
// references from the environment.
// The path is expected to come from the operator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from operator-controlled configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}
