// Package config loads the archive credential file: a YAML document
// with a user section carrying the basic-auth login and password.
//
//	user:
//	    login: userone
//	    password: blah
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/msbentley/boa-utils/tap"
)

// ErrNotFound is returned when the credential file does not exist.
// Callers may still construct a client without credentials; its
// authenticated operations will then fail with tap.ErrNoCredentials.
var ErrNotFound = errors.New("credential file not found")

// Config is the credential document.
type Config struct {
	User User `yaml:"user"`
}

// User holds the basic-auth pair for the archive.
type User struct {
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
}

// Credentials converts the document to the client's credential pair.
func (c *Config) Credentials() tap.Credentials {
	return tap.Credentials{
		Login:    c.User.Login,
		Password: c.User.Password,
	}
}

// DefaultPath returns the per-user credential file location,
// <user config dir>/boa/boa.yml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("os.UserConfigDir: %w", err)
	}
	return filepath.Join(dir, "boa", "boa.yml"), nil
}

// Load reads and decodes the credential file. An empty path means
// DefaultPath. A missing file yields ErrNotFound (wrapped); an
// unreadable or incomplete document is its own error.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.User.Login == "" || cfg.User.Password == "" {
		return nil, fmt.Errorf("credential file %s is missing user.login or user.password", path)
	}

	return &cfg, nil
}
