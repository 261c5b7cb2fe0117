// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config stores database credentials as small JSON files in the
// user's configuration directory, one file per connection.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

var (
	// ErrNotFound is returned by Load when no configuration file exists.
	ErrNotFound = errors.New("configuration not found")

	// ErrIncomplete is returned when a required field is empty.
	ErrIncomplete = errors.New("all fields must be filled out")
)

// File names of the two connections, relative to the config directory.
const (
	LeadsFile   = "mariadb_login.json"
	TicketsFile = "ticket_system_config.json"
)

// Config holds the credentials for one database connection.
type Config struct {
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	DB       string `json:"db"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (c Config) Trimmed() Config {
	return Config{
		Host:     strings.TrimSpace(c.Host),
		User:     strings.TrimSpace(c.User),
		Password: strings.TrimSpace(c.Password),
		DB:       strings.TrimSpace(c.DB),
	}
}

// Validate checks that no field is blank.
func (c Config) Validate() error {
	missing := make([]string, 0)
	t := c.Trimmed()
	if t.Host == "" {
		missing = append(missing, "host")
	}
	if t.User == "" {
		missing = append(missing, "user")
	}
	if t.Password == "" {
		missing = append(missing, "password")
	}
	if t.DB == "" {
		missing = append(missing, "database")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// String describes the connection without the password.
func (c Config) String() string {
	return fmt.Sprintf("%s@%s/%s", c.User, c.Host, c.DB)
}

// Store reads and writes one configuration file.
type Store struct {
	Path string
}

// NewStore returns a store for the file at path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Exists reports whether the configuration file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Load reads the configuration file. Comments and trailing commas are
// tolerated. A missing file yields ErrNotFound.
func (s *Store) Load() (Config, error) {
	var cfg Config
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse configuration file %s: %w", s.Path, err)
	}
	return cfg, nil
}

// Save replaces the configuration file with cfg. The file is written next to
// the target and renamed over it, so readers never see a partial file.
func (s *Store) Save(cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("failed to replace configuration file: %w", err)
	}
	return nil
}

// Paths are the configuration files used by the application.
type Paths struct {
	Leads   string
	Tickets string
}

// DefaultPaths returns the configuration files under dir, or under the
// user's configuration directory when dir is empty.
func DefaultPaths(dir string) (Paths, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return Paths{}, fmt.Errorf("failed to locate user config directory: %w", err)
		}
		dir = base
	}
	return Paths{
		Leads:   filepath.Join(dir, LeadsFile),
		Tickets: filepath.Join(dir, TicketsFile),
	}, nil
}

// Env prefixes for the two connections.
const (
	LeadsEnvPrefix   = "LEADSDESK_LEADS"
	TicketsEnvPrefix = "LEADSDESK_TICKETS"
)

// LoadDotEnv loads a .env file from the working directory if there is one.
// Variables already set in the environment win.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load()
}

// ApplyEnv fills empty fields of cfg from PREFIX_HOST, PREFIX_USER,
// PREFIX_PASSWORD and PREFIX_DB.
func ApplyEnv(cfg Config, prefix string) Config {
	fill := func(field *string, name string) {
		if *field != "" {
			return
		}
		if v, ok := os.LookupEnv(prefix + "_" + name); ok {
			*field = v
		}
	}
	fill(&cfg.Host, "HOST")
	fill(&cfg.User, "USER")
	fill(&cfg.Password, "PASSWORD")
	fill(&cfg.DB, "DB")
	return cfg
}
