package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/safetyops/scnuke/internal/api"
	"github.com/safetyops/scnuke/internal/nuke"
	"github.com/safetyops/scnuke/internal/resource"
)

// TokenEnvVar is the environment variable consulted for the API token
// when no flag or config file value is present.
const TokenEnvVar = "SC_API_TOKEN"

// FileName is the config file searched for in the working directory and
// the user's home directory.
const FileName = ".scnuke.yaml"

// Config holds everything a run needs. Precedence is flag > environment
// > config file > default; flags are applied by the caller after Load.
type Config struct {
	Token             string
	BaseURL           string
	Skip              []string
	DeleteConcurrency int
	ListConcurrency   int
	ProcessedLog      string
}

// Load reads the config file (explicit path, else the first FileName
// found in the working directory or $HOME) and applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("base_url", api.DefaultBaseURL)
	v.SetDefault("delete_concurrency", nuke.DefaultDeleteConcurrency)
	v.SetDefault("list_concurrency", nuke.DefaultListConcurrency)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if found := findConfigFile(); found != "" {
		v.SetConfigFile(found)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", found, err)
		}
	}

	cfg := &Config{
		Token:             v.GetString("token"),
		BaseURL:           v.GetString("base_url"),
		Skip:              v.GetStringSlice("skip"),
		DeleteConcurrency: v.GetInt("delete_concurrency"),
		ListConcurrency:   v.GetInt("list_concurrency"),
		ProcessedLog:      v.GetString("processed_log"),
	}

	// The token is the one setting routinely injected by CI, so the
	// environment wins over the file.
	if env := os.Getenv(TokenEnvVar); env != "" {
		cfg.Token = env
	}

	return cfg, nil
}

// Validate reports configuration problems as human-readable issues, one
// per string. An empty slice means the config is usable.
func (c *Config) Validate() []string {
	var issues []string

	if c.Token == "" {
		issues = append(issues, fmt.Sprintf("token: not set (use --token, %s, or the config file)", TokenEnvVar))
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		issues = append(issues, fmt.Sprintf("base_url: %q is not an http(s) URL", c.BaseURL))
	}
	if c.DeleteConcurrency < 1 {
		issues = append(issues, fmt.Sprintf("delete_concurrency: %d is invalid (must be >= 1)", c.DeleteConcurrency))
	}
	if c.ListConcurrency < 1 {
		issues = append(issues, fmt.Sprintf("list_concurrency: %d is invalid (must be >= 1)", c.ListConcurrency))
	}
	if _, err := resource.ParseSkipList(strings.Join(c.Skip, ",")); err != nil {
		issues = append(issues, fmt.Sprintf("skip: %v", err))
	}

	return issues
}

func findConfigFile() string {
	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, FileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, FileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
