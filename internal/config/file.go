package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML config file shape. Every field is optional;
// values present in the file override the environment-derived config.
type fileConfig struct {
	Server struct {
		Host    *string `yaml:"host"`
		Port    *int    `yaml:"port"`
		BaseURL *string `yaml:"base_url"`
	} `yaml:"server"`
	Database struct {
		URL            *string `yaml:"url"`
		MaxConnections *int    `yaml:"max_connections"`
	} `yaml:"database"`
	RateLimit struct {
		PublicPerMinute   *int `yaml:"public_per_minute"`
		LoginPer15Minutes *int `yaml:"login_per_15_minutes"`
	} `yaml:"rate_limit"`
	Logging struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"logging"`
	Environment *string `yaml:"environment"`
}

// ApplyFile overlays values from a YAML config file onto cfg.
// Secrets (database URL aside) stay in the environment.
func ApplyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&cfg.Server.Host, fc.Server.Host)
	setInt(&cfg.Server.Port, fc.Server.Port)
	setString(&cfg.Server.BaseURL, fc.Server.BaseURL)
	setString(&cfg.Database.URL, fc.Database.URL)
	setInt(&cfg.Database.MaxConnections, fc.Database.MaxConnections)
	setInt(&cfg.RateLimit.PublicPerMinute, fc.RateLimit.PublicPerMinute)
	setInt(&cfg.RateLimit.LoginPer15Minutes, fc.RateLimit.LoginPer15Minutes)
	setString(&cfg.Logging.Level, fc.Logging.Level)
	setString(&cfg.Logging.Format, fc.Logging.Format)
	setString(&cfg.Environment, fc.Environment)
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
