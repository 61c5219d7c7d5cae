// Package config loads the server's YAML configuration file.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Backup  BackupConfig  `yaml:"backup"`
	Icons   IconsConfig   `yaml:"icons"`
	Audit   AuditConfig   `yaml:"audit"`
}

type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	PathPrefix string `yaml:"path_prefix"`
}

type StorageConfig struct {
	// ConfigPath is the dashboard document, the single system of record.
	ConfigPath string `yaml:"config_path"`
}

type BackupConfig struct {
	Dir string `yaml:"dir"`
}

type IconsConfig struct {
	CacheDir string `yaml:"cache_dir"`
}

type AuditConfig struct {
	DBPath string `yaml:"db_path"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)

	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.ConfigPath == "" {
		cfg.Storage.ConfigPath = "./data/dashboard.json"
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = "./data/backups"
	}
	if cfg.Icons.CacheDir == "" {
		cfg.Icons.CacheDir = "./data/icon-cache"
	}
	if cfg.Audit.DBPath == "" {
		cfg.Audit.DBPath = "./data/audit.db"
	}
}
