// Package ops loads the strategy host's JSON configuration.
package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Name      string          `json:"name"`
	BaseDir   string          `json:"baseDir"`
	NATS      NATSConfig      `json:"nats"`
	Archive   ArchiveConfig   `json:"archive"`
	Sources   []SourceConfig  `json:"sources"`
	Accounts  []AccountConfig `json:"accounts"`
	Profiling ProfilingConfig `json:"profiling"`
}

// NATSConfig locates the snapshot broker.
type NATSConfig struct {
	URL       string `json:"url"`
	QueueSize int    `json:"queueSize"`
}

// ArchiveConfig enables the relational snapshot archive.
type ArchiveConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbName"`
}

// SourceConfig declares one market-data source and its subscriptions.
type SourceConfig struct {
	Name        string             `json:"name"`
	Instruments []InstrumentConfig `json:"instruments"`
}

// InstrumentConfig names one subscribed contract.
type InstrumentConfig struct {
	InstrumentID string `json:"instrumentId"`
	ExchangeID   string `json:"exchangeId"`
}

// AccountConfig declares one trading account.
type AccountConfig struct {
	Source    string  `json:"source"`
	Account   string  `json:"account"`
	CashLimit float64 `json:"cashLimit"`
}

// ProfilingConfig enables the optional continuous profiler.
type ProfilingConfig struct {
	Enabled bool   `json:"enabled"`
	Server  string `json:"server"`
}

// Load reads and validates a JSON config file.
func Load(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return FileConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

func (c FileConfig) validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is empty")
	}
	seenSources := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("source with empty name")
		}
		if seenSources[src.Name] {
			return fmt.Errorf("duplicate source: %s", src.Name)
		}
		seenSources[src.Name] = true
		for _, inst := range src.Instruments {
			if inst.InstrumentID == "" || inst.ExchangeID == "" {
				return fmt.Errorf("source %s: instrument and exchange required", src.Name)
			}
		}
	}
	for _, account := range c.Accounts {
		if account.Source == "" || account.Account == "" {
			return fmt.Errorf("account entries need source and account")
		}
		if account.CashLimit < 0 {
			return fmt.Errorf("account %s: cash limit must be >= 0", account.Account)
		}
	}
	if c.Archive.Enabled && c.Archive.Host == "" {
		return fmt.Errorf("archive enabled without host")
	}
	return nil
}

func (c FileConfig) withDefaults() FileConfig {
	if c.BaseDir == "" {
		c.BaseDir = filepath.Join(".", "runtime")
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.NATS.QueueSize == 0 {
		c.NATS.QueueSize = 1024
	}
	if c.Archive.Enabled {
		if c.Archive.Port == 0 {
			c.Archive.Port = 5432
		}
		if c.Archive.DBName == "" {
			c.Archive.DBName = "strategy"
		}
	}
	return c
}
