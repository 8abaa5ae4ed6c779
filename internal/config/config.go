package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"alarmsync/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App          AppConfig          `yaml:"app"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Backend      BackendConfig      `yaml:"backend"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Liveness     LivenessConfig     `yaml:"liveness"`
	Sync         SyncConfig         `yaml:"sync"`
	API          APIConfig          `yaml:"api"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address       string `yaml:"address"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	PoolSize      int    `yaml:"pool_size"`
	DeadLetterKey string `yaml:"dead_letter_key"`
}

type BackendConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	RoutesFile string        `yaml:"routes_file"`
	RateLimit  RateConfig    `yaml:"rate_limit"`
}

type RateConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ConnectivityConfig struct {
	ProbeURL string        `yaml:"probe_url"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LivenessConfig struct {
	SchedulerURL string        `yaml:"scheduler_url"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

type SyncConfig struct {
	Interval     time.Duration `yaml:"interval"`
	RetryCeiling int           `yaml:"retry_ceiling"`
}

type APIConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env overlay is optional; a missing file is not an error.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Environment variables may be referenced inside the YAML.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}
	if c.Sync.RetryCeiling < 1 {
		return errors.New("sync retry_ceiling must be at least 1")
	}
	if c.API.Enabled && c.API.Port == 0 {
		return errors.New("api port is required when api is enabled")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "alarmsync"
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = models.DefaultSyncInterval
	}
	if c.Sync.RetryCeiling == 0 {
		c.Sync.RetryCeiling = models.DefaultRetryCeiling
	}
	if c.Connectivity.Interval == 0 {
		c.Connectivity.Interval = models.DefaultConnectivityInterval
	}
	if c.Connectivity.Timeout == 0 {
		c.Connectivity.Timeout = 5 * time.Second
	}
	if c.Connectivity.ProbeURL == "" {
		c.Connectivity.ProbeURL = c.Backend.BaseURL
	}
	if c.Liveness.Interval == 0 {
		c.Liveness.Interval = models.DefaultHealthInterval
	}
	if c.Liveness.Timeout == 0 {
		c.Liveness.Timeout = 5 * time.Second
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = models.DefaultDeliveryTimeout
	}
	if c.Backend.RateLimit.Burst == 0 {
		c.Backend.RateLimit.Burst = 5
	}
	if c.Redis.DeadLetterKey == "" {
		c.Redis.DeadLetterKey = "alarmsync:deadletter"
	}
	if c.API.Enabled && c.API.Port == 0 {
		c.API.Port = 8080
	}
}
