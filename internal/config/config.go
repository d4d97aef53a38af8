package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds the runtime configuration, read from HTS_* environment
// variables.
type Config struct {
	Addr        string `envconfig:"ADDR" default:":8080"`
	DBPath      string `envconfig:"DB_PATH" default:"hts.db"`
	OutputDir   string `envconfig:"OUTPUT_DIR" default:"outputs"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON     bool   `envconfig:"LOG_JSON" default:"false"`
	JobTimeout  string `envconfig:"JOB_TIMEOUT" default:"5m"`
	WorkerCount int    `envconfig:"WORKER_COUNT" default:"0"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("hts", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
