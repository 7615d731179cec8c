package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"vote-admin/ledger"
)

// Settings holds all configuration for the election bootstrap service
type Settings struct {
	// Ledger
	LightwalletdURL string
	RPCTimeout      time.Duration

	// Logging
	LogLevel log.Level

	// HTTP API
	APIHost        string
	APIPort        int
	MetricsEnabled bool
	ExportDir      string

	// Bootstrap queue
	BootstrapWorkers   int
	BootstrapQueueSize int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("lwd_url", ledger.DefaultEndpoint)
	v.SetDefault("rpc_timeout", 30*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("api_host", "127.0.0.1")
	v.SetDefault("api_port", 8080)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("export_dir", "elections")
	v.SetDefault("bootstrap_workers", 2)
	v.SetDefault("bootstrap_queue_size", 16)
}

// LoadConfig reads settings from defaults, an optional config file and the
// environment, in increasing order of precedence. An empty path skips the
// config file. Nested keys such as bootstrap.workers map to BOOTSTRAP_WORKERS.
func LoadConfig(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		log.WithField("file", v.ConfigFileUsed()).Debug("Loaded config file")
	}

	level, err := log.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid log_level")
	}

	s := &Settings{
		LightwalletdURL:    v.GetString("lwd_url"),
		RPCTimeout:         v.GetDuration("rpc_timeout"),
		LogLevel:           level,
		APIHost:            v.GetString("api_host"),
		APIPort:            v.GetInt("api_port"),
		MetricsEnabled:     v.GetBool("metrics_enabled"),
		ExportDir:          v.GetString("export_dir"),
		BootstrapWorkers:   v.GetInt("bootstrap_workers"),
		BootstrapQueueSize: v.GetInt("bootstrap_queue_size"),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the loaded settings for values the service cannot run with.
func (s *Settings) Validate() error {
	if s.LightwalletdURL == "" {
		return errors.New("lwd_url must not be empty")
	}
	if s.RPCTimeout <= 0 {
		return errors.Errorf("rpc_timeout must be positive, got %s", s.RPCTimeout)
	}
	if s.APIPort <= 0 || s.APIPort > 65535 {
		return errors.Errorf("api_port %d is out of range", s.APIPort)
	}
	if s.BootstrapWorkers < 1 {
		return errors.Errorf("bootstrap_workers must be at least 1, got %d", s.BootstrapWorkers)
	}
	if s.BootstrapQueueSize < 0 {
		return errors.Errorf("bootstrap_queue_size must not be negative, got %d", s.BootstrapQueueSize)
	}
	if s.ExportDir == "" {
		return errors.New("export_dir must not be empty")
	}
	return nil
}
