package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Registry struct {
	v *viper.Viper
}

func NewRegistry() *Registry {
	return &Registry{
		v: viper.New(),
	}
}

// LoadConfig reads the config file if one exists and falls back to the
// built-in defaults otherwise, so the tool runs without any setup.
func (r *Registry) LoadConfig(cfgFile string) (*Config, error) {
	r.setDefaults()

	if cfgFile != "" {
		r.v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			r.v.AddConfigPath(filepath.Join(home, ".trackercheck"))
		}
		r.v.AddConfigPath(".")
		r.v.SetConfigName("config")
		r.v.SetConfigType("yaml")
	}

	if err := r.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		r.v.OnConfigChange(func(e fsnotify.Event) {
			fmt.Printf("config file changed: %s\n", e.Name)
		})
		r.v.WatchConfig()
	}

	var cfg Config
	if err := r.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("error on validating config: %w", err)
	}

	return &cfg, nil
}

func (r *Registry) setDefaults() {
	r.v.SetDefault("candidates_file", "candidates.txt")
	r.v.SetDefault("check.timeout", 5)
	r.v.SetDefault("check.max_checks", 10)
	r.v.SetDefault("check.num_want", -1)
	r.v.SetDefault("output.hosts_file", "udp_hosts.txt")
	r.v.SetDefault("output.ipv4_file", "udp_ipv4s.txt")
	r.v.SetDefault("output.ipv6_file", "udp_ipv6s.txt")
	r.v.SetDefault("log.level", "info")
	r.v.SetDefault("log.format", "text")
}

func (r *Registry) ConfigFile() string {
	return r.v.ConfigFileUsed()
}
