package config

import (
	"github.com/pradt2/always-online-torrent-trackers/internal/log"
)

type CheckConfig struct {
	Timeout   int `mapstructure:"timeout" validate:"required,min=1"` // seconds per CONNECT/ANNOUNCE round trip
	MaxChecks int `mapstructure:"max_checks" validate:"required,min=1,max=200"`
	NumWant   int `mapstructure:"num_want" validate:"min=-1"`
}

type OutputConfig struct {
	HostsFile string `mapstructure:"hosts_file" validate:"required"`
	IPv4File  string `mapstructure:"ipv4_file" validate:"required"`
	IPv6File  string `mapstructure:"ipv6_file" validate:"required"`
}

type Config struct {
	CandidatesFile string `mapstructure:"candidates_file" validate:"required"`

	Log    log.Config   `mapstructure:"log"`
	Check  CheckConfig  `mapstructure:"check"`
	Output OutputConfig `mapstructure:"output"`
}
