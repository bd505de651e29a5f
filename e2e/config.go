package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_LISTEN_ADDR is the address the in-process server binds; port 0
	// picks a free one so parallel CI jobs never collide.
	ListenAddr string `envconfig:"E2E_LISTEN_ADDR" default:"127.0.0.1:0"`
	// E2E_READ_TIMEOUT doubles as the idle mailbox poll interval, so it is
	// kept short to make delivery assertions fast.
	ReadTimeout  time.Duration `envconfig:"E2E_READ_TIMEOUT" default:"100ms"`
	WriteTimeout time.Duration `envconfig:"E2E_WRITE_TIMEOUT" default:"2s"`
	// E2E_WAIT bounds every scenario assertion that polls the wire.
	Wait time.Duration `envconfig:"E2E_WAIT" default:"5s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
