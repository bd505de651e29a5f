package main

import "time"

type Config struct {
	Host           string        `env:"HOST,default=localhost"`
	Port           int           `env:"PORT,default=4040"`
	BadgerFilepath string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string        `env:"LOG_LEVEL,default=INFO"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT,default=2s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,default=5s"`
	ShutdownGrace  time.Duration `env:"SHUTDOWN_GRACE,default=5s"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL,default=1m"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	CensoredWords []string `env:"CENSORED_WORDS"`
	MaskCharacter string   `env:"MASK_CHARACTER,default=*"`
}
