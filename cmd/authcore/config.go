package main

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v9"
)

// processConfig is the process-level configuration around the engine.
type processConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	DatabaseURL string `env:"DATABASE_URL"`

	Logger loggerConfig

	// DemoAccounts holds "subject|role|argon2id-hash" entries for the demo login.
	DemoAccounts []string `env:"DEMO_ACCOUNTS" envSeparator:";"`
}

type loggerConfig struct {
	Level    string `env:"LOGGER_LEVEL" envDefault:"info"`
	Mode     string `env:"LOGGER_MODE" envDefault:"production"`
	Encoding string `env:"LOGGER_ENCODING" envDefault:"json"`
}

// demoAccount is one login the demo server accepts.
type demoAccount struct {
	Subject      string
	Role         string
	PasswordHash string
}

func loadProcessConfig() (processConfig, error) {
	return parseProcessConfig(env.Options{})
}

func parseProcessConfig(opts env.Options) (processConfig, error) {
	var cfg processConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return processConfig{}, err
	}
	return cfg, nil
}

func (c processConfig) accounts() (map[string]demoAccount, error) {
	out := make(map[string]demoAccount, len(c.DemoAccounts))
	for i, raw := range c.DemoAccounts {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, "|", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("DEMO_ACCOUNTS entry %d: want subject|role|hash", i)
		}
		out[parts[0]] = demoAccount{Subject: parts[0], Role: parts[1], PasswordHash: parts[2]}
	}
	return out, nil
}
