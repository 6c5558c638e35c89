package main

import (
	"fmt"

	"portfolio_monitor/internal/modules/config"
	"portfolio_monitor/pkg/logger"
	"portfolio_monitor/pkg/tracing"
)

var configPath string

const serviceName = "portfolio_monitor"

// loadConfig читает конфиг и поднимает логгер по log_level из него.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.NewConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)
	if err := logger.Init(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}
