package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/leadscan/telegram-lead-scanner/internal/platform/config"
)

func TestNewLoggerLevels(t *testing.T) {
	dev := newLogger(&config.Config{AppEnv: config.EnvDevelopment})
	assert.Equal(t, zerolog.DebugLevel, dev.GetLevel())

	prod := newLogger(&config.Config{AppEnv: config.EnvProduction})
	assert.Equal(t, zerolog.InfoLevel, prod.GetLevel())
}
