package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/sjak1/rabbithole-backend/infrastructure/config"
)

func TestProvideLoggerHonorsLogLevel(t *testing.T) {
	logger, err := ProvideLogger(&config.Config{Environment: "production", LogLevel: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestProvideLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := ProvideLogger(&config.Config{Environment: "development", LogLevel: "loud"})
	assert.Error(t, err)
}
