package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name          string
		level         string
		expectedLevel zapcore.Level
		expectedError bool
	}{
		{name: "info", level: "info", expectedLevel: zapcore.InfoLevel},
		{name: "debug", level: "debug", expectedLevel: zapcore.DebugLevel},
		{name: "upper case warn", level: " WARN ", expectedLevel: zapcore.WarnLevel},
		{name: "error", level: "error", expectedLevel: zapcore.ErrorLevel},
		{name: "invalid", level: "loud", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			previous := Logger
			t.Cleanup(func() { Logger = previous })

			err := Init(tt.level)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Same(t, previous, Logger)
				return
			}
			require.NoError(t, err)
			assert.True(t, Logger.Core().Enabled(tt.expectedLevel))
			assert.False(t, Logger.Core().Enabled(tt.expectedLevel-1))
		})
	}
}
