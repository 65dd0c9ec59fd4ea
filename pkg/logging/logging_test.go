package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func Test_NewLogger(t *testing.T) {
	t.Run("Should build loggers at the requested level", func(t *testing.T) {
		for _, format := range []string{FormatJSON, FormatConsole, ""} {
			logger, err := NewLogger("WARN", format)
			require.NoError(t, err, format)
			assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
			assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		}
	})

	t.Run("Should reject unknown levels and formats", func(t *testing.T) {
		_, err := NewLogger("loud", FormatJSON)
		assert.Error(t, err)
		_, err = NewLogger("info", "xml")
		assert.Error(t, err)
	})
}
