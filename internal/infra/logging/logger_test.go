package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/bryanwahyu/automaton-tod/internal/infra/logging"
)

func TestNewLevels(t *testing.T) {
	testCases := []struct {
		level    logging.Level
		expected zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{logging.LevelDebug, zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{logging.LevelError, zapcore.ErrorLevel},
	}
	for _, testCase := range testCases {
		t.Run(string(testCase.level), func(t *testing.T) {
			logger, err := logging.New(logging.Options{Level: testCase.level, Format: logging.FormatStructured})
			require.NoError(t, err)
			require.True(t, logger.Core().Enabled(testCase.expected))
			require.False(t, logger.Core().Enabled(testCase.expected-1))
		})
	}
}

func TestNewRejectsUnknownValues(t *testing.T) {
	_, err := logging.New(logging.Options{Level: "verbose"})
	require.ErrorContains(t, err, "unsupported log level")

	_, err = logging.New(logging.Options{Format: "xml"})
	require.ErrorContains(t, err, "unsupported log format")
}

func TestNewWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tod_analysis.log")
	logger, err := logging.New(logging.Options{Format: logging.FormatStructured, File: path})
	require.NoError(t, err)

	logger.Info("controls loaded")
	_ = logger.Sync()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), `"msg":"controls loaded"`)
}
