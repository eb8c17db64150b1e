package qlog

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestConfigureQuietRaisesLevelToError(t *testing.T) {
	Configure(Options{Quiet: true})
	defer Configure(Options{})
	assert.Equal(t, zerolog.ErrorLevel, L().GetLevel())
}

func TestConfigureVerboseLowersLevelToDebug(t *testing.T) {
	Configure(Options{Verbose: true})
	defer Configure(Options{})
	assert.Equal(t, zerolog.DebugLevel, L().GetLevel())
}

func TestConfigureDefaultLevelIsInfo(t *testing.T) {
	Configure(Options{})
	assert.Equal(t, zerolog.InfoLevel, L().GetLevel())
}

func TestConfigureWithLogFileDoesNotPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qipu.log")
	assert.NotPanics(t, func() {
		Configure(Options{LogFile: path})
	})
	defer Configure(Options{})
}

func TestLReturnsUsableLogger(t *testing.T) {
	Configure(Options{})
	defer Configure(Options{})
	assert.NotNil(t, L())
}
