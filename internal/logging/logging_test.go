package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetsLevelAndFormat(t *testing.T) {
	log := New(Config{Level: "debug", Format: "json", Output: "stdout"})
	assert.Equal(t, "debug", log.GetLevel().String())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	log := New(Config{Level: "not-a-level", Format: "text", Output: "stdout"})
	assert.Equal(t, "info", log.GetLevel().String())
}

func TestNewWritesLogFile(t *testing.T) {
	originalWD, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(originalWD) })

	temp := t.TempDir()
	require.NoError(t, os.Chdir(temp))

	log := New(Config{Level: "info", Format: "text", Output: "file", FilePrefix: "test"})
	log.Info("hello")

	data, err := os.ReadFile(filepath.Join("logs", "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestNewDefaultReturnsUsableLogger(t *testing.T) {
	log := NewDefault("kernel")
	entry := log.WithField("extra", 1)
	assert.NotNil(t, entry)
}
