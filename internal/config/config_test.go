package config

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SHEET_RESOLUTION", "EXPORT_BHK_SENTINEL", "RECORD_RUNS"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ResolveAuto, cfg.SheetResolution)
	assert.True(t, cfg.ExportBHKSentinel)
	assert.False(t, cfg.RecordRuns)
}

func TestLoadRejectsUnknownResolution(t *testing.T) {
	t.Setenv("SHEET_RESOLUTION", "random")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHEET_RESOLUTION")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHEET_RESOLUTION", "Position")
	t.Setenv("EXPORT_BHK_SENTINEL", "off")
	t.Setenv("IMAP_PORT", "143")
	t.Setenv("IMAP_SECURE", "no")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ResolvePosition, cfg.SheetResolution)
	assert.False(t, cfg.ExportBHKSentinel)
	assert.Equal(t, 143, cfg.IMAPPort)
	assert.False(t, cfg.IMAPSecure)
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"error":   slog.LevelError,
		"":        slog.LevelWarn,
		"verbose": slog.LevelWarn,
	}
	for in, want := range cases {
		assert.Equal(t, want, Config{LogLevel: in}.SlogLevel(), in)
	}
}
