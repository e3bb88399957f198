package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	d := Defaults()
	require.NoError(t, Validate(d))
	require.Equal(t, 500, d.Highlight.LargeFileLines)
	require.Equal(t, 500*time.Millisecond, d.Highlight.Debounce)
	require.Equal(t, 24, d.Terminal.Rows)
	require.Equal(t, 80, d.Terminal.Cols)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Editor.FontSize = 0
	cfg.Terminal.Rows = 0
	cfg.Terminal.ReadChunkSize = -1

	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "editor.font_size")
	require.Contains(t, err.Error(), "terminal geometry")
	require.Contains(t, err.Error(), "read_chunk_size")
}

func TestLoad_ExplicitFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
editor:
  font_size: 16
  theme: dracula
highlight:
  debounce: 250ms
terminal:
  rows: 40
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, 16.0, cfg.Editor.FontSize)
	require.Equal(t, "dracula", cfg.Editor.Theme)
	require.Equal(t, 250*time.Millisecond, cfg.Highlight.Debounce)
	require.Equal(t, 40, cfg.Terminal.Rows)
	// untouched keys keep their defaults
	require.Equal(t, 80, cfg.Terminal.Cols)
	require.Equal(t, 500, cfg.Highlight.LargeFileLines)
}

func TestLoad_MissingExplicitFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("editor:\n  font_size: -3\n"), 0o644))

	cfg, err := Load(viper.New(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid config")
	require.Equal(t, Defaults(), cfg)
}

func TestSave_RoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := Defaults()
	want.Editor.FontSize = 14.5
	want.Highlight.Debounce = 750 * time.Millisecond
	want.Terminal.Shell = "/bin/bash"

	require.NoError(t, Save(path, want))

	got, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestWriteDefault_DoesNotOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("editor:\n  font_size: 20\n"), 0o644))

	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "font_size: 20")
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, Defaults()))

	v := viper.New()
	_, err := Load(v, path)
	require.NoError(t, err)

	changes := make(chan Config, 4)
	Watch(v, func(cfg Config, err error) {
		if err == nil {
			changes <- cfg
		}
	})

	updated := Defaults()
	updated.Editor.FontSize = 18
	require.NoError(t, Save(path, updated))

	require.Eventually(t, func() bool {
		select {
		case cfg := <-changes:
			return cfg.Editor.FontSize == 18
		default:
			return false
		}
	}, 5*time.Second, 20*time.Millisecond)
}
