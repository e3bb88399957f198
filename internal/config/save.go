package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultConfigHeader = `# Kokona configuration
# Changes are picked up while the editor is running.
# Terminal settings apply from the next terminal session.
`

// WriteDefault writes the default configuration to path, creating parent
// directories. An existing file is left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return Save(path, Defaults())
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(defaultConfigHeader)

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(toYAML(cfg)); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // config is not secret
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// yamlConfig mirrors Config with durations rendered as strings so the file
// round-trips through viper's duration decoding.
type yamlConfig struct {
	Editor    EditorConfig   `yaml:"editor"`
	Highlight map[string]any `yaml:"highlight"`
	Search    SearchConfig   `yaml:"search"`
	Terminal  TerminalConfig `yaml:"terminal"`
}

func toYAML(cfg Config) yamlConfig {
	return yamlConfig{
		Editor: cfg.Editor,
		Highlight: map[string]any{
			"large_file_lines": cfg.Highlight.LargeFileLines,
			"debounce":         cfg.Highlight.Debounce.String(),
		},
		Search:   cfg.Search,
		Terminal: cfg.Terminal,
	}
}
