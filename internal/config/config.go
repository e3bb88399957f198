// Package config provides configuration types, defaults, and loading for kokona.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ionut-t/kokona/internal/log"
)

// Config holds all configuration options for kokona.
type Config struct {
	Editor    EditorConfig    `mapstructure:"editor" yaml:"editor"`
	Highlight HighlightConfig `mapstructure:"highlight" yaml:"highlight"`
	Search    SearchConfig    `mapstructure:"search" yaml:"search"`
	Terminal  TerminalConfig  `mapstructure:"terminal" yaml:"terminal"`
}

// EditorConfig holds the text view settings read by the highlighter on every call.
type EditorConfig struct {
	FontFamily      string  `mapstructure:"font_family" yaml:"font_family"`
	FontSize        float64 `mapstructure:"font_size" yaml:"font_size"`
	Theme           string  `mapstructure:"theme" yaml:"theme"` // chroma style name
	ShowLineNumbers bool    `mapstructure:"show_line_numbers" yaml:"show_line_numbers"`
}

// HighlightConfig holds the large-file policy of the highlight engine.
type HighlightConfig struct {
	// LargeFileLines is the line count above which highlighting is debounced.
	LargeFileLines int `mapstructure:"large_file_lines" yaml:"large_file_lines"`

	// Debounce is how long a large buffer must stay unchanged before it is re-tokenized.
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// SearchConfig holds search defaults and match colours.
type SearchConfig struct {
	CaseSensitive     bool   `mapstructure:"case_sensitive" yaml:"case_sensitive"`
	CurrentMatchColor string `mapstructure:"current_match_color" yaml:"current_match_color"` // hex e.g. "#FFFF00"
	MatchColor        string `mapstructure:"match_color" yaml:"match_color"`
}

// TerminalConfig holds the embedded terminal settings.
type TerminalConfig struct {
	Shell         string `mapstructure:"shell" yaml:"shell"` // empty = $SHELL, then /bin/sh
	Rows          int    `mapstructure:"rows" yaml:"rows"`
	Cols          int    `mapstructure:"cols" yaml:"cols"`
	ReadChunkSize int    `mapstructure:"read_chunk_size" yaml:"read_chunk_size"`
	Prompt        string `mapstructure:"prompt" yaml:"prompt"`
}

// Defaults returns the reference configuration.
func Defaults() Config {
	return Config{
		Editor: EditorConfig{
			FontFamily:      "monospace",
			FontSize:        12,
			Theme:           "catppuccin-mocha",
			ShowLineNumbers: true,
		},
		Highlight: HighlightConfig{
			LargeFileLines: 500,
			Debounce:       500 * time.Millisecond,
		},
		Search: SearchConfig{
			CaseSensitive:     false,
			CurrentMatchColor: "#FFFF00",
			MatchColor:        "#FFFFB4",
		},
		Terminal: TerminalConfig{
			Shell:         "",
			Rows:          24,
			Cols:          80,
			ReadChunkSize: 4096,
			Prompt:        "> ",
		},
	}
}

// SetDefaults registers every default on v so partial config files are filled in.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("editor.font_family", d.Editor.FontFamily)
	v.SetDefault("editor.font_size", d.Editor.FontSize)
	v.SetDefault("editor.theme", d.Editor.Theme)
	v.SetDefault("editor.show_line_numbers", d.Editor.ShowLineNumbers)
	v.SetDefault("highlight.large_file_lines", d.Highlight.LargeFileLines)
	v.SetDefault("highlight.debounce", d.Highlight.Debounce)
	v.SetDefault("search.case_sensitive", d.Search.CaseSensitive)
	v.SetDefault("search.current_match_color", d.Search.CurrentMatchColor)
	v.SetDefault("search.match_color", d.Search.MatchColor)
	v.SetDefault("terminal.shell", d.Terminal.Shell)
	v.SetDefault("terminal.rows", d.Terminal.Rows)
	v.SetDefault("terminal.cols", d.Terminal.Cols)
	v.SetDefault("terminal.read_chunk_size", d.Terminal.ReadChunkSize)
	v.SetDefault("terminal.prompt", d.Terminal.Prompt)
}

// Validate checks value ranges. Colours are validated by their consumers.
func Validate(cfg Config) error {
	var errs []error
	if cfg.Editor.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("editor.font_size must be positive, got %v", cfg.Editor.FontSize))
	}
	if cfg.Highlight.LargeFileLines < 0 {
		errs = append(errs, fmt.Errorf("highlight.large_file_lines must not be negative, got %d", cfg.Highlight.LargeFileLines))
	}
	if cfg.Highlight.Debounce < 0 {
		errs = append(errs, fmt.Errorf("highlight.debounce must not be negative, got %s", cfg.Highlight.Debounce))
	}
	if cfg.Terminal.Rows <= 0 || cfg.Terminal.Cols <= 0 {
		errs = append(errs, fmt.Errorf("terminal geometry must be positive, got %dx%d", cfg.Terminal.Rows, cfg.Terminal.Cols))
	}
	if cfg.Terminal.Rows > 0xFFFF || cfg.Terminal.Cols > 0xFFFF {
		errs = append(errs, fmt.Errorf("terminal geometry out of range, got %dx%d", cfg.Terminal.Rows, cfg.Terminal.Cols))
	}
	if cfg.Terminal.ReadChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("terminal.read_chunk_size must be positive, got %d", cfg.Terminal.ReadChunkSize))
	}
	return errors.Join(errs...)
}

// DefaultPath returns ~/.config/kokona/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".kokona", "config.yaml")
	}
	return filepath.Join(home, ".config", "kokona", "config.yaml")
}

// Load reads the config file into v and decodes it.
// Lookup order when path is empty:
// 1. .kokona/config.yaml (current directory)
// 2. ~/.config/kokona/config.yaml (user config)
// A missing file is not an error; defaults are returned and a default
// file is written to the user config location.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else if _, err := os.Stat(filepath.Join(".kokona", "config.yaml")); err == nil {
		v.SetConfigFile(filepath.Join(".kokona", "config.yaml"))
	} else {
		v.SetConfigFile(DefaultPath())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			if path == "" {
				if writeErr := WriteDefault(DefaultPath()); writeErr != nil {
					log.ErrorErr(log.CatConfig, "writing default config", writeErr)
				}
			}
		default:
			return Defaults(), fmt.Errorf("reading config: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Defaults(), fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Defaults(), fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Watch reloads the config whenever the file changes and hands the result to onChange.
// onChange runs on the watcher goroutine.
func Watch(v *viper.Viper, onChange func(Config, error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		log.Info(log.CatConfig, "config changed", "file", e.Name, "op", e.Op.String())
		if err := v.ReadInConfig(); err != nil {
			onChange(Defaults(), fmt.Errorf("reading config: %w", err))
			return
		}
		onChange(decode(v))
	})
	v.WatchConfig()
}
