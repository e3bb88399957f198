package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	editor "github.com/ionut-t/kokona/adapter-bubbletea"
	"github.com/ionut-t/kokona/core"
	"github.com/ionut-t/kokona/internal/config"
	"github.com/ionut-t/kokona/internal/log"
)

func init() {
	// Query the terminal background before the program owns stdin, otherwise
	// the OSC 11 reply can leak into the input loop.
	_ = lipgloss.HasDarkBackground()
}

const debugLogFile = "debug.log"

var (
	version = "dev"
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:     "kokona [file]",
	Short:   "A terminal code editor with an embedded terminal",
	Long:    `Kokona opens a file with syntax highlighting, incremental search and a terminal panel that can run the file.`,
	Args:    cobra.MaximumNArgs(1),
	Version: version,
	RunE:    runApp,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/kokona/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false,
		"write a debug log to "+debugLogFile)
}

func runApp(cmd *cobra.Command, args []string) error {
	if debug || log.Enabled() {
		cleanup, err := log.Init(debugLogFile, "kokona")
		if err != nil {
			return err
		}
		defer cleanup()
	}

	v := viper.New()
	cfg, cfgErr := config.Load(v, cfgFile)
	if cfgErr != nil {
		log.ErrorErr(log.CatConfig, "loading config", cfgErr)
	}

	var filename string
	if len(args) == 1 {
		filename = args[0]
	}

	m := newModel(cfg, filename)
	if cfgErr != nil {
		m.SetError(core.NewError(core.ErrConfigId, cfgErr, nil))
	}

	p := tea.NewProgram(m, tea.WithAltScreen())

	config.Watch(v, func(cfg config.Config, err error) {
		p.Send(editor.ConfigChangedMsg{Config: cfg, Err: err})
	})

	final, err := p.Run()
	if fm, ok := final.(editor.Model); ok {
		fm.Close()
	}

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// newModel builds the editor for filename. A file that cannot be read
// leaves an untitled buffer and the error in the status line.
func newModel(cfg config.Config, filename string) editor.Model {
	m := editor.New(cfg, 80, 24)
	if filename == "" {
		m.Open("", nil)
		return m
	}

	path, content, err := readFile(filename)
	if err != nil {
		log.ErrorErr(log.CatUI, "opening file", err, "file", filename)
		m.Open("", nil)
		m.SetError(err)
		return m
	}

	m.Open(path, content)
	return m
}

func readFile(filename string) (string, []byte, error) {
	path := filename
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", nil, core.NewError(core.ErrFileReadId, core.ErrFileRead, err)
		}
		path = filepath.Join(home, path[2:])
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", nil, core.NewError(core.ErrFileReadId, core.ErrFileRead, err)
	}
	return path, content, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
