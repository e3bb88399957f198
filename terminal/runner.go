package terminal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ionut-t/kokona/core"
)

// runners maps a file extension to the toolchain invocation that runs it.
// The file name is appended unless the tool works on the whole project.
var runners = map[string]struct {
	argv        []string
	appendsFile bool
}{
	".go":  {argv: []string{"go", "run"}, appendsFile: true},
	".rs":  {argv: []string{"cargo", "run"}},
	".py":  {argv: []string{"python3"}, appendsFile: true},
	".js":  {argv: []string{"node"}, appendsFile: true},
	".ts":  {argv: []string{"npx", "tsx"}, appendsFile: true},
	".rb":  {argv: []string{"ruby"}, appendsFile: true},
	".sh":  {argv: []string{"sh"}, appendsFile: true},
	".lua": {argv: []string{"lua"}, appendsFile: true},
}

// RunCommand returns the argv that runs filename, chosen by its extension.
// The file is passed by base name because the session runs in its directory.
func RunCommand(filename string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	r, ok := runners[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrNoRunner, filepath.Base(filename))
	}

	argv := append([]string(nil), r.argv...)
	if r.appendsFile {
		argv = append(argv, filepath.Base(filename))
	}
	return argv, nil
}

// ShellCommand returns the interactive shell to start: shell if set, then $SHELL, then /bin/sh.
func ShellCommand(shell string) []string {
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return []string{shell}
}

// WorkDir is the directory a session for filename runs in. Untitled buffers
// use the current directory.
func WorkDir(filename string) string {
	if filename == "" {
		return "."
	}
	return filepath.Dir(filename)
}
