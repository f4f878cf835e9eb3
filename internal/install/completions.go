package install

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// GenerateCompletions invokes binPath's own `completion <shell>` subcommand
// for each requested shell and writes the scripts into destDir. The binary
// must already exist and be executable; any generation failure fails the
// whole install.
func GenerateCompletions(binPath string, shells []string, destDir string) ([]string, error) {
	info, err := os.Stat(binPath)
	if err != nil {
		return nil, fmt.Errorf("cannot generate completions: binary not found at %s: %w", binPath, err)
	}
	if info.Mode()&0o111 == 0 {
		return nil, fmt.Errorf("cannot generate completions: %s is not executable", binPath)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create completions directory %s: %w", destDir, err)
	}

	name := filepath.Base(binPath)
	var scripts []string
	for _, shell := range shells {
		script := filepath.Join(destDir, completionFileName(name, shell))
		cmd := exec.Command(binPath, "completion", shell)
		out, err := os.Create(script)
		if err != nil {
			return nil, fmt.Errorf("cannot create completion script %s: %w", script, err)
		}
		cmd.Stdout = out
		runErr := cmd.Run()
		closeErr := out.Close()
		if runErr != nil {
			os.Remove(script)
			return nil, fmt.Errorf("%s completion %s failed: %w", name, shell, runErr)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("cannot write completion script %s: %w", script, closeErr)
		}
		scripts = append(scripts, script)
	}
	return scripts, nil
}

// completionFileName follows each shell family's installation convention.
func completionFileName(binary, shell string) string {
	switch shell {
	case "bash":
		return binary + ".bash"
	case "zsh":
		return "_" + binary
	case "fish":
		return binary + ".fish"
	default:
		return binary + "." + shell
	}
}
