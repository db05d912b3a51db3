package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogPath returns the default log file location (~/.askdocs/logs/askdocs.log).
// Falls back to the temp directory if the home directory cannot be resolved.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "askdocs", "askdocs.log")
	}
	return filepath.Join(home, ".askdocs", "logs", "askdocs.log")
}
