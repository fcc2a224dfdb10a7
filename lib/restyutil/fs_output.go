package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FilesystemOutput writes every exchange of a run into its own
// <id>.http file below a directory.
type FilesystemOutput struct {
	directory string
	mu        *sync.Mutex
}

// NewFilesystemOutput empties `dir` first, dumps of earlier runs would
// otherwise mix with the current one.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	if err := os.RemoveAll(dir); err != nil {
		return FilesystemOutput{}, err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir, mu: &sync.Mutex{}}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	path := filepath.Join(o.directory, id+".http")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		slog.Warn("failed to write http dump", "path", path, "err", err)
	}
}
