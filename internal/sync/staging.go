package sync

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// stagingFile is the run-scoped download target for the supplier catalog.
// The catalog only needs to live long enough to be decoded, so each run
// stages under a name carrying its run id and removes the file on every
// exit path.
type stagingFile struct {
	path string
}

func newStagingFile(dir, runID string) *stagingFile {
	if dir == "" {
		dir = os.TempDir()
	}
	return &stagingFile{path: filepath.Join(dir, "costsync-catalog-"+runID+".json")}
}

func (s *stagingFile) Path() string { return s.path }

// Remove deletes the staged file. Removal failures are logged, never
// fatal.
func (s *stagingFile) Remove(log *zap.Logger) {
	err := os.Remove(s.path)
	switch {
	case err == nil:
		log.Debug("removed staged catalog", zap.String("path", s.path))
	case os.IsNotExist(err):
		// Fetch failed before the file was created; nothing to clean.
	default:
		log.Warn("failed to remove staged catalog", zap.String("path", s.path), zap.Error(err))
	}
}
