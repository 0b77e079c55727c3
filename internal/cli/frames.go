package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/primdiff/internal/harness"
	"github.com/roach88/primdiff/internal/primitive"
	"github.com/roach88/primdiff/internal/store"
	"github.com/roach88/primdiff/internal/transport"
)

// isScenarioFile reports whether path names a YAML scenario rather than a
// capture file.
func isScenarioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// loadFrames reads the frames of a capture file, or encodes those of a
// scenario.
func loadFrames(path string) ([][]byte, error) {
	if isScenarioFile(path) {
		s, err := harness.LoadScenario(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load scenario", err)
		}
		frames, err := s.EncodeAll(primitive.Default())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to encode scenario", err)
		}
		return frames, nil
	}

	frames, err := transport.ReadCaptureFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read capture", err)
	}
	return frames, nil
}

// openStore opens the recording database, or returns nil when path is empty.
func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open database %s", path), err)
	}
	return st, nil
}
