// FILE: internal/version/version.go
package version

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Masterminds/semver/v3"
)

const defaultVersion = "0.1.0"

// Store persists the deployed semver in a small JSON file next to the
// binary. Reads self-heal: a missing file is recreated at the default.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

type versionFile struct {
	Version string `json:"version"`
}

// Current returns the recorded version, seeding the file when absent.
func (s *Store) Current() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if writeErr := s.write(defaultVersion); writeErr != nil {
			return "", writeErr
		}
		return defaultVersion, nil
	}

	var vf versionFile
	if err := json.Unmarshal(data, &vf); err != nil {
		return "", fmt.Errorf("corrupt version file %s: %w", s.path, err)
	}
	return vf.Version, nil
}

func (s *Store) write(version string) error {
	data, err := json.MarshalIndent(versionFile{Version: version}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Update bumps the version by level ("major", "minor", "patch") or sets it to
// an explicit semver string, returning the new value.
func (s *Store) Update(target string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		return "", err
	}

	v, err := semver.NewVersion(current)
	if err != nil {
		return "", fmt.Errorf("stored version %q is not semver: %w", current, err)
	}

	var next semver.Version
	switch target {
	case "major":
		next = v.IncMajor()
	case "minor":
		next = v.IncMinor()
	case "patch":
		next = v.IncPatch()
	default:
		explicit, err := semver.StrictNewVersion(target)
		if err != nil {
			return "", fmt.Errorf("invalid version or bump level %q", target)
		}
		next = *explicit
	}

	if err := s.write(next.String()); err != nil {
		return "", err
	}
	return next.String(), nil
}
