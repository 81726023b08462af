package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sechecker/sechecker/internal/report"
)

const resultsFile = "last_run.json"

// Snapshot stores the rendered views of a run with the inputs it was
// computed from.
type Snapshot struct {
	Policy    string        `json:"policy"`
	Inputs    Inputs        `json:"inputs"`
	Timestamp time.Time     `json:"timestamp"`
	Modules   []report.View `json:"modules"`
}

// Stale returns the inputs that changed since the snapshot was taken.
func (s Snapshot) Stale() []string {
	out := s.Inputs.Changed()
	sort.Strings(out)
	return out
}

func resultsPath(dir string) string {
	return filepath.Join(dir, resultsFile)
}

// SaveResults writes snap into dir, creating dir as needed.
func SaveResults(dir string, snap Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(resultsPath(dir), b, 0o644)
}

// LoadResults loads the last snapshot saved in dir.
func LoadResults(dir string) (Snapshot, error) {
	var snap Snapshot
	b, err := os.ReadFile(resultsPath(dir))
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(b, &snap); err != nil {
		return snap, fmt.Errorf("parse %s: %w", resultsPath(dir), err)
	}
	return snap, nil
}
