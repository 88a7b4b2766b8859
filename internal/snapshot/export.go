package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lherron/planbak/internal/domain"
)

// Save stamps s and writes its canonical JSON to path.
func Save(path string, s *Snapshot) (*ExportResult, error) {
	data, err := Stamp(s, time.Now())
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	return &ExportResult{
		OutputPath:  path,
		SnapshotRev: s.Meta.SnapshotRev,
		Counts:      s.Counts(),
	}, nil
}

// Summary describes the non-empty collections, e.g. "projects: 2, goals: 5".
func (s *Snapshot) Summary() string {
	counts := s.Counts()
	parts := make([]string, 0, len(counts))
	for _, kind := range domain.Kinds() {
		if n := counts[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", kind, n))
		}
	}
	if len(parts) == 0 {
		return "empty"
	}
	return strings.Join(parts, ", ")
}
