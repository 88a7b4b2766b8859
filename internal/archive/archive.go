// Package archive stores exported snapshots for later import, either in a
// local directory or in an S3-compatible bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lherron/planbak/internal/config"
)

// ErrNotFound is returned by Get for a name that is not archived.
var ErrNotFound = errors.New("archive entry not found")

// ErrInvalidName is returned for names that are empty or contain a path.
var ErrInvalidName = errors.New("invalid archive name")

// Entry describes one archived snapshot.
type Entry struct {
	Name    string    `json:"name" yaml:"name"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"modTime" yaml:"modTime"`
}

// Archive is a flat namespace of snapshot payloads.
type Archive interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	// List returns entries sorted by name, which for generated names is
	// also chronological.
	List(ctx context.Context) ([]Entry, error)
}

// NewName returns a unique, sortable name for a snapshot archived at now.
func NewName(now time.Time) string {
	return fmt.Sprintf("snapshot-%s-%s.json",
		now.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}

// Open returns the archive selected by cfg: the S3 bucket when one is
// configured, otherwise the local archive directory.
func Open(cfg *config.Config, logger *zap.Logger) (Archive, error) {
	if cfg.S3.Enabled() {
		client, err := NewClient(cfg.S3)
		if err != nil {
			return nil, err
		}
		return NewBucket(client, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, logger), nil
	}
	if cfg.ArchiveDir == "" {
		return nil, errors.New("no archive configured: set PLANBAK_ARCHIVE_DIR or PLANBAK_S3_BUCKET")
	}
	return NewDir(cfg.ArchiveDir), nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
