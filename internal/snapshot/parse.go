package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lherron/planbak/internal/domain"
)

// ErrMalformedSnapshot marks payloads that failed to parse or validate. No
// import session is created for them.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Parse decodes and validates an incoming snapshot payload.
func Parse(payload string) (*Snapshot, error) {
	return ParseBytes([]byte(payload))
}

// ParseBytes is Parse for raw bytes.
func ParseBytes(data []byte) (*Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedSnapshot)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var snap Snapshot
	if err := decoder.Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: failed to parse snapshot: %w", ErrMalformedSnapshot, err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after snapshot document", ErrMalformedSnapshot)
	}

	if err := Validate(&snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}

	return &snap, nil
}

// Load reads and parses a snapshot file. The raw bytes are returned alongside
// so callers can compute or compare the snapshot_rev.
func Load(path string) (*Snapshot, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap, err := ParseBytes(data)
	if err != nil {
		return nil, nil, err
	}

	return snap, data, nil
}

// Validate checks the structural invariants the diff engine relies on: a
// known schema version, valid unique ids per kind, and dependents whose
// owners are present in the same snapshot.
func Validate(snap *Snapshot) error {
	if snap.Meta.SchemaVersion < 1 {
		return fmt.Errorf("invalid schemaVersion: %d", snap.Meta.SchemaVersion)
	}
	if snap.Meta.SchemaVersion > SchemaVersion {
		return fmt.Errorf("unsupported schemaVersion %d (this build reads up to %d)",
			snap.Meta.SchemaVersion, SchemaVersion)
	}

	ids := make(map[domain.Kind]map[string]bool, len(domain.Kinds()))
	for _, kind := range domain.Kinds() {
		seen := make(map[string]bool)
		for _, rec := range snap.Records(kind) {
			if err := domain.ValidateRecord(rec); err != nil {
				return fmt.Errorf("%s: %w", kind, err)
			}
			id := rec.RecordID()
			if seen[id] {
				return fmt.Errorf("%s: duplicate id %q", kind, id)
			}
			seen[id] = true
		}
		ids[kind] = seen
	}

	for _, kind := range []domain.Kind{domain.KindNoteDocumentItem, domain.KindChecklistItem} {
		for _, rec := range snap.Records(kind) {
			dep, ok := rec.(domain.Dependent)
			if !ok {
				continue
			}
			if !ids[dep.ParentKind()][dep.ParentID()] {
				return fmt.Errorf("%s %s references unknown %s %s",
					kind, rec.RecordID(), dep.ParentKind(), dep.ParentID())
			}
		}
	}

	for _, ref := range snap.ProjectAttachmentCrossRefs {
		if !ids[domain.KindProject][ref.ProjectID] {
			return fmt.Errorf("%s %s references unknown project %s",
				domain.KindAttachmentCrossRef, ref.RecordID(), ref.ProjectID)
		}
		if !ids[domain.KindAttachment][ref.AttachmentID] {
			return fmt.Errorf("%s %s references unknown attachment %s",
				domain.KindAttachmentCrossRef, ref.RecordID(), ref.AttachmentID)
		}
	}

	return nil
}

// IsMalformed reports whether err came from a rejected payload.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedSnapshot)
}
