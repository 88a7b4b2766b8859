package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lherron/planbak/internal/domain"
)

// CanonicalJSON produces a deterministic JSON encoding:
// - collections sorted by record id, empty collections written as []
// - struct fields in declaration order
// - no insignificant whitespace, no HTML escaping
//
// The input snapshot is not modified.
func CanonicalJSON(s *Snapshot) ([]byte, error) {
	ordered := Normalized(s)

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(ordered); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	// Remove trailing newline added by Encode
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}

	return result, nil
}

// ComputeSnapshotRev computes the sha256 hash of canonical JSON bytes.
// Returns "sha256:<hex>" format.
func ComputeSnapshotRev(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// Stamp sets generatedAt and snapshotRev on s and returns the final canonical
// bytes. The rev covers the content only, so two exports of the same state
// share a rev even when generated at different times.
func Stamp(s *Snapshot, now time.Time) ([]byte, error) {
	s.Meta.SchemaVersion = SchemaVersion
	s.Meta.SnapshotRev = ""
	s.Meta.GeneratedAt = ""

	content, err := CanonicalJSON(s)
	if err != nil {
		return nil, err
	}

	s.Meta.SnapshotRev = ComputeSnapshotRev(content)
	s.Meta.GeneratedAt = FormatTimestamp(now)

	return CanonicalJSON(s)
}

// Normalized returns a copy of s with every collection sorted by id and nil
// collections replaced by empty ones.
func Normalized(s *Snapshot) *Snapshot {
	return &Snapshot{
		Meta:                       s.Meta,
		Projects:                   sortedByID(s.Projects),
		Goals:                      sortedByID(s.Goals),
		ListItems:                  sortedByID(s.ListItems),
		NoteDocuments:              sortedByID(s.NoteDocuments),
		NoteDocumentItems:          sortedByID(s.NoteDocumentItems),
		Checklists:                 sortedByID(s.Checklists),
		ChecklistItems:             sortedByID(s.ChecklistItems),
		LinkItems:                  sortedByID(s.LinkItems),
		InboxRecords:               sortedByID(s.InboxRecords),
		ProjectExecutionLogs:       sortedByID(s.ProjectExecutionLogs),
		Scripts:                    sortedByID(s.Scripts),
		Attachments:                sortedByID(s.Attachments),
		ProjectAttachmentCrossRefs: sortedByID(s.ProjectAttachmentCrossRefs),
		BacklogOrders:              sortedByID(s.BacklogOrders),
		LegacyNotes:                sortedByID(s.LegacyNotes),
		ActivityRecords:            sortedByID(s.ActivityRecords),
	}
}

func sortedByID[T domain.Record](in []T) []T {
	out := slices.Clone(in)
	if out == nil {
		out = []T{}
	}
	slices.SortFunc(out, func(a, b T) int {
		return strings.Compare(a.RecordID(), b.RecordID())
	})
	return out
}
