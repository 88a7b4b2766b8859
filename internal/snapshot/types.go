// Package snapshot defines the JSON document used to move a complete copy of
// the planbak store between devices.
//
// A snapshot is a flat set of collections, one per record kind. The same shape
// is produced by local export, served to peers, and accepted on import.
package snapshot

import (
	"fmt"
	"time"

	"github.com/lherron/planbak/internal/domain"
)

// SchemaVersion is the snapshot format version written by this build.
const SchemaVersion = 1

// Snapshot is a point-in-time copy of every collection in the store.
type Snapshot struct {
	Meta                       Meta                               `json:"meta"`
	Projects                   []domain.Project                   `json:"projects"`
	Goals                      []domain.Goal                      `json:"goals"`
	ListItems                  []domain.ListItem                  `json:"listItems"`
	NoteDocuments              []domain.NoteDocument              `json:"noteDocuments"`
	NoteDocumentItems          []domain.NoteDocumentItem          `json:"noteDocumentItems"`
	Checklists                 []domain.Checklist                 `json:"checklists"`
	ChecklistItems             []domain.ChecklistItem             `json:"checklistItems"`
	LinkItems                  []domain.LinkItem                  `json:"linkItems"`
	InboxRecords               []domain.InboxRecord               `json:"inboxRecords"`
	ProjectExecutionLogs       []domain.ProjectExecutionLog       `json:"projectExecutionLogs"`
	Scripts                    []domain.Script                    `json:"scripts"`
	Attachments                []domain.Attachment                `json:"attachments"`
	ProjectAttachmentCrossRefs []domain.ProjectAttachmentCrossRef `json:"projectAttachmentCrossRefs"`
	BacklogOrders              []domain.BacklogOrder              `json:"backlogOrders"`
	LegacyNotes                []domain.LegacyNote                `json:"legacyNotes"`
	ActivityRecords            []domain.ActivityRecord            `json:"activityRecords"`
}

// Meta contains snapshot metadata.
type Meta struct {
	SchemaVersion int    `json:"schemaVersion"`
	SnapshotRev   string `json:"snapshotRev,omitempty"`
	GeneratedAt   string `json:"generatedAt,omitempty"`
	Device        string `json:"device,omitempty"`
}

// New returns an empty snapshot at the current schema version.
func New() *Snapshot {
	return &Snapshot{Meta: Meta{SchemaVersion: SchemaVersion}}
}

// Append adds rec to the collection matching its kind.
func (s *Snapshot) Append(rec domain.Record) error {
	switch r := rec.(type) {
	case domain.Project:
		s.Projects = append(s.Projects, r)
	case domain.Goal:
		s.Goals = append(s.Goals, r)
	case domain.ListItem:
		s.ListItems = append(s.ListItems, r)
	case domain.NoteDocument:
		s.NoteDocuments = append(s.NoteDocuments, r)
	case domain.NoteDocumentItem:
		s.NoteDocumentItems = append(s.NoteDocumentItems, r)
	case domain.Checklist:
		s.Checklists = append(s.Checklists, r)
	case domain.ChecklistItem:
		s.ChecklistItems = append(s.ChecklistItems, r)
	case domain.LinkItem:
		s.LinkItems = append(s.LinkItems, r)
	case domain.InboxRecord:
		s.InboxRecords = append(s.InboxRecords, r)
	case domain.ProjectExecutionLog:
		s.ProjectExecutionLogs = append(s.ProjectExecutionLogs, r)
	case domain.Script:
		s.Scripts = append(s.Scripts, r)
	case domain.Attachment:
		s.Attachments = append(s.Attachments, r)
	case domain.ProjectAttachmentCrossRef:
		s.ProjectAttachmentCrossRefs = append(s.ProjectAttachmentCrossRefs, r)
	case domain.BacklogOrder:
		s.BacklogOrders = append(s.BacklogOrders, r)
	case domain.LegacyNote:
		s.LegacyNotes = append(s.LegacyNotes, r)
	case domain.ActivityRecord:
		s.ActivityRecords = append(s.ActivityRecords, r)
	default:
		return fmt.Errorf("unsupported record type %T", rec)
	}
	return nil
}

// Records returns the collection for kind as generic records.
func (s *Snapshot) Records(kind domain.Kind) []domain.Record {
	switch kind {
	case domain.KindProject:
		return asRecords(s.Projects)
	case domain.KindGoal:
		return asRecords(s.Goals)
	case domain.KindListItem:
		return asRecords(s.ListItems)
	case domain.KindNoteDocument:
		return asRecords(s.NoteDocuments)
	case domain.KindNoteDocumentItem:
		return asRecords(s.NoteDocumentItems)
	case domain.KindChecklist:
		return asRecords(s.Checklists)
	case domain.KindChecklistItem:
		return asRecords(s.ChecklistItems)
	case domain.KindLinkItem:
		return asRecords(s.LinkItems)
	case domain.KindInboxRecord:
		return asRecords(s.InboxRecords)
	case domain.KindExecutionLog:
		return asRecords(s.ProjectExecutionLogs)
	case domain.KindScript:
		return asRecords(s.Scripts)
	case domain.KindAttachment:
		return asRecords(s.Attachments)
	case domain.KindAttachmentCrossRef:
		return asRecords(s.ProjectAttachmentCrossRefs)
	case domain.KindBacklogOrder:
		return asRecords(s.BacklogOrders)
	case domain.KindLegacyNote:
		return asRecords(s.LegacyNotes)
	case domain.KindActivityRecord:
		return asRecords(s.ActivityRecords)
	}
	return nil
}

// Counts returns the number of records per kind.
func (s *Snapshot) Counts() map[domain.Kind]int {
	counts := make(map[domain.Kind]int, len(domain.Kinds()))
	for _, kind := range domain.Kinds() {
		counts[kind] = len(s.Records(kind))
	}
	return counts
}

func asRecords[T domain.Record](in []T) []domain.Record {
	out := make([]domain.Record, len(in))
	for i, r := range in {
		out[i] = r
	}
	return out
}

// ExportResult contains the result of writing a snapshot file.
type ExportResult struct {
	OutputPath  string              `json:"out"`
	SnapshotRev string              `json:"snapshot_rev"`
	Counts      map[domain.Kind]int `json:"counts"`
}

// DefaultFileName is the snapshot file name used when only a directory is given.
const DefaultFileName = "planbak-backup.json"

// FormatTimestamp formats a time.Time as ISO-8601 with Z suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// ParseTimestamp parses an ISO-8601 timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05Z", s)
}
