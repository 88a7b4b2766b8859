// Package domain defines the record types stored by planbak and the small
// contracts the backup engine needs from them.
package domain

// Kind names a record collection. The value doubles as the JSON key of the
// collection in a snapshot.
type Kind string

const (
	KindProject            Kind = "projects"
	KindGoal               Kind = "goals"
	KindScript             Kind = "scripts"
	KindChecklist          Kind = "checklists"
	KindNoteDocument       Kind = "noteDocuments"
	KindAttachment         Kind = "attachments"
	KindLinkItem           Kind = "linkItems"
	KindInboxRecord        Kind = "inboxRecords"
	KindListItem           Kind = "listItems"
	KindExecutionLog       Kind = "projectExecutionLogs"
	KindBacklogOrder       Kind = "backlogOrders"
	KindLegacyNote         Kind = "legacyNotes"
	KindActivityRecord     Kind = "activityRecords"
	KindChecklistItem      Kind = "checklistItems"
	KindNoteDocumentItem   Kind = "noteDocumentItems"
	KindAttachmentCrossRef Kind = "projectAttachmentCrossRefs"
)

// Kinds returns every kind in write order: owners before the records that
// reference them. Deletes walk this list backwards.
func Kinds() []Kind {
	return []Kind{
		KindProject,
		KindGoal,
		KindScript,
		KindChecklist,
		KindNoteDocument,
		KindAttachment,
		KindLinkItem,
		KindInboxRecord,
		KindListItem,
		KindExecutionLog,
		KindBacklogOrder,
		KindLegacyNote,
		KindActivityRecord,
		KindChecklistItem,
		KindNoteDocumentItem,
		KindAttachmentCrossRef,
	}
}

// IsDependent reports whether records of this kind are owned by another record
// and never selected on their own.
func (k Kind) IsDependent() bool {
	switch k {
	case KindChecklistItem, KindNoteDocumentItem, KindAttachmentCrossRef:
		return true
	default:
		return false
	}
}

// Record is implemented by every stored entity.
type Record interface {
	Kind() Kind
	// RecordID is unique within the kind and stable across snapshots.
	RecordID() string
}

// Positioned records carry an explicit ordering field next to their content.
// WithPosition returns a copy with only the position replaced.
type Positioned[T any] interface {
	Record
	Position() int64
	WithPosition(pos int64) T
}

// Dependent records belong to a parent record of another kind.
type Dependent interface {
	Record
	ParentKind() Kind
	ParentID() string
}

// ListItemType values for ListItem.ItemType.
const (
	ItemTypeGoal      = "GOAL"
	ItemTypeSublist   = "SUBLIST"
	ItemTypeLink      = "LINK_ITEM"
	ItemTypeNote      = "NOTE"
	ItemTypeChecklist = "CHECKLIST"
	ItemTypeScript    = "SCRIPT"
)
