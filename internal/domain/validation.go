package domain

import (
	"fmt"
	"strings"
)

// ValidateRecordID rejects empty and whitespace-padded identifiers.
func ValidateRecordID(id string) error {
	if id == "" {
		return fmt.Errorf("invalid id: must not be empty")
	}
	if strings.TrimSpace(id) != id {
		return fmt.Errorf("invalid id %q: must not have leading or trailing whitespace", id)
	}
	return nil
}

// ValidateItemType validates a list item type
func ValidateItemType(itemType string) error {
	switch itemType {
	case ItemTypeGoal, ItemTypeSublist, ItemTypeLink, ItemTypeNote, ItemTypeChecklist, ItemTypeScript:
		return nil
	default:
		return fmt.Errorf("invalid item type %q: must be one of: %s, %s, %s, %s, %s, %s", itemType,
			ItemTypeGoal, ItemTypeSublist, ItemTypeLink, ItemTypeNote, ItemTypeChecklist, ItemTypeScript)
	}
}

// ValidateRecord runs the per-kind checks a snapshot must pass before it is
// diffed against the local store.
func ValidateRecord(rec Record) error {
	if err := ValidateRecordID(rec.RecordID()); err != nil {
		return err
	}

	switch r := rec.(type) {
	case ListItem:
		if r.ProjectID == "" {
			return fmt.Errorf("list item %s: projectId is required", r.ID)
		}
		return ValidateItemType(r.ItemType)
	case NoteDocumentItem:
		if r.DocumentID == "" {
			return fmt.Errorf("note document item %s: documentId is required", r.ID)
		}
	case ChecklistItem:
		if r.ChecklistID == "" {
			return fmt.Errorf("checklist item %s: checklistId is required", r.ID)
		}
	case ProjectAttachmentCrossRef:
		if r.ProjectID == "" || r.AttachmentID == "" {
			return fmt.Errorf("attachment cross ref %q: projectId and attachmentId are required", r.RecordID())
		}
	case ActivityRecord:
		if r.EndTime != 0 && r.EndTime < r.StartTime {
			return fmt.Errorf("activity record %s: endTime before startTime", r.ID)
		}
	case Project:
		if r.ParentID == r.ID {
			return fmt.Errorf("project %s: cannot be its own parent", r.ID)
		}
	}

	return nil
}
