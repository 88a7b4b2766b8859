package domain

import (
	"fmt"
	"strings"
)

// Timestamps are Unix epoch milliseconds. Zero means unset.

// Project is a node in the project hierarchy.
type Project struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ParentID    string   `json:"parentId,omitempty"`
	Order       int64    `json:"order"`
	IsExpanded  bool     `json:"isExpanded"`
	IsCompleted bool     `json:"isCompleted"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   int64    `json:"createdAt"`
	UpdatedAt   int64    `json:"updatedAt"`
}

func (p Project) Kind() Kind       { return KindProject }
func (p Project) RecordID() string { return p.ID }
func (p Project) Position() int64  { return p.Order }

func (p Project) WithPosition(pos int64) Project {
	p.Order = pos
	return p
}

// Goal is a unit of work that list items point at.
type Goal struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Description string   `json:"description,omitempty"`
	IsCompleted bool     `json:"isCompleted"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   int64    `json:"createdAt"`
	UpdatedAt   int64    `json:"updatedAt"`
	CompletedAt int64    `json:"completedAt,omitempty"`
}

func (g Goal) Kind() Kind       { return KindGoal }
func (g Goal) RecordID() string { return g.ID }

// ListItem places an entity (goal, sublist, link, ...) in a project's list.
type ListItem struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	EntityID  string `json:"entityId"`
	ItemType  string `json:"itemType"`
	Order     int64  `json:"order"`
}

func (l ListItem) Kind() Kind       { return KindListItem }
func (l ListItem) RecordID() string { return l.ID }
func (l ListItem) Position() int64  { return l.Order }

func (l ListItem) WithPosition(pos int64) ListItem {
	l.Order = pos
	return l
}

// NoteDocument is a rich note owned by a project.
type NoteDocument struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Content   string `json:"content,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

func (d NoteDocument) Kind() Kind       { return KindNoteDocument }
func (d NoteDocument) RecordID() string { return d.ID }

// NoteDocumentItem is a line of a NoteDocument.
type NoteDocumentItem struct {
	ID          string `json:"id"`
	DocumentID  string `json:"documentId"`
	Content     string `json:"content"`
	IsCompleted bool   `json:"isCompleted"`
	ItemOrder   int64  `json:"itemOrder"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

func (i NoteDocumentItem) Kind() Kind       { return KindNoteDocumentItem }
func (i NoteDocumentItem) RecordID() string { return i.ID }
func (i NoteDocumentItem) ParentKind() Kind { return KindNoteDocument }
func (i NoteDocumentItem) ParentID() string { return i.DocumentID }
func (i NoteDocumentItem) Position() int64  { return i.ItemOrder }

func (i NoteDocumentItem) WithPosition(pos int64) NoteDocumentItem {
	i.ItemOrder = pos
	return i
}

// Checklist groups checklist items under a project.
type Checklist struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
}

func (c Checklist) Kind() Kind       { return KindChecklist }
func (c Checklist) RecordID() string { return c.ID }

// ChecklistItem is one checkable line of a Checklist.
type ChecklistItem struct {
	ID          string `json:"id"`
	ChecklistID string `json:"checklistId"`
	Content     string `json:"content"`
	IsChecked   bool   `json:"isChecked"`
	ItemOrder   int64  `json:"itemOrder"`
}

func (i ChecklistItem) Kind() Kind       { return KindChecklistItem }
func (i ChecklistItem) RecordID() string { return i.ID }
func (i ChecklistItem) ParentKind() Kind { return KindChecklist }
func (i ChecklistItem) ParentID() string { return i.ChecklistID }
func (i ChecklistItem) Position() int64  { return i.ItemOrder }

func (i ChecklistItem) WithPosition(pos int64) ChecklistItem {
	i.ItemOrder = pos
	return i
}

// LinkData is the target of a LinkItem.
type LinkData struct {
	Type        string `json:"type"`
	Target      string `json:"target"`
	DisplayName string `json:"displayName,omitempty"`
}

// LinkItem is a saved link to a URL, a project, or another app object.
type LinkItem struct {
	ID        string   `json:"id"`
	LinkData  LinkData `json:"linkData"`
	CreatedAt int64    `json:"createdAt"`
}

func (l LinkItem) Kind() Kind       { return KindLinkItem }
func (l LinkItem) RecordID() string { return l.ID }

// InboxRecord is a quick capture waiting to be triaged into a project.
type InboxRecord struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Text      string `json:"text"`
	ItemOrder int64  `json:"itemOrder"`
	CreatedAt int64  `json:"createdAt"`
}

func (r InboxRecord) Kind() Kind       { return KindInboxRecord }
func (r InboxRecord) RecordID() string { return r.ID }
func (r InboxRecord) Position() int64  { return r.ItemOrder }

func (r InboxRecord) WithPosition(pos int64) InboxRecord {
	r.ItemOrder = pos
	return r
}

// ProjectExecutionLog records a status transition or note in a project's history.
type ProjectExecutionLog struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	Timestamp   int64  `json:"timestamp"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Details     string `json:"details,omitempty"`
}

func (l ProjectExecutionLog) Kind() Kind       { return KindExecutionLog }
func (l ProjectExecutionLog) RecordID() string { return l.ID }

// Script is a user-defined automation snippet.
type Script struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

func (s Script) Kind() Kind       { return KindScript }
func (s Script) RecordID() string { return s.ID }

// Attachment references an entity that can be shared between projects.
type Attachment struct {
	ID             string `json:"id"`
	AttachmentType string `json:"attachmentType"`
	EntityID       string `json:"entityId"`
	OwnerProjectID string `json:"ownerProjectId,omitempty"`
	CreatedAt      int64  `json:"createdAt"`
	UpdatedAt      int64  `json:"updatedAt"`
}

func (a Attachment) Kind() Kind       { return KindAttachment }
func (a Attachment) RecordID() string { return a.ID }

// ProjectAttachmentCrossRef links an Attachment into a Project.
type ProjectAttachmentCrossRef struct {
	ProjectID       string `json:"projectId"`
	AttachmentID    string `json:"attachmentId"`
	AttachmentOrder int64  `json:"attachmentOrder"`
}

func (r ProjectAttachmentCrossRef) Kind() Kind { return KindAttachmentCrossRef }

// RecordID is the composite key "projectId:attachmentId".
func (r ProjectAttachmentCrossRef) RecordID() string {
	return r.ProjectID + ":" + r.AttachmentID
}

// ParseCrossRefID splits a cross reference id into its two ends. Project ids
// never contain ':'.
func ParseCrossRefID(id string) (ProjectAttachmentCrossRef, error) {
	projectID, attachmentID, ok := strings.Cut(id, ":")
	if !ok || projectID == "" || attachmentID == "" {
		return ProjectAttachmentCrossRef{}, fmt.Errorf("invalid cross ref id %q: want projectId:attachmentId", id)
	}
	return ProjectAttachmentCrossRef{ProjectID: projectID, AttachmentID: attachmentID}, nil
}

// BacklogOrder positions a goal inside a project's backlog.
type BacklogOrder struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	ItemID    string `json:"itemId"`
	Order     int64  `json:"order"`
}

func (b BacklogOrder) Kind() Kind       { return KindBacklogOrder }
func (b BacklogOrder) RecordID() string { return b.ID }
func (b BacklogOrder) Position() int64  { return b.Order }

func (b BacklogOrder) WithPosition(pos int64) BacklogOrder {
	b.Order = pos
	return b
}

// LegacyNote is a plain-text note from before note documents existed.
type LegacyNote struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Content   string `json:"content,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

func (n LegacyNote) Kind() Kind       { return KindLegacyNote }
func (n LegacyNote) RecordID() string { return n.ID }

// ActivityRecord is a tracked time span. EndTime zero means still running.
type ActivityRecord struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId,omitempty"`
	Text      string `json:"text"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

func (a ActivityRecord) Kind() Kind       { return KindActivityRecord }
func (a ActivityRecord) RecordID() string { return a.ID }
