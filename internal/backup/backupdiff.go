package backup

import (
	"github.com/lherron/planbak/internal/domain"
	"github.com/lherron/planbak/internal/snapshot"
)

// BackupDiff holds one DiffResult per kind. Cross references are diffed by
// their composite id. Both full lists are kept as well so that removing a
// project or attachment can take every local link to it along.
type BackupDiff struct {
	Projects             DiffResult[domain.Project]                   `json:"projects"`
	Goals                DiffResult[domain.Goal]                      `json:"goals"`
	Scripts              DiffResult[domain.Script]                    `json:"scripts"`
	Checklists           DiffResult[domain.Checklist]                 `json:"checklists"`
	NoteDocuments        DiffResult[domain.NoteDocument]              `json:"noteDocuments"`
	Attachments          DiffResult[domain.Attachment]                `json:"attachments"`
	LinkItems            DiffResult[domain.LinkItem]                  `json:"linkItems"`
	InboxRecords         DiffResult[domain.InboxRecord]               `json:"inboxRecords"`
	ListItems            DiffResult[domain.ListItem]                  `json:"listItems"`
	ProjectExecutionLogs DiffResult[domain.ProjectExecutionLog]       `json:"projectExecutionLogs"`
	BacklogOrders        DiffResult[domain.BacklogOrder]              `json:"backlogOrders"`
	LegacyNotes          DiffResult[domain.LegacyNote]                `json:"legacyNotes"`
	ActivityRecords      DiffResult[domain.ActivityRecord]            `json:"activityRecords"`
	ChecklistItems       DiffResult[domain.ChecklistItem]             `json:"checklistItems"`
	NoteDocumentItems    DiffResult[domain.NoteDocumentItem]          `json:"noteDocumentItems"`
	CrossRefs            DiffResult[domain.ProjectAttachmentCrossRef] `json:"crossRefs"`

	LocalCrossRefs    []domain.ProjectAttachmentCrossRef `json:"localCrossRefs"`
	IncomingCrossRefs []domain.ProjectAttachmentCrossRef `json:"incomingCrossRefs"`
}

// ComputeBackupDiff diffs every collection of local against incoming.
func ComputeBackupDiff(local, incoming *snapshot.Snapshot) *BackupDiff {
	return &BackupDiff{
		Projects:             Diff(local.Projects, incoming.Projects),
		Goals:                Diff(local.Goals, incoming.Goals),
		Scripts:              Diff(local.Scripts, incoming.Scripts),
		Checklists:           Diff(local.Checklists, incoming.Checklists),
		NoteDocuments:        Diff(local.NoteDocuments, incoming.NoteDocuments),
		Attachments:          Diff(local.Attachments, incoming.Attachments),
		LinkItems:            Diff(local.LinkItems, incoming.LinkItems),
		InboxRecords:         Diff(local.InboxRecords, incoming.InboxRecords),
		ListItems:            Diff(local.ListItems, incoming.ListItems),
		ProjectExecutionLogs: Diff(local.ProjectExecutionLogs, incoming.ProjectExecutionLogs),
		BacklogOrders:        Diff(local.BacklogOrders, incoming.BacklogOrders),
		LegacyNotes:          Diff(local.LegacyNotes, incoming.LegacyNotes),
		ActivityRecords:      Diff(local.ActivityRecords, incoming.ActivityRecords),
		ChecklistItems:       Diff(local.ChecklistItems, incoming.ChecklistItems),
		NoteDocumentItems:    Diff(local.NoteDocumentItems, incoming.NoteDocumentItems),
		CrossRefs:            Diff(local.ProjectAttachmentCrossRefs, incoming.ProjectAttachmentCrossRefs),
		LocalCrossRefs:       local.ProjectAttachmentCrossRefs,
		IncomingCrossRefs:    incoming.ProjectAttachmentCrossRefs,
	}
}

// KindSummary counts the changes of one kind.
type KindSummary struct {
	Kind    domain.Kind `json:"kind"`
	Added   int         `json:"added"`
	Updated int         `json:"updated"`
	Deleted int         `json:"deleted"`
}

func summarize[T any](kind domain.Kind, d DiffResult[T]) KindSummary {
	return KindSummary{Kind: kind, Added: len(d.Added), Updated: len(d.Updated), Deleted: len(d.Deleted)}
}

// Summary returns change counts for every diffed kind, in write order.
func (d *BackupDiff) Summary() []KindSummary {
	return []KindSummary{
		summarize(domain.KindProject, d.Projects),
		summarize(domain.KindGoal, d.Goals),
		summarize(domain.KindScript, d.Scripts),
		summarize(domain.KindChecklist, d.Checklists),
		summarize(domain.KindNoteDocument, d.NoteDocuments),
		summarize(domain.KindAttachment, d.Attachments),
		summarize(domain.KindLinkItem, d.LinkItems),
		summarize(domain.KindInboxRecord, d.InboxRecords),
		summarize(domain.KindListItem, d.ListItems),
		summarize(domain.KindExecutionLog, d.ProjectExecutionLogs),
		summarize(domain.KindBacklogOrder, d.BacklogOrders),
		summarize(domain.KindLegacyNote, d.LegacyNotes),
		summarize(domain.KindActivityRecord, d.ActivityRecords),
		summarize(domain.KindChecklistItem, d.ChecklistItems),
		summarize(domain.KindNoteDocumentItem, d.NoteDocumentItems),
		summarize(domain.KindAttachmentCrossRef, d.CrossRefs),
	}
}

// IsEmpty reports whether no collection changed.
func (d *BackupDiff) IsEmpty() bool {
	for _, s := range d.Summary() {
		if s.Added+s.Updated+s.Deleted > 0 {
			return false
		}
	}
	return true
}

// Changes flattens the diff into selectable changes in write order.
func (d *BackupDiff) Changes() []Change {
	return ToSelectableContent(d).Changes()
}

// SelectableDatabaseContent is the review form of a BackupDiff.
type SelectableDatabaseContent struct {
	Projects             []SelectableDiffItem[domain.Project]                   `json:"projects"`
	Goals                []SelectableDiffItem[domain.Goal]                      `json:"goals"`
	Scripts              []SelectableDiffItem[domain.Script]                    `json:"scripts"`
	Checklists           []SelectableDiffItem[domain.Checklist]                 `json:"checklists"`
	NoteDocuments        []SelectableDiffItem[domain.NoteDocument]              `json:"noteDocuments"`
	Attachments          []SelectableDiffItem[domain.Attachment]                `json:"attachments"`
	LinkItems            []SelectableDiffItem[domain.LinkItem]                  `json:"linkItems"`
	InboxRecords         []SelectableDiffItem[domain.InboxRecord]               `json:"inboxRecords"`
	ListItems            []SelectableDiffItem[domain.ListItem]                  `json:"listItems"`
	ProjectExecutionLogs []SelectableDiffItem[domain.ProjectExecutionLog]       `json:"projectExecutionLogs"`
	BacklogOrders        []SelectableDiffItem[domain.BacklogOrder]              `json:"backlogOrders"`
	LegacyNotes          []SelectableDiffItem[domain.LegacyNote]                `json:"legacyNotes"`
	ActivityRecords      []SelectableDiffItem[domain.ActivityRecord]            `json:"activityRecords"`
	ChecklistItems       []SelectableDiffItem[domain.ChecklistItem]             `json:"checklistItems"`
	NoteDocumentItems    []SelectableDiffItem[domain.NoteDocumentItem]          `json:"noteDocumentItems"`
	CrossRefs            []SelectableDiffItem[domain.ProjectAttachmentCrossRef] `json:"crossRefs"`
}

// ToSelectableContent wraps every collection of d. Kinds with an explicit
// position get an order annotation on updates.
func ToSelectableContent(d *BackupDiff) *SelectableDatabaseContent {
	return &SelectableDatabaseContent{
		Projects:             ToSelectable(d.Projects, OrderChangeInfo[domain.Project]),
		Goals:                ToSelectable(d.Goals, nil),
		Scripts:              ToSelectable(d.Scripts, nil),
		Checklists:           ToSelectable(d.Checklists, nil),
		NoteDocuments:        ToSelectable(d.NoteDocuments, nil),
		Attachments:          ToSelectable(d.Attachments, nil),
		LinkItems:            ToSelectable(d.LinkItems, nil),
		InboxRecords:         ToSelectable(d.InboxRecords, OrderChangeInfo[domain.InboxRecord]),
		ListItems:            ToSelectable(d.ListItems, OrderChangeInfo[domain.ListItem]),
		ProjectExecutionLogs: ToSelectable(d.ProjectExecutionLogs, nil),
		BacklogOrders:        ToSelectable(d.BacklogOrders, OrderChangeInfo[domain.BacklogOrder]),
		LegacyNotes:          ToSelectable(d.LegacyNotes, nil),
		ActivityRecords:      ToSelectable(d.ActivityRecords, nil),
		ChecklistItems:       ToSelectable(d.ChecklistItems, OrderChangeInfo[domain.ChecklistItem]),
		NoteDocumentItems:    ToSelectable(d.NoteDocumentItems, OrderChangeInfo[domain.NoteDocumentItem]),
		CrossRefs:            ToSelectable(d.CrossRefs, nil),
	}
}

// Changes flattens c in write order.
func (c *SelectableDatabaseContent) Changes() []Change {
	var out []Change
	out = appendChanges(out, c.Projects)
	out = appendChanges(out, c.Goals)
	out = appendChanges(out, c.Scripts)
	out = appendChanges(out, c.Checklists)
	out = appendChanges(out, c.NoteDocuments)
	out = appendChanges(out, c.Attachments)
	out = appendChanges(out, c.LinkItems)
	out = appendChanges(out, c.InboxRecords)
	out = appendChanges(out, c.ListItems)
	out = appendChanges(out, c.ProjectExecutionLogs)
	out = appendChanges(out, c.BacklogOrders)
	out = appendChanges(out, c.LegacyNotes)
	out = appendChanges(out, c.ActivityRecords)
	out = appendChanges(out, c.ChecklistItems)
	out = appendChanges(out, c.NoteDocumentItems)
	out = appendChanges(out, c.CrossRefs)
	return out
}
