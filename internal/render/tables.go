package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/lherron/planbak/internal/archive"
	"github.com/lherron/planbak/internal/backup"
	"github.com/lherron/planbak/internal/domain"
)

const labelWidth = 48

func (r *Renderer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.writer)
	t.SetStyle(table.StyleLight)
	return t
}

// SummaryTable renders per-kind change counts. Kinds without changes are
// left out.
func (r *Renderer) SummaryTable(summary []backup.KindSummary) {
	t := r.newTable()
	t.AppendHeader(table.Row{"Kind", "Added", "Updated", "Deleted"})

	var added, updated, deleted int
	for _, s := range summary {
		if s.Added+s.Updated+s.Deleted == 0 {
			continue
		}
		t.AppendRow(table.Row{s.Kind, s.Added, s.Updated, s.Deleted})
		added += s.Added
		updated += s.Updated
		deleted += s.Deleted
	}

	t.AppendFooter(table.Row{"Total", added, updated, deleted})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}

// ChangeTable renders the change list with the selection state from
// approvals. A nil approvals shows each change's default selection.
func (r *Renderer) ChangeTable(changes []backup.Change, approvals *backup.ApprovalSet) {
	t := r.newTable()
	t.AppendHeader(table.Row{"", "Key", "Kind", "Record", "Info"})

	for _, c := range changes {
		selected := c.Selected
		if approvals != nil {
			selected = approvals.Contains(c.Key)
		}
		t.AppendRow(table.Row{
			selectionMark(selected, c.Selectable),
			c.Key.String(),
			c.Entity,
			truncate(Label(c.Record), labelWidth),
			changeInfo(c),
		})
	}

	t.Render()
}

func selectionMark(selected, selectable bool) string {
	switch {
	case selected && selectable:
		return "[x]"
	case selectable:
		return "[ ]"
	case selected:
		return " x "
	default:
		return "   "
	}
}

func changeInfo(c backup.Change) string {
	info := c.ChangeInfo
	if c.Parent != nil {
		follows := fmt.Sprintf("in %s %s", c.Parent.Kind, c.Parent.ID)
		if info == "" {
			return follows
		}
		return info + "; " + follows
	}
	return info
}

// PlanTable renders planned writes in execution order.
func (r *Renderer) PlanTable(ops []backup.Operation) {
	t := r.newTable()
	t.AppendHeader(table.Row{"#", "Op", "Kind", "Id", "Change"})
	for i, op := range ops {
		t.AppendRow(table.Row{i + 1, op.Op, op.Record.Kind(), op.Record.RecordID(), op.Key.String()})
	}
	t.Render()
}

// ApplyResultTable renders the counts of an apply.
func (r *Renderer) ApplyResultTable(res *backup.ApplyResult) {
	t := r.newTable()
	t.AppendHeader(table.Row{"Inserted", "Updated", "Deleted", "Cross refs written", "Cross refs removed"})
	t.AppendRow(table.Row{res.Inserted, res.Updated, res.Deleted, res.CrossRefsWritten, res.CrossRefsRemoved})
	t.Render()
}

// CountTable renders record counts per kind.
func (r *Renderer) CountTable(kinds []domain.Kind, counts map[domain.Kind]int) {
	t := r.newTable()
	t.AppendHeader(table.Row{"Kind", "Records"})
	for _, k := range kinds {
		t.AppendRow(table.Row{k, counts[k]})
	}
	t.Render()
}

// EntryTable renders archive entries.
func (r *Renderer) EntryTable(entries []archive.Entry) {
	t := r.newTable()
	t.AppendHeader(table.Row{"Name", "Size", "Modified"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Name, e.Size, e.ModTime.Local().Format("2006-01-02 15:04:05")})
	}
	t.Render()
}

// Label returns a short human description of rec.
func Label(rec domain.Record) string {
	switch r := rec.(type) {
	case domain.Project:
		return r.Name
	case domain.Goal:
		return r.Text
	case domain.ListItem:
		return r.ItemType + " " + r.EntityID
	case domain.NoteDocument:
		return r.Name
	case domain.NoteDocumentItem:
		return r.Content
	case domain.Checklist:
		return r.Name
	case domain.ChecklistItem:
		return r.Content
	case domain.LinkItem:
		if r.LinkData.DisplayName != "" {
			return r.LinkData.DisplayName
		}
		return r.LinkData.Target
	case domain.InboxRecord:
		return r.Text
	case domain.ProjectExecutionLog:
		return r.Type + ": " + r.Description
	case domain.Script:
		return r.Name
	case domain.Attachment:
		return r.AttachmentType + " " + r.EntityID
	case domain.ProjectAttachmentCrossRef:
		return r.ProjectID + " ↔ " + r.AttachmentID
	case domain.BacklogOrder:
		return r.ItemID
	case domain.LegacyNote:
		return r.Title
	case domain.ActivityRecord:
		return r.Text
	case nil:
		return ""
	default:
		return rec.RecordID()
	}
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if text.StringWidthWithoutEscSequences(s) <= width {
		return s
	}
	return text.Trim(s, width-1) + "…"
}

// UnifiedRecordDiff returns a unified diff between the indented JSON of the
// local and incoming versions of a record.
func UnifiedRecordDiff(local, incoming domain.Record) (string, error) {
	a, err := json.MarshalIndent(local, "", "  ")
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(incoming, "", "  ")
	if err != nil {
		return "", err
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a) + "\n"),
		B:        difflib.SplitLines(string(b) + "\n"),
		FromFile: "local",
		ToFile:   "incoming",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// RecordDiffs writes a unified diff for every updated change.
func (r *Renderer) RecordDiffs(changes []backup.Change) error {
	for _, c := range changes {
		if c.Key.Kind != backup.Updated || c.Local == nil {
			continue
		}
		diff, err := UnifiedRecordDiff(c.Local, c.Record)
		if err != nil {
			return fmt.Errorf("failed to diff %s %s: %w", c.Entity, c.Key.RecordID, err)
		}
		r.Printf("%s %s\n%s\n", c.Entity, c.Key.RecordID, diff)
	}
	return nil
}
