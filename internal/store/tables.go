package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lherron/planbak/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

// table maps one record kind onto its SQLite table. cols lists the key
// columns first; values returns arguments in cols order.
type table struct {
	name   string
	keys   int
	cols   []string
	values func(rec domain.Record) ([]any, error)
	scan   func(row scanner) (domain.Record, error)
}

func (t table) insertSQL() string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(t.cols, ", "), marks)
}

func (t table) updateSQL() string {
	sets := make([]string, 0, len(t.cols)-t.keys)
	for _, col := range t.cols[t.keys:] {
		sets = append(sets, col+" = ?")
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", t.name, strings.Join(sets, ", "), t.where())
}

func (t table) deleteSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s", t.name, t.where())
}

func (t table) selectSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(t.cols, ", "), t.name,
		strings.Join(t.cols[:t.keys], ", "))
}

func (t table) where() string {
	conds := make([]string, t.keys)
	for i, col := range t.cols[:t.keys] {
		conds[i] = col + " = ?"
	}
	return strings.Join(conds, " AND ")
}

// updateArgs moves the key values behind the SET values.
func (t table) updateArgs(vals []any) []any {
	args := make([]any, 0, len(vals))
	args = append(args, vals[t.keys:]...)
	return append(args, vals[:t.keys]...)
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}

func decodeTags(raw string) ([]string, error) {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags %q: %w", raw, err)
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return tags, nil
}

func wrongType(want string, rec domain.Record) error {
	return fmt.Errorf("expected %s, got %T", want, rec)
}

var tables = map[domain.Kind]table{
	domain.KindProject: {
		name: "projects",
		keys: 1,
		cols: []string{"id", "name", "description", "parent_id", "sort_order", "is_expanded", "is_completed", "tags", "created_at", "updated_at"},
		values: func(rec domain.Record) ([]any, error) {
			p, ok := rec.(domain.Project)
			if !ok {
				return nil, wrongType("project", rec)
			}
			tags, err := encodeTags(p.Tags)
			if err != nil {
				return nil, err
			}
			return []any{p.ID, p.Name, p.Description, p.ParentID, p.Order, p.IsExpanded, p.IsCompleted, tags, p.CreatedAt, p.UpdatedAt}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var p domain.Project
			var tags string
			if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ParentID, &p.Order, &p.IsExpanded, &p.IsCompleted, &tags, &p.CreatedAt, &p.UpdatedAt); err != nil {
				return nil, err
			}
			var err error
			p.Tags, err = decodeTags(tags)
			return p, err
		},
	},
	domain.KindGoal: {
		name: "goals",
		keys: 1,
		cols: []string{"id", "text", "description", "is_completed", "tags", "created_at", "updated_at", "completed_at"},
		values: func(rec domain.Record) ([]any, error) {
			g, ok := rec.(domain.Goal)
			if !ok {
				return nil, wrongType("goal", rec)
			}
			tags, err := encodeTags(g.Tags)
			if err != nil {
				return nil, err
			}
			return []any{g.ID, g.Text, g.Description, g.IsCompleted, tags, g.CreatedAt, g.UpdatedAt, g.CompletedAt}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var g domain.Goal
			var tags string
			if err := row.Scan(&g.ID, &g.Text, &g.Description, &g.IsCompleted, &tags, &g.CreatedAt, &g.UpdatedAt, &g.CompletedAt); err != nil {
				return nil, err
			}
			var err error
			g.Tags, err = decodeTags(tags)
			return g, err
		},
	},
	domain.KindScript: {
		name: "scripts",
		keys: 1,
		cols: []string{"id", "name", "description", "content", "created_at", "updated_at"},
		values: func(rec domain.Record) ([]any, error) {
			s, ok := rec.(domain.Script)
			if !ok {
				return nil, wrongType("script", rec)
			}
			return []any{s.ID, s.Name, s.Description, s.Content, s.CreatedAt, s.UpdatedAt}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var s domain.Script
			err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Content, &s.CreatedAt, &s.UpdatedAt)
			return s, err
		},
	},
	domain.KindChecklist: {
		name: "checklists",
		keys: 1,
		cols: []string{"id", "project_id", "name"},
		values: func(rec domain.Record) ([]any, error) {
			c, ok := rec.(domain.Checklist)
			if !ok {
				return nil, wrongType("checklist", rec)
			}
			return []any{c.ID, c.ProjectID, c.Name}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var c domain.Checklist
			err := row.Scan(&c.ID, &c.ProjectID, &c.Name)
			return c, err
		},
	},
	domain.KindNoteDocument: {
		name: "note_documents",
		keys: 1,
		cols: []string{"id", "project_id", "name", "content", "created_at", "updated_at"},
		values: func(rec domain.Record) ([]any, error) {
			d, ok := rec.(domain.NoteDocument)
			if !ok {
				return nil, wrongType("note document", rec)
			}
			return []any{d.ID, d.ProjectID, d.Name, d.Content, d.CreatedAt, d.UpdatedAt}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var d domain.NoteDocument
			err := row.Scan(&d.ID, &d.ProjectID, &d.Name, &d.Content, &d.CreatedAt, &d.UpdatedAt)
			return d, err
		},
	},
	domain.KindAttachment: {
		name: "attachments",
		keys: 1,
		cols: []string{"id", "attachment_type", "entity_id", "owner_project_id", "created_at", "updated_at"},
		values: func(rec domain.Record) ([]any, error) {
			a, ok := rec.(domain.Attachment)
			if !ok {
				return nil, wrongType("attachment", rec)
			}
			return []any{a.ID, a.AttachmentType, a.EntityID, a.OwnerProjectID, a.CreatedAt, a.UpdatedAt}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var a domain.Attachment
			err := row.Scan(&a.ID, &a.AttachmentType, &a.EntityID, &a.OwnerProjectID, &a.CreatedAt, &a.UpdatedAt)
			return a, err
		},
	},
	domain.KindLinkItem: {
		name: "link_items",
		keys: 1,
		cols: []string{"id", "link_type", "target", "display_name", "created_at"},
		values: func(rec domain.Record) ([]any, error) {
			l, ok := rec.(domain.LinkItem)
			if !ok {
				return nil, wrongType("link item", rec)
			}
			return []any{l.ID, l.LinkData.Type, l.LinkData.Target, l.LinkData.DisplayName, l.CreatedAt}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var l domain.LinkItem
			err := row.Scan(&l.ID, &l.LinkData.Type, &l.LinkData.Target, &l.LinkData.DisplayName, &l.CreatedAt)
			return l, err
		},
	},
	domain.KindInboxRecord: {
		name: "inbox_records",
		keys: 1,
		cols: []string{"id", "project_id", "text", "item_order", "created_at"},
		values: func(rec domain.Record) ([]any, error) {
			r, ok := rec.(domain.InboxRecord)
			if !ok {
				return nil, wrongType("inbox record", rec)
			}
			return []any{r.ID, r.ProjectID, r.Text, r.ItemOrder, r.CreatedAt}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var r domain.InboxRecord
			err := row.Scan(&r.ID, &r.ProjectID, &r.Text, &r.ItemOrder, &r.CreatedAt)
			return r, err
		},
	},
	domain.KindListItem: {
		name: "list_items",
		keys: 1,
		cols: []string{"id", "project_id", "entity_id", "item_type", "sort_order"},
		values: func(rec domain.Record) ([]any, error) {
			l, ok := rec.(domain.ListItem)
			if !ok {
				return nil, wrongType("list item", rec)
			}
			return []any{l.ID, l.ProjectID, l.EntityID, l.ItemType, l.Order}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var l domain.ListItem
			err := row.Scan(&l.ID, &l.ProjectID, &l.EntityID, &l.ItemType, &l.Order)
			return l, err
		},
	},
	domain.KindExecutionLog: {
		name: "project_execution_logs",
		keys: 1,
		cols: []string{"id", "project_id", "timestamp", "type", "description", "details"},
		values: func(rec domain.Record) ([]any, error) {
			l, ok := rec.(domain.ProjectExecutionLog)
			if !ok {
				return nil, wrongType("execution log", rec)
			}
			return []any{l.ID, l.ProjectID, l.Timestamp, l.Type, l.Description, l.Details}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var l domain.ProjectExecutionLog
			err := row.Scan(&l.ID, &l.ProjectID, &l.Timestamp, &l.Type, &l.Description, &l.Details)
			return l, err
		},
	},
	domain.KindBacklogOrder: {
		name: "backlog_orders",
		keys: 1,
		cols: []string{"id", "project_id", "item_id", "sort_order"},
		values: func(rec domain.Record) ([]any, error) {
			b, ok := rec.(domain.BacklogOrder)
			if !ok {
				return nil, wrongType("backlog order", rec)
			}
			return []any{b.ID, b.ProjectID, b.ItemID, b.Order}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var b domain.BacklogOrder
			err := row.Scan(&b.ID, &b.ProjectID, &b.ItemID, &b.Order)
			return b, err
		},
	},
	domain.KindLegacyNote: {
		name: "legacy_notes",
		keys: 1,
		cols: []string{"id", "project_id", "title", "content", "created_at", "updated_at"},
		values: func(rec domain.Record) ([]any, error) {
			n, ok := rec.(domain.LegacyNote)
			if !ok {
				return nil, wrongType("legacy note", rec)
			}
			return []any{n.ID, n.ProjectID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var n domain.LegacyNote
			err := row.Scan(&n.ID, &n.ProjectID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
			return n, err
		},
	},
	domain.KindActivityRecord: {
		name: "activity_records",
		keys: 1,
		cols: []string{"id", "project_id", "text", "start_time", "end_time", "created_at"},
		values: func(rec domain.Record) ([]any, error) {
			a, ok := rec.(domain.ActivityRecord)
			if !ok {
				return nil, wrongType("activity record", rec)
			}
			return []any{a.ID, a.ProjectID, a.Text, a.StartTime, a.EndTime, a.CreatedAt}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var a domain.ActivityRecord
			err := row.Scan(&a.ID, &a.ProjectID, &a.Text, &a.StartTime, &a.EndTime, &a.CreatedAt)
			return a, err
		},
	},
	domain.KindChecklistItem: {
		name: "checklist_items",
		keys: 1,
		cols: []string{"id", "checklist_id", "content", "is_checked", "item_order"},
		values: func(rec domain.Record) ([]any, error) {
			i, ok := rec.(domain.ChecklistItem)
			if !ok {
				return nil, wrongType("checklist item", rec)
			}
			return []any{i.ID, i.ChecklistID, i.Content, i.IsChecked, i.ItemOrder}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var i domain.ChecklistItem
			err := row.Scan(&i.ID, &i.ChecklistID, &i.Content, &i.IsChecked, &i.ItemOrder)
			return i, err
		},
	},
	domain.KindNoteDocumentItem: {
		name: "note_document_items",
		keys: 1,
		cols: []string{"id", "document_id", "content", "is_completed", "item_order", "created_at", "updated_at"},
		values: func(rec domain.Record) ([]any, error) {
			i, ok := rec.(domain.NoteDocumentItem)
			if !ok {
				return nil, wrongType("note document item", rec)
			}
			return []any{i.ID, i.DocumentID, i.Content, i.IsCompleted, i.ItemOrder, i.CreatedAt, i.UpdatedAt}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var i domain.NoteDocumentItem
			err := row.Scan(&i.ID, &i.DocumentID, &i.Content, &i.IsCompleted, &i.ItemOrder, &i.CreatedAt, &i.UpdatedAt)
			return i, err
		},
	},
	domain.KindAttachmentCrossRef: {
		name: "project_attachment_cross_refs",
		keys: 2,
		cols: []string{"project_id", "attachment_id", "attachment_order"},
		values: func(rec domain.Record) ([]any, error) {
			r, ok := rec.(domain.ProjectAttachmentCrossRef)
			if !ok {
				return nil, wrongType("attachment cross ref", rec)
			}
			return []any{r.ProjectID, r.AttachmentID, r.AttachmentOrder}, nil
		},
		scan: func(row scanner) (domain.Record, error) {
			var r domain.ProjectAttachmentCrossRef
			err := row.Scan(&r.ProjectID, &r.AttachmentID, &r.AttachmentOrder)
			return r, err
		},
	},
}

func tableFor(kind domain.Kind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("no table for kind %q", kind)
	}
	return t, nil
}
