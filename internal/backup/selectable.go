package backup

import "github.com/lherron/planbak/internal/domain"

// SelectableDiffItem wraps one change with its review state. Previous is the
// local value for updates. An empty ChangeInfo means no annotation.
type SelectableDiffItem[T domain.Record] struct {
	Item         T          `json:"item"`
	Previous     *T         `json:"previous,omitempty"`
	Status       ChangeKind `json:"status"`
	IsSelected   bool       `json:"isSelected"`
	IsSelectable bool       `json:"isSelectable"`
	ChangeInfo   string     `json:"changeInfo,omitempty"`
}

// Key returns the approval key of the item.
func (s SelectableDiffItem[T]) Key() ChangeKey {
	return ChangeKey{RecordID: s.Item.RecordID(), Kind: s.Status}
}

// Annotator produces the change info for an updated pair. Nil means none.
type Annotator[T any] func(local, incoming T) string

// ToSelectable wraps a diff result with the default selection policy: added
// and updated items start selected and selectable, deleted items start
// unselected and unselectable. Dependent records are never selectable on
// their own. Items are ordered added, updated, deleted.
func ToSelectable[T domain.Record](diff DiffResult[T], annotate Annotator[T]) []SelectableDiffItem[T] {
	items := make([]SelectableDiffItem[T], 0, diff.Len())

	for _, rec := range diff.Added {
		items = append(items, SelectableDiffItem[T]{
			Item:         rec,
			Status:       Added,
			IsSelected:   true,
			IsSelectable: !rec.Kind().IsDependent(),
		})
	}

	for _, pair := range diff.Updated {
		local := pair.Local
		item := SelectableDiffItem[T]{
			Item:         pair.Incoming,
			Previous:     &local,
			Status:       Updated,
			IsSelected:   true,
			IsSelectable: !pair.Incoming.Kind().IsDependent(),
		}
		if annotate != nil {
			item.ChangeInfo = annotate(pair.Local, pair.Incoming)
		}
		items = append(items, item)
	}

	for _, rec := range diff.Deleted {
		items = append(items, SelectableDiffItem[T]{
			Item:         rec,
			Status:       Deleted,
			IsSelected:   false,
			IsSelectable: false,
		})
	}

	return items
}

func appendChanges[T domain.Record](out []Change, items []SelectableDiffItem[T]) []Change {
	for _, item := range items {
		change := Change{
			Key:        item.Key(),
			Entity:     item.Item.Kind(),
			Record:     item.Item,
			ChangeInfo: item.ChangeInfo,
			Selected:   item.IsSelected,
			Selectable: item.IsSelectable,
		}
		if item.Previous != nil {
			change.Local = *item.Previous
		}
		switch rec := any(item.Item).(type) {
		case domain.Dependent:
			change.Parent = &ParentRef{Kind: rec.ParentKind(), ID: rec.ParentID()}
		case domain.ProjectAttachmentCrossRef:
			// Listed under the project. Plan resolves both ends.
			change.Parent = &ParentRef{Kind: domain.KindProject, ID: rec.ProjectID}
		}
		out = append(out, change)
	}
	return out
}
