package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/planbak/internal/domain"
)

func TestOrderChangeInfo(t *testing.T) {
	tests := []struct {
		name     string
		local    domain.ListItem
		incoming domain.ListItem
		want     string
	}{
		{
			name:     "pure reorder",
			local:    listItem("x", 0, "A"),
			incoming: listItem("x", 3, "A"),
			want:     "Order: 0 → 3",
		},
		{
			name:     "reorder with other changes",
			local:    listItem("x", 0, "A"),
			incoming: listItem("x", 3, "B"),
			want:     "Order: 0 → 3, other changes",
		},
		{
			name:     "same position",
			local:    listItem("x", 2, "A"),
			incoming: listItem("x", 2, "B"),
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OrderChangeInfo(tt.local, tt.incoming))
		})
	}
}

func TestToSelectable_ReorderScenarios(t *testing.T) {
	local := []domain.ListItem{listItem("x", 0, "A")}

	reorder := ToSelectable(Diff(local, []domain.ListItem{listItem("x", 3, "A")}), OrderChangeInfo[domain.ListItem])
	require.Len(t, reorder, 1)
	assert.Equal(t, Updated, reorder[0].Status)
	assert.Equal(t, "Order: 0 → 3", reorder[0].ChangeInfo)

	mixed := ToSelectable(Diff(local, []domain.ListItem{listItem("x", 3, "B")}), OrderChangeInfo[domain.ListItem])
	require.Len(t, mixed, 1)
	assert.Equal(t, Updated, mixed[0].Status)
	assert.Equal(t, "Order: 0 → 3, other changes", mixed[0].ChangeInfo)
	require.NotNil(t, mixed[0].Previous)
	assert.Equal(t, "A", mixed[0].Previous.EntityID)
	assert.Equal(t, "B", mixed[0].Item.EntityID)
}

func TestToSelectable_DefaultPolicy(t *testing.T) {
	local := []domain.Goal{goal("a", "A"), goal("b", "B")}
	incoming := []domain.Goal{goal("b", "B2"), goal("c", "C")}

	items := ToSelectable(Diff(local, incoming), nil)
	require.Len(t, items, 3)

	// added, updated, deleted
	assert.Equal(t, []ChangeKind{Added, Updated, Deleted},
		[]ChangeKind{items[0].Status, items[1].Status, items[2].Status})

	for _, item := range items {
		switch item.Status {
		case Added, Updated:
			assert.True(t, item.IsSelected, item.Key().String())
			assert.True(t, item.IsSelectable, item.Key().String())
		case Deleted:
			assert.False(t, item.IsSelected, item.Key().String())
			assert.False(t, item.IsSelectable, item.Key().String())
		}
	}
	assert.Empty(t, items[1].ChangeInfo)
	assert.Equal(t, ChangeKey{RecordID: "c", Kind: Added}, items[0].Key())
}

func TestToSelectable_DependentsNotSelectable(t *testing.T) {
	local := []domain.ChecklistItem{
		{ID: "old", ChecklistID: "cl", Content: "gone"},
		{ID: "moved", ChecklistID: "cl", Content: "same", ItemOrder: 0},
	}
	incoming := []domain.ChecklistItem{
		{ID: "moved", ChecklistID: "cl", Content: "same", ItemOrder: 4},
		{ID: "new", ChecklistID: "cl", Content: "fresh"},
	}

	items := ToSelectable(Diff(local, incoming), OrderChangeInfo[domain.ChecklistItem])
	require.Len(t, items, 3)
	for _, item := range items {
		assert.False(t, item.IsSelectable, item.Key().String())
		assert.Equal(t, item.Status != Deleted, item.IsSelected, item.Key().String())
	}
	assert.Equal(t, "Order: 0 → 4", items[1].ChangeInfo)
}

func TestSelectableDatabaseContent_Changes(t *testing.T) {
	local := fixtureSnapshot()
	incoming := fixtureSnapshot()
	incoming.Projects[1].Order = 5
	incoming.NoteDocumentItems[0].Content = "Brandywine"
	incoming.Goals = append(incoming.Goals, goal("g3", "Compost"))
	incoming.Scripts = nil

	changes := ToSelectableContent(ComputeBackupDiff(local, incoming)).Changes()
	require.Len(t, changes, 4)

	byKey := make(map[string]Change)
	for _, c := range changes {
		byKey[c.Key.String()] = c
	}

	project := byKey["p-childUpdated"]
	assert.Equal(t, domain.KindProject, project.Entity)
	assert.Equal(t, "Order: 1 → 5", project.ChangeInfo)
	assert.Equal(t, int64(1), project.Local.(domain.Project).Order)

	item := byKey["doc1-i1Updated"]
	require.NotNil(t, item.Parent)
	assert.Equal(t, ParentRef{Kind: domain.KindNoteDocument, ID: "doc1"}, *item.Parent)
	assert.False(t, item.Selectable)
	assert.Empty(t, item.ChangeInfo)

	assert.Equal(t, domain.KindGoal, byKey["g3Added"].Entity)

	script := byKey["sc1Deleted"]
	assert.False(t, script.Selected)
	assert.Equal(t, "sc1", script.Record.RecordID())

	// write order: projects before goals before scripts before dependents
	assert.Equal(t, "p-childUpdated", changes[0].Key.String())
	assert.Equal(t, "doc1-i1Updated", changes[3].Key.String())
}
