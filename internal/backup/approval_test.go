package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/planbak/internal/domain"
	"github.com/lherron/planbak/internal/snapshot"
)

func approvalFixture(t *testing.T) (*ApprovalSet, []Change) {
	t.Helper()
	local := snapshot.New()
	local.Goals = []domain.Goal{goal("a", "A"), goal("b", "B")}
	local.Checklists = []domain.Checklist{{ID: "cl", ProjectID: "p", Name: "old"}}
	local.ChecklistItems = []domain.ChecklistItem{{ID: "cl-1", ChecklistID: "cl", Content: "x"}}

	incoming := snapshot.New()
	incoming.Goals = []domain.Goal{goal("b", "B2"), goal("c", "C")}

	changes := ComputeBackupDiff(local, incoming).Changes()
	require.Len(t, changes, 5)
	return NewApprovalSet(changes), changes
}

func TestApprovalSet_StartsWithEverything(t *testing.T) {
	set, changes := approvalFixture(t)

	assert.Equal(t, len(changes), set.Len())
	for _, c := range changes {
		assert.True(t, set.Contains(c.Key), c.Key.String())
	}
	assert.Equal(t,
		[]string{"aDeleted", "bUpdated", "cAdded", "cl-1Deleted", "clDeleted"},
		set.Strings())
}

func TestApprovalSet_SelectRecommended(t *testing.T) {
	set, changes := approvalFixture(t)
	set.DeselectAll()
	require.Zero(t, set.Len())

	set.SelectRecommended()

	for _, c := range changes {
		if c.Key.Kind == Deleted {
			assert.False(t, set.Contains(c.Key), c.Key.String())
		} else {
			assert.True(t, set.Contains(c.Key), c.Key.String())
		}
	}
	for _, key := range set.Keys() {
		assert.NotEqual(t, Deleted, key.Kind)
	}
}

func TestApprovalSet_SelectAllDeselectAll(t *testing.T) {
	set, changes := approvalFixture(t)

	set.DeselectAll()
	assert.Empty(t, set.Keys())

	set.SelectAll()
	assert.Equal(t, len(changes), set.Len())
}

func TestApprovalSet_Toggle(t *testing.T) {
	set, _ := approvalFixture(t)
	key := ChangeKey{RecordID: "c", Kind: Added}

	on, err := set.Toggle(key)
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, set.Contains(key))

	on, err = set.Toggle(key)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, set.Contains(key))

	_, err = set.Toggle(ChangeKey{RecordID: "c", Kind: Deleted})
	assert.ErrorIs(t, err, ErrUnknownChange)
}

func TestApprovalSet_ExplicitDeleteApproval(t *testing.T) {
	set, _ := approvalFixture(t)
	set.SelectRecommended()

	key := ChangeKey{RecordID: "a", Kind: Deleted}
	require.NoError(t, set.Approve(key))
	assert.True(t, set.Contains(key))

	require.NoError(t, set.Revoke(key))
	assert.False(t, set.Contains(key))

	assert.ErrorIs(t, set.Approve(ChangeKey{RecordID: "zzz", Kind: Added}), ErrUnknownChange)
}

func TestApprovalSet_ApproveStrings(t *testing.T) {
	set, _ := approvalFixture(t)
	set.DeselectAll()

	require.NoError(t, set.ApproveStrings([]string{"bUpdated", "aDeleted"}))
	assert.Equal(t, []string{"aDeleted", "bUpdated"}, set.Strings())

	err := set.ApproveStrings([]string{"cAdded", "nope"})
	assert.ErrorIs(t, err, ErrInvalidChangeKey)
	assert.False(t, set.Contains(ChangeKey{RecordID: "c", Kind: Added}), "a failed call approves nothing")

	err = set.ApproveStrings([]string{"cUpdated"})
	assert.ErrorIs(t, err, ErrUnknownChange)
}

func TestApprovalSet_Patterns(t *testing.T) {
	set, _ := approvalFixture(t)
	set.DeselectAll()

	require.NoError(t, set.ApproveStrings([]string{"*Deleted"}))
	assert.Equal(t, []string{"aDeleted", "cl-1Deleted", "clDeleted"}, set.Strings())

	require.NoError(t, set.RevokeStrings([]string{"cl*"}))
	assert.Equal(t, []string{"aDeleted"}, set.Strings())

	require.NoError(t, set.ApproveStrings([]string{"?Updated", "cAdded"}))
	assert.Equal(t, []string{"aDeleted", "bUpdated", "cAdded"}, set.Strings())

	err := set.ApproveStrings([]string{"clDeleted", "*Moved"})
	assert.ErrorIs(t, err, ErrUnknownChange)
	assert.False(t, set.Contains(ChangeKey{RecordID: "cl", Kind: Deleted}), "a failed call approves nothing")

	_, err = set.Matching("[")
	assert.Error(t, err)

	matched, err := set.Matching("c*")
	require.NoError(t, err)
	assert.Len(t, matched, 3)
}

func TestApprovalSet_RevokeStrings(t *testing.T) {
	set, _ := approvalFixture(t)

	require.NoError(t, set.RevokeStrings([]string{"aDeleted", "bUpdated"}))
	assert.Equal(t, []string{"cAdded", "cl-1Deleted", "clDeleted"}, set.Strings())

	assert.ErrorIs(t, set.RevokeStrings([]string{"zAdded"}), ErrUnknownChange)
	assert.ErrorIs(t, set.RevokeStrings([]string{"z"}), ErrInvalidChangeKey)
}
