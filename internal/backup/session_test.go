package backup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lherron/planbak/internal/domain"
	"github.com/lherron/planbak/internal/snapshot"
)

func TestNewSession_MalformedPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty", payload: ""},
		{name: "not json", payload: "projects: []"},
		{name: "wrong shape", payload: `{"meta":{"schemaVersion":1},"projects":{"id":"x"}}`},
		{name: "unknown collection", payload: `{"meta":{"schemaVersion":1},"tasks":[]}`},
		{name: "missing schema version", payload: `{"projects":[]}`},
		{name: "future schema version", payload: `{"meta":{"schemaVersion":99}}`},
		{name: "duplicate id", payload: `{"meta":{"schemaVersion":1},"goals":[{"id":"g","text":"a","createdAt":0,"updatedAt":0},{"id":"g","text":"b","createdAt":0,"updatedAt":0}]}`},
		{name: "orphan dependent", payload: `{"meta":{"schemaVersion":1},"checklistItems":[{"id":"i","checklistId":"missing","content":"x","isChecked":false,"itemOrder":0}]}`},
		{name: "trailing data", payload: `{"meta":{"schemaVersion":1}} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSession(snapshot.New(), tt.payload, zap.NewNop())
			require.Error(t, err)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, snapshot.ErrMalformedSnapshot)
		})
	}
}

func TestNewSession_ApprovesEverything(t *testing.T) {
	local := fixtureSnapshot()
	incoming := fixtureSnapshot()
	incoming.Goals[0].Text = "Plant peppers"
	incoming.Goals = append(incoming.Goals, goal("g9", "new"))
	incoming.LegacyNotes = nil

	s, err := NewSession(local, payloadOf(incoming), zap.NewNop())
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Contains(t, s.IncomingRev, "sha256:")
	assert.Equal(t, 3, s.Approvals.Len())
	assert.Len(t, s.Changes(), 3)

	summary := s.Summary()
	require.Equal(t, domain.KindGoal, summary[1].Kind)
	assert.Equal(t, KindSummary{Kind: domain.KindGoal, Added: 1, Updated: 1}, summary[1])
}

func TestNewSession_KeepsStampedRev(t *testing.T) {
	incoming := fixtureSnapshot()
	data, err := snapshot.Stamp(incoming, time.Now())
	require.NoError(t, err)

	s, err := NewSession(snapshot.New(), string(data), nil)
	require.NoError(t, err)
	assert.Equal(t, incoming.Meta.SnapshotRev, s.IncomingRev)
}

func TestNewSession_SessionsAreIndependent(t *testing.T) {
	incoming := snapshot.New()
	incoming.Goals = []domain.Goal{goal("a", "A")}
	payload := payloadOf(incoming)

	first, err := NewSession(snapshot.New(), payload, zap.NewNop())
	require.NoError(t, err)
	second, err := NewSession(snapshot.New(), payload, zap.NewNop())
	require.NoError(t, err)

	first.Approvals.DeselectAll()
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, second.Approvals.Len())
}

func TestSession_ApplyAndRetry(t *testing.T) {
	local := snapshot.New()
	incoming := snapshot.New()
	incoming.Goals = []domain.Goal{goal("a", "A"), goal("b", "B"), goal("c", "C")}

	s, err := NewSession(local, payloadOf(incoming), zap.NewNop())
	require.NoError(t, err)

	store := storeFromSnapshot(local)
	store.failAt = 2

	_, err = s.Apply(context.Background(), store)
	require.Error(t, err)
	assert.Empty(t, store.records)
	assert.Equal(t, 3, s.Approvals.Len())

	store.failAt = 0
	require.NoError(t, s.Approvals.Revoke(ChangeKey{RecordID: "b", Kind: Added}))
	result, err := s.Apply(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.False(t, store.has(domain.KindGoal, "b"))

	// the applied state now diffs clean against the payload except for b
	after := snapshot.New()
	for _, rec := range store.records {
		require.NoError(t, after.Append(rec))
	}
	d := ComputeBackupDiff(after, incoming)
	assert.Equal(t, []string{"b"}, ids(d.Goals.Added))
}
