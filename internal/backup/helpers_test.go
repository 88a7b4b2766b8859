package backup

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"

	"github.com/lherron/planbak/internal/domain"
	"github.com/lherron/planbak/internal/snapshot"
	"github.com/lherron/planbak/internal/testutil"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory Store with the same ownership constraints as the
// SQLite schema: dependents need their parent, cross references need both
// ends, and owners cannot be removed while something still points at them.
type memStore struct {
	records map[recordRef]domain.Record
	failAt  int
	txCount int
	log     []string
}

func newMemStore(recs ...domain.Record) *memStore {
	m := &memStore{records: make(map[recordRef]domain.Record)}
	for _, rec := range recs {
		m.records[refOf(rec)] = rec
	}
	return m
}

func refOf(rec domain.Record) recordRef {
	return recordRef{rec.Kind(), rec.RecordID()}
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.txCount++
	tx := &memTx{staged: maps.Clone(m.records), failAt: m.failAt}
	if err := fn(tx); err != nil {
		return err
	}
	m.records = tx.staged
	m.log = append(m.log, tx.log...)
	return nil
}

func (m *memStore) has(kind domain.Kind, id string) bool {
	_, ok := m.records[recordRef{kind, id}]
	return ok
}

func (m *memStore) get(kind domain.Kind, id string) domain.Record {
	return m.records[recordRef{kind, id}]
}

type memTx struct {
	staged map[recordRef]domain.Record
	failAt int
	writes int
	log    []string
}

func (tx *memTx) write(op string, rec domain.Record) error {
	tx.writes++
	if tx.writes == tx.failAt {
		return errInjected
	}
	tx.log = append(tx.log, fmt.Sprintf("%s %s %s", op, rec.Kind(), rec.RecordID()))
	return nil
}

func (tx *memTx) checkOwners(rec domain.Record) error {
	switch r := rec.(type) {
	case domain.Dependent:
		if _, ok := tx.staged[recordRef{r.ParentKind(), r.ParentID()}]; !ok {
			return fmt.Errorf("%s %s: missing parent %s", rec.Kind(), rec.RecordID(), r.ParentID())
		}
	case domain.ProjectAttachmentCrossRef:
		_, okP := tx.staged[recordRef{domain.KindProject, r.ProjectID}]
		_, okA := tx.staged[recordRef{domain.KindAttachment, r.AttachmentID}]
		if !okP || !okA {
			return fmt.Errorf("cross ref %s: missing end", r.RecordID())
		}
	case domain.Project:
		if r.ParentID != "" {
			if _, ok := tx.staged[recordRef{domain.KindProject, r.ParentID}]; !ok {
				return fmt.Errorf("project %s: missing parent %s", r.ID, r.ParentID)
			}
		}
	}
	return nil
}

func (tx *memTx) Insert(ctx context.Context, rec domain.Record) error {
	if err := tx.write("insert", rec); err != nil {
		return err
	}
	if _, ok := tx.staged[refOf(rec)]; ok {
		return fmt.Errorf("%s %s already exists", rec.Kind(), rec.RecordID())
	}
	if err := tx.checkOwners(rec); err != nil {
		return err
	}
	tx.staged[refOf(rec)] = rec
	return nil
}

func (tx *memTx) Update(ctx context.Context, rec domain.Record) error {
	if err := tx.write("update", rec); err != nil {
		return err
	}
	if _, ok := tx.staged[refOf(rec)]; !ok {
		return fmt.Errorf("%s %s not found", rec.Kind(), rec.RecordID())
	}
	tx.staged[refOf(rec)] = rec
	return nil
}

func (tx *memTx) Delete(ctx context.Context, rec domain.Record) error {
	if err := tx.write("delete", rec); err != nil {
		return err
	}
	if _, ok := tx.staged[refOf(rec)]; !ok {
		return fmt.Errorf("%s %s not found", rec.Kind(), rec.RecordID())
	}
	for _, other := range tx.staged {
		if pointsAt(other, rec) {
			return fmt.Errorf("%s %s still referenced by %s %s",
				rec.Kind(), rec.RecordID(), other.Kind(), other.RecordID())
		}
	}
	delete(tx.staged, refOf(rec))
	return nil
}

func pointsAt(other, owner domain.Record) bool {
	switch r := other.(type) {
	case domain.Dependent:
		return r.ParentKind() == owner.Kind() && r.ParentID() == owner.RecordID()
	case domain.ProjectAttachmentCrossRef:
		return (owner.Kind() == domain.KindProject && r.ProjectID == owner.RecordID()) ||
			(owner.Kind() == domain.KindAttachment && r.AttachmentID == owner.RecordID())
	case domain.Project:
		return owner.Kind() == domain.KindProject && r.ParentID == owner.RecordID()
	}
	return false
}

func storeFromSnapshot(s *snapshot.Snapshot) *memStore {
	m := newMemStore()
	for _, kind := range domain.Kinds() {
		for _, rec := range s.Records(kind) {
			m.records[refOf(rec)] = rec
		}
	}
	return m
}

// export reads m back into a snapshot, each kind in id order.
func (m *memStore) export() *snapshot.Snapshot {
	s := snapshot.New()
	for _, kind := range domain.Kinds() {
		var recs []domain.Record
		for ref, rec := range m.records {
			if ref.kind == kind {
				recs = append(recs, rec)
			}
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].RecordID() < recs[j].RecordID() })
		for _, rec := range recs {
			if err := s.Append(rec); err != nil {
				panic(err)
			}
		}
	}
	return s
}

func fixtureSnapshot() *snapshot.Snapshot {
	return testutil.Snapshot()
}

func payloadOf(s *snapshot.Snapshot) string {
	data, err := snapshot.CanonicalJSON(s)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func goal(id, text string) domain.Goal {
	return domain.Goal{ID: id, Text: text, CreatedAt: 1, UpdatedAt: 1}
}

func listItem(id string, order int64, entity string) domain.ListItem {
	return domain.ListItem{ID: id, ProjectID: "p", EntityID: entity, ItemType: domain.ItemTypeGoal, Order: order}
}
