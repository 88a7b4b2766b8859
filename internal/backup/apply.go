package backup

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/lherron/planbak/internal/domain"
)

// Store is the persistence the applier writes to. WithTx runs fn inside one
// transaction, committing when fn returns nil and rolling back otherwise.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx writes single records. Update replaces the stored record as a whole.
type Tx interface {
	Insert(ctx context.Context, rec domain.Record) error
	Update(ctx context.Context, rec domain.Record) error
	Delete(ctx context.Context, rec domain.Record) error
}

// OpKind is the store write an Operation performs.
type OpKind int

const (
	OpInsert OpKind = iota
	OpUpdate
	OpDelete
)

func (o OpKind) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("OpKind(%d)", int(o))
	}
}

// Operation is one planned store write.
type Operation struct {
	Op     OpKind
	Key    ChangeKey
	Record domain.Record
}

func (o Operation) run(ctx context.Context, tx Tx) error {
	switch o.Op {
	case OpInsert:
		return tx.Insert(ctx, o.Record)
	case OpUpdate:
		return tx.Update(ctx, o.Record)
	case OpDelete:
		return tx.Delete(ctx, o.Record)
	default:
		return fmt.Errorf("unknown operation %s", o.Op)
	}
}

// ApplyError reports the write that aborted an apply. Nothing of the batch
// was committed.
type ApplyError struct {
	Op     OpKind
	Entity domain.Kind
	Key    ChangeKey
	Err    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to %s %s %s: %v", e.Op, e.Entity, e.Key, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// ApplyResult counts the writes of a committed apply.
type ApplyResult struct {
	Inserted         int `json:"inserted"`
	Updated          int `json:"updated"`
	Deleted          int `json:"deleted"`
	CrossRefsWritten int `json:"crossRefsWritten"`
	CrossRefsRemoved int `json:"crossRefsRemoved"`
}

func (r *ApplyResult) count(op Operation) {
	if op.Record.Kind() == domain.KindAttachmentCrossRef {
		if op.Op == OpDelete {
			r.CrossRefsRemoved++
		} else {
			r.CrossRefsWritten++
		}
		return
	}
	switch op.Op {
	case OpInsert:
		r.Inserted++
	case OpUpdate:
		r.Updated++
	case OpDelete:
		r.Deleted++
	}
}

// Total returns the number of writes.
func (r *ApplyResult) Total() int {
	return r.Inserted + r.Updated + r.Deleted + r.CrossRefsWritten + r.CrossRefsRemoved
}

// Apply writes the approved changes of diff to store in one transaction.
// Cancellation is honoured only until the transaction starts; after that the
// batch either commits completely or rolls back. diff and approvals are not
// modified, so a failed apply can be retried.
func Apply(ctx context.Context, store Store, diff *BackupDiff, approvals *ApprovalSet) (*ApplyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("apply cancelled: %w", err)
	}

	ops := Plan(diff, approvals)
	if len(ops) == 0 {
		return &ApplyResult{}, nil
	}

	txCtx := context.WithoutCancel(ctx)
	var result ApplyResult
	err := store.WithTx(txCtx, func(tx Tx) error {
		result = ApplyResult{}
		for _, op := range ops {
			if err := op.run(txCtx, tx); err != nil {
				return &ApplyError{Op: op.Op, Entity: op.Record.Kind(), Key: op.Key, Err: err}
			}
			result.count(op)
		}
		return nil
	})
	if err != nil {
		var applyErr *ApplyError
		if errors.As(err, &applyErr) {
			return nil, applyErr
		}
		return nil, fmt.Errorf("failed to apply changes: %w", err)
	}

	return &result, nil
}

type recordRef struct {
	kind domain.Kind
	id   string
}

// Plan resolves approvals into ordered store writes.
//
// Independent changes are written when their key is approved. A dependent
// record follows its parent when the parent has a pending change of the same
// direction (an upsert under an upsert, a delete under a delete) and uses its
// own key otherwise. A cross reference change follows its project and
// attachment when either has a pending change: it is written when an approved
// upsert of an end covers it and both ends will exist, and it is removed when
// an approved upsert or delete of an end drops it. Between two unchanged ends
// it uses its own key. Removing either end always removes its local links.
//
// Deletes run first, children before parents. Upserts follow in kind order
// with parent projects ahead of their subprojects.
func Plan(diff *BackupDiff, approvals *ApprovalSet) []Operation {
	changes := diff.Changes()

	pending := make(map[recordRef]Change, len(changes))
	for _, c := range changes {
		pending[recordRef{c.Entity, c.Key.RecordID}] = c
	}

	included := func(c Change) bool {
		if c.Parent != nil {
			if parent, ok := pending[recordRef{c.Parent.Kind, c.Parent.ID}]; ok {
				if (parent.Key.Kind == Deleted) == (c.Key.Kind == Deleted) {
					return approvals.Contains(parent.Key)
				}
			}
		}
		return approvals.Contains(c.Key)
	}

	upserts := make(map[domain.Kind][]Operation)
	deletes := make(map[domain.Kind][]Operation)
	upserted := make(map[recordRef]bool)
	removed := make(map[recordRef]bool)
	missing := make(map[recordRef]bool)

	var refChanges []Change
	for _, c := range changes {
		if c.Entity == domain.KindAttachmentCrossRef {
			refChanges = append(refChanges, c)
			continue
		}
		ref := recordRef{c.Entity, c.Key.RecordID}
		if !included(c) {
			if c.Key.Kind == Added {
				missing[ref] = true
			}
			continue
		}
		switch c.Key.Kind {
		case Added:
			upserts[c.Entity] = append(upserts[c.Entity], Operation{Op: OpInsert, Key: c.Key, Record: c.Record})
			upserted[ref] = true
		case Updated:
			upserts[c.Entity] = append(upserts[c.Entity], Operation{Op: OpUpdate, Key: c.Key, Record: c.Record})
			upserted[ref] = true
		case Deleted:
			deletes[c.Entity] = append(deletes[c.Entity], Operation{Op: OpDelete, Key: c.Key, Record: c.Record})
			removed[ref] = true
			missing[ref] = true
		}
	}

	refKind := domain.KindAttachmentCrossRef
	removedRefs := make(map[string]bool)
	deleteRef := func(ref domain.ProjectAttachmentCrossRef) {
		if removedRefs[ref.RecordID()] {
			return
		}
		removedRefs[ref.RecordID()] = true
		key := ChangeKey{RecordID: ref.RecordID(), Kind: Deleted}
		deletes[refKind] = append(deletes[refKind], Operation{Op: OpDelete, Key: key, Record: ref})
	}

	for _, c := range refChanges {
		ref := c.Record.(domain.ProjectAttachmentCrossRef)
		project := recordRef{domain.KindProject, ref.ProjectID}
		attachment := recordRef{domain.KindAttachment, ref.AttachmentID}

		_, projectPending := pending[project]
		_, attachmentPending := pending[attachment]
		var include bool
		switch {
		case !projectPending && !attachmentPending:
			include = approvals.Contains(c.Key)
		case c.Key.Kind == Deleted:
			include = upserted[project] || upserted[attachment] || removed[project] || removed[attachment]
		default:
			include = upserted[project] || upserted[attachment]
		}
		if !include {
			continue
		}

		switch c.Key.Kind {
		case Added, Updated:
			if missing[project] || missing[attachment] {
				continue
			}
			op := OpInsert
			if c.Key.Kind == Updated {
				op = OpUpdate
			}
			upserts[refKind] = append(upserts[refKind], Operation{Op: op, Key: c.Key, Record: ref})
		case Deleted:
			deleteRef(ref)
		}
	}

	for _, ref := range diff.LocalCrossRefs {
		if removed[recordRef{domain.KindProject, ref.ProjectID}] ||
			removed[recordRef{domain.KindAttachment, ref.AttachmentID}] {
			deleteRef(ref)
		}
	}

	upserts[domain.KindProject] = sortProjectOps(upserts[domain.KindProject])
	projectDeletes := sortProjectOps(deletes[domain.KindProject])
	for i, j := 0, len(projectDeletes)-1; i < j; i, j = i+1, j-1 {
		projectDeletes[i], projectDeletes[j] = projectDeletes[j], projectDeletes[i]
	}
	deletes[domain.KindProject] = projectDeletes

	kinds := domain.Kinds()
	var ops []Operation
	for i := len(kinds) - 1; i >= 0; i-- {
		ops = append(ops, deletes[kinds[i]]...)
	}
	for _, kind := range kinds {
		ops = append(ops, upserts[kind]...)
	}
	return ops
}

// sortProjectOps orders project writes so that a parent comes before its
// children. Projects caught in a parent cycle keep id order at the end.
func sortProjectOps(ops []Operation) []Operation {
	if len(ops) < 2 {
		return ops
	}

	byID := make(map[string]Operation, len(ops))
	for _, op := range ops {
		byID[op.Key.RecordID] = op
	}

	// Build adjacency list
	children := make(map[string][]string)
	roots := make([]string, 0)
	for id, op := range byID {
		parentID := op.Record.(domain.Project).ParentID
		if _, ok := byID[parentID]; parentID == "" || !ok {
			roots = append(roots, id)
		} else {
			children[parentID] = append(children[parentID], id)
		}
	}

	// Sort roots for determinism
	sort.Strings(roots)

	result := make([]Operation, 0, len(ops))
	visited := make(map[string]bool, len(ops))
	queue := roots
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited[id] = true
		result = append(result, byID[id])

		childList := children[id]
		sort.Strings(childList)
		queue = append(queue, childList...)
	}

	if len(result) < len(ops) {
		rest := make([]string, 0, len(ops)-len(result))
		for id := range byID {
			if !visited[id] {
				rest = append(rest, id)
			}
		}
		sort.Strings(rest)
		for _, id := range rest {
			result = append(result, byID[id])
		}
	}

	return result
}
