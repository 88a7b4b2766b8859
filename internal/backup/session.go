package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lherron/planbak/internal/snapshot"
)

// ErrDiffFailed marks a failure inside diff computation. It indicates a bug,
// not bad input; the session is not created.
var ErrDiffFailed = errors.New("diff computation failed")

// Session is the review state of one import: the diff, its selectable form
// and the approvals. Sessions share nothing and are dropped once applied or
// cancelled.
type Session struct {
	ID          string
	CreatedAt   time.Time
	IncomingRev string
	Diff        *BackupDiff
	Content     *SelectableDatabaseContent
	Approvals   *ApprovalSet

	logger *zap.Logger
}

// NewSession parses payload, diffs it against local and approves every
// change. A malformed payload yields an error wrapping
// snapshot.ErrMalformedSnapshot and no session.
func NewSession(local *snapshot.Snapshot, payload string, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	incoming, err := snapshot.Parse(payload)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		IncomingRev: incoming.Meta.SnapshotRev,
	}
	s.logger = logger.With(zap.String("session_id", s.ID))

	if s.IncomingRev == "" {
		if data, err := snapshot.CanonicalJSON(incoming); err == nil {
			s.IncomingRev = snapshot.ComputeSnapshotRev(data)
		}
	}

	if err := s.compute(local, incoming); err != nil {
		return nil, err
	}

	s.logger.Info("import session created",
		zap.String("incoming_rev", s.IncomingRev),
		zap.Int("changes", s.Approvals.Len()))

	return s, nil
}

func (s *Session) compute(local, incoming *snapshot.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDiffFailed, r)
		}
	}()

	s.Diff = ComputeBackupDiff(local, incoming)
	s.Content = ToSelectableContent(s.Diff)
	s.Approvals = NewApprovalSet(s.Content.Changes())
	return nil
}

// Changes returns the flat change list of the session.
func (s *Session) Changes() []Change {
	return s.Content.Changes()
}

// Summary returns per-kind change counts.
func (s *Session) Summary() []KindSummary {
	return s.Diff.Summary()
}

// Apply writes the approved changes to store. On failure the session is left
// as it was so the caller can adjust approvals and retry.
func (s *Session) Apply(ctx context.Context, store Store) (*ApplyResult, error) {
	s.logger.Info("applying changes", zap.Int("approved", s.Approvals.Len()))

	result, err := Apply(ctx, store, s.Diff, s.Approvals)
	if err != nil {
		var applyErr *ApplyError
		if errors.As(err, &applyErr) {
			s.logger.Error("apply rolled back",
				zap.String("kind", string(applyErr.Entity)),
				zap.String("key", applyErr.Key.String()),
				zap.Error(applyErr.Err))
		} else {
			s.logger.Warn("apply not started", zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("changes applied",
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Int("crossrefs_written", result.CrossRefsWritten),
		zap.Int("crossrefs_removed", result.CrossRefsRemoved))

	return result, nil
}
