// Package store persists planbak records in SQLite. Writes happen one record
// at a time inside a transaction opened by WithTx; Export reads the whole
// store back as a snapshot.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lherron/planbak/internal/backup"
	"github.com/lherron/planbak/internal/domain"
	"github.com/lherron/planbak/internal/snapshot"
)

// ErrNotFound is returned when an update or delete matches no row.
var ErrNotFound = errors.New("record not found")

// Store is the SQLite-backed record store.
type Store struct {
	db     *sql.DB
	logger *zap.Logger

	// mu keeps writers of this process from interleaving; SQLite's lock
	// covers other processes.
	mu sync.Mutex
}

// New creates a new Store wrapping the given database connection.
func New(conn *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: conn, logger: logger.Named("store")}
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx executes fn within a transaction. If fn returns nil, the transaction
// is committed; otherwise it is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(tx backup.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Tx{tx: sqlTx}
	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", zap.Error(rbErr))
			return fmt.Errorf("%w (rollback error: %v)", err, rbErr)
		}
		s.logger.Debug("transaction rolled back", zap.Int("writes", tx.writes), zap.Error(err))
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Debug("transaction committed", zap.Int("writes", tx.writes))
	return nil
}

// Export reads every table into a snapshot.
func (s *Store) Export(ctx context.Context) (*snapshot.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	snap := snapshot.New()
	for _, kind := range domain.Kinds() {
		recs, err := (&Tx{tx: sqlTx}).List(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if err := snap.Append(rec); err != nil {
				return nil, err
			}
		}
	}

	return snap, nil
}

// Get loads one record. Cross references use the "projectId:attachmentId" id.
func (s *Store) Get(ctx context.Context, kind domain.Kind, id string) (domain.Record, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	keys := []any{id}
	if kind == domain.KindAttachmentCrossRef {
		ref, err := domain.ParseCrossRefID(id)
		if err != nil {
			return nil, err
		}
		keys = []any{ref.ProjectID, ref.AttachmentID}
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", joinCols(t.cols), t.name, t.where())
	rec, err := t.scan(s.db.QueryRowContext(ctx, query, keys...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", kind, id, err)
	}
	return rec, nil
}

// Count returns the number of rows per kind.
func (s *Store) Count(ctx context.Context) (map[domain.Kind]int, error) {
	counts := make(map[domain.Kind]int, len(tables))
	for _, kind := range domain.Kinds() {
		t := tables[kind]
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", t.name, err)
		}
		counts[kind] = n
	}
	return counts, nil
}
