package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lherron/planbak/internal/domain"
)

// Tx writes records inside one SQL transaction.
type Tx struct {
	tx     *sql.Tx
	writes int
}

// Insert adds rec to its table.
func (t *Tx) Insert(ctx context.Context, rec domain.Record) error {
	tbl, vals, err := prepare(rec)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, tbl.insertSQL(), vals...); err != nil {
		return fmt.Errorf("failed to insert %s %s: %w", rec.Kind(), rec.RecordID(), err)
	}
	t.writes++
	return nil
}

// Update replaces every column of the stored row with rec.
func (t *Tx) Update(ctx context.Context, rec domain.Record) error {
	tbl, vals, err := prepare(rec)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, tbl.updateSQL(), tbl.updateArgs(vals)...)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", rec.Kind(), rec.RecordID(), err)
	}
	if err := expectOneRow(res, rec); err != nil {
		return err
	}
	t.writes++
	return nil
}

// Delete removes the row with rec's key.
func (t *Tx) Delete(ctx context.Context, rec domain.Record) error {
	tbl, vals, err := prepare(rec)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, tbl.deleteSQL(), vals[:tbl.keys]...)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", rec.Kind(), rec.RecordID(), err)
	}
	if err := expectOneRow(res, rec); err != nil {
		return err
	}
	t.writes++
	return nil
}

// List returns every record of kind ordered by key.
func (t *Tx) List(ctx context.Context, kind domain.Kind) ([]domain.Record, error) {
	tbl, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := t.tx.QueryContext(ctx, tbl.selectSQL())
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tbl.name, err)
	}
	defer rows.Close()

	var recs []domain.Record
	for rows.Next() {
		rec, err := tbl.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", tbl.name, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", tbl.name, err)
	}
	return recs, nil
}

func prepare(rec domain.Record) (table, []any, error) {
	if rec == nil {
		return table{}, nil, fmt.Errorf("nil record")
	}
	tbl, err := tableFor(rec.Kind())
	if err != nil {
		return table{}, nil, err
	}
	vals, err := tbl.values(rec)
	if err != nil {
		return table{}, nil, err
	}
	return tbl, vals, nil
}

func expectOneRow(res sql.Result, rec domain.Record) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", rec.Kind(), rec.RecordID(), ErrNotFound)
	}
	return nil
}

func joinCols(cols []string) string {
	return strings.Join(cols, ", ")
}
