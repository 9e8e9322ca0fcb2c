package tables

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/ariefcatur/game-topup-api/internal/apperr"
	"github.com/ariefcatur/game-topup-api/internal/orders"
	"github.com/ariefcatur/game-topup-api/internal/postgres"
)

type Row = map[string]any

type Store struct{ DB postgres.DB }

func ident(name string) string { return pgx.Identifier{name}.Sanitize() }

func (t Table) selectList() string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = ident(c.Name)
	}
	return strings.Join(names, ", ")
}

// List returns rows in primary key order. Non-positive limit means all rows.
func (s *Store) List(ctx context.Context, t Table, limit, offset int) ([]Row, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", t.selectList(), ident(t.Name), ident(t.PrimaryKey))
	var args []any
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", t.Name)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", t.Name)
	}
	if out == nil {
		out = []Row{}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, t Table, id any) (Row, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", t.selectList(), ident(t.Name), ident(t.PrimaryKey))
	rows, err := s.DB.Query(ctx, q, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", t.Name)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("not found")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", t.Name)
	}
	return row, nil
}

// Insert creates a row from body and returns it as stored.
func (s *Store) Insert(ctx context.Context, t Table, body map[string]any) (Row, error) {
	if t.NoInsert != "" {
		return nil, apperr.Validation("%s", t.NoInsert)
	}
	cols, vals, err := t.Assignments(body)
	if err != nil {
		return nil, err
	}
	if t.ParentOrder == "" {
		return insertRow(ctx, s.DB, t, cols, vals)
	}

	parent, ok := valueOf(cols, vals, t.ParentOrder)
	if !ok {
		return nil, apperr.Validation("column %q is required", t.ParentOrder)
	}
	var row Row
	err = postgres.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		if err := lockOrders(ctx, tx, parent); err != nil {
			return err
		}
		var err error
		row, err = insertRow(ctx, tx, t, cols, vals)
		return err
	})
	return row, err
}

func insertRow(ctx context.Context, db postgres.DB, t Table, cols []string, vals []any) (Row, error) {
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		names[i] = ident(c)
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		ident(t.Name), strings.Join(names, ", "), strings.Join(params, ", "), t.selectList())

	rows, err := db.Query(ctx, q, vals...)
	if err != nil {
		return nil, errors.Wrapf(apperr.FromPg(err), "insert %s", t.Name)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, errors.Wrapf(apperr.FromPg(err), "insert %s", t.Name)
	}
	return row, nil
}

// Update applies a partial update and returns the affected row count.
func (s *Store) Update(ctx context.Context, t Table, id any, body map[string]any) (int64, error) {
	cols, vals, err := t.Assignments(body)
	if err != nil {
		return 0, err
	}
	sets := make([]string, len(cols), len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", ident(c), i+1)
	}
	if t.hasColumn("updated_at") {
		sets = append(sets, ident("updated_at")+" = NOW()")
	}
	vals = append(vals, id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		ident(t.Name), strings.Join(sets, ", "), ident(t.PrimaryKey), len(vals))

	if t.ParentOrder == "" {
		return execAffected(ctx, s.DB, "update "+t.Name, q, vals...)
	}

	var n int64
	err = postgres.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		current, err := parentOf(ctx, tx, t, id)
		if err != nil {
			return err
		}
		parents := []int64{current}
		if moved, ok := valueOf(cols, vals, t.ParentOrder); ok && moved != current {
			parents = append(parents, moved)
		}
		if err := lockOrders(ctx, tx, parents...); err != nil {
			return err
		}
		vals = append(vals, current)
		n, err = execAffected(ctx, tx, "update "+t.Name,
			fmt.Sprintf("%s AND %s = $%d", q, ident(t.ParentOrder), len(vals)), vals...)
		return err
	})
	return n, err
}

func (s *Store) Delete(ctx context.Context, t Table, id any) (int64, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", ident(t.Name), ident(t.PrimaryKey))
	if t.ParentOrder == "" {
		return execAffected(ctx, s.DB, "delete "+t.Name, q, id)
	}

	var n int64
	err := postgres.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		current, err := parentOf(ctx, tx, t, id)
		if err != nil {
			return err
		}
		if err := lockOrders(ctx, tx, current); err != nil {
			return err
		}
		n, err = execAffected(ctx, tx, "delete "+t.Name,
			fmt.Sprintf("%s AND %s = $2", q, ident(t.ParentOrder)), id, current)
		return err
	})
	return n, err
}

func execAffected(ctx context.Context, db postgres.DB, op, q string, args ...any) (int64, error) {
	tag, err := db.Exec(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(apperr.FromPg(err), op)
	}
	if tag.RowsAffected() == 0 {
		return 0, apperr.NotFound("not found")
	}
	return tag.RowsAffected(), nil
}

// parentOf reads the order a child row belongs to. The row itself is not
// locked; the follow-up write re-checks the parent column.
func parentOf(ctx context.Context, tx pgx.Tx, t Table, id any) (int64, error) {
	var parent int64
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", ident(t.ParentOrder), ident(t.Name), ident(t.PrimaryKey))
	err := tx.QueryRow(ctx, q, id).Scan(&parent)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("not found")
	}
	return parent, errors.Wrapf(err, "read %s parent", t.Name)
}

// lockOrders locks the given orders in id order.
func lockOrders(ctx context.Context, tx pgx.Tx, ids ...int64) error {
	slices.Sort(ids)
	for _, id := range slices.Compact(ids) {
		if err := orders.LockEditable(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

func valueOf(cols []string, vals []any, name string) (int64, bool) {
	i := slices.Index(cols, name)
	if i < 0 {
		return 0, false
	}
	v, ok := vals[i].(int64)
	return v, ok
}
