package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Column is a column name and its SQL type.
type Column struct {
	Name string
	Type string
}

// TableSpec describes a table that ReplaceTable creates on demand.
type TableSpec struct {
	Schema  string
	Table   string
	Columns []Column
	// Indexed columns get a GiST index when their type starts with "geometry",
	// a btree index otherwise.
	Indexed []string
}

// ReplaceTable swaps the contents of the table described by spec for rows in
// one transaction: the schema and table are created if missing, existing rows
// are deleted, and rows are copied in batches. Readers never see a partially
// written table.
func ReplaceTable(ctx context.Context, pool Pool, spec TableSpec, rows [][]any, batchSize int) (int64, error) {
	if spec.Table == "" {
		return 0, eris.New("db: replace: no table specified")
	}
	if len(spec.Columns) == 0 {
		return 0, eris.New("db: replace: no columns specified")
	}

	ident := identifier(spec.Schema, spec.Table)
	name := ident.Sanitize()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: replace: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, stmt := range spec.ddl() {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, eris.Wrapf(err, "db: replace: prepare %s", name)
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM "+name); err != nil {
		return 0, eris.Wrapf(err, "db: replace: clear %s", name)
	}

	n, err := CopyFrom(ctx, tx, spec.Schema, spec.Table, spec.columnNames(), rows, batchSize)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: replace: commit tx")
	}

	return n, nil
}

func (s TableSpec) columnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

func (s TableSpec) columnType(name string) string {
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Type
		}
	}
	return ""
}

// ddl returns the idempotent statements that prepare the table.
func (s TableSpec) ddl() []string {
	var stmts []string
	if s.Schema != "" {
		stmts = append(stmts, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{s.Schema}.Sanitize())
	}

	defs := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.Type
	}
	table := identifier(s.Schema, s.Table).Sanitize()
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", ")))

	for _, col := range s.Indexed {
		method := "btree"
		if strings.HasPrefix(strings.ToLower(s.columnType(col)), "geometry") {
			method = "gist"
		}
		idx := pgx.Identifier{fmt.Sprintf("%s_%s_idx", s.Table, col)}.Sanitize()
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING %s (%s)",
			idx, table, method, pgx.Identifier{col}.Sanitize()))
	}
	return stmts
}
