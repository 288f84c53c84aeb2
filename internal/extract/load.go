package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/JonMunkholm/tableclean/internal/logging"
	"github.com/jackc/pgx/v5"
)

// Replace drops table if it exists, recreates it from the frame's column
// kinds and bulk-loads every row with COPY, all in one transaction.
// It returns the number of rows copied.
func Replace(ctx context.Context, db Beginner, table string, f *frame.Frame) (int64, error) {
	ident, err := TableIdentifier(table)
	if err != nil {
		return 0, err
	}
	if f.NumColumns() == 0 {
		return 0, fmt.Errorf("frame %s has no columns", f.Name)
	}

	start := time.Now()
	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
		return 0, fmt.Errorf("drop table %s: %w", table, err)
	}
	if _, err := tx.Exec(ctx, CreateTableSQL(ident, f)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", table, err)
	}

	n, err := tx.CopyFrom(ctx, ident, f.ColumnNames(), pgx.CopyFromRows(CopyRows(f)))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	logging.FromContext(ctx).Info("table written",
		"table", table,
		"rows", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n, nil
}

// CreateTableSQL builds the CREATE TABLE statement for f: numeric columns
// become double precision, text columns text.
func CreateTableSQL(ident pgx.Identifier, f *frame.Frame) string {
	defs := make([]string, 0, f.NumColumns())
	for _, col := range f.Columns() {
		typ := "text"
		if col.Kind == frame.KindNumeric {
			typ = "double precision"
		}
		defs = append(defs, pgx.Identifier{col.Name}.Sanitize()+" "+typ)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", ident.Sanitize(), strings.Join(defs, ", "))
}

// CopyRows converts f into COPY rows. Missing values become NULL.
func CopyRows(f *frame.Frame) [][]any {
	cols := f.Columns()
	rows := make([][]any, f.NumRows())
	for i := range rows {
		row := make([]any, len(cols))
		for j, col := range cols {
			switch {
			case col.IsNull(i):
				row[j] = nil
			case col.Kind == frame.KindNumeric:
				row[j] = col.Floats[i]
			default:
				row[j] = col.Strings[i]
			}
		}
		rows[i] = row
	}
	return rows
}
