// Package extract moves tables between PostgreSQL and in-memory frames.
//
// Extraction reads a whole table with SELECT *. Columns whose PostgreSQL type
// is numeric (smallint, integer, bigint, real, double precision, numeric)
// become numeric frame columns; every other type becomes a text column.
// NULL becomes a missing value in both cases.
//
// Write-back replaces the target table with the frame's contents using the
// COPY protocol.
package extract

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/JonMunkholm/tableclean/internal/logging"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnSchema []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Beginner starts transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// numericOIDs lists the PostgreSQL types read into numeric columns.
var numericOIDs = map[uint32]bool{
	pgtype.Int2OID:    true,
	pgtype.Int4OID:    true,
	pgtype.Int8OID:    true,
	pgtype.Float4OID:  true,
	pgtype.Float8OID:  true,
	pgtype.NumericOID: true,
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// TableIdentifier splits "schema.table" into a pgx identifier.
func TableIdentifier(table string) (pgx.Identifier, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, fmt.Errorf("table name is empty")
	}
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return pgx.Identifier(parts), nil
}

// Table reads every row of table into a new frame named after it.
func Table(ctx context.Context, db DBTX, table string) (*frame.Frame, error) {
	ident, err := TableIdentifier(table)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := db.Query(ctx, "SELECT * FROM "+ident.Sanitize())
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", table, err)
	}

	f, err := FromRows(table, rows)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("table extracted",
		"table", table,
		"rows", f.NumRows(),
		"columns", f.NumColumns(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return f, nil
}

// FromRows drains rows into a frame. rows is always closed.
func FromRows(name string, rows pgx.Rows) (*frame.Frame, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	builders := make([]*columnBuilder, len(fields))
	for i, fd := range fields {
		builders[i] = &columnBuilder{name: fd.Name, numeric: numericOIDs[fd.DataTypeOID]}
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(values) != len(builders) {
			return nil, fmt.Errorf("row has %d values, expected %d", len(values), len(builders))
		}
		for i, v := range values {
			if err := builders[i].append(v); err != nil {
				return nil, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	f := frame.New(name)
	for _, b := range builders {
		var err error
		if b.numeric {
			err = f.AddNumeric(b.name, b.floats)
		} else {
			err = f.AddText(b.name, b.strings, b.valid)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

type columnBuilder struct {
	name    string
	numeric bool
	floats  []float64
	strings []string
	valid   []bool
}

func (b *columnBuilder) append(v any) error {
	if b.numeric {
		f, err := ToFloat(v)
		if err != nil {
			return fmt.Errorf("column %s: %w", b.name, err)
		}
		b.floats = append(b.floats, f)
		return nil
	}
	s, ok := ToText(v)
	b.strings = append(b.strings, s)
	b.valid = append(b.valid, ok)
	return nil
}

// ToFloat converts a decoded numeric value. NULL becomes NaN.
func ToFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return math.NaN(), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case pgtype.Numeric:
		if !x.Valid {
			return math.NaN(), nil
		}
		if x.NaN {
			return math.NaN(), nil
		}
		f8, err := x.Float64Value()
		if err != nil {
			return 0, fmt.Errorf("convert numeric: %w", err)
		}
		if !f8.Valid {
			return math.NaN(), nil
		}
		return f8.Float64, nil
	default:
		return 0, fmt.Errorf("unexpected numeric value of type %T", v)
	}
}

// ToText renders a decoded value as text. ok is false for NULL.
func ToText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case bool:
		if x {
			return "true", true
		}
		return "false", true
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02"), true
		}
		return x.Format(time.RFC3339), true
	case [16]byte:
		return uuid.UUID(x).String(), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}
