package dataset

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/YuminosukeSato/pumpprep/core/table"
	"github.com/YuminosukeSato/pumpprep/pkg/errors"
)

// PostgresSource runs Query against a PostgreSQL database and returns the
// result set as a table. SQL NULL becomes a missing value; every other
// value is rendered as text.
type PostgresSource struct {
	DSN   string
	Query string
	Kinds map[string]table.Kind
	// NAValues are read as missing in addition to DefaultNAValues.
	NAValues []string
}

// Name returns the query.
func (p PostgresSource) Name() string { return p.Query }

// Load connects, runs the query and closes the connection.
func (p PostgresSource) Load(ctx context.Context) (*table.Table, error) {
	if p.DSN == "" {
		return nil, errors.NewValidationError("postgres.dsn", "must be set", "")
	}
	if p.Query == "" {
		return nil, errors.NewValidationError("postgres.query", "must be set", "")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", p.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	defer db.Close()

	return p.query(ctx, db)
}

func (p PostgresSource) query(ctx context.Context, db *sqlx.DB) (*table.Table, error) {
	rows, err := db.QueryxContext(ctx, p.Query)
	if err != nil {
		return nil, errors.Wrap(err, "run query")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read columns")
	}
	t, err := table.New(columns, table.WithKinds(p.Kinds))
	if err != nil {
		return nil, err
	}

	na := make(map[string]bool)
	for _, tok := range naSet(p.NAValues) {
		na[tok] = true
	}
	for rows.Next() {
		raw := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(raw); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		row, err := convertRow(raw, na)
		if err != nil {
			return nil, err
		}
		if err := t.Append(row); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return t, nil
}

// convertRow renders scanned driver values as table values.
func convertRow(raw map[string]interface{}, na map[string]bool) (table.Row, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := make(table.Row, len(raw))
	for _, col := range keys {
		text, ok, err := renderValue(raw[col])
		if err != nil {
			return nil, errors.NewFieldValidationError("load", col, err.Error(), raw[col])
		}
		if !ok || na[text] {
			row[col] = table.Missing()
			continue
		}
		row[col] = table.V(text)
	}
	return row, nil
}

// renderValue returns ok=false for SQL NULL.
func renderValue(v interface{}) (string, bool, error) {
	switch x := v.(type) {
	case nil:
		return "", false, nil
	case []byte:
		return string(x), true, nil
	case string:
		return x, true, nil
	case int64:
		return strconv.FormatInt(x, 10), true, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true, nil
	case bool:
		return strconv.FormatBool(x), true, nil
	case time.Time:
		return x.Format(time.RFC3339), true, nil
	default:
		return "", false, errors.Newf("unsupported column type %T", v)
	}
}
