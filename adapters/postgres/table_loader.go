package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"dqengine/adapters/coercer"
	"dqengine/adapters/frame"
	"dqengine/domain/table"
	"dqengine/internal"
	"dqengine/internal/errors"
	"dqengine/ports"
)

// TableLoader reads query results into in-memory datasets
type TableLoader struct {
	db      *sqlx.DB
	coercer *coercer.TypeCoercer
	logger  ports.Logger
}

var _ ports.DatasetLoader = (*TableLoader)(nil)

// NewTableLoader creates a loader over an open connection
func NewTableLoader(db *sqlx.DB, logger ports.Logger) *TableLoader {
	return &TableLoader{
		db:      db,
		coercer: coercer.NewTypeCoercer(coercer.DefaultCoercionConfig()),
		logger:  internal.Component(logger, "postgres"),
	}
}

// LoadDataset reads every row of the named table
func (l *TableLoader) LoadDataset(ctx context.Context, source string) (ports.Dataset, error) {
	f, err := l.Load(ctx, "SELECT * FROM "+pq.QuoteIdentifier(source))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Load runs a query and keeps the result columns in select order
func (l *TableLoader) Load(ctx context.Context, query string, args ...interface{}) (*frame.Frame, error) {
	rows, err := l.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.DatabaseError(err.Error()), "failed to run dataset query")
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.DatabaseError(err.Error()), "failed to read result columns")
	}

	cells := make([][]table.Value, len(names))
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return nil, errors.Wrap(errors.DatabaseError(err.Error()), "failed to scan row")
		}
		for j, raw := range row {
			cells[j] = append(cells[j], l.cell(raw))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.DatabaseError(err.Error()), "failed to iterate rows")
	}

	columns := make([]frame.Column, len(names))
	for j, name := range names {
		values := cells[j]
		if values == nil {
			values = []table.Value{}
		}
		columns[j] = frame.Column{Name: name, Values: values}
	}

	f, err := frame.New(columns...)
	if err != nil {
		return nil, errors.DatasetError("query returned an unusable result", err)
	}

	l.logger.Debug("Loaded %d rows, %d columns", f.Len(), len(names))
	return f, nil
}

// cell converts a driver value. The driver returns NUMERIC and other
// non-native types as raw bytes, which go through text coercion.
func (l *TableLoader) cell(raw interface{}) table.Value {
	if b, ok := raw.([]byte); ok {
		return l.coercer.CoerceValue(b)
	}
	return table.ValueOf(raw)
}
