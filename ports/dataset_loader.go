package ports

import (
	"context"

	"dqengine/domain/table"
)

// Dataset is the tabular contract consumed by the quality engines
type Dataset = table.Dataset

// RejectionReporter is implemented by datasets built from raw text. Rejected
// counts, per column, the source cells that could not be read as the
// column's type and were stored as missing.
type RejectionReporter interface {
	Rejected() map[string]int
}

// DatasetLoader materializes a dataset snapshot from an external source.
// Source is adapter specific: a file path for file readers, a table name
// for database loaders.
type DatasetLoader interface {
	LoadDataset(ctx context.Context, source string) (Dataset, error)
}
