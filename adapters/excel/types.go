package excel

import "dqengine/adapters/coercer"

// RawData is a header row plus text data rows, before type coercion
type RawData struct {
	Headers []string
	Rows    [][]string
}

// LoadResult describes how a file was turned into a dataset
type LoadResult struct {
	Source  string                   `json:"source"`
	Rows    int                      `json:"rows"`
	Columns []coercer.ColumnCoercion `json:"columns"`
}
