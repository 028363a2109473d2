package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"dqengine/adapters/coercer"
	"dqengine/adapters/frame"
	"dqengine/internal"
	"dqengine/internal/errors"
	"dqengine/ports"
)

// File types understood by DataReader
const (
	FileTypeCSV  = "csv"
	FileTypeXLSX = "xlsx"
)

// DataReader handles reading Excel and CSV files into typed frames
type DataReader struct {
	config  ReaderConfig
	coercer *coercer.TypeCoercer
	logger  ports.Logger
}

var _ ports.DatasetLoader = (*DataReader)(nil)

// NewDataReader creates a reader for both Excel and CSV files
func NewDataReader(config ReaderConfig, logger ports.Logger) *DataReader {
	if config.Comma == 0 {
		config.Comma = ','
	}
	return &DataReader{
		config:  config,
		coercer: coercer.NewTypeCoercer(config.CoercionConfig),
		logger:  internal.Component(logger, "excel"),
	}
}

// FileType guesses the file type from the extension; anything but .csv is xlsx
func FileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FileTypeCSV
	default:
		return FileTypeXLSX
	}
}

// LoadDataset reads the file at source and coerces it into a dataset
func (r *DataReader) LoadDataset(ctx context.Context, source string) (ports.Dataset, error) {
	f, _, err := r.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Load reads the file at path and reports how each column was typed
func (r *DataReader) Load(ctx context.Context, path string) (*frame.Frame, *LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Canceled("load", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, errors.NotFound(fmt.Sprintf("data file %s", path))
	}

	var (
		raw *RawData
		err error
	)
	switch FileType(path) {
	case FileTypeCSV:
		file, openErr := os.Open(path)
		if openErr != nil {
			return nil, nil, errors.DatasetError("failed to open CSV file", openErr)
		}
		defer file.Close()
		raw, err = r.ReadCSV(file)
	default:
		raw, err = r.readExcel(path)
	}
	if err != nil {
		return nil, nil, err
	}

	return r.build(path, raw)
}

// LoadReader coerces CSV or XLSX content from an arbitrary stream
func (r *DataReader) LoadReader(ctx context.Context, name, fileType string, in io.Reader) (*frame.Frame, *LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Canceled("load", err)
	}

	var (
		raw *RawData
		err error
	)
	switch fileType {
	case FileTypeCSV:
		raw, err = r.ReadCSV(in)
	case FileTypeXLSX:
		f, openErr := excelize.OpenReader(in)
		if openErr != nil {
			return nil, nil, errors.DatasetError("failed to open Excel stream", openErr)
		}
		defer f.Close()
		raw, err = r.readWorkbook(f)
	default:
		return nil, nil, errors.InvalidInput(fmt.Sprintf("unsupported file type: %s", fileType))
	}
	if err != nil {
		return nil, nil, err
	}

	return r.build(name, raw)
}

// ReadCSV reads raw CSV rows; ragged rows are allowed
func (r *DataReader) ReadCSV(in io.Reader) (*RawData, error) {
	reader := csv.NewReader(in)
	reader.Comma = r.config.Comma
	reader.FieldsPerRecord = -1

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.DatasetError("failed to read CSV", err)
	}
	r.logger.Debug("CSV read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return splitHeader(rows)
}

// readExcel reads the configured sheet, or the first one
func (r *DataReader) readExcel(path string) (*RawData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.DatasetError("failed to open Excel file", err)
	}
	defer f.Close()
	r.logger.Debug("Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	return r.readWorkbook(f)
}

func (r *DataReader) readWorkbook(f *excelize.File) (*RawData, error) {
	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.DatasetError("workbook has no sheets", nil)
		}
		sheet = sheets[0]
	}

	readStart := time.Now()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("failed to read sheet %s", sheet), err)
	}
	r.logger.Debug("Sheet %s read in %.2fms (%d rows)", sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return splitHeader(rows)
}

func (r *DataReader) build(source string, raw *RawData) (*frame.Frame, *LoadResult, error) {
	f, columns, err := r.coercer.Frame(raw.Headers, raw.Rows)
	if err != nil {
		return nil, nil, errors.DatasetError(fmt.Sprintf("failed to build dataset from %s", source), err)
	}

	for _, c := range columns {
		if c.Rejected > 0 {
			r.logger.Warn("Column %s: %d cells did not parse as %s and were treated as missing", c.Column, c.Rejected, c.Type)
		}
	}
	r.logger.Info("Loaded %s (%d columns, %d rows)", source, len(raw.Headers), f.Len())

	return f, &LoadResult{Source: source, Rows: f.Len(), Columns: columns}, nil
}

// splitHeader treats the first row as headers. A header-only file is an empty dataset.
func splitHeader(rows [][]string) (*RawData, error) {
	if len(rows) == 0 {
		return nil, errors.DatasetError("file must have at least a header row", nil)
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}
	return &RawData{Headers: headers, Rows: rows[1:]}, nil
}
