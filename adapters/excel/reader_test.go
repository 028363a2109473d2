package excel

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dqengine/domain/table"
	"dqengine/internal"
	"dqengine/internal/errors"
)

const ordersCSV = `order_id,amount,created
A1,10.5,2024-01-01
A2,-3,2024-01-02
A3,,2024-01-03
`

func newReader() *DataReader {
	return NewDataReader(DefaultReaderConfig(), internal.NewNopLogger())
}

func TestFileType(t *testing.T) {
	assert.Equal(t, FileTypeCSV, FileType("orders.CSV"))
	assert.Equal(t, FileTypeXLSX, FileType("orders.xlsx"))
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(ordersCSV), 0o644))

	f, result, err := newReader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, 3, result.Rows)
	assert.Equal(t, []string{"order_id", "amount", "created"}, f.Columns())

	typ, err := f.ColumnType("amount")
	require.NoError(t, err)
	assert.Equal(t, table.ValueTypeNumeric, typ)

	typ, err = f.ColumnType("created")
	require.NoError(t, err)
	assert.Equal(t, table.ValueTypeTimestamp, typ)

	sum, err := f.Sum("amount")
	require.NoError(t, err)
	assert.InDelta(t, 7.5, sum, 1e-9)
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := newReader().LoadDataset(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.xlsx")

	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]interface{}{"order_id", "amount"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]interface{}{"A1", 10}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A3", &[]interface{}{"A2", 20}))
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	ds, err := newReader().LoadDataset(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())

	mean, err := ds.Mean("amount")
	require.NoError(t, err)
	assert.InDelta(t, 15.0, mean, 1e-9)
}

func TestLoadReaderCSV(t *testing.T) {
	f, result, err := newReader().LoadReader(context.Background(), "upload", FileTypeCSV, strings.NewReader("id,score\n1,x\n2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, "upload", result.Source)
}

func TestLoadReaderHeaderOnly(t *testing.T) {
	f, _, err := newReader().LoadReader(context.Background(), "upload", FileTypeCSV, strings.NewReader("id,score\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
	assert.True(t, f.HasColumn("score"))
}

func TestLoadReaderRejectsEmptyAndUnknown(t *testing.T) {
	_, _, err := newReader().LoadReader(context.Background(), "upload", FileTypeCSV, strings.NewReader(""))
	assert.True(t, errors.HasCode(err, errors.CodeDatasetError))

	_, _, err = newReader().LoadReader(context.Background(), "upload", "parquet", strings.NewReader("x"))
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestLoadCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newReader().Load(ctx, "whatever.csv")
	assert.ErrorIs(t, err, context.Canceled)
}
