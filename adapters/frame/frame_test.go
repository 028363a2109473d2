package frame

import (
	"errors"
	"regexp"
	"testing"

	"dqengine/domain/core"
	"dqengine/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ordersFixture() *Frame {
	return MustNew(
		Col("order_id", "A", "B", "B", "C", nil),
		Col("amount", 10.0, -5.0, 20.0, nil, 30.0),
		Col("email", "a@x.com", "bad", nil, "c@x.com", "d@x.com"),
	)
}

func TestNewValidatesShape(t *testing.T) {
	_, err := New(Col("a", 1, 2), Col("b", 1))
	assert.Error(t, err)

	_, err = New(Col("a", 1), Col("a", 2))
	assert.Error(t, err)

	_, err = New(Col(" ", 1))
	assert.Error(t, err)

	f, err := New()
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
	assert.Empty(t, f.Columns())
}

func TestFromRows(t *testing.T) {
	f, err := FromRows([]string{"id", "qty"}, []map[string]interface{}{
		{"id": "A", "qty": 1},
		{"id": "B"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, f.Len())
	n, err := f.NullCount("qty")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestColumnLookup(t *testing.T) {
	f := ordersFixture()

	assert.Equal(t, []string{"order_id", "amount", "email"}, f.Columns())
	assert.True(t, f.HasColumn("amount"))
	assert.False(t, f.HasColumn("missing"))

	_, err := f.Column("missing")
	assert.True(t, errors.Is(err, core.ErrColumnNotFound))

	typ, err := f.ColumnType("amount")
	require.NoError(t, err)
	assert.Equal(t, table.ValueTypeNumeric, typ)
}

func TestNullCounts(t *testing.T) {
	f := ordersFixture()

	n, err := f.NullCount("order_id")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, f.NullCells())
}

func TestFloatsRejectsStrings(t *testing.T) {
	f := ordersFixture()

	_, err := f.Floats("email")
	assert.True(t, errors.Is(err, core.ErrNotNumeric))

	data, err := f.Floats("amount")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, -5, 20, 30}, data)
}

func TestFilterNeverSelectsMissing(t *testing.T) {
	f := ordersFixture()

	mask, err := f.Filter("amount", func(v table.Value) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, table.Mask{true, true, true, false, true}, mask)
}

func TestContainsNullSemantics(t *testing.T) {
	f := ordersFixture()
	re := regexp.MustCompile(`^[^@]+@[^@]+\.[a-z]+$`)

	mask, err := f.Contains("email", re, true)
	require.NoError(t, err)
	assert.Equal(t, table.Mask{true, false, false, true, true}, mask)

	mask, err = f.Contains("email", re, false)
	require.NoError(t, err)
	assert.True(t, mask[2])

	_, err = f.Contains("amount", re, true)
	assert.True(t, errors.Is(err, core.ErrNotString))
}

func TestSampleAndDistinctSample(t *testing.T) {
	f := ordersFixture()
	mask := table.Mask{false, true, true, true, false}

	sample, err := f.Sample("order_id", mask, 2)
	require.NoError(t, err)
	assert.Equal(t, table.Values("B", "B"), sample)

	distinct, err := f.DistinctSample("order_id", mask, 5)
	require.NoError(t, err)
	assert.Equal(t, table.Values("B", "C"), distinct)

	_, err = f.Sample("order_id", table.Mask{true}, 1)
	assert.True(t, errors.Is(err, core.ErrMaskLength))
}

func TestRejectedCounts(t *testing.T) {
	f := ordersFixture()
	assert.Nil(t, f.Rejected())

	f.SetRejected("amount", 2)
	f.SetRejected("status", 0)
	got := f.Rejected()
	assert.Equal(t, map[string]int{"amount": 2}, got)

	got["amount"] = 9
	assert.Equal(t, map[string]int{"amount": 2}, f.Rejected())

	f.SetRejected("amount", 0)
	assert.Nil(t, f.Rejected())
}

func TestDeduplicate(t *testing.T) {
	f := MustNew(
		Col("k", "A", "B", "A", nil, nil),
		Col("v", 1, 2, 3, 4, 5),
	)

	first, err := f.Deduplicate([]string{"k"}, table.KeepFirst)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3}, first)

	last, err := f.Deduplicate([]string{"k"}, table.KeepLast)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4}, last)

	all, err := f.Deduplicate([]string{"k", "v"}, table.KeepFirst)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = f.Deduplicate(nil, table.KeepFirst)
	assert.Error(t, err)
}
