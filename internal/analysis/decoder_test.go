package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRows_WithHeader(t *testing.T) {
	table, err := DecodeRows("Name,Price\nWidget,10\nGadget,20\n", true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Price"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Widget", table.Rows[0].Get("Name"))
	assert.Equal(t, "20", table.Rows[1].Get("Price"))
}

func TestDecodeRows_PositionalColumns(t *testing.T) {
	table, err := DecodeRows("a,b,c\nd,e,f\n", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"column_1", "column_2", "column_3"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "a", table.Rows[0].Get("column_1"))
	assert.Equal(t, "f", table.Rows[1].Get("column_3"))
}

func TestDecodeRows_ShortAndLongRecords(t *testing.T) {
	table, err := DecodeRows("A,B,C\nonly\n1,2,3,4\n", true)
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	// Short records lack the trailing keys.
	assert.Equal(t, "only", table.Rows[0].Get("A"))
	assert.Equal(t, "", table.Rows[0].Get("B"))
	// Extra fields beyond the header are dropped.
	assert.Equal(t, "3", table.Rows[1].Get("C"))
	assert.Len(t, table.Rows[1], 3)
}

func TestDecodeRows_SkipsEmptyLines(t *testing.T) {
	table, err := DecodeRows("A,B\n\n ,  \nx,y\n", true)
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	assert.Equal(t, "x", table.Rows[0].Get("A"))
}

func TestDecodeRows_TrimsHeaderWhitespace(t *testing.T) {
	table, err := DecodeRows(" Order Date , Selling Price \nv1,v2\n", true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Order Date", "Selling Price"}, table.Columns)
	assert.Equal(t, "v1", table.Rows[0].Get("Order Date"))
}

func TestDecodeRows_EmptyInput(t *testing.T) {
	table, err := DecodeRows("", true)
	require.NoError(t, err)

	assert.NotNil(t, table.Columns)
	assert.Empty(t, table.Rows)
}

func TestDecodeRows_LazyQuotesTolerated(t *testing.T) {
	// Stray quotes are common in marketplace product names; decoding must
	// not reject them.
	table, err := DecodeRows("Product Name,Price\n5\" Widget,10\n", true)
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	assert.Equal(t, `5" Widget`, table.Rows[0].Get("Product Name"))
}

func TestDecodeError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &DecodeError{Line: 3, Err: inner}

	assert.Equal(t, "failed to decode tabular data at line 3: boom", err.Error())
	assert.True(t, errors.Is(err, inner))
}
