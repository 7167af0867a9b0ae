package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeTempCSV(t, "Order ID,ASIN,Quantity\n111-001,B0ABC,2\n111-002,B0DEF,1\n")

	table, err := ReadCSV(path)
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.True(t, table.HasColumn("Order ID"))
	assert.False(t, table.HasColumn("Shipment Status"))
	assert.Equal(t, "B0ABC", table.Value(0, "ASIN"))
	assert.Equal(t, "1", table.Value(1, "Quantity"))
	assert.Equal(t, "", table.Value(0, "Missing Column"))
}

func TestReadCSVColumnVariants(t *testing.T) {
	path := writeTempCSV(t, "OrderId,ShippingAddress\n111-001,742 Evergreen DR Springfield OR 97477\n")

	table, err := ReadCSV(path)
	require.NoError(t, err)

	col, ok := table.Column("Order ID", "OrderId", "Order-ID")
	require.True(t, ok)
	assert.Equal(t, "OrderId", col)

	_, ok = table.Column("BillingAddress", "Billing Address")
	assert.False(t, ok)
}

func TestReadCSVShortRecords(t *testing.T) {
	path := writeTempCSV(t, "A,B,C\n1,2\n")

	table, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, "", table.Value(0, "C"))
}

func TestReadCSVEmptyFile(t *testing.T) {
	path := writeTempCSV(t, "")

	_, err := ReadCSV(path)
	assert.Error(t, err)
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
