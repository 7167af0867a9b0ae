package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanMoney(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"$1,234.56", 1234.56},
		{"12.99", 12.99},
		{`"$45.00"`, 45.0},
		{"'7.50'", 7.5},
		{"-$3.25", -3.25},
		{"Not Available", 0.0},
		{"", 0.0},
		{"free", 0.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanMoney(tt.input), "cleanMoney(%q)", tt.input)
	}
}

func TestParseDate(t *testing.T) {
	got := parseDate("2023-07-14T09:30:00Z")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2023, 7, 14, 9, 30, 0, 0, time.UTC), *got)

	got = parseDate("2023-07-14")
	require.NotNil(t, got)
	assert.Equal(t, 2023, got.Year())

	got = parseDate("2023-07-14 09:30:00")
	require.NotNil(t, got)
	assert.Equal(t, time.July, got.Month())

	assert.Nil(t, parseDate("Not Available"))
	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("yesterday"))
}

func TestMapShipmentStatus(t *testing.T) {
	assert.Equal(t, "Shipped", mapShipmentStatus("Shipped"))
	assert.Equal(t, "Delivered", mapShipmentStatus("Delivered"))
	assert.Equal(t, "Pending", mapShipmentStatus("Pending"))
	assert.Equal(t, "Pending", mapShipmentStatus("Not Available"))
	assert.Equal(t, "Pending", mapShipmentStatus("In Transit"))
	assert.Equal(t, "Pending", mapShipmentStatus(""))
}

func TestMapReturnStatus(t *testing.T) {
	assert.Equal(t, "Completed", mapReturnStatus("Completed"))
	assert.Equal(t, "Completed", mapReturnStatus("Complete"))
	assert.Equal(t, "Completed", mapReturnStatus("Returned"))
	assert.Equal(t, "Rejected", mapReturnStatus("Rejected"))
	assert.Equal(t, "Pending", mapReturnStatus("In Progress"))
	assert.Equal(t, "Pending", mapReturnStatus(""))
}

func TestClampQuantity(t *testing.T) {
	assert.Equal(t, 3, clampQuantity("3"))
	assert.Equal(t, 1, clampQuantity("0"))
	assert.Equal(t, 1, clampQuantity("-2"))
	assert.Equal(t, 1, clampQuantity("many"))
	assert.Equal(t, 1, clampQuantity(""))
}

func TestParseYesNo(t *testing.T) {
	assert.True(t, parseYesNo("Yes"))
	assert.True(t, parseYesNo("yes"))
	assert.False(t, parseYesNo("No"))
	assert.False(t, parseYesNo("Not Available"))
	assert.False(t, parseYesNo(""))
}

func TestNullIfMissing(t *testing.T) {
	assert.Nil(t, nullIfMissing(""))
	assert.Nil(t, nullIfMissing("Not Available"))
	assert.Equal(t, "USPS", nullIfMissing("USPS"))
}
