package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		" Product Code ":  "productcode",
		"\ufeffDate":      "date",
		"closing\tStock":  "closingstock",
		"賞味期限":            "賞味期限",
		"":                "",
		"  ":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHeader(in), "input %q", in)
	}
}

func TestHeaderIndexToleratesReorderedColumns(t *testing.T) {
	idx := NewHeaderIndex([]string{"Quantity", " product code", "DATE"})

	assert.Equal(t, 2, idx.Position("date"))
	assert.Equal(t, 1, idx.Position("productCode"))
	assert.Equal(t, 0, idx.Position("quantity"))
	assert.Equal(t, -1, idx.Position("expiration"))
	assert.Equal(t, 3, idx.Width())
}

func TestHeaderIndexRequire(t *testing.T) {
	idx := NewHeaderIndex([]string{"date", "productCode"})

	require.NoError(t, idx.Require("date", "product code"))

	err := idx.Require("date", "quantity")
	require.ErrorIs(t, err, ErrMalformedHeader)
	assert.Contains(t, err.Error(), "quantity")
}

func TestCellToleratesShortRows(t *testing.T) {
	row := []string{" a ", "b"}
	assert.Equal(t, "a", Cell(row, 0))
	assert.Equal(t, "", Cell(row, 5))
	assert.Equal(t, "", Cell(row, -1))
}
