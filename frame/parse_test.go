package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseJSON_Array(t *testing.T) {
	f, err := ParseJSON([]byte(`[{"b":1,"a":"x"},{"a":"y","c":{"k":[1, 2]}},{"b":null}]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "c"}, f.Names())
	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, KindNumeric, f.Column("b").Kind)
	assert.Equal(t, `{"k":[1,2]}`, f.Column("c").Format(1))
	assert.False(t, f.Column("b").Cells[2].Valid)
}

func TestParseJSON_ObjectAndPrimitive(t *testing.T) {
	f, err := ParseJSON([]byte(`{"name":"solo","n":3}`))
	require.NoError(t, err)
	assert.Equal(t, 1, f.NumRows())
	assert.Equal(t, []string{"name", "n"}, f.Names())

	f, err = ParseJSON([]byte(`42`))
	require.NoError(t, err)
	assert.Equal(t, []string{"data"}, f.Names())
	assert.Equal(t, "42", f.Column("data").Format(0))

	f, err = ParseJSON([]byte(`[1, 2]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"value"}, f.Names())
}

func TestParseJSON_Invalid(t *testing.T) {
	_, err := ParseJSON([]byte(`[{"a":1}`))
	assert.Error(t, err)
	_, err = ParseJSON([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
	_, err = ParseJSON([]byte(`[]`))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParseText(t *testing.T) {
	f, err := ParseText("a|b\n1|2\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.Names())

	f, err = ParseText("first line\nsecond line")
	require.NoError(t, err)
	assert.Equal(t, []string{"text_content", "line_number"}, f.Names())
	assert.Equal(t, "2", f.Column("line_number").Format(1))
}

func TestParseXLSX(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	require.NoError(t, book.SetSheetRow(sheet, "A1", &[]interface{}{"city", "population"}))
	require.NoError(t, book.SetSheetRow(sheet, "A2", &[]interface{}{"Espoo", 300000}))
	require.NoError(t, book.SetSheetRow(sheet, "A3", &[]interface{}{"Oulu", 210000}))
	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	f, err := Parse("cities.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "population"}, f.Names())
	assert.Equal(t, KindNumeric, f.Column("population").Kind)
	assert.Equal(t, 2, f.NumRows())
}

func TestParse_LegacyExcelUnsupported(t *testing.T) {
	_, err := Parse("old.xls", []byte("whatever"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeText(t *testing.T) {
	assert.Equal(t, "abc", DecodeText([]byte("\xef\xbb\xbfabc")))
	assert.Equal(t, "café", DecodeText([]byte("caf\xe9")))
	assert.Equal(t, "€5", DecodeText([]byte("\x805")))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "first_name", StandardizeName("  First Name "))
	assert.Equal(t, "price_eur", StandardizeName("Price (EUR)"))
	assert.Equal(t, "unit_price", NormalizeName("Unit-Price", 0))
	assert.Equal(t, "a_b", NormalizeName("a.b", 0))
	assert.Equal(t, "col_2024_sales", NormalizeName("2024 Sales", 0))
	assert.Equal(t, "col_3", NormalizeName("???", 3))
}
