package frame

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferKind(t *testing.T) {
	cases := []struct {
		name   string
		values []string
		want   Kind
	}{
		{"empty", nil, KindUnknown},
		{"all null", []string{"", "NA", "null"}, KindUnknown},
		{"numeric", []string{"1", "2.5", "", "-3e2"}, KindNumeric},
		{"years stay numeric", []string{"2023", "2024"}, KindNumeric},
		{"dates", []string{"2024-01-01", "2024-02-03", "N/A"}, KindDatetime},
		{"timestamps", []string{"2024-01-01T10:00:00Z", "2024-01-01 11:30:00"}, KindDatetime},
		{"lower-cased timestamps", []string{"2024-01-01t10:00:00z", "mon, 02 jan 2006 15:04:05 mst"}, KindDatetime},
		{"mixed", []string{"1", "two", "3"}, KindCategorical},
		{"nan is null", []string{"NaN", "4"}, KindNumeric},
		{"inf is text", []string{"Inf", "4"}, KindCategorical},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, InferKind(c.values))
		})
	}
	assert.Equal(t, KindCategorical, InferReadKind([]string{"2024-01-01"}))
}

func TestKindString(t *testing.T) {
	for _, k := range []Kind{KindUnknown, KindNumeric, KindCategorical, KindDatetime} {
		assert.Equal(t, k, ParseKind(k.String()))
	}
}

func TestReadCSV(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("id,name,score\n1,alice,3.5\n2,bob,\n3,,4\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, []string{"id", "name", "score"}, f.Names())
	assert.Equal(t, KindNumeric, f.Column("id").Kind)
	assert.Equal(t, KindCategorical, f.Column("name").Kind)
	assert.Equal(t, KindNumeric, f.Column("score").Kind)
	assert.Equal(t, 1, f.Column("score").NullCount())
	assert.Equal(t, []float64{3.5, 4}, f.Column("score").Numbers())
}

func TestReadCSV_SniffsDelimiterAndDedupesHeader(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("a;a;b\n1;2;x\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "b"}, f.Names())
	assert.Equal(t, "2", f.Column("a.1").Format(0))
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"))
	assert.Error(t, err)
}

func TestReadCSV_PadsShortRows(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("a,b\n1\n"))
	require.NoError(t, err)
	assert.False(t, f.Column("b").Cells[0].Valid)
}

func TestWriteCSV_RoundTripIsStable(t *testing.T) {
	in := "when,value,label\n2024-01-01,1.50,x\n2024-01-02,2,\"y, z\"\n"
	f, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	f.Column("when").Convert(KindDatetime)

	first, err := EncodeCSV(f)
	require.NoError(t, err)
	assert.Equal(t, "when,value,label\n2024-01-01,1.5,x\n2024-01-02,2,\"y, z\"\n", string(first))

	again, err := ReadCSV(strings.NewReader(string(first)))
	require.NoError(t, err)
	again.Column("when").Convert(KindDatetime)
	second, err := EncodeCSV(again)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestColumnFormat_Timestamps(t *testing.T) {
	c := NewColumn("at", KindDatetime, []string{"2024-01-01T10:30:00Z", ""})
	assert.Equal(t, "2024-01-01T10:30:00Z", c.Format(0))
	assert.Equal(t, "", c.Format(1))
	assert.Equal(t, time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC), c.Cells[0].Time)
}

func TestConvert_CountsInvalid(t *testing.T) {
	c := NewColumn("x", KindCategorical, []string{"1", "2", "oops", ""})
	assert.Equal(t, 1, c.Convert(KindNumeric))
	assert.Equal(t, 2, c.NullCount())
}

func TestFrameOps(t *testing.T) {
	f, err := New([]string{"a", "b"}, [][]string{{"1", "x"}, {"2", "y"}, {"3", "z"}})
	require.NoError(t, err)

	sub := f.Filter(func(r int) bool { return r != 1 })
	assert.Equal(t, 2, sub.NumRows())
	assert.Equal(t, []string{"3", "z"}, sub.Row(1))
	assert.Equal(t, 3, f.NumRows(), "filter leaves the source untouched")

	assert.Equal(t, 1, f.Head(2, 10).NumRows())
	assert.Equal(t, 0, f.Head(5, 10).NumRows())

	assert.True(t, f.DropColumn("b"))
	assert.False(t, f.DropColumn("b"))
	assert.Error(t, f.AddColumn(NewColumn("c", KindNumeric, []string{"1"})))
	assert.NoError(t, f.AddColumn(NewColumn("c", KindNumeric, []string{"1", "2", "3"})))
	assert.Error(t, f.AddColumn(NewColumn("c", KindNumeric, []string{"1", "2", "3"})))

	cl := f.Clone()
	cl.Column("a").Set(0, "9")
	assert.Equal(t, "1", f.Column("a").Format(0))
	assert.Equal(t, f.RowKey(1, f.Columns), cl.RowKey(1, cl.Columns))
}
