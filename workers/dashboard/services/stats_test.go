package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-workers/frame"
)

func mustFrame(t *testing.T, csv string) *frame.Frame {
	t.Helper()
	f, err := frame.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	restoreDates(f)
	return f
}

func TestDescribe(t *testing.T) {
	f := mustFrame(t, cleanedCSV)

	stats := Describe(f)

	require.Len(t, stats, 2)
	amount := stats[1]
	assert.Equal(t, "amount", amount.Column)
	assert.Equal(t, 4, amount.Count)
	assert.InDelta(t, 25.0, amount.Mean, 1e-9)
	assert.InDelta(t, 12.9099, amount.Std, 1e-4)
	assert.Equal(t, 10.0, amount.Min)
	assert.InDelta(t, 17.5, amount.Q25, 1e-9)
	assert.InDelta(t, 25.0, amount.Q50, 1e-9)
	assert.InDelta(t, 32.5, amount.Q75, 1e-9)
	assert.Equal(t, 40.0, amount.Max)
}

func TestDescribe_SingleValue(t *testing.T) {
	stats := Describe(mustFrame(t, "v\n7\n\n"))

	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Count)
	assert.Equal(t, 7.0, stats[0].Mean)
	assert.Equal(t, 0.0, stats[0].Std)
}

func TestDescribe_SkipsCompletenessScore(t *testing.T) {
	stats := Describe(mustFrame(t, "v,completeness_score\n1,100\n2,50\n"))

	require.Len(t, stats, 1)
	assert.Equal(t, "v", stats[0].Column)
}

func TestTopValues(t *testing.T) {
	f := mustFrame(t, cleanedCSV)

	top := TopValues(f, 2)

	require.Len(t, top, 1, "metadata columns are not profiled")
	city := top[0]
	assert.Equal(t, "city", city.Column)
	assert.Equal(t, 4, city.Count)
	assert.Equal(t, 3, city.Unique)
	assert.Equal(t, []ValueCount{{Value: "Paris", Count: 2}, {Value: "Lyon", Count: 1}}, city.Top)
}

func TestValueCounts_SkipsNulls(t *testing.T) {
	f := mustFrame(t, "c\nb\na\n\nb\na\n")

	counts := ValueCounts(f.Column("c"))

	assert.Equal(t, []ValueCount{{Value: "a", Count: 2}, {Value: "b", Count: 2}}, counts)
}
