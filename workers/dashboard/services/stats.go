package services

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"pipeline-workers/cleaning"
	"pipeline-workers/domain"
	"pipeline-workers/frame"
)

// TopValuesLimit is the number of most frequent values shown per column.
const TopValuesLimit = 10

type NumericStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"25%"`
	Q50    float64 `json:"50%"`
	Q75    float64 `json:"75%"`
	Max    float64 `json:"max"`
}

type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type CategoryStats struct {
	Column string       `json:"column"`
	Count  int          `json:"count"`
	Unique int          `json:"unique"`
	Top    []ValueCount `json:"top"`
}

type Statistics struct {
	Numeric     []NumericStats  `json:"numeric"`
	Categorical []CategoryStats `json:"categorical"`
}

func analysisColumn(name string) bool {
	return !domain.MetadataColumns[name] && name != domain.ColCompleteness
}

// Describe summarises every numeric column with values. Std is the sample
// standard deviation and is 0 for a single value.
func Describe(f *frame.Frame) []NumericStats {
	out := []NumericStats{}
	for _, c := range f.ColumnsOfKind(frame.KindNumeric, nil) {
		values := c.Numbers()
		if len(values) == 0 {
			continue
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		s := NumericStats{
			Column: c.Name,
			Count:  len(sorted),
			Min:    sorted[0],
			Q25:    cleaning.Quantile(sorted, 0.25),
			Q50:    cleaning.Quantile(sorted, 0.5),
			Q75:    cleaning.Quantile(sorted, 0.75),
			Max:    sorted[len(sorted)-1],
		}
		if len(sorted) > 1 {
			s.Mean, s.Std = stat.MeanStdDev(sorted, nil)
		} else {
			s.Mean = sorted[0]
		}
		out = append(out, s)
	}
	return out
}

// TopValues returns the n most frequent values of every categorical column,
// metadata columns excluded.
func TopValues(f *frame.Frame, n int) []CategoryStats {
	out := []CategoryStats{}
	for _, c := range f.ColumnsOfKind(frame.KindCategorical, func(name string) bool { return !analysisColumn(name) }) {
		counts := ValueCounts(c)
		total := 0
		for _, vc := range counts {
			total += vc.Count
		}
		unique := len(counts)
		if n >= 0 && len(counts) > n {
			counts = counts[:n]
		}
		out = append(out, CategoryStats{Column: c.Name, Count: total, Unique: unique, Top: counts})
	}
	return out
}

// ValueCounts counts the non-null values of c, most frequent first and ties
// in value order.
func ValueCounts(c *frame.Column) []ValueCount {
	counts := map[string]int{}
	for i, cell := range c.Cells {
		if cell.Valid {
			counts[c.Format(i)]++
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func Compute(f *frame.Frame) Statistics {
	return Statistics{Numeric: Describe(f), Categorical: TopValues(f, TopValuesLimit)}
}
