package cleaning

import (
	"math"
	"sort"
)

// Quantile returns the q-th quantile (0 <= q <= 1) of values with linear
// interpolation between closest ranks (Hyndman and Fan type 7).
// It returns NaN for an empty input.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := math.Floor(pos)
	hi := math.Ceil(pos)
	if lo == hi {
		return sorted[int(lo)]
	}
	return sorted[int(lo)] + (pos-lo)*(sorted[int(hi)]-sorted[int(lo)])
}

func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Bounds are the IQR fences of a numeric column.
type Bounds struct {
	Q1, Q3, IQR  float64
	Lower, Upper float64
}

// IQRBounds computes Q1 - 1.5*IQR and Q3 + 1.5*IQR. ok is false when there
// are no values.
func IQRBounds(values []float64) (Bounds, bool) {
	if len(values) == 0 {
		return Bounds{}, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q1 := quantileSorted(sorted, 0.25)
	q3 := quantileSorted(sorted, 0.75)
	iqr := q3 - q1
	return Bounds{
		Q1:    q1,
		Q3:    q3,
		IQR:   iqr,
		Lower: q1 - 1.5*iqr,
		Upper: q3 + 1.5*iqr,
	}, true
}

// Outside reports whether v lies strictly outside the fences.
func (b Bounds) Outside(v float64) bool {
	return v < b.Lower || v > b.Upper
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

func percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
