package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat"

	"pipeline-workers/cleaning"
	"pipeline-workers/domain"
	"pipeline-workers/frame"
)

type ChartKind string

const (
	ChartHistogram   ChartKind = "histogram"
	ChartBox         ChartKind = "box"
	ChartScatter     ChartKind = "scatter"
	ChartCorrelation ChartKind = "correlation"
	ChartTimeSeries  ChartKind = "timeseries"
	ChartBar         ChartKind = "bar"
	ChartPie         ChartKind = "pie"
)

var ChartKinds = []ChartKind{
	ChartHistogram, ChartBox, ChartScatter, ChartCorrelation, ChartTimeSeries, ChartBar, ChartPie,
}

const (
	HistogramBins = 30
	BarLimit      = 20
	PieLimit      = 10
	PieOther      = "other"
)

var (
	ErrUnknownChart = errors.New("unknown chart kind")
	ErrNoChartData  = errors.New("no data for chart")
)

type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

type Histogram struct {
	Column string `json:"column"`
	Bins   []Bin  `json:"bins"`
}

type BoxPlot struct {
	Column       string    `json:"column"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	LowerWhisker float64   `json:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker"`
	Outliers     []float64 `json:"outliers"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Scatter struct {
	X      string  `json:"x"`
	Y      string  `json:"y"`
	Points []Point `json:"points"`
}

// CorrelationMatrix holds Pearson coefficients; nil marks pairs without
// enough variance.
type CorrelationMatrix struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

type SeriesPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

type TimeSeries struct {
	TimeColumn  string        `json:"time_column"`
	ValueColumn string        `json:"value_column"`
	Points      []SeriesPoint `json:"points"`
}

type Bar struct {
	Column string       `json:"column"`
	Bars   []ValueCount `json:"bars"`
}

type PieSlice struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

type Pie struct {
	Column string     `json:"column"`
	Slices []PieSlice `json:"slices"`
}

// ChartRequest selects a chart and its columns. Empty columns default to the
// first suitable ones.
type ChartRequest struct {
	Kind ChartKind
	X    string
	Y    string
}

type Chart struct {
	Kind        ChartKind          `json:"kind"`
	Histogram   *Histogram         `json:"histogram,omitempty"`
	Box         *BoxPlot           `json:"box,omitempty"`
	Scatter     *Scatter           `json:"scatter,omitempty"`
	Correlation *CorrelationMatrix `json:"correlation,omitempty"`
	TimeSeries  *TimeSeries        `json:"timeseries,omitempty"`
	Bar         *Bar               `json:"bar,omitempty"`
	Pie         *Pie               `json:"pie,omitempty"`
}

func ParseChartKind(s string) (ChartKind, error) {
	k := ChartKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ChartKinds {
		if k == known {
			return k, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownChart, "%q", s)
}

func BuildChart(f *frame.Frame, req ChartRequest) (*Chart, error) {
	var err error
	c := &Chart{Kind: req.Kind}
	switch req.Kind {
	case ChartHistogram:
		c.Histogram, err = BuildHistogram(f, req.X, HistogramBins)
	case ChartBox:
		c.Box, err = BuildBoxPlot(f, req.X)
	case ChartScatter:
		c.Scatter, err = BuildScatter(f, req.X, req.Y)
	case ChartCorrelation:
		c.Correlation, err = BuildCorrelation(f)
	case ChartTimeSeries:
		c.TimeSeries, err = BuildTimeSeries(f, req.X, req.Y)
	case ChartBar:
		c.Bar, err = BuildBar(f, req.X, BarLimit)
	case ChartPie:
		c.Pie, err = BuildPie(f, req.X, PieLimit)
	default:
		return nil, errors.Wrapf(ErrUnknownChart, "%q", req.Kind)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func isFlagColumn(name string) bool {
	return strings.HasSuffix(name, domain.OutlierSuffix)
}

// NumericColumns are the numeric columns worth charting.
func NumericColumns(f *frame.Frame) []*frame.Column {
	return f.ColumnsOfKind(frame.KindNumeric, func(name string) bool { return !analysisColumn(name) })
}

// CategoricalColumns excludes metadata and outlier flag columns.
func CategoricalColumns(f *frame.Frame) []*frame.Column {
	return f.ColumnsOfKind(frame.KindCategorical, func(name string) bool {
		return !analysisColumn(name) || isFlagColumn(name)
	})
}

func pickColumn(f *frame.Frame, name string, kind frame.Kind, candidates []*frame.Column) (*frame.Column, error) {
	if name != "" {
		c := f.Column(name)
		if c == nil {
			return nil, errors.Mark(errors.Newf("column %q not found", name), domain.ErrNotFound)
		}
		if c.Kind != kind {
			return nil, errors.Wrapf(ErrNoChartData, "column %q is %s, want %s", name, c.Kind, kind)
		}
		return c, nil
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}
	return nil, errors.Wrapf(ErrNoChartData, "no %s column", kind)
}

func BuildHistogram(f *frame.Frame, column string, bins int) (*Histogram, error) {
	c, err := pickColumn(f, column, frame.KindNumeric, NumericColumns(f))
	if err != nil {
		return nil, err
	}
	values := c.Numbers()
	if len(values) == 0 {
		return nil, errors.Wrapf(ErrNoChartData, "column %q has no values", c.Name)
	}
	if bins <= 0 {
		bins = HistogramBins
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return &Histogram{Column: c.Name, Bins: []Bin{{Lower: lo, Upper: hi, Count: len(values)}}}, nil
	}

	width := (hi - lo) / float64(bins)
	h := &Histogram{Column: c.Name, Bins: make([]Bin, bins)}
	for i := range h.Bins {
		h.Bins[i].Lower = lo + float64(i)*width
		h.Bins[i].Upper = lo + float64(i+1)*width
	}
	h.Bins[bins-1].Upper = hi
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		h.Bins[i].Count++
	}
	return h, nil
}

// BuildBoxPlot places the whiskers on the most extreme values inside the
// 1.5 IQR fences.
func BuildBoxPlot(f *frame.Frame, column string) (*BoxPlot, error) {
	c, err := pickColumn(f, column, frame.KindNumeric, NumericColumns(f))
	if err != nil {
		return nil, err
	}
	values := c.Numbers()
	b, ok := cleaning.IQRBounds(values)
	if !ok {
		return nil, errors.Wrapf(ErrNoChartData, "column %q has no values", c.Name)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	box := &BoxPlot{
		Column:       c.Name,
		Q1:           b.Q1,
		Median:       cleaning.Quantile(sorted, 0.5),
		Q3:           b.Q3,
		LowerWhisker: b.Q1,
		UpperWhisker: b.Q3,
		Outliers:     []float64{},
	}
	for _, v := range sorted {
		if b.Outside(v) {
			box.Outliers = append(box.Outliers, v)
			continue
		}
		box.LowerWhisker = math.Min(box.LowerWhisker, v)
		box.UpperWhisker = math.Max(box.UpperWhisker, v)
	}
	return box, nil
}

func BuildScatter(f *frame.Frame, x, y string) (*Scatter, error) {
	candidates := NumericColumns(f)
	xc, err := pickColumn(f, x, frame.KindNumeric, candidates)
	if err != nil {
		return nil, err
	}
	var others []*frame.Column
	for _, c := range candidates {
		if c.Name != xc.Name {
			others = append(others, c)
		}
	}
	yc, err := pickColumn(f, y, frame.KindNumeric, others)
	if err != nil {
		return nil, err
	}
	s := &Scatter{X: xc.Name, Y: yc.Name, Points: []Point{}}
	for i := range xc.Cells {
		if xc.Cells[i].Valid && yc.Cells[i].Valid {
			s.Points = append(s.Points, Point{X: xc.Cells[i].Num, Y: yc.Cells[i].Num})
		}
	}
	return s, nil
}

func BuildCorrelation(f *frame.Frame) (*CorrelationMatrix, error) {
	cols := NumericColumns(f)
	if len(cols) < 2 {
		return nil, errors.Wrap(ErrNoChartData, "correlation needs two numeric columns")
	}
	m := &CorrelationMatrix{Values: make([][]*float64, len(cols))}
	for i, a := range cols {
		m.Columns = append(m.Columns, a.Name)
		m.Values[i] = make([]*float64, len(cols))
		for j, b := range cols {
			m.Values[i][j] = pearson(a, b)
		}
	}
	return m, nil
}

func pearson(a, b *frame.Column) *float64 {
	var xs, ys []float64
	for i := range a.Cells {
		if a.Cells[i].Valid && b.Cells[i].Valid {
			xs = append(xs, a.Cells[i].Num)
			ys = append(ys, b.Cells[i].Num)
		}
	}
	if len(xs) < 2 {
		return nil
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil
	}
	r = math.Round(r*10000) / 10000
	return &r
}

// BuildTimeSeries plots a numeric column against a datetime column, sorted by
// time. The ingest timestamp is used when the data has no date of its own.
func BuildTimeSeries(f *frame.Frame, timeColumn, valueColumn string) (*TimeSeries, error) {
	dates := f.ColumnsOfKind(frame.KindDatetime, func(name string) bool { return !analysisColumn(name) })
	if ingested := f.Column(domain.ColIngestedAt); ingested != nil && ingested.Kind == frame.KindDatetime {
		dates = append(dates, ingested)
	}
	tc, err := pickColumn(f, timeColumn, frame.KindDatetime, dates)
	if err != nil {
		return nil, err
	}
	vc, err := pickColumn(f, valueColumn, frame.KindNumeric, NumericColumns(f))
	if err != nil {
		return nil, err
	}
	ts := &TimeSeries{TimeColumn: tc.Name, ValueColumn: vc.Name, Points: []SeriesPoint{}}
	for i := range tc.Cells {
		if tc.Cells[i].Valid && vc.Cells[i].Valid {
			ts.Points = append(ts.Points, SeriesPoint{Time: tc.Cells[i].Time, Value: vc.Cells[i].Num})
		}
	}
	sort.SliceStable(ts.Points, func(i, j int) bool { return ts.Points[i].Time.Before(ts.Points[j].Time) })
	return ts, nil
}

func BuildBar(f *frame.Frame, column string, limit int) (*Bar, error) {
	c, err := pickColumn(f, column, frame.KindCategorical, CategoricalColumns(f))
	if err != nil {
		return nil, err
	}
	counts := ValueCounts(c)
	if len(counts) == 0 {
		return nil, errors.Wrapf(ErrNoChartData, "column %q has no values", c.Name)
	}
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return &Bar{Column: c.Name, Bars: counts}, nil
}

// BuildPie keeps the limit most frequent values and folds the rest into a
// single "other" slice. Shares are percentages.
func BuildPie(f *frame.Frame, column string, limit int) (*Pie, error) {
	c, err := pickColumn(f, column, frame.KindCategorical, CategoricalColumns(f))
	if err != nil {
		return nil, err
	}
	counts := ValueCounts(c)
	if len(counts) == 0 {
		return nil, errors.Wrapf(ErrNoChartData, "column %q has no values", c.Name)
	}
	total := 0
	for _, vc := range counts {
		total += vc.Count
	}
	p := &Pie{Column: c.Name}
	rest := 0
	for i, vc := range counts {
		if limit > 0 && i >= limit {
			rest += vc.Count
			continue
		}
		p.Slices = append(p.Slices, PieSlice{Label: vc.Value, Count: vc.Count, Share: share(vc.Count, total)})
	}
	if rest > 0 {
		p.Slices = append(p.Slices, PieSlice{Label: PieOther, Count: rest, Share: share(rest, total)})
	}
	return p, nil
}

func share(part, total int) float64 {
	return math.Round(float64(part)/float64(total)*10000) / 100
}
