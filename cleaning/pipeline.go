// Package cleaning turns a raw artifact frame into a cleaned frame and its
// quality summary.
package cleaning

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"pipeline-workers/domain"
	"pipeline-workers/frame"
)

// DefaultMissingDropThreshold drops data columns with more than 90% nulls.
const DefaultMissingDropThreshold = 90.0

// Source identifies the raw artifact being cleaned.
type Source struct {
	Name     string
	Modified time.Time
}

type Result struct {
	Frame   *frame.Frame
	Summary domain.QualitySummary
}

type Pipeline struct {
	// MissingDropThreshold is a percentage; columns with a larger share of
	// nulls are dropped before imputation. Values <= 0 or >= 100 disable it.
	MissingDropThreshold float64
}

func NewPipeline(missingDropThreshold float64) *Pipeline {
	return &Pipeline{MissingDropThreshold: missingDropThreshold}
}

// Run applies the cleaning steps in their fixed order. The input frame is
// not modified. The result depends only on the input frame and src.
func (p *Pipeline) Run(raw *frame.Frame, src Source) (*Result, error) {
	f := raw.Clone()
	s := domain.QualitySummary{
		Source:          src.Name,
		Cleaned:         domain.CleanedArtifactName(src.Name),
		SourceModified:  src.Modified.UTC(),
		OriginalRows:    raw.NumRows(),
		OriginalColumns: raw.NumColumns(),
		DroppedColumns:  []string{},
		RenamedColumns:  []domain.RenamedColumn{},
		ImputedColumns:  []domain.ImputedColumn{},
		CoercedColumns:  []domain.CoercedColumn{},
		Outliers:        []domain.OutlierReport{},
	}

	f, s.DuplicatesRemoved = RemoveDuplicates(f)
	s.RenamedColumns = NormalizeColumnNames(f)
	s.DroppedColumns = DropSparseColumns(f, p.MissingDropThreshold)
	s.ImputedColumns = ImputeMissing(f)
	NormalizeText(f)
	s.CoercedColumns = CoerceTypes(f)
	outliers, err := FlagOutliers(f)
	if err != nil {
		return nil, domain.MarkProcessing(err)
	}
	s.Outliers = outliers
	derived := flagColumns(f, outliers)
	completeness, err := AddCompleteness(f, derived...)
	if err != nil {
		return nil, domain.MarkProcessing(err)
	}
	if completeness != nil {
		derived = append(derived, completeness)
	}

	s.CleanedRows = f.NumRows()
	s.CleanedColumns = f.NumColumns()
	s.RowsRemoved = s.OriginalRows - s.CleanedRows
	s.RemovalPercentage = round2(percent(s.RowsRemoved, s.OriginalRows))
	s.DataTypes = make(map[string]string, f.NumColumns())
	for _, c := range f.Columns {
		s.DataTypes[c.Name] = c.Kind.String()
	}
	s.Quality = Assess(f, derived...)

	return &Result{Frame: f, Summary: s}, nil
}

// RemoveDuplicates keeps the first of every group of rows equal on all data
// columns.
func RemoveDuplicates(f *frame.Frame) (*frame.Frame, int) {
	cols := dataColumns(f)
	if len(cols) == 0 {
		cols = f.Columns
	}
	seen := make(map[string]struct{}, f.NumRows())
	out := f.Filter(func(r int) bool {
		key := f.RowKey(r, cols)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
	return out, f.NumRows() - out.NumRows()
}

// NormalizeColumnNames renames data columns with frame.NormalizeName. Names
// that collide, with each other or with a column added by cleaning, get a
// numeric suffix.
func NormalizeColumnNames(f *frame.Frame) []domain.RenamedColumn {
	renamed := []domain.RenamedColumn{}
	taken := map[string]bool{}
	for _, c := range f.Columns {
		if domain.MetadataColumns[c.Name] {
			taken[c.Name] = true
		}
	}
	for i, c := range f.Columns {
		if domain.MetadataColumns[c.Name] {
			continue
		}
		name := frame.NormalizeName(c.Name, i)
		candidate := name
		for n := 2; taken[candidate] || domain.ReservedColumnName(candidate); n++ {
			candidate = name + "_" + strconv.Itoa(n)
		}
		taken[candidate] = true
		if candidate != c.Name {
			renamed = append(renamed, domain.RenamedColumn{From: c.Name, To: candidate})
			c.Name = candidate
		}
	}
	return renamed
}

// DropSparseColumns removes data columns whose share of nulls exceeds
// threshold percent.
func DropSparseColumns(f *frame.Frame, threshold float64) []string {
	dropped := []string{}
	rows := f.NumRows()
	if rows == 0 || threshold <= 0 || threshold >= 100 {
		return dropped
	}
	for _, c := range dataColumns(f) {
		if percent(c.NullCount(), rows) > threshold {
			dropped = append(dropped, c.Name)
		}
	}
	for _, name := range dropped {
		f.DropColumn(name)
	}
	return dropped
}

// ImputeMissing fills nulls: numeric columns with their median, other
// columns with their most frequent value, and columns without any value
// with the "unknown" sentinel.
func ImputeMissing(f *frame.Frame) []domain.ImputedColumn {
	imputed := []domain.ImputedColumn{}
	for _, c := range dataColumns(f) {
		nulls := c.NullCount()
		if nulls == 0 {
			continue
		}
		var strategy, value string
		switch {
		case c.Kind == frame.KindNumeric && nulls < len(c.Cells):
			strategy = "median"
			value = strconv.FormatFloat(Median(c.Numbers()), 'f', -1, 64)
		case nulls < len(c.Cells):
			strategy = "mode"
			value = Mode(c)
		default:
			strategy = "sentinel"
			value = domain.UnknownSentinel
			c.Convert(frame.KindCategorical)
		}
		for i, cell := range c.Cells {
			if !cell.Valid {
				c.Set(i, value)
			}
		}
		imputed = append(imputed, domain.ImputedColumn{Column: c.Name, Strategy: strategy, Value: value, Cells: nulls})
	}
	return imputed
}

// Mode returns the most frequent formatted value of c; ties go to the
// lexicographically smallest value.
func Mode(c *frame.Column) string {
	counts := map[string]int{}
	for i, cell := range c.Cells {
		if cell.Valid {
			counts[c.Format(i)]++
		}
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	if bestN == 0 {
		return domain.UnknownSentinel
	}
	return best
}

// CoerceTypes re-infers categorical data columns: a column whose values all
// parse as dates becomes datetime, one where more than half parse as numbers
// becomes numeric, with the rest turned into nulls.
func CoerceTypes(f *frame.Frame) []domain.CoercedColumn {
	coerced := []domain.CoercedColumn{}
	for _, c := range dataColumns(f) {
		if c.Kind != frame.KindCategorical {
			continue
		}
		values := c.Texts()
		target := frame.KindUnknown
		switch frame.InferKind(values) {
		case frame.KindDatetime:
			target = frame.KindDatetime
		case frame.KindCategorical:
			if share, _ := frame.ParseFraction(values, frame.KindNumeric); share > 0.5 {
				target = frame.KindNumeric
			}
		}
		if target == frame.KindUnknown {
			continue
		}
		from := c.Kind
		invalid := c.Convert(target)
		coerced = append(coerced, domain.CoercedColumn{Column: c.Name, From: from.String(), To: target.String(), Invalid: invalid})
	}
	return coerced
}

// NormalizeText trims and lower-cases categorical data values. Values left
// empty become the "unknown" sentinel.
func NormalizeText(f *frame.Frame) {
	for _, c := range dataColumns(f) {
		if c.Kind != frame.KindCategorical {
			continue
		}
		for i, cell := range c.Cells {
			if !cell.Valid {
				continue
			}
			v := strings.ToLower(strings.TrimSpace(cell.Str))
			if v == "" {
				v = domain.UnknownSentinel
			}
			c.Cells[i].Str = v
		}
	}
}

// FlagOutliers adds a boolean <column>_outlier column for every numeric data
// column with values outside the IQR fences and names it in the report. A
// taken flag name gets a numeric suffix. Values are never removed.
func FlagOutliers(f *frame.Frame) ([]domain.OutlierReport, error) {
	reports := []domain.OutlierReport{}
	var flags []*frame.Column
	for _, c := range dataColumns(f) {
		if c.Kind != frame.KindNumeric {
			continue
		}
		b, ok := IQRBounds(c.Numbers())
		if !ok {
			continue
		}
		values := make([]string, len(c.Cells))
		flagged := 0
		for i, cell := range c.Cells {
			out := cell.Valid && b.Outside(cell.Num)
			if out {
				flagged++
			}
			values[i] = strconv.FormatBool(out)
		}
		report := domain.OutlierReport{
			Column:  c.Name,
			Q1:      b.Q1,
			Q3:      b.Q3,
			IQR:     b.IQR,
			Lower:   b.Lower,
			Upper:   b.Upper,
			Flagged: flagged,
		}
		if flagged > 0 {
			report.FlagColumn = freeName(f, c.Name+domain.OutlierSuffix, flags)
			flags = append(flags, frame.NewColumn(report.FlagColumn, frame.KindCategorical, values))
		}
		reports = append(reports, report)
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].Column < reports[j].Column })
	for _, fc := range flags {
		if err := f.AddColumn(fc); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

func freeName(f *frame.Frame, name string, pending []*frame.Column) string {
	taken := func(n string) bool {
		if f.Column(n) != nil {
			return true
		}
		for _, c := range pending {
			if c.Name == n {
				return true
			}
		}
		return false
	}
	candidate := name
	for n := 2; taken(candidate); n++ {
		candidate = name + "_" + strconv.Itoa(n)
	}
	return candidate
}

// flagColumns returns the flag columns named by reports.
func flagColumns(f *frame.Frame, reports []domain.OutlierReport) []*frame.Column {
	var out []*frame.Column
	for _, r := range reports {
		if r.FlagColumn == "" {
			continue
		}
		if c := f.Column(r.FlagColumn); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// AddCompleteness appends the completeness_score column: the percentage of
// non-null data values of every row, rounded to 2 decimals. Frames without
// data columns get no column.
func AddCompleteness(f *frame.Frame, derived ...*frame.Column) (*frame.Column, error) {
	cols := dataColumns(f, derived...)
	if len(cols) == 0 {
		return nil, nil
	}
	values := make([]string, f.NumRows())
	for r := range values {
		present := 0
		for _, c := range cols {
			if c.Cells[r].Valid {
				present++
			}
		}
		values[r] = strconv.FormatFloat(round2(percent(present, len(cols))), 'f', -1, 64)
	}
	c := frame.NewColumn(freeName(f, domain.ColCompleteness, nil), frame.KindNumeric, values)
	if err := f.AddColumn(c); err != nil {
		return nil, err
	}
	return c, nil
}
