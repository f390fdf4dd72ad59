package cleaning

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/stat"

	"pipeline-workers/domain"
	"pipeline-workers/frame"
)

var (
	datetimeName = regexp.MustCompile(`date|time|timestamp|(^|_)(at|on)$`)
	numericName  = regexp.MustCompile(`(^|_)(id|age|qty|num)($|_)|count|amount|price|total|quantity|score|number`)
)

// ExpectedKind returns the kind a column name promises, or KindUnknown when
// the name carries no expectation.
func ExpectedKind(name string) frame.Kind {
	n := strings.ToLower(name)
	switch {
	case datetimeName.MatchString(n):
		return frame.KindDatetime
	case numericName.MatchString(n):
		return frame.KindNumeric
	default:
		return frame.KindUnknown
	}
}

// IsDataColumn is false for ingest metadata columns.
func IsDataColumn(name string) bool {
	return !domain.MetadataColumns[name]
}

// dataColumns returns the data columns of f except the derived ones.
func dataColumns(f *frame.Frame, derived ...*frame.Column) []*frame.Column {
	var out []*frame.Column
	for _, c := range f.Columns {
		if IsDataColumn(c.Name) && !slices.Contains(derived, c) {
			out = append(out, c)
		}
	}
	return out
}

// validCell is the type appropriate format check used by the validity score.
func validCell(c *frame.Column, i int) bool {
	cell := c.Cells[i]
	if !cell.Valid {
		return false
	}
	switch c.Kind {
	case frame.KindNumeric, frame.KindDatetime:
		return true
	case frame.KindCategorical:
		return strings.TrimSpace(cell.Str) != ""
	default:
		return false
	}
}

// Assess scores a frame. Every score is a percentage in [0, 100]; an empty
// frame or a frame without data columns scores 0. Derived columns are not
// scored.
func Assess(f *frame.Frame, derived ...*frame.Column) domain.QualityReport {
	cols := dataColumns(f, derived...)
	rows := f.NumRows()

	report := domain.QualityReport{
		TotalRows:      rows,
		TotalColumns:   len(cols),
		ColumnProfiles: []domain.ColumnProfile{},
	}

	nonNull, validSum, consistent := 0, 0.0, 0
	for _, c := range cols {
		profile := profileColumn(c)
		nonNull += profile.NonNull
		validSum += profile.Validity
		if profile.Consistent {
			consistent++
		}
		report.ColumnProfiles = append(report.ColumnProfiles, profile)
	}

	completeness := percent(nonNull, rows*len(cols))
	uniqueness := 0.0
	if rows > 0 && len(cols) > 0 {
		seen := make(map[string]struct{}, rows)
		for r := 0; r < rows; r++ {
			seen[f.RowKey(r, cols)] = struct{}{}
		}
		uniqueness = percent(len(seen), rows)
	}
	validity := 0.0
	if rows > 0 && len(cols) > 0 {
		validity = validSum / float64(len(cols))
	}
	consistency := 0.0
	if rows > 0 {
		consistency = percent(consistent, len(cols))
	}

	report.Completeness = score(completeness, domain.ThresholdCompleteness)
	report.Uniqueness = score(uniqueness, domain.ThresholdUniqueness)
	report.Consistency = score(consistency, domain.ThresholdConsistency)
	report.Validity = score(validity, domain.ThresholdValidity)
	report.OverallScore = round2((report.Completeness.Score + report.Uniqueness.Score +
		report.Consistency.Score + report.Validity.Score) / 4)
	report.Recommendations = recommendations(report)
	return report
}

func score(v, threshold float64) domain.Score {
	v = round2(v)
	return domain.Score{Score: v, Threshold: threshold, ThresholdMet: v >= threshold}
}

func recommendations(r domain.QualityReport) []string {
	var out []string
	if !r.Completeness.ThresholdMet {
		out = append(out, fmt.Sprintf("Improve data completeness (current: %.1f%%, target: %.0f%%)", r.Completeness.Score, r.Completeness.Threshold))
	}
	if !r.Uniqueness.ThresholdMet {
		out = append(out, fmt.Sprintf("Address duplicate records (current uniqueness: %.1f%%, target: %.0f%%)", r.Uniqueness.Score, r.Uniqueness.Threshold))
	}
	if !r.Consistency.ThresholdMet {
		out = append(out, fmt.Sprintf("Improve data consistency (current: %.1f%%, target: %.0f%%)", r.Consistency.Score, r.Consistency.Threshold))
	}
	if !r.Validity.ThresholdMet {
		out = append(out, fmt.Sprintf("Improve data validity (current: %.1f%%, target: %.0f%%)", r.Validity.Score, r.Validity.Threshold))
	}
	if len(out) == 0 {
		out = append(out, "Data quality meets all thresholds")
	}
	return out
}

func profileColumn(c *frame.Column) domain.ColumnProfile {
	rows := len(c.Cells)
	p := domain.ColumnProfile{Name: c.Name, Kind: c.Kind.String()}

	expected := ExpectedKind(c.Name)
	if expected != frame.KindUnknown {
		p.ExpectedKind = expected.String()
		p.Consistent = c.Kind == expected
	} else {
		p.Consistent = c.Kind != frame.KindUnknown
	}

	unique := map[string]struct{}{}
	valid := 0
	for i, cell := range c.Cells {
		if cell.Valid {
			p.NonNull++
			unique[c.Key(i)] = struct{}{}
		}
		if validCell(c, i) {
			valid++
		}
	}
	p.Null = rows - p.NonNull
	p.Unique = len(unique)
	p.Validity = round2(percent(valid, rows))

	switch c.Kind {
	case frame.KindNumeric:
		nums := c.Numbers()
		if len(nums) == 0 {
			break
		}
		lo, hi := nums[0], nums[0]
		for _, v := range nums {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		mean := stat.Mean(nums, nil)
		p.Min, p.Max, p.Mean = ptr(lo), ptr(hi), ptr(round2(mean))
		if len(nums) > 1 {
			p.StdDev = ptr(round2(stat.StdDev(nums, nil)))
		}
	case frame.KindCategorical:
		total, minLen, maxLen, n := 0, 0, 0, 0
		for _, cell := range c.Cells {
			if !cell.Valid {
				continue
			}
			l := utf8.RuneCountInString(cell.Str)
			if n == 0 || l < minLen {
				minLen = l
			}
			if l > maxLen {
				maxLen = l
			}
			total += l
			n++
		}
		if n > 0 {
			avg := round2(float64(total) / float64(n))
			p.AvgLength, p.MinLength, p.MaxLength = &avg, &minLen, &maxLen
		}
	case frame.KindDatetime:
		first, last := -1, -1
		for i, cell := range c.Cells {
			if !cell.Valid {
				continue
			}
			if first < 0 || cell.Time.Before(c.Cells[first].Time) {
				first = i
			}
			if last < 0 || cell.Time.After(c.Cells[last].Time) {
				last = i
			}
		}
		if first >= 0 {
			p.Earliest, p.Latest = c.Format(first), c.Format(last)
		}
	}
	return p
}

func ptr(v float64) *float64 { return &v }
