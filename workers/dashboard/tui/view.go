package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"pipeline-workers/domain"
	"pipeline-workers/workers/dashboard/services"
)

const barWidth = 40

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	activeTabStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("63"))
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	sectionStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	goodStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	bodyStyle      = lipgloss.NewStyle().Padding(1, 2)
)

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(bodyStyle.Render(m.renderBody()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("Data Pipeline Dashboard")
	if m.loading {
		title += " " + m.spinner.View()
	}
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == m.tab {
			tabs[i] = activeTabStyle.Render(name)
		} else {
			tabs[i] = tabStyle.Render(name)
		}
	}
	status := mutedStyle.Render(fmt.Sprintf("range: %s", m.timeRange.Label))
	if m.file != "" {
		status = mutedStyle.Render(fmt.Sprintf("file: %s  range: %s", m.file, m.timeRange.Label))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinHorizontal(lipgloss.Top, tabs...), status)
}

func (m *Model) renderBody() string {
	s := m.snap
	if s == nil {
		return "Loading..."
	}
	if m.tab == tabPipeline {
		return renderPipeline(s.Health)
	}
	if s.NoData {
		return renderNoData(s)
	}
	if s.Error != "" {
		return badStyle.Render("Error: " + s.Error)
	}
	switch m.tab {
	case tabQuality:
		return renderQuality(s.Summary)
	case tabStatistics:
		return renderStatistics(s.Stats)
	case tabCharts:
		return m.renderChart()
	case tabData:
		return renderData(s)
	default:
		return renderOverview(s)
	}
}

func renderNoData(s *services.Snapshot) string {
	lines := []string{
		warnStyle.Render("No cleaned data available yet."),
		"",
		"Last ingest:   " + formatTime(s.LastIngest),
		"Last cleaning: " + formatTime(s.LastClean),
	}
	if s.Error != "" {
		lines = append(lines, "", badStyle.Render("Error: "+s.Error))
	}
	return strings.Join(lines, "\n")
}

func renderOverview(s *services.Snapshot) string {
	var lines []string
	lines = append(lines, sectionStyle.Render("Current file"))
	if s.Info != nil {
		lines = append(lines,
			fmt.Sprintf("  %s  %s  modified %s", s.Info.Name, humanize.Bytes(uint64(s.Info.Size)), humanize.Time(s.Info.Modified)),
		)
	}
	rows := fmt.Sprintf("  %s rows", humanize.Comma(int64(s.Rows)))
	if s.Filtered {
		rows += mutedStyle.Render(" (filtered: " + s.Range + ")")
	}
	lines = append(lines, rows)
	if s.Summary != nil {
		lines = append(lines, fmt.Sprintf("  quality score %s", scoreText(s.Summary.Quality.OverallScore, 80)))
	} else {
		lines = append(lines, mutedStyle.Render("  not yet quality-checked"))
	}

	lines = append(lines, "", sectionStyle.Render("All cleaned data"))
	lines = append(lines,
		fmt.Sprintf("  %d files, %s rows, %.2f MB", s.Data.TotalFiles, humanize.Comma(int64(s.Data.TotalRows)), s.Data.TotalSizeMB),
		fmt.Sprintf("  latest %s, oldest %s", orDash(s.Data.LatestFile), orDash(s.Data.OldestFile)),
		"",
		fmt.Sprintf("Last ingest %s, last cleaning %s", formatTime(s.LastIngest), formatTime(s.LastClean)),
	)
	return strings.Join(lines, "\n")
}

func renderQuality(sum *domain.QualitySummary) string {
	if sum == nil {
		return warnStyle.Render("This file has not been quality-checked yet.")
	}
	q := sum.Quality
	lines := []string{
		sectionStyle.Render("Quality scores"),
		scoreLine("Completeness", q.Completeness),
		scoreLine("Uniqueness", q.Uniqueness),
		scoreLine("Consistency", q.Consistency),
		scoreLine("Validity", q.Validity),
		fmt.Sprintf("  %-14s %s", "Overall", scoreText(q.OverallScore, 80)),
		"",
		sectionStyle.Render("Cleaning"),
		fmt.Sprintf("  rows %d → %d (%.2f%% removed), %d duplicates", sum.OriginalRows, sum.CleanedRows, sum.RemovalPercentage, sum.DuplicatesRemoved),
		fmt.Sprintf("  columns %d → %d", sum.OriginalColumns, sum.CleanedColumns),
	}
	for _, o := range sum.Outliers {
		if o.Flagged > 0 {
			lines = append(lines, fmt.Sprintf("  %s: %d outliers outside [%.2f, %.2f]", o.Column, o.Flagged, o.Lower, o.Upper))
		}
	}
	if len(q.Recommendations) > 0 {
		lines = append(lines, "", sectionStyle.Render("Recommendations"))
		for _, r := range q.Recommendations {
			lines = append(lines, "  • "+r)
		}
	}
	return strings.Join(lines, "\n")
}

func scoreLine(name string, s domain.Score) string {
	return fmt.Sprintf("  %-14s %s (threshold %.0f)", name, scoreText(s.Score, s.Threshold), s.Threshold)
}

func scoreText(v, threshold float64) string {
	text := fmt.Sprintf("%.2f", v)
	if v >= threshold {
		return goodStyle.Render(text)
	}
	return badStyle.Render(text)
}

func renderStatistics(st services.Statistics) string {
	var lines []string
	lines = append(lines, sectionStyle.Render("Numeric columns"))
	if len(st.Numeric) == 0 {
		lines = append(lines, mutedStyle.Render("  none"))
	} else {
		rows := make([]table.Row, 0, len(st.Numeric))
		for _, n := range st.Numeric {
			rows = append(rows, table.Row{
				n.Column, fmt.Sprint(n.Count), num(n.Mean), num(n.Std), num(n.Min),
				num(n.Q25), num(n.Q50), num(n.Q75), num(n.Max),
			})
		}
		lines = append(lines, renderTable([]string{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}, rows))
	}
	lines = append(lines, "", sectionStyle.Render("Top values"))
	for _, c := range st.Categorical {
		var parts []string
		for _, vc := range c.Top {
			parts = append(parts, fmt.Sprintf("%s (%d)", vc.Value, vc.Count))
		}
		lines = append(lines, fmt.Sprintf("  %s [%d unique]: %s", c.Column, c.Unique, strings.Join(parts, ", ")))
	}
	return strings.Join(lines, "\n")
}

func renderData(s *services.Snapshot) string {
	if s.Frame == nil {
		return ""
	}
	page := s.Frame.Head(0, services.PreviewRows)
	rows := make([]table.Row, 0, page.NumRows())
	for i := 0; i < page.NumRows(); i++ {
		rows = append(rows, page.Row(i))
	}
	footer := mutedStyle.Render(fmt.Sprintf("showing %d of %s rows", page.NumRows(), humanize.Comma(int64(s.Rows))))
	return renderTable(s.Frame.Names(), rows) + "\n" + footer
}

func renderTable(header []string, rows []table.Row) string {
	cols := make([]table.Column, len(header))
	for i, h := range header {
		w := len(h)
		for _, r := range rows {
			if i < len(r) && len(r[i]) > w {
				w = len(r[i])
			}
		}
		if w > 24 {
			w = 24
		}
		cols[i] = table.Column{Title: h, Width: w}
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
		table.WithFocused(false),
	)
	return t.View()
}

func (m *Model) renderChart() string {
	kind := services.ChartKinds[m.chart]
	head := sectionStyle.Render("Chart: "+string(kind)) + mutedStyle.Render("  (c for next chart)")
	if m.snap.Frame == nil {
		return head
	}
	chart, err := services.BuildChart(m.snap.Frame, services.ChartRequest{Kind: kind})
	if err != nil {
		return head + "\n\n" + warnStyle.Render(err.Error())
	}
	return head + "\n\n" + renderChartBody(chart)
}

func renderChartBody(c *services.Chart) string {
	var lines []string
	switch {
	case c.Histogram != nil:
		lines = append(lines, "distribution of "+c.Histogram.Column)
		top := 0
		for _, b := range c.Histogram.Bins {
			if b.Count > top {
				top = b.Count
			}
		}
		for _, b := range c.Histogram.Bins {
			lines = append(lines, fmt.Sprintf("%10s %s %d", num(b.Lower), bar(b.Count, top), b.Count))
		}
	case c.Box != nil:
		b := c.Box
		lines = append(lines,
			"box plot of "+b.Column,
			fmt.Sprintf("  whiskers %s .. %s", num(b.LowerWhisker), num(b.UpperWhisker)),
			fmt.Sprintf("  q1 %s  median %s  q3 %s", num(b.Q1), num(b.Median), num(b.Q3)),
			fmt.Sprintf("  %d outliers", len(b.Outliers)),
		)
	case c.Scatter != nil:
		lines = append(lines, fmt.Sprintf("%s vs %s, %d points", c.Scatter.X, c.Scatter.Y, len(c.Scatter.Points)))
		for i, p := range c.Scatter.Points {
			if i == services.PreviewRows {
				lines = append(lines, "  ...")
				break
			}
			lines = append(lines, fmt.Sprintf("  (%s, %s)", num(p.X), num(p.Y)))
		}
	case c.Correlation != nil:
		rows := make([]table.Row, len(c.Correlation.Columns))
		for i, name := range c.Correlation.Columns {
			row := table.Row{name}
			for _, v := range c.Correlation.Values[i] {
				if v == nil {
					row = append(row, "-")
				} else {
					row = append(row, fmt.Sprintf("%.2f", *v))
				}
			}
			rows[i] = row
		}
		lines = append(lines, renderTable(append([]string{""}, c.Correlation.Columns...), rows))
	case c.TimeSeries != nil:
		ts := c.TimeSeries
		lines = append(lines, fmt.Sprintf("%s over %s", ts.ValueColumn, ts.TimeColumn))
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, p := range ts.Points {
			lo, hi = math.Min(lo, p.Value), math.Max(hi, p.Value)
		}
		for _, p := range ts.Points {
			lines = append(lines, fmt.Sprintf("  %s %s %s", p.Time.Format("2006-01-02 15:04"), bar(int(p.Value-lo), int(hi-lo)), num(p.Value)))
		}
	case c.Bar != nil:
		lines = append(lines, "value counts of "+c.Bar.Column)
		top := 0
		if len(c.Bar.Bars) > 0 {
			top = c.Bar.Bars[0].Count
		}
		for _, vc := range c.Bar.Bars {
			lines = append(lines, fmt.Sprintf("%16s %s %d", truncate(vc.Value, 16), bar(vc.Count, top), vc.Count))
		}
	case c.Pie != nil:
		lines = append(lines, "shares of "+c.Pie.Column)
		for _, sl := range c.Pie.Slices {
			lines = append(lines, fmt.Sprintf("%16s %s %.2f%%", truncate(sl.Label, 16), bar(int(sl.Share), 100), sl.Share))
		}
	}
	return strings.Join(lines, "\n")
}

func renderPipeline(h services.Health) string {
	if !h.Available {
		return badStyle.Render("Status registry unavailable: " + h.Error)
	}
	var lines []string
	for _, sh := range []services.StageHealth{h.Ingest, h.Clean} {
		lines = append(lines, sectionStyle.Render(strings.ToUpper(string(sh.Stage)[:1])+string(sh.Stage)[1:]))
		if sh.Summary != nil {
			sum := sh.Summary
			line := fmt.Sprintf("  last run %s: %s, %d seen, %d processed, %d skipped, %d failed",
				sum.LastRun.Format(time.RFC3339), statusText(sum.Status), sum.Seen, sum.Processed, sum.Skipped, sum.Failed)
			lines = append(lines, line)
			if sum.Error != "" {
				lines = append(lines, badStyle.Render("  "+sum.Error))
			}
		} else {
			lines = append(lines, mutedStyle.Render("  no cycle recorded"))
		}
		for _, r := range sh.Records {
			line := fmt.Sprintf("  %s %s", statusText(r.Status), r.File)
			if r.ErrorMessage != "" {
				line += badStyle.Render(" " + r.ErrorMessage)
			}
			lines = append(lines, line)
		}
		lines = append(lines, "")
	}
	lines = append(lines, sectionStyle.Render("Processing timeline"))
	if len(h.Timeline) == 0 {
		lines = append(lines, mutedStyle.Render("  no processing events"))
	}
	for _, e := range h.Timeline {
		lines = append(lines, fmt.Sprintf("  %s %s %s %s", e.OccurredAt.Format("2006-01-02 15:04:05"), statusText(e.Status), e.Stage, e.File))
	}
	return strings.Join(lines, "\n")
}

func statusText(s domain.Status) string {
	switch s {
	case domain.StatusDone:
		return goodStyle.Render(string(s))
	case domain.StatusError:
		return badStyle.Render(string(s))
	default:
		return warnStyle.Render(string(s))
	}
}

func bar(v, top int) string {
	if top <= 0 || v <= 0 {
		return ""
	}
	n := int(math.Round(float64(v) / float64(top) * barWidth))
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

func num(v float64) string {
	return humanize.FtoaWithDigits(v, 2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
