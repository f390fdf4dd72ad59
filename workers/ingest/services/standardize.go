package services

import (
	"strconv"
	"time"

	"pipeline-workers/domain"
	"pipeline-workers/frame"
)

// Metadata is appended to every raw artifact for lineage.
type Metadata struct {
	IngestedAt time.Time
	DataSource string
	SourceFile string
}

// Standardize applies the ingest rules to a parsed frame: standard column
// names, removal of rows and columns without any value, and the metadata
// columns. Null tokens are already nulls in the frame.
func Standardize(f *frame.Frame, meta Metadata) (*frame.Frame, error) {
	taken := map[string]bool{}
	for i, c := range f.Columns {
		name := frame.StandardizeName(c.Name)
		if name == "" {
			name = "column_" + strconv.Itoa(i)
		}
		candidate := name
		for n := 2; taken[candidate]; n++ {
			candidate = name + "_" + strconv.Itoa(n)
		}
		taken[candidate] = true
		c.Name = candidate
	}

	out := f.Filter(func(r int) bool {
		for _, c := range f.Columns {
			if c.Cells[r].Valid {
				return true
			}
		}
		return false
	})

	for _, c := range append([]*frame.Column(nil), out.Columns...) {
		if c.NullCount() == len(c.Cells) || domain.MetadataColumns[c.Name] {
			out.DropColumn(c.Name)
		}
	}

	rows := out.NumRows()
	ingestedAt := meta.IngestedAt.UTC().Format(time.RFC3339)
	for _, m := range []struct{ name, value string }{
		{domain.ColIngestedAt, ingestedAt},
		{domain.ColDataSource, meta.DataSource},
		{domain.ColSourceFile, meta.SourceFile},
	} {
		values := make([]string, rows)
		for i := range values {
			values[i] = m.value
		}
		if err := out.AddColumn(frame.NewColumn(m.name, frame.KindCategorical, values)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
