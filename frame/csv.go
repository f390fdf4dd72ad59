package frame

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrEmpty is returned when the input has no header row.
var ErrEmpty = errors.New("no columns to parse")

// ReadCSV parses delimited text with a header row. The delimiter is sniffed
// from the header line.
func ReadCSV(r io.Reader) (*Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	return ReadDelimited(DecodeText(data), 0)
}

// ReadDelimited parses text with the given delimiter, or a sniffed one when
// comma is 0.
func ReadDelimited(text string, comma rune) (*Frame, error) {
	text = strings.TrimLeft(text, "\r\n")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}
	if comma == 0 {
		comma = SniffDelimiter(firstLine(text))
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return New(header, records[1:])
}

// WriteCSV writes the frame with a header row. Output depends only on the
// frame content.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for r := 0; r < f.NumRows(); r++ {
		if err := cw.Write(f.Row(r)); err != nil {
			return errors.Wrapf(err, "write csv row %d", r+1)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// EncodeCSV renders the frame as CSV bytes.
func EncodeCSV(f *Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var delimiters = []rune{',', ';', '\t', '|'}

// SniffDelimiter picks the candidate delimiter occurring most often outside
// quotes. Comma wins ties.
func SniffDelimiter(line string) rune {
	counts := map[rune]int{}
	inQuotes := false
	for _, ch := range line {
		if ch == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[ch]++
		}
	}
	best := ','
	for _, d := range delimiters {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

func firstLine(text string) string {
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		return text[:i]
	}
	return text
}
