package frame

import (
	"bytes"
	"encoding/json"
	"io"
	"path"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupportedFormat is returned for extensions no parser handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Parse converts a downloaded object into a frame based on its extension.
// Unknown extensions are parsed as text.
func Parse(name string, data []byte) (*Frame, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return ReadCSV(bytes.NewReader(data))
	case ".json":
		return ParseJSON(data)
	case ".xlsx":
		return ParseXLSX(data)
	case ".xls":
		return nil, errors.Wrapf(ErrUnsupportedFormat, "legacy excel file %s", name)
	default:
		return ParseText(DecodeText(data))
	}
}

// DecodeText decodes UTF-8, falling back to Windows-1252 and then Latin-1
// for legacy exports. A UTF-8 byte order mark is dropped.
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	if out, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil && !bytes.ContainsRune(out, utf8.RuneError) {
		return string(out)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(out)
}

// ParseText reads delimited text when the first line contains ';', tab or
// '|', and otherwise one row per line in text_content / line_number columns.
func ParseText(text string) (*Frame, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmpty
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for _, d := range []rune{';', '\t', '|'} {
		if strings.ContainsRune(lines[0], d) {
			if f, err := ReadDelimited(text, d); err == nil {
				return f, nil
			}
		}
	}

	numbers := make([]string, len(lines))
	for i := range lines {
		numbers[i] = strconv.Itoa(i + 1)
	}
	f := &Frame{}
	f.Columns = append(f.Columns,
		NewColumn("text_content", KindCategorical, lines),
		NewColumn("line_number", KindNumeric, numbers),
	)
	return f, nil
}

// ParseXLSX reads the first sheet; its first row is the header.
func ParseXLSX(data []byte) (*Frame, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s", sheets[0])
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	header := rows[0]
	body := rows[1:]
	// excelize trims trailing empty cells; widen the header to the widest row.
	for _, row := range body {
		for len(header) < len(row) {
			header = append(header, "col_"+strconv.Itoa(len(header)))
		}
	}
	return New(header, body)
}

type field struct {
	key   string
	value string
}

// ParseJSON reads an array of objects (one row each), a single object (one
// row) or a primitive (one "data" cell). Key order of first appearance is the
// column order; nested values are kept as compact JSON.
func ParseJSON(data []byte) (*Frame, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "invalid json")
	}

	var records [][]field
	switch tok {
	case json.Delim('['):
		for dec.More() {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, errors.Wrap(err, "invalid json array element")
			}
			rec, err := decodeRecord(raw)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		if _, err := dec.Token(); err != nil {
			return nil, errors.Wrap(err, "invalid json array")
		}
	case json.Delim('{'):
		rec, err := decodeObjectBody(dec)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	default:
		records = append(records, []field{{key: "data", value: scalarText(tok)}})
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid json: trailing data")
	}

	var header []string
	index := map[string]int{}
	for _, rec := range records {
		for _, fl := range rec {
			if _, ok := index[fl.key]; !ok {
				index[fl.key] = len(header)
				header = append(header, fl.key)
			}
		}
	}
	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(header))
		for _, fl := range rec {
			row[index[fl.key]] = fl.value
		}
		rows[i] = row
	}
	if len(header) == 0 {
		return nil, ErrEmpty
	}
	return New(header, rows)
}

func decodeRecord(raw json.RawMessage) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "invalid json value")
	}
	if tok == json.Delim('{') {
		return decodeObjectBody(dec)
	}
	return []field{{key: "value", value: valueText(raw)}}, nil
}

// decodeObjectBody reads key/value pairs after an opening '{'.
func decodeObjectBody(dec *json.Decoder) ([]field, error) {
	var out []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "invalid json object")
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.Newf("invalid json object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrapf(err, "invalid json value for %q", key)
		}
		out = append(out, field{key: key, value: valueText(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, errors.Wrap(err, "invalid json object")
	}
	return out, nil
}

func valueText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return string(trimmed)
		}
		return buf.String()
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	case 'n':
		return ""
	}
	return string(trimmed)
}

func scalarText(tok json.Token) string {
	switch v := tok.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
