package metadata

import (
	"strings"
)

// Row is one decoded compact data line, keyed by column name.
type Row map[string]string

// Decode decodes a compact table: a header line of delimiter-separated column
// names followed by data lines of delimiter-separated values.
//
// Values are returned exactly as sent; no type coercion happens here.
// A data line whose value count differs from the column count yields a
// *MalformedRowError.
//
// Example:
//
//	rows, _ := metadata.Decode('\t', "\tA\tB\t", []string{"\t1\t2\t"})
//	// rows[0]["A"] == "1", rows[0]["B"] == "2"
func Decode(delimiter rune, header string, lines []string) ([]Row, error) {
	columns, values, err := DecodeTable(delimiter, header, lines)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(values))
	for i, vals := range values {
		row := make(Row, len(columns))
		for j, col := range columns {
			row[col] = vals[j]
		}
		rows[i] = row
	}
	return rows, nil
}

// DecodeTable splits a compact header and data lines, keeping column order.
// Every returned row has exactly len(columns) values.
//
// The framing is read from the header: data lines lose a leading (or
// trailing) delimiter only when the header has one, so "\t5\t6\t" under the
// header "A\tB\tC\t" decodes to ["", "5", "6"].
func DecodeTable(delimiter rune, header string, lines []string) (columns []string, rows [][]string, err error) {
	d := string(delimiter)
	header = strings.Trim(header, "\r\n")
	leading := strings.HasPrefix(header, d)
	trailing := strings.HasSuffix(header, d)

	columns = splitFramed(d, header, leading, trailing)
	if len(columns) == 1 && columns[0] == "" {
		columns = nil
	}

	rows = make([][]string, 0, len(lines))
	for i, line := range lines {
		values := splitFramed(d, line, leading, trailing)
		if len(values) != len(columns) {
			return nil, nil, &MalformedRowError{Row: i, Got: len(values), Want: len(columns)}
		}
		rows = append(rows, values)
	}
	return columns, rows, nil
}

func splitFramed(d, line string, leading, trailing bool) []string {
	line = strings.Trim(line, "\r\n")
	if leading {
		line = strings.TrimPrefix(line, d)
	}
	if trailing {
		line = strings.TrimSuffix(line, d)
	}
	return strings.Split(line, d)
}

// SplitLine removes the compact framing from line (line breaks, then at most
// one leading and one trailing delimiter) and splits what remains.
//
// Interior empty values are kept: "\ta\t\tb\t" splits into ["a", "", "b"].
func SplitLine(delimiter rune, line string) []string {
	return splitFramed(string(delimiter), line, true, true)
}

// Encode joins values into a framed compact line, the inverse of SplitLine.
func Encode(delimiter rune, values []string) string {
	d := string(delimiter)
	var b strings.Builder
	b.WriteString(d)
	for _, v := range values {
		b.WriteString(v)
		b.WriteString(d)
	}
	return b.String()
}
