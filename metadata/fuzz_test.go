package metadata

import (
	"testing"
)

// FuzzParseReply checks that arbitrary bodies never panic the reply decoder.
// Run with: go test -fuzz='^FuzzParseReply$' -fuzztime=60s ./metadata
func FuzzParseReply(f *testing.F) {
	f.Add([]byte(`<RETS ReplyCode="0" ReplyText="ok"/>`))
	f.Add([]byte(`<RETS ReplyCode="20503" ReplyText="No Metadata Found"/>`))
	f.Add([]byte("<RETS ReplyCode=\"0\"><METADATA-CLASS Resource=\"P\"><COLUMNS>\tA\t</COLUMNS><DATA>\t1\t</DATA></METADATA-CLASS></RETS>"))
	f.Add([]byte("<RETS ReplyCode=\"0\"><DELIMITER value=\"7C\"/><METADATA-LOOKUP><COLUMNS>|A|B|</COLUMNS><DATA>|1|</DATA></METADATA-LOOKUP></RETS>"))
	f.Add([]byte(`<RETS ReplyCode="0"><METADATA-SYSTEM><SYSTEM SystemID="X"/><COMMENTS>c</COMMENTS></METADATA-SYSTEM></RETS>`))
	f.Add([]byte(`<RETS ReplyCode="0"><DELIMITER value="zz"/></RETS>`))
	f.Add([]byte("<html>"))
	f.Add([]byte(""))

	f.Fuzz(func(t *testing.T, body []byte) {
		reply, err := ParseReply(body)
		if err != nil {
			return
		}
		for _, kind := range Kinds {
			tables, err := reply.Tables(kind)
			if err != nil {
				continue
			}
			for _, table := range tables {
				for i, row := range table.Rows {
					if len(row) != len(table.Columns) {
						t.Fatalf("%s row %d: %d values for %d columns", kind, i, len(row), len(table.Columns))
					}
				}
			}
		}
	})
}

// FuzzSplitLine checks that Encode and SplitLine stay inverse for values
// that do not contain the delimiter.
func FuzzSplitLine(f *testing.F) {
	f.Add("a", "b", "")
	f.Add("", "", "")
	f.Add("Listing Status", "1.00.000", "x=y")

	f.Fuzz(func(t *testing.T, a, b, c string) {
		values := []string{a, b, c}
		for _, v := range values {
			for _, r := range v {
				if r == '\t' || r == '\r' || r == '\n' {
					return
				}
			}
		}
		got := SplitLine('\t', Encode('\t', values))
		if len(got) != len(values) {
			t.Fatalf("got %d values, want %d", len(got), len(values))
		}
		for i := range values {
			if got[i] != values[i] {
				t.Fatalf("value %d: got %q, want %q", i, got[i], values[i])
			}
		}
	})
}
