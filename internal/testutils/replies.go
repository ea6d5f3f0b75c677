package testutils

import (
	"fmt"
	"sort"
	"strings"
)

// Attr is an ordered XML attribute.
type Attr struct {
	Key   string
	Value string
}

// Table describes one METADATA-* block of a fake reply.
type Table struct {
	Kind      string
	Attrs     []Attr
	Delimiter string // two hex digits; empty omits the element
	Columns   []string
	Rows      [][]string
}

// Compact frames values the way RETS servers do: "\tA\tB\t".
func Compact(values []string) string {
	return "\t" + strings.Join(values, "\t") + "\t"
}

// ReplyCode returns an envelope with no body.
func ReplyCode(code int, text string) string {
	return fmt.Sprintf(`<RETS ReplyCode="%d" ReplyText="%s"/>`, code, text)
}

// MetadataReply returns a successful COMPACT reply holding the given tables.
func MetadataReply(tables ...Table) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?>` + "\n")
	b.WriteString(`<RETS ReplyCode="0" ReplyText="Operation Successful">` + "\n")
	for _, t := range tables {
		writeTable(&b, t)
	}
	b.WriteString("</RETS>\n")
	return b.String()
}

func writeTable(b *strings.Builder, t Table) {
	fmt.Fprintf(b, "<%s", t.Kind)
	for _, a := range t.Attrs {
		fmt.Fprintf(b, ` %s="%s"`, a.Key, a.Value)
	}
	b.WriteString(">\n")
	if t.Delimiter != "" {
		fmt.Fprintf(b, `<DELIMITER value="%s"/>`+"\n", t.Delimiter)
	}
	sep := "\t"
	if t.Delimiter != "" && t.Delimiter != "09" {
		var code int
		fmt.Sscanf(t.Delimiter, "%x", &code)
		sep = string(rune(code))
	}
	if t.Columns != nil {
		fmt.Fprintf(b, "<COLUMNS>%s%s%s</COLUMNS>\n", sep, strings.Join(t.Columns, sep), sep)
	}
	for _, row := range t.Rows {
		fmt.Fprintf(b, "<DATA>%s%s%s</DATA>\n", sep, strings.Join(row, sep), sep)
	}
	fmt.Fprintf(b, "</%s>\n", t.Kind)
}

// SystemReply returns a METADATA-SYSTEM reply.
func SystemReply(version, date, systemID, description string) string {
	return `<?xml version="1.0"?>
<RETS ReplyCode="0" ReplyText="Operation Successful">
<METADATA-SYSTEM Version="` + version + `" Date="` + date + `">
<SYSTEM SystemID="` + systemID + `" SystemDescription="` + description + `" TimeZoneOffset="-05:00"/>
<COMMENTS>Test system</COMMENTS>
</METADATA-SYSTEM>
</RETS>
`
}

// LoginReply returns a login reply advertising the given capabilities and
// info pairs. Keys are written in sorted order.
func LoginReply(capabilities map[string]string, info map[string]string) string {
	var b strings.Builder
	b.WriteString(`<RETS ReplyCode="0" ReplyText="V2.7.0 2315: Success">` + "\n")
	b.WriteString("<RETS-RESPONSE>\n")
	for _, kv := range []map[string]string{info, capabilities} {
		keys := make([]string, 0, len(kv))
		for k := range kv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%s\n", k, kv[k])
		}
	}
	b.WriteString("</RETS-RESPONSE>\n</RETS>\n")
	return b.String()
}

// LogoutReply returns a successful logout reply.
func LogoutReply(signOff string) string {
	return `<RETS ReplyCode="0" ReplyText="Logging out">
<RETS-RESPONSE>
ConnectTime=42 seconds
SignOffMessage=` + signOff + `
</RETS-RESPONSE>
</RETS>
`
}

// Fixture tables used across tests.

func ResourceTable(ids ...string) Table {
	t := Table{
		Kind:    "METADATA-RESOURCE",
		Attrs:   []Attr{{"Version", "1.12.29"}, {"Date", "2024-01-02T03:04:05"}},
		Columns: []string{"ResourceID", "StandardName", "VisibleName", "ObjectVersion", "ClassCount"},
	}
	for _, id := range ids {
		t.Rows = append(t.Rows, []string{id, id, id + " Resource", "1.00.001", "1"})
	}
	return t
}

func ClassTable(resource string, classes ...string) Table {
	t := Table{
		Kind:    "METADATA-CLASS",
		Attrs:   []Attr{{"Resource", resource}, {"Version", "1.00.002"}, {"Date", "2024-01-02T03:04:05"}},
		Columns: []string{"ClassName", "StandardName", "VisibleName", "TableVersion"},
	}
	for _, c := range classes {
		t.Rows = append(t.Rows, []string{c, c + "Standard", c + " Class", "1.00.003"})
	}
	return t
}

func FieldTable(resource, class string, fields ...string) Table {
	t := Table{
		Kind:    "METADATA-TABLE",
		Attrs:   []Attr{{"Resource", resource}, {"Class", class}, {"Version", "1.00.004"}, {"Date", "2024-01-02T03:04:05"}},
		Columns: []string{"MetadataEntryID", "SystemName", "ShortName", "LongName", "DataType", "LookupName"},
	}
	for i, f := range fields {
		t.Rows = append(t.Rows, []string{fmt.Sprintf("%d", i+1), f, f, f + " Long", "Character", ""})
	}
	return t
}

func LookupTable(resource string, lookups ...string) Table {
	t := Table{
		Kind:    "METADATA-LOOKUP",
		Attrs:   []Attr{{"Resource", resource}, {"Version", "1.00.005"}, {"Date", "2024-01-02T03:04:05"}},
		Columns: []string{"MetadataEntryID", "LookupName", "VisibleName", "LookupTypeVersion"},
	}
	for i, l := range lookups {
		t.Rows = append(t.Rows, []string{fmt.Sprintf("L%d", i+1), l, l + " Lookup", "1.00.006"})
	}
	return t
}

func LookupTypeTable(resource, lookup string, values ...string) Table {
	t := Table{
		Kind:    "METADATA-LOOKUP_TYPE",
		Attrs:   []Attr{{"Resource", resource}, {"Lookup", lookup}, {"Version", "1.00.007"}, {"Date", "2024-01-02T03:04:05"}},
		Columns: []string{"MetadataEntryID", "LongValue", "ShortValue", "Value"},
	}
	for i, v := range values {
		t.Rows = append(t.Rows, []string{fmt.Sprintf("V%d", i+1), v + " Long", v, v})
	}
	return t
}

func ObjectTable(resource string, objectTypes ...string) Table {
	t := Table{
		Kind:    "METADATA-OBJECT",
		Attrs:   []Attr{{"Resource", resource}, {"Version", "1.00.008"}, {"Date", "2024-01-02T03:04:05"}},
		Columns: []string{"MetaDataEntryID", "ObjectType", "MIMEType", "VisibleName"},
	}
	for i, o := range objectTypes {
		t.Rows = append(t.Rows, []string{fmt.Sprintf("O%d", i+1), o, "image/jpeg", o + " Object"})
	}
	return t
}
