package metadata

import (
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/zeebo/xxh3"
	"golang.org/x/text/encoding/htmlindex"
)

// Reply is a parsed RETS reply envelope.
//
// Code and Text are always set. The body is only retained, and only
// decodable through Tables, when Code is ReplySuccess.
type Reply struct {
	Code int
	Text string

	root      *etree.Element
	delimiter rune
}

// RawTable is one METADATA-* block of a reply with its compact table split
// into columns and rows. Every row has exactly len(Columns) values.
type RawTable struct {
	Kind       Type
	Attributes map[string]string
	Delimiter  rune
	Columns    []string
	Rows       [][]string

	// Digest is an xxh3 hash of the raw COLUMNS and DATA text. Two fetches
	// of unchanged metadata produce the same digest.
	Digest uint64
}

// Attr returns a table-level attribute such as Resource or Version.
func (t *RawTable) Attr(name string) (string, bool) {
	v, ok := t.Attributes[name]
	return v, ok
}

// Records returns the rows as column-keyed maps, in order.
func (t *RawTable) Records() []Row {
	rows := make([]Row, len(t.Rows))
	for i, vals := range t.Rows {
		row := make(Row, len(t.Columns))
		for j, col := range t.Columns {
			row[col] = vals[j]
		}
		rows[i] = row
	}
	return rows
}

// HasColumn reports whether the table declares the named column.
func (t *RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ParseReply parses a RETS reply envelope.
//
// A non-zero ReplyCode returns the Reply (code and text only) together with a
// *ReplyCodeError; nothing beyond the envelope is examined in that case.
// Anything that is not a RETS envelope yields a *ProtocolError.
func ParseReply(body []byte) (*Reply, error) {
	root, err := readEnvelope(body)
	if err != nil {
		return nil, err
	}

	reply := &Reply{}
	reply.Code, reply.Text, err = replyStatus(root)
	if err != nil {
		return nil, err
	}
	if reply.Code != ReplySuccess {
		return reply, &ReplyCodeError{Code: reply.Code, Text: reply.Text}
	}

	reply.delimiter, err = readDelimiter(root, DefaultDelimiter)
	if err != nil {
		return nil, err
	}
	reply.root = root
	return reply, nil
}

// Tables returns one RawTable per METADATA-<kind> element, in document order.
// A reply without any such element yields an empty slice and no error.
func (r *Reply) Tables(kind Type) ([]*RawTable, error) {
	if r.root == nil {
		return nil, nil
	}

	elements := r.root.SelectElements(string(kind))
	tables := make([]*RawTable, 0, len(elements))
	for _, el := range elements {
		var (
			t   *RawTable
			err error
		)
		if kind == TypeSystem {
			t, err = r.systemTable(el)
		} else {
			t, err = r.compactTable(kind, el)
		}
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// Table returns the single METADATA-<kind> element of a reply.
// It fails with a *ProtocolError when the reply holds none.
func (r *Reply) Table(kind Type) (*RawTable, error) {
	tables, err := r.Tables(kind)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, &ProtocolError{Message: "reply has no " + string(kind) + " element"}
	}
	return tables[0], nil
}

func (r *Reply) compactTable(kind Type, el *etree.Element) (*RawTable, error) {
	delimiter, err := readDelimiter(el, r.delimiter)
	if err != nil {
		return nil, err
	}

	t := &RawTable{
		Kind:       kind,
		Attributes: attributes(el),
		Delimiter:  delimiter,
	}

	columnsEl := el.SelectElement(ElementColumns)
	dataEls := el.SelectElements(ElementData)
	if columnsEl == nil {
		if len(dataEls) > 0 {
			return nil, &ProtocolError{Message: string(kind) + " has DATA without COLUMNS"}
		}
		t.Digest = xxh3.HashString("")
		return t, nil
	}

	header := columnsEl.Text()
	lines := make([]string, len(dataEls))
	for i, d := range dataEls {
		lines[i] = d.Text()
	}

	t.Columns, t.Rows, err = DecodeTable(delimiter, header, lines)
	if err != nil {
		if mr, ok := err.(*MalformedRowError); ok {
			mr.Kind = kind
		}
		return nil, err
	}
	t.Digest = xxh3.HashString(header + "\n" + strings.Join(lines, "\n"))
	return t, nil
}

// systemTable turns METADATA-SYSTEM into a one-row table whose columns are
// the SYSTEM element attributes, plus COMMENTS when present.
func (r *Reply) systemTable(el *etree.Element) (*RawTable, error) {
	t := &RawTable{
		Kind:       TypeSystem,
		Attributes: attributes(el),
		Delimiter:  r.delimiter,
	}

	sys := el.SelectElement(ElementSystem)
	if sys == nil {
		t.Digest = xxh3.HashString("")
		return t, nil
	}

	var values []string
	for _, a := range sys.Attr {
		t.Columns = append(t.Columns, a.Key)
		values = append(values, a.Value)
	}
	comments := el.SelectElement(ElementComments)
	if comments == nil {
		comments = sys.SelectElement(ElementComments)
	}
	if comments != nil {
		t.Columns = append(t.Columns, ElementComments)
		values = append(values, strings.TrimSpace(comments.Text()))
	}
	t.Rows = [][]string{values}
	t.Digest = xxh3.HashString(strings.Join(t.Columns, "\x00") + "\n" + strings.Join(values, "\x00"))
	return t, nil
}

func readEnvelope(body []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, &ProtocolError{Message: "reply is not valid XML", Err: err}
	}

	root := doc.Root()
	if root == nil {
		return nil, &ProtocolError{Message: "empty reply"}
	}
	if root.Tag != ElementRETS {
		return nil, &ProtocolError{Message: "unexpected root element " + root.Tag}
	}
	return root, nil
}

func replyStatus(root *etree.Element) (int, string, error) {
	attr := root.SelectAttr(AttrReplyCode)
	if attr == nil {
		return 0, "", &ProtocolError{Message: "reply has no ReplyCode"}
	}
	code, err := strconv.Atoi(strings.TrimSpace(attr.Value))
	if err != nil {
		return 0, "", &ProtocolError{Message: "invalid ReplyCode " + strconv.Quote(attr.Value), Err: err}
	}
	return code, root.SelectAttrValue(AttrReplyText, ""), nil
}

// readDelimiter reads a DELIMITER child of el. The value is the delimiter's
// character code as two hex digits ("09" is a tab).
func readDelimiter(el *etree.Element, fallback rune) (rune, error) {
	d := el.SelectElement(ElementDelimiter)
	if d == nil {
		return fallback, nil
	}
	raw := strings.TrimSpace(d.SelectAttrValue(AttrValue, ""))
	code, err := strconv.ParseUint(raw, 16, 8)
	if err != nil || raw == "" {
		return 0, &ProtocolError{Message: "invalid DELIMITER value " + strconv.Quote(raw), Err: err}
	}
	return rune(code), nil
}

func attributes(el *etree.Element) map[string]string {
	attrs := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		attrs[a.Key] = a.Value
	}
	return attrs
}

// charsetReader lets the XML decoder accept the legacy encodings RETS servers
// commonly declare (ISO-8859-1, windows-1252).
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}
