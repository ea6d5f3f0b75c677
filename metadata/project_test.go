package metadata

import (
	"net/url"
	"testing"

	"github.com/pior/rets/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawTable(t *testing.T, body string, kind Type) *RawTable {
	t.Helper()
	reply, err := ParseReply([]byte(body))
	require.NoError(t, err)
	table, err := reply.Table(kind)
	require.NoError(t, err)
	return table
}

func TestProjectSystem(t *testing.T) {
	table := rawTable(t, testutils.SystemReply("01.72.10306", "2024-03-15T19:51:22", "MLS", "Multiple Listing Service"), TypeSystem)

	sys, err := ProjectSystem(table)
	require.NoError(t, err)
	assert.Equal(t, &System{
		MetadataVersion:   "01.72.10306",
		MetadataDate:      "2024-03-15T19:51:22",
		SystemID:          "MLS",
		SystemDescription: "Multiple Listing Service",
		TimeZoneOffset:    "-05:00",
		Comments:          "Test system",
	}, sys)
}

func TestProjectSystem_MissingSystem(t *testing.T) {
	body := `<RETS ReplyCode="0" ReplyText="ok"><METADATA-SYSTEM Version="1" Date="d"></METADATA-SYSTEM></RETS>`
	table := rawTable(t, body, TypeSystem)

	_, err := ProjectSystem(table)
	var fe *MissingRequiredFieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "SystemID", fe.Field)
	assert.Equal(t, -1, fe.Row)
}

func TestProjectResources(t *testing.T) {
	table := rawTable(t, testutils.MetadataReply(testutils.ResourceTable("Property", "Agent")), TypeResource)

	res, err := ProjectResources(table)
	require.NoError(t, err)
	assert.Equal(t, "1.12.29", res.Version)
	assert.Equal(t, "2024-01-02T03:04:05", res.Date)
	assert.Equal(t, table.Digest, res.Digest)
	assert.Equal(t, []string{"Property", "Agent"}, res.IDs())

	first := res.Resources[0]
	assert.Equal(t, "Property Resource", first.VisibleName)
	assert.Equal(t, "1.00.001", first.ObjectVersion)
	assert.Equal(t, "1", first.ClassCount)
	assert.Nil(t, first.Extra)
}

func TestProjectClasses(t *testing.T) {
	table := rawTable(t, testutils.MetadataReply(testutils.ClassTable("Property", "RES", "LND")), TypeClass)

	classes, err := ProjectClasses(table)
	require.NoError(t, err)
	assert.Equal(t, "Property", classes.Resource)
	assert.Equal(t, "1.00.002", classes.Version)
	assert.Equal(t, []string{"RES", "LND"}, classes.Names())
	assert.Equal(t, "RES Class", classes.Classes[0].VisibleName)
	assert.Equal(t, "1.00.003", classes.Classes[0].TableVersion)
}

func TestProjectTable(t *testing.T) {
	table := rawTable(t, testutils.MetadataReply(testutils.FieldTable("Property", "RES", "ListPrice", "Status")), TypeTable)

	fields, err := ProjectTable(table)
	require.NoError(t, err)
	assert.Equal(t, "Property", fields.Resource)
	assert.Equal(t, "RES", fields.Class)
	require.Len(t, fields.Fields, 2)

	status, ok := fields.Field("Status")
	require.True(t, ok)
	assert.Equal(t, "2", status.MetadataEntryID)
	assert.Equal(t, "Character", status.DataType)
	assert.Equal(t, "", status.LookupName)

	_, ok = fields.Field("Missing")
	assert.False(t, ok)
}

func TestProjectLookups(t *testing.T) {
	table := rawTable(t, testutils.MetadataReply(testutils.LookupTable("Property", "Status", "County")), TypeLookup)

	lookups, err := ProjectLookups(table)
	require.NoError(t, err)
	assert.Equal(t, "Property", lookups.Resource)

	county, ok := lookups.Find("County")
	require.True(t, ok)
	assert.Equal(t, "L2", county.MetadataEntryID)
	assert.Equal(t, "1.00.006", county.LookupTypeVersion)
}

func TestProjectLookupTypes(t *testing.T) {
	table := rawTable(t, testutils.MetadataReply(testutils.LookupTypeTable("Property", "Status", "Active", "Sold")), TypeLookupType)

	types, err := ProjectLookupTypes(table)
	require.NoError(t, err)
	assert.Equal(t, "Property", types.Resource)
	assert.Equal(t, "Status", types.Lookup)
	assert.Equal(t, []LookupType{
		{MetadataEntryID: "V1", LongValue: "Active Long", ShortValue: "Active", Value: "Active"},
		{MetadataEntryID: "V2", LongValue: "Sold Long", ShortValue: "Sold", Value: "Sold"},
	}, types.LookupTypes)
}

func TestProjectObjects(t *testing.T) {
	table := rawTable(t, testutils.MetadataReply(testutils.ObjectTable("Property", "Photo", "Thumbnail")), TypeObject)

	objects, err := ProjectObjects(table)
	require.NoError(t, err)
	require.Len(t, objects.Objects, 2)
	assert.Equal(t, "Photo", objects.Objects[0].ObjectType)
	assert.Equal(t, "image/jpeg", objects.Objects[1].MIMEType)
	assert.Equal(t, "O2", objects.Objects[1].MetaDataEntryID)
}

func TestProject_ExtraColumnsPreserved(t *testing.T) {
	tbl := testutils.ClassTable("Property", "RES")
	tbl.Columns = append(tbl.Columns, "X-Vendor")
	tbl.Rows[0] = append(tbl.Rows[0], "custom")
	table := rawTable(t, testutils.MetadataReply(tbl), TypeClass)

	classes, err := ProjectClasses(table)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-Vendor": "custom"}, classes.Classes[0].Extra)
}

func TestProject_CaseInsensitiveColumns(t *testing.T) {
	tbl := testutils.FieldTable("Property", "RES", "ListPrice")
	tbl.Columns[0] = "MetaDataEntryID"
	table := rawTable(t, testutils.MetadataReply(tbl), TypeTable)

	fields, err := ProjectTable(table)
	require.NoError(t, err)
	assert.Equal(t, "1", fields.Fields[0].MetadataEntryID)
}

func TestProject_VersionsStayStrings(t *testing.T) {
	tbl := testutils.ResourceTable("Property")
	tbl.Attrs = []testutils.Attr{{Key: "Version", Value: "01.00.000"}, {Key: "Date", Value: ""}}
	table := rawTable(t, testutils.MetadataReply(tbl), TypeResource)

	res, err := ProjectResources(table)
	require.NoError(t, err)
	assert.Equal(t, "01.00.000", res.Version)
	assert.Equal(t, "", res.Date)
}

func TestProject_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		table   testutils.Table
		kind    Type
		project func(*RawTable) error
		field   string
		row     int
		empty   bool
	}{
		{
			name: "missing column",
			table: func() testutils.Table {
				tbl := testutils.ClassTable("Property", "RES")
				tbl.Columns = tbl.Columns[1:]
				tbl.Rows[0] = tbl.Rows[0][1:]
				return tbl
			}(),
			kind:    TypeClass,
			project: func(t *RawTable) error { _, err := ProjectClasses(t); return err },
			field:   "ClassName",
			row:     -1,
		},
		{
			name: "missing resource attribute",
			table: func() testutils.Table {
				tbl := testutils.LookupTable("Property", "Status")
				tbl.Attrs = tbl.Attrs[1:]
				return tbl
			}(),
			kind:    TypeLookup,
			project: func(t *RawTable) error { _, err := ProjectLookups(t); return err },
			field:   "Resource",
			row:     -1,
		},
		{
			name: "empty identifier",
			table: func() testutils.Table {
				tbl := testutils.FieldTable("Property", "RES", "ListPrice", "Status")
				tbl.Rows[1][1] = ""
				return tbl
			}(),
			kind:    TypeTable,
			project: func(t *RawTable) error { _, err := ProjectTable(t); return err },
			field:   "SystemName",
			row:     1,
			empty:   true,
		},
		{
			name: "empty resource id",
			table: func() testutils.Table {
				tbl := testutils.ResourceTable("Property")
				tbl.Rows[0][0] = ""
				return tbl
			}(),
			kind:    TypeResource,
			project: func(t *RawTable) error { _, err := ProjectResources(t); return err },
			field:   "ResourceID",
			row:     0,
			empty:   true,
		},
		{
			name:    "empty resource attribute",
			table:   testutils.ClassTable("", "RES"),
			kind:    TypeClass,
			project: func(t *RawTable) error { _, err := ProjectClasses(t); return err },
			field:   "Resource",
			row:     -1,
			empty:   true,
		},
		{
			name: "missing lookup attribute",
			table: func() testutils.Table {
				tbl := testutils.LookupTypeTable("Property", "Status", "Active")
				tbl.Attrs = []testutils.Attr{tbl.Attrs[0], tbl.Attrs[2], tbl.Attrs[3]}
				return tbl
			}(),
			kind:    TypeLookupType,
			project: func(t *RawTable) error { _, err := ProjectLookupTypes(t); return err },
			field:   "Lookup",
			row:     -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := rawTable(t, testutils.MetadataReply(tt.table), tt.kind)

			err := tt.project(table)
			var fe *MissingRequiredFieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.kind, fe.Kind)
			assert.Equal(t, tt.field, fe.Field)
			assert.Equal(t, tt.row, fe.Row)
			assert.Equal(t, tt.empty, fe.Empty)
			assert.True(t, IsDecodeError(err))
		})
	}
}

func TestMissingRequiredFieldError_Message(t *testing.T) {
	tests := []struct {
		err  *MissingRequiredFieldError
		want string
	}{
		{&MissingRequiredFieldError{Kind: TypeClass, Field: "Resource", Row: -1, Empty: true}, "METADATA-CLASS: required attribute Resource is empty"},
		{&MissingRequiredFieldError{Kind: TypeTable, Field: "SystemName", Row: 1, Empty: true}, "METADATA-TABLE: row 1: required field SystemName is empty"},
		{&MissingRequiredFieldError{Kind: TypeLookupType, Field: "Lookup", Row: -1}, "METADATA-LOOKUP_TYPE: missing required field Lookup"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestProject_KindMismatch(t *testing.T) {
	table := rawTable(t, testutils.MetadataReply(testutils.ClassTable("Property", "RES")), TypeClass)

	_, err := ProjectResources(table)
	var pe *ProtocolError
	assert.ErrorAs(t, err, &pe)
}

func TestNewRequest(t *testing.T) {
	req := NewRequest(TypeClass, "")
	assert.Equal(t, IDRoot, req.ID)
	assert.Equal(t, FormatCompact, req.Format)

	req = NewRequest(TypeTable, ID("Property", "RES"))
	assert.Equal(t, "Property:RES", req.ID)
	assert.Equal(t, "Format=COMPACT&ID=Property%3ARES&Type=METADATA-TABLE", req.Query().Encode())
}

func TestRequest_URL(t *testing.T) {
	base, err := url.Parse("http://rets.example.com/rets/server.aspx?action=getmetadata&Format=STANDARD-XML")
	require.NoError(t, err)

	u := NewRequest(TypeClass, "Property").URL(base)

	assert.Equal(t, "/rets/server.aspx", u.Path)
	assert.Equal(t, "Format=COMPACT&ID=Property&Type=METADATA-CLASS&action=getmetadata", u.RawQuery)
	assert.Equal(t, "action=getmetadata&Format=STANDARD-XML", base.RawQuery, "base is not modified")
}
