package metadata

// Records are open: the fields named in each struct are the columns this
// package knows about, and any other column a server sends is kept in Extra.
// All values are strings as sent by the server, versions included.

// System describes the RETS system itself (METADATA-SYSTEM).
type System struct {
	MetadataVersion   string
	MetadataDate      string
	SystemID          string
	SystemDescription string
	TimeZoneOffset    string
	Comments          string
	Extra             map[string]string
}

// Resource is one row of METADATA-RESOURCE.
type Resource struct {
	ResourceID    string
	StandardName  string
	VisibleName   string
	ObjectVersion string
	Description   string
	KeyField      string
	ClassCount    string
	ClassVersion  string
	ClassDate     string
	ObjectDate    string
	LookupVersion string
	LookupDate    string
	Extra         map[string]string
}

// Resources is a METADATA-RESOURCE block.
type Resources struct {
	Version   string
	Date      string
	Digest    uint64
	Resources []Resource
}

// IDs returns the ResourceID of every resource, in server order.
func (r *Resources) IDs() []string {
	ids := make([]string, len(r.Resources))
	for i, res := range r.Resources {
		ids[i] = res.ResourceID
	}
	return ids
}

// Class is one row of METADATA-CLASS.
type Class struct {
	ClassName    string
	StandardName string
	VisibleName  string
	TableVersion string
	Description  string
	TableDate    string
	Extra        map[string]string
}

// Classes is the METADATA-CLASS block of one resource.
type Classes struct {
	Resource string
	Version  string
	Date     string
	Digest   uint64
	Classes  []Class
}

// Names returns the ClassName of every class, in server order.
func (c *Classes) Names() []string {
	names := make([]string, len(c.Classes))
	for i, cls := range c.Classes {
		names[i] = cls.ClassName
	}
	return names
}

// Field is one row of METADATA-TABLE.
type Field struct {
	MetadataEntryID string
	SystemName      string
	ShortName       string
	LongName        string
	DataType        string
	StandardName    string
	DBName          string
	MaximumLength   string
	Precision       string
	Searchable      string
	Interpretation  string
	LookupName      string
	Required        string
	Unique          string
	Extra           map[string]string
}

// Table is the METADATA-TABLE block of one resource class.
type Table struct {
	Resource string
	Class    string
	Version  string
	Date     string
	Digest   uint64
	Fields   []Field
}

// Field returns the field with the given SystemName.
func (t *Table) Field(systemName string) (Field, bool) {
	for _, f := range t.Fields {
		if f.SystemName == systemName {
			return f, true
		}
	}
	return Field{}, false
}

// Lookup is one row of METADATA-LOOKUP.
type Lookup struct {
	MetadataEntryID   string
	LookupName        string
	VisibleName       string
	LookupTypeVersion string
	LookupTypeDate    string
	Extra             map[string]string
}

// Lookups is the METADATA-LOOKUP block of one resource.
type Lookups struct {
	Resource string
	Version  string
	Date     string
	Digest   uint64
	Lookups  []Lookup
}

// Find returns the lookup with the given LookupName.
func (l *Lookups) Find(name string) (Lookup, bool) {
	for _, lk := range l.Lookups {
		if lk.LookupName == name {
			return lk, true
		}
	}
	return Lookup{}, false
}

// LookupType is one row of METADATA-LOOKUP_TYPE.
type LookupType struct {
	MetadataEntryID string
	LongValue       string
	ShortValue      string
	Value           string
	Extra           map[string]string
}

// LookupTypes is the METADATA-LOOKUP_TYPE block of one lookup.
type LookupTypes struct {
	Resource    string
	Lookup      string
	Version     string
	Date        string
	Digest      uint64
	LookupTypes []LookupType
}

// Object is one row of METADATA-OBJECT.
type Object struct {
	MetaDataEntryID string
	ObjectType      string
	MIMEType        string
	VisibleName     string
	Description     string
	ObjectTimeStamp string
	ObjectCount     string
	Extra           map[string]string
}

// Objects is the METADATA-OBJECT block of one resource.
type Objects struct {
	Resource string
	Version  string
	Date     string
	Digest   uint64
	Objects  []Object
}
