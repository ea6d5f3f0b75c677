package metadata

import (
	"strings"
)

// column binds one compact column to a record field.
// Column names are matched case-insensitively: servers disagree on the
// capitalisation of names such as MetadataEntryID.
type column[T any] struct {
	name     string
	required bool // the column must be declared
	nonEmpty bool // every value must be non-empty (identifiers)
	set      func(*T, string)
}

func projectRows[T any](t *RawTable, schema []column[T], extra func(*T) *map[string]string) ([]T, error) {
	declared := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		declared[strings.ToLower(c)] = true
	}

	bound := make(map[string]*column[T], len(schema))
	for i := range schema {
		c := &schema[i]
		if c.required && !declared[strings.ToLower(c.name)] {
			return nil, &MissingRequiredFieldError{Kind: t.Kind, Field: c.name, Row: -1}
		}
		bound[strings.ToLower(c.name)] = c
	}

	// Resolve each table column once rather than per row.
	setters := make([]*column[T], len(t.Columns))
	for j, name := range t.Columns {
		setters[j] = bound[strings.ToLower(name)]
	}

	records := make([]T, len(t.Rows))
	for i, values := range t.Rows {
		rec := &records[i]
		for j, value := range values {
			c := setters[j]
			if c == nil {
				m := extra(rec)
				if *m == nil {
					*m = make(map[string]string)
				}
				(*m)[t.Columns[j]] = value
				continue
			}
			if c.nonEmpty && value == "" {
				return nil, &MissingRequiredFieldError{Kind: t.Kind, Field: c.name, Row: i, Empty: true}
			}
			c.set(rec, value)
		}
	}
	return records, nil
}

// tableAttrs reads required table-level attributes. Identifier attributes
// (Resource, Class, Lookup) must also be non-empty.
func tableAttrs(t *RawTable, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		v, ok := t.Attr(name)
		if !ok {
			return nil, &MissingRequiredFieldError{Kind: t.Kind, Field: name, Row: -1}
		}
		if v == "" && name != AttrVersion && name != AttrDate {
			return nil, &MissingRequiredFieldError{Kind: t.Kind, Field: name, Row: -1, Empty: true}
		}
		out[name] = v
	}
	return out, nil
}

func checkKind(t *RawTable, kind Type) error {
	if t.Kind != kind {
		return &ProtocolError{Message: "cannot project " + string(t.Kind) + " as " + string(kind)}
	}
	return nil
}

var systemSchema = []column[System]{
	{name: "SystemID", required: true, nonEmpty: true, set: func(s *System, v string) { s.SystemID = v }},
	{name: "SystemDescription", required: true, set: func(s *System, v string) { s.SystemDescription = v }},
	{name: "TimeZoneOffset", set: func(s *System, v string) { s.TimeZoneOffset = v }},
	{name: ElementComments, set: func(s *System, v string) { s.Comments = v }},
}

// ProjectSystem projects a METADATA-SYSTEM table.
func ProjectSystem(t *RawTable) (*System, error) {
	if err := checkKind(t, TypeSystem); err != nil {
		return nil, err
	}
	attrs, err := tableAttrs(t, AttrVersion, AttrDate)
	if err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, &MissingRequiredFieldError{Kind: t.Kind, Field: "SystemID", Row: -1}
	}

	systems, err := projectRows(t, systemSchema, func(s *System) *map[string]string { return &s.Extra })
	if err != nil {
		return nil, err
	}
	sys := systems[0]
	sys.MetadataVersion = attrs[AttrVersion]
	sys.MetadataDate = attrs[AttrDate]
	return &sys, nil
}

var resourceSchema = []column[Resource]{
	{name: "ResourceID", required: true, nonEmpty: true, set: func(r *Resource, v string) { r.ResourceID = v }},
	{name: "StandardName", required: true, set: func(r *Resource, v string) { r.StandardName = v }},
	{name: "VisibleName", required: true, set: func(r *Resource, v string) { r.VisibleName = v }},
	{name: "ObjectVersion", required: true, set: func(r *Resource, v string) { r.ObjectVersion = v }},
	{name: "Description", set: func(r *Resource, v string) { r.Description = v }},
	{name: "KeyField", set: func(r *Resource, v string) { r.KeyField = v }},
	{name: "ClassCount", set: func(r *Resource, v string) { r.ClassCount = v }},
	{name: "ClassVersion", set: func(r *Resource, v string) { r.ClassVersion = v }},
	{name: "ClassDate", set: func(r *Resource, v string) { r.ClassDate = v }},
	{name: "ObjectDate", set: func(r *Resource, v string) { r.ObjectDate = v }},
	{name: "LookupVersion", set: func(r *Resource, v string) { r.LookupVersion = v }},
	{name: "LookupDate", set: func(r *Resource, v string) { r.LookupDate = v }},
}

// ProjectResources projects a METADATA-RESOURCE table.
func ProjectResources(t *RawTable) (*Resources, error) {
	if err := checkKind(t, TypeResource); err != nil {
		return nil, err
	}
	attrs, err := tableAttrs(t, AttrVersion, AttrDate)
	if err != nil {
		return nil, err
	}
	rows, err := projectRows(t, resourceSchema, func(r *Resource) *map[string]string { return &r.Extra })
	if err != nil {
		return nil, err
	}
	return &Resources{
		Version:   attrs[AttrVersion],
		Date:      attrs[AttrDate],
		Digest:    t.Digest,
		Resources: rows,
	}, nil
}

var classSchema = []column[Class]{
	{name: "ClassName", required: true, nonEmpty: true, set: func(c *Class, v string) { c.ClassName = v }},
	{name: "StandardName", required: true, set: func(c *Class, v string) { c.StandardName = v }},
	{name: "VisibleName", required: true, set: func(c *Class, v string) { c.VisibleName = v }},
	{name: "TableVersion", required: true, set: func(c *Class, v string) { c.TableVersion = v }},
	{name: "Description", set: func(c *Class, v string) { c.Description = v }},
	{name: "TableDate", set: func(c *Class, v string) { c.TableDate = v }},
}

// ProjectClasses projects a METADATA-CLASS table.
func ProjectClasses(t *RawTable) (*Classes, error) {
	if err := checkKind(t, TypeClass); err != nil {
		return nil, err
	}
	attrs, err := tableAttrs(t, AttrResource, AttrVersion, AttrDate)
	if err != nil {
		return nil, err
	}
	rows, err := projectRows(t, classSchema, func(c *Class) *map[string]string { return &c.Extra })
	if err != nil {
		return nil, err
	}
	return &Classes{
		Resource: attrs[AttrResource],
		Version:  attrs[AttrVersion],
		Date:     attrs[AttrDate],
		Digest:   t.Digest,
		Classes:  rows,
	}, nil
}

var fieldSchema = []column[Field]{
	{name: "MetadataEntryID", required: true, set: func(f *Field, v string) { f.MetadataEntryID = v }},
	{name: "SystemName", required: true, nonEmpty: true, set: func(f *Field, v string) { f.SystemName = v }},
	{name: "ShortName", required: true, set: func(f *Field, v string) { f.ShortName = v }},
	{name: "LongName", required: true, set: func(f *Field, v string) { f.LongName = v }},
	{name: "DataType", required: true, set: func(f *Field, v string) { f.DataType = v }},
	{name: "StandardName", set: func(f *Field, v string) { f.StandardName = v }},
	{name: "DBName", set: func(f *Field, v string) { f.DBName = v }},
	{name: "MaximumLength", set: func(f *Field, v string) { f.MaximumLength = v }},
	{name: "Precision", set: func(f *Field, v string) { f.Precision = v }},
	{name: "Searchable", set: func(f *Field, v string) { f.Searchable = v }},
	{name: "Interpretation", set: func(f *Field, v string) { f.Interpretation = v }},
	{name: "LookupName", set: func(f *Field, v string) { f.LookupName = v }},
	{name: "Required", set: func(f *Field, v string) { f.Required = v }},
	{name: "Unique", set: func(f *Field, v string) { f.Unique = v }},
}

// ProjectTable projects a METADATA-TABLE table.
func ProjectTable(t *RawTable) (*Table, error) {
	if err := checkKind(t, TypeTable); err != nil {
		return nil, err
	}
	attrs, err := tableAttrs(t, AttrResource, AttrClass, AttrVersion, AttrDate)
	if err != nil {
		return nil, err
	}
	rows, err := projectRows(t, fieldSchema, func(f *Field) *map[string]string { return &f.Extra })
	if err != nil {
		return nil, err
	}
	return &Table{
		Resource: attrs[AttrResource],
		Class:    attrs[AttrClass],
		Version:  attrs[AttrVersion],
		Date:     attrs[AttrDate],
		Digest:   t.Digest,
		Fields:   rows,
	}, nil
}

var lookupSchema = []column[Lookup]{
	{name: "MetadataEntryID", required: true, set: func(l *Lookup, v string) { l.MetadataEntryID = v }},
	{name: "LookupName", required: true, nonEmpty: true, set: func(l *Lookup, v string) { l.LookupName = v }},
	{name: "VisibleName", required: true, set: func(l *Lookup, v string) { l.VisibleName = v }},
	{name: "LookupTypeVersion", set: func(l *Lookup, v string) { l.LookupTypeVersion = v }},
	{name: "LookupTypeDate", set: func(l *Lookup, v string) { l.LookupTypeDate = v }},
}

// ProjectLookups projects a METADATA-LOOKUP table.
func ProjectLookups(t *RawTable) (*Lookups, error) {
	if err := checkKind(t, TypeLookup); err != nil {
		return nil, err
	}
	attrs, err := tableAttrs(t, AttrResource, AttrVersion, AttrDate)
	if err != nil {
		return nil, err
	}
	rows, err := projectRows(t, lookupSchema, func(l *Lookup) *map[string]string { return &l.Extra })
	if err != nil {
		return nil, err
	}
	return &Lookups{
		Resource: attrs[AttrResource],
		Version:  attrs[AttrVersion],
		Date:     attrs[AttrDate],
		Digest:   t.Digest,
		Lookups:  rows,
	}, nil
}

var lookupTypeSchema = []column[LookupType]{
	{name: "MetadataEntryID", required: true, set: func(l *LookupType, v string) { l.MetadataEntryID = v }},
	{name: "LongValue", required: true, set: func(l *LookupType, v string) { l.LongValue = v }},
	{name: "ShortValue", required: true, set: func(l *LookupType, v string) { l.ShortValue = v }},
	{name: "Value", required: true, set: func(l *LookupType, v string) { l.Value = v }},
}

// ProjectLookupTypes projects a METADATA-LOOKUP_TYPE table.
func ProjectLookupTypes(t *RawTable) (*LookupTypes, error) {
	if err := checkKind(t, TypeLookupType); err != nil {
		return nil, err
	}
	attrs, err := tableAttrs(t, AttrResource, AttrLookup, AttrVersion, AttrDate)
	if err != nil {
		return nil, err
	}
	rows, err := projectRows(t, lookupTypeSchema, func(l *LookupType) *map[string]string { return &l.Extra })
	if err != nil {
		return nil, err
	}
	return &LookupTypes{
		Resource:    attrs[AttrResource],
		Lookup:      attrs[AttrLookup],
		Version:     attrs[AttrVersion],
		Date:        attrs[AttrDate],
		Digest:      t.Digest,
		LookupTypes: rows,
	}, nil
}

var objectSchema = []column[Object]{
	{name: "MetaDataEntryID", required: true, set: func(o *Object, v string) { o.MetaDataEntryID = v }},
	{name: "ObjectType", required: true, set: func(o *Object, v string) { o.ObjectType = v }},
	{name: "MIMEType", required: true, set: func(o *Object, v string) { o.MIMEType = v }},
	{name: "VisibleName", required: true, set: func(o *Object, v string) { o.VisibleName = v }},
	{name: "Description", set: func(o *Object, v string) { o.Description = v }},
	{name: "ObjectTimeStamp", set: func(o *Object, v string) { o.ObjectTimeStamp = v }},
	{name: "ObjectCount", set: func(o *Object, v string) { o.ObjectCount = v }},
}

// ProjectObjects projects a METADATA-OBJECT table.
func ProjectObjects(t *RawTable) (*Objects, error) {
	if err := checkKind(t, TypeObject); err != nil {
		return nil, err
	}
	attrs, err := tableAttrs(t, AttrResource, AttrVersion, AttrDate)
	if err != nil {
		return nil, err
	}
	rows, err := projectRows(t, objectSchema, func(o *Object) *map[string]string { return &o.Extra })
	if err != nil {
		return nil, err
	}
	return &Objects{
		Resource: attrs[AttrResource],
		Version:  attrs[AttrVersion],
		Date:     attrs[AttrDate],
		Digest:   t.Digest,
		Objects:  rows,
	}, nil
}
