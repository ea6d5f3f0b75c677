package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/pior/rets"
	"github.com/pior/rets/metadata"
)

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable renders rows under header. An optional title is printed above.
func (a *app) printTable(title string, header []string, rows [][]string) error {
	if title != "" {
		fmt.Fprintln(a.out, pterm.Bold.Sprint(title))
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "(none)")
		return nil
	}

	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, header)
	data = append(data, rows...)

	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, s)
	return nil
}

// printMap renders a key/value map sorted by key.
func (a *app) printMap(title string, m map[string]string) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, m[k]})
	}
	return a.printTable(title, []string{"Name", "Value"}, rows)
}

func (a *app) printLogin(info *rets.LoginInfo) error {
	if a.jsonOutput {
		return a.printJSON(info)
	}
	fmt.Fprintln(a.out, info.Text)
	if err := a.printMap("Capabilities", info.Capabilities); err != nil {
		return err
	}
	return a.printMap("Session", info.Info)
}

func (a *app) printSystem(sys *metadata.System) error {
	if a.jsonOutput {
		return a.printJSON(sys)
	}
	return a.printTable("", []string{"SystemID", "Description", "Version", "Date", "TimeZoneOffset", "Comments"}, [][]string{
		{sys.SystemID, sys.SystemDescription, sys.MetadataVersion, sys.MetadataDate, sys.TimeZoneOffset, sys.Comments},
	})
}

func (a *app) printResources(res *metadata.Resources) error {
	if a.jsonOutput {
		return a.printJSON(res)
	}
	rows := make([][]string, 0, len(res.Resources))
	for _, r := range res.Resources {
		rows = append(rows, []string{r.ResourceID, r.StandardName, r.VisibleName, r.KeyField, r.ClassCount})
	}
	return a.printTable(versionTitle("Resources", res.Version, res.Date),
		[]string{"ResourceID", "StandardName", "VisibleName", "KeyField", "Classes"}, rows)
}

func (a *app) printClasses(all []*metadata.Classes) error {
	if a.jsonOutput {
		return a.printJSON(all)
	}
	for _, c := range all {
		rows := make([][]string, 0, len(c.Classes))
		for _, cls := range c.Classes {
			rows = append(rows, []string{cls.ClassName, cls.StandardName, cls.VisibleName, cls.TableVersion})
		}
		err := a.printTable(versionTitle("Classes of "+c.Resource, c.Version, c.Date),
			[]string{"ClassName", "StandardName", "VisibleName", "TableVersion"}, rows)
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printTables(all []*metadata.Table) error {
	if a.jsonOutput {
		return a.printJSON(all)
	}
	for _, t := range all {
		rows := make([][]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			rows = append(rows, []string{f.SystemName, f.StandardName, f.LongName, f.DataType, f.MaximumLength, f.Interpretation, f.LookupName})
		}
		err := a.printTable(versionTitle("Table "+metadata.ID(t.Resource, t.Class), t.Version, t.Date),
			[]string{"SystemName", "StandardName", "LongName", "DataType", "MaxLength", "Interpretation", "Lookup"}, rows)
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printLookups(all []*metadata.Lookups) error {
	if a.jsonOutput {
		return a.printJSON(all)
	}
	for _, l := range all {
		rows := make([][]string, 0, len(l.Lookups))
		for _, lk := range l.Lookups {
			rows = append(rows, []string{lk.LookupName, lk.VisibleName, lk.LookupTypeVersion, lk.LookupTypeDate})
		}
		err := a.printTable(versionTitle("Lookups of "+l.Resource, l.Version, l.Date),
			[]string{"LookupName", "VisibleName", "Version", "Date"}, rows)
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printLookupTypes(all []*metadata.LookupTypes) error {
	if a.jsonOutput {
		return a.printJSON(all)
	}
	for _, lt := range all {
		rows := make([][]string, 0, len(lt.LookupTypes))
		for _, v := range lt.LookupTypes {
			rows = append(rows, []string{v.Value, v.ShortValue, v.LongValue})
		}
		err := a.printTable(versionTitle("Lookup "+metadata.ID(lt.Resource, lt.Lookup), lt.Version, lt.Date),
			[]string{"Value", "ShortValue", "LongValue"}, rows)
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printObjects(objects *metadata.Objects) error {
	if a.jsonOutput {
		return a.printJSON(objects)
	}
	rows := make([][]string, 0, len(objects.Objects))
	for _, o := range objects.Objects {
		rows = append(rows, []string{o.ObjectType, o.MIMEType, o.VisibleName, o.Description})
	}
	return a.printTable(versionTitle("Objects of "+objects.Resource, objects.Version, objects.Date),
		[]string{"ObjectType", "MIMEType", "VisibleName", "Description"}, rows)
}

func versionTitle(title, version, date string) string {
	if version == "" {
		return title
	}
	s := title + " (version " + version
	if date != "" {
		s += ", " + date
	}
	return s + ")"
}

// digestHex formats a RawTable digest.
func digestHex(d uint64) string {
	return strconv.FormatUint(d, 16)
}
