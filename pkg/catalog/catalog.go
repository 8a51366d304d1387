// Package catalog defines the set of known sheets and the fields each one is
// allowed to expose. The same table drives the selector prompt and the
// validation of whatever the selector returns.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/tabula/pkg/sheets"
)

// MaxFieldsPerSheet caps how many fields a selection may name for one sheet.
const MaxFieldsPerSheet = 4

// SheetDescriptor describes one sheet. Fields is the authoritative field list
// and Identity the field that identifies a row.
type SheetDescriptor struct {
	Name        string   `toml:"name" json:"name"`
	Description string   `toml:"description" json:"description"`
	Identity    string   `toml:"identity" json:"identity"`
	Fields      []string `toml:"fields" json:"fields"`
}

// HasField reports whether field is one of the sheet's fields.
func (d SheetDescriptor) HasField(field string) bool {
	_, ok := d.canonicalField(field)
	return ok
}

func (d SheetDescriptor) canonicalField(field string) (string, bool) {
	field = strings.TrimSpace(field)
	for _, f := range d.Fields {
		if f == field {
			return f, true
		}
	}
	for _, f := range d.Fields {
		if strings.EqualFold(f, field) {
			return f, true
		}
	}
	return "", false
}

// Catalog is an immutable, ordered set of sheet descriptors.
type Catalog struct {
	sheets []SheetDescriptor
	index  map[string]int
}

// New validates descriptors and builds a Catalog from them.
func New(descriptors []SheetDescriptor) (*Catalog, error) {
	if len(descriptors) == 0 {
		return nil, errors.New("catalog has no sheets")
	}

	c := &Catalog{
		sheets: make([]SheetDescriptor, 0, len(descriptors)),
		index:  make(map[string]int, len(descriptors)),
	}
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, errors.New("sheet without a name")
		}
		if _, dup := c.index[strings.ToLower(d.Name)]; dup {
			return nil, fmt.Errorf("duplicate sheet %q", d.Name)
		}
		if len(d.Fields) == 0 {
			return nil, fmt.Errorf("sheet %q has no fields", d.Name)
		}
		if d.Identity == "" {
			d.Identity = d.Fields[0]
		}
		if !d.HasField(d.Identity) {
			return nil, fmt.Errorf("sheet %q: identity field %q is not one of its fields", d.Name, d.Identity)
		}

		d.Fields = append([]string(nil), d.Fields...)
		c.index[strings.ToLower(d.Name)] = len(c.sheets)
		c.sheets = append(c.sheets, d)
	}
	return c, nil
}

// LoadFile reads a catalog from a TOML file made of [[sheets]] tables.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file struct {
		Sheets []SheetDescriptor `toml:"sheets"`
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(file.Sheets)
}

// Sheets returns the descriptors in catalog order.
func (c *Catalog) Sheets() []SheetDescriptor {
	return append([]SheetDescriptor(nil), c.sheets...)
}

// Names returns the sheet names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.sheets))
	for i, d := range c.sheets {
		names[i] = d.Name
	}
	return names
}

// Lookup finds a sheet by name, ignoring case and surrounding space.
func (c *Catalog) Lookup(name string) (SheetDescriptor, bool) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return SheetDescriptor{}, false
	}
	return c.sheets[i], true
}

// Validate turns a raw selection into one that only names known sheets and
// fields. Names are canonicalized to catalog spelling, duplicates removed,
// the identity field placed first and the list capped at MaxFieldsPerSheet.
// A known sheet whose fields were all rejected keeps its identity field.
// Everything rejected is reported in dropped.
func (c *Catalog) Validate(raw map[string][]string) (sel sheets.Selection, dropped []string) {
	sel = make(sheets.Selection)
	for name, fields := range raw {
		desc, ok := c.Lookup(name)
		if !ok {
			dropped = append(dropped, name)
			continue
		}

		kept := sel[desc.Name]
		for _, f := range fields {
			canon, ok := desc.canonicalField(f)
			if !ok {
				dropped = append(dropped, desc.Name+"."+f)
				continue
			}
			if !contains(kept, canon) {
				kept = append(kept, canon)
			}
		}
		sel[desc.Name] = kept
	}

	for name, fields := range sel {
		desc, _ := c.Lookup(name)
		withIdentity := []string{desc.Identity}
		for _, f := range fields {
			if f != desc.Identity {
				withIdentity = append(withIdentity, f)
			}
		}
		if len(withIdentity) > MaxFieldsPerSheet {
			for _, f := range withIdentity[MaxFieldsPerSheet:] {
				dropped = append(dropped, name+"."+f)
			}
			withIdentity = withIdentity[:MaxFieldsPerSheet]
		}
		sel[name] = withIdentity
	}
	return sel, dropped
}

// IdentityOnly selects the identity field of every known sheet in names.
func (c *Catalog) IdentityOnly(names []string) (sel sheets.Selection, dropped []string) {
	raw := make(map[string][]string, len(names))
	for _, n := range names {
		raw[n] = nil
	}
	return c.Validate(raw)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
