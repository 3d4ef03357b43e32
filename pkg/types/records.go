package types

import "strings"

// Element is one row of element.table:
//
//	007002|height|long|HEIGHT OR ALTITUDE|m|-1|-40|16|m|-1|5
type Element struct {
	Code         string   `json:"code" yaml:"code"`
	Abbreviation string   `json:"abbreviation" yaml:"abbreviation"`
	Type         string   `json:"type,omitempty" yaml:"type,omitempty"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Unit         string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Scale        string   `json:"scale,omitempty" yaml:"scale,omitempty"`
	Reference    string   `json:"reference,omitempty" yaml:"reference,omitempty"`
	Width        string   `json:"width,omitempty" yaml:"width,omitempty"`
	CrexUnit     string   `json:"crexUnit,omitempty" yaml:"crex_unit,omitempty"`
	CrexScale    string   `json:"crexScale,omitempty" yaml:"crex_scale,omitempty"`
	CrexWidth    string   `json:"crexWidth,omitempty" yaml:"crex_width,omitempty"`
	Fields       []string `json:"-" yaml:"-"`
}

// ElementFromFields builds an Element from the '|'-separated fields of a
// table line. Missing trailing columns are left empty.
func ElementFromFields(fields []string) *Element {
	e := &Element{Fields: fields}
	dst := []*string{
		&e.Code, &e.Abbreviation, &e.Type, &e.Name, &e.Unit, &e.Scale,
		&e.Reference, &e.Width, &e.CrexUnit, &e.CrexScale, &e.CrexWidth,
	}
	for i, f := range fields {
		if i >= len(dst) {
			break
		}
		*dst[i] = strings.TrimSpace(f)
	}
	return e
}

// Centre is one row of the originating-centre code table (1033.table):
//
//	98 98 European Centre for Medium-Range Weather Forecasts (RSMC)
type Centre struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
	Line string `json:"line" yaml:"line"`
}
