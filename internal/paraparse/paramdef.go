// Package paraparse turns a stream of PARA tokens into ParamDef tables:
// an ordered list of (condition, spec) pairs plus an optional default
// ParamSpec, grounded on oscript/parse/para_parser.py's ParamDef class.
package paraparse

import (
	"github.com/naojsoft/oscript/internal/obserr"
)

// CondPair is one ID=STR equality test inside a CASE condition.
type CondPair struct {
	Key   string
	Value string
}

// Condition is a conjunction of CondPair equality tests, in the order
// they were written. A Condition matches a current parameter map when
// every pair it names is present in the map with an equal value;
// unnamed keys in the map are ignored (subset match, per spec §4.7 /
// para_parser.py's getParamDefForParamMap superset check).
type Condition []CondPair

// Matches reports whether every pair in c holds in current.
func (c Condition) Matches(current map[string]string) bool {
	for _, p := range c {
		if current[p.Key] != p.Value {
			return false
		}
	}
	return true
}

// ParamSpec is one parameter definition line's right-hand side: the
// recognized PARA keys TYPE, DEFAULT, SET, MIN, MAX, STATUS, FORMAT,
// NOP, CASE (spec §4.7 / §45). Not every field is set by every
// definition; zero value means "not given".
type ParamSpec struct {
	Type    string
	Default string
	Set     []string
	Min     string
	Max     string
	Status  string
	Format  string
	Nop     bool
	Case    Condition
}

// CondEntry pairs one Condition with the ParamSpec it selects.
type CondEntry struct {
	Cond Condition
	Spec *ParamSpec
}

// ParamDef is the accumulated definition for a single parameter name:
// an ordered condition list (first match wins), an optional default
// ParamSpec, and any status aliases it is also known by.
type ParamDef struct {
	Name       string
	Conditions []CondEntry
	Default    *ParamSpec
	Aliases    []string
}

// AddParamDef records one parsed definition line. A spec with a CASE
// clause is appended to the conditional list (first-match-wins order
// preserved); one without becomes the unconditional default,
// overwriting any earlier default, matching
// para_parser.py's ParamDef.addParamDef. A STATUS value's leading '!'
// is stripped before being recorded as an alias.
func (d *ParamDef) AddParamDef(spec *ParamSpec) {
	if spec.Case != nil {
		d.Conditions = append(d.Conditions, CondEntry{Cond: spec.Case, Spec: spec})
	} else {
		d.Default = spec
	}
	if spec.Status != "" {
		d.Aliases = append(d.Aliases, spec.Status)
	}
}

// Resolve returns the ParamSpec selected by current: the first
// matching condition, else the default, else a NoDefault error (spec
// §4.7, §7 KindNoDef), matching
// para_parser.py's getParamDefForParamMap.
func (d *ParamDef) Resolve(current map[string]string) (*ParamSpec, error) {
	for _, ce := range d.Conditions {
		if ce.Cond.Matches(current) {
			return ce.Spec, nil
		}
	}
	if d.Default != nil {
		return d.Default, nil
	}
	return nil, obserr.NoDefault(d.Name)
}

// valueList returns the set of acceptable values a single ParamSpec
// admits, matching para_parser.py's getParamValueList: a NUMBER spec
// contributes its MIN/MAX bounds (or "0" when neither is given), a
// CHAR spec contributes its SET list (or its DEFAULT alone when SET is
// absent); either kind contributes "NOP" when the NOP sentinel was
// given.
func valueList(spec *ParamSpec) []string {
	var out []string
	switch spec.Type {
	case "NUMBER":
		if spec.Min != "" {
			out = append(out, spec.Min)
		}
		if spec.Max != "" {
			out = append(out, spec.Max)
		}
		if spec.Min == "" && spec.Max == "" {
			out = append(out, "0")
		}
	case "CHAR":
		if len(spec.Set) > 0 {
			out = append(out, spec.Set...)
		} else if spec.Default != "" {
			out = append(out, spec.Default)
		}
	}
	if spec.Nop {
		out = append(out, "NOP")
	}
	return out
}

// GetAllParamValueList unions the acceptable values of every
// definition recorded for this parameter: every conditional spec plus
// the default, deduplicated, matching
// para_parser.py's getAllParamValueList.
func (d *ParamDef) GetAllParamValueList() []string {
	seen := map[string]bool{}
	var out []string
	add := func(vals []string) {
		for _, v := range vals {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	for _, ce := range d.Conditions {
		add(valueList(ce.Spec))
	}
	if d.Default != nil {
		add(valueList(d.Default))
	}
	return out
}

// Table is the full set of parameter definitions parsed from one PARA
// file, keyed by upper-cased parameter name.
type Table struct {
	Defs map[string]*ParamDef
}

// NewTable returns an empty parameter definition table.
func NewTable() *Table {
	return &Table{Defs: map[string]*ParamDef{}}
}

// GetOrCreate returns the ParamDef for name, creating it if absent.
func (t *Table) GetOrCreate(name string) *ParamDef {
	if d, ok := t.Defs[name]; ok {
		return d
	}
	d := &ParamDef{Name: name}
	t.Defs[name] = d
	return d
}

// specScalar reduces a resolved ParamSpec to the single representative
// value callers that only want one register write per parameter
// (oscriptctl's PARA-file preload) care about: the spec's DEFAULT when
// given, else the first SET element, else MIN, else the empty string.
func specScalar(spec *ParamSpec) string {
	switch {
	case spec.Default != "":
		return spec.Default
	case len(spec.Set) > 0:
		return spec.Set[0]
	case spec.Min != "":
		return spec.Min
	default:
		return ""
	}
}

// AllParamValues resolves every parameter definition in the table
// against current, collecting a representative scalar value per
// parameter. Parameters with no matching condition and no default are
// omitted from the result and reported as errors instead of aborting
// the whole pass, matching getAllParamValueList's accumulate-errors
// behavior.
func (t *Table) AllParamValues(current map[string]string) (map[string]string, []error) {
	out := map[string]string{}
	var errs []error
	for name, def := range t.Defs {
		spec, err := def.Resolve(current)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[name] = specScalar(spec)
	}
	return out, errs
}
