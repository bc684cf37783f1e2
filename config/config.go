// Package config loads chart definitions from HCL files.
//
// A file holds variable blocks with the data points of each variable and chart
// blocks naming the variables they plot. Chart blocks can refer to a variable
// by its block label:
//
//	variable "gdp" {
//	  id   = 1
//	  name = "GDP per capita"
//	  unit = "$"
//
//	  point {
//	    entity = "France"
//	    year   = 2000
//	    value  = 22364
//	  }
//	}
//
//	chart "gdp-per-capita" {
//	  type      = "line"
//	  title     = "GDP per capita"
//	  subtitle  = "Adjusted for **inflation**"
//	  variables = [variable.gdp]
//	  min_time  = 1990
//	}
package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/chartflow/chartflow/chart"
)

// ErrChartNotFound is returned by Chart for an unknown slug.
var ErrChartNotFound = errors.New("chart not found")

// File is the decoded content of one chart definition file.
type File struct {
	Path      string
	Charts    []*ChartDef
	Variables []*VariableDef
}

// ChartDef is a chart block.
type ChartDef struct {
	Slug      string   `hcl:"slug,label"`
	Type      string   `hcl:"type,optional"`
	Title     string   `hcl:"title,optional"`
	Subtitle  string   `hcl:"subtitle,optional"`
	Note      string   `hcl:"note,optional"`
	Variables []int    `hcl:"variables"`
	MinTime   *int     `hcl:"min_time,optional"`
	MaxTime   *int     `hcl:"max_time,optional"`
	Entities  []string `hcl:"entities,optional"`
}

// VariableDef is a variable block.
type VariableDef struct {
	Key    string      `hcl:"key,label"`
	ID     int         `hcl:"id"`
	Name   string      `hcl:"name"`
	Unit   string      `hcl:"unit,optional"`
	Points []*PointDef `hcl:"point,block"`
}

// PointDef is a point block inside a variable.
type PointDef struct {
	Entity string  `hcl:"entity"`
	Year   int     `hcl:"year"`
	Value  float64 `hcl:"value"`
}

// hclFile is the first decoding pass. Chart bodies are kept undecoded until
// the variable references they may contain can be evaluated.
type hclFile struct {
	Charts    []*hclChart    `hcl:"chart,block"`
	Variables []*VariableDef `hcl:"variable,block"`
}

type hclChart struct {
	Slug string   `hcl:"slug,label"`
	Body hcl.Body `hcl:",remain"`
}

// LoadFile parses and decodes the chart definitions in path.
func LoadFile(path string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return decode(path, file)
}

// Parse decodes chart definitions from src. filename is used in diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(filename, file)
}

func decode(path string, f *hcl.File) (*File, error) {
	var parsed hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	out := &File{Path: path, Variables: parsed.Variables}
	ids := make(map[int]bool)
	refs := make(map[string]cty.Value)
	for _, v := range parsed.Variables {
		if ids[v.ID] {
			return nil, fmt.Errorf("%s: duplicate variable id %d", path, v.ID)
		}
		if _, ok := refs[v.Key]; ok {
			return nil, fmt.Errorf("%s: duplicate variable %q", path, v.Key)
		}
		ids[v.ID] = true
		refs[v.Key] = cty.NumberIntVal(int64(v.ID))
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"variable": cty.ObjectVal(refs)},
	}

	slugs := make(map[string]bool)
	for _, c := range parsed.Charts {
		if slugs[c.Slug] {
			return nil, fmt.Errorf("%s: duplicate chart %q", path, c.Slug)
		}
		slugs[c.Slug] = true

		def := &ChartDef{Slug: c.Slug}
		if diags := gohcl.DecodeBody(c.Body, evalCtx, def); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode chart %q in %s: %w", c.Slug, path, diags)
		}
		if err := def.validate(ids); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out.Charts = append(out.Charts, def)
	}

	return out, nil
}

func (c *ChartDef) validate(ids map[int]bool) error {
	if c.Type == "" {
		c.Type = string(chart.TypeLine)
	}
	t, err := chart.ParseType(c.Type)
	if err != nil {
		return fmt.Errorf("chart %q: %w", c.Slug, err)
	}
	c.Type = string(t)

	if len(c.Variables) == 0 {
		return fmt.Errorf("chart %q: no variables", c.Slug)
	}
	for _, id := range c.Variables {
		if !ids[id] {
			return fmt.Errorf("chart %q: %w: %d", c.Slug, chart.ErrUnknownVariable, id)
		}
	}
	if c.MinTime != nil && c.MaxTime != nil && *c.MinTime > *c.MaxTime {
		return fmt.Errorf("chart %q: min_time %d is after max_time %d", c.Slug, *c.MinTime, *c.MaxTime)
	}
	return nil
}

// Chart returns the chart with the given slug.
func (f *File) Chart(slug string) (*ChartDef, error) {
	for _, c := range f.Charts {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrChartNotFound, slug)
}

// Slugs returns the chart slugs in sorted order.
func (f *File) Slugs() []string {
	slugs := make([]string, 0, len(f.Charts))
	for _, c := range f.Charts {
		slugs = append(slugs, c.Slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Source returns a data source serving the file's variables.
func (f *File) Source() *chart.StaticSource {
	src := chart.NewStaticSource()
	for _, v := range f.Variables {
		variable := &chart.Variable{ID: v.ID, Name: v.Name, Unit: v.Unit}
		for _, p := range v.Points {
			variable.Points = append(variable.Points, chart.Point{Entity: p.Entity, Year: p.Year, Value: p.Value})
		}
		src.Add(variable)
	}
	return src
}

// Inputs returns the chart as an update for a chart.Model. Bounds and
// entities are only included when set.
func (c *ChartDef) Inputs() map[string]any {
	inputs := map[string]any{
		"type":      c.Type,
		"title":     c.Title,
		"subtitle":  c.Subtitle,
		"note":      c.Note,
		"variables": append([]int(nil), c.Variables...),
	}
	if c.MinTime != nil {
		inputs["minTime"] = *c.MinTime
	}
	if c.MaxTime != nil {
		inputs["maxTime"] = *c.MaxTime
	}
	if c.Entities != nil {
		inputs["selectedEntities"] = append([]string(nil), c.Entities...)
	}
	return inputs
}
