package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartflow/chartflow/chart"
)

const sample = `
variable "gdp" {
  id   = 1
  name = "GDP per capita"
  unit = "$"

  point {
    entity = "France"
    year   = 2000
    value  = 22364
  }

  point {
    entity = "Chile"
    year   = 2001
    value  = 5075.5
  }
}

variable "population" {
  id   = 2
  name = "Population"
}

chart "gdp" {
  title     = "GDP per capita"
  subtitle  = "Adjusted for **inflation**"
  variables = [variable.gdp]
  min_time  = 1990
  entities  = ["France"]
}

chart "both" {
  type      = "Stacked-Area"
  variables = [variable.gdp, 2]
}
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample), "charts.hcl")
	require.NoError(t, err)

	assert.Equal(t, []string{"both", "gdp"}, f.Slugs())
	require.Len(t, f.Variables, 2)
	assert.Len(t, f.Variables[0].Points, 2)

	gdp, err := f.Chart("gdp")
	require.NoError(t, err)
	assert.Equal(t, "line", gdp.Type, "type defaults to line")
	assert.Equal(t, []int{1}, gdp.Variables)
	require.NotNil(t, gdp.MinTime)
	assert.Equal(t, 1990, *gdp.MinTime)
	assert.Nil(t, gdp.MaxTime)

	both, err := f.Chart("both")
	require.NoError(t, err)
	assert.Equal(t, string(chart.TypeStackedArea), both.Type)
	assert.Equal(t, []int{1, 2}, both.Variables)

	_, err = f.Chart("missing")
	assert.ErrorIs(t, err, ErrChartNotFound)
}

func TestInputs(t *testing.T) {
	f, err := Parse([]byte(sample), "charts.hcl")
	require.NoError(t, err)

	gdp, _ := f.Chart("gdp")
	assert.Equal(t, map[string]any{
		"type":             "line",
		"title":            "GDP per capita",
		"subtitle":         "Adjusted for **inflation**",
		"note":             "",
		"variables":        []int{1},
		"minTime":          1990,
		"selectedEntities": []string{"France"},
	}, gdp.Inputs())

	both, _ := f.Chart("both")
	assert.NotContains(t, both.Inputs(), "minTime")
	assert.NotContains(t, both.Inputs(), "selectedEntities")
}

func TestSource(t *testing.T) {
	f, err := Parse([]byte(sample), "charts.hcl")
	require.NoError(t, err)

	src := f.Source()
	assert.Equal(t, []int{1, 2}, src.IDs())

	vars, err := src.Fetch(context.Background(), []int{1})
	require.NoError(t, err)
	assert.Equal(t, "$", vars[1].Unit)
	assert.Equal(t, chart.Point{Entity: "Chile", Year: 2001, Value: 5075.5}, vars[1].Points[1])
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts.hcl")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path)
	assert.Len(t, f.Charts, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestInvalidFiles(t *testing.T) {
	cases := map[string]string{
		"syntax": `chart "a" {`,
		"unknown type": `
variable "v" {
  id   = 1
  name = "v"
}
chart "a" {
  type      = "pie"
  variables = [1]
}`,
		"unknown reference": `
chart "a" {
  variables = [variable.nope]
}`,
		"unknown id": `
variable "v" {
  id   = 1
  name = "v"
}
chart "a" {
  variables = [7]
}`,
		"no variables": `
chart "a" {
  variables = []
}`,
		"missing variables": `
chart "a" {
  title = "x"
}`,
		"duplicate chart": `
variable "v" {
  id   = 1
  name = "v"
}
chart "a" {
  variables = [1]
}
chart "a" {
  variables = [1]
}`,
		"duplicate id": `
variable "v" {
  id   = 1
  name = "v"
}
variable "w" {
  id   = 1
  name = "w"
}`,
		"bounds": `
variable "v" {
  id   = 1
  name = "v"
}
chart "a" {
  variables = [1]
  min_time  = 2010
  max_time  = 2000
}`,
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src), "bad.hcl")
			assert.Error(t, err)
		})
	}
}

func TestUnknownTypeIsWrapped(t *testing.T) {
	_, err := Parse([]byte(`
variable "v" {
  id   = 1
  name = "v"
}
chart "a" {
  type      = "pie"
  variables = [1]
}`), "bad.hcl")
	assert.ErrorIs(t, err, chart.ErrUnknownType)
}
