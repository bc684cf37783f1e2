package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisualization(t *testing.T) {
	noop := func(context.Context, Args) (Result, error) { return NoOutput(), nil }
	g := quiet(WithName("chart")).
		Inputs(map[string]any{"variables": nil}).
		Flow(MustSpec("subtitleHTML : subtitle"), noop).
		FlowAwait(MustSpec("data : variables"), func(context.Context, Args, Done) error { return nil }).
		Flow(MustSpec("years : data"), noop)

	exporter := NewExporter(g)

	mermaid := exporter.DrawMermaid()
	assert.Contains(t, mermaid, "flowchart TD")
	assert.Contains(t, mermaid, `variables(["variables"])`)
	assert.Contains(t, mermaid, "variables --> flow1")
	assert.Contains(t, mermaid, "flow1 --> data")
	assert.Contains(t, mermaid, `flow1["#1 data : variables (await)"]`)
	assert.Contains(t, mermaid, "style flow1 fill:#FFFFE0")

	mermaidLR := exporter.DrawMermaidWithOptions(MermaidOptions{Direction: "LR"})
	assert.Contains(t, mermaidLR, "flowchart LR")

	dot := exporter.DrawDOT()
	assert.Contains(t, dot, "digraph G {")
	assert.Contains(t, dot, `"data" -> flow2;`)
	assert.Contains(t, dot, `flow1 [label="#1 data : variables (await)", style=dashed];`)

	ascii := exporter.DrawASCII()
	assert.Contains(t, ascii, "chart:")
	assert.Contains(t, ascii, "├── inputs: variables")
	assert.Contains(t, ascii, "└── #2 years : data")
	assert.Contains(t, ascii, "reads variables, writes data")

	out, err := exporter.Draw("DOT")
	require.NoError(t, err)
	assert.Equal(t, dot, out)
	_, err = exporter.Draw("svg")
	assert.Error(t, err)
}

func TestVisualizationEmpty(t *testing.T) {
	assert.Equal(t, "No flows registered\n", NewExporter(quiet()).DrawASCII())
}
