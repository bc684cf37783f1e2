package graph

import (
	"fmt"
	"strings"
)

// Exporter renders the flow registry of a graph as a diagram
type Exporter struct {
	graph *Graph
}

// NewExporter creates a new exporter for the given graph
func NewExporter(graph *Graph) *Exporter {
	return &Exporter{graph: graph}
}

// MermaidOptions defines configuration for Mermaid diagram generation
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string
}

func flowID(f FlowInfo) string {
	return fmt.Sprintf("flow%d", f.Index)
}

func flowLabel(f FlowInfo) string {
	label := fmt.Sprintf("#%d %s", f.Index, f.Spec)
	if f.Await {
		label += " (await)"
	}
	return label
}

// DrawMermaid generates a Mermaid diagram of the flow registry
func (ge *Exporter) DrawMermaid() string {
	return ge.DrawMermaidWithOptions(MermaidOptions{
		Direction: "TD",
	})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options.
// Properties are drawn as rounded nodes, flows as boxes; barrier flows are
// highlighted.
func (ge *Exporter) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	sb.WriteString(fmt.Sprintf("flowchart %s\n", direction))

	for _, name := range ge.graph.DeclaredInputs() {
		sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", name, name))
		sb.WriteString(fmt.Sprintf("    style %s fill:#90EE90\n", name))
	}

	flows := ge.graph.Flows()
	for _, f := range flows {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", flowID(f), flowLabel(f)))
		for _, in := range f.Spec.Inputs {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", in, flowID(f)))
		}
		for _, out := range f.Spec.Outputs {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", flowID(f), out))
		}
		if f.Await {
			sb.WriteString(fmt.Sprintf("    style %s fill:#FFFFE0,stroke:#333,stroke-dasharray: 5 5\n", flowID(f)))
		}
	}

	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the flow registry
func (ge *Exporter) DrawDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    node [shape=box];\n")

	for _, name := range ge.graph.DeclaredInputs() {
		sb.WriteString(fmt.Sprintf("    %q [shape=ellipse, style=filled, fillcolor=lightgreen];\n", name))
	}

	for _, f := range ge.graph.Flows() {
		style := ""
		if f.Await {
			style = ", style=dashed"
		}
		sb.WriteString(fmt.Sprintf("    %s [label=%q%s];\n", flowID(f), flowLabel(f), style))
		for _, in := range f.Spec.Inputs {
			sb.WriteString(fmt.Sprintf("    %q -> %s;\n", in, flowID(f)))
		}
		for _, out := range f.Spec.Outputs {
			sb.WriteString(fmt.Sprintf("    %s -> %q;\n", flowID(f), out))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// DrawASCII lists the flows in registration order, which is the order the
// scheduler runs them
func (ge *Exporter) DrawASCII() string {
	flows := ge.graph.Flows()
	if len(flows) == 0 {
		return "No flows registered\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s:\n", ge.graph.Name()))
	sb.WriteString(fmt.Sprintf("├── inputs: %s\n", strings.Join(ge.graph.DeclaredInputs(), ", ")))

	for i, f := range flows {
		connector := "├──"
		prefix := "│   "
		if i == len(flows)-1 {
			connector = "└──"
			prefix = "    "
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", connector, flowLabel(f)))
		sb.WriteString(fmt.Sprintf("%s└── reads %s", prefix, strings.Join(f.Spec.Inputs, ", ")))
		if len(f.Spec.Outputs) > 0 {
			sb.WriteString(fmt.Sprintf(", writes %s", strings.Join(f.Spec.Outputs, ", ")))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// Draw renders the diagram in the named format: mermaid, dot or ascii.
func (ge *Exporter) Draw(format string) (string, error) {
	switch strings.ToLower(format) {
	case "mermaid":
		return ge.DrawMermaid(), nil
	case "dot":
		return ge.DrawDOT(), nil
	case "ascii":
		return ge.DrawASCII(), nil
	default:
		return "", fmt.Errorf("unknown diagram format %q", format)
	}
}
