package graph

import (
	"fmt"
	"strings"
	"unicode"
)

// Spec declares the ordered output and input property names of a flow.
//
// Specs are written either with the builder
//
//	graph.In("a", "b").Out("c")
//
// or in the short textual form accepted by ParseSpec:
//
//	"c : a, b"
type Spec struct {
	Outputs []string
	Inputs  []string
}

// In starts a spec reading the given inputs.
func In(inputs ...string) Spec {
	return Spec{Inputs: inputs}
}

// Out returns a copy of s writing the given outputs.
func (s Spec) Out(outputs ...string) Spec {
	s.Outputs = outputs
	return s
}

// ParseSpec parses "out1, out2 : in1, in2" or "in1, in2".
func ParseSpec(text string) (Spec, error) {
	var spec Spec
	outputs, inputs, found := strings.Cut(text, ":")
	if !found {
		inputs, outputs = outputs, ""
	} else if strings.Contains(inputs, ":") {
		return spec, fmt.Errorf("%w: %q has more than one ':'", ErrInvalidSpec, text)
	}

	spec.Outputs = splitNames(outputs)
	spec.Inputs = splitNames(inputs)
	if err := spec.Validate(); err != nil {
		return Spec{}, fmt.Errorf("%w (in %q)", err, text)
	}
	return spec, nil
}

// MustSpec is like ParseSpec but panics on error.
func MustSpec(text string) Spec {
	spec, err := ParseSpec(text)
	if err != nil {
		panic(err)
	}
	return spec
}

func splitNames(list string) []string {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Validate checks that the spec has at least one input, that every name is a
// plain identifier and that no name repeats on the same side.
func (s Spec) Validate() error {
	if len(s.Inputs) == 0 {
		return fmt.Errorf("%w: no inputs", ErrInvalidSpec)
	}
	if err := validateNames("input", s.Inputs); err != nil {
		return err
	}
	return validateNames("output", s.Outputs)
}

func validateNames(side string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%w: empty %s name", ErrInvalidSpec, side)
		}
		if strings.IndexFunc(name, func(r rune) bool {
			return unicode.IsSpace(r) || r == ':' || r == ','
		}) >= 0 {
			return fmt.Errorf("%w: bad %s name %q", ErrInvalidSpec, side, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate %s %q", ErrInvalidSpec, side, name)
		}
		seen[name] = true
	}
	return nil
}

// String renders the spec in its textual form.
func (s Spec) String() string {
	in := strings.Join(s.Inputs, ", ")
	if len(s.Outputs) == 0 {
		return in
	}
	return strings.Join(s.Outputs, ", ") + " : " + in
}
