package graph

type resultKind int

const (
	resultNone resultKind = iota
	resultEmit
	resultUpdated
	resultStable
)

// Result carries the output values of a flow together with how they should be
// treated by change detection.
type Result struct {
	kind   resultKind
	values []any
}

// Emit returns outputs that are marked changed only when they differ from the
// stored values.
func Emit(values ...any) Result {
	return Result{kind: resultEmit, values: values}
}

// Updated returns outputs that are always marked changed. Use it for values that
// were mutated in place or hold handles that cannot be compared.
func Updated(values ...any) Result {
	return Result{kind: resultUpdated, values: values}
}

// Stable returns outputs that are stored without being marked changed.
func Stable(values ...any) Result {
	return Result{kind: resultStable, values: values}
}

// NoOutput is the result of a flow that leaves its outputs untouched.
func NoOutput() Result {
	return Result{}
}

// IsZero reports whether the result carries no outputs.
func (r Result) IsZero() bool {
	return r.kind == resultNone
}

// Values returns the output values in declared order.
func (r Result) Values() []any {
	return r.values
}

func (r Result) String() string {
	switch r.kind {
	case resultEmit:
		return "emit"
	case resultUpdated:
		return "updated"
	case resultStable:
		return "stable"
	default:
		return "none"
	}
}

// Args holds the current values of a flow's inputs in declared order.
type Args struct {
	names   []string
	values  []any
	changed []bool
}

// Len returns the number of inputs.
func (a Args) Len() int {
	return len(a.values)
}

// Name returns the name of input i.
func (a Args) Name(i int) string {
	return a.names[i]
}

// Value returns the value of input i.
func (a Args) Value(i int) any {
	return a.values[i]
}

// Changed reports whether input i is in the change-set of the running cycle.
func (a Args) Changed(i int) bool {
	return a.changed[i]
}

// Lookup returns the value of the named input.
func (a Args) Lookup(name string) (any, bool) {
	for i, n := range a.names {
		if n == name {
			return a.values[i], true
		}
	}
	return nil, false
}

// Values returns a copy of all input values.
func (a Args) Values() []any {
	out := make([]any, len(a.values))
	copy(out, a.values)
	return out
}

// Get returns input i as T, or the zero T when the value has another type.
func Get[T any](a Args, i int) T {
	v, _ := a.values[i].(T)
	return v
}

// Lookup returns the named input as T.
func Lookup[T any](a Args, name string) (T, bool) {
	v, ok := a.Lookup(name)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
