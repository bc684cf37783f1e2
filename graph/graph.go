package graph

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/chartflow/chartflow/log"
)

type required struct{}

func (required) String() string { return "<required>" }

// Required marks a property that has no default. It must be supplied by an
// update before any flow reading it can fire.
var Required any = required{}

// FlowFunc is the callback of a synchronous flow. It receives the current values
// of the flow inputs and returns the flow outputs.
type FlowFunc func(ctx context.Context, in Args) (Result, error)

// Done completes a barrier flow. Only the first call has any effect.
type Done func(Result, error)

// AwaitFunc is the callback of a barrier flow. Later flows run only after done
// has been called, from any goroutine. A non-nil return fails the flow at once.
type AwaitFunc func(ctx context.Context, in Args, done Done) error

// EqualFunc reports whether two property values are equal.
type EqualFunc func(a, b any) bool

type flow struct {
	index int
	spec  Spec
	fn    FlowFunc
	await AwaitFunc
	debug bool
}

// FlowInfo describes a registered flow.
type FlowInfo struct {
	Index int
	Spec  Spec
	Await bool
	Debug bool
}

type pendingUpdate struct {
	ctx    context.Context
	inputs map[string]any
	done   func(error)
}

type binding struct {
	target EventTarget
	event  string
	off    func()
}

// Graph is one instance of the dataflow engine: a property store, an ordered
// flow registry and the scheduler running update cycles over them.
type Graph struct {
	id     string
	name   string
	logger log.Logger
	env    any
	equal  EqualFunc

	lmu       sync.RWMutex
	listeners []FlowListener

	mu        sync.Mutex
	defaults  map[string]any
	lazy      map[string]func() any
	initial   map[string]bool
	inputs    []string
	outputs   map[string]bool
	values    map[string]any
	flows     []*flow
	resolved  bool
	updating  bool
	owner     *cycle
	pending   []pendingUpdate
	cycles    int64
	gen       int64
	clean     bool
	destroyed bool

	parent      *Graph
	children    map[string]*Graph
	bindings    []binding
	beforeClean []func()
	afterClean  []func()
}

// Option configures a Graph.
type Option func(*Graph)

// WithName sets the name used in logs, traces and snapshots.
func WithName(name string) Option {
	return func(g *Graph) {
		g.name = name
	}
}

// WithID overrides the generated graph ID.
func WithID(id string) Option {
	return func(g *Graph) {
		g.id = id
	}
}

// WithLogger sets the logger used for debug flows and listener failures.
func WithLogger(logger log.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// WithEnv sets the environment handed to every flow through its context.
func WithEnv(env any) Option {
	return func(g *Graph) {
		g.env = env
	}
}

// WithEqual replaces reflect.DeepEqual as the change check.
func WithEqual(equal EqualFunc) Option {
	return func(g *Graph) {
		g.equal = equal
	}
}

// WithListener registers a flow listener.
func WithListener(l FlowListener) Option {
	return func(g *Graph) {
		g.listeners = append(g.listeners, l)
	}
}

// WithTracer records cycle and flow spans on tracer.
func WithTracer(tracer *Tracer) Option {
	return WithListener(tracer)
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		id:       uuid.NewString(),
		name:     "graph",
		logger:   log.GetDefaultLogger(),
		equal:    reflect.DeepEqual,
		defaults: make(map[string]any),
		lazy:     make(map[string]func() any),
		initial:  make(map[string]bool),
		outputs:  make(map[string]bool),
		values:   make(map[string]any),
		children: make(map[string]*Graph),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = &log.NoOpLogger{}
	}
	return g
}

// ID returns the graph ID.
func (g *Graph) ID() string { return g.id }

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Env returns the environment set with WithEnv.
func (g *Graph) Env() any { return g.env }

// Logger returns the graph logger.
func (g *Graph) Logger() log.Logger { return g.logger }

// Inputs declares properties with default values. Declaring a name again
// replaces its default.
func (g *Graph) Inputs(defaults map[string]any) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, name := range sortedKeys(defaults) {
		g.declareInput(name)
		delete(g.lazy, name)
		delete(g.initial, name)
		g.defaults[name] = defaults[name]
	}
	return g
}

// Requires declares properties without a default.
func (g *Graph) Requires(names ...string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, name := range names {
		g.declareInput(name)
		delete(g.lazy, name)
		delete(g.initial, name)
		g.defaults[name] = Required
	}
	return g
}

// Initial declares a property whose default is built by ctor the first time
// defaults are resolved. The value is kept for the life of the graph. A *Graph
// built this way becomes a child and is torn down with its owner.
func (g *Graph) Initial(name string, ctor func() any) *Graph {
	if err := validateNames("input", []string{name}); err != nil {
		panic(err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.declareInput(name)
	delete(g.defaults, name)
	g.lazy[name] = ctor
	g.initial[name] = true
	return g
}

// declareInput records name in declaration order. Callers hold g.mu.
func (g *Graph) declareInput(name string) {
	if _, ok := g.defaults[name]; ok {
		return
	}
	if _, ok := g.lazy[name]; ok {
		return
	}
	g.inputs = append(g.inputs, name)
}

// isInput reports whether name was declared as an input. Callers hold g.mu.
func (g *Graph) isInput(name string) bool {
	if _, ok := g.defaults[name]; ok {
		return true
	}
	_, ok := g.lazy[name]
	return ok
}

// Flow registers a synchronous flow.
func (g *Graph) Flow(spec Spec, fn FlowFunc) *Graph {
	return g.register(spec, fn, nil, false)
}

// FlowDebug registers a synchronous flow that logs its inputs and outputs.
func (g *Graph) FlowDebug(spec Spec, fn FlowFunc) *Graph {
	return g.register(spec, fn, nil, true)
}

// FlowAwait registers a barrier flow.
func (g *Graph) FlowAwait(spec Spec, fn AwaitFunc) *Graph {
	return g.register(spec, nil, fn, false)
}

// FlowAwaitDebug registers a barrier flow that logs its inputs and outputs.
func (g *Graph) FlowAwaitDebug(spec Spec, fn AwaitFunc) *Graph {
	return g.register(spec, nil, fn, true)
}

func (g *Graph) register(spec Spec, fn FlowFunc, await AwaitFunc, debug bool) *Graph {
	if err := spec.Validate(); err != nil {
		panic(fmt.Sprintf("graph: cannot register flow %q: %v", spec, err))
	}
	if fn == nil && await == nil {
		panic(fmt.Sprintf("graph: flow %q has no callback", spec))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, out := range spec.Outputs {
		g.outputs[out] = true
	}
	g.flows = append(g.flows, &flow{
		index: len(g.flows),
		spec:  spec,
		fn:    fn,
		await: await,
		debug: debug,
	})
	return g
}

// Flows describes the registered flows in registration order.
func (g *Graph) Flows() []FlowInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	infos := make([]FlowInfo, len(g.flows))
	for i, f := range g.flows {
		infos[i] = FlowInfo{Index: f.index, Spec: f.spec, Await: f.await != nil, Debug: f.debug}
	}
	return infos
}

// DeclaredInputs returns the declared input names in declaration order.
func (g *Graph) DeclaredInputs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, len(g.inputs))
	copy(out, g.inputs)
	return out
}

// Get returns the current value of a property.
func (g *Graph) Get(name string) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, ok := g.values[name]
	return v, ok
}

// Has reports whether a property has been populated.
func (g *Graph) Has(name string) bool {
	_, ok := g.Get(name)
	return ok
}

// Value returns the current value of a property as T.
func Value[T any](g *Graph, name string) (T, error) {
	var zero T
	v, ok := g.Get(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissingDependency, name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, not %T", ErrTypeMismatch, name, v, zero)
	}
	return t, nil
}

// Snapshot returns a copy of all populated property values.
func (g *Graph) Snapshot() map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]any, len(g.values))
	for k, v := range g.values {
		out[k] = v
	}
	return out
}

// Now calls fn synchronously with the current values of the spec inputs.
// It fails if any of them has not been populated.
func (g *Graph) Now(spec Spec, fn func(Args)) error {
	g.mu.Lock()
	args := Args{
		names:   spec.Inputs,
		values:  make([]any, len(spec.Inputs)),
		changed: make([]bool, len(spec.Inputs)),
	}
	for i, name := range spec.Inputs {
		v, ok := g.values[name]
		if !ok {
			g.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrMissingDependency, name)
		}
		args.values[i] = v
	}
	g.mu.Unlock()

	fn(args)
	return nil
}

// Updating reports whether a cycle is running or suspended on a barrier.
func (g *Graph) Updating() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.updating
}

// Pending returns the number of queued updates.
func (g *Graph) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Cycles returns the number of cycles started so far.
func (g *Graph) Cycles() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cycles
}

// CheckOrder reports flow inputs that are neither declared inputs nor outputs
// of an earlier flow. The scheduler never calls it.
func (g *Graph) CheckOrder() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	known := make(map[string]bool, len(g.inputs))
	for _, name := range g.inputs {
		known[name] = true
	}

	var errs []error
	for _, f := range g.flows {
		for _, in := range f.spec.Inputs {
			if !known[in] {
				errs = append(errs, fmt.Errorf("%w: flow %d (%s) reads %q", ErrUnorderedInput, f.index, f.spec, in))
			}
		}
		for _, out := range f.spec.Outputs {
			known[out] = true
		}
	}
	return errors.Join(errs...)
}
