package graph

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/chartflow/chartflow/log"
)

// cycle is the state of one scheduler pass.
type cycle struct {
	ctx     context.Context
	id      int64
	gen     int64
	done    func(error)
	changed map[string]bool
	order   []string
	cursor  int
	started time.Time
}

func (c *cycle) mark(name string) {
	if !c.changed[name] {
		c.changed[name] = true
		c.order = append(c.order, name)
	}
}

// Changed returns the names changed so far in the order they changed.
func (c *cycle) Changed() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Update submits a batch of input values and runs a cycle over the flow
// registry. When a cycle is already running the batch is queued and Update
// returns nil at once; queued batches run one at a time in submission order.
//
// done, when not nil, is called exactly once with the outcome of the cycle.
// Update itself returns the error of a cycle that failed before suspending on
// a barrier, and the submission errors ErrNoSuchInput and ErrDestroyed.
func (g *Graph) Update(ctx context.Context, inputs map[string]any, done func(error)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g.mu.Lock()
	if g.destroyed {
		g.mu.Unlock()
		return reject(ErrDestroyed, done)
	}
	for _, name := range sortedKeys(inputs) {
		if !g.isInput(name) {
			g.mu.Unlock()
			return reject(fmt.Errorf("%w: %s", ErrNoSuchInput, name), done)
		}
	}
	if g.updating {
		g.pending = append(g.pending, pendingUpdate{ctx: ctx, inputs: inputs, done: done})
		g.mu.Unlock()
		return nil
	}
	g.updating = true
	g.mu.Unlock()

	c, err := g.begin(pendingUpdate{ctx: ctx, inputs: inputs, done: done})
	return g.drive(c, err)
}

func reject(err error, done func(error)) error {
	if done != nil {
		done(err)
	}
	return err
}

// begin resolves defaults when needed, applies the submitted inputs and opens a
// cycle. The caller owns the updating flag.
func (g *Graph) begin(p pendingUpdate) (c *cycle, err error) {
	g.mu.Lock()
	var ctors map[string]func() any
	if len(g.lazy) > 0 {
		ctors = make(map[string]func() any, len(g.lazy))
		for name, ctor := range g.lazy {
			ctors[name] = ctor
		}
	}
	g.mu.Unlock()

	// Constructors may touch this graph, so they run unlocked.
	built := make(map[string]any, len(ctors))
	for _, name := range sortedKeys(ctors) {
		v, cerr := g.construct(name, ctors[name])
		if cerr != nil && err == nil {
			err = cerr
		}
		built[name] = v
	}

	g.mu.Lock()
	merged := make(map[string]any, len(g.defaults)+len(p.inputs))
	for name, v := range built {
		if _, ok := g.lazy[name]; !ok {
			continue
		}
		delete(g.lazy, name)
		g.defaults[name] = v
		merged[name] = v
		if child, ok := v.(*Graph); ok {
			g.adoptLocked(name, child)
		}
	}
	if !g.resolved {
		for name, v := range g.defaults {
			merged[name] = v
		}
		g.resolved = true
	}
	for name, v := range p.inputs {
		merged[name] = v
	}

	g.cycles++
	c = &cycle{
		ctx:     contextWithGraph(p.ctx, g),
		id:      g.cycles,
		gen:     g.gen,
		done:    p.done,
		changed: make(map[string]bool),
		started: time.Now(),
	}
	g.owner = c
	if g.env != nil {
		c.ctx = ContextWithEnv(c.ctx, g.env)
	}
	g.clean = false

	for _, name := range sortedKeys(merged) {
		v := merged[name]
		if v == Required {
			continue
		}
		old, ok := g.values[name]
		if !ok || !g.equal(old, v) {
			g.values[name] = v
			c.mark(name)
		}
	}
	g.mu.Unlock()

	g.notify(c.ctx, FlowEvent{Type: EventCycleStart, Cycle: c.id, Changed: c.Changed()})
	return c, err
}

func (g *Graph) construct(name string, ctor func() any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("initial value %s: %w", name, &PanicError{Value: r})
		}
	}()
	return ctor(), nil
}

// drive runs c and then every queued batch until the queue is empty or a
// barrier suspends a cycle. It returns the outcome of c when c finished
// without suspending.
func (g *Graph) drive(c *cycle, err error) error {
	var result error
	for first := true; c != nil; first = false {
		suspended := false
		if err == nil {
			suspended, err = g.walk(c)
		}
		if suspended {
			return result
		}
		g.finish(c, err)
		if first {
			result = err
		}
		c, err = g.next(c)
	}
	return result
}

// next pops the next queued batch, or clears the updating flag when the queue
// is empty. The flag stays set across the handoff. A cycle that no longer owns
// the flag, because it was suspended when the graph was cleaned, hands nothing
// off.
func (g *Graph) next(prev *cycle) (*cycle, error) {
	g.mu.Lock()
	if g.owner != prev {
		g.mu.Unlock()
		return nil, nil
	}
	if len(g.pending) == 0 {
		g.updating = false
		g.owner = nil
		g.mu.Unlock()
		return nil, nil
	}
	p := g.pending[0]
	g.pending = g.pending[1:]
	g.mu.Unlock()

	return g.begin(p)
}

func (g *Graph) finish(c *cycle, err error) {
	g.notify(c.ctx, FlowEvent{
		Type:     EventCycleEnd,
		Cycle:    c.id,
		Changed:  c.Changed(),
		Err:      err,
		Duration: time.Since(c.started),
	})
	if c.done != nil {
		c.done(err)
	}
}

// walk advances the cursor until the registry ends, a flow fails or a barrier
// suspends the cycle.
func (g *Graph) walk(c *cycle) (suspended bool, err error) {
	for {
		g.mu.Lock()
		if c.gen != g.gen {
			g.mu.Unlock()
			return false, ErrDropped
		}
		if c.cursor >= len(g.flows) {
			g.mu.Unlock()
			return false, nil
		}
		f := g.flows[c.cursor]
		c.cursor++
		args, fire, dormant := g.prepare(c, f)
		g.mu.Unlock()

		if !fire {
			if dormant {
				g.notify(c.ctx, FlowEvent{Type: EventFlowSkip, Cycle: c.id, Flow: f.spec.String(), Index: f.index})
			}
			continue
		}

		g.notify(c.ctx, FlowEvent{Type: EventFlowStart, Cycle: c.id, Flow: f.spec.String(), Index: f.index, Inputs: args.values})
		if f.debug {
			g.logInputs(c, f, args)
		}
		started := time.Now()

		if f.await == nil {
			res, ferr := g.call(c, f, args)
			if ferr == nil {
				ferr = g.apply(c, f, res, started)
			}
			if ferr != nil {
				return false, g.fail(c, f, ferr, started)
			}
			continue
		}

		b := &barrier{g: g, c: c, f: f, started: started}
		ferr := g.callAwait(c, f, args, b.complete)
		if ferr != nil {
			b.abandon()
			return false, g.fail(c, f, ferr, started)
		}
		if b.waiting() {
			g.notify(c.ctx, FlowEvent{Type: EventBarrierWait, Cycle: c.id, Flow: f.spec.String(), Index: f.index})
		}
		res, derr, fired := b.returned(func() { g.release(c) })
		if !fired {
			return true, nil
		}
		if derr == nil {
			derr = g.apply(c, f, res, started)
		}
		if derr != nil {
			return false, g.fail(c, f, derr, started)
		}
	}
}

// prepare decides whether f fires and collects its arguments. Callers hold g.mu.
func (g *Graph) prepare(c *cycle, f *flow) (args Args, fire, dormant bool) {
	touched := false
	for _, in := range f.spec.Inputs {
		if c.changed[in] {
			touched = true
			break
		}
	}
	if !touched {
		return args, false, false
	}

	args = Args{
		names:   f.spec.Inputs,
		values:  make([]any, len(f.spec.Inputs)),
		changed: make([]bool, len(f.spec.Inputs)),
	}
	for i, in := range f.spec.Inputs {
		v, ok := g.values[in]
		if !ok {
			return Args{}, false, true
		}
		args.values[i] = v
		args.changed[i] = c.changed[in]
	}
	return args, true, false
}

func (g *Graph) call(c *cycle, f *flow, args Args) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("flow %q panicked: %v\n%s", f.spec, r, debug.Stack())
			err = &PanicError{Value: r}
		}
	}()
	return f.fn(c.ctx, args)
}

func (g *Graph) callAwait(c *cycle, f *flow, args Args, done Done) (err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("flow %q panicked: %v\n%s", f.spec, r, debug.Stack())
			err = &PanicError{Value: r}
		}
	}()
	return f.await(c.ctx, args, done)
}

// apply stores the outputs of f and extends the change-set.
func (g *Graph) apply(c *cycle, f *flow, res Result, started time.Time) error {
	g.mu.Lock()
	if c.gen != g.gen {
		g.mu.Unlock()
		return ErrDropped
	}
	if !res.IsZero() {
		if len(res.values) != len(f.spec.Outputs) {
			g.mu.Unlock()
			return fmt.Errorf("%w: %d values for %d outputs", ErrOutputArity, len(res.values), len(f.spec.Outputs))
		}
		for i, name := range f.spec.Outputs {
			v := res.values[i]
			old, ok := g.values[name]
			switch res.kind {
			case resultEmit:
				if !ok || !g.equal(old, v) {
					g.values[name] = v
					c.mark(name)
				}
			case resultUpdated:
				g.values[name] = v
				c.mark(name)
			case resultStable:
				g.values[name] = v
			}
		}
	}
	g.mu.Unlock()

	if f.debug {
		g.logOutputs(c, f, res)
	}
	g.notify(c.ctx, FlowEvent{
		Type:     EventFlowComplete,
		Cycle:    c.id,
		Flow:     f.spec.String(),
		Index:    f.index,
		Outputs:  res.values,
		Duration: time.Since(started),
	})
	return nil
}

func (g *Graph) fail(c *cycle, f *flow, err error, started time.Time) error {
	if errors.Is(err, ErrDropped) {
		return err
	}
	ferr := &FlowError{Flow: f.spec.String(), Index: f.index, Err: err}
	g.notify(c.ctx, FlowEvent{
		Type:     EventFlowError,
		Cycle:    c.id,
		Flow:     f.spec.String(),
		Index:    f.index,
		Err:      ferr,
		Duration: time.Since(started),
	})
	return ferr
}

func (g *Graph) logInputs(c *cycle, f *flow, args Args) {
	if !log.LevelEnabled(g.logger, log.LogLevelInfo) {
		return
	}
	g.logger.Info("%s #%d flow %q", g.name, c.id, f.spec)
	for i, name := range args.names {
		g.logger.Info("  in  %s = %v (changed: %t)", name, args.values[i], args.changed[i])
	}
}

func (g *Graph) logOutputs(c *cycle, f *flow, res Result) {
	if !log.LevelEnabled(g.logger, log.LogLevelInfo) {
		return
	}
	if res.IsZero() {
		g.logger.Info("  %s #%d flow %q produced no output", g.name, c.id, f.spec)
		return
	}
	for i, name := range f.spec.Outputs {
		g.logger.Info("  out %s = %v (%s)", name, res.values[i], res)
	}
}

// barrier tracks one invocation of an await flow. The done continuation can
// run before the callback returns, after it, or on another goroutine.
type barrier struct {
	g       *Graph
	c       *cycle
	f       *flow
	started time.Time

	mu        sync.Mutex
	fired     bool
	back      bool
	abandoned bool
	res       Result
	err       error
}

func (b *barrier) complete(res Result, err error) {
	b.mu.Lock()
	if b.fired || b.abandoned {
		b.mu.Unlock()
		return
	}
	b.fired = true
	b.res, b.err = res, err
	resume := b.back
	b.mu.Unlock()

	if resume {
		b.g.resume(b)
	}
}

func (b *barrier) waiting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.fired && !b.abandoned
}

// returned records that the callback returned and reports whether done had
// already been called. Otherwise suspend runs before done can resume the
// cycle; it must not call back into the barrier.
func (b *barrier) returned(suspend func()) (Result, error, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.back = true
	if !b.fired {
		suspend()
	}
	return b.res, b.err, b.fired
}

func (b *barrier) abandon() {
	b.mu.Lock()
	b.abandoned = true
	b.mu.Unlock()
}

// resume continues a suspended cycle on the goroutine that completed the
// barrier, then drains the queue.
func (g *Graph) resume(b *barrier) {
	g.mu.Lock()
	if b.c.gen == g.gen {
		g.owner = b.c
	}
	g.mu.Unlock()

	g.notify(b.c.ctx, FlowEvent{Type: EventBarrierResume, Cycle: b.c.id, Flow: b.f.spec.String(), Index: b.f.index})

	err := b.err
	if err == nil {
		err = g.apply(b.c, b.f, b.res, b.started)
	}
	if err != nil {
		err = g.fail(b.c, b.f, err, b.started)
	}
	g.drive(b.c, err)
}

// release marks c as suspended. It keeps the updating flag but no longer runs
// on any goroutine.
func (g *Graph) release(c *cycle) {
	g.mu.Lock()
	if g.owner == c {
		g.owner = nil
	}
	g.mu.Unlock()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
