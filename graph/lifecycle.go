package graph

// ListenTo subscribes handler to event on target and records the binding so
// Clean can remove it.
func (g *Graph) ListenTo(target EventTarget, event string, handler EventHandler) *Graph {
	off := target.On(event, handler)

	g.mu.Lock()
	g.bindings = append(g.bindings, binding{target: target, event: event, off: off})
	g.mu.Unlock()
	return g
}

// Bindings returns the number of recorded external subscriptions.
func (g *Graph) Bindings() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.bindings)
}

// OnBeforeClean registers a hook run at the start of Clean.
func (g *Graph) OnBeforeClean(fn func()) *Graph {
	g.mu.Lock()
	g.beforeClean = append(g.beforeClean, fn)
	g.mu.Unlock()
	return g
}

// OnAfterClean registers a hook run at the end of Clean.
func (g *Graph) OnAfterClean(fn func()) *Graph {
	g.mu.Lock()
	g.afterClean = append(g.afterClean, fn)
	g.mu.Unlock()
	return g
}

// Clean tears the graph down: every stored value is cleared, external
// subscriptions are removed, children are cleaned and queued updates are
// dropped. A running or suspended cycle stops at its next step; updates
// submitted while a running cycle unwinds start once it has returned. Declarations
// are kept, so a clean graph can run a full cycle again. Lazily built defaults
// are reused, never rebuilt.
func (g *Graph) Clean() {
	g.mu.Lock()
	before := append([]func(){}, g.beforeClean...)
	g.mu.Unlock()

	for _, fn := range before {
		fn()
	}

	g.mu.Lock()
	g.values = make(map[string]any)
	pending := g.pending
	g.pending = nil
	// A cycle still running on some goroutine keeps the flag until it has
	// unwound, so updates submitted meanwhile queue behind it.
	if g.owner == nil {
		g.updating = false
	}
	g.resolved = false
	g.gen++
	bindings := g.bindings
	g.bindings = nil
	children := make([]*Graph, 0, len(g.children))
	for _, key := range sortedKeys(g.children) {
		children = append(children, g.children[key])
	}
	g.clean = true
	after := append([]func(){}, g.afterClean...)
	g.mu.Unlock()

	for _, b := range bindings {
		b.off()
	}
	for _, child := range children {
		child.Clean()
	}
	for _, p := range pending {
		if p.done != nil {
			p.done(ErrDropped)
		}
	}
	for _, fn := range after {
		fn()
	}
}

// IsClean reports whether the graph has been cleaned and not used since.
func (g *Graph) IsClean() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clean
}

// Destroy cleans the graph, detaches it from its parent and releases its flows
// and children. Later updates fail with ErrDestroyed.
func (g *Graph) Destroy() {
	g.Clean()

	g.mu.Lock()
	if g.destroyed {
		g.mu.Unlock()
		return
	}
	g.destroyed = true
	g.flows = nil
	children := g.children
	g.children = make(map[string]*Graph)
	parent := g.parent
	g.parent = nil
	g.mu.Unlock()

	for _, child := range children {
		child.Destroy()
	}
	if parent != nil {
		parent.detach(g)
	}
}

// IsDestroyed reports whether Destroy was called.
func (g *Graph) IsDestroyed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.destroyed
}
