package graph

// ToggleChild opens or closes the child graph stored under key.
//
// Without a child, factory builds one and fn is called with it. A child that
// was cleaned is reopened by calling fn again. An active child is cleaned.
// The returned flag reports whether the child is open afterwards.
func (g *Graph) ToggleChild(key string, factory func() *Graph, fn func(*Graph)) (*Graph, bool) {
	g.mu.Lock()
	child, ok := g.children[key]
	g.mu.Unlock()

	if ok && child.IsDestroyed() {
		ok = false
	}

	if !ok {
		child = factory()
		g.AddChild(key, child)
		if fn != nil {
			fn(child)
		}
		return child, true
	}

	if child.IsClean() {
		child.reopen()
		if fn != nil {
			fn(child)
		}
		return child, true
	}

	child.Clean()
	return child, false
}

func (g *Graph) reopen() {
	g.mu.Lock()
	g.clean = false
	g.mu.Unlock()
}

// AddChild stores child under key. A child already stored under key is
// destroyed first.
func (g *Graph) AddChild(key string, child *Graph) {
	g.mu.Lock()
	prev := g.children[key]
	g.adoptLocked(key, child)
	g.mu.Unlock()

	if prev != nil && prev != child {
		prev.mu.Lock()
		prev.parent = nil
		prev.mu.Unlock()
		prev.Destroy()
	}
}

// adoptLocked records child under key. Callers hold g.mu.
func (g *Graph) adoptLocked(key string, child *Graph) {
	g.children[key] = child
	child.mu.Lock()
	child.parent = g
	child.mu.Unlock()
}

func (g *Graph) detach(child *Graph) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for key, c := range g.children {
		if c == child {
			delete(g.children, key)
		}
	}
}

// Child returns the child stored under key.
func (g *Graph) Child(key string) (*Graph, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	child, ok := g.children[key]
	return child, ok
}

// Children returns the child keys in sorted order.
func (g *Graph) Children() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return sortedKeys(g.children)
}

// Parent returns the owning graph, or nil.
func (g *Graph) Parent() *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.parent
}
