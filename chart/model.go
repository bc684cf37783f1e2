package chart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/chartflow/chartflow/graph"
)

// ErrNoSource is returned by the data flow when the model has no DataSource.
var ErrNoSource = errors.New("chart has no data source")

// Model is the property graph behind one chart. It owns a timeline child,
// built on first use, and a dismissible options menu.
type Model struct {
	*graph.Graph

	env    *Env
	events *graph.Emitter

	mu       sync.Mutex
	timeline *Timeline
}

// NewModel declares the chart properties and flows. Options are applied after
// the chart's own name, logger and environment.
func NewModel(env *Env, opts ...graph.Option) *Model {
	if env == nil {
		env = &Env{}
	}
	m := &Model{env: env, events: graph.NewEmitter()}

	base := []graph.Option{
		graph.WithName("chart"),
		graph.WithLogger(env.logger()),
		graph.WithEnv(env),
	}
	m.Graph = graph.New(append(base, opts...)...)

	m.Inputs(map[string]any{
		"type":             string(TypeLine),
		"title":            "",
		"subtitle":         "",
		"note":             "",
		"minTime":          nil,
		"maxTime":          nil,
		"selectedEntities": []string(nil),
	}).
		Requires("variables").
		Initial("timeline", m.buildTimeline)

	m.Flow(graph.MustSpec("chartType : type"), chartType).
		Flow(graph.MustSpec("subtitleHTML : subtitle"), markdownFlow).
		Flow(graph.MustSpec("subtitleText : subtitleHTML"), plainTextFlow).
		Flow(graph.MustSpec("noteHTML : note"), markdownFlow).
		FlowAwait(graph.MustSpec("data : variables"), fetchData).
		Flow(graph.MustSpec("years, availableEntities : data"), indexData).
		Flow(graph.MustSpec("entities : availableEntities, selectedEntities"), selectEntities).
		Flow(graph.MustSpec("timeline, years, minTime, maxTime"), forwardToTimeline)

	return m
}

func (m *Model) buildTimeline() any {
	tl := NewTimeline(m.env.Ticker, m.Logger())

	m.mu.Lock()
	m.timeline = tl
	m.mu.Unlock()
	return tl.Graph
}

// Timeline returns the timeline child, or nil before the first update.
func (m *Model) Timeline() *Timeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeline
}

// Events is the emitter the model's children listen to. Emitting "escape"
// closes an open menu.
func (m *Model) Events() *graph.Emitter {
	return m.events
}

// ToggleMenu opens the options menu, or closes it when it is open. It reports
// whether the menu is open afterwards.
func (m *Model) ToggleMenu(ctx context.Context) bool {
	factory := func() *graph.Graph {
		return graph.New(graph.WithName("menu"), graph.WithLogger(m.Logger())).
			Inputs(map[string]any{"open": false})
	}

	_, open := m.ToggleChild("menu", factory, func(menu *graph.Graph) {
		menu.ListenTo(m.events, "escape", func(any) {
			if m.MenuOpen() {
				m.ToggleMenu(ctx)
			}
		})
		if err := menu.Update(ctx, map[string]any{"open": true}, nil); err != nil {
			m.Logger().Warn("%s: failed to open menu: %v", m.Name(), err)
		}
	})
	return open
}

// MenuOpen reports whether the options menu is open.
func (m *Model) MenuOpen() bool {
	menu, ok := m.Child("menu")
	if !ok || menu.IsClean() || menu.IsDestroyed() {
		return false
	}
	open, _ := graph.Value[bool](menu, "open")
	return open
}

// Close destroys the model, its timeline and its menu.
func (m *Model) Close() {
	m.Destroy()
}

func chartType(_ context.Context, in graph.Args) (graph.Result, error) {
	name, ok := in.Value(0).(string)
	if !ok {
		return graph.Result{}, fmt.Errorf("%w: %v", ErrUnknownType, in.Value(0))
	}
	t, err := ParseType(name)
	if err != nil {
		return graph.Result{}, err
	}
	return graph.Emit(t), nil
}

func markdownFlow(_ context.Context, in graph.Args) (graph.Result, error) {
	text, _ := in.Value(0).(string)
	return graph.Emit(RenderMarkdown(text)), nil
}

func plainTextFlow(_ context.Context, in graph.Args) (graph.Result, error) {
	text, err := PlainText(graph.Get[string](in, 0))
	if err != nil {
		return graph.Result{}, err
	}
	return graph.Emit(text), nil
}

// fetchData loads the variables on a separate goroutine. Later flows wait for
// it through the barrier.
func fetchData(ctx context.Context, in graph.Args, done graph.Done) error {
	env, ok := graph.EnvAs[*Env](ctx)
	if !ok || env.Source == nil {
		return ErrNoSource
	}
	ids, err := variableIDs(in.Value(0))
	if err != nil {
		return err
	}

	go func() {
		data, err := env.Source.Fetch(ctx, ids)
		if err != nil {
			done(graph.Result{}, fmt.Errorf("failed to fetch variables %v: %w", ids, err))
			return
		}
		done(graph.Emit(data), nil)
	}()
	return nil
}

func variableIDs(v any) ([]int, error) {
	switch ids := v.(type) {
	case []int:
		return ids, nil
	case []any:
		out := make([]int, 0, len(ids))
		for _, id := range ids {
			n, ok := asYear(id)
			if !ok {
				return nil, fmt.Errorf("invalid variable id %v", id)
			}
			out = append(out, n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("invalid variables %T", v)
}

func indexData(_ context.Context, in graph.Args) (graph.Result, error) {
	data := graph.Get[map[int]*Variable](in, 0)

	yearSet := make(map[int]bool)
	entitySet := make(map[string]bool)
	for _, v := range data {
		for _, p := range v.Points {
			yearSet[p.Year] = true
			entitySet[p.Entity] = true
		}
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	entities := make([]string, 0, len(entitySet))
	for e := range entitySet {
		entities = append(entities, e)
	}
	sort.Strings(entities)

	return graph.Emit(years, entities), nil
}

// selectEntities keeps the selected entities that have data, in selection
// order. Without a selection every available entity is shown.
func selectEntities(_ context.Context, in graph.Args) (graph.Result, error) {
	available := graph.Get[[]string](in, 0)
	selected := graph.Get[[]string](in, 1)
	if selected == nil {
		return graph.Emit(append([]string(nil), available...)), nil
	}

	has := make(map[string]bool, len(available))
	for _, e := range available {
		has[e] = true
	}
	entities := make([]string, 0, len(selected))
	for _, e := range selected {
		if has[e] {
			entities = append(entities, e)
		}
	}
	return graph.Emit(entities), nil
}

func forwardToTimeline(ctx context.Context, in graph.Args) (graph.Result, error) {
	tl := graph.Get[*graph.Graph](in, 0)
	if tl == nil {
		return graph.NoOutput(), nil
	}
	err := tl.Update(ctx, map[string]any{
		"years":     in.Value(1),
		"startTime": in.Value(2),
		"endTime":   in.Value(3),
	}, nil)
	if err != nil {
		return graph.Result{}, fmt.Errorf("failed to update timeline: %w", err)
	}
	return graph.NoOutput(), nil
}
