package chart

import (
	"context"

	"github.com/chartflow/chartflow/graph"
	"github.com/chartflow/chartflow/log"
)

// Timeline is the year range control of a chart. It keeps start and end inside
// the available years and, while playing, moves end forward one year per tick.
type Timeline struct {
	*graph.Graph
	ticker graph.EventTarget
}

// NewTimeline builds a timeline graph. ticker may be nil, in which case Play
// only records the playing state.
func NewTimeline(ticker graph.EventTarget, logger log.Logger) *Timeline {
	tl := &Timeline{ticker: ticker}
	tl.Graph = graph.New(graph.WithName("timeline"), graph.WithLogger(logger)).
		Inputs(map[string]any{
			"years":     []int(nil),
			"startTime": nil,
			"endTime":   nil,
			"playing":   false,
		}).
		Flow(graph.MustSpec("start, end : years, startTime, endTime"), clampRange)
	return tl
}

// clampRange expects years sorted ascending. Unset bounds default to the
// first and last year.
func clampRange(_ context.Context, in graph.Args) (graph.Result, error) {
	years := graph.Get[[]int](in, 0)
	if len(years) == 0 {
		return graph.NoOutput(), nil
	}
	first, last := years[0], years[len(years)-1]

	start, end := first, last
	if v, ok := asYear(in.Value(1)); ok {
		start = clamp(v, first, last)
	}
	if v, ok := asYear(in.Value(2)); ok {
		end = clamp(v, first, last)
	}
	if start > end {
		start = end
	}
	return graph.Emit(start, end), nil
}

// asYear accepts ints and the float64 form numbers take after a JSON round trip.
func asYear(v any) (int, bool) {
	switch y := v.(type) {
	case int:
		return y, true
	case int64:
		return int(y), true
	case float64:
		return int(y), true
	}
	return 0, false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Range returns the current start and end years.
func (tl *Timeline) Range() (start, end int, ok bool) {
	start, err := graph.Value[int](tl.Graph, "start")
	if err != nil {
		return 0, 0, false
	}
	end, err = graph.Value[int](tl.Graph, "end")
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// Playing reports whether playback is on.
func (tl *Timeline) Playing() bool {
	playing, _ := graph.Value[bool](tl.Graph, "playing")
	return playing
}

// Play starts playback. Playing from the last year restarts at start.
func (tl *Timeline) Play(ctx context.Context) error {
	if tl.IsDestroyed() {
		return graph.ErrDestroyed
	}
	if tl.ticker != nil && tl.Bindings() == 0 {
		tl.ListenTo(tl.ticker, "tick", tl.tick)
	}

	inputs := map[string]any{"playing": true}
	years, _ := graph.Value[[]int](tl.Graph, "years")
	if start, end, ok := tl.Range(); ok && len(years) > 0 && end == years[len(years)-1] {
		inputs["endTime"] = start
	}
	return tl.Update(ctx, inputs, nil)
}

// Pause stops playback.
func (tl *Timeline) Pause(ctx context.Context) error {
	return tl.Update(ctx, map[string]any{"playing": false}, nil)
}

func (tl *Timeline) tick(any) {
	if !tl.Playing() {
		return
	}
	ctx := context.Background()

	years, _ := graph.Value[[]int](tl.Graph, "years")
	_, end, ok := tl.Range()
	if !ok {
		return
	}
	for _, y := range years {
		if y > end {
			_ = tl.Update(ctx, map[string]any{"endTime": y}, nil)
			return
		}
	}
	_ = tl.Update(ctx, map[string]any{"playing": false}, nil)
}
