package chart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/chartflow/chartflow/graph"
	"github.com/chartflow/chartflow/log"
)

// Type is the kind of chart being drawn
type Type string

const (
	TypeLine        Type = "line"
	TypeScatter     Type = "scatter"
	TypeBar         Type = "bar"
	TypeStackedArea Type = "stacked-area"
	TypeMap         Type = "map"
)

// ErrUnknownType is returned by ParseType for names that are not a chart type.
var ErrUnknownType = errors.New("unknown chart type")

// ErrUnknownVariable is returned by a DataSource asked for an ID it does not hold.
var ErrUnknownVariable = errors.New("unknown variable")

// Types returns every chart type.
func Types() []Type {
	return []Type{TypeLine, TypeScatter, TypeBar, TypeStackedArea, TypeMap}
}

// ParseType converts a name such as "stacked-area" into a Type. Matching
// ignores case and surrounding spaces.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range Types() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Point is one observation of a variable.
type Point struct {
	Entity string  `json:"entity"`
	Year   int     `json:"year"`
	Value  float64 `json:"value"`
}

// Variable is a series of observations across entities and years.
type Variable struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Unit   string  `json:"unit,omitempty"`
	Points []Point `json:"points"`
}

// DataSource loads variables by ID.
type DataSource interface {
	Fetch(ctx context.Context, ids []int) (map[int]*Variable, error)
}

// StaticSource serves variables held in memory.
type StaticSource struct {
	mu   sync.RWMutex
	vars map[int]*Variable
}

var _ DataSource = (*StaticSource)(nil)

// NewStaticSource creates a source holding vars
func NewStaticSource(vars ...*Variable) *StaticSource {
	s := &StaticSource{vars: make(map[int]*Variable)}
	for _, v := range vars {
		s.Add(v)
	}
	return s
}

// Add stores v, replacing any variable with the same ID
func (s *StaticSource) Add(v *Variable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[v.ID] = v
}

// IDs returns the stored variable IDs in ascending order
func (s *StaticSource) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, len(s.vars))
	for id := range s.vars {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Fetch implements DataSource. An ID that is not stored fails the whole call.
func (s *StaticSource) Fetch(ctx context.Context, ids []int) (map[int]*Variable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int]*Variable, len(ids))
	for _, id := range ids {
		v, ok := s.vars[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownVariable, id)
		}
		out[id] = v
	}
	return out, nil
}

// Env carries the services a chart model depends on. Flows receive it through
// their context.
type Env struct {
	Source DataSource
	Logger log.Logger

	// Ticker drives timeline playback with "tick" events. May be nil.
	Ticker graph.EventTarget
}

func (e *Env) logger() log.Logger {
	if e == nil || e.Logger == nil {
		return log.GetDefaultLogger()
	}
	return e.Logger
}
