package graph

import "context"

type envKey struct{}

type graphKey struct{}

// ContextWithEnv adds an environment value to the context.
// Every flow of a graph built WithEnv receives it this way.
func ContextWithEnv(ctx context.Context, env any) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// EnvFromContext retrieves the environment value from the context.
func EnvFromContext(ctx context.Context) any {
	return ctx.Value(envKey{})
}

// EnvAs retrieves the environment value as T.
func EnvAs[T any](ctx context.Context) (T, bool) {
	env, ok := ctx.Value(envKey{}).(T)
	return env, ok
}

func contextWithGraph(ctx context.Context, g *Graph) context.Context {
	return context.WithValue(ctx, graphKey{}, g)
}

// FromContext returns the graph running the current flow, if any.
func FromContext(ctx context.Context) *Graph {
	g, _ := ctx.Value(graphKey{}).(*Graph)
	return g
}
