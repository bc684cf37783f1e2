// Package chart is the model of a single chart built on the graph engine.
//
// A Model takes the chart configuration as inputs (type, title, subtitle,
// note, variable IDs, time bounds and selected entities) and derives the
// rendered text, the fetched data, the available years and entities and the
// state of its timeline. Variable data is fetched through a DataSource on a
// separate goroutine; flows that read the data wait for it.
//
//	m := chart.NewModel(&chart.Env{Source: source})
//	err := m.Update(ctx, map[string]any{"variables": []int{1, 2}}, func(err error) {
//		// years, entities and the timeline range are set here
//	})
package chart
