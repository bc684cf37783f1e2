// Command chartflow loads a chart definition, resolves its model and prints
// the resulting properties.
//
// Usage:
//
//	chartflow -config charts.hcl -chart gdp [-log-level info] [-store memory] [-store-dsn ...] [-draw mermaid]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	goredis "github.com/redis/go-redis/v9"

	"github.com/chartflow/chartflow/chart"
	"github.com/chartflow/chartflow/config"
	"github.com/chartflow/chartflow/graph"
	"github.com/chartflow/chartflow/log"
	"github.com/chartflow/chartflow/store"
	"github.com/chartflow/chartflow/store/file"
	"github.com/chartflow/chartflow/store/memory"
	"github.com/chartflow/chartflow/store/postgres"
	"github.com/chartflow/chartflow/store/redis"
	"github.com/chartflow/chartflow/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	chart      string
	logLevel   string
	store      string
	storeDSN   string
	draw       string
	timeout    time.Duration
}

func parseFlags(args []string, out io.Writer) (*options, error) {
	fs := flag.NewFlagSet("chartflow", flag.ContinueOnError)
	fs.SetOutput(out)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "charts.hcl", "Path to the chart definition file.")
	fs.StringVar(&opts.chart, "chart", "", "Slug of the chart to resolve. May be omitted when the file holds one chart.")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Logging level: debug, info, warn, error or none.")
	fs.StringVar(&opts.store, "store", "memory", "Snapshot store: memory, file, redis, postgres or sqlite.")
	fs.StringVar(&opts.storeDSN, "store-dsn", "", "Store location: a directory, a redis address or URL, a postgres connection string or a sqlite path.")
	fs.StringVar(&opts.draw, "draw", "", "Also print the flow diagram: mermaid, dot or ascii.")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "How long to wait for the chart to resolve.")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// run is main without the process exit, for tests.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args, stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	level, err := log.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger := log.NewGolog(level)
	logger.Golog().SetOutput(os.Stderr)

	defs, err := config.LoadFile(opts.configPath)
	if err != nil {
		return err
	}
	def, err := pickChart(defs, opts.chart)
	if err != nil {
		return err
	}

	snapshots, closeStore, err := openStore(ctx, opts.store, opts.storeDSN)
	if err != nil {
		return err
	}
	defer closeStore()

	model := chart.NewModel(
		&chart.Env{Source: defs.Source(), Logger: logger},
		graph.WithName(def.Slug),
		graph.WithListener(graph.NewLoggingListener(logger)),
	)
	defer model.Close()

	if err := resolve(ctx, model, def.Inputs(), opts.timeout); err != nil {
		return fmt.Errorf("failed to resolve chart %q: %w", def.Slug, err)
	}

	snap := model.TakeSnapshot()
	if err := graph.SaveSnapshot(ctx, snapshots, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	logger.Info("saved snapshot %s (version %d) to %s store", snap.ID, snap.Version, opts.store)

	printProperties(stdout, model)

	if opts.draw != "" {
		diagram, err := graph.NewExporter(model.Graph).Draw(opts.draw)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout)
		fmt.Fprint(stdout, diagram)
	}
	return nil
}

func pickChart(f *config.File, slug string) (*config.ChartDef, error) {
	if slug != "" {
		return f.Chart(slug)
	}
	if len(f.Charts) == 1 {
		return f.Charts[0], nil
	}
	return nil, fmt.Errorf("-chart is required, %s defines: %s", f.Path, strings.Join(f.Slugs(), ", "))
}

// resolve submits inputs and waits for the cycle, including its data fetch.
func resolve(ctx context.Context, model *chart.Model, inputs map[string]any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errs := make(chan error, 1)
	_ = model.Update(ctx, inputs, func(err error) { errs <- err })

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func openStore(ctx context.Context, kind, dsn string) (store.SnapshotStore, func(), error) {
	noop := func() {}

	switch kind {
	case "memory":
		return memory.NewMemorySnapshotStore(), noop, nil
	case "file":
		if dsn == "" {
			dsn = ".chartflow"
		}
		s, err := file.NewFileSnapshotStore(dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "redis":
		if strings.HasPrefix(dsn, "redis://") || strings.HasPrefix(dsn, "rediss://") {
			clientOpts, err := goredis.ParseURL(dsn)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid redis url: %w", err)
			}
			s := redis.NewRedisSnapshotStoreWithClient(goredis.NewClient(clientOpts), "", 0)
			return s, func() { _ = s.Close() }, nil
		}
		opts := redis.RedisOptions{Addr: dsn}
		if dsn == "" {
			opts.Addr = "localhost:6379"
		}
		s := redis.NewRedisSnapshotStore(opts)
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := postgres.NewPostgresSnapshotStore(ctx, postgres.PostgresOptions{ConnString: dsn})
		if err != nil {
			return nil, nil, err
		}
		if err := s.InitSchema(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s.Close, nil
	case "sqlite":
		if dsn == "" {
			dsn = "chartflow.db"
		}
		s, err := sqlite.NewSqliteSnapshotStore(sqlite.SqliteOptions{Path: dsn})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", kind)
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

func printProperties(w io.Writer, model *chart.Model) {
	values := model.Snapshot()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, describe(values[name])})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headStyle
			}
			return cellStyle
		}).
		Headers("PROPERTY", "VALUE").
		Rows(rows...)

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (cycle %d)", model.Name(), model.Cycles())))
	fmt.Fprintln(w, t.Render())
}

const maxCell = 60

func describe(v any) string {
	var s string
	switch v := v.(type) {
	case *graph.Graph:
		s = fmt.Sprintf("%s graph, %d values", v.Name(), len(v.Snapshot()))
	case map[int]*chart.Variable:
		names := make([]string, 0, len(v))
		for _, variable := range v {
			names = append(names, variable.Name)
		}
		sort.Strings(names)
		s = strings.Join(names, ", ")
	case nil:
		s = "-"
	default:
		s = fmt.Sprint(v)
	}

	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxCell {
		s = string(r[:maxCell-3]) + "..."
	}
	return s
}
