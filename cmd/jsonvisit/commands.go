package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/google/gops/agent"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	"golang.org/x/sync/errgroup"

	"github.com/streamvisit/jsonvisit"
)

// Config holds the root command's flags, populated by cli.StructOpts
// from struct tags and consumed by runVisit.
type Config struct {
	Main        *cli.Command
	Schema      string `cli:"name=schema desc='YAML schema description file'"`
	Concurrency int    `cli:"name=concurrency desc='number of files to visit in parallel' default=4"`
	Diagnose    bool   `cli:"name=diagnose desc='start a gops diagnostics agent'"`
	NoColor     bool   `cli:"name=no-color desc='disable colored output even on a TTY'"`
}

// MainCommand builds the jsonvisit root command. It has no subcommands;
// running it visits the files named on its command line.
func MainCommand() *cli.Command {
	cfg := &Config{Concurrency: 4}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "jsonvisit").
		WithSynopsis("jsonvisit -schema <file> [opts] file...").
		WithDescription("jsonvisit streams JSON files through a schema-driven visitor, printing only the matched values.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return runVisit(cfg, cc, args)
		})
}

func runVisit(cfg *Config, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if cfg.Diagnose {
		if err := agent.Listen(agent.Options{}); err != nil {
			fmt.Fprintf(cc.Out, "gops agent failed: %v\n", err)
		}
	}
	if cfg.Schema == "" {
		return fmt.Errorf("%w: -schema is required", cli.ErrUsage)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: at least one input file is required", cli.ErrUsage)
	}

	useColor := !cfg.NoColor && isatty.IsTerminal(os.Stdout.Fd())
	path := color.New(color.FgCyan)
	value := color.New(color.FgGreen)
	if !useColor {
		path.DisableColor()
		value.DisableColor()
	}

	var mu sync.Mutex
	emit := func(file, matchPath string, v any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(cc.Out, "%s = %s\n", path.Sprintf("%s%s", file, matchPath), value.Sprintf("%v", v))
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(concurrency)
	for _, file := range args {
		file := file
		g.Go(func() error {
			return visitFile(ctx, cfg.Schema, file, func(matchPath string, v any) {
				emit(file, matchPath, v)
			})
		})
	}
	return g.Wait()
}

func visitFile(ctx context.Context, schemaPath, dataPath string, emit func(string, any)) error {
	schema, err := loadSchemaFile(schemaPath, emit)
	if err != nil {
		return err
	}
	f, err := os.Open(dataPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return jsonvisit.Visit(ctx, jsonvisit.FromReader(f, 0), schema)
}
