package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/cqgo/internal/cachemgr"
	"github.com/standardbeagle/cqgo/internal/completion"
	"github.com/standardbeagle/cqgo/internal/config"
	"github.com/standardbeagle/cqgo/internal/debug"
	"github.com/standardbeagle/cqgo/internal/importmgr"
	"github.com/standardbeagle/cqgo/internal/pipeline"
	"github.com/standardbeagle/cqgo/internal/progress"
	"github.com/standardbeagle/cqgo/internal/protocoladapter"
	"github.com/standardbeagle/cqgo/internal/querydb"
	"github.com/standardbeagle/cqgo/internal/tsindex"
	"github.com/standardbeagle/cqgo/internal/types"
	"github.com/standardbeagle/cqgo/internal/watch"
	"github.com/standardbeagle/cqgo/internal/workingfiles"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	app := &cli.App{
		Name:                   "cqgo",
		Usage:                  "C/C++/Objective-C code indexing backend with an MCP tool surface",
		Version:                "0.1.0",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "root",
				Usage: "Project root to index and watch",
				Value: ".",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of concurrent indexer workers (0 = config default)",
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "cqgo: %v\n", err)
		os.Exit(1)
	}
}

func runServe(c *cli.Context) error {
	root := c.String("root")
	cfg, err := config.Load(root)
	if err != nil {
		return debug.Fatal("failed to load config: %v\n", err)
	}

	workers := c.Int("workers")
	if workers <= 0 {
		workers = cfg.IndexThreads
	}
	if workers <= 0 {
		workers = runtime.NumCPU() - 1
	}
	if workers < 1 {
		workers = 1
	}

	codec := cachemgr.Codec(cachemgr.JSONCodec{})
	if cfg.SerializeFormat == config.FormatBinary {
		codec = cachemgr.BinaryCodec{}
	}
	cache := cachemgr.New(cfg.CacheDir, codec)
	ts := cachemgr.NewTimestampManager(cache)
	imports := importmgr.New()
	db := querydb.New()

	reporter := progress.New(cfg.ProgressReportFrequencyMs, emitProgress, emitDiagnostics)

	indexer := tsindex.New()
	p := pipeline.New(indexer, cache, ts, imports, db, reporter, workers)
	comp := completion.New(indexer, cfg.CompletionFilterAndSort, p.IndexFromCompletion)
	wf := workingfiles.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go p.Run(ctx)

	w, err := watch.New(root, cfg)
	if err != nil {
		debug.LogIndexing("failed to start file watcher: %v\n", err)
	} else {
		go forwardWatchEvents(ctx, w, p, comp)
		defer w.Close()
	}

	adapter := protocoladapter.New(db, p, comp, wf)

	errCh := make(chan error, 1)
	go func() {
		debug.LogMCP("starting MCP server on stdio transport\n")
		errCh <- adapter.Run(ctx, &mcp.StdioTransport{})
	}()

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		debug.LogMCP("shutdown signal received\n")
		cancel()
		return nil
	}
}

func forwardWatchEvents(ctx context.Context, w *watch.Watcher, p *pipeline.Pipeline, comp *completion.Cache) {
	for {
		select {
		case req := <-w.Events():
			comp.Invalidate(req.Path)
			p.Enqueue(req)
		case err := <-w.Errors():
			debug.LogIndexing("watch error: %v\n", err)
		case <-ctx.Done():
			return
		}
	}
}

func emitProgress(r types.ProgressReport) {
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	fmt.Fprintln(os.Stderr, string(b))
}

func emitDiagnostics(d types.Diagnostics) {
	b, err := json.Marshal(d)
	if err != nil {
		return
	}
	fmt.Fprintln(os.Stderr, string(b))
}
