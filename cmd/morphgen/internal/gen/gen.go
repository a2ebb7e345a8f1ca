package gen

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	morphgen "github.com/morphlang/morphgen"
	"github.com/morphlang/morphgen/cmd/morphgen/internal/cliconfig"
	"github.com/morphlang/morphgen/cmd/morphgen/internal/load"
	"github.com/morphlang/morphgen/dart"
	"github.com/morphlang/morphgen/internal/discover"
	"github.com/morphlang/morphgen/sink"
	"github.com/morphlang/morphgen/watch"
)

type Cmd struct {
	Out     string `arg:"" optional:"" help:"Output directory for generated files (overrides config)."`
	Src     string `help:"Source tree to scan for .morph files (overrides config)." short:"s"`
	Config  string `help:"Path to morphgen.toml." short:"c"`
	Watch   bool   `help:"Watch for changes and regenerate." short:"w"`
	Verbose bool   `help:"Enable debug logging." short:"v"`
}

func (c *Cmd) Run() error {
	cfg, err := cliconfig.Load(c.Config)
	if err != nil {
		return err
	}

	src := c.Src
	if src == "" {
		src = cfg.Src
	}
	if src == "" {
		src = "."
	}
	out := c.Out
	if out == "" {
		out = cfg.Out
	}
	if out == "" {
		return fmt.Errorf("no output directory: pass one as an argument or set out in %s", cliconfig.DefaultPath)
	}

	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	engineCfg := morphgen.Config{
		Logger: logger,
		Emitter: dart.EmitterConfig{
			IndentStyle: cfg.Emitter.IndentStyle,
			IndentSize:  cfg.Emitter.IndentSize,
			LineEnding:  cfg.Emitter.LineEnding,
			Header:      cfg.Emitter.Header,
		},
	}

	fsSink := sink.NewFilesystemSink(out)

	if err := generate(context.Background(), src, engineCfg, fsSink, logger); err != nil {
		return err
	}
	if !c.Watch {
		return nil
	}

	return watchLoop(src, engineCfg, fsSink, logger)
}

// generate runs one full pass: discover, register, generate, write.
func generate(ctx context.Context, src string, cfg morphgen.Config, out sink.OutputSink, logger *slog.Logger) error {
	start := time.Now()
	engine, _, err := load.Engine(src, cfg)
	if err != nil {
		return err
	}

	results, err := engine.GenerateAll(ctx)
	if err != nil {
		return err
	}

	// One output file per source unit, declarations concatenated in name
	// order.
	byUnit := make(map[string][]morphgen.Result)
	for _, res := range results {
		byUnit[res.SourceID] = append(byUnit[res.SourceID], res)
	}

	failed := 0
	written := 0
	for sourceID, unitResults := range byUnit {
		sort.Slice(unitResults, func(i, j int) bool { return unitResults[i].Name < unitResults[j].Name })

		var content []byte
		ok := true
		for _, res := range unitResults {
			for _, w := range res.Warnings {
				logger.Warn("generation warning",
					"code", w.Code,
					"declaration", w.Declaration,
					"message", w.Message)
			}
			if res.Err != nil {
				logger.Error("generation failed",
					"declaration", res.Name,
					"code", string(res.Err.Code),
					"error", res.Err.Message)
				failed++
				ok = false
				continue
			}
			content = append(content, res.Output...)
		}
		if !ok {
			continue
		}
		if err := out.WriteFile(ctx, discover.OutputPath(sourceID), content); err != nil {
			return err
		}
		written++
	}

	if failed > 0 {
		return fmt.Errorf("%d declarations failed to generate", failed)
	}
	logger.Info("generation complete",
		"files", written,
		"declarations", len(results),
		"duration", time.Since(start))
	return nil
}

// watchLoop regenerates the whole tree whenever a source batch changes,
// until interrupted.
func watchLoop(src string, cfg morphgen.Config, out sink.OutputSink, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(src, watch.DefaultDebounce, logger, func(paths []string) {
		logger.Info("sources changed", "count", len(paths))
		if err := generate(ctx, src, cfg, out, logger); err != nil {
			logger.Error("regeneration failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Info("watching for changes", "src", src)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
