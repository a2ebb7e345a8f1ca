package check

import (
	"fmt"
	"log/slog"
	"os"

	morphgen "github.com/morphlang/morphgen"
	"github.com/morphlang/morphgen/cmd/morphgen/internal/cliconfig"
	"github.com/morphlang/morphgen/cmd/morphgen/internal/load"
)

type Cmd struct {
	Src    string `help:"Source tree to scan for .morph files (overrides config)." short:"s"`
	Config string `help:"Path to morphgen.toml." short:"c"`
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

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	engine, units, err := load.Engine(src, morphgen.Config{Logger: logger})
	if err != nil {
		return err
	}

	errs := engine.Check()
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "✗ %v\n", e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d declarations failed validation", len(errs))
	}

	fmt.Printf("✓ %d source units, %d declarations\n", len(units), len(engine.Names()))
	fmt.Println("✓ All references resolvable")
	return nil
}
