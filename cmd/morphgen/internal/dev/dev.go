package dev

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	morphgen "github.com/morphlang/morphgen"
	"github.com/morphlang/morphgen/cmd/morphgen/internal/cliconfig"
	"github.com/morphlang/morphgen/cmd/morphgen/internal/load"
	"github.com/morphlang/morphgen/devserver"
)

type Cmd struct {
	Src    string `help:"Source tree to scan for .morph files (overrides config)." short:"s"`
	Config string `help:"Path to morphgen.toml." short:"c"`
	Port   int    `help:"Port to listen on." default:"9000" short:"p"`
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
	port := c.Port
	if cfg.Dev.Port != 0 && port == 9000 {
		port = cfg.Dev.Port
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Rebuild per request so edits are visible without restarting.
	build := func() (*morphgen.Engine, error) {
		engine, _, err := load.Engine(src, morphgen.Config{Logger: logger})
		return engine, err
	}

	srv := devserver.New(build, logger)
	addr := fmt.Sprintf(":%d", port)
	logger.Info("dev server listening", "addr", addr, "src", src)
	return http.ListenAndServe(addr, srv.Handler())
}
