package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/morphlang/morphgen/cmd/morphgen/internal/check"
	"github.com/morphlang/morphgen/cmd/morphgen/internal/dev"
	"github.com/morphlang/morphgen/cmd/morphgen/internal/gen"
)

type CLI struct {
	Version VersionCmd `cmd:"" help:"Print version information."`
	Gen     gen.Cmd    `cmd:"" help:"Generate Dart companions for morph declarations."`
	Check   check.Cmd  `cmd:"" help:"Validate declarations without generating files."`
	Dev     dev.Cmd    `cmd:"" help:"Start the dev server."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("morphgen"),
		kong.Description("Morphgen CLI for declaration code generation and development tools."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
