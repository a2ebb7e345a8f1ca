// Package load builds an engine from a source tree. Shared by the gen,
// check, and dev commands.
package load

import (
	"fmt"

	morphgen "github.com/morphlang/morphgen"
	"github.com/morphlang/morphgen/internal/discover"
)

// Engine discovers every .morph source unit under src and registers it
// into a fresh engine. The engine is still in the collection phase on
// return; callers freeze it by generating or checking.
func Engine(src string, cfg morphgen.Config) (*morphgen.Engine, []discover.Unit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	units, err := discover.Find(src)
	if err != nil {
		return nil, nil, err
	}
	if len(units) == 0 {
		return nil, nil, fmt.Errorf("no .morph files found under %s", src)
	}

	engine := morphgen.New(cfg)
	for _, unit := range units {
		if err := engine.RegisterSource(unit.Text, unit.SourceID); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", unit.SourceID, err)
		}
	}
	return engine, units, nil
}
