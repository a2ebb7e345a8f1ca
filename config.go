package morphgen

import (
	"log/slog"
	"runtime"

	"github.com/go-playground/validator/v10"

	"github.com/morphlang/morphgen/dart"
)

var configValidate = validator.New()

// Config controls an Engine. The zero value is usable; applyDefaults fills
// the gaps without mutating the caller's copy.
type Config struct {
	// Logger receives structured engine logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Emitter controls the output text shape.
	Emitter dart.EmitterConfig

	// Concurrency bounds the number of declarations generated in parallel
	// by GenerateAll. Zero means GOMAXPROCS.
	Concurrency int `validate:"gte=0"`

	// FailFast aborts GenerateAll on the first declaration error instead
	// of collecting per-declaration results.
	FailFast bool
}

// Validate checks the configuration against its struct tags. New does not
// validate; callers assembling a Config from external input should.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return AsError(err)
	}
	return nil
}

func (c Config) applyDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.GOMAXPROCS(0)
	}
	return c
}
