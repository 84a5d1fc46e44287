package config

import (
	"context"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

// Sources names the inputs of the layered loader.
type Sources struct {
	File         string
	FileOptional bool
	DotEnv       []string
	Flags        map[string]any
}

// NewProvider stacks defaults < YAML file < environment < flags.
func NewProvider(src Sources) *core.LayeredConfigProvider {
	var file core.RawConfigLoader
	if src.File != "" {
		file = YAMLFile{Path: src.File, Optional: src.FileOptional}
	}
	return core.NewLayeredConfigProvider(
		file,
		NewEnvironment(src.DotEnv...),
		core.StaticRawConfigLoader{Values: src.Flags},
	)
}

func Load(ctx context.Context, src Sources) (core.Config, error) {
	return NewProvider(src).Load(ctx, core.DefaultConfig())
}
