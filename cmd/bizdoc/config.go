package main

import (
	"github.com/urfave/cli/v2"

	"github.com/hanko-field/bizdoc/internal/di"
	"github.com/hanko-field/bizdoc/internal/platform/config"
)

func loadConfig(c *cli.Context, deps appDeps) (config.Config, error) {
	opts := []config.Option{config.WithEnvFile(c.String("env-file"))}
	if deps.env != nil {
		opts = append(opts, config.WithoutSystemEnv(), config.WithEnvMap(deps.env))
	}
	return config.Load(c.Context, opts...)
}

func buildContainer(c *cli.Context, deps appDeps) (*di.Container, error) {
	cfg, err := loadConfig(c, deps)
	if err != nil {
		return nil, err
	}
	return di.NewContainer(c.Context, cfg, di.WithLogger(deps.logger))
}
